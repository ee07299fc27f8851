package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/uber/incbuild/src/buildworker/entity"
	controllerclient "github.com/uber/incbuild/src/buildworker/gateway/controller-client"
	workererrors "github.com/uber/incbuild/src/buildworker/internal/errors"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
	"github.com/uber/incbuild/src/buildworker/mapper"
	"go.uber.org/zap"
)

// messageSink forwards engine messages to the controller in the order they are received and tracks
// what the build status depends on.
type messageSink struct {
	ctx     context.Context
	gateway controllerclient.Gateway
	logger  *zap.SugaredLogger
	onLost  func()

	mu       sync.Mutex
	closed   bool
	lostConn bool

	hadErrors      bool
	markedUpToDate bool
}

func newMessageSink(ctx context.Context, gateway controllerclient.Gateway, logger *zap.SugaredLogger, onLost func()) *messageSink {
	return &messageSink{ctx: ctx, gateway: gateway, logger: logger, onLost: onLost}
}

// ProcessMessage implements entity.MessageSink.
func (s *messageSink) ProcessMessage(msg entity.BuildMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case entity.FilesGeneratedMessage:
		if len(m.Files) > 0 {
			s.sendLocked(mapper.FilesGeneratedToProtocol(m))
		}
	case entity.FilesMarkedUpToDateMessage:
		if m.Count > 0 {
			s.markedUpToDate = true
		}
	case entity.CompilerMessage:
		if m.Kind == entity.KindError {
			s.hadErrors = true
		}
		s.sendLocked(mapper.CompilerMessageToProtocol(m))
	case entity.ProgressMessage:
		s.sendLocked(mapper.ProgressToProtocol(m))
	default:
		s.logger.Warnw("unknown build message dropped", "type", fmt.Sprintf("%T", msg))
	}
}

func (s *messageSink) send(msg *protocol.BuilderMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLocked(msg)
}

func (s *messageSink) sendLocked(msg *protocol.BuilderMessage) {
	if s.closed {
		s.logger.Debugw("message after build end dropped", "type", msg.Type)
		return
	}
	if s.lostConn {
		return
	}
	if err := s.gateway.SendBuilderMessage(s.ctx, msg); err != nil {
		s.logger.Warnw("failed to send build message", "error", err)
		if errors.Is(err, workererrors.ErrConnectionClosed) {
			// Nobody is listening anymore.
			s.lostConn = true
			s.onLost()
		}
	}
}

// close makes the sink drop every later message.
func (s *messageSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// status computes the terminal status: CANCELED, then ERRORS, then UP_TO_DATE when nothing was marked
// up to date, else SUCCESS.
func (s *messageSink) status(canceled bool) entity.BuildStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case canceled:
		return entity.StatusCanceled
	case s.hadErrors:
		return entity.StatusErrors
	case !s.markedUpToDate:
		return entity.StatusUpToDate
	default:
		return entity.StatusSuccess
	}
}
