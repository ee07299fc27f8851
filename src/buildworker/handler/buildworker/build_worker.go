// Package buildworker handles the messages the build controller sends to this worker.
package buildworker

import (
	"context"
	"fmt"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/incbuild/src/buildworker/controller/loader"
	"github.com/uber/incbuild/src/buildworker/controller/session"
	"github.com/uber/incbuild/src/buildworker/entity"
	controllerclient "github.com/uber/incbuild/src/buildworker/gateway/controller-client"
	workererrors "github.com/uber/incbuild/src/buildworker/internal/errors"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
	"github.com/uber/incbuild/src/buildworker/internal/transport"
	"github.com/uber/incbuild/src/buildworker/internal/workerpool"
	"github.com/uber/incbuild/src/buildworker/mapper"
	sessionrepo "github.com/uber/incbuild/src/buildworker/repository/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler receives the frames read from the controller connection.
type Handler = transport.Handler

// Params are the inputs to New.
type Params struct {
	fx.In

	// Constructed ahead of Transport so their start hooks run before the controller is dialed.
	Controller session.Controller
	Preloaded  loader.PersistentLoader

	Transport  transport.Transport
	Repository sessionrepo.Repository
	Gateway    controllerclient.Gateway
	Pool       workerpool.Pool
	Shutdowner fx.Shutdowner
	Args       entity.LaunchArgs
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

type handler struct {
	controller session.Controller
	preloaded  loader.PersistentLoader
	repository sessionrepo.Repository
	gateway    controllerclient.Gateway
	pool       workerpool.Pool
	shutdowner fx.Shutdowner
	args       entity.LaunchArgs
	logger     *zap.SugaredLogger
	stats      tally.Scope
}

// New constructs the Handler and registers it with the transport.
func New(p Params) (Handler, error) {
	h := &handler{
		controller: p.Controller,
		preloaded:  p.Preloaded,
		repository: p.Repository,
		gateway:    p.Gateway,
		pool:       p.Pool,
		shutdowner: p.Shutdowner,
		args:       p.Args,
		logger:     p.Logger,
		stats:      p.Stats,
	}
	if err := p.Transport.RegisterHandler(h); err != nil {
		return nil, fmt.Errorf("registering controller message handler: %w", err)
	}
	return h, nil
}

func (h *handler) HandleMessage(ctx context.Context, msg *protocol.Message) {
	if msg.Kind != protocol.KindControllerMessage || msg.Controller == nil {
		h.logger.Warnw("ignoring message not sent by a controller", "kind", msg.Kind)
		return
	}
	if msg.SessionID != h.args.SessionID {
		h.logger.Warnw("message for another session", "sessionId", msg.SessionID.String(), "expected", h.args.SessionID.String())
	}

	switch msg.Controller.Type {
	case protocol.ControllerBuildParameters:
		h.startBuild(ctx, msg.Controller)
	case protocol.ControllerCancelBuildCommand:
		h.cancelBuild(ctx)
	case protocol.ControllerFSEvent:
		h.applyFSEvent(ctx, msg.Controller)
	default:
		h.stats.Counter("protocol.unsupported").Inc(1)
		err := &workererrors.UnsupportedMessageError{Kind: msg.Controller.Type.String()}
		h.logger.Warnw("unsupported controller message", "error", err)
		h.sendFailure(ctx, err)
	}
}

func (h *handler) startBuild(ctx context.Context, msg *protocol.ControllerMessage) {
	if active, ok := h.repository.Active(); ok {
		h.reject(active.ID().String())
		return
	}

	params, err := mapper.ProtocolToBuildParameters(msg)
	if err != nil {
		h.logger.Errorw("invalid build parameters", "error", err)
		// Without a session nothing else would end the connection.
		h.sendFailure(ctx, err)
		h.closeConnection()
		return
	}

	s := h.controller.NewSession(params)
	if err := h.repository.Start(s); err != nil {
		h.reject(err.Error())
		return
	}
	h.logger.Infow("build session accepted", "sessionId", s.ID().String(), "params", params)
	if !h.pool.Submit("build session", s.Run) {
		h.logger.Warnw("worker is stopping, build session not started")
		h.repository.Finish(s)
	}
}

func (h *handler) reject(reason string) {
	h.stats.Counter("session.rejected").Inc(1)
	h.logger.Warnw("build parameters ignored, a build was already requested", "reason", reason)
}

func (h *handler) cancelBuild(ctx context.Context) {
	if s, ok := h.repository.Active(); ok {
		s.Cancel()
		return
	}
	h.logger.Infow("cancel requested with no active build", "error", &workererrors.NoActiveSessionError{SessionID: h.args.SessionID})
	h.closeConnection()
}

func (h *handler) applyFSEvent(ctx context.Context, msg *protocol.ControllerMessage) {
	changed, deleted, err := mapper.ProtocolToFSEvent(msg)
	if err != nil {
		h.logger.Warnw("invalid file system event", "error", err)
		return
	}
	h.preloaded.ApplyFSEvent(changed, deleted)
}

// Disconnected cancels a running build and stops the worker. Shutdown must not be requested from the
// read goroutine, so it is handed to the pool.
func (h *handler) Disconnected(ctx context.Context, err error) {
	if s, ok := h.repository.Active(); ok {
		h.logger.Infow("controller went away, canceling build", "sessionId", s.ID().String())
		s.Cancel()
	}

	submitted := h.pool.Submit("shutdown", func(ctx context.Context) {
		if err := h.shutdowner.Shutdown(fx.ExitCode(0)); err != nil {
			h.logger.Warnw("failed to request shutdown", "error", err)
		}
	})
	if !submitted {
		h.logger.Debugw("worker already stopping")
	}
}

func (h *handler) sendFailure(ctx context.Context, err error) {
	if sendErr := h.gateway.SendFailure(ctx, mapper.ErrorToFailure(err, "")); sendErr != nil {
		h.logger.Warnw("failed to send failure", "error", sendErr)
	}
}

func (h *handler) closeConnection() {
	closeConn := func(ctx context.Context) {
		if err := h.gateway.Close(ctx); err != nil {
			h.logger.Warnw("failed to close controller connection", "error", err)
		}
	}
	if !h.pool.Submit("close controller connection", closeConn) {
		closeConn(context.Background())
	}
}
