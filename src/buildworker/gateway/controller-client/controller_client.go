// Package controllerclient sends worker messages to the build controller.
package controllerclient

import (
	"context"
	"fmt"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
	"github.com/uber/incbuild/src/buildworker/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _errSendToController = "sending %s to controller: %w"

// Module provides the controller Gateway.
var Module = fx.Provide(New)

// Gateway is used to send outbound messages to the controller. Every message is stamped with the session id of
// this worker.
type Gateway interface {
	SendBuilderMessage(ctx context.Context, msg *protocol.BuilderMessage) error
	SendFailure(ctx context.Context, failure *protocol.Failure) error
	// Close ends the connection to the controller.
	Close(ctx context.Context) error
}

// Params are the inputs to New.
type Params struct {
	fx.In

	Transport transport.Transport
	Args      entity.LaunchArgs
	Logger    *zap.SugaredLogger
}

type gateway struct {
	transport transport.Transport
	args      entity.LaunchArgs
	logger    *zap.SugaredLogger
}

// New returns a Gateway writing to the controller connection.
func New(p Params) Gateway {
	return &gateway{
		transport: p.Transport,
		args:      p.Args,
		logger:    p.Logger,
	}
}

func (g *gateway) SendBuilderMessage(ctx context.Context, msg *protocol.BuilderMessage) error {
	err := g.transport.Send(&protocol.Message{
		SessionID: g.args.SessionID,
		Kind:      protocol.KindBuilderMessage,
		Builder:   msg,
	})
	if err != nil {
		return fmt.Errorf(_errSendToController, "builder message", err)
	}
	return nil
}

func (g *gateway) SendFailure(ctx context.Context, failure *protocol.Failure) error {
	err := g.transport.Send(&protocol.Message{
		SessionID: g.args.SessionID,
		Kind:      protocol.KindFailure,
		Failure:   failure,
	})
	if err != nil {
		return fmt.Errorf(_errSendToController, "failure", err)
	}
	return nil
}

func (g *gateway) Close(ctx context.Context) error {
	g.logger.Infow("closing connection to controller", "sessionId", g.args.SessionID.String())
	return g.transport.Close()
}
