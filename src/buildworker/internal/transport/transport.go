// Package transport owns the TCP link to the build controller.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/uber/incbuild/src/buildworker/entity"
	workererrors "github.com/uber/incbuild/src/buildworker/internal/errors"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _configKey = "transport"

// Module provides the controller Transport. The connection is dialed when the application starts.
var Module = fx.Provide(New)

// Handler receives what arrives on the connection. Calls are made from the read goroutine, one at a time.
type Handler interface {
	// HandleMessage is called for every decoded frame.
	HandleMessage(ctx context.Context, msg *protocol.Message)
	// Disconnected is called once, when the connection is gone. err is nil for an orderly close.
	Disconnected(ctx context.Context, err error)
}

// Transport sends frames to the controller and dispatches received frames to a Handler.
type Transport interface {
	// RegisterHandler sets the receiver of incoming frames. It must be called before the application starts.
	RegisterHandler(h Handler) error
	// Send writes one frame. Concurrent calls are serialized.
	Send(msg *protocol.Message) error
	// Close closes the connection. Closing more than once is a no-op.
	Close() error
}

// Config is the transport section of the configuration.
type Config struct {
	DialTimeoutMs    int `yaml:"dialTimeoutMs"`
	KeepAliveSeconds int `yaml:"keepAliveSeconds"`
}

// Params define values to be used by Transport.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Args      entity.LaunchArgs
}

type transport struct {
	cfg    Config
	args   entity.LaunchArgs
	logger *zap.SugaredLogger
	dial   func(ctx context.Context, network, address string) (net.Conn, error)

	handler Handler

	writeMu sync.Mutex
	conn    net.Conn
	writer  *protocol.FrameWriter

	closeOnce sync.Once
	closed    chan struct{}
	readDone  chan struct{}
}

// New creates a Transport connecting to the controller named in the launch arguments.
func New(p Params) (Transport, error) {
	if p.Lifecycle == nil || p.Config == nil {
		return nil, errors.New("required parameters are missing")
	}

	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}

	t := newTransport(cfg, p.Args, p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStart: t.OnStart,
		OnStop:  t.OnStop,
	})
	return t, nil
}

func newTransport(cfg Config, args entity.LaunchArgs, logger *zap.SugaredLogger) *transport {
	dialer := &net.Dialer{
		Timeout:   time.Duration(cfg.DialTimeoutMs) * time.Millisecond,
		KeepAlive: time.Duration(cfg.KeepAliveSeconds) * time.Second,
	}
	return &transport{
		cfg:      cfg,
		args:     args,
		logger:   logger,
		dial:     dialer.DialContext,
		closed:   make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

func (t *transport) RegisterHandler(h Handler) error {
	if t.handler != nil {
		return errors.New("cannot register a duplicate handler")
	}
	t.handler = h
	return nil
}

// OnStart dials the controller, asks for the build parameters of this session and starts reading.
// A failed dial fails the application start; there is no retry.
func (t *transport) OnStart(ctx context.Context) error {
	if t.handler == nil {
		return errors.New("cannot start transport, no handler registered")
	}

	conn, err := t.dial(ctx, "tcp", t.args.Address())
	if err != nil {
		return fmt.Errorf("connecting to controller at %s: %w", t.args.Address(), err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			t.logger.Warnw("failed to set TCP_NODELAY", "error", err)
		}
		if err := tcp.SetKeepAlive(true); err != nil {
			t.logger.Warnw("failed to enable keep-alive", "error", err)
		}
	}

	t.conn = conn
	t.writer = protocol.NewFrameWriter(conn, nil)
	t.logger.Infow("connected to controller", "address", t.args.Address(), "sessionId", t.args.SessionID.String())

	if err := t.Send(&protocol.Message{
		SessionID: t.args.SessionID,
		Kind:      protocol.KindBuilderMessage,
		Builder:   &protocol.BuilderMessage{Type: protocol.BuilderParametersRequest},
	}); err != nil {
		conn.Close()
		return fmt.Errorf("requesting build parameters: %w", err)
	}

	go t.readLoop()
	return nil
}

// OnStop closes the connection and waits for the read goroutine to exit.
func (t *transport) OnStop(ctx context.Context) error {
	if t.conn == nil {
		return nil
	}
	err := t.Close()
	select {
	case <-t.readDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (t *transport) Send(msg *protocol.Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.closed:
		return workererrors.ErrConnectionClosed
	default:
	}
	if t.writer == nil {
		return workererrors.ErrConnectionClosed
	}
	if err := t.writer.Write(msg); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func (t *transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		if t.conn != nil {
			t.logger.Infow("closing controller connection")
			err = t.conn.Close()
		}
	})
	return err
}

// readLoop decodes frames until the connection ends, then reports the disconnect once.
func (t *transport) readLoop() {
	defer close(t.readDone)

	ctx := context.Background()
	reader := protocol.NewFrameReader(t.conn)
	var cause error
	for {
		msg, err := reader.Read()
		if err != nil {
			cause = t.classify(err)
			break
		}
		t.handler.HandleMessage(ctx, msg)
	}

	if cause != nil {
		t.logger.Warnw("controller connection lost", "error", cause)
	} else {
		t.logger.Infow("controller connection closed")
	}
	// Release the socket when the peer went away first.
	t.Close()
	t.handler.Disconnected(ctx, cause)
}

// classify maps read errors to nil for an orderly close.
func (t *transport) classify(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	select {
	case <-t.closed:
		return nil
	default:
	}
	if workererrors.IsProtocolError(err) {
		return fmt.Errorf("protocol desync: %w", err)
	}
	return err
}
