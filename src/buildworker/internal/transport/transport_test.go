package transport

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/incbuild/src/buildworker/entity"
	workererrors "github.com/uber/incbuild/src/buildworker/internal/errors"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

const _timeout = 5 * time.Second

type recordingHandler struct {
	messages     chan *protocol.Message
	disconnected chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		messages:     make(chan *protocol.Message, 10),
		disconnected: make(chan error, 1),
	}
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg *protocol.Message) {
	h.messages <- msg
}

func (h *recordingHandler) Disconnected(ctx context.Context, err error) {
	h.disconnected <- err
}

func testConfig(t *testing.T) config.Provider {
	provider, err := config.NewStaticProvider(map[string]interface{}{
		"transport": map[string]interface{}{"dialTimeoutMs": 1000, "keepAliveSeconds": 30},
	})
	require.NoError(t, err)
	return provider
}

func listen(t *testing.T) (net.Listener, entity.LaunchArgs) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return ln, entity.LaunchArgs{Host: host, Port: p, SessionID: uuid.Must(uuid.NewV4())}
}

func accept(t *testing.T, ln net.Listener) net.Conn {
	conn, err := ln.Accept()
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(_timeout)))
	return conn
}

func TestNew(t *testing.T) {
	t.Run("missing parameters", func(t *testing.T) {
		_, err := New(Params{Logger: zap.NewNop().Sugar()})
		assert.Error(t, err)
	})

	t.Run("malformed config", func(t *testing.T) {
		provider, err := config.NewStaticProvider(map[string]interface{}{"transport": "nope"})
		require.NoError(t, err)
		_, err = New(Params{Config: provider, Lifecycle: fxtest.NewLifecycle(t), Logger: zap.NewNop().Sugar()})
		assert.Error(t, err)
	})
}

func TestTransportSession(t *testing.T) {
	ln, args := listen(t)
	lc := fxtest.NewLifecycle(t)
	tr, err := New(Params{Config: testConfig(t), Lifecycle: lc, Logger: zap.NewNop().Sugar(), Args: args})
	require.NoError(t, err)

	h := newRecordingHandler()
	require.NoError(t, tr.RegisterHandler(h))
	assert.Error(t, tr.RegisterHandler(h))

	lc.RequireStart()
	controller := accept(t, ln)
	defer controller.Close()

	reader := protocol.NewFrameReader(controller)
	first, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, args.SessionID, first.SessionID)
	require.NotNil(t, first.Builder)
	assert.Equal(t, protocol.BuilderParametersRequest, first.Builder.Type)

	writer := protocol.NewFrameWriter(controller, nil)
	require.NoError(t, writer.Write(&protocol.Message{
		SessionID:  args.SessionID,
		Kind:       protocol.KindControllerMessage,
		Controller: &protocol.ControllerMessage{Type: protocol.ControllerCancelBuildCommand},
	}))

	select {
	case msg := <-h.messages:
		assert.Equal(t, protocol.ControllerCancelBuildCommand, msg.Controller.Type)
	case <-time.After(_timeout):
		t.Fatal("message not dispatched")
	}

	require.NoError(t, tr.Send(&protocol.Message{
		SessionID: args.SessionID,
		Kind:      protocol.KindFailure,
		Failure:   &protocol.Failure{Description: "boom"},
	}))
	reply, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, "boom", reply.Failure.Description)

	// The controller hangs up.
	require.NoError(t, controller.Close())
	select {
	case err := <-h.disconnected:
		assert.NoError(t, err)
	case <-time.After(_timeout):
		t.Fatal("disconnect not reported")
	}
	assert.ErrorIs(t, tr.Send(&protocol.Message{}), workererrors.ErrConnectionClosed)

	lc.RequireStop()
}

func TestTransportLocalClose(t *testing.T) {
	ln, args := listen(t)
	lc := fxtest.NewLifecycle(t)
	tr, err := New(Params{Config: testConfig(t), Lifecycle: lc, Logger: zap.NewNop().Sugar(), Args: args})
	require.NoError(t, err)
	h := newRecordingHandler()
	require.NoError(t, tr.RegisterHandler(h))

	lc.RequireStart()
	controller := accept(t, ln)
	defer controller.Close()

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	select {
	case err := <-h.disconnected:
		assert.NoError(t, err)
	case <-time.After(_timeout):
		t.Fatal("disconnect not reported")
	}
	lc.RequireStop()
}

func TestTransportDialFailure(t *testing.T) {
	ln, args := listen(t)
	require.NoError(t, ln.Close())

	tr := newTransport(Config{DialTimeoutMs: 500}, args, zap.NewNop().Sugar())
	require.NoError(t, tr.RegisterHandler(newRecordingHandler()))

	err := tr.OnStart(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to controller")
	assert.NoError(t, tr.OnStop(context.Background()))
}

func TestTransportStartWithoutHandler(t *testing.T) {
	tr := newTransport(Config{}, entity.LaunchArgs{Host: "127.0.0.1", Port: 1}, zap.NewNop().Sugar())
	assert.Error(t, tr.OnStart(context.Background()))
}

func TestTransportProtocolDesync(t *testing.T) {
	ln, args := listen(t)
	tr := newTransport(Config{DialTimeoutMs: 1000}, args, zap.NewNop().Sugar())
	h := newRecordingHandler()
	require.NoError(t, tr.RegisterHandler(h))
	require.NoError(t, tr.OnStart(context.Background()))

	controller := accept(t, ln)
	defer controller.Close()
	// A length prefix beyond the maximum frame size.
	_, err := controller.Write([]byte{0xff, 0xff, 0xff, 0xff, 0x07})
	require.NoError(t, err)

	select {
	case err := <-h.disconnected:
		assert.ErrorContains(t, err, "protocol desync")
	case <-time.After(_timeout):
		t.Fatal("disconnect not reported")
	}
	assert.NoError(t, tr.OnStop(context.Background()))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
