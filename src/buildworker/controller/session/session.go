// Package session runs the single build requested from this worker.
package session

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/controller/engine"
	"github.com/uber/incbuild/src/buildworker/controller/loader"
	"github.com/uber/incbuild/src/buildworker/controller/scope"
	"github.com/uber/incbuild/src/buildworker/entity"
	controllerclient "github.com/uber/incbuild/src/buildworker/gateway/controller-client"
	"github.com/uber/incbuild/src/buildworker/internal/clock"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"github.com/uber/incbuild/src/buildworker/internal/workerpool"
	"github.com/uber/incbuild/src/buildworker/mapper"
	sessionrepo "github.com/uber/incbuild/src/buildworker/repository/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_rebuildForcedPrefix  = "project rebuild forced: "
	_preloadCleanedReason = "build state was discarded when the project was preloaded"
)

// Module provides the session Controller.
var Module = fx.Provide(New)

// State is the lifecycle position of a session.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateSuccess
	StateErrors
	StateCanceled
	StateUpToDate
	StateInternalError
	StateTerminated
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateSuccess:
		return "SUCCESS"
	case StateErrors:
		return "ERRORS"
	case StateCanceled:
		return "CANCELED"
	case StateUpToDate:
		return "UP_TO_DATE"
	case StateInternalError:
		return "INTERNAL_ERROR"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

func stateOf(status entity.BuildStatus) State {
	switch status {
	case entity.StatusCanceled:
		return StateCanceled
	case entity.StatusErrors:
		return StateErrors
	case entity.StatusUpToDate:
		return StateUpToDate
	default:
		return StateSuccess
	}
}

// Session is one build request and its response stream.
type Session interface {
	entity.BuildSession

	// Run executes the build and sends exactly one terminal frame, then schedules the connection close.
	Run(ctx context.Context)
	State() State
}

// Controller creates sessions.
type Controller interface {
	NewSession(params entity.BuildParameters) Session
}

// Params are the inputs to New.
type Params struct {
	fx.In

	Args       entity.LaunchArgs
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
	Clock      clock.Clock
	Projects   projectmodel.Loader
	Factory    descriptor.Factory
	Preloaded  loader.PersistentLoader
	Resolver   scope.Resolver
	Engine     engine.Engine
	Gateway    controllerclient.Gateway
	Pool       workerpool.Pool
	Repository sessionrepo.Repository
}

type controller struct {
	p Params
}

// New creates the session Controller.
func New(p Params) Controller {
	return &controller{p: p}
}

func (c *controller) NewSession(params entity.BuildParameters) Session {
	return &session{
		deps:   c.p,
		id:     c.p.Args.SessionID,
		params: params,
		logger: c.p.Logger.With("sessionId", c.p.Args.SessionID.String()),
	}
}

type session struct {
	deps   Params
	id     uuid.UUID
	params entity.BuildParameters
	logger *zap.SugaredLogger

	canceled atomic.Bool
	state    atomic.Int32
}

func (s *session) ID() uuid.UUID { return s.id }

func (s *session) Cancel() {
	if s.canceled.CompareAndSwap(false, true) {
		s.logger.Infow("build cancel requested")
	}
}

func (s *session) IsCanceled() bool { return s.canceled.Load() }

func (s *session) State() State { return State(s.state.Load()) }

func (s *session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *session) Run(ctx context.Context) {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		s.logger.Warnw("session run more than once", "state", s.State().String())
		return
	}
	start := s.deps.Clock.Now()
	s.deps.Stats.Counter("session.started").Inc(1)
	s.logger.Infow("build started", "buildType", s.params.BuildType.String(), "project", s.params.ProjectPath)

	sink := newMessageSink(ctx, s.deps.Gateway, s.logger, s.Cancel)
	status, stack, err := s.execute(ctx, sink)

	if err == nil {
		sink.send(mapper.ProgressToProtocol(entity.ProgressMessage{
			Text: fmt.Sprintf("build finished in %s", s.deps.Clock.Since(start).Round(time.Millisecond)),
			Done: entity.NoProgress,
		}))
	}
	// Late messages from engine goroutines must not follow the terminal frame.
	sink.close()

	if err != nil {
		s.setState(StateInternalError)
		s.logger.Errorw("build failed", "error", err)
		s.deps.Stats.Tagged(map[string]string{"status": StateInternalError.String()}).Counter("session.status").Inc(1)
		if sendErr := s.deps.Gateway.SendFailure(ctx, mapper.ErrorToFailure(err, stack)); sendErr != nil {
			s.logger.Warnw("failed to send failure", "error", sendErr)
		}
	} else {
		s.setState(stateOf(status))
		s.logger.Infow("build completed", "status", status.String())
		s.deps.Stats.Tagged(map[string]string{"status": status.String()}).Counter("session.status").Inc(1)
		if sendErr := s.deps.Gateway.SendBuilderMessage(ctx, mapper.BuildCompletedToProtocol(status)); sendErr != nil {
			s.logger.Warnw("failed to send build completion", "error", sendErr)
		}
	}
	s.deps.Stats.Timer("session.duration").Record(s.deps.Clock.Since(start))

	s.deps.Repository.Finish(s)
	s.setState(StateTerminated)

	closeConn := func(ctx context.Context) {
		if err := s.deps.Gateway.Close(ctx); err != nil {
			s.logger.Warnw("failed to close controller connection", "error", err)
		}
	}
	if !s.deps.Pool.Submit("close controller connection", closeConn) {
		closeConn(ctx)
	}
}

// execute runs steps up to the engine. A panic is reported as an error along with the stack it was raised on.
func (s *session) execute(ctx context.Context, sink *messageSink) (status entity.BuildStatus, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack = string(debug.Stack())
			err = &PanicError{Value: r}
		}
	}()

	status, err = s.build(ctx, sink)
	return status, "", err
}

func (s *session) build(ctx context.Context, sink *messageSink) (entity.BuildStatus, error) {
	project, err := s.deps.Projects.Load(s.params.ProjectPath, s.params.Globals)
	if err != nil {
		return 0, fmt.Errorf("loading project model: %w", err)
	}

	d, rebuildReason, err := s.openDescriptor(ctx, project)
	if err != nil {
		return 0, err
	}
	defer d.Release()

	params := s.params
	forceCleanCaches := params.BuildType == entity.BuildTypeClean
	if rebuildReason != "" {
		params.BuildType = entity.BuildTypeProjectRebuild
		forceCleanCaches = true
		sink.send(mapper.InfoToProtocol(_rebuildForcedPrefix + rebuildReason))
	}

	compileScope, err := s.deps.Resolver.Resolve(ctx, params, d)
	if err != nil {
		return 0, fmt.Errorf("resolving build scope: %w", err)
	}

	if err := s.deps.Engine.Build(ctx, engine.Request{
		Scope:            compileScope,
		Incremental:      !compileScope.IsRebuildAll(),
		ForceCleanCaches: forceCleanCaches,
		Sink:             sink,
		Canceled:         s,
		BuilderParams:    params.BuilderParams,
		Descriptor:       d,
	}); err != nil {
		return 0, fmt.Errorf("building: %w", err)
	}

	return sink.status(s.IsCanceled()), nil
}

// openDescriptor returns the descriptor of project and, when the build must start from scratch, the reason.
// A preloaded descriptor is shared through a view over project, which carries the request's global settings;
// otherwise the build state is opened with one recovery attempt.
func (s *session) openDescriptor(ctx context.Context, project *projectmodel.Project) (*descriptor.ProjectDescriptor, string, error) {
	if d, forceCleaned, ok := s.deps.Preloaded.Take(project.DataKey()); ok {
		s.logger.Infow("using preloaded project", "project", project.Name, "forceCleaned", forceCleaned)
		view := d.WithProject(project)
		if forceCleaned && s.params.IsWholeProject() {
			return view, _preloadCleanedReason, nil
		}
		return view, "", nil
	}

	var reason string
	d, err := s.deps.Factory.Open(ctx, project, nil, func(cause error) {
		reason = cause.Error()
	})
	if err != nil {
		return nil, "", err
	}
	return d, reason, nil
}
