package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/controller/engine"
	"github.com/uber/incbuild/src/buildworker/controller/engine/enginemock"
	"github.com/uber/incbuild/src/buildworker/controller/scope"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/factory"
	"github.com/uber/incbuild/src/buildworker/gateway/controller-client/gatewaymock"
	"github.com/uber/incbuild/src/buildworker/internal/clock"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
	"github.com/uber/incbuild/src/buildworker/internal/workerpool"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate/buildstatemock"
	sessionrepo "github.com/uber/incbuild/src/buildworker/repository/session"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const _project = `
name: sample
modules:
  - name: app
    sourceRoots: [app/src]
    dependencies: [lib]
  - name: lib
    sourceRoots: [lib/src]
`

var (
	_appProduction = entity.Target{Type: entity.TargetTypeProduction, ID: "app"}
	_libProduction = entity.Target{Type: entity.TargetTypeProduction, ID: "lib"}
)

// frame is one message sent to the controller.
type frame struct {
	builder *protocol.BuilderMessage
	failure *protocol.Failure
}

type fixture struct {
	projectDir string
	stateDir   string
	params     Params
	engine     *enginemock.MockEngine
	stats      tally.TestScope
	pool       workerpool.Pool

	mu     sync.Mutex
	frames []frame
	closed int
}

type noPreload struct{}

func (noPreload) Take(string) (*descriptor.ProjectDescriptor, bool, bool) { return nil, false, false }
func (noPreload) ApplyFSEvent(changed, deleted []string)                  {}

type preloaded struct {
	d            *descriptor.ProjectDescriptor
	forceCleaned bool
}

func (p *preloaded) Take(projectDir string) (*descriptor.ProjectDescriptor, bool, bool) {
	if err := p.d.IncUsageCounter(); err != nil {
		return nil, false, false
	}
	return p.d, p.forceCleaned, true
}

func (p *preloaded) ApplyFSEvent(changed, deleted []string) {}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	projectDir := t.TempDir()
	stateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, projectmodel.FileName), []byte(_project), 0o644))

	f := &fixture{
		projectDir: projectDir,
		stateDir:   stateDir,
		engine:     enginemock.NewMockEngine(ctrl),
		stats:      tally.NewTestScope("", nil),
	}

	gateway := gatewaymock.NewMockGateway(ctrl)
	gateway.EXPECT().SendBuilderMessage(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, msg *protocol.BuilderMessage) error {
		f.record(frame{builder: msg})
		return nil
	}).AnyTimes()
	gateway.EXPECT().SendFailure(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, failure *protocol.Failure) error {
		f.record(frame{failure: failure})
		return nil
	}).AnyTimes()
	gateway.EXPECT().Close(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.closed++
		return nil
	}).AnyTimes()

	logger := zap.NewNop().Sugar()
	workerFS := fs.New()
	args := factory.LaunchArgs(stateDir)
	f.pool = workerpool.NewWithSize(2, logger)
	t.Cleanup(func() { require.NoError(t, f.pool.Stop(context.Background())) })

	f.params = Params{
		Args:     args,
		Logger:   logger,
		Stats:    f.stats,
		Clock:    &clock.Fixed{At: time.Unix(1700000000, 0)},
		Projects: projectmodel.NewLoader(projectmodel.Params{FS: workerFS, Logger: logger}),
		Factory: descriptor.NewFactory(descriptor.FactoryParams{
			Opener: buildstate.NewOpenerWithOptions(buildstate.Options{LockTimeout: 100 * time.Millisecond}),
			FS:     workerFS,
			Args:   args,
			Logger: logger,
			Stats:  f.stats,
		}),
		Preloaded:  noPreload{},
		Resolver:   scope.NewResolver(scope.Params{Logger: logger}),
		Engine:     f.engine,
		Gateway:    gateway,
		Pool:       f.pool,
		Repository: sessionrepo.New(f.stats),
	}
	return f
}

func (f *fixture) record(fr frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
}

func (f *fixture) sent() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.frames...)
}

// run starts a session for params and waits until it finished and closed the connection.
func (f *fixture) run(t *testing.T, params entity.BuildParameters) Session {
	s := New(f.params).NewSession(params)
	require.NoError(t, f.params.Repository.Start(s))
	assert.Equal(t, StateCreated, s.State())
	s.Run(context.Background())
	f.pool.Wait()
	assert.Equal(t, StateTerminated, s.State())
	_, active := f.params.Repository.Active()
	assert.False(t, active)
	f.mu.Lock()
	assert.Equal(t, 1, f.closed, "connection closed once")
	f.mu.Unlock()
	return s
}

func (f *fixture) makeApp() entity.BuildParameters {
	return entity.BuildParameters{
		ProjectPath: f.projectDir,
		BuildType:   entity.BuildTypeMake,
		Scopes:      []entity.TargetTypeScope{{TypeID: entity.TargetTypeProduction.ID, TargetIDs: []string{"app"}}},
	}
}

// terminal asserts that exactly one terminal frame was sent, last, and returns it.
func terminal(t *testing.T, frames []frame) frame {
	require.NotEmpty(t, frames)
	count := 0
	for _, fr := range frames {
		if isTerminal(fr) {
			count++
		}
	}
	require.Equal(t, 1, count, "exactly one terminal frame")
	last := frames[len(frames)-1]
	require.True(t, isTerminal(last), "terminal frame is last")
	return last
}

func isTerminal(fr frame) bool {
	if fr.failure != nil {
		return true
	}
	return fr.builder.Event != nil && fr.builder.Event.Type == protocol.EventBuildCompleted
}

func compileTexts(frames []frame) []string {
	var texts []string
	for _, fr := range frames {
		if fr.builder != nil && fr.builder.Compile != nil && fr.builder.Compile.Kind != protocol.CompileProgress {
			texts = append(texts, fr.builder.Compile.Text)
		}
	}
	return texts
}

func counter(t *testing.T, scope tally.TestScope, key string) int64 {
	c, ok := scope.Snapshot().Counters()[key]
	if !ok {
		return 0
	}
	return c.Value()
}

func TestMakeModule(t *testing.T) {
	tests := []struct {
		name   string
		marked int
		want   protocol.BuildStatus
		state  State
	}{
		{name: "files marked up to date", marked: 1, want: protocol.StatusSuccess, state: StateSuccess},
		{name: "nothing marked", marked: 0, want: protocol.StatusUpToDate, state: StateUpToDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var captured *descriptor.ProjectDescriptor
			f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req engine.Request) error {
				captured = req.Descriptor
				assert.True(t, req.Scope.IsAffected(_appProduction))
				assert.False(t, req.Scope.IsAffected(_libProduction))
				assert.False(t, req.Scope.IsBuildForced(_appProduction))
				assert.True(t, req.Incremental)
				assert.False(t, req.ForceCleanCaches)
				assert.Equal(t, []entity.Target{_appProduction}, req.Scope.AffectedTargets(req.Descriptor.Targets))

				req.Sink.ProcessMessage(entity.FilesGeneratedMessage{})
				req.Sink.ProcessMessage(entity.FilesMarkedUpToDateMessage{Target: _appProduction, Count: tt.marked})
				return nil
			})

			f.run(t, f.makeApp())

			frames := f.sent()
			last := terminal(t, frames)
			assert.Equal(t, tt.want, last.builder.Event.Status)
			require.Len(t, frames, 2, "empty file-generated events are not sent")
			assert.Equal(t, "build finished in 0s", frames[0].builder.Compile.Text)
			assert.Equal(t, float32(entity.NoProgress), frames[0].builder.Compile.Done)

			require.NotNil(t, captured)
			assert.True(t, captured.IsReleased(), "descriptor released")
			assert.Equal(t, int64(1), counter(t, f.stats, "session.started+"))
			assert.Equal(t, int64(1), counter(t, f.stats, "session.status+status="+tt.state.String()))
		})
	}
}

func TestMessageMapping(t *testing.T) {
	f := newFixture(t)
	f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req engine.Request) error {
		req.Sink.ProcessMessage(entity.ProgressMessage{Text: "compiling", Done: 0.5})
		req.Sink.ProcessMessage(entity.FilesGeneratedMessage{Files: []entity.GeneratedFile{{OutputRoot: "/out", RelativePath: "A.class"}}})
		req.Sink.ProcessMessage(entity.CompilerMessage{BuilderName: "javac", Kind: entity.KindWarning, Text: "unchecked call", Line: 3, Column: 1})
		req.Sink.ProcessMessage(entity.CompilerMessage{BuilderName: "javac", Kind: entity.KindError, Text: "cannot find symbol", SourcePath: "/p/A.java"})
		req.Sink.ProcessMessage(entity.FilesMarkedUpToDateMessage{Target: _appProduction, Count: 2})
		return nil
	})

	s := f.run(t, f.makeApp())
	assert.Equal(t, StateTerminated, s.State())

	frames := f.sent()
	last := terminal(t, frames)
	assert.Equal(t, protocol.StatusErrors, last.builder.Event.Status)

	require.Len(t, frames, 6)
	assert.Equal(t, float32(0.5), frames[0].builder.Compile.Done)
	assert.Equal(t, protocol.EventFilesGenerated, frames[1].builder.Event.Type)
	assert.Equal(t, "javac: unchecked call", frames[2].builder.Compile.Text)
	assert.Equal(t, protocol.CompileWarning, frames[2].builder.Compile.Kind)
	assert.Equal(t, "javac: cannot find symbol", frames[3].builder.Compile.Text)
	assert.Equal(t, "/p/A.java", frames[3].builder.Compile.SourceFilePath)
}

func TestCancelBeforeCompletion(t *testing.T) {
	f := newFixture(t)
	var s Session
	f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req engine.Request) error {
		s.Cancel()
		s.Cancel()
		assert.True(t, req.Canceled.IsCanceled())
		req.Sink.ProcessMessage(factory.CompilerError("javac", "broken"))
		req.Sink.ProcessMessage(entity.FilesMarkedUpToDateMessage{Target: _appProduction, Count: 1})
		return nil
	})

	s = New(f.params).NewSession(f.makeApp())
	require.NoError(t, f.params.Repository.Start(s))
	s.Run(context.Background())
	f.pool.Wait()

	last := terminal(t, f.sent())
	assert.Equal(t, protocol.StatusCanceled, last.builder.Event.Status)
	assert.True(t, s.IsCanceled())
}

func TestTerminalFrameOnFailure(t *testing.T) {
	t.Run("engine panics", func(t *testing.T) {
		f := newFixture(t)
		var captured *descriptor.ProjectDescriptor
		f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req engine.Request) error {
			captured = req.Descriptor
			panic(errors.New("engine exploded"))
		})

		s := f.run(t, f.makeApp())
		assert.Equal(t, StateTerminated, s.State())

		last := terminal(t, f.sent())
		require.NotNil(t, last.failure)
		assert.Equal(t, "*errors.errorString: engine exploded", last.failure.Description)
		assert.Contains(t, last.failure.Stacktrace, "goroutine")
		assert.True(t, captured.IsReleased())
		assert.Equal(t, int64(1), counter(t, f.stats, "session.status+status=INTERNAL_ERROR"))
	})

	t.Run("engine fails", func(t *testing.T) {
		f := newFixture(t)
		f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).Return(&os.PathError{Op: "open", Path: "/out", Err: os.ErrPermission})

		f.run(t, f.makeApp())

		last := terminal(t, f.sent())
		require.NotNil(t, last.failure)
		assert.Equal(t, "*fs.PathError: open /out: permission denied", last.failure.Description)
		assert.Contains(t, last.failure.Stacktrace, "building: open /out")
	})

	t.Run("project model cannot be loaded", func(t *testing.T) {
		f := newFixture(t)
		params := f.makeApp()
		params.ProjectPath = filepath.Join(f.projectDir, "missing")

		f.run(t, params)

		last := terminal(t, f.sent())
		require.NotNil(t, last.failure)
		assert.Contains(t, last.failure.Stacktrace, "loading project model")
	})

	t.Run("late messages are dropped", func(t *testing.T) {
		f := newFixture(t)
		var sink entity.MessageSink
		f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req engine.Request) error {
			sink = req.Sink
			return nil
		})

		f.run(t, f.makeApp())
		sink.ProcessMessage(entity.CompilerMessage{Kind: entity.KindError, Text: "too late"})

		last := terminal(t, f.sent())
		assert.Equal(t, protocol.StatusUpToDate, last.builder.Event.Status)
	})
}

func TestStoreCorruptionRecovery(t *testing.T) {
	t.Run("forces a project rebuild", func(t *testing.T) {
		f := newFixture(t)
		project, err := f.params.Projects.Load(f.projectDir, entity.GlobalSettings{})
		require.NoError(t, err)
		dataRoot := buildstate.DataRoot(f.stateDir, project.Name, project.DataKey())
		require.NoError(t, os.MkdirAll(dataRoot, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dataRoot, buildstate.TimestampsFileName), []byte(strings.Repeat("garbage!", 1024)), 0o600))

		f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req engine.Request) error {
			assert.True(t, req.Scope.IsRebuildAll())
			assert.True(t, req.Scope.IsAffected(_libProduction))
			assert.False(t, req.Incremental)
			assert.True(t, req.ForceCleanCaches)
			req.Sink.ProcessMessage(entity.FilesMarkedUpToDateMessage{Target: _appProduction, Count: 1})
			return nil
		})

		f.run(t, f.makeApp())

		frames := f.sent()
		last := terminal(t, frames)
		assert.Equal(t, protocol.StatusSuccess, last.builder.Event.Status)
		texts := compileTexts(frames)
		require.Len(t, texts, 1)
		assert.True(t, strings.HasPrefix(texts[0], "project rebuild forced: "), texts[0])
		assert.Equal(t, protocol.CompileInfo, frames[0].builder.Compile.Kind)
		assert.Equal(t, int64(1), counter(t, f.stats, "storage.recovered+cause=store"))
	})

	t.Run("second failure is fatal", func(t *testing.T) {
		f := newFixture(t)
		ctrl := gomock.NewController(t)
		opener := buildstatemock.NewMockOpener(ctrl)
		opener.EXPECT().Open(gomock.Any()).Return(nil, errors.New("disk on fire")).Times(2)
		f.params.Factory = descriptor.NewFactory(descriptor.FactoryParams{
			Opener: opener,
			FS:     fs.New(),
			Args:   f.params.Args,
			Logger: zap.NewNop().Sugar(),
			Stats:  f.stats,
		})

		f.run(t, f.makeApp())

		last := terminal(t, f.sent())
		require.NotNil(t, last.failure)
		assert.Contains(t, last.failure.Stacktrace, "disk on fire")
	})
}

func TestPreloadedDescriptor(t *testing.T) {
	tests := []struct {
		name         string
		forceCleaned bool
		params       func(f *fixture) entity.BuildParameters
		wantRebuild  bool
		wantEncoding string
	}{
		{
			name:         "force cleaned whole project request escalates",
			forceCleaned: true,
			params: func(f *fixture) entity.BuildParameters {
				return entity.BuildParameters{
					ProjectPath: f.projectDir,
					BuildType:   entity.BuildTypeMake,
					Scopes:      []entity.TargetTypeScope{{TypeID: entity.TargetTypeProduction.ID, AllTargets: true}},
				}
			},
			wantRebuild: true,
		},
		{
			name:         "force cleaned explicit request stays incremental",
			forceCleaned: true,
			params:       func(f *fixture) entity.BuildParameters { return f.makeApp() },
		},
		{
			name:   "clean state",
			params: func(f *fixture) entity.BuildParameters { return f.makeApp() },
		},
		{
			name: "request globals reach the shared descriptor",
			params: func(f *fixture) entity.BuildParameters {
				params := f.makeApp()
				params.Globals = entity.GlobalSettings{
					DefaultEncoding:      "windows-1251",
					IgnoredFilesPatterns: "*.tmp",
				}
				return params
			},
			wantEncoding: "windows-1251",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			project, err := f.params.Projects.Load(f.projectDir, entity.GlobalSettings{})
			require.NoError(t, err)
			d, err := f.params.Factory.Open(context.Background(), project, nil, nil)
			require.NoError(t, err)
			f.params.Preloaded = &preloaded{d: d, forceCleaned: tt.forceCleaned}

			f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req engine.Request) error {
				assert.Equal(t, d.DataRoot, req.Descriptor.DataRoot)
				assert.Same(t, d.FSState, req.Descriptor.FSState)
				assert.Equal(t, tt.wantRebuild, req.Scope.IsRebuildAll())
				assert.Equal(t, tt.wantEncoding, req.Descriptor.Project.Encoding)
				assert.Equal(t, tt.wantEncoding != "", req.Descriptor.Ignored.IsIgnored(filepath.Join(f.projectDir, "app/src/A.tmp")))
				return nil
			})

			f.run(t, tt.params(f))
			assert.False(t, d.IsReleased(), "the loader still holds the descriptor")
			d.Release()
			assert.True(t, d.IsReleased())

			texts := compileTexts(f.sent())
			if tt.wantRebuild {
				assert.Equal(t, []string{"project rebuild forced: " + _preloadCleanedReason}, texts)
			} else {
				assert.Empty(t, texts)
			}
		})
	}
}

func TestRunOnce(t *testing.T) {
	f := newFixture(t)
	f.engine.EXPECT().Build(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	s := f.run(t, f.makeApp())
	s.Run(context.Background())
	assert.Len(t, f.sent(), 2)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "INTERNAL_ERROR", StateInternalError.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
