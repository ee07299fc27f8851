package descriptor

import (
	"context"
	"fmt"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/errors"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"github.com/uber/incbuild/src/buildworker/internal/recovery"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the descriptor Factory.
var Module = fx.Provide(NewFactory)

// Factory opens project descriptors.
type Factory interface {
	// Open opens the build state of project. When the stores cannot be opened the project's state
	// directory is deleted and the stores created afresh, once; onRecovered is then called with the first
	// failure. fsState may carry changes observed before the open, or be nil.
	Open(ctx context.Context, project *projectmodel.Project, fsState *FSState, onRecovered recovery.OnRecovered) (*ProjectDescriptor, error)
}

// FactoryParams are the inputs to NewFactory.
type FactoryParams struct {
	fx.In

	Opener buildstate.Opener
	FS     fs.WorkerFS
	Args   entity.LaunchArgs
	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type factory struct {
	opener   buildstate.Opener
	fs       fs.WorkerFS
	stateDir string
	logger   *zap.SugaredLogger
	stats    tally.Scope
}

// NewFactory creates a Factory storing project state under the launch state directory.
func NewFactory(p FactoryParams) Factory {
	return &factory{
		opener:   p.Opener,
		fs:       p.FS,
		stateDir: p.Args.StateDir,
		logger:   p.Logger,
		stats:    p.Stats,
	}
}

func (f *factory) Open(ctx context.Context, project *projectmodel.Project, fsState *FSState, onRecovered recovery.OnRecovered) (*ProjectDescriptor, error) {
	dataRoot := buildstate.DataRoot(f.stateDir, project.Name, project.DataKey())

	open := func(ctx context.Context) (*ProjectDescriptor, error) {
		stores, err := f.opener.Open(dataRoot)
		if err != nil {
			return nil, err
		}
		return New(Params{
			Project:  project,
			DataRoot: dataRoot,
			Stores:   stores,
			FSState:  fsState,
			Logger:   f.logger,
		}), nil
	}
	del := func(ctx context.Context) error {
		return f.fs.RemoveAll(dataRoot)
	}
	recovered := func(cause error) {
		kind := "other"
		if errors.IsStorageFailure(cause) {
			kind = "store"
		}
		f.logger.Warnw("build state discarded", "dataRoot", dataRoot, "cause", cause, "kind", kind)
		f.stats.Tagged(map[string]string{"cause": kind}).Counter("storage.recovered").Inc(1)
		if onRecovered != nil {
			onRecovered(cause)
		}
	}

	d, err := recovery.Open(ctx, open, del, recovered)
	if err != nil {
		return nil, fmt.Errorf("opening build state of %s: %w", project.Name, err)
	}
	return d, nil
}
