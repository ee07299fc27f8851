// Package loader keeps a project descriptor open across the life of the worker when asked to preload a project.
package loader

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the PersistentLoader.
var Module = fx.Provide(New)

// PersistentLoader owns the descriptor of the preloaded project.
type PersistentLoader interface {
	// Take returns the preloaded descriptor when it belongs to the project stored in projectDir, with one
	// more usage registered for the caller, who must Release it. forceCleaned reports that the build state
	// was discarded while opening it.
	Take(projectDir string) (d *descriptor.ProjectDescriptor, forceCleaned bool, ok bool)
	// ApplyFSEvent records file changes reported by the controller.
	ApplyFSEvent(changed, deleted []string)
}

// Params are the inputs to New.
type Params struct {
	fx.In

	Args      entity.LaunchArgs
	Lifecycle fx.Lifecycle
	Loader    projectmodel.Loader
	Factory   descriptor.Factory
	FS        fs.WorkerFS
	Logger    *zap.SugaredLogger
}

type persistentLoader struct {
	projectPath string
	loader      projectmodel.Loader
	factory     descriptor.Factory
	fs          fs.WorkerFS
	logger      *zap.SugaredLogger

	mu           sync.Mutex
	descriptor   *descriptor.ProjectDescriptor
	forceCleaned bool
	watcher      *watcher
}

// New creates the PersistentLoader. Nothing is loaded unless the worker was launched with a project to preload.
func New(p Params) PersistentLoader {
	l := &persistentLoader{
		projectPath: p.Args.PreloadProject,
		loader:      p.Loader,
		factory:     p.Factory,
		fs:          p.FS,
		logger:      p.Logger,
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: l.OnStart,
		OnStop:  l.OnStop,
	})
	return l
}

// OnStart opens the preloaded project. Failures are logged; sessions then open the project themselves.
func (l *persistentLoader) OnStart(ctx context.Context) error {
	if l.projectPath == "" {
		return nil
	}

	project, err := l.loader.Load(l.projectPath, entity.GlobalSettings{})
	if err != nil {
		l.logger.Warnw("failed to preload project", "path", l.projectPath, "error", err)
		return nil
	}

	forceCleaned := false
	d, err := l.factory.Open(ctx, project, nil, func(cause error) {
		forceCleaned = true
		l.logger.Infow("preloaded project state discarded, next build rebuilds the project", "project", project.Name, "cause", cause)
	})
	if err != nil {
		l.logger.Warnw("failed to open preloaded project", "project", project.Name, "error", err)
		return nil
	}

	w, err := newWatcher(d, l.fs, l.logger)
	if err != nil {
		l.logger.Warnw("file watching disabled", "project", project.Name, "error", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.descriptor = d
	l.forceCleaned = forceCleaned
	l.watcher = w
	l.logger.Infow("project preloaded", "project", project.Name, "dataRoot", d.DataRoot, "forceCleaned", forceCleaned)
	return nil
}

// OnStop stops watching and gives up the loader's usage of the descriptor.
func (l *persistentLoader) OnStop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Close()
		l.watcher = nil
	}
	if l.descriptor != nil {
		l.descriptor.Release()
		l.descriptor = nil
	}
	return nil
}

func (l *persistentLoader) Take(projectDir string) (*descriptor.ProjectDescriptor, bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.descriptor
	if d == nil || d.Project.DataKey() != filepath.Clean(projectDir) {
		return nil, false, false
	}
	if err := d.IncUsageCounter(); err != nil {
		l.logger.Warnw("preloaded descriptor unusable", "error", err)
		return nil, false, false
	}
	return d, l.forceCleaned, true
}

func (l *persistentLoader) ApplyFSEvent(changed, deleted []string) {
	l.mu.Lock()
	d := l.descriptor
	l.mu.Unlock()

	if d == nil {
		l.logger.Debugw("file event ignored, no preloaded project", "changed", len(changed), "deleted", len(deleted))
		return
	}
	for _, f := range changed {
		d.FSState.MarkDirty(f)
	}
	for _, f := range deleted {
		d.FSState.MarkDeleted(f)
	}
}
