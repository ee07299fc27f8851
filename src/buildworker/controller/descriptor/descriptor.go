// Package descriptor holds the open build state of a project shared by the components of one build.
package descriptor

import (
	"sync"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/errors"
	"github.com/uber/incbuild/src/buildworker/internal/index"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate"
	"go.uber.org/zap"
)

// ErrReleased reports the use of a descriptor whose stores were closed.
var ErrReleased = errors.New("project descriptor already released")

// ProjectDescriptor aggregates a loaded project, its on-disk stores and the indices derived from it.
// It starts with one holder; every holder calls Release exactly once and the stores are closed by the last one.
type ProjectDescriptor struct {
	Project      *projectmodel.Project
	DataRoot     string
	FSState      *FSState
	Timestamps   buildstate.TimestampStore
	Dependencies buildstate.DependencyStore
	Targets      *index.TargetIndex
	Roots        *index.RootIndex
	Excludes     *index.ExcludeIndex
	Ignored      *index.IgnoredFiles
	// SDKs are the resolved SDKs referenced by the project's modules.
	SDKs      []entity.SdkLibrary
	Encodings *EncodingConfiguration

	logger *zap.SugaredLogger
	// owner is set on views and holds the usage count shared with them.
	owner      *ProjectDescriptor
	mu         sync.Mutex
	usageCount int
}

// Params are the inputs to New.
type Params struct {
	Project  *projectmodel.Project
	DataRoot string
	Stores   *buildstate.Stores
	// FSState carries changes observed before the descriptor was opened. A fresh state is used when nil.
	FSState *FSState
	Logger  *zap.SugaredLogger
}

// New builds a descriptor owning p.Stores with a usage count of one.
func New(p Params) *ProjectDescriptor {
	fsState := p.FSState
	if fsState == nil {
		fsState = NewFSState()
	}

	d := &ProjectDescriptor{
		DataRoot:     p.DataRoot,
		FSState:      fsState,
		Timestamps:   p.Stores.Timestamps,
		Dependencies: p.Stores.Dependencies,
		logger:       p.Logger,
		usageCount:   1,
	}
	d.index(p.Project)
	return d
}

// WithProject returns a view of d over project, a model of the same project resolved with other global
// settings. The view shares the stores, the FSState and the usage count of d, so releasing it releases d.
func (d *ProjectDescriptor) WithProject(project *projectmodel.Project) *ProjectDescriptor {
	view := &ProjectDescriptor{
		DataRoot:     d.DataRoot,
		FSState:      d.FSState,
		Timestamps:   d.Timestamps,
		Dependencies: d.Dependencies,
		logger:       d.logger,
		owner:        d.counter(),
	}
	view.index(project)
	return view
}

// index derives the indices and settings of project.
func (d *ProjectDescriptor) index(project *projectmodel.Project) {
	targets := index.NewTargetIndex(project)
	roots := index.NewRootIndex(targets)
	ignored, err := index.NewIgnoredFiles(project.IgnoredFiles)
	if err != nil {
		d.logger.Warnw("invalid ignored file patterns skipped", "patterns", project.IgnoredFiles, "error", err)
	}

	d.Project = project
	d.Targets = targets
	d.Roots = roots
	d.Excludes = index.NewExcludeIndex(project)
	d.Ignored = ignored
	d.SDKs = referencedSDKs(project, d.logger)
	d.Encodings = newEncodingConfiguration(project.Encodings, project.Encoding, roots)
}

func (d *ProjectDescriptor) counter() *ProjectDescriptor {
	if d.owner != nil {
		return d.owner
	}
	return d
}

// IncUsageCounter registers an additional holder. It fails once the stores were closed.
func (d *ProjectDescriptor) IncUsageCounter() error {
	d = d.counter()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.usageCount <= 0 {
		return ErrReleased
	}
	d.usageCount++
	return nil
}

// Release drops one holder. The last release closes the timestamp store, then the dependency store.
// Close failures are logged only, so that they never hide the outcome of a build.
func (d *ProjectDescriptor) Release() {
	d = d.counter()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.usageCount--

	if d.usageCount == 0 {
		if err := d.Timestamps.Close(); err != nil {
			d.logger.Errorw("failed to close timestamp store", "dataRoot", d.DataRoot, "error", err)
		}
		if err := d.Dependencies.Close(); err != nil {
			d.logger.Errorw("failed to close dependency store", "dataRoot", d.DataRoot, "error", err)
		}
	} else if d.usageCount < 0 {
		d.logger.Warnf("Release() called %v extra times on project descriptor %s", d.usageCount*-1, d.DataRoot)
	}
}

// IsReleased reports whether the stores were closed.
func (d *ProjectDescriptor) IsReleased() bool {
	d = d.counter()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usageCount <= 0
}

// referencedSDKs returns the SDKs named by modules, in first reference order, skipping unresolved ones.
func referencedSDKs(project *projectmodel.Project, logger *zap.SugaredLogger) []entity.SdkLibrary {
	known := make(map[string]entity.SdkLibrary, len(project.SDKs))
	for _, sdk := range project.SDKs {
		known[sdk.Name] = sdk
	}

	var sdks []entity.SdkLibrary
	seen := make(map[string]bool)
	for _, m := range project.Modules {
		if m.SDK == "" || seen[m.SDK] {
			continue
		}
		seen[m.SDK] = true

		sdk, ok := known[m.SDK]
		if !ok {
			logger.Warnw("module references an unknown SDK", "module", m.Name, "sdk", m.SDK)
			continue
		}
		if !sdk.IsResolved() {
			logger.Infow("SDK without version or home path skipped", "sdk", sdk.Name)
			continue
		}
		sdks = append(sdks, sdk)
	}
	return sdks
}
