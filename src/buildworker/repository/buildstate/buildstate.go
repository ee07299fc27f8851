package buildstate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/uber/incbuild/src/buildworker/internal/errors"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

const (
	_configKey   = "storage"
	_projectsDir = "projects"
)

// Module provides the Opener.
var Module = fx.Provide(NewOpener)

// Stores are the open stores of one project.
type Stores struct {
	Timestamps   TimestampStore
	Dependencies DependencyStore
}

// Opener opens the stores of a project data directory.
type Opener interface {
	// Open opens both stores in dataRoot. A store that fails to open, or that was written by another format
	// version, fails the whole call after closing whatever was opened.
	Open(dataRoot string) (*Stores, error)
}

// Config is the storage section of the configuration.
type Config struct {
	LockTimeoutMs int `yaml:"lockTimeoutMs"`
}

type opener struct {
	opts Options
}

// NewOpener creates an Opener configured from the storage section.
func NewOpener(provider config.Provider) (Opener, error) {
	var cfg Config
	if err := provider.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("reading %s config: %w", _configKey, err)
	}
	return NewOpenerWithOptions(Options{LockTimeout: time.Duration(cfg.LockTimeoutMs) * time.Millisecond}), nil
}

// NewOpenerWithOptions creates an Opener with explicit options.
func NewOpenerWithOptions(opts Options) Opener {
	return &opener{opts: opts}
}

func (o *opener) Open(dataRoot string) (*Stores, error) {
	timestamps, err := openTimestamps(dataRoot, o.opts)
	if err != nil {
		return nil, &errors.StorageOpenError{Store: _timestampsStore, Path: dataRoot, Cause: err}
	}
	if timestamps.VersionDiffers() {
		return nil, multierr.Append(
			&errors.VersionMismatchError{Store: _timestampsStore, Expected: TimestampsVersion, Found: timestamps.db.found},
			timestamps.Close(),
		)
	}

	dependencies, err := openDependencies(dataRoot, o.opts)
	if err != nil {
		return nil, multierr.Append(
			&errors.StorageOpenError{Store: _dependenciesStore, Path: dataRoot, Cause: err},
			timestamps.Close(),
		)
	}
	if dependencies.VersionDiffers() {
		return nil, multierr.Combine(
			&errors.VersionMismatchError{Store: _dependenciesStore, Expected: DependenciesVersion, Found: dependencies.db.found},
			dependencies.Close(),
			timestamps.Close(),
		)
	}

	return &Stores{Timestamps: timestamps, Dependencies: dependencies}, nil
}

// DataRoot returns the directory holding the build state of the project stored at projectKey.
func DataRoot(stateDir, projectName, projectKey string) string {
	sum := sha256.Sum256([]byte(projectKey))
	return filepath.Join(stateDir, _projectsDir, fmt.Sprintf("%s_%s", projectName, hex.EncodeToString(sum[:4])))
}
