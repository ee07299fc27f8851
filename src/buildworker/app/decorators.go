package app

import (
	"fmt"
	"path"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DecorateConfigParams is the set of dependencies required to decorate the config.Provider.
type DecorateConfigParams struct {
	fx.In

	Cfg  config.Provider
	FS   fs.WorkerFS
	Args entity.LaunchArgs
}

// decorateConfigProvider runs the startup steps that depend on configuration before any other component reads it.
func decorateConfigProvider(p DecorateConfigParams) (config.Provider, error) {
	combined, err := ensureLogFolder(p.Cfg, p.FS)
	if err != nil {
		return nil, fmt.Errorf("ensuring log folder: %w", err)
	}

	if err := p.FS.MkdirAll(p.Args.StateDir); err != nil {
		return nil, fmt.Errorf("creating state directory %q: %w", p.Args.StateDir, err)
	}

	return combined, nil
}

// Ensure that all configured logging output directories exist or create if necessary.
func ensureLogFolder(cfg config.Provider, fs fs.WorkerFS) (config.Provider, error) {
	var c zap.Config
	if err := cfg.Get("logging").Populate(&c); err != nil {
		return nil, fmt.Errorf("loading logging config: %w", err)
	}

	for _, outputPath := range c.OutputPaths {
		if outputPath == "stderr" || outputPath == "stdout" {
			continue
		}
		if err := fs.MkdirAll(path.Dir(outputPath)); err != nil {
			return nil, fmt.Errorf("creating logging directory: %w", err)
		}
	}

	return cfg, nil
}
