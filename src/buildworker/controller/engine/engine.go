// Package engine builds the targets of a compile scope.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/controller/scope"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/executor"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const _configKey = "engine"

// Module provides the default Engine.
var Module = fx.Provide(New)

// Request is one invocation of the engine.
type Request struct {
	Scope scope.CompileScope
	// Incremental is false when every target is rebuilt from scratch.
	Incremental bool
	// ForceCleanCaches drops the recorded state of every target in scope before building it.
	ForceCleanCaches bool
	Sink             entity.MessageSink
	Canceled         entity.CanceledStatus
	BuilderParams    map[string]string
	Descriptor       *descriptor.ProjectDescriptor
}

// Engine performs a build. Compilation problems are reported through the sink; the returned error is
// reserved for failures of the engine itself. A canceled build returns normally.
type Engine interface {
	Build(ctx context.Context, req Request) error
}

// Config is the engine section of the configuration.
type Config struct {
	Parallelism           int `yaml:"parallelism"`
	CommandTimeoutMinutes int `yaml:"commandTimeoutMinutes"`
}

// Params are the inputs to New.
type Params struct {
	fx.In

	Config   config.Provider
	Logger   *zap.SugaredLogger
	Executor executor.Executor
	FS       fs.WorkerFS
	BuildLog io.Writer `name:"buildLog"`
}

type engine struct {
	logger         *zap.SugaredLogger
	executor       executor.Executor
	fs             fs.WorkerFS
	buildLog       io.Writer
	parallelism    int
	commandTimeout time.Duration
}

// New creates the default Engine: resources are copied and sources handed to each module's builder command.
func New(p Params) (Engine, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("reading %s config: %w", _configKey, err)
	}
	return &engine{
		logger:         p.Logger,
		executor:       p.Executor,
		fs:             p.FS,
		buildLog:       p.BuildLog,
		parallelism:    cfg.Parallelism,
		commandTimeout: time.Duration(cfg.CommandTimeoutMinutes) * time.Minute,
	}, nil
}

func (e *engine) Build(ctx context.Context, req Request) error {
	d := req.Descriptor
	targets := req.Scope.AffectedTargets(d.Targets)
	if len(targets) == 0 {
		e.logger.Infow("nothing in scope")
		return nil
	}

	levels := dependencyLevels(targets, d.Targets.Dependencies)
	e.logger.Infow("build started", "targets", len(targets), "levels", len(levels), "incremental", req.Incremental)

	done := 0
	for _, level := range levels {
		if req.Canceled.IsCanceled() {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		if e.parallelism > 0 {
			g.SetLimit(e.parallelism)
		}
		for _, target := range level {
			target := target
			g.Go(func() error {
				return e.buildTarget(gctx, req, target)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		done += len(level)
		req.Sink.ProcessMessage(entity.ProgressMessage{
			Text: fmt.Sprintf("built %d of %d targets", done, len(targets)),
			Done: float32(done) / float32(len(targets)),
		})
	}
	return nil
}

// dependencyLevels groups targets so that every target comes after the targets it depends on.
// Dependencies outside of targets are ignored; cycles are broken by declaration order.
func dependencyLevels(targets []entity.Target, deps func(entity.Target) []entity.Target) [][]entity.Target {
	inScope := make(map[entity.Target]bool, len(targets))
	for _, t := range targets {
		inScope[t] = true
	}

	placed := make(map[entity.Target]bool, len(targets))
	var levels [][]entity.Target
	for len(placed) < len(targets) {
		var level []entity.Target
		for _, t := range targets {
			if placed[t] {
				continue
			}
			ready := true
			for _, dep := range deps(t) {
				if inScope[dep] && !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, t)
			}
		}
		if len(level) == 0 {
			// A cycle: take the first remaining target.
			for _, t := range targets {
				if !placed[t] {
					level = append(level, t)
					break
				}
			}
		}
		for _, t := range level {
			placed[t] = true
		}
		levels = append(levels, level)
	}
	return levels
}
