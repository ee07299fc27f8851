// Package workerpool runs background tasks of the worker on a bounded set of goroutines.
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const _configKey = "workerPool"

// Module provides the Pool and drains it on stop.
var Module = fx.Options(
	fx.Provide(New),
)

// Config is the workerPool section of the configuration.
type Config struct {
	Size int `yaml:"size"`
}

// Pool executes tasks asynchronously.
type Pool interface {
	// Submit schedules task. It blocks while the pool is at capacity and reports false once the pool is stopped.
	Submit(name string, task func(ctx context.Context)) bool
	// Wait blocks until every submitted task has returned.
	Wait()
	// Stop rejects new tasks, cancels running ones and waits for them until ctx is done.
	Stop(ctx context.Context) error
}

// Params are the inputs to New.
type Params struct {
	fx.In

	Config    config.Provider
	Logger    *zap.SugaredLogger
	Lifecycle fx.Lifecycle
}

type pool struct {
	logger *zap.SugaredLogger
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// New creates a pool sized from configuration. Stopping the application cancels the context
// handed to running tasks and waits for them to return.
func New(p Params) (Pool, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("reading %s config: %w", _configKey, err)
	}

	wp := NewWithSize(cfg.Size, p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return wp.Stop(ctx)
		},
	})
	return wp, nil
}

// NewWithSize creates a pool running at most size tasks at once. A size below one means unbounded.
func NewWithSize(size int, logger *zap.SugaredLogger) Pool {
	ctx, cancel := context.WithCancel(context.Background())
	g := &errgroup.Group{}
	if size > 0 {
		g.SetLimit(size)
	}
	return &pool{
		logger: logger,
		group:  g,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *pool) Submit(name string, task func(ctx context.Context)) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.logger.Warnw("pool stopped, task dropped", "task", name)
		return false
	}

	p.group.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Errorw("task panicked", "task", name, "panic", r)
			}
		}()
		task(p.ctx)
		return nil
	})
	return true
}

func (p *pool) Wait() {
	p.group.Wait()
}

func (p *pool) Stop(ctx context.Context) error {
	// Cancel before locking: a Submit blocked on a full pool holds the read lock.
	p.cancel()
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for worker pool tasks: %w", ctx.Err())
	}
}
