package app

import (
	"context"
	"fmt"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/incbuild/src/buildworker/gateway"
	"github.com/uber/incbuild/src/buildworker/handler"
	"github.com/uber/incbuild/src/buildworker/internal/clock"
	"github.com/uber/incbuild/src/buildworker/internal/core"
	"github.com/uber/incbuild/src/buildworker/internal/executor"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"github.com/uber/incbuild/src/buildworker/internal/logfilewriter"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"github.com/uber/incbuild/src/buildworker/internal/transport"
	"github.com/uber/incbuild/src/buildworker/internal/workerpool"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate"
	"go.uber.org/config"
	"go.uber.org/fx"
)

const _serviceName = "buildworker"

// Module defines the build worker application module. The launch arguments are supplied by the caller.
var Module = fx.Options(
	gateway.Module, // outbounds
	handler.Module, // inbounds
	transport.Module,
	fs.Module,
	executor.Module,
	workerpool.Module,
	logfilewriter.Module,
	projectmodel.LoaderModule,
	buildstate.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(clock.New),
	fx.Provide(newStatsScope),
	fx.Decorate(decorateConfigProvider),
)

// StatsConfig is the stats section of the configuration.
type StatsConfig struct {
	ReportIntervalSeconds int `yaml:"reportIntervalSeconds"`
}

func newStatsScope(lc fx.Lifecycle, cfg config.Provider) (tally.Scope, error) {
	var stats StatsConfig
	if err := cfg.Get("stats").Populate(&stats); err != nil {
		return nil, fmt.Errorf("loading stats config: %w", err)
	}
	interval := time.Duration(stats.ReportIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 1 * time.Second
	}

	rs, closer := tally.NewRootScope(tally.ScopeOptions{
		Tags: map[string]string{
			"service": _serviceName,
		},
	}, interval)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return closer.Close()
		},
	})

	return rs, nil
}
