package core

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/uber/incbuild/src/buildworker/entity"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const _defaultOutput = "stderr"

// LoggingConfig represents the logging configuration from the config files
type LoggingConfig struct {
	Level       string   `yaml:"level"`
	Development bool     `yaml:"development"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
}

// LoggerModule provides the logger dependencies
var LoggerModule = fx.Options(
	fx.Provide(NewSugaredLogger),
	fx.Provide(NewLogger),
)

// LoggerParams are the inputs to NewSugaredLogger.
type LoggerParams struct {
	fx.In

	Config config.Provider
	Args   entity.LaunchArgs `optional:"true"`
}

func NewLogger(sugar *zap.SugaredLogger) *zap.Logger {
	return sugar.Desugar()
}

// NewSugaredLogger creates the worker logger from the logging section. Every entry carries the session
// the worker was launched for, since several workers usually write to the same controller log.
// The worker's stdout belongs to the controller, so output defaults to stderr.
func NewSugaredLogger(p LoggerParams) (*zap.SugaredLogger, error) {
	var cfg LoggingConfig
	if err := p.Config.Get("logging").Populate(&cfg); err != nil {
		return nil, fmt.Errorf("loading logging config: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{_defaultOutput}
	}
	sink, _, err := zap.Open(outputPaths...)
	if err != nil {
		return nil, fmt.Errorf("opening log outputs %v: %w", outputPaths, err)
	}

	options := []zap.Option{zap.ErrorOutput(sink)}
	if cfg.Development {
		options = append(options, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if p.Args.SessionID != uuid.Nil {
		options = append(options, zap.Fields(zap.Stringer("workerSession", p.Args.SessionID)))
	}

	core := zapcore.NewCore(newEncoder(cfg), sink, level)
	return zap.New(core, options...).Sugar(), nil
}

func newEncoder(cfg LoggingConfig) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}
