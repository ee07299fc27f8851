package logfilewriter

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	_logsDir = "logs"
	// BuildLogName is the name tag of the writer receiving builder command output.
	BuildLogName = "build"
)

// Module provides the build log writer, tagged `name:"buildLog"`.
var Module = fx.Provide(
	fx.Annotate(
		func(p Params) (io.Writer, error) { return SetupOutputWriter(p, BuildLogName) },
		fx.ResultTags(`name:"buildLog"`),
	),
)

// Params define the dependencies for SetupOutputWriter.
type Params struct {
	fx.In

	FS        fs.WorkerFS
	Lifecycle fx.Lifecycle
	Args      entity.LaunchArgs
}

// SetupOutputWriter creates a writer for human readable output, stored in <stateDir>/logs/<name>-<session>.log.
// The file is kept after shutdown so that the output of a failed build can be inspected.
func SetupOutputWriter(p Params, name string) (io.Writer, error) {
	logsDirPath := filepath.Join(p.Args.StateDir, _logsDir)
	if err := p.FS.MkdirAll(logsDirPath); err != nil {
		return nil, err
	}

	logFile, err := p.FS.Create(filepath.Join(logsDirPath, fmt.Sprintf("%s-%s.log", name, p.Args.SessionID)))
	if err != nil {
		return nil, err
	}

	// Write via a logger for formatting, timestamp, and performance/buffering.
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logFile),
		zap.InfoLevel,
	)
	outputLogger := zap.New(core).Sugar()

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			outputLogger.Sync()
			return logFile.Close()
		},
	})

	return &loggerWriter{logger: outputLogger}, nil
}

type loggerWriter struct {
	logger *zap.SugaredLogger
}

// Write implements the io.Writer interface by sending data to the given logger.
func (o *loggerWriter) Write(p []byte) (n int, err error) {
	// Incoming data may contain multiple lines, including blank ones.
	// Split and log each line individually.
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if len(line) > 0 {
			o.logger.Info(line)
		}
	}

	return len(p), nil
}
