package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/executor"
)

const (
	_envOutput      = "BUILD_OUTPUT"
	_envTarget      = "BUILD_TARGET"
	_envEncoding    = "BUILD_ENCODING"
	_envIncremental = "BUILD_INCREMENTAL"
	_envParamPrefix = "BUILD_PARAM_"

	_defaultBuilderName = "builder"
)

// _diagnostic matches "<file>:<line>:<column>: <text>" lines written by a builder.
var _diagnostic = regexp.MustCompile(`^(.+?):(\d+):(\d+): (.*)$`)

// compile hands the dirty sources to the module's builder and records what it produced.
func (b *targetBuild) compile(ctx context.Context, sources []sourceFile) error {
	if len(sources) == 0 {
		return nil
	}
	builder := b.module.Builder
	if len(builder.Command) == 0 {
		// Nothing to run: the sources are up to date as soon as they are seen.
		for _, s := range sources {
			if err := b.markUpToDate(s); err != nil {
				return err
			}
		}
		return nil
	}
	name := builder.Name
	if name == "" {
		name = _defaultBuilderName
	}

	if err := b.e.fs.MkdirAll(b.output); err != nil {
		return fmt.Errorf("creating output %s: %w", b.output, err)
	}
	before, err := b.snapshotOutput()
	if err != nil {
		return fmt.Errorf("reading output %s: %w", b.output, err)
	}

	args := append([]string{}, builder.Command[1:]...)
	for _, s := range sources {
		args = append(args, s.path)
	}
	res, err := b.e.executor.Run(ctx, executor.Command{
		Name:    builder.Command[0],
		Args:    args,
		Dir:     b.d.Project.Dir,
		Env:     b.environment(),
		Timeout: b.e.commandTimeout,
	})
	if err != nil {
		if b.req.Canceled.IsCanceled() {
			return nil
		}
		b.report(name, entity.KindError, fmt.Sprintf("failed to run %s: %v", builder.Command[0], err), "", -1, -1)
		return nil
	}

	errorCount := b.parseOutput(name, res.Output)
	if res.ExitCode != 0 {
		if errorCount == 0 {
			b.report(name, entity.KindError, fmt.Sprintf("%s exited with code %d", builder.Command[0], res.ExitCode), "", -1, -1)
		}
		b.e.logger.Infow("builder failed", "target", b.target.String(), "builder", name, "exitCode", res.ExitCode)
		return nil
	}

	after, err := b.snapshotOutput()
	if err != nil {
		return fmt.Errorf("reading output %s: %w", b.output, err)
	}
	produced := changedOutputs(before, after)
	if len(produced) > 0 {
		files := make([]entity.GeneratedFile, 0, len(produced))
		for _, out := range produced {
			rel, err := filepath.Rel(b.output, out)
			if err != nil {
				return err
			}
			files = append(files, entity.GeneratedFile{OutputRoot: b.output, RelativePath: filepath.ToSlash(rel)})
		}
		b.req.Sink.ProcessMessage(entity.FilesGeneratedMessage{Files: files})
	}

	for _, s := range sources {
		if outputs := outputsOf(s.path, produced); len(outputs) > 0 {
			if err := b.d.Dependencies.SetOutputs(b.target, s.path, outputs); err != nil {
				return fmt.Errorf("recording outputs of %s: %w", s.path, err)
			}
		}
		if err := b.markUpToDate(s); err != nil {
			return err
		}
	}
	return nil
}

// environment returns the process environment extended with the build variables.
func (b *targetBuild) environment() []string {
	env := os.Environ()
	env = append(env,
		_envOutput+"="+b.output,
		_envTarget+"="+b.target.String(),
		_envEncoding+"="+b.d.Encodings.ForTarget(b.target),
		_envIncremental+"="+strconv.FormatBool(b.req.Incremental && !b.forced),
	)
	keys := make([]string, 0, len(b.req.BuilderParams))
	for k := range b.req.BuilderParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, _envParamPrefix+paramKey(k)+"="+b.req.BuilderParams[k])
	}
	return env
}

// paramKey turns a builder parameter name into an environment variable suffix.
func paramKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, k)
}

// parseOutput reports diagnostics found in the builder output and writes the rest to the build log.
// It returns the number of errors reported.
func (b *targetBuild) parseOutput(builder string, lines []string) int {
	errorCount := 0
	for _, line := range lines {
		m := _diagnostic.FindStringSubmatch(line)
		if m == nil {
			b.logLine(line)
			continue
		}
		lineNo, _ := strconv.ParseInt(m[2], 10, 64)
		column, _ := strconv.ParseInt(m[3], 10, 64)
		text := m[4]
		kind := entity.KindError
		if rest, ok := strings.CutPrefix(text, "warning:"); ok {
			kind = entity.KindWarning
			text = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(text, "error:"); ok {
			text = strings.TrimSpace(rest)
		}
		if kind == entity.KindError {
			errorCount++
		}
		b.report(builder, kind, text, m[1], lineNo, column)
	}
	return errorCount
}

func (b *targetBuild) logLine(line string) {
	if b.e.buildLog == nil {
		return
	}
	if _, err := io.WriteString(b.e.buildLog, line+"\n"); err != nil {
		b.e.logger.Debugw("failed to write build log", "error", err)
	}
}

func (b *targetBuild) report(builder string, kind entity.MessageKind, text, path string, line, column int64) {
	b.req.Sink.ProcessMessage(entity.CompilerMessage{
		BuilderName:     builder,
		Kind:            kind,
		Text:            text,
		SourcePath:      path,
		ProblemBegin:    -1,
		ProblemEnd:      -1,
		ProblemLocation: -1,
		Line:            line,
		Column:          column,
	})
}
