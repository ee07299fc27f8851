package projectmodel

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the project file looked up when the project path is a directory.
	FileName = "project.yaml"
	// PathMacrosFileName holds path variables stored under the global options path.
	PathMacrosFileName = "path.macros.yaml"
	// ProjectDirMacro expands to the directory holding the project file.
	ProjectDirMacro = "PROJECT_DIR"
)

var _macroPattern = regexp.MustCompile(`\$([A-Za-z0-9_.\-]+)\$`)

// LoaderModule provides the project Loader.
var LoaderModule = fx.Provide(NewLoader)

// Loader builds a resolved project model.
type Loader interface {
	// Load reads the project at projectPath, a project file or a directory holding one.
	// Malformed files fail the load; inconsistencies inside a well formed file are logged and skipped.
	Load(projectPath string, globals entity.GlobalSettings) (*Project, error)
}

// Params are the inputs to NewLoader.
type Params struct {
	fx.In

	FS     fs.WorkerFS
	Logger *zap.SugaredLogger
}

type loader struct {
	fs     fs.WorkerFS
	logger *zap.SugaredLogger
}

// NewLoader creates a project Loader.
func NewLoader(p Params) Loader {
	return &loader{fs: p.FS, logger: p.Logger}
}

func (l *loader) Load(projectPath string, globals entity.GlobalSettings) (*Project, error) {
	projectFile, err := l.projectFile(projectPath)
	if err != nil {
		return nil, err
	}

	data, err := l.fs.ReadFile(projectFile)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	project := &Project{}
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(project); err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", projectFile, err)
	}
	project.Dir = filepath.Dir(projectFile)
	if project.Name == "" {
		project.Name = filepath.Base(project.Dir)
	}

	variables, err := l.pathVariables(project.Dir, globals)
	if err != nil {
		return nil, err
	}

	issues := resolve(project, variables)
	applyGlobals(project, globals)

	if issues != nil {
		for _, issue := range multierr.Errors(issues) {
			l.logger.Warnw("project model issue", "project", project.Name, "error", issue)
		}
	}
	return project, nil
}

func (l *loader) projectFile(projectPath string) (string, error) {
	if projectPath == "" {
		return "", fmt.Errorf("empty project path")
	}
	isDir, err := l.fs.DirExists(projectPath)
	if err != nil {
		return "", fmt.Errorf("checking project path: %w", err)
	}
	if isDir {
		return filepath.Join(projectPath, FileName), nil
	}
	return projectPath, nil
}

// pathVariables merges the variables stored under the global options path with the ones sent in the request.
// Request values win.
func (l *loader) pathVariables(projectDir string, globals entity.GlobalSettings) (map[string]string, error) {
	vars := map[string]string{}

	if globals.GlobalOptionsPath != "" {
		macrosFile := filepath.Join(globals.GlobalOptionsPath, PathMacrosFileName)
		exists, err := l.fs.FileExists(macrosFile)
		if err != nil {
			return nil, fmt.Errorf("checking path macros: %w", err)
		}
		if exists {
			data, err := l.fs.ReadFile(macrosFile)
			if err != nil {
				return nil, fmt.Errorf("reading path macros: %w", err)
			}
			if err := yaml.Unmarshal(data, &vars); err != nil {
				return nil, fmt.Errorf("parsing path macros %s: %w", macrosFile, err)
			}
		}
	}

	for k, v := range globals.PathVariables {
		vars[k] = v
	}
	vars[ProjectDirMacro] = projectDir
	return vars, nil
}

func resolve(p *Project, vars map[string]string) (issues error) {
	path := func(raw string) string {
		expanded, err := expandMacros(raw, vars)
		issues = multierr.Append(issues, err)
		if expanded == "" {
			return ""
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(p.Dir, expanded)
		}
		return filepath.Clean(expanded)
	}
	paths := func(raw []string) []string {
		if len(raw) == 0 {
			return nil
		}
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			if resolved := path(r); resolved != "" {
				out = append(out, resolved)
			}
		}
		return out
	}

	if len(p.Encodings) > 0 {
		encodings := make(map[string]string, len(p.Encodings))
		for k, v := range p.Encodings {
			encodings[path(k)] = v
		}
		p.Encodings = encodings
	}

	seen := make(map[string]bool, len(p.Modules))
	modules := p.Modules[:0]
	for _, m := range p.Modules {
		if m.Name == "" {
			issues = multierr.Append(issues, fmt.Errorf("module without a name skipped"))
			continue
		}
		if seen[m.Name] {
			issues = multierr.Append(issues, fmt.Errorf("duplicate module %q skipped", m.Name))
			continue
		}
		seen[m.Name] = true

		m.SourceRoots = paths(m.SourceRoots)
		m.TestRoots = paths(m.TestRoots)
		m.ResourceRoots = paths(m.ResourceRoots)
		m.TestResourceRoots = paths(m.TestResourceRoots)
		m.GeneratedRoots = paths(m.GeneratedRoots)
		m.Excludes = paths(m.Excludes)
		m.Output = path(m.Output)
		m.TestOutput = path(m.TestOutput)
		if m.Output == "" {
			m.Output = filepath.Join(p.Dir, "out", "production", m.Name)
		}
		if m.TestOutput == "" {
			m.TestOutput = filepath.Join(p.Dir, "out", "test", m.Name)
		}
		for i, arg := range m.Builder.Command {
			expanded, err := expandMacros(arg, vars)
			issues = multierr.Append(issues, err)
			m.Builder.Command[i] = expanded
		}
		modules = append(modules, m)
	}
	p.Modules = modules

	for _, m := range p.Modules {
		for _, dep := range m.Dependencies {
			if !seen[dep] {
				issues = multierr.Append(issues, fmt.Errorf("module %q depends on unknown module %q", m.Name, dep))
			}
		}
	}
	return issues
}

// applyGlobals fills project settings left unset from the request's global settings.
func applyGlobals(p *Project, globals entity.GlobalSettings) {
	if p.Encoding == "" {
		p.Encoding = globals.DefaultEncoding
	}
	if p.IgnoredFiles == "" {
		p.IgnoredFiles = globals.IgnoredFilesPatterns
	}
	p.Libraries = globals.Libraries
	p.SDKs = globals.SDKs
}

// expandMacros replaces $NAME$ references. Unknown macros are left in place and reported.
func expandMacros(s string, vars map[string]string) (string, error) {
	var unknown []string
	expanded := _macroPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.Trim(m, "$")
		if v, ok := vars[name]; ok {
			return v
		}
		unknown = append(unknown, name)
		return m
	})
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return expanded, fmt.Errorf("unknown path variables %v in %q", unknown, s)
	}
	return expanded, nil
}
