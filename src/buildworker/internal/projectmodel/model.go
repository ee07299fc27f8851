// Package projectmodel loads the project description consumed by the build worker.
package projectmodel

import (
	"path/filepath"

	"github.com/uber/incbuild/src/buildworker/entity"
)

// Builder is the external command compiling the sources of a module.
type Builder struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
}

// Module is a unit of the project contributing one production and one test target.
type Module struct {
	Name              string   `yaml:"name"`
	SDK               string   `yaml:"sdk"`
	SourceRoots       []string `yaml:"sourceRoots"`
	TestRoots         []string `yaml:"testRoots"`
	ResourceRoots     []string `yaml:"resourceRoots"`
	TestResourceRoots []string `yaml:"testResourceRoots"`
	GeneratedRoots    []string `yaml:"generatedRoots"`
	Excludes          []string `yaml:"excludes"`
	Output            string   `yaml:"output"`
	TestOutput        string   `yaml:"testOutput"`
	Builder           Builder  `yaml:"builder"`
	Dependencies      []string `yaml:"dependencies"`
	Libraries         []string `yaml:"libraries"`
}

// SourceRootsFor returns the source roots of the production or test target.
func (m Module) SourceRootsFor(t entity.TargetType) []string {
	if t.Tests {
		return m.TestRoots
	}
	return m.SourceRoots
}

// ResourceRootsFor returns the resource roots of the production or test target.
func (m Module) ResourceRootsFor(t entity.TargetType) []string {
	if t.Tests {
		return m.TestResourceRoots
	}
	return m.ResourceRoots
}

// OutputFor returns the output directory of the production or test target.
func (m Module) OutputFor(t entity.TargetType) string {
	if t.Tests {
		return m.TestOutput
	}
	return m.Output
}

// IsGenerated reports whether root was declared as holding generated sources.
func (m Module) IsGenerated(root string) bool {
	for _, g := range m.GeneratedRoots {
		if g == root {
			return true
		}
	}
	return false
}

// Project is a fully resolved project: every path is absolute and every macro expanded.
type Project struct {
	Name string `yaml:"name"`
	// Encoding is the project wide default encoding.
	Encoding string `yaml:"encoding"`
	// Encodings maps a file or directory to the encoding of the files under it.
	Encodings map[string]string `yaml:"encodings"`
	// IgnoredFiles is a ';' separated list of file name patterns never considered by the build.
	IgnoredFiles string   `yaml:"ignoredFiles"`
	Modules      []Module `yaml:"modules"`

	// Dir is the directory holding the project file.
	Dir string `yaml:"-"`
	// Libraries and SDKs are the global definitions the project was loaded with.
	Libraries []entity.GlobalLibrary `yaml:"-"`
	SDKs      []entity.SdkLibrary    `yaml:"-"`
}

// Module returns the module with the given name.
func (p *Project) Module(name string) (Module, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

// DataKey identifies the project in the state directory.
func (p *Project) DataKey() string {
	return filepath.Clean(p.Dir)
}
