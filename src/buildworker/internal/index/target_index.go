// Package index holds the lookup structures derived from a project model.
package index

import (
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
)

// TargetLoader resolves target ids of a single target type.
type TargetLoader interface {
	// CreateTarget returns the target with the given id, or false when the id is unknown.
	CreateTarget(id string) (entity.Target, bool)
}

// TargetIndex lists the targets of a project. Every module contributes one target per target type.
type TargetIndex struct {
	byType  map[string][]entity.Target
	modules map[entity.Target]projectmodel.Module
	deps    map[entity.Target][]entity.Target
}

// NewTargetIndex indexes the targets of project.
func NewTargetIndex(project *projectmodel.Project) *TargetIndex {
	ti := &TargetIndex{
		byType:  make(map[string][]entity.Target, len(entity.AllTargetTypes)),
		modules: make(map[entity.Target]projectmodel.Module),
		deps:    make(map[entity.Target][]entity.Target),
	}
	for _, tt := range entity.AllTargetTypes {
		for _, m := range project.Modules {
			target := entity.Target{Type: tt, ID: m.Name}
			ti.byType[tt.ID] = append(ti.byType[tt.ID], target)
			ti.modules[target] = m
		}
	}
	for target, m := range ti.modules {
		var deps []entity.Target
		if target.Type.Tests {
			// Tests see the production classes of their own module.
			deps = append(deps, entity.Target{Type: entity.TargetTypeProduction, ID: m.Name})
		}
		for _, dep := range m.Dependencies {
			depTarget := entity.Target{Type: entity.TargetTypeProduction, ID: dep}
			if _, ok := ti.modules[depTarget]; ok {
				deps = append(deps, depTarget)
			}
		}
		ti.deps[target] = deps
	}
	return ti
}

// AllTargets returns the targets of the given type in module declaration order.
func (ti *TargetIndex) AllTargets(t entity.TargetType) []entity.Target {
	return ti.byType[t.ID]
}

// Targets returns every target, production targets first.
func (ti *TargetIndex) Targets() []entity.Target {
	var all []entity.Target
	for _, tt := range entity.AllTargetTypes {
		all = append(all, ti.byType[tt.ID]...)
	}
	return all
}

// Module returns the module owning target.
func (ti *TargetIndex) Module(target entity.Target) (projectmodel.Module, bool) {
	m, ok := ti.modules[target]
	return m, ok
}

// Dependencies returns the targets target depends on directly.
func (ti *TargetIndex) Dependencies(target entity.Target) []entity.Target {
	return ti.deps[target]
}

// Loader returns the TargetLoader for targets of type t.
func (ti *TargetIndex) Loader(t entity.TargetType) TargetLoader {
	return typeLoader{index: ti, targetType: t}
}

type typeLoader struct {
	index      *TargetIndex
	targetType entity.TargetType
}

func (l typeLoader) CreateTarget(id string) (entity.Target, bool) {
	target := entity.Target{Type: l.targetType, ID: id}
	_, ok := l.index.modules[target]
	return target, ok
}
