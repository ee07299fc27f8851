// Package scope resolves build requests into the set of targets and files a build works on.
package scope

import (
	"sort"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/index"
)

// CompileScope is an immutable view of what a build works on.
type CompileScope interface {
	// IsAffected reports whether any part of target is in scope.
	IsAffected(target entity.Target) bool
	// IsFileAffected reports whether file of target is in scope. Without explicit files for target this
	// is the same as IsAffected.
	IsFileAffected(target entity.Target, file string) bool
	// IsWholeTargetAffected reports whether every file of target is in scope.
	IsWholeTargetAffected(target entity.Target) bool
	// IsAllTargetsOfTypeAffected reports whether every target of type t is wholly in scope.
	IsAllTargetsOfTypeAffected(t entity.TargetType) bool
	// IsBuildForced reports whether target is built ignoring its recorded up-to-date state.
	IsBuildForced(target entity.Target) bool
	// IsBuildForcedForAllTargets reports whether every target of type t is built ignoring recorded state.
	IsBuildForcedForAllTargets(t entity.TargetType) bool
	// IsBuildIncrementally reports whether targets of type t use recorded up-to-date state.
	IsBuildIncrementally(t entity.TargetType) bool
	// IsRebuildAll reports whether every target of every type is rebuilt from scratch.
	IsRebuildAll() bool
	// Files returns the explicit files of target, sorted, and whether target has any.
	Files(target entity.Target) ([]string, bool)
	// AffectedTargets returns the targets of targets that are in scope, in index order.
	AffectedTargets(targets *index.TargetIndex) []entity.Target
}

// AllTargetsScope covers every target of some target types.
type AllTargetsScope struct{ *base }

// TargetsScope covers some target types wholly plus an explicit set of targets.
type TargetsScope struct{ *base }

// FilesScope additionally restricts some targets to an explicit set of files.
type FilesScope struct{ *base }

var (
	_ CompileScope = AllTargetsScope{}
	_ CompileScope = TargetsScope{}
	_ CompileScope = FilesScope{}
)

type base struct {
	types       map[entity.TargetType]bool
	forcedTypes map[entity.TargetType]bool
	targets     map[entity.Target]bool
	files       map[entity.Target]map[string]bool
}

// NewAllTargetsScope returns a scope holding every target of types.
func NewAllTargetsScope(types, forcedTypes []entity.TargetType) AllTargetsScope {
	return AllTargetsScope{newBase(types, forcedTypes, nil, nil)}
}

// NewTargetsScope returns a scope holding every target of types plus targets.
func NewTargetsScope(types, forcedTypes []entity.TargetType, targets []entity.Target) TargetsScope {
	return TargetsScope{newBase(types, forcedTypes, targets, nil)}
}

// NewFilesScope returns a scope where the targets with files are restricted to those files.
func NewFilesScope(types, forcedTypes []entity.TargetType, targets []entity.Target, files map[entity.Target][]string) FilesScope {
	return FilesScope{newBase(types, forcedTypes, targets, files)}
}

func newBase(types, forcedTypes []entity.TargetType, targets []entity.Target, files map[entity.Target][]string) *base {
	b := &base{
		types:       make(map[entity.TargetType]bool, len(types)),
		forcedTypes: make(map[entity.TargetType]bool, len(forcedTypes)),
		targets:     make(map[entity.Target]bool, len(targets)),
		files:       make(map[entity.Target]map[string]bool, len(files)),
	}
	for _, t := range types {
		b.types[t] = true
	}
	for _, t := range forcedTypes {
		b.forcedTypes[t] = true
	}
	for _, t := range targets {
		b.targets[t] = true
	}
	for target, list := range files {
		set := make(map[string]bool, len(list))
		for _, f := range list {
			set[f] = true
		}
		b.files[target] = set
	}
	return b
}

func (b *base) IsAffected(target entity.Target) bool {
	if b.types[target.Type] || b.targets[target] {
		return true
	}
	_, ok := b.files[target]
	return ok
}

func (b *base) IsFileAffected(target entity.Target, file string) bool {
	if set, ok := b.files[target]; ok {
		return set[file]
	}
	return b.IsAffected(target)
}

func (b *base) IsWholeTargetAffected(target entity.Target) bool {
	if _, ok := b.files[target]; ok {
		return false
	}
	return b.types[target.Type] || b.targets[target]
}

func (b *base) IsAllTargetsOfTypeAffected(t entity.TargetType) bool {
	return b.types[t] && len(b.files) == 0
}

func (b *base) IsBuildForced(target entity.Target) bool {
	return len(b.files) == 0 && b.forcedTypes[target.Type] && b.IsWholeTargetAffected(target)
}

func (b *base) IsBuildForcedForAllTargets(t entity.TargetType) bool {
	return b.forcedTypes[t] && b.IsAllTargetsOfTypeAffected(t)
}

func (b *base) IsBuildIncrementally(t entity.TargetType) bool {
	return !b.forcedTypes[t]
}

func (b *base) IsRebuildAll() bool {
	for _, t := range entity.AllTargetTypes {
		if !b.IsBuildForcedForAllTargets(t) {
			return false
		}
	}
	return true
}

func (b *base) Files(target entity.Target) ([]string, bool) {
	set, ok := b.files[target]
	if !ok {
		return nil, false
	}
	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, true
}

func (b *base) AffectedTargets(targets *index.TargetIndex) []entity.Target {
	var affected []entity.Target
	for _, t := range targets.Targets() {
		if b.IsAffected(t) {
			affected = append(affected, t)
		}
	}
	return affected
}
