package index

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/uber/incbuild/src/buildworker/entity"
)

// RootIndex maps files to the build roots containing them.
type RootIndex struct {
	roots    []entity.BuildRootDescriptor
	byTarget map[entity.Target][]entity.BuildRootDescriptor
}

// NewRootIndex indexes the source and resource roots of every target in targets.
func NewRootIndex(targets *TargetIndex) *RootIndex {
	ri := &RootIndex{byTarget: make(map[entity.Target][]entity.BuildRootDescriptor)}
	for _, target := range targets.Targets() {
		m, _ := targets.Module(target)
		for _, root := range m.SourceRootsFor(target.Type) {
			ri.add(entity.BuildRootDescriptor{Root: root, Target: target, Kind: entity.RootKindSource, Generated: m.IsGenerated(root)})
		}
		for _, root := range m.ResourceRootsFor(target.Type) {
			ri.add(entity.BuildRootDescriptor{Root: root, Target: target, Kind: entity.RootKindResource})
		}
	}
	// Deepest roots first so that the closest root of a file is found first.
	sort.SliceStable(ri.roots, func(i, j int) bool {
		return len(ri.roots[i].Root) > len(ri.roots[j].Root)
	})
	return ri
}

func (ri *RootIndex) add(d entity.BuildRootDescriptor) {
	ri.roots = append(ri.roots, d)
	ri.byTarget[d.Target] = append(ri.byTarget[d.Target], d)
}

// RootsOf returns the roots of target in declaration order.
func (ri *RootIndex) RootsOf(target entity.Target) []entity.BuildRootDescriptor {
	return ri.byTarget[target]
}

// FindAllParentDescriptors returns every root containing file, deepest first.
// Overlapping roots make a file belong to more than one target.
func (ri *RootIndex) FindAllParentDescriptors(file string) []entity.BuildRootDescriptor {
	file = filepath.Clean(file)
	var found []entity.BuildRootDescriptor
	for _, d := range ri.roots {
		if IsAncestor(d.Root, file) {
			found = append(found, d)
		}
	}
	return found
}

// FindTargets returns the distinct targets owning file.
func (ri *RootIndex) FindTargets(file string) []entity.Target {
	var targets []entity.Target
	seen := map[entity.Target]bool{}
	for _, d := range ri.FindAllParentDescriptors(file) {
		if !seen[d.Target] {
			seen[d.Target] = true
			targets = append(targets, d.Target)
		}
	}
	return targets
}

// IsAncestor reports whether path is dir or lies under it.
func IsAncestor(dir, path string) bool {
	if dir == path {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
