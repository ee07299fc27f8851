package engine

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate"
)

const _resourcesBuilderName = "resources"

// sourceFile is a file of a build root together with its current stamp.
type sourceFile struct {
	path  string
	root  entity.BuildRootDescriptor
	stamp buildstate.Stamp
}

// targetBuild is the work on one target.
type targetBuild struct {
	e      *engine
	req    Request
	d      *descriptor.ProjectDescriptor
	target entity.Target
	module projectmodel.Module
	output string
	forced bool

	markedUpToDate int
}

func (e *engine) buildTarget(ctx context.Context, req Request, target entity.Target) error {
	if req.Canceled.IsCanceled() {
		return nil
	}
	module, ok := req.Descriptor.Targets.Module(target)
	if !ok {
		return fmt.Errorf("no module for target %s", target)
	}

	b := &targetBuild{
		e:      e,
		req:    req,
		d:      req.Descriptor,
		target: target,
		module: module,
		output: module.OutputFor(target.Type),
		forced: req.Scope.IsBuildForced(target) ||
			((req.ForceCleanCaches || !req.Scope.IsBuildIncrementally(target.Type)) && req.Scope.IsWholeTargetAffected(target)),
	}
	return b.run(ctx)
}

func (b *targetBuild) run(ctx context.Context) error {
	if b.forced {
		if err := b.clean(); err != nil {
			return err
		}
	}

	sources, resources, current, err := b.collectDirty()
	if err != nil {
		return err
	}
	if b.req.Canceled.IsCanceled() {
		return nil
	}

	if !b.forced {
		if err := b.processDeleted(current); err != nil {
			return err
		}
	}

	if err := b.copyResources(resources); err != nil {
		return err
	}
	if b.req.Canceled.IsCanceled() {
		return nil
	}
	if err := b.compile(ctx, sources); err != nil {
		return err
	}

	if b.markedUpToDate > 0 {
		b.req.Sink.ProcessMessage(entity.FilesMarkedUpToDateMessage{Target: b.target, Count: b.markedUpToDate})
	}
	return nil
}

// clean removes every recorded output of the target and forgets its state.
func (b *targetBuild) clean() error {
	deps := b.d.Dependencies
	sources, err := deps.Sources(b.target)
	if err != nil {
		return fmt.Errorf("listing sources of %s: %w", b.target, err)
	}
	for _, source := range sources {
		outputs, err := deps.Outputs(b.target, source)
		if err != nil {
			return fmt.Errorf("listing outputs of %s: %w", source, err)
		}
		b.removeOutputs(outputs)
	}
	if err := deps.Clean(b.target); err != nil {
		return fmt.Errorf("cleaning dependencies of %s: %w", b.target, err)
	}
	if err := b.d.Timestamps.Clean(b.target); err != nil {
		return fmt.Errorf("cleaning timestamps of %s: %w", b.target, err)
	}
	return nil
}

// collectDirty walks the roots of the target and returns the in-scope files needing a build,
// along with every in-scope file currently present.
func (b *targetBuild) collectDirty() (sources, resources []sourceFile, present map[string]bool, err error) {
	present = make(map[string]bool)
	for _, root := range b.d.Roots.RootsOf(b.target) {
		exists, err := b.e.fs.DirExists(root.Root)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("checking root %s: %w", root.Root, err)
		}
		if !exists {
			continue
		}

		err = b.e.fs.Walk(root.Root, func(path string, entry iofs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if b.req.Canceled.IsCanceled() {
				return filepath.SkipAll
			}
			if path != root.Root && (b.d.Ignored.IsIgnored(path) || b.d.Excludes.IsExcluded(path)) {
				if entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() || !entry.Type().IsRegular() {
				return nil
			}
			if !b.req.Scope.IsFileAffected(b.target, path) {
				return nil
			}
			// A file under nested roots belongs to the deepest one only.
			if parents := b.d.Roots.FindAllParentDescriptors(path); len(parents) > 0 && parents[0].Root != root.Root && parents[0].Target == b.target {
				return nil
			}

			info, err := entry.Info()
			if err != nil {
				return err
			}
			present[path] = true
			file := sourceFile{
				path:  path,
				root:  root,
				stamp: buildstate.Stamp{ModTime: info.ModTime().UnixNano(), Length: info.Size()},
			}

			dirty := b.forced || b.d.FSState.IsMarkedDirty(path)
			if !dirty {
				if dirty, err = b.d.Timestamps.IsDirty(b.target, path, file.stamp); err != nil {
					return err
				}
			}
			if !dirty {
				return nil
			}
			if root.Kind == entity.RootKindResource {
				resources = append(resources, file)
			} else {
				sources = append(sources, file)
			}
			return nil
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("scanning %s: %w", root.Root, err)
		}
	}
	return sources, resources, present, nil
}

// processDeleted drops the outputs and state of recorded files that no longer exist.
func (b *targetBuild) processDeleted(present map[string]bool) error {
	known, err := b.d.Timestamps.Files(b.target)
	if err != nil {
		return fmt.Errorf("listing stamped files of %s: %w", b.target, err)
	}
	for _, file := range known {
		if present[file] || !b.req.Scope.IsFileAffected(b.target, file) {
			continue
		}
		if exists, err := b.e.fs.FileExists(file); err == nil && exists {
			// Present but skipped, e.g. excluded since the last build.
			continue
		}
		outputs, err := b.d.Dependencies.RemoveSource(b.target, file)
		if err != nil {
			return fmt.Errorf("forgetting outputs of %s: %w", file, err)
		}
		b.removeOutputs(outputs)
		if err := b.d.Timestamps.Remove(b.target, file); err != nil {
			return fmt.Errorf("forgetting %s: %w", file, err)
		}
		b.d.FSState.Clear(file)
		b.e.logger.Debugw("deleted source processed", "target", b.target.String(), "file", file, "outputs", len(outputs))
	}
	return nil
}

func (b *targetBuild) removeOutputs(outputs []string) {
	for _, out := range outputs {
		if err := b.e.fs.Remove(out); err != nil && !os.IsNotExist(err) {
			b.e.logger.Warnw("failed to remove output", "output", out, "error", err)
		}
	}
}

// copyResources copies dirty resources into the target output.
func (b *targetBuild) copyResources(resources []sourceFile) error {
	if len(resources) == 0 {
		return nil
	}
	var generated []entity.GeneratedFile
	for _, r := range resources {
		if b.req.Canceled.IsCanceled() {
			break
		}
		rel, err := filepath.Rel(r.root.Root, r.path)
		if err != nil {
			return err
		}
		dst := filepath.Join(b.output, rel)
		if err := b.e.fs.CopyFile(r.path, dst); err != nil {
			b.report(_resourcesBuilderName, entity.KindError, fmt.Sprintf("failed to copy resource: %v", err), r.path, -1, -1)
			continue
		}
		if err := b.d.Dependencies.SetOutputs(b.target, r.path, []string{dst}); err != nil {
			return err
		}
		if err := b.markUpToDate(r); err != nil {
			return err
		}
		generated = append(generated, entity.GeneratedFile{OutputRoot: b.output, RelativePath: filepath.ToSlash(rel)})
	}
	if len(generated) > 0 {
		b.req.Sink.ProcessMessage(entity.FilesGeneratedMessage{Files: generated})
	}
	return nil
}

func (b *targetBuild) markUpToDate(f sourceFile) error {
	if err := b.d.Timestamps.Stamp(b.target, f.path, f.stamp); err != nil {
		return fmt.Errorf("stamping %s: %w", f.path, err)
	}
	b.d.FSState.Clear(f.path)
	b.markedUpToDate++
	return nil
}

// snapshotOutput records the stamp of every file under the target output.
func (b *targetBuild) snapshotOutput() (map[string]buildstate.Stamp, error) {
	snapshot := make(map[string]buildstate.Stamp)
	exists, err := b.e.fs.DirExists(b.output)
	if err != nil || !exists {
		return snapshot, err
	}
	err = b.e.fs.Walk(b.output, func(path string, entry iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		snapshot[path] = buildstate.Stamp{ModTime: info.ModTime().UnixNano(), Length: info.Size()}
		return nil
	})
	return snapshot, err
}

// changedOutputs returns the files of after that are new or different from before, sorted.
func changedOutputs(before, after map[string]buildstate.Stamp) []string {
	var changed []string
	for path, stamp := range after {
		if old, ok := before[path]; !ok || !old.Matches(stamp) {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// outputsOf returns the outputs named after source: A.java produces A.class or A$Inner.class.
func outputsOf(source string, outputs []string) []string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	var matched []string
	for _, out := range outputs {
		base := filepath.Base(out)
		if !strings.HasPrefix(base, stem) || len(base) == len(stem) {
			continue
		}
		if next := base[len(stem)]; next == '.' || next == '$' {
			matched = append(matched, out)
		}
	}
	return matched
}
