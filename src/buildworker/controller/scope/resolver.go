package scope

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the Resolver.
var Module = fx.Provide(NewResolver)

// Resolver builds the CompileScope of a request.
type Resolver interface {
	// Resolve computes the scope of params against d. Under CLEAN and FORCED_COMPILATION the requested
	// files are marked dirty in the timestamp store and the FSState of d as part of the resolution.
	Resolve(ctx context.Context, params entity.BuildParameters, d *descriptor.ProjectDescriptor) (CompileScope, error)
}

// Params are the inputs to NewResolver.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
}

type resolver struct {
	logger *zap.SugaredLogger
}

// NewResolver creates a Resolver.
func NewResolver(p Params) Resolver {
	return &resolver{logger: p.Logger}
}

func (r *resolver) Resolve(ctx context.Context, params entity.BuildParameters, d *descriptor.ProjectDescriptor) (CompileScope, error) {
	if params.BuildType == entity.BuildTypeProjectRebuild {
		return NewAllTargetsScope(entity.AllTargetTypes, entity.AllTargetTypes), nil
	}

	var (
		types       []entity.TargetType
		forcedTypes []entity.TargetType
		targets     []entity.Target
	)
	for _, s := range params.Scopes {
		targetType, ok := entity.TargetTypeByID(s.TypeID)
		if !ok {
			r.logger.Warnw("unknown target type skipped", "typeId", s.TypeID)
			continue
		}

		if r.isForced(params.BuildType, s) {
			forcedTypes = append(forcedTypes, targetType)
		}
		if s.AllTargets {
			types = append(types, targetType)
			continue
		}

		loader := d.Targets.Loader(targetType)
		for _, id := range s.TargetIDs {
			target, ok := loader.CreateTarget(id)
			if !ok {
				r.logger.Warnw("target dropped from scope", "error", &errors.UnknownTargetError{TypeID: s.TypeID, TargetID: id})
				continue
			}
			targets = append(targets, target)
		}
	}

	files, err := r.mapFiles(ctx, params, d)
	if err != nil {
		return nil, err
	}

	switch {
	case len(files) > 0:
		return NewFilesScope(types, forcedTypes, targets, files), nil
	case len(targets) == 0 && len(types) > 0:
		return NewAllTargetsScope(types, forcedTypes), nil
	default:
		return NewTargetsScope(types, forcedTypes, targets), nil
	}
}

// isForced reports whether the targets addressed by s ignore recorded state. MAKE is always incremental.
func (r *resolver) isForced(buildType entity.BuildType, s entity.TargetTypeScope) bool {
	switch buildType {
	case entity.BuildTypeMake:
		return false
	case entity.BuildTypeClean, entity.BuildTypeForcedCompilation:
		return true
	default:
		return s.ForceBuild
	}
}

// mapFiles assigns every requested file to the targets whose roots contain it.
func (r *resolver) mapFiles(ctx context.Context, params entity.BuildParameters, d *descriptor.ProjectDescriptor) (map[entity.Target][]string, error) {
	if len(params.FilePaths) == 0 {
		return nil, nil
	}

	// Forced files are rebuilt even when the scope restricts their target to them.
	markDirty := params.BuildType == entity.BuildTypeClean || params.BuildType == entity.BuildTypeForcedCompilation
	files := make(map[entity.Target][]string)
	for _, path := range params.FilePaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file := path
		if !filepath.IsAbs(file) {
			file = filepath.Join(d.Project.Dir, file)
		}
		file = filepath.Clean(file)

		roots := d.Roots.FindAllParentDescriptors(file)
		if len(roots) == 0 {
			r.logger.Warnw("file outside of every build root dropped", "file", file)
			continue
		}
		for _, root := range roots {
			if contains(files[root.Target], file) {
				continue
			}
			files[root.Target] = append(files[root.Target], file)
			if markDirty {
				if err := d.Timestamps.MarkDirty(root.Target, file); err != nil {
					return nil, fmt.Errorf("marking %s dirty: %w", file, err)
				}
				d.FSState.MarkDirty(file)
			}
		}
	}
	return files, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
