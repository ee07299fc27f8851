package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/index"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
)

var (
	appProd  = entity.Target{Type: entity.TargetTypeProduction, ID: "app"}
	appTests = entity.Target{Type: entity.TargetTypeTests, ID: "app"}
	libProd  = entity.Target{Type: entity.TargetTypeProduction, ID: "lib"}
	libTests = entity.Target{Type: entity.TargetTypeTests, ID: "lib"}
)

func TestAllTargetsScope(t *testing.T) {
	s := NewAllTargetsScope([]entity.TargetType{entity.TargetTypeProduction}, []entity.TargetType{entity.TargetTypeProduction})

	assert.True(t, s.IsAffected(appProd))
	assert.True(t, s.IsFileAffected(libProd, "/any"))
	assert.False(t, s.IsAffected(appTests))
	assert.True(t, s.IsWholeTargetAffected(appProd))
	assert.True(t, s.IsAllTargetsOfTypeAffected(entity.TargetTypeProduction))
	assert.False(t, s.IsAllTargetsOfTypeAffected(entity.TargetTypeTests))
	assert.True(t, s.IsBuildForced(appProd))
	assert.True(t, s.IsBuildForcedForAllTargets(entity.TargetTypeProduction))
	assert.False(t, s.IsBuildIncrementally(entity.TargetTypeProduction))
	assert.True(t, s.IsBuildIncrementally(entity.TargetTypeTests))
	assert.False(t, s.IsRebuildAll())

	all := NewAllTargetsScope(entity.AllTargetTypes, entity.AllTargetTypes)
	assert.True(t, all.IsRebuildAll())
}

func TestTargetsScope(t *testing.T) {
	s := NewTargetsScope(nil, nil, []entity.Target{appProd})

	assert.True(t, s.IsAffected(appProd))
	assert.False(t, s.IsAffected(libProd))
	assert.True(t, s.IsWholeTargetAffected(appProd))
	assert.False(t, s.IsAllTargetsOfTypeAffected(entity.TargetTypeProduction))
	assert.False(t, s.IsBuildForced(appProd))
	assert.True(t, s.IsBuildIncrementally(entity.TargetTypeProduction))

	files, ok := s.Files(appProd)
	assert.False(t, ok)
	assert.Nil(t, files)
}

func TestFilesScope(t *testing.T) {
	s := NewFilesScope(
		nil,
		[]entity.TargetType{entity.TargetTypeProduction},
		[]entity.Target{libProd},
		map[entity.Target][]string{appProd: {"/p/app/src/B.java", "/p/app/src/A.java"}},
	)

	assert.True(t, s.IsAffected(appProd))
	assert.True(t, s.IsFileAffected(appProd, "/p/app/src/A.java"))
	assert.False(t, s.IsFileAffected(appProd, "/p/app/src/C.java"))
	assert.True(t, s.IsFileAffected(libProd, "/p/lib/src/L.java"))
	assert.False(t, s.IsWholeTargetAffected(appProd))
	assert.True(t, s.IsWholeTargetAffected(libProd))
	assert.False(t, s.IsWholeTargetAffected(libTests))
	// Explicit files disable forcing: only the listed files are rebuilt.
	assert.False(t, s.IsBuildForced(libProd))
	assert.False(t, s.IsBuildForcedForAllTargets(entity.TargetTypeProduction))
	assert.False(t, s.IsBuildIncrementally(entity.TargetTypeProduction))

	files, ok := s.Files(appProd)
	assert.True(t, ok)
	assert.Equal(t, []string{"/p/app/src/A.java", "/p/app/src/B.java"}, files)
}

func TestAffectedTargets(t *testing.T) {
	ti := index.NewTargetIndex(&projectmodel.Project{Modules: []projectmodel.Module{{Name: "app"}, {Name: "lib"}}})

	s := NewTargetsScope([]entity.TargetType{entity.TargetTypeTests}, nil, []entity.Target{libProd})
	assert.Equal(t, []entity.Target{libProd, appTests, libTests}, s.AffectedTargets(ti))
}
