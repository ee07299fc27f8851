package entity

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLaunchArgsAddress(t *testing.T) {
	args := LaunchArgs{Host: "127.0.0.1", Port: 4242, SessionID: uuid.Nil}
	assert.Equal(t, "127.0.0.1:4242", args.Address())

	args.Host = "::1"
	assert.Equal(t, "[::1]:4242", args.Address())
}

func TestBuildType(t *testing.T) {
	tests := []struct {
		buildType BuildType
		name      string
		forced    bool
	}{
		{BuildTypeClean, "CLEAN", true},
		{BuildTypeMake, "MAKE", false},
		{BuildTypeForcedCompilation, "FORCED_COMPILATION", true},
		{BuildTypeProjectRebuild, "PROJECT_REBUILD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.buildType.String())
			assert.Equal(t, tt.forced, tt.buildType.IsForced())
			assert.True(t, tt.buildType.Valid())
		})
	}
	assert.False(t, BuildType(0).Valid())
	assert.Equal(t, "BuildType(9)", BuildType(9).String())
}

func TestIsWholeProject(t *testing.T) {
	tests := []struct {
		name   string
		params BuildParameters
		want   bool
	}{
		{
			name:   "no scopes",
			params: BuildParameters{},
			want:   true,
		},
		{
			name: "all targets of every type",
			params: BuildParameters{Scopes: []TargetTypeScope{
				{TypeID: TargetTypeProduction.ID, AllTargets: true},
				{TypeID: TargetTypeTests.ID, AllTargets: true},
			}},
			want: true,
		},
		{
			name: "explicit targets",
			params: BuildParameters{Scopes: []TargetTypeScope{
				{TypeID: TargetTypeProduction.ID, TargetIDs: []string{"app"}},
			}},
			want: false,
		},
		{
			name:   "explicit files",
			params: BuildParameters{FilePaths: []string{"/p/app/src/Main.java"}},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.IsWholeProject())
		})
	}
}

func TestTargets(t *testing.T) {
	typ, ok := TargetTypeByID("module-tests")
	assert.True(t, ok)
	assert.Equal(t, TargetTypeTests, typ)

	_, ok = TargetTypeByID("artifact")
	assert.False(t, ok)

	target := Target{Type: TargetTypeProduction, ID: "app"}
	assert.Equal(t, "module-production:app", target.String())
	assert.Equal(t, target.String(), target.Key())
	assert.Equal(t, "resource", RootKindResource.String())
}

func TestSdkLibrary(t *testing.T) {
	sdk := SdkLibrary{
		GlobalLibrary: GlobalLibrary{Name: "go-1.22", Paths: []string{"/opt/go/src"}},
		TypeName:      "GoSDK",
		Version:       "1.22",
		HomePath:      "/opt/go",
	}
	assert.True(t, sdk.IsResolved())
	assert.Equal(t, "go-1.22", sdk.LibraryName())
	assert.Equal(t, []string{"/opt/go/src"}, sdk.Classpath())

	sdk.HomePath = ""
	assert.False(t, sdk.IsResolved())
	assert.Equal(t, "SUCCESS", StatusSuccess.String())
}
