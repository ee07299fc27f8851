// Package entity contains the domain types of the build worker.
package entity

import (
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
)

// LaunchArgs are the values the controller passes on the worker's command line.
type LaunchArgs struct {
	Host      string    `json:"host" zap:"host"`
	Port      int       `json:"port" zap:"port"`
	SessionID uuid.UUID `json:"sessionId" zap:"sessionId"`
	StateDir  string    `json:"stateDir" zap:"stateDir"`

	// PreloadProject, if set, is opened by the persistent loader before the build request arrives.
	PreloadProject string `json:"preloadProject,omitempty" zap:"preloadProject"`
}

// Address returns the controller address in host:port form.
func (a LaunchArgs) Address() string {
	if strings.Contains(a.Host, ":") {
		return fmt.Sprintf("[%s]:%d", a.Host, a.Port)
	}
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// BuildType selects how the requested scope is built.
type BuildType int

const (
	// BuildTypeClean cleans the outputs of the requested scope before building it.
	BuildTypeClean BuildType = iota + 1
	// BuildTypeMake builds the requested scope incrementally.
	BuildTypeMake
	// BuildTypeForcedCompilation recompiles the requested scope ignoring incremental state.
	BuildTypeForcedCompilation
	// BuildTypeProjectRebuild rebuilds every target of the project.
	BuildTypeProjectRebuild
)

// String implements fmt.Stringer.
func (t BuildType) String() string {
	switch t {
	case BuildTypeClean:
		return "CLEAN"
	case BuildTypeMake:
		return "MAKE"
	case BuildTypeForcedCompilation:
		return "FORCED_COMPILATION"
	case BuildTypeProjectRebuild:
		return "PROJECT_REBUILD"
	default:
		return fmt.Sprintf("BuildType(%d)", int(t))
	}
}

// IsForced reports whether this build type ignores previously recorded up-to-date state.
func (t BuildType) IsForced() bool {
	return t == BuildTypeClean || t == BuildTypeForcedCompilation || t == BuildTypeProjectRebuild
}

// Valid reports whether t is one of the known build types.
func (t BuildType) Valid() bool {
	return t >= BuildTypeClean && t <= BuildTypeProjectRebuild
}

// TargetTypeScope is the part of a build request addressing targets of a single type.
type TargetTypeScope struct {
	TypeID     string   `json:"typeId" zap:"typeId"`
	AllTargets bool     `json:"allTargets" zap:"allTargets"`
	TargetIDs  []string `json:"targetIds" zap:"targetIds"`
	ForceBuild bool     `json:"forceBuild" zap:"forceBuild"`
}

// GlobalSettings are the controller-wide settings sent with a build request.
type GlobalSettings struct {
	PathVariables        map[string]string `json:"pathVariables" zap:"-"`
	Libraries            []GlobalLibrary   `json:"libraries" zap:"-"`
	SDKs                 []SdkLibrary      `json:"sdks" zap:"-"`
	DefaultEncoding      string            `json:"defaultEncoding" zap:"defaultEncoding"`
	IgnoredFilesPatterns string            `json:"ignoredFilesPatterns" zap:"ignoredFilesPatterns"`
	GlobalOptionsPath    string            `json:"globalOptionsPath" zap:"globalOptionsPath"`
}

// BuildParameters is the decoded payload of a BUILD_PARAMETERS request.
type BuildParameters struct {
	ProjectPath   string            `json:"projectPath" zap:"projectPath"`
	BuildType     BuildType         `json:"buildType" zap:"buildType"`
	Scopes        []TargetTypeScope `json:"scopes" zap:"scopes"`
	FilePaths     []string          `json:"filePaths" zap:"filePaths"`
	BuilderParams map[string]string `json:"builderParams" zap:"-"`
	Globals       GlobalSettings    `json:"globals" zap:"-"`
}

// IsWholeProject reports whether the request addresses the complete project:
// no explicit target ids, no explicit files, and every named target type requested in full.
func (p BuildParameters) IsWholeProject() bool {
	if len(p.FilePaths) > 0 {
		return false
	}
	for _, s := range p.Scopes {
		if !s.AllTargets || len(s.TargetIDs) > 0 {
			return false
		}
	}
	return true
}
