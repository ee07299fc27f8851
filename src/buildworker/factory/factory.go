// Package factory builds sample values for tests.
package factory

import (
	"github.com/gofrs/uuid"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// LaunchArgs returns launch arguments for a new session storing its state in stateDir.
func LaunchArgs(stateDir string) entity.LaunchArgs {
	return entity.LaunchArgs{
		Host:      "localhost",
		Port:      7070,
		SessionID: UUID(),
		StateDir:  stateDir,
	}
}

// ProductionScope addresses the production targets of the named modules, or all of them when none is named.
func ProductionScope(moduleIDs ...string) protocol.TargetTypeScope {
	return protocol.TargetTypeScope{
		TypeID:     entity.TargetTypeProduction.ID,
		AllTargets: len(moduleIDs) == 0,
		TargetIDs:  moduleIDs,
	}
}

// BuildParametersMessage is a factory for a BUILD_PARAMETERS request.
func BuildParametersMessage(projectPath string, buildType entity.BuildType, scopes ...protocol.TargetTypeScope) *protocol.ControllerMessage {
	return &protocol.ControllerMessage{
		Type:    protocol.ControllerBuildParameters,
		Globals: &protocol.GlobalSettings{GlobalEncoding: "UTF-8"},
		Params: &protocol.ParametersMessage{
			BuildType:   int32(buildType),
			ProjectPath: projectPath,
			Scopes:      scopes,
		},
	}
}

// Envelope wraps a controller message for the given session.
func Envelope(sessionID uuid.UUID, msg *protocol.ControllerMessage) *protocol.Message {
	return &protocol.Message{SessionID: sessionID, Kind: protocol.KindControllerMessage, Controller: msg}
}

// CompilerError is a factory for an error reported by builder.
func CompilerError(builder, text string) entity.CompilerMessage {
	return entity.CompilerMessage{
		BuilderName:     builder,
		Kind:            entity.KindError,
		Text:            text,
		ProblemBegin:    -1,
		ProblemEnd:      -1,
		ProblemLocation: -1,
		Line:            -1,
		Column:          -1,
	}
}
