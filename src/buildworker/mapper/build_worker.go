// Package mapper converts between wire messages and worker entities.
package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/protocol"
	"go.lsp.dev/uri"
)

const _fileScheme = uri.FileScheme + "://"

// ProtocolToBuildParameters maps a BUILD_PARAMETERS message to its entity equivalent.
// Requested paths given as file URIs are converted to file paths.
func ProtocolToBuildParameters(msg *protocol.ControllerMessage) (entity.BuildParameters, error) {
	if msg == nil || msg.Params == nil {
		return entity.BuildParameters{}, errors.New("build parameters message without parameters")
	}
	p := msg.Params

	buildType := entity.BuildType(p.BuildType)
	if !buildType.Valid() {
		return entity.BuildParameters{}, fmt.Errorf("unknown build type %d", p.BuildType)
	}

	projectPath, err := RequestPathToFile(p.ProjectPath)
	if err != nil {
		return entity.BuildParameters{}, fmt.Errorf("project path: %w", err)
	}

	params := entity.BuildParameters{
		ProjectPath:   projectPath,
		BuildType:     buildType,
		BuilderParams: keyValuesToMap(p.BuilderParams),
		Globals:       ProtocolToGlobalSettings(msg.Globals),
	}
	for _, s := range p.Scopes {
		params.Scopes = append(params.Scopes, entity.TargetTypeScope{
			TypeID:     s.TypeID,
			AllTargets: s.AllTargets,
			TargetIDs:  s.TargetIDs,
			ForceBuild: s.ForceBuild,
		})
	}
	for _, f := range p.FilePaths {
		path, err := RequestPathToFile(f)
		if err != nil {
			return entity.BuildParameters{}, fmt.Errorf("file path: %w", err)
		}
		params.FilePaths = append(params.FilePaths, path)
	}
	return params, nil
}

// ProtocolToGlobalSettings maps global settings. Libraries carrying a type name are SDKs.
func ProtocolToGlobalSettings(g *protocol.GlobalSettings) entity.GlobalSettings {
	if g == nil {
		return entity.GlobalSettings{}
	}
	settings := entity.GlobalSettings{
		PathVariables:        keyValuesToMap(g.PathVariables),
		DefaultEncoding:      g.GlobalEncoding,
		IgnoredFilesPatterns: g.IgnoredFilesPatterns,
		GlobalOptionsPath:    g.GlobalOptionsPath,
	}
	for _, l := range g.Libraries {
		lib := entity.GlobalLibrary{Name: l.Name, Paths: l.Paths}
		if l.TypeName == "" {
			settings.Libraries = append(settings.Libraries, lib)
			continue
		}
		settings.SDKs = append(settings.SDKs, entity.SdkLibrary{
			GlobalLibrary:  lib,
			TypeName:       l.TypeName,
			Version:        l.Version,
			HomePath:       l.HomePath,
			AdditionalData: l.AdditionalData,
		})
	}
	return settings
}

// ProtocolToFSEvent returns the changed and deleted file paths of an FS_EVENT message.
func ProtocolToFSEvent(msg *protocol.ControllerMessage) (changed, deleted []string, err error) {
	if msg == nil || msg.FSEvent == nil {
		return nil, nil, errors.New("file system event message without event")
	}
	if changed, err = requestPathsToFiles(msg.FSEvent.Changed); err != nil {
		return nil, nil, fmt.Errorf("changed file: %w", err)
	}
	if deleted, err = requestPathsToFiles(msg.FSEvent.Deleted); err != nil {
		return nil, nil, fmt.Errorf("deleted file: %w", err)
	}
	return changed, deleted, nil
}

func requestPathsToFiles(paths []string) ([]string, error) {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		f, err := RequestPathToFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// RequestPathToFile returns the file path named by p, a plain path or a file URI.
func RequestPathToFile(p string) (string, error) {
	if !strings.HasPrefix(p, _fileScheme) {
		return p, nil
	}
	u, err := uri.Parse(p)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", p, err)
	}
	return u.Filename(), nil
}

// CompilerMessageToProtocol maps a compiler diagnostic; the builder name prefixes the text.
func CompilerMessageToProtocol(m entity.CompilerMessage) *protocol.BuilderMessage {
	text := m.Text
	if m.BuilderName != "" {
		text = m.BuilderName + ": " + text
	}
	return &protocol.BuilderMessage{
		Type: protocol.BuilderCompileMessage,
		Compile: &protocol.CompileMessage{
			Kind:            messageKindToProtocol(m.Kind),
			Text:            text,
			SourceFilePath:  m.SourcePath,
			ProblemBegin:    m.ProblemBegin,
			ProblemEnd:      m.ProblemEnd,
			ProblemLocation: m.ProblemLocation,
			Line:            m.Line,
			Column:          m.Column,
		},
	}
}

// ProgressToProtocol maps a progress message. A message without fraction carries entity.NoProgress.
func ProgressToProtocol(m entity.ProgressMessage) *protocol.BuilderMessage {
	return &protocol.BuilderMessage{
		Type: protocol.BuilderCompileMessage,
		Compile: &protocol.CompileMessage{
			Kind: protocol.CompileProgress,
			Text: m.Text,
			Done: m.Done,
		},
	}
}

// InfoToProtocol returns an informational compile message.
func InfoToProtocol(text string) *protocol.BuilderMessage {
	return CompilerMessageToProtocol(entity.CompilerMessage{
		Kind:            entity.KindInfo,
		Text:            text,
		ProblemBegin:    -1,
		ProblemEnd:      -1,
		ProblemLocation: -1,
		Line:            -1,
		Column:          -1,
	})
}

// FilesGeneratedToProtocol maps generated outputs to a FILES_GENERATED event.
func FilesGeneratedToProtocol(m entity.FilesGeneratedMessage) *protocol.BuilderMessage {
	files := make([]protocol.GeneratedFile, 0, len(m.Files))
	for _, f := range m.Files {
		files = append(files, protocol.GeneratedFile{OutputRoot: f.OutputRoot, RelativePath: f.RelativePath})
	}
	return &protocol.BuilderMessage{
		Type: protocol.BuilderBuildEvent,
		Event: &protocol.BuildEvent{
			Type:           protocol.EventFilesGenerated,
			GeneratedFiles: files,
		},
	}
}

// BuildCompletedToProtocol returns the terminal BUILD_COMPLETED event for status.
func BuildCompletedToProtocol(status entity.BuildStatus) *protocol.BuilderMessage {
	return &protocol.BuilderMessage{
		Type: protocol.BuilderBuildEvent,
		Event: &protocol.BuildEvent{
			Type:        protocol.EventBuildCompleted,
			Description: "build completed: " + status.String(),
			Status:      protocol.BuildStatus(status),
		},
	}
}

// ErrorToFailure describes err for the controller. The description names the type and message of the cause one
// level below err, when there is one. stack, when empty, is replaced by the chain of wrapped messages.
func ErrorToFailure(err error, stack string) *protocol.Failure {
	cause := errors.Unwrap(err)
	if cause == nil {
		cause = err
	}
	if stack == "" {
		stack = errorChain(err)
	}
	return &protocol.Failure{
		Description: fmt.Sprintf("%T: %s", cause, cause.Error()),
		Stacktrace:  stack,
	}
}

func errorChain(err error) string {
	var b strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		if b.Len() > 0 {
			b.WriteString("\ncaused by: ")
		}
		fmt.Fprintf(&b, "%T: %s", e, e.Error())
	}
	return b.String()
}

func messageKindToProtocol(k entity.MessageKind) protocol.CompileMessageKind {
	switch k {
	case entity.KindError:
		return protocol.CompileError
	case entity.KindWarning:
		return protocol.CompileWarning
	case entity.KindInfo:
		return protocol.CompileInfo
	case entity.KindProgress:
		return protocol.CompileProgress
	default:
		return protocol.CompileOther
	}
}

func keyValuesToMap(kvs []protocol.KeyValue) map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}
