package protocol

import (
	"fmt"
	"math"

	"github.com/gofrs/uuid"
	"github.com/uber/incbuild/src/buildworker/internal/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the envelope and its nested messages.
const (
	messageSessionIDField  = 1
	messageKindField       = 2
	messageControllerField = 3
	messageBuilderField    = 4
	messageFailureField    = 5

	controllerTypeField    = 1
	controllerGlobalsField = 2
	controllerParamsField  = 3
	controllerFSEventField = 4

	globalsPathVariableField = 1
	globalsLibraryField      = 2
	globalsEncodingField     = 3
	globalsIgnoredField      = 4
	globalsOptionsPathField  = 5

	keyValueKeyField   = 1
	keyValueValueField = 2

	libraryNameField           = 1
	libraryPathField           = 2
	libraryTypeNameField       = 3
	libraryVersionField        = 4
	libraryHomePathField       = 5
	libraryAdditionalDataField = 6

	paramsBuildTypeField    = 1
	paramsScopeField        = 2
	paramsFilePathField     = 3
	paramsBuilderParamField = 4
	paramsProjectPathField  = 5

	scopeTypeIDField     = 1
	scopeAllTargetsField = 2
	scopeTargetIDField   = 3
	scopeForceBuildField = 4

	fsEventChangedField = 1
	fsEventDeletedField = 2

	builderTypeField    = 1
	builderEventField   = 2
	builderCompileField = 3

	eventTypeField          = 1
	eventDescriptionField   = 2
	eventStatusField        = 3
	eventGeneratedFileField = 4

	generatedOutputRootField   = 1
	generatedRelativePathField = 2

	compileKindField            = 1
	compileTextField            = 2
	compileSourcePathField      = 3
	compileProblemBeginField    = 4
	compileProblemEndField      = 5
	compileProblemLocationField = 6
	compileLineField            = 7
	compileColumnField          = 8
	compileDoneField            = 9

	failureDescriptionField = 1
	failureStacktraceField  = 2
)

// Marshal encodes the envelope.
func Marshal(m *Message) []byte {
	return MarshalAppend(nil, m)
}

// MarshalAppend appends the encoded envelope to b.
func MarshalAppend(b []byte, m *Message) []byte {
	if m.SessionID != uuid.Nil {
		b = appendBytes(b, messageSessionIDField, m.SessionID.Bytes())
	}
	b = appendVarint(b, messageKindField, uint64(m.Kind))
	if m.Controller != nil {
		b = appendNested(b, messageControllerField, m.Controller.marshal)
	}
	if m.Builder != nil {
		b = appendNested(b, messageBuilderField, m.Builder.marshal)
	}
	if m.Failure != nil {
		b = appendNested(b, messageFailureField, m.Failure.marshal)
	}
	return b
}

// Unmarshal decodes an envelope. Unknown fields are skipped, unknown enum values are kept as is.
func Unmarshal(b []byte) (*Message, error) {
	m := &Message{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case messageSessionIDField:
			var raw []byte
			n := consumeBytes(typ, b, &raw)
			if n > 0 {
				id, err := uuid.FromBytes(raw)
				if err != nil {
					return 0, fmt.Errorf("session id: %w", errors.ErrMalformedFrame)
				}
				m.SessionID = id
			}
			return n, nil
		case messageKindField:
			return consumeEnum(typ, b, (*int32)(&m.Kind)), nil
		case messageControllerField:
			m.Controller = &ControllerMessage{}
			return consumeNested(typ, b, m.Controller.unmarshal)
		case messageBuilderField:
			m.Builder = &BuilderMessage{}
			return consumeNested(typ, b, m.Builder.unmarshal)
		case messageFailureField:
			m.Failure = &Failure{}
			return consumeNested(typ, b, m.Failure.unmarshal)
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *ControllerMessage) marshal(b []byte) []byte {
	b = appendVarint(b, controllerTypeField, uint64(c.Type))
	if c.Globals != nil {
		b = appendNested(b, controllerGlobalsField, c.Globals.marshal)
	}
	if c.Params != nil {
		b = appendNested(b, controllerParamsField, c.Params.marshal)
	}
	if c.FSEvent != nil {
		b = appendNested(b, controllerFSEventField, c.FSEvent.marshal)
	}
	return b
}

func (c *ControllerMessage) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case controllerTypeField:
			return consumeEnum(typ, b, (*int32)(&c.Type)), nil
		case controllerGlobalsField:
			c.Globals = &GlobalSettings{}
			return consumeNested(typ, b, c.Globals.unmarshal)
		case controllerParamsField:
			c.Params = &ParametersMessage{}
			return consumeNested(typ, b, c.Params.unmarshal)
		case controllerFSEventField:
			c.FSEvent = &FSEvent{}
			return consumeNested(typ, b, c.FSEvent.unmarshal)
		}
		return 0, nil
	})
}

func (g *GlobalSettings) marshal(b []byte) []byte {
	for i := range g.PathVariables {
		b = appendNested(b, globalsPathVariableField, g.PathVariables[i].marshal)
	}
	for i := range g.Libraries {
		b = appendNested(b, globalsLibraryField, g.Libraries[i].marshal)
	}
	b = appendString(b, globalsEncodingField, g.GlobalEncoding)
	b = appendString(b, globalsIgnoredField, g.IgnoredFilesPatterns)
	b = appendString(b, globalsOptionsPathField, g.GlobalOptionsPath)
	return b
}

func (g *GlobalSettings) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case globalsPathVariableField:
			var kv KeyValue
			n, err := consumeNested(typ, b, kv.unmarshal)
			if n > 0 && err == nil {
				g.PathVariables = append(g.PathVariables, kv)
			}
			return n, err
		case globalsLibraryField:
			var lib Library
			n, err := consumeNested(typ, b, lib.unmarshal)
			if n > 0 && err == nil {
				g.Libraries = append(g.Libraries, lib)
			}
			return n, err
		case globalsEncodingField:
			return consumeString(typ, b, &g.GlobalEncoding), nil
		case globalsIgnoredField:
			return consumeString(typ, b, &g.IgnoredFilesPatterns), nil
		case globalsOptionsPathField:
			return consumeString(typ, b, &g.GlobalOptionsPath), nil
		}
		return 0, nil
	})
}

func (kv *KeyValue) marshal(b []byte) []byte {
	b = appendString(b, keyValueKeyField, kv.Key)
	return appendString(b, keyValueValueField, kv.Value)
}

func (kv *KeyValue) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case keyValueKeyField:
			return consumeString(typ, b, &kv.Key), nil
		case keyValueValueField:
			return consumeString(typ, b, &kv.Value), nil
		}
		return 0, nil
	})
}

func (l *Library) marshal(b []byte) []byte {
	b = appendString(b, libraryNameField, l.Name)
	for _, p := range l.Paths {
		b = appendRepeatedString(b, libraryPathField, p)
	}
	b = appendString(b, libraryTypeNameField, l.TypeName)
	b = appendString(b, libraryVersionField, l.Version)
	b = appendString(b, libraryHomePathField, l.HomePath)
	return appendString(b, libraryAdditionalDataField, l.AdditionalData)
}

func (l *Library) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case libraryNameField:
			return consumeString(typ, b, &l.Name), nil
		case libraryPathField:
			return consumeRepeatedString(typ, b, &l.Paths), nil
		case libraryTypeNameField:
			return consumeString(typ, b, &l.TypeName), nil
		case libraryVersionField:
			return consumeString(typ, b, &l.Version), nil
		case libraryHomePathField:
			return consumeString(typ, b, &l.HomePath), nil
		case libraryAdditionalDataField:
			return consumeString(typ, b, &l.AdditionalData), nil
		}
		return 0, nil
	})
}

func (p *ParametersMessage) marshal(b []byte) []byte {
	b = appendVarint(b, paramsBuildTypeField, uint64(p.BuildType))
	for i := range p.Scopes {
		b = appendNested(b, paramsScopeField, p.Scopes[i].marshal)
	}
	for _, path := range p.FilePaths {
		b = appendRepeatedString(b, paramsFilePathField, path)
	}
	for i := range p.BuilderParams {
		b = appendNested(b, paramsBuilderParamField, p.BuilderParams[i].marshal)
	}
	return appendString(b, paramsProjectPathField, p.ProjectPath)
}

func (p *ParametersMessage) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case paramsBuildTypeField:
			return consumeEnum(typ, b, &p.BuildType), nil
		case paramsScopeField:
			var s TargetTypeScope
			n, err := consumeNested(typ, b, s.unmarshal)
			if n > 0 && err == nil {
				p.Scopes = append(p.Scopes, s)
			}
			return n, err
		case paramsFilePathField:
			return consumeRepeatedString(typ, b, &p.FilePaths), nil
		case paramsBuilderParamField:
			var kv KeyValue
			n, err := consumeNested(typ, b, kv.unmarshal)
			if n > 0 && err == nil {
				p.BuilderParams = append(p.BuilderParams, kv)
			}
			return n, err
		case paramsProjectPathField:
			return consumeString(typ, b, &p.ProjectPath), nil
		}
		return 0, nil
	})
}

func (s *TargetTypeScope) marshal(b []byte) []byte {
	b = appendString(b, scopeTypeIDField, s.TypeID)
	b = appendBool(b, scopeAllTargetsField, s.AllTargets)
	for _, id := range s.TargetIDs {
		b = appendRepeatedString(b, scopeTargetIDField, id)
	}
	return appendBool(b, scopeForceBuildField, s.ForceBuild)
}

func (s *TargetTypeScope) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case scopeTypeIDField:
			return consumeString(typ, b, &s.TypeID), nil
		case scopeAllTargetsField:
			return consumeBool(typ, b, &s.AllTargets), nil
		case scopeTargetIDField:
			return consumeRepeatedString(typ, b, &s.TargetIDs), nil
		case scopeForceBuildField:
			return consumeBool(typ, b, &s.ForceBuild), nil
		}
		return 0, nil
	})
}

func (e *FSEvent) marshal(b []byte) []byte {
	for _, p := range e.Changed {
		b = appendRepeatedString(b, fsEventChangedField, p)
	}
	for _, p := range e.Deleted {
		b = appendRepeatedString(b, fsEventDeletedField, p)
	}
	return b
}

func (e *FSEvent) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fsEventChangedField:
			return consumeRepeatedString(typ, b, &e.Changed), nil
		case fsEventDeletedField:
			return consumeRepeatedString(typ, b, &e.Deleted), nil
		}
		return 0, nil
	})
}

func (m *BuilderMessage) marshal(b []byte) []byte {
	b = appendVarint(b, builderTypeField, uint64(m.Type))
	if m.Event != nil {
		b = appendNested(b, builderEventField, m.Event.marshal)
	}
	if m.Compile != nil {
		b = appendNested(b, builderCompileField, m.Compile.marshal)
	}
	return b
}

func (m *BuilderMessage) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case builderTypeField:
			return consumeEnum(typ, b, (*int32)(&m.Type)), nil
		case builderEventField:
			m.Event = &BuildEvent{}
			return consumeNested(typ, b, m.Event.unmarshal)
		case builderCompileField:
			m.Compile = &CompileMessage{}
			return consumeNested(typ, b, m.Compile.unmarshal)
		}
		return 0, nil
	})
}

func (e *BuildEvent) marshal(b []byte) []byte {
	b = appendVarint(b, eventTypeField, uint64(e.Type))
	b = appendString(b, eventDescriptionField, e.Description)
	b = appendVarint(b, eventStatusField, uint64(e.Status))
	for i := range e.GeneratedFiles {
		b = appendNested(b, eventGeneratedFileField, e.GeneratedFiles[i].marshal)
	}
	return b
}

func (e *BuildEvent) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case eventTypeField:
			return consumeEnum(typ, b, (*int32)(&e.Type)), nil
		case eventDescriptionField:
			return consumeString(typ, b, &e.Description), nil
		case eventStatusField:
			return consumeEnum(typ, b, (*int32)(&e.Status)), nil
		case eventGeneratedFileField:
			var f GeneratedFile
			n, err := consumeNested(typ, b, f.unmarshal)
			if n > 0 && err == nil {
				e.GeneratedFiles = append(e.GeneratedFiles, f)
			}
			return n, err
		}
		return 0, nil
	})
}

func (f *GeneratedFile) marshal(b []byte) []byte {
	b = appendString(b, generatedOutputRootField, f.OutputRoot)
	return appendString(b, generatedRelativePathField, f.RelativePath)
}

func (f *GeneratedFile) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case generatedOutputRootField:
			return consumeString(typ, b, &f.OutputRoot), nil
		case generatedRelativePathField:
			return consumeString(typ, b, &f.RelativePath), nil
		}
		return 0, nil
	})
}

func (c *CompileMessage) marshal(b []byte) []byte {
	b = appendVarint(b, compileKindField, uint64(c.Kind))
	b = appendString(b, compileTextField, c.Text)
	b = appendString(b, compileSourcePathField, c.SourceFilePath)
	b = appendVarint(b, compileProblemBeginField, uint64(c.ProblemBegin))
	b = appendVarint(b, compileProblemEndField, uint64(c.ProblemEnd))
	b = appendVarint(b, compileProblemLocationField, uint64(c.ProblemLocation))
	b = appendVarint(b, compileLineField, uint64(c.Line))
	b = appendVarint(b, compileColumnField, uint64(c.Column))
	if c.Done != 0 {
		b = protowire.AppendTag(b, compileDoneField, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(c.Done))
	}
	return b
}

func (c *CompileMessage) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case compileKindField:
			return consumeEnum(typ, b, (*int32)(&c.Kind)), nil
		case compileTextField:
			return consumeString(typ, b, &c.Text), nil
		case compileSourcePathField:
			return consumeString(typ, b, &c.SourceFilePath), nil
		case compileProblemBeginField:
			return consumeInt64(typ, b, &c.ProblemBegin), nil
		case compileProblemEndField:
			return consumeInt64(typ, b, &c.ProblemEnd), nil
		case compileProblemLocationField:
			return consumeInt64(typ, b, &c.ProblemLocation), nil
		case compileLineField:
			return consumeInt64(typ, b, &c.Line), nil
		case compileColumnField:
			return consumeInt64(typ, b, &c.Column), nil
		case compileDoneField:
			if typ != protowire.Fixed32Type {
				return 0, nil
			}
			v, n := protowire.ConsumeFixed32(b)
			if n > 0 {
				c.Done = math.Float32frombits(v)
			}
			return n, nil
		}
		return 0, nil
	})
}

func (f *Failure) marshal(b []byte) []byte {
	b = appendString(b, failureDescriptionField, f.Description)
	return appendString(b, failureStacktraceField, f.Stacktrace)
}

func (f *Failure) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case failureDescriptionField:
			return consumeString(typ, b, &f.Description), nil
		case failureStacktraceField:
			return consumeString(typ, b, &f.Stacktrace), nil
		}
		return 0, nil
	})
}
