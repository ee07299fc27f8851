// Package protocol implements the framed wire protocol spoken between the build controller and the worker.
package protocol

import (
	"strconv"

	"github.com/gofrs/uuid"
)

// MessageKind discriminates the message family carried by an envelope.
type MessageKind int32

const (
	KindControllerMessage MessageKind = 1
	KindBuilderMessage    MessageKind = 2
	KindFailure           MessageKind = 3
)

// Message is the envelope of every frame.
type Message struct {
	SessionID  uuid.UUID
	Kind       MessageKind
	Controller *ControllerMessage
	Builder    *BuilderMessage
	Failure    *Failure
}

// ControllerMessageType tags messages sent by the controller. Values not listed are preserved on decode.
type ControllerMessageType int32

const (
	ControllerBuildParameters    ControllerMessageType = 1
	ControllerCancelBuildCommand ControllerMessageType = 2
	ControllerFSEvent            ControllerMessageType = 3
)

// String implements fmt.Stringer.
func (t ControllerMessageType) String() string {
	switch t {
	case ControllerBuildParameters:
		return "BUILD_PARAMETERS"
	case ControllerCancelBuildCommand:
		return "CANCEL_BUILD_COMMAND"
	case ControllerFSEvent:
		return "FS_EVENT"
	default:
		return strconv.Itoa(int(t))
	}
}

// ControllerMessage is a message sent from the controller to the worker.
type ControllerMessage struct {
	Type    ControllerMessageType
	Globals *GlobalSettings
	Params  *ParametersMessage
	FSEvent *FSEvent
}

// KeyValue is a string pair.
type KeyValue struct {
	Key   string
	Value string
}

// Library is a global library; it describes an SDK when TypeName is set.
type Library struct {
	Name           string
	Paths          []string
	TypeName       string
	Version        string
	HomePath       string
	AdditionalData string
}

// GlobalSettings carries controller-wide configuration.
type GlobalSettings struct {
	PathVariables        []KeyValue
	Libraries            []Library
	GlobalEncoding       string
	IgnoredFilesPatterns string
	GlobalOptionsPath    string
}

// TargetTypeScope addresses targets of one type.
type TargetTypeScope struct {
	TypeID     string
	AllTargets bool
	TargetIDs  []string
	ForceBuild bool
}

// ParametersMessage describes the requested build.
type ParametersMessage struct {
	BuildType     int32
	Scopes        []TargetTypeScope
	FilePaths     []string
	BuilderParams []KeyValue
	ProjectPath   string
}

// FSEvent reports files changed or deleted on the controller side.
type FSEvent struct {
	Changed []string
	Deleted []string
}

// BuilderMessageType tags messages sent by the worker.
type BuilderMessageType int32

const (
	BuilderParametersRequest BuilderMessageType = 1
	BuilderBuildEvent        BuilderMessageType = 2
	BuilderCompileMessage    BuilderMessageType = 3
)

// BuilderMessage is a message sent from the worker to the controller.
type BuilderMessage struct {
	Type    BuilderMessageType
	Event   *BuildEvent
	Compile *CompileMessage
}

// BuildEventType tags build events.
type BuildEventType int32

const (
	EventBuildCompleted BuildEventType = 1
	EventFilesGenerated BuildEventType = 2
)

// BuildStatus values match entity.BuildStatus.
type BuildStatus int32

const (
	StatusCanceled BuildStatus = 1
	StatusErrors   BuildStatus = 2
	StatusSuccess  BuildStatus = 3
	StatusUpToDate BuildStatus = 4
)

// GeneratedFile is an output written by the build.
type GeneratedFile struct {
	OutputRoot   string
	RelativePath string
}

// BuildEvent reports build completion or generated files.
type BuildEvent struct {
	Type           BuildEventType
	Description    string
	Status         BuildStatus
	GeneratedFiles []GeneratedFile
}

// CompileMessageKind is the severity of a compile message.
type CompileMessageKind int32

const (
	CompileError    CompileMessageKind = 1
	CompileWarning  CompileMessageKind = 2
	CompileInfo     CompileMessageKind = 3
	CompileProgress CompileMessageKind = 4
	CompileOther    CompileMessageKind = 5
)

// CompileMessage carries diagnostics and progress.
type CompileMessage struct {
	Kind            CompileMessageKind
	Text            string
	SourceFilePath  string
	ProblemBegin    int64
	ProblemEnd      int64
	ProblemLocation int64
	Line            int64
	Column          int64
	Done            float32
}

// Failure reports an internal error or a rejected request.
type Failure struct {
	Description string
	Stacktrace  string
}
