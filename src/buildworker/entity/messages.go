package entity

// BuildStatus is the terminal status of a completed build.
type BuildStatus int

const (
	// StatusCanceled reports a build stopped by a cancel request.
	StatusCanceled BuildStatus = iota + 1
	// StatusErrors reports a build that produced at least one error.
	StatusErrors
	// StatusSuccess reports a build that compiled something without errors.
	StatusSuccess
	// StatusUpToDate reports a build that found nothing to do.
	StatusUpToDate
)

// String implements fmt.Stringer.
func (s BuildStatus) String() string {
	switch s {
	case StatusCanceled:
		return "CANCELED"
	case StatusErrors:
		return "ERRORS"
	case StatusSuccess:
		return "SUCCESS"
	case StatusUpToDate:
		return "UP_TO_DATE"
	default:
		return "UNKNOWN"
	}
}

// MessageKind is the severity of a compiler message.
type MessageKind int

const (
	KindError MessageKind = iota + 1
	KindWarning
	KindInfo
	KindProgress
	KindOther
)

// NoProgress is the fraction reported when a progress message carries none.
const NoProgress float32 = -1

// BuildMessage is an event emitted by the build engine.
type BuildMessage interface {
	isBuildMessage()
}

// CompilerMessage is a diagnostic reported by a builder.
type CompilerMessage struct {
	BuilderName     string
	Kind            MessageKind
	Text            string
	SourcePath      string
	ProblemBegin    int64
	ProblemEnd      int64
	ProblemLocation int64
	Line            int64
	Column          int64
}

// ProgressMessage reports build progress; Done is NoProgress when no fraction is known.
type ProgressMessage struct {
	Text string
	Done float32
}

// GeneratedFile is an output written by a builder.
type GeneratedFile struct {
	OutputRoot   string
	RelativePath string
}

// FilesGeneratedMessage reports outputs written by a builder.
type FilesGeneratedMessage struct {
	Files []GeneratedFile
}

// FilesMarkedUpToDateMessage reports that the engine recorded up-to-date state for some files.
type FilesMarkedUpToDateMessage struct {
	Target Target
	Count  int
}

func (CompilerMessage) isBuildMessage()            {}
func (ProgressMessage) isBuildMessage()            {}
func (FilesGeneratedMessage) isBuildMessage()      {}
func (FilesMarkedUpToDateMessage) isBuildMessage() {}

// MessageSink receives messages emitted during a build. Implementations must be safe for concurrent use.
type MessageSink interface {
	ProcessMessage(msg BuildMessage)
}

// CanceledStatus is polled by long-running work to observe cooperative cancellation.
type CanceledStatus interface {
	IsCanceled() bool
}

// MessageSinkFunc adapts a function to MessageSink.
type MessageSinkFunc func(msg BuildMessage)

// ProcessMessage implements MessageSink.
func (f MessageSinkFunc) ProcessMessage(msg BuildMessage) { f(msg) }
