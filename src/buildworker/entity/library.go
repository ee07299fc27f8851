package entity

// Library is a named set of classpath entries defined outside the project.
type Library interface {
	LibraryName() string
	Classpath() []string
}

// GlobalLibrary is a library defined in the controller's global settings.
type GlobalLibrary struct {
	Name  string   `json:"name" yaml:"name"`
	Paths []string `json:"paths" yaml:"paths"`
}

// LibraryName implements Library.
func (l GlobalLibrary) LibraryName() string { return l.Name }

// Classpath implements Library.
func (l GlobalLibrary) Classpath() []string { return l.Paths }

// SdkLibrary is a global library describing an SDK installation.
type SdkLibrary struct {
	GlobalLibrary

	TypeName string `json:"typeName" yaml:"typeName"`
	Version  string `json:"version" yaml:"version"`
	HomePath string `json:"homePath" yaml:"homePath"`
	// AdditionalData is an optional vendor specific XML blob, carried verbatim.
	AdditionalData string `json:"additionalData,omitempty" yaml:"additionalData"`
}

// IsResolved reports whether the SDK has both a version and a home path.
func (s SdkLibrary) IsResolved() bool {
	return s.Version != "" && s.HomePath != ""
}

var (
	_ Library = GlobalLibrary{}
	_ Library = SdkLibrary{}
)
