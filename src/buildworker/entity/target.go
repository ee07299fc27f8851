package entity

import "fmt"

// TargetType identifies a kind of buildable unit.
type TargetType struct {
	ID    string `json:"id" zap:"id"`
	Tests bool   `json:"tests" zap:"tests"`
}

var (
	// TargetTypeProduction covers the production sources and resources of a module.
	TargetTypeProduction = TargetType{ID: "module-production"}
	// TargetTypeTests covers the test sources and resources of a module.
	TargetTypeTests = TargetType{ID: "module-tests", Tests: true}

	// AllTargetTypes lists every target type known to the worker.
	AllTargetTypes = []TargetType{TargetTypeProduction, TargetTypeTests}
)

// TargetTypeByID returns the target type with the given id.
func TargetTypeByID(id string) (TargetType, bool) {
	for _, t := range AllTargetTypes {
		if t.ID == id {
			return t, true
		}
	}
	return TargetType{}, false
}

// Target is a buildable unit identified by its type and id.
type Target struct {
	Type TargetType `json:"type" zap:"type"`
	ID   string     `json:"id" zap:"id"`
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Type.ID, t.ID)
}

// Key returns a stable key used to address the target in on-disk stores.
func (t Target) Key() string {
	return t.String()
}

// RootKind is the kind of content held by a build root.
type RootKind int

const (
	// RootKindSource holds sources processed by the module's builder.
	RootKindSource RootKind = iota
	// RootKindResource holds files copied to the output as is.
	RootKindResource
)

// String implements fmt.Stringer.
func (k RootKind) String() string {
	if k == RootKindResource {
		return "resource"
	}
	return "source"
}

// BuildRootDescriptor is a directory contributing files to a target.
type BuildRootDescriptor struct {
	Root      string   `json:"root" zap:"root"`
	Target    Target   `json:"target" zap:"target"`
	Kind      RootKind `json:"kind" zap:"kind"`
	Generated bool     `json:"generated" zap:"generated"`
}
