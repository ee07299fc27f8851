package index

import (
	"path/filepath"

	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
)

// ExcludeIndex answers whether a path was excluded from the build. Module outputs are always excluded.
type ExcludeIndex struct {
	excluded []string
}

// NewExcludeIndex collects the excluded directories of project.
func NewExcludeIndex(project *projectmodel.Project) *ExcludeIndex {
	ei := &ExcludeIndex{}
	for _, m := range project.Modules {
		ei.excluded = append(ei.excluded, m.Excludes...)
		ei.excluded = append(ei.excluded, m.Output, m.TestOutput)
	}
	return ei
}

// IsExcluded reports whether path lies under an excluded directory.
func (ei *ExcludeIndex) IsExcluded(path string) bool {
	path = filepath.Clean(path)
	for _, dir := range ei.excluded {
		if dir != "" && IsAncestor(dir, path) {
			return true
		}
	}
	return false
}
