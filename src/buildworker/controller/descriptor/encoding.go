package descriptor

import (
	"path/filepath"

	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/index"
)

// EncodingConfiguration resolves the character encoding of project files.
type EncodingConfiguration struct {
	perPath        map[string]string
	projectDefault string
	roots          *index.RootIndex
}

func newEncodingConfiguration(perPath map[string]string, projectDefault string, roots *index.RootIndex) *EncodingConfiguration {
	return &EncodingConfiguration{perPath: perPath, projectDefault: projectDefault, roots: roots}
}

// ForFile returns the encoding of the closest configured ancestor of file, or the project default.
func (c *EncodingConfiguration) ForFile(file string) string {
	file = filepath.Clean(file)
	best, bestLen := c.projectDefault, -1
	for path, enc := range c.perPath {
		if len(path) > bestLen && index.IsAncestor(path, file) {
			best, bestLen = enc, len(path)
		}
	}
	return best
}

// ForTarget returns the encoding shared by every configured path under the roots of target.
// When the paths disagree, or none is configured, the project default is returned.
func (c *EncodingConfiguration) ForTarget(target entity.Target) string {
	found := ""
	for _, root := range c.roots.RootsOf(target) {
		for path, enc := range c.perPath {
			if !index.IsAncestor(root.Root, path) && !index.IsAncestor(path, root.Root) {
				continue
			}
			if found != "" && found != enc {
				return c.projectDefault
			}
			found = enc
		}
	}
	if found == "" {
		return c.projectDefault
	}
	return found
}
