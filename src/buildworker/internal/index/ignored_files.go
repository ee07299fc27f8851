package index

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/multierr"
)

// IgnoredFiles matches file names against ';' separated glob patterns, e.g. "*.orig;.git;*~".
type IgnoredFiles struct {
	patterns []glob.Glob
}

// NewIgnoredFiles compiles patterns. Invalid patterns are skipped and reported.
func NewIgnoredFiles(patterns string) (*IgnoredFiles, error) {
	var (
		m   IgnoredFiles
		err error
	)
	for _, p := range strings.Split(patterns, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, compileErr := glob.Compile(p)
		if compileErr != nil {
			err = multierr.Append(err, compileErr)
			continue
		}
		m.patterns = append(m.patterns, g)
	}
	return &m, err
}

// IsIgnored reports whether the last element of path matches one of the patterns.
func (m *IgnoredFiles) IsIgnored(path string) bool {
	name := filepath.Base(path)
	for _, g := range m.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}
