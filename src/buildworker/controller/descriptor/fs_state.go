package descriptor

import (
	"path/filepath"
	"sort"
	"sync"
)

// FSState is the in-memory record of files changed since they were last built.
// It survives between builds only while the descriptor holding it stays open.
type FSState struct {
	mu      sync.Mutex
	dirty   map[string]struct{}
	deleted map[string]struct{}
}

// NewFSState creates an empty FSState.
func NewFSState() *FSState {
	return &FSState{
		dirty:   make(map[string]struct{}),
		deleted: make(map[string]struct{}),
	}
}

// MarkDirty records that file changed.
func (s *FSState) MarkDirty(file string) {
	file = filepath.Clean(file)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleted, file)
	s.dirty[file] = struct{}{}
}

// MarkDeleted records that file was removed.
func (s *FSState) MarkDeleted(file string) {
	file = filepath.Clean(file)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirty, file)
	s.deleted[file] = struct{}{}
}

// IsMarkedDirty reports whether file was recorded as changed.
func (s *FSState) IsMarkedDirty(file string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[filepath.Clean(file)]
	return ok
}

// Clear forgets file once it was built or its removal processed.
func (s *FSState) Clear(file string) {
	file = filepath.Clean(file)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirty, file)
	delete(s.deleted, file)
}

// Deleted returns the files recorded as removed, sorted.
func (s *FSState) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := make([]string, 0, len(s.deleted))
	for f := range s.deleted {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Len returns the number of recorded changes.
func (s *FSState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) + len(s.deleted)
}
