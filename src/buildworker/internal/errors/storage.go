package errors

import (
	stderr "errors"
	"fmt"
)

// StorageOpenError indicates that an on-disk build-state store could not be opened.
type StorageOpenError struct {
	Store string
	Path  string
	Cause error
}

// Error is an implementation of the error interface.
func (e *StorageOpenError) Error() string {
	return fmt.Sprintf("opening %s store at %q: %v", e.Store, e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageOpenError) Unwrap() error {
	return e.Cause
}

// VersionMismatchError indicates that a store was written by an incompatible format version.
type VersionMismatchError struct {
	Store    string
	Expected int
	Found    int
}

// Error is an implementation of the error interface.
func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("%s store format version differs: expected %d, found %d", e.Store, e.Expected, e.Found)
}

// IsStorageFailure reports whether the error chain contains a store open failure or a version mismatch.
// These are the failures that are recovered by discarding the build state.
func IsStorageFailure(e error) bool {
	var openErr *StorageOpenError
	var versionErr *VersionMismatchError
	return stderr.As(e, &openErr) || stderr.As(e, &versionErr)
}
