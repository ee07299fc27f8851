package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.uber.org/fx"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// WorkerFS wraps the filesystem operations used by the build worker.
type WorkerFS interface {
	MkdirAll(path string) error
	DirExists(path string) (bool, error)
	FileExists(path string) (bool, error)
	Stat(name string) (iofs.FileInfo, error)
	ReadDir(name string) ([]iofs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	CopyFile(src, dst string) error
	Create(name string) (*os.File, error)
	Remove(name string) error
	RemoveAll(path string) error
	Walk(root string, fn iofs.WalkDirFunc) error
}

type fsImpl struct{}

// New creates a new WorkerFS.
func New() WorkerFS {
	return fsImpl{}
}

// MkdirAll creates a directory and all its parents.
func (fsImpl) MkdirAll(path string) error { return os.MkdirAll(path, os.ModePerm) }

func (fsImpl) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (fsImpl) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (fsImpl) Stat(name string) (iofs.FileInfo, error) {
	return os.Stat(name)
}

// ReadDir reads all the items in a directory (non-recursive)
func (fsImpl) ReadDir(name string) ([]iofs.DirEntry, error) {
	return os.ReadDir(name)
}

func (fsImpl) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFile writes data to name, creating missing parent directories.
func (fsImpl) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(name, data, 0644)
}

// CopyFile copies the content and mode of src to dst, creating missing parent directories of dst.
func (f fsImpl) CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("cannot copy a directory: " + src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}

func (fsImpl) Create(name string) (*os.File, error) {
	return os.Create(name)
}

func (fsImpl) Remove(name string) error {
	return os.Remove(name)
}

// RemoveAll removes path and any children it contains. A missing path is not an error.
func (fsImpl) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Walk walks the file tree rooted at root in lexical order.
func (fsImpl) Walk(root string, fn iofs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}
