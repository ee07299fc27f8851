package fs

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.NotNil(t, New())
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0644))

	fs := New()

	ok, err := fs.DirExists(dir)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.DirExists(file)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = fs.FileExists(file)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.FileExists(filepath.Join(dir, "missing"))
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = fs.DirExists(filepath.Join(dir, "missing"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteAndCopyFile(t *testing.T) {
	dir := t.TempDir()
	fs := New()

	src := filepath.Join(dir, "nested", "src.txt")
	require.NoError(t, fs.WriteFile(src, []byte("content")))

	dst := filepath.Join(dir, "out", "deeper", "dst.txt")
	require.NoError(t, fs.CopyFile(src, dst))

	data, err := fs.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	assert.Error(t, fs.CopyFile(dir, filepath.Join(dir, "copy")))
	assert.Error(t, fs.CopyFile(filepath.Join(dir, "missing"), dst))
}

func TestRemoveAllAndWalk(t *testing.T) {
	dir := t.TempDir()
	fs := New()

	require.NoError(t, fs.WriteFile(filepath.Join(dir, "root", "b.txt"), []byte("b")))
	require.NoError(t, fs.WriteFile(filepath.Join(dir, "root", "a", "c.txt"), []byte("c")))

	var files []string
	err := fs.Walk(filepath.Join(dir, "root"), func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, rel)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("root", "a", "c.txt"), filepath.Join("root", "b.txt")}, files)

	require.NoError(t, fs.RemoveAll(filepath.Join(dir, "root")))
	require.NoError(t, fs.RemoveAll(filepath.Join(dir, "root")))
	ok, err := fs.DirExists(filepath.Join(dir, "root"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateStatRemove(t *testing.T) {
	dir := t.TempDir()
	fs := New()

	f, err := fs.Create(filepath.Join(dir, "x"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := fs.Stat(filepath.Join(dir, "x"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	entries, err := fs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "y", "z")))
	assert.NoError(t, fs.Remove(filepath.Join(dir, "x")))
}
