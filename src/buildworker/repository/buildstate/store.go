// Package buildstate persists the incremental build state of a project in bbolt databases.
package buildstate

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	_metaBucket = "meta"
	_versionKey = "version"
)

// Options tune how stores are opened.
type Options struct {
	// LockTimeout bounds the wait for the file lock of a database held by another process.
	LockTimeout time.Duration
}

// db is a bbolt database stamped with a format version.
type db struct {
	name           string
	path           string
	bolt           *bbolt.DB
	versionDiffers bool
	found          int
}

// openDB opens or creates the database at path. A fresh database is stamped with version; an existing one
// records whether its stamp differs.
func openDB(name, path string, version int, opts Options) (*db, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	bolt, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: opts.LockTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", name, err)
	}

	d := &db{name: name, path: path, bolt: bolt, found: version}
	err = bolt.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(_metaBucket))
		if err != nil {
			return err
		}
		stored := meta.Get([]byte(_versionKey))
		if stored == nil {
			return meta.Put([]byte(_versionKey), encodeVersion(version))
		}
		if len(stored) != 8 {
			return fmt.Errorf("invalid version stamp of %d bytes", len(stored))
		}
		d.found = int(binary.BigEndian.Uint64(stored))
		d.versionDiffers = d.found != version
		return nil
	})
	if err != nil {
		bolt.Close()
		return nil, fmt.Errorf("failed to read %s version: %w", name, err)
	}
	return d, nil
}

func encodeVersion(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func (d *db) close() error {
	if d.bolt == nil {
		return nil
	}
	err := d.bolt.Close()
	d.bolt = nil
	return err
}

// bucket returns the top-level bucket holding data of one target, creating it in writable transactions.
func bucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	if tx.Writable() {
		return tx.CreateBucketIfNotExists([]byte(name))
	}
	return tx.Bucket([]byte(name)), nil
}

func deleteBucket(tx *bbolt.Tx, name string) error {
	err := tx.DeleteBucket([]byte(name))
	if err == bbolt.ErrBucketNotFound {
		return nil
	}
	return err
}
