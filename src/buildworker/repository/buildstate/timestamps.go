package buildstate

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/uber/incbuild/src/buildworker/entity"
	"go.etcd.io/bbolt"
)

const (
	// TimestampsFileName is the database file of the timestamp store.
	TimestampsFileName = "timestamps.db"
	// TimestampsVersion is the format version of the timestamp store.
	TimestampsVersion = 3

	_timestampsStore = "timestamp"
	_stampsPrefix    = "stamps:"
)

// Stamp is the state of a source file when it was last built.
type Stamp struct {
	ModTime int64 `json:"modTime"`
	Length  int64 `json:"length"`
	// Dirty forces the file to be rebuilt regardless of ModTime and Length.
	Dirty bool `json:"dirty,omitempty"`
}

// Matches reports whether the file's current state equals the recorded one.
func (s Stamp) Matches(current Stamp) bool {
	return !s.Dirty && s.ModTime == current.ModTime && s.Length == current.Length
}

// TimestampStore records per-target stamps of built files.
type TimestampStore interface {
	// Stamp records the current state of file as up to date.
	Stamp(target entity.Target, file string, current Stamp) error
	// IsDirty reports whether file needs to be built: it was never stamped, was marked dirty, or changed.
	IsDirty(target entity.Target, file string, current Stamp) (bool, error)
	// MarkDirty forces file to be rebuilt by the next build of target.
	MarkDirty(target entity.Target, file string) error
	// Remove forgets file.
	Remove(target entity.Target, file string) error
	// Files returns every file known for target.
	Files(target entity.Target) ([]string, error)
	// Clean forgets every file of target.
	Clean(target entity.Target) error
	// VersionDiffers reports whether the database was written by another format version.
	VersionDiffers() bool
	Close() error
}

type timestampStore struct {
	db *db
}

// OpenTimestamps opens or creates the timestamp store in dir.
func OpenTimestamps(dir string, opts Options) (TimestampStore, error) {
	return openTimestamps(dir, opts)
}

func openTimestamps(dir string, opts Options) (*timestampStore, error) {
	d, err := openDB(_timestampsStore, filepath.Join(dir, TimestampsFileName), TimestampsVersion, opts)
	if err != nil {
		return nil, err
	}
	return &timestampStore{db: d}, nil
}

func (s *timestampStore) Stamp(target entity.Target, file string, current Stamp) error {
	current.Dirty = false
	return s.put(target, file, current)
}

func (s *timestampStore) IsDirty(target entity.Target, file string, current Stamp) (bool, error) {
	stamp, ok, err := s.get(target, file)
	if err != nil {
		return false, err
	}
	return !ok || !stamp.Matches(current), nil
}

func (s *timestampStore) MarkDirty(target entity.Target, file string) error {
	return s.db.bolt.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, _stampsPrefix+target.Key())
		if err != nil {
			return err
		}
		var stamp Stamp
		if data := b.Get([]byte(file)); data != nil {
			if err := json.Unmarshal(data, &stamp); err != nil {
				return fmt.Errorf("decoding stamp of %s: %w", file, err)
			}
		}
		stamp.Dirty = true
		return putJSON(b, file, stamp)
	})
}

func (s *timestampStore) Remove(target entity.Target, file string) error {
	return s.db.bolt.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, _stampsPrefix+target.Key())
		if err != nil {
			return err
		}
		return b.Delete([]byte(file))
	})
}

func (s *timestampStore) Files(target entity.Target) ([]string, error) {
	var files []string
	err := s.db.bolt.View(func(tx *bbolt.Tx) error {
		b, _ := bucket(tx, _stampsPrefix+target.Key())
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			files = append(files, string(k))
			return nil
		})
	})
	return files, err
}

func (s *timestampStore) Clean(target entity.Target) error {
	return s.db.bolt.Update(func(tx *bbolt.Tx) error {
		return deleteBucket(tx, _stampsPrefix+target.Key())
	})
}

func (s *timestampStore) VersionDiffers() bool {
	return s.db.versionDiffers
}

func (s *timestampStore) Close() error {
	return s.db.close()
}

func (s *timestampStore) put(target entity.Target, file string, stamp Stamp) error {
	return s.db.bolt.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, _stampsPrefix+target.Key())
		if err != nil {
			return err
		}
		return putJSON(b, file, stamp)
	})
}

func (s *timestampStore) get(target entity.Target, file string) (stamp Stamp, ok bool, err error) {
	err = s.db.bolt.View(func(tx *bbolt.Tx) error {
		b, _ := bucket(tx, _stampsPrefix+target.Key())
		if b == nil {
			return nil
		}
		data := b.Get([]byte(file))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &stamp)
	})
	return stamp, ok, err
}

func putJSON(b *bbolt.Bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}
