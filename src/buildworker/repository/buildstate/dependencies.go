package buildstate

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/uber/incbuild/src/buildworker/entity"
	"go.etcd.io/bbolt"
)

const (
	// DependenciesFileName is the database file of the dependency-data store.
	DependenciesFileName = "dependencies.db"
	// DependenciesVersion is the format version of the dependency-data store.
	DependenciesVersion = 2

	_dependenciesStore = "dependency"
	_outputsPrefix     = "outputs:"
)

// DependencyStore records which outputs were produced from which sources.
type DependencyStore interface {
	// SetOutputs replaces the outputs recorded for source.
	SetOutputs(target entity.Target, source string, outputs []string) error
	// Outputs returns the outputs recorded for source.
	Outputs(target entity.Target, source string) ([]string, error)
	// Sources returns every source with recorded outputs, sorted.
	Sources(target entity.Target) ([]string, error)
	// RemoveSource forgets source and returns the outputs that were recorded for it.
	RemoveSource(target entity.Target, source string) ([]string, error)
	// Clean forgets every source of target.
	Clean(target entity.Target) error
	// VersionDiffers reports whether the database was written by another format version.
	VersionDiffers() bool
	Close() error
}

type dependencyStore struct {
	db *db
}

// OpenDependencies opens or creates the dependency-data store in dir.
func OpenDependencies(dir string, opts Options) (DependencyStore, error) {
	return openDependencies(dir, opts)
}

func openDependencies(dir string, opts Options) (*dependencyStore, error) {
	d, err := openDB(_dependenciesStore, filepath.Join(dir, DependenciesFileName), DependenciesVersion, opts)
	if err != nil {
		return nil, err
	}
	return &dependencyStore{db: d}, nil
}

func (s *dependencyStore) SetOutputs(target entity.Target, source string, outputs []string) error {
	return s.db.bolt.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, _outputsPrefix+target.Key())
		if err != nil {
			return err
		}
		if len(outputs) == 0 {
			return b.Delete([]byte(source))
		}
		return putJSON(b, source, outputs)
	})
}

func (s *dependencyStore) Outputs(target entity.Target, source string) ([]string, error) {
	var outputs []string
	err := s.db.bolt.View(func(tx *bbolt.Tx) error {
		b, _ := bucket(tx, _outputsPrefix+target.Key())
		if b == nil {
			return nil
		}
		data := b.Get([]byte(source))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &outputs)
	})
	return outputs, err
}

func (s *dependencyStore) Sources(target entity.Target) ([]string, error) {
	var sources []string
	err := s.db.bolt.View(func(tx *bbolt.Tx) error {
		b, _ := bucket(tx, _outputsPrefix+target.Key())
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			sources = append(sources, string(k))
			return nil
		})
	})
	sort.Strings(sources)
	return sources, err
}

func (s *dependencyStore) RemoveSource(target entity.Target, source string) ([]string, error) {
	var outputs []string
	err := s.db.bolt.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, _outputsPrefix+target.Key())
		if err != nil {
			return err
		}
		if data := b.Get([]byte(source)); data != nil {
			if err := json.Unmarshal(data, &outputs); err != nil {
				return err
			}
		}
		return b.Delete([]byte(source))
	})
	return outputs, err
}

func (s *dependencyStore) Clean(target entity.Target) error {
	return s.db.bolt.Update(func(tx *bbolt.Tx) error {
		return deleteBucket(tx, _outputsPrefix+target.Key())
	})
}

func (s *dependencyStore) VersionDiffers() bool {
	return s.db.versionDiffers
}

func (s *dependencyStore) Close() error {
	return s.db.close()
}
