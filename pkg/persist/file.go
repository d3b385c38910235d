package persist

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
)

// FileStore persists the topology as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Location implements Store.
func (s *FileStore) Location() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load() (models.Topology, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Topology{}, nil
		}
		return nil, errors.PersistOpen(s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Topology{}, nil
	}
	return decode(s.path, data)
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(monitors models.Topology) error {
	data, err := encode(monitors)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.PersistOpen(s.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.PersistOpen(s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.PersistWrite(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.PersistWrite(s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.PersistWrite(s.path, err)
	}
	return nil
}
