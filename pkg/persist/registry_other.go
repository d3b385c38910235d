//go:build !windows

package persist

import (
	stderrors "errors"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
)

const registryAvailable = false

var errNoRegistry = stderrors.New("the registry is only available on Windows")

// RegistryStore is unavailable on this platform; every operation fails.
type RegistryStore struct{}

// NewRegistryStore returns a store whose operations fail.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{}
}

// Location implements Store.
func (s *RegistryStore) Location() string {
	return `HKCU\SOFTWARE\VirtualDisplayDriver\data`
}

// Load implements Store.
func (s *RegistryStore) Load() (models.Topology, error) {
	return nil, errors.PersistOpen(s.Location(), errNoRegistry)
}

// Save implements Store.
func (s *RegistryStore) Save(models.Topology) error {
	return errors.PersistOpen(s.Location(), errNoRegistry)
}
