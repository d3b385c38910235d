//go:build windows

package persist

import (
	stderrors "errors"

	"golang.org/x/sys/windows/registry"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
)

const (
	registryKey   = `SOFTWARE\VirtualDisplayDriver`
	registryValue = "data"
)

const registryAvailable = true

// RegistryStore persists the topology in the current user's registry hive,
// where the driver reads it when it starts.
type RegistryStore struct{}

// NewRegistryStore returns the registry-backed store.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{}
}

// Location implements Store.
func (s *RegistryStore) Location() string {
	return `HKCU\` + registryKey + `\` + registryValue
}

// Load implements Store.
func (s *RegistryStore) Load() (models.Topology, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, registryKey, registry.QUERY_VALUE)
	if err != nil {
		if stderrors.Is(err, registry.ErrNotExist) {
			return models.Topology{}, nil
		}
		return nil, errors.PersistOpen(s.Location(), err)
	}
	defer key.Close()

	data, _, err := key.GetStringValue(registryValue)
	if err != nil {
		if stderrors.Is(err, registry.ErrNotExist) {
			return models.Topology{}, nil
		}
		return nil, errors.PersistOpen(s.Location(), err)
	}
	return decode(s.Location(), []byte(data))
}

// Save implements Store. The key is created when missing.
func (s *RegistryStore) Save(monitors models.Topology) error {
	data, err := encode(monitors)
	if err != nil {
		return err
	}

	key, _, err := registry.CreateKey(registry.CURRENT_USER, registryKey, registry.WRITE)
	if err != nil {
		return errors.PersistOpen(s.Location(), err)
	}
	defer key.Close()

	if err := key.SetStringValue(registryValue, string(data)); err != nil {
		return errors.PersistWrite(s.Location(), err)
	}
	return nil
}
