// Package persist stores the monitor topology where the driver reads it at
// startup. On Windows that is the registry value
// HKCU\SOFTWARE\VirtualDisplayDriver\data; elsewhere it is a JSON file in
// the config directory.
package persist

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/grovetools/vdd/config"
	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/paths"
	"github.com/grovetools/vdd/schema"
)

// Store reads and writes the persisted topology.
type Store interface {
	// Load returns the persisted topology, or an empty one when nothing has
	// been persisted yet.
	Load() (models.Topology, error)
	// Save replaces the persisted topology.
	Save(models.Topology) error
	// Location describes where the data lives.
	Location() string
}

// Default returns the platform store: the registry on Windows, a file
// elsewhere.
func Default() Store {
	if registryAvailable {
		return NewRegistryStore()
	}
	return NewFileStore(paths.PersistPath())
}

// FromConfig returns the store selected by cfg.
func FromConfig(cfg config.PersistConfig) (Store, error) {
	switch cfg.Backend {
	case "", "auto":
		if cfg.Path != "" {
			return NewFileStore(cfg.Path), nil
		}
		return Default(), nil
	case "file":
		path := cfg.Path
		if path == "" {
			path = paths.PersistPath()
		}
		return NewFileStore(path), nil
	case "registry":
		if !registryAvailable {
			return nil, errors.ConfigInvalid("the registry backend is only available on Windows")
		}
		return NewRegistryStore(), nil
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown persist backend %q", cfg.Backend))
	}
}

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// decode validates raw against the topology schema and parses it.
func decode(location string, raw []byte) (models.Topology, error) {
	validatorOnce.Do(func() {
		validator, validatorErr = schema.NewValidator()
	})
	if validatorErr != nil {
		return nil, errors.Wrap(validatorErr, errors.ErrCodeInternal, "failed to load topology schema")
	}
	if err := validator.ValidateBytes(raw); err != nil {
		return nil, errors.PersistCorrupt(location, err)
	}

	var monitors models.Topology
	if err := json.Unmarshal(raw, &monitors); err != nil {
		return nil, errors.PersistCorrupt(location, err)
	}
	if monitors == nil {
		monitors = models.Topology{}
	}
	return monitors, nil
}

func encode(monitors models.Topology) ([]byte, error) {
	data, err := json.Marshal(monitors)
	if err != nil {
		return nil, errors.PersistSerialize(err)
	}
	return data, nil
}
