package config

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Duration is a time.Duration that reads and writes as a string like "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// JSONSchema describes Duration as a string in generated schemas.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Go duration string such as 5s or 250ms",
	}
}

// Config is the contents of vdd.yml / vdd.toml.
type Config struct {
	// PipeName is the name of the driver's named pipe.
	PipeName string `yaml:"pipe_name,omitempty" toml:"pipe_name,omitempty" jsonschema:"description=Name of the driver pipe"`

	// RequestTimeout bounds how long a state request waits for a reply.
	RequestTimeout Duration `yaml:"request_timeout,omitempty" toml:"request_timeout,omitempty" jsonschema:"description=State request timeout"`

	// EventCapacity is the number of events buffered per client connection
	// before slow receivers start lagging.
	EventCapacity int `yaml:"event_capacity,omitempty" toml:"event_capacity,omitempty" jsonschema:"description=Client event ring capacity,minimum=1"`

	Server  ServerConfig  `yaml:"server,omitempty" toml:"server,omitempty" jsonschema:"description=Settings for vdd serve"`
	Persist PersistConfig `yaml:"persist,omitempty" toml:"persist,omitempty" jsonschema:"description=Persisted monitor storage"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`
}

// ServerConfig configures the pipe server.
type ServerConfig struct {
	// EventBuffer is the per-connection queue of outgoing change events.
	EventBuffer int `yaml:"event_buffer,omitempty" toml:"event_buffer,omitempty" jsonschema:"minimum=1"`

	// WriteStall is how long one write attempt may block before it is retried.
	WriteStall Duration `yaml:"write_stall,omitempty" toml:"write_stall,omitempty"`

	// LoadPersisted applies the persisted topology when the server starts.
	LoadPersisted *bool `yaml:"load_persisted,omitempty" toml:"load_persisted,omitempty"`
}

// PersistConfig configures where monitors are persisted.
type PersistConfig struct {
	// Backend is "auto", "file" or "registry".
	Backend string `yaml:"backend,omitempty" toml:"backend,omitempty" jsonschema:"enum=auto,enum=file,enum=registry"`

	// Path overrides the file backend location.
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`

	// Watch re-applies the persisted topology whenever the file changes.
	Watch bool `yaml:"watch,omitempty" toml:"watch,omitempty"`

	// Debounce delays reacting to file changes.
	Debounce Duration `yaml:"debounce,omitempty" toml:"debounce,omitempty"`
}

// UnmarshalExtension decodes a custom top-level section into target.
// A missing key leaves target untouched.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	// Use mapstructure so extension structs can reuse their yaml tags.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
