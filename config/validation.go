package config

import (
	"fmt"
	"time"

	"github.com/grovetools/vdd/errors"
)

const (
	DefaultPipeName       = "virtualdisplaydriver"
	DefaultRequestTimeout = 5 * time.Second
	DefaultEventCapacity  = 64
	DefaultEventBuffer    = 64
	DefaultWriteStall     = time.Second
	DefaultDebounce       = 200 * time.Millisecond
)

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.PipeName == "" {
		c.PipeName = DefaultPipeName
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout.Duration = DefaultRequestTimeout
	}
	if c.EventCapacity == 0 {
		c.EventCapacity = DefaultEventCapacity
	}
	if c.Server.EventBuffer == 0 {
		c.Server.EventBuffer = DefaultEventBuffer
	}
	if c.Server.WriteStall.Duration == 0 {
		c.Server.WriteStall.Duration = DefaultWriteStall
	}
	if c.Server.LoadPersisted == nil {
		load := true
		c.Server.LoadPersisted = &load
	}
	if c.Persist.Backend == "" {
		c.Persist.Backend = "auto"
	}
	if c.Persist.Debounce.Duration == 0 {
		c.Persist.Debounce.Duration = DefaultDebounce
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.RequestTimeout.Duration < 0 {
		return errors.ConfigInvalid("request_timeout must not be negative").
			WithDetail("request_timeout", c.RequestTimeout.String())
	}
	if c.EventCapacity < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("event_capacity must be at least 1, got %d", c.EventCapacity))
	}
	if c.Server.EventBuffer < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("server.event_buffer must be at least 1, got %d", c.Server.EventBuffer))
	}
	switch c.Persist.Backend {
	case "auto", "file", "registry":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown persist backend %q", c.Persist.Backend)).
			WithDetail("backend", c.Persist.Backend)
	}
	return nil
}
