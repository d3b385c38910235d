package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ID identifies a virtual monitor. Unique within a topology.
type ID = uint32

// Dimen is a width or height in pixels.
type Dimen = uint32

// RefreshRate is a refresh rate in Hz.
type RefreshRate = uint32

// Mode is one resolution a monitor supports, with the refresh rates
// available at that resolution.
type Mode struct {
	Width        Dimen         `json:"width" jsonschema:"minimum=0"`
	Height       Dimen         `json:"height" jsonschema:"minimum=0"`
	RefreshRates []RefreshRate `json:"refresh_rates"`
}

// Monitor is a single virtual monitor.
type Monitor struct {
	ID      ID      `json:"id"`
	Name    *string `json:"name"`
	Enabled bool    `json:"enabled"`
	Modes   []Mode  `json:"modes"`
}

// Topology is the full set of virtual monitors, in order.
type Topology []Monitor

// MarshalJSON keeps an empty refresh rate list as [] on the wire.
func (m Mode) MarshalJSON() ([]byte, error) {
	type mode Mode
	out := mode(m)
	if out.RefreshRates == nil {
		out.RefreshRates = []RefreshRate{}
	}
	return json.Marshal(out)
}

// MarshalJSON keeps an empty mode list as [] on the wire.
func (m Monitor) MarshalJSON() ([]byte, error) {
	type monitor Monitor
	out := monitor(m)
	if out.Modes == nil {
		out.Modes = []Mode{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON requires every field and rejects null lists.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Width        *Dimen         `json:"width"`
		Height       *Dimen         `json:"height"`
		RefreshRates *[]RefreshRate `json:"refresh_rates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Width == nil:
		return missingField("mode", "width")
	case raw.Height == nil:
		return missingField("mode", "height")
	case raw.RefreshRates == nil:
		return missingField("mode", "refresh_rates")
	}
	*m = Mode{Width: *raw.Width, Height: *raw.Height, RefreshRates: *raw.RefreshRates}
	return nil
}

// UnmarshalJSON requires every field except name, and rejects a null mode
// list.
func (m *Monitor) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      *ID     `json:"id"`
		Name    *string `json:"name"`
		Enabled *bool   `json:"enabled"`
		Modes   *[]Mode `json:"modes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == nil:
		return missingField("monitor", "id")
	case raw.Enabled == nil:
		return missingField("monitor", "enabled")
	case raw.Modes == nil:
		return missingField("monitor", "modes")
	}
	*m = Monitor{ID: *raw.ID, Name: raw.Name, Enabled: *raw.Enabled, Modes: *raw.Modes}
	return nil
}

func missingField(kind, field string) error {
	return fmt.Errorf("%s: missing or null field %q", kind, field)
}

// MarshalJSON encodes a nil topology as [].
func (t Topology) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Monitor(t))
}

// StrPtr returns a pointer to s, for building monitor names.
func StrPtr(s string) *string {
	return &s
}

// NameOr returns the monitor name or def when it has none.
func (m Monitor) NameOr(def string) string {
	if m.Name == nil {
		return def
	}
	return *m.Name
}

// Clone returns a deep copy of the mode.
func (m Mode) Clone() Mode {
	return Mode{
		Width:        m.Width,
		Height:       m.Height,
		RefreshRates: slices.Clone(m.RefreshRates),
	}
}

// Clone returns a deep copy of the monitor.
func (m Monitor) Clone() Monitor {
	out := Monitor{ID: m.ID, Enabled: m.Enabled}
	if m.Name != nil {
		out.Name = StrPtr(*m.Name)
	}
	if m.Modes != nil {
		out.Modes = make([]Mode, len(m.Modes))
		for i, mode := range m.Modes {
			out.Modes[i] = mode.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the topology.
func (t Topology) Clone() Topology {
	if t == nil {
		return nil
	}
	out := make(Topology, len(t))
	for i, m := range t {
		out[i] = m.Clone()
	}
	return out
}

// Equal reports whether two modes are identical, refresh rate order included.
func (m Mode) Equal(o Mode) bool {
	return m.Width == o.Width && m.Height == o.Height && slices.Equal(m.RefreshRates, o.RefreshRates)
}

// Equal reports whether two monitors are identical.
func (m Monitor) Equal(o Monitor) bool {
	if m.ID != o.ID || m.Enabled != o.Enabled {
		return false
	}
	if (m.Name == nil) != (o.Name == nil) {
		return false
	}
	if m.Name != nil && *m.Name != *o.Name {
		return false
	}
	return slices.EqualFunc(m.Modes, o.Modes, Mode.Equal)
}

// Equal reports whether two topologies hold the same monitors in the same
// order. A nil and an empty topology are equal.
func (t Topology) Equal(o Topology) bool {
	return slices.EqualFunc(t, o, Monitor.Equal)
}

// IDs returns the monitor ids in order.
func (t Topology) IDs() []ID {
	ids := make([]ID, len(t))
	for i, m := range t {
		ids[i] = m.ID
	}
	return ids
}

// Index returns the position of the monitor with id, or -1.
func (t Topology) Index(id ID) int {
	return slices.IndexFunc(t, func(m Monitor) bool { return m.ID == id })
}

// Find returns the monitor with id.
func (t Topology) Find(id ID) (Monitor, bool) {
	if i := t.Index(id); i >= 0 {
		return t[i], true
	}
	return Monitor{}, false
}

// Without returns a copy of t with every monitor whose id is in ids removed,
// and the number removed.
func (t Topology) Without(ids []ID) (Topology, int) {
	out := make(Topology, 0, len(t))
	for _, m := range t {
		if !slices.Contains(ids, m.ID) {
			out = append(out, m)
		}
	}
	return out, len(t) - len(out)
}

// ModeIndex returns the position of the mode with the given resolution, or -1.
func (m Monitor) ModeIndex(width, height Dimen) int {
	return slices.IndexFunc(m.Modes, func(mode Mode) bool {
		return mode.Width == width && mode.Height == height
	})
}
