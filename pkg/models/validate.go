package models

import (
	"slices"

	"github.com/grovetools/vdd/errors"
)

// ValidateTopology checks that monitor ids are unique and that every monitor
// is itself valid. Each monitor is checked against the ones after it before
// its own modes are inspected, and the first violation is returned.
func ValidateTopology(t Topology) error {
	for i, m := range t {
		if slices.ContainsFunc(t[i+1:], func(o Monitor) bool { return o.ID == m.ID }) {
			return errors.DuplicateMonitor(m.ID)
		}
		if err := ValidateMonitor(m); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMonitor checks that no two modes share a resolution and that each
// mode's refresh rates are unique.
func ValidateMonitor(m Monitor) error {
	for i, mode := range m.Modes {
		if slices.ContainsFunc(m.Modes[i+1:], func(o Mode) bool {
			return o.Width == mode.Width && o.Height == mode.Height
		}) {
			return errors.DuplicateMode(mode.Width, mode.Height, m.ID)
		}
		if err := ValidateMode(mode, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMode checks a single mode of monitor id for repeated refresh rates.
func ValidateMode(mode Mode, id ID) error {
	for i, rr := range mode.RefreshRates {
		if slices.Contains(mode.RefreshRates[i+1:], rr) {
			return errors.DuplicateRefreshRate(rr, mode.Width, mode.Height, id)
		}
	}
	return nil
}
