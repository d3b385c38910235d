// Package collector provides background sources that feed topology changes
// into the daemon.
package collector

import (
	"context"

	"github.com/grovetools/vdd/internal/daemon/store"
)

// Collector is a background worker that produces commands for the engine.
type Collector interface {
	// Name returns the collector's name for logging.
	Name() string

	// Run starts the collector. It should block until context is canceled.
	// Commands are submitted through requests; st may be read for context.
	Run(ctx context.Context, st *store.Store, requests chan<- store.Request) error
}
