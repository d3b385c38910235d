// Package store holds the driver's canonical monitor topology and fans
// changes out to connected clients.
package store

import (
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/protocol"
)

// Update is a topology change delivered to subscribers.
type Update struct {
	// Origin is the subscriber whose command produced the change. It is empty
	// for changes made by the server itself.
	Origin string
	// Cause is the command kind that produced the change.
	Cause protocol.Kind
	// Monitors is the topology after the change. Receivers must not modify it.
	Monitors models.Topology
	// Version increases by one with every change.
	Version uint64
}

// Request asks the engine to apply a command on behalf of Origin.
type Request struct {
	Command protocol.Command
	Origin  string
	// Result receives the outcome when non-nil. It must be buffered.
	Result chan Result
}

// Result is the outcome of applying one command.
type Result struct {
	// Reply is set for state requests and must be sent back to the origin only.
	Reply   *protocol.Command
	Changed bool
	Err     error
}
