// Package protocol implements the message format spoken over the driver pipe.
//
// Every message is a JSON document followed by a single EOF byte (0x04).
// Commands are externally tagged: variants carrying data are objects with a
// single key ({"Notify":[...]}) and unit variants are bare strings
// ("RemoveAll", "State").
package protocol

import (
	"fmt"

	"github.com/grovetools/vdd/pkg/models"
)

// EOF terminates every frame on the wire. It never appears inside JSON text.
const EOF byte = 0x04

// DefaultPipeName is the pipe the driver listens on.
const DefaultPipeName = "virtualdisplaydriver"

// Kind identifies a command variant.
type Kind int

const (
	// KindNotify replaces the driver's whole topology.
	KindNotify Kind = iota + 1
	// KindRemove removes monitors by id.
	KindRemove
	// KindRemoveAll removes every monitor.
	KindRemoveAll
	// KindRequestState asks the driver for its current topology.
	KindRequestState
	// KindReplyState answers a state request.
	KindReplyState
	// KindChanged announces a topology change made by another client.
	KindChanged
)

func (k Kind) String() string {
	switch k {
	case KindNotify:
		return "Notify"
	case KindRemove:
		return "Remove"
	case KindRemoveAll:
		return "RemoveAll"
	case KindRequestState:
		return "RequestState"
	case KindReplyState:
		return "ReplyState"
	case KindChanged:
		return "Changed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Command is one message on the pipe. Monitors is set for Notify, ReplyState
// and Changed; IDs is set for Remove.
type Command struct {
	Kind     Kind
	Monitors models.Topology
	IDs      []models.ID
}

// NewNotify builds a Notify command.
func NewNotify(monitors models.Topology) Command {
	return Command{Kind: KindNotify, Monitors: monitors}
}

// NewRemove builds a Remove command.
func NewRemove(ids []models.ID) Command {
	return Command{Kind: KindRemove, IDs: ids}
}

// NewRemoveAll builds a RemoveAll command.
func NewRemoveAll() Command {
	return Command{Kind: KindRemoveAll}
}

// NewRequestState builds a state request.
func NewRequestState() Command {
	return Command{Kind: KindRequestState}
}

// NewReplyState builds the reply to a state request.
func NewReplyState(monitors models.Topology) Command {
	return Command{Kind: KindReplyState, Monitors: monitors}
}

// NewChanged builds a change event.
func NewChanged(monitors models.Topology) Command {
	return Command{Kind: KindChanged, Monitors: monitors}
}

// IsDriver reports whether c mutates the driver topology.
func (c Command) IsDriver() bool {
	return c.Kind == KindNotify || c.Kind == KindRemove || c.Kind == KindRemoveAll
}

// IsRequest reports whether c is a state request.
func (c Command) IsRequest() bool { return c.Kind == KindRequestState }

// IsReply reports whether c answers a state request.
func (c Command) IsReply() bool { return c.Kind == KindReplyState }

// IsEvent reports whether c is a change event.
func (c Command) IsEvent() bool { return c.Kind == KindChanged }

// ServerBound reports whether c travels from a client to the driver.
func (c Command) ServerBound() bool { return c.IsDriver() || c.IsRequest() }

// ClientBound reports whether c travels from the driver to a client.
func (c Command) ClientBound() bool { return c.IsReply() || c.IsEvent() }

func (c Command) String() string {
	switch c.Kind {
	case KindRemove:
		return fmt.Sprintf("Remove%v", c.IDs)
	case KindNotify, KindReplyState, KindChanged:
		return fmt.Sprintf("%s(%d monitors)", c.Kind, len(c.Monitors))
	default:
		return c.Kind.String()
	}
}
