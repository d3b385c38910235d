package ipc

import (
	"context"
	"fmt"
	"sync"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/protocol"
)

// LaggedError reports that a receiver fell behind and Skipped commands were
// overwritten before it read them. The receiver continues with the oldest
// retained command.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("receiver lagged behind by %d events", e.Skipped)
}

// Unwrap exposes the EVENTS_LAGGED code.
func (e *LaggedError) Unwrap() error {
	return errors.EventsLagged(e.Skipped)
}

// broadcaster is a fixed-size ring of decoded commands shared by every
// receiver of one connection. Sends never block; receivers that fall more
// than the ring size behind are told how much they missed.
type broadcaster struct {
	mu     sync.Mutex
	ring   []protocol.Command
	sent   uint64
	err    error
	closed bool
	// wake is closed and replaced whenever something is sent or the
	// broadcaster closes.
	wake chan struct{}
}

func newBroadcaster(capacity int) *broadcaster {
	if capacity < 1 {
		capacity = 1
	}
	return &broadcaster{
		ring: make([]protocol.Command, capacity),
		wake: make(chan struct{}),
	}
}

func (b *broadcaster) send(cmd protocol.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ring[b.sent%uint64(len(b.ring))] = cmd
	b.sent++
	b.signal()
}

// close ends the stream. Receivers drain what is retained, then get err.
func (b *broadcaster) close(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.err = err
	b.signal()
}

func (b *broadcaster) signal() {
	close(b.wake)
	b.wake = make(chan struct{})
}

// subscribe returns a receiver that sees only commands sent from now on.
func (b *broadcaster) subscribe() *receiver {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &receiver{b: b, next: b.sent}
}

type receiver struct {
	b    *broadcaster
	next uint64
}

// recv returns the next command. It fails with *LaggedError when commands
// were lost, with the close error once the stream has ended, or with the
// context's error.
func (r *receiver) recv(ctx context.Context) (protocol.Command, error) {
	for {
		b := r.b
		b.mu.Lock()
		var oldest uint64
		if size := uint64(len(b.ring)); b.sent > size {
			oldest = b.sent - size
		}
		if r.next < oldest {
			skipped := oldest - r.next
			r.next = oldest
			b.mu.Unlock()
			return protocol.Command{}, &LaggedError{Skipped: skipped}
		}
		if r.next < b.sent {
			cmd := b.ring[r.next%uint64(len(b.ring))]
			r.next++
			b.mu.Unlock()
			return cmd, nil
		}
		if b.closed {
			err := b.err
			b.mu.Unlock()
			return protocol.Command{}, err
		}
		wake := b.wake
		b.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return protocol.Command{}, ctx.Err()
		}
	}
}
