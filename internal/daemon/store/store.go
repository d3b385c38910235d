package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/protocol"
)

// DefaultBufferSize is the per-subscriber update queue length.
const DefaultBufferSize = 64

// Store is the in-memory state store for the driver.
// It is thread-safe and fans changes out to every subscriber except the one
// that caused them.
type Store struct {
	mu          sync.Mutex
	monitors    models.Topology
	version     uint64
	subscribers map[string]*Subscription
	bufferSize  int
	logger      *logrus.Entry
}

// Subscription is one client's feed of updates.
type Subscription struct {
	ID      string
	C       <-chan Update
	ch      chan Update
	dropped atomic.Int64
}

// Dropped returns how many updates were discarded because the subscriber's
// queue was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// New creates a new Store instance.
func New(bufferSize int, logger *logrus.Entry) *Store {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Store{
		monitors:    models.Topology{},
		subscribers: make(map[string]*Subscription),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Get returns a copy of the current topology.
func (s *Store) Get() models.Topology {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitors.Clone()
}

// Version returns the number of changes applied so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Apply executes one client command. origin identifies the sender so that
// the resulting change is not echoed back to it.
func (s *Store) Apply(cmd protocol.Command, origin string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{"origin": origin, "command": cmd.String()})

	switch cmd.Kind {
	case protocol.KindRequestState:
		reply := protocol.NewReplyState(s.monitors.Clone())
		return Result{Reply: &reply}

	case protocol.KindNotify:
		if err := models.ValidateTopology(cmd.Monitors); err != nil {
			log.WithError(err).Warn("Rejecting topology update")
			return Result{Err: err}
		}
		if s.monitors.Equal(cmd.Monitors) {
			log.Debug("Topology unchanged")
			return Result{}
		}
		s.replace(cmd.Monitors.Clone())

	case protocol.KindRemove:
		remaining, removed := s.monitors.Without(cmd.IDs)
		if removed == 0 {
			log.Debug("No monitors matched removal")
			return Result{}
		}
		s.replace(remaining)

	case protocol.KindRemoveAll:
		s.replace(models.Topology{})

	default:
		return Result{Err: errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s is not accepted by the driver", cmd.Kind))}
	}

	log.WithField("monitors", len(s.monitors)).Info("Topology changed")
	s.broadcast(Update{Origin: origin, Cause: cmd.Kind, Monitors: s.monitors, Version: s.version})
	return Result{Changed: true}
}

// SetState replaces the topology directly and notifies every subscriber when
// it differs from the current one.
func (s *Store) SetState(monitors models.Topology) (bool, error) {
	if err := models.ValidateTopology(monitors); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.monitors.Equal(monitors) {
		return false, nil
	}
	s.replace(monitors.Clone())
	s.broadcast(Update{Cause: protocol.KindNotify, Monitors: s.monitors, Version: s.version})
	return true, nil
}

// Subscribe registers a subscriber under id. Updates caused by commands with
// the same origin id are not delivered to it.
func (s *Store) Subscribe(id string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Update, s.bufferSize)
	sub := &Subscription{ID: id, C: ch, ch: ch}
	if old, ok := s.subscribers[id]; ok {
		close(old.ch)
	}
	s.subscribers[id] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.subscribers[sub.ID]; ok && cur == sub {
		delete(s.subscribers, sub.ID)
		close(sub.ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// replace swaps in a new topology. Callers hold mu. The previous slice is
// never modified, so updates already queued keep their snapshot.
func (s *Store) replace(monitors models.Topology) {
	s.monitors = monitors
	s.version++
}

// broadcast sends u to every subscriber except its origin. Callers hold mu.
func (s *Store) broadcast(u Update) {
	for id, sub := range s.subscribers {
		if id == u.Origin {
			continue
		}
		select {
		case sub.ch <- u:
		default:
			dropped := sub.dropped.Add(1)
			s.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"dropped":    dropped,
			}).Warn("Subscriber queue full, dropping update")
		}
	}
}
