package ipc

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
)

// EventReceiver is called with every topology change. It runs on the
// subscription's own goroutine; blocking it delays only that subscription.
type EventReceiver func(models.Topology)

// Subscription is a running event receiver. The owner ends it with Cancel.
type Subscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled atomic.Bool
	logger    *logrus.Entry

	mu       sync.Mutex
	panicErr error
	reported bool
	err      error
}

// Subscribe starts cb on every Changed event received after the call.
// Each call creates an independent subscription; lagged events are logged
// and skipped.
func (cl *Client) Subscribe(cb EventReceiver) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		cancel: cancel,
		done:   make(chan struct{}),
		logger: cl.c.logger,
	}
	events := cl.ReceiveEvents(ctx)
	go s.run(events, cb)
	return s
}

func (s *Subscription) run(events <-chan Event, cb EventReceiver) {
	defer close(s.done)
	defer s.cancel()

	for ev := range events {
		if ev.Err != nil {
			var lagged *LaggedError
			if stderrors.As(ev.Err, &lagged) {
				s.logger.WithField("skipped", lagged.Skipped).Warn("Event receiver lagged")
				continue
			}
			s.mu.Lock()
			s.err = ev.Err
			s.mu.Unlock()
			return
		}
		if !s.deliver(cb, ev.Monitors) {
			return
		}
	}
}

// deliver calls cb and reports false if it panicked.
func (s *Subscription) deliver(cb EventReceiver, monitors models.Topology) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("Event receiver panicked")
			s.mu.Lock()
			s.panicErr = errors.CallbackPanicked(r)
			s.mu.Unlock()
			ok = false
		}
	}()
	cb(monitors)
	return true
}

// Cancel stops the subscription. It returns true if this call cancelled it
// and false if it was already cancelled. A panic in the callback is returned
// as a CALLBACK_PANICKED error, once.
func (s *Subscription) Cancel() (bool, error) {
	first := s.cancelled.CompareAndSwap(false, true)
	s.cancel()
	return first, s.takePanic()
}

// CancelWait cancels the subscription and waits for the callback goroutine
// to exit.
func (s *Subscription) CancelWait(ctx context.Context) (bool, error) {
	first := s.cancelled.CompareAndSwap(false, true)
	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return first, ctx.Err()
	}
	return first, s.takePanic()
}

// Done is closed once the callback goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the event stream, if the connection was
// lost.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) takePanic() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicErr == nil || s.reported {
		return nil
	}
	s.reported = true
	return s.panicErr
}
