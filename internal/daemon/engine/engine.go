// Package engine applies commands to the store one at a time and runs the
// background collectors that feed it.
package engine

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/internal/daemon/collector"
	"github.com/grovetools/vdd/internal/daemon/store"
	"github.com/grovetools/vdd/pkg/protocol"
)

// ErrStopped is returned by Submit once the engine has shut down.
var ErrStopped = stderrors.New("engine stopped")

// Engine serializes command application and manages collectors.
type Engine struct {
	store      *store.Store
	collectors []collector.Collector
	requests   chan store.Request
	done       chan struct{}
	logger     *logrus.Entry
}

// New creates a new Engine instance.
func New(st *store.Store, logger *logrus.Entry) *Engine {
	return &Engine{
		store:    st,
		requests: make(chan store.Request, 100),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Register adds a collector to the engine.
func (e *Engine) Register(c collector.Collector) {
	e.collectors = append(e.collectors, c)
}

// Start runs the consumer and all collectors and blocks until ctx is
// canceled.
func (e *Engine) Start(ctx context.Context) {
	defer close(e.done)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-e.requests:
				res := e.store.Apply(req.Command, req.Origin)
				if req.Result != nil {
					req.Result <- res
				}
			}
		}
	}()

	for _, c := range e.collectors {
		wg.Add(1)
		go func(col collector.Collector) {
			defer wg.Done()
			e.logger.WithField("collector", col.Name()).Info("Starting collector")
			if err := col.Run(ctx, e.store, e.requests); err != nil {
				e.logger.WithField("collector", col.Name()).WithError(err).Error("Collector failed")
			}
		}(c)
	}

	wg.Wait()
}

// Submit queues cmd on behalf of origin and waits for it to be applied.
func (e *Engine) Submit(ctx context.Context, cmd protocol.Command, origin string) (store.Result, error) {
	req := store.Request{Command: cmd, Origin: origin, Result: make(chan store.Result, 1)}

	select {
	case e.requests <- req:
	case <-ctx.Done():
		return store.Result{}, ctx.Err()
	case <-e.done:
		return store.Result{}, ErrStopped
	}

	select {
	case res := <-req.Result:
		return res, nil
	case <-ctx.Done():
		return store.Result{}, ctx.Err()
	case <-e.done:
		return store.Result{}, ErrStopped
	}
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store {
	return e.store
}
