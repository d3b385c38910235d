// Package mock runs an in-process driver on a pipe for tests. It uses the
// same store and server as the daemon and adds a command recorder and a
// switch that makes the driver ignore state requests.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/internal/daemon/engine"
	"github.com/grovetools/vdd/internal/daemon/server"
	"github.com/grovetools/vdd/internal/daemon/store"
	"github.com/grovetools/vdd/logging"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/protocol"
	"github.com/grovetools/vdd/pkg/transport"
)

type options struct {
	logger      *logrus.Entry
	eventBuffer int
	initial     models.Topology
}

// Option configures a mock Server.
type Option func(*options)

// WithLogger sets the logger used by the driver's components.
func WithLogger(logger *logrus.Entry) Option {
	return func(o *options) { o.logger = logger }
}

// WithEventBuffer sets the per-client event queue length.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.eventBuffer = n }
}

// WithState starts the driver with the given topology.
func WithState(t models.Topology) Option {
	return func(o *options) { o.initial = t.Clone() }
}

// Server is a running mock driver.
type Server struct {
	name   string
	store  *store.Store
	server *server.Server
	cancel context.CancelFunc
	done   chan struct{}

	muted atomic.Bool

	mu        sync.Mutex
	commands  []protocol.Command
	recorded  chan struct{}
	closeOnce sync.Once
}

// New starts a mock driver listening on the pipe called name.
func New(name string, opts ...Option) (*Server, error) {
	o := options{eventBuffer: store.DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewLogger("mock-driver")
	}

	st := store.New(o.eventBuffer, o.logger)
	if len(o.initial) > 0 {
		if _, err := st.SetState(o.initial); err != nil {
			return nil, err
		}
	}

	ln, err := transport.Listen(name)
	if err != nil {
		return nil, err
	}

	s := &Server{
		name:     name,
		store:    st,
		done:     make(chan struct{}),
		recorded: make(chan struct{}),
	}

	eng := engine.New(st, o.logger)
	s.server = server.New(eng, o.logger, server.WithInterceptor(s.intercept))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eng.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := s.server.Serve(ctx, ln); err != nil {
			o.logger.WithError(err).Error("Mock driver stopped")
		}
	}()
	go func() {
		wg.Wait()
		close(s.done)
	}()

	return s, nil
}

// Name returns the pipe name.
func (s *Server) Name() string {
	return s.name
}

// State returns the driver's current topology.
func (s *Server) State() models.Topology {
	return s.store.Get()
}

// SetState replaces the topology and sends Changed to every client when it
// differs.
func (s *Server) SetState(t models.Topology) error {
	_, err := s.store.SetState(t)
	return err
}

// Commands returns every command received so far, in arrival order.
func (s *Server) Commands() []protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Command(nil), s.commands...)
}

// WaitCommands blocks until at least n commands have been received.
func (s *Server) WaitCommands(ctx context.Context, n int) ([]protocol.Command, error) {
	for {
		s.mu.Lock()
		if len(s.commands) >= n {
			cmds := append([]protocol.Command(nil), s.commands...)
			s.mu.Unlock()
			return cmds, nil
		}
		wait := s.recorded
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Mute makes the driver ignore state requests, as an unresponsive driver
// would.
func (s *Server) Mute(muted bool) {
	s.muted.Store(muted)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return s.server.Clients()
}

// Close stops the driver and disconnects every client.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
		s.cancel()
		<-s.done
	})
	return err
}

func (s *Server) intercept(_ string, cmd protocol.Command) bool {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	close(s.recorded)
	s.recorded = make(chan struct{})
	s.mu.Unlock()

	return !(cmd.IsRequest() && s.muted.Load())
}
