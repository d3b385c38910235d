// Package server serves the driver's pipe. Each connection gets its own
// reader and writer goroutine; commands go through the engine one at a time.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/internal/daemon/engine"
	"github.com/grovetools/vdd/internal/daemon/store"
	"github.com/grovetools/vdd/pkg/protocol"
	"github.com/grovetools/vdd/pkg/transport"
)

// readBufferSize matches the pipe's in/out buffer size.
const readBufferSize = 4096

// Interceptor sees every decoded command before it is applied. Returning
// false drops the command.
type Interceptor func(origin string, cmd protocol.Command) bool

// Option configures a Server.
type Option func(*Server)

// WithInterceptor installs fn in front of the engine.
func WithInterceptor(fn Interceptor) Option {
	return func(s *Server) { s.interceptor = fn }
}

// WithWriteStall sets the per-attempt write deadline of every connection.
func WithWriteStall(d time.Duration) Option {
	return func(s *Server) { s.writeStall = d }
}

// Server manages the pipe endpoint and its connections.
type Server struct {
	engine      *engine.Engine
	logger      *logrus.Entry
	interceptor Interceptor
	writeStall  time.Duration

	mu       sync.Mutex
	listener *transport.Listener
	conns    map[string]*transport.Conn
	wg       sync.WaitGroup
	closing  atomic.Bool
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// New creates a new Server applying commands through eng.
func New(eng *engine.Engine, logger *logrus.Entry, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
		conns:  make(map[string]*transport.Conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe creates the pipe with the given name and serves it.
// It blocks until ctx is canceled, Shutdown is called, or accepting fails.
func (s *Server) ListenAndServe(ctx context.Context, name string) error {
	ln, err := transport.Listen(name)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or Shutdown is called.
func (s *Server) Serve(ctx context.Context, ln *transport.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		return ln.Close()
	}
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.WithField("pipe", ln.Addr()).Info("Driver listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			return err
		}
		if s.writeStall > 0 {
			conn.SetWriteStall(s.writeStall)
		}
		s.handle(ctx, conn)
	}
}

// Shutdown stops accepting, interrupts every connection and waits for their
// goroutines to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of open connections.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) stop() {
	s.stopOnce.Do(func() {
		s.closing.Store(true)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cancel != nil {
			s.cancel()
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
		for _, c := range s.conns {
			c.Interrupt()
		}
	})
}

// handle registers conn and starts its goroutines.
func (s *Server) handle(ctx context.Context, conn *transport.Conn) {
	id := uuid.NewString()
	log := s.logger.WithField("conn", id)

	sub := s.engine.Store().Subscribe(id)

	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		s.engine.Store().Unsubscribe(sub)
		_ = conn.Close()
		return
	}
	s.conns[id] = conn
	s.mu.Unlock()
	log.Debug("Client connected")

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.writeEvents(ctx, conn, sub, log)
	}()
	go func() {
		defer s.wg.Done()
		s.readCommands(ctx, conn, id, log)

		s.engine.Store().Unsubscribe(sub)
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		log.Debug("Client disconnected")
	}()
}

// writeEvents forwards store updates as Changed frames until the
// subscription is closed.
func (s *Server) writeEvents(ctx context.Context, conn *transport.Conn, sub *store.Subscription, log *logrus.Entry) {
	for u := range sub.C {
		frame, err := protocol.Encode(protocol.NewChanged(u.Monitors))
		if err != nil {
			log.WithError(err).Error("Failed to encode event")
			continue
		}
		if err := conn.WriteFrame(ctx, frame); err != nil {
			log.WithError(err).Debug("Event write failed, dropping client")
			conn.Interrupt()
			// Keep draining so the store never sees this queue fill up.
			for range sub.C {
			}
			return
		}
	}
}

// readCommands decodes frames from conn and applies them in order.
func (s *Server) readCommands(ctx context.Context, conn *transport.Conn, id string, log *logrus.Entry) {
	dec := protocol.NewServerDecoder(log)
	buf := make([]byte, readBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, cmd := range dec.Feed(buf[:n]) {
				if !s.dispatch(ctx, conn, id, cmd, log) {
					return
				}
			}
		}
		if err != nil {
			switch {
			case stderrors.Is(err, io.EOF), stderrors.Is(err, transport.ErrInterrupted):
			default:
				log.WithError(err).Debug("Read failed")
			}
			return
		}
	}
}

// dispatch applies one command and writes its reply. It returns false when
// the connection should be closed.
func (s *Server) dispatch(ctx context.Context, conn *transport.Conn, id string, cmd protocol.Command, log *logrus.Entry) bool {
	log.WithField("command", cmd.String()).Debug("Received command")

	if s.interceptor != nil && !s.interceptor(id, cmd) {
		log.WithField("command", cmd.String()).Debug("Command dropped by interceptor")
		return true
	}

	res, err := s.engine.Submit(ctx, cmd, id)
	if err != nil {
		return false
	}
	if res.Err != nil {
		// Invalid input from one client is logged by the store and otherwise
		// ignored; the connection stays open.
		return true
	}
	if res.Reply == nil {
		return true
	}

	frame, err := protocol.Encode(*res.Reply)
	if err != nil {
		log.WithError(err).Error("Failed to encode reply")
		return true
	}
	if err := conn.WriteFrame(ctx, frame); err != nil {
		log.WithError(err).Debug("Reply write failed")
		return false
	}
	return true
}
