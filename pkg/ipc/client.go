// Package ipc is the client side of the driver protocol. A Client owns one
// pipe connection and a background receive loop; a DriverClient adds a
// validated local copy of the topology on top of it.
package ipc

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/config"
	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/logging"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/persist"
	"github.com/grovetools/vdd/pkg/protocol"
	"github.com/grovetools/vdd/pkg/transport"
)

const (
	// DefaultRequestTimeout bounds RequestState.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultEventCapacity is the size of the receive ring.
	DefaultEventCapacity = 64

	readBufferSize = 4096
)

// ErrClientClosed is the cause reported once a connection has been closed
// by its last handle.
var ErrClientClosed = stderrors.New("ipc: client closed")

type options struct {
	requestTimeout time.Duration
	eventCapacity  int
	writeStall     time.Duration
	logger         *logrus.Entry
	store          persist.Store
}

// Option configures a Client.
type Option func(*options)

// WithRequestTimeout changes how long RequestState waits for a reply.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// WithEventCapacity sets how many received commands are retained for slow
// receivers.
func WithEventCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventCapacity = n
		}
	}
}

// WithWriteStall sets the per-attempt write deadline.
func WithWriteStall(d time.Duration) Option {
	return func(o *options) { o.writeStall = d }
}

// WithLogger sets the logger for the connection.
func WithLogger(logger *logrus.Entry) Option {
	return func(o *options) { o.logger = logger }
}

// WithPersistStore sets where Persist writes. The platform default is used
// otherwise.
func WithPersistStore(s persist.Store) Option {
	return func(o *options) { o.store = s }
}

// FromConfig converts the client settings in cfg to options.
func FromConfig(cfg *config.Config) ([]Option, error) {
	store, err := persist.FromConfig(cfg.Persist)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithRequestTimeout(cfg.RequestTimeout.Duration),
		WithEventCapacity(cfg.EventCapacity),
		WithWriteStall(cfg.Server.WriteStall.Duration),
		WithPersistStore(store),
	}, nil
}

// Event is one item of an event stream: either a changed topology or an
// error. A *LaggedError means events were missed and the stream goes on;
// any other error ends the stream.
type Event struct {
	Monitors models.Topology
	Err      error
}

// conn is the state shared by a Client and its clones.
type conn struct {
	name   string
	pipe   *transport.Conn
	bcast  *broadcaster
	opts   options
	logger *logrus.Entry
	refs   atomic.Int64
	done   chan struct{}
}

// Client is a handle on a driver connection. Clones share the connection,
// which is closed when the last handle is closed.
type Client struct {
	c      *conn
	closed atomic.Bool
}

// Connect connects to the driver on the default pipe.
func Connect(ctx context.Context, opts ...Option) (*Client, error) {
	return ConnectTo(ctx, protocol.DefaultPipeName, opts...)
}

// ConnectTo connects to the driver on the named pipe. It fails immediately
// with CONNECT_FAILED when the pipe does not exist.
func ConnectTo(ctx context.Context, name string, opts ...Option) (*Client, error) {
	o := options{
		requestTimeout: DefaultRequestTimeout,
		eventCapacity:  DefaultEventCapacity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewLogger("ipc")
	}

	pipe, err := transport.Dial(ctx, name)
	if err != nil {
		return nil, err
	}
	if o.writeStall > 0 {
		pipe.SetWriteStall(o.writeStall)
	}

	c := &conn{
		name:   name,
		pipe:   pipe,
		bcast:  newBroadcaster(o.eventCapacity),
		opts:   o,
		logger: o.logger.WithField("pipe", name),
		done:   make(chan struct{}),
	}
	c.refs.Store(1)
	go c.receiveLoop()

	c.logger.Debug("Connected to driver")
	return &Client{c: c}, nil
}

// receiveLoop owns the read side: it decodes every frame and publishes it
// to the broadcaster until the connection ends.
func (c *conn) receiveLoop() {
	defer close(c.done)

	dec := protocol.NewClientDecoder(c.logger)
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.pipe.Read(buf)
		if n > 0 {
			for _, cmd := range dec.Feed(buf[:n]) {
				c.bcast.send(cmd)
			}
		}
		if err != nil {
			if stderrors.Is(err, transport.ErrInterrupted) {
				err = ErrClientClosed
			} else {
				c.logger.WithError(err).Debug("Driver connection ended")
			}
			c.bcast.close(errors.ReceiveFailed(err))
			return
		}
	}
}

// shutdown stops the receive loop and closes the pipe.
func (c *conn) shutdown() error {
	c.pipe.Interrupt()
	<-c.done
	c.logger.Debug("Disconnected from driver")
	return c.pipe.Close()
}

// Name returns the pipe name.
func (cl *Client) Name() string {
	return cl.c.name
}

// Notify sends the full topology to the driver.
func (cl *Client) Notify(ctx context.Context, monitors models.Topology) error {
	return cl.send(ctx, protocol.NewNotify(monitors))
}

// Remove asks the driver to remove the monitors with the given ids.
func (cl *Client) Remove(ctx context.Context, ids []models.ID) error {
	return cl.send(ctx, protocol.NewRemove(ids))
}

// RemoveAll asks the driver to remove every monitor.
func (cl *Client) RemoveAll(ctx context.Context) error {
	return cl.send(ctx, protocol.NewRemoveAll())
}

// send encodes cmd and writes it as one frame. Success means the frame was
// handed to the pipe, not that the driver applied it.
func (cl *Client) send(ctx context.Context, cmd protocol.Command) error {
	if cl.closed.Load() {
		return errors.SendFailed(ErrClientClosed)
	}
	frame, err := protocol.Encode(cmd)
	if err != nil {
		return errors.SendFailed(err)
	}
	cl.c.logger.WithField("command", cmd.String()).Debug("Sending command")
	return cl.c.pipe.WriteFrame(ctx, frame)
}

// RequestState asks the driver for its topology and waits for the next
// state reply. Replies are matched by type only, so concurrent callers on
// the same connection may receive each other's replies.
func (cl *Client) RequestState(ctx context.Context) (models.Topology, error) {
	// Subscribe first so the reply cannot arrive before we listen.
	r := cl.c.bcast.subscribe()
	if err := cl.send(ctx, protocol.NewRequestState()); err != nil {
		return nil, err
	}

	timeout := cl.c.opts.requestTimeout
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		cmd, err := r.recv(waitCtx)
		if err != nil {
			var lagged *LaggedError
			switch {
			case stderrors.As(err, &lagged):
				continue
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case waitCtx.Err() != nil:
				return nil, errors.RequestTimeout(timeout)
			default:
				return nil, err
			}
		}
		if cmd.IsReply() {
			return cmd.Monitors.Clone(), nil
		}
	}
}

// ReceiveEvents returns a stream of Changed topologies sent after the call.
// Every call gets an independent stream. The channel is closed when ctx is
// done or after the terminal RECEIVE_FAILED event.
func (cl *Client) ReceiveEvents(ctx context.Context) <-chan Event {
	r := cl.c.bcast.subscribe()
	out := make(chan Event)

	go func() {
		defer close(out)
		for {
			cmd, err := r.recv(ctx)
			var ev Event
			switch {
			case err == nil && !cmd.IsEvent():
				continue
			case err == nil:
				ev = Event{Monitors: cmd.Monitors.Clone()}
			case ctx.Err() != nil:
				return
			default:
				ev = Event{Err: err}
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}

			var lagged *LaggedError
			if ev.Err != nil && !stderrors.As(ev.Err, &lagged) {
				return
			}
		}
	}()
	return out
}

// Persist writes monitors to the persisted store the driver reads at start.
func (cl *Client) Persist(monitors models.Topology) error {
	return cl.store().Save(monitors)
}

// LoadPersisted reads the persisted topology.
func (cl *Client) LoadPersisted() (models.Topology, error) {
	return cl.store().Load()
}

func (cl *Client) store() persist.Store {
	if cl.c.opts.store != nil {
		return cl.c.opts.store
	}
	return persist.Default()
}

// Clone returns a new handle sharing this connection.
func (cl *Client) Clone() *Client {
	cl.c.refs.Add(1)
	return &Client{c: cl.c}
}

// Done is closed once the connection's receive loop has stopped.
func (cl *Client) Done() <-chan struct{} {
	return cl.c.done
}

// Close releases this handle. The connection is closed with the last
// handle. Closing a handle twice has no effect.
func (cl *Client) Close() error {
	if !cl.closed.CompareAndSwap(false, true) {
		return nil
	}
	if cl.c.refs.Add(-1) == 0 {
		return cl.c.shutdown()
	}
	return nil
}
