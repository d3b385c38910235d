// Package transport provides the duplex byte stream between clients and the
// driver. On Windows it is a named pipe (\\.\pipe\<name>); elsewhere a unix
// domain socket under the runtime directory stands in for it.
package transport

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grovetools/vdd/errors"
)

// DefaultWriteStall bounds a single write attempt before it is retried.
const DefaultWriteStall = time.Second

// ErrInterrupted is returned by Read after Interrupt was called.
var ErrInterrupted = stderrors.New("transport: read interrupted")

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = stderrors.New("transport: connection closed")

// Conn is one end of a pipe connection. Reads must come from a single
// goroutine; WriteFrame may be called concurrently and writes whole frames
// without interleaving.
type Conn struct {
	conn       net.Conn
	name       string
	writeMu    sync.Mutex
	writeStall time.Duration

	interrupted atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once
	closeErr    error
}

// NewConn wraps an established net.Conn.
func NewConn(c net.Conn, name string) *Conn {
	return &Conn{conn: c, name: name, writeStall: DefaultWriteStall}
}

// SetWriteStall changes how long one write attempt may block.
func (c *Conn) SetWriteStall(d time.Duration) {
	if d > 0 {
		c.writeStall = d
	}
}

// Name returns the pipe name the connection belongs to.
func (c *Conn) Name() string {
	return c.name
}

// WriteFrame writes frame completely or fails. An attempt that stalls past
// the write deadline is retried with the unwritten remainder. Any other error
// is terminal and reported as a send failure.
func (c *Conn) WriteFrame(ctx context.Context, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return errors.SendFailed(ErrClosed)
	}

	remaining := frame
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return errors.SendFailed(err)
		}
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeStall)); err != nil {
			return errors.SendFailed(err)
		}
		n, err := c.conn.Write(remaining)
		remaining = remaining[n:]
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return errors.SendFailed(err)
		}
	}
	_ = c.conn.SetWriteDeadline(time.Time{})
	return nil
}

// Read waits for data. A zero-length read means the peer closed and is
// reported as io.EOF. After Interrupt, Read returns ErrInterrupted.
func (c *Conn) Read(p []byte) (int, error) {
	if c.interrupted.Load() {
		return 0, ErrInterrupted
	}
	n, err := c.conn.Read(p)
	if err != nil {
		if c.interrupted.Load() && isTimeout(err) {
			return n, ErrInterrupted
		}
		if c.closed.Load() || stderrors.Is(err, net.ErrClosed) {
			return n, io.EOF
		}
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Interrupt makes a blocked or future Read return ErrInterrupted without
// closing the handle.
func (c *Conn) Interrupt() {
	c.interrupted.Store(true)
	_ = c.conn.SetReadDeadline(time.Unix(1, 0))
}

// Resume clears a previous Interrupt.
func (c *Conn) Resume() {
	c.interrupted.Store(false)
	_ = c.conn.SetReadDeadline(time.Time{})
}

// Close releases the handle. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Listener accepts pipe connections.
type Listener struct {
	ln   net.Listener
	name string
	once sync.Once
}

// Accept waits for the next client.
func (l *Listener) Accept() (*Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(c, l.name), nil
}

// Name returns the pipe name being served.
func (l *Listener) Name() string {
	return l.name
}

// Addr returns the platform address of the endpoint.
func (l *Listener) Addr() string {
	return Address(l.name)
}

// Close stops accepting and removes the endpoint.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		err = l.ln.Close()
	})
	return err
}

func isTimeout(err error) bool {
	if stderrors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

// Dial connects to the pipe with the given name. It fails immediately when
// no server is listening.
func Dial(ctx context.Context, name string) (*Conn, error) {
	c, err := dial(ctx, name)
	if err != nil {
		return nil, errors.ConnectFailed(name, err)
	}
	return NewConn(c, name), nil
}

// Listen creates the pipe endpoint with the given name.
func Listen(name string) (*Listener, error) {
	ln, err := listen(name)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, name: name}, nil
}
