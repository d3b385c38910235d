package syncipc

import (
	"context"

	"github.com/grovetools/vdd/pkg/ipc"
	"github.com/grovetools/vdd/pkg/models"
)

// Client is the blocking form of ipc.Client.
type Client struct {
	inner *ipc.Client
	exec  *executor
}

// Connect connects to the driver on the default pipe.
func Connect(opts ...ipc.Option) (*Client, error) {
	return start(func() (*ipc.Client, error) {
		return ipc.Connect(context.Background(), opts...)
	})
}

// ConnectTo connects to the driver on the named pipe.
func ConnectTo(name string, opts ...ipc.Option) (*Client, error) {
	return start(func() (*ipc.Client, error) {
		return ipc.ConnectTo(context.Background(), name, opts...)
	})
}

func start(open func() (*ipc.Client, error)) (*Client, error) {
	exec := newExecutor()
	inner, err := call(exec, open)
	if err != nil {
		_ = exec.stop(func() {})
		return nil, err
	}
	return &Client{inner: inner, exec: exec}, nil
}

// Notify sends the full topology to the driver.
func (c *Client) Notify(monitors models.Topology) error {
	return do(c.exec, func() error {
		return c.inner.Notify(context.Background(), monitors)
	})
}

// Remove asks the driver to remove the monitors with the given ids.
func (c *Client) Remove(ids []models.ID) error {
	return do(c.exec, func() error {
		return c.inner.Remove(context.Background(), ids)
	})
}

// RemoveAll asks the driver to remove every monitor.
func (c *Client) RemoveAll() error {
	return do(c.exec, func() error {
		return c.inner.RemoveAll(context.Background())
	})
}

// RequestState returns the driver's topology, waiting at most the request
// timeout.
func (c *Client) RequestState() (models.Topology, error) {
	return call(c.exec, func() (models.Topology, error) {
		return c.inner.RequestState(context.Background())
	})
}

// ReceiveEvent blocks until the next event sent after the call. The worker
// is not held while waiting.
func (c *Client) ReceiveEvent() (models.Topology, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := call(c.exec, func() (<-chan ipc.Event, error) {
		return c.inner.ReceiveEvents(ctx), nil
	})
	if err != nil {
		return nil, err
	}
	ev, ok := <-events
	if !ok {
		return nil, ErrClosed
	}
	return ev.Monitors, ev.Err
}

// AddEventReceiver starts cb on every later event. Multiple receivers may be
// active at once.
func (c *Client) AddEventReceiver(cb ipc.EventReceiver) (*ipc.Subscription, error) {
	return call(c.exec, func() (*ipc.Subscription, error) {
		return c.inner.Subscribe(cb), nil
	})
}

// Persist writes monitors to persistent storage.
func (c *Client) Persist(monitors models.Topology) error {
	return do(c.exec, func() error {
		return c.inner.Persist(monitors)
	})
}

// LoadPersisted reads the persisted topology.
func (c *Client) LoadPersisted() (models.Topology, error) {
	return call(c.exec, c.inner.LoadPersisted)
}

// Clone returns a client sharing this connection with its own worker.
func (c *Client) Clone() (*Client, error) {
	inner, err := call(c.exec, func() (*ipc.Client, error) {
		return c.inner.Clone(), nil
	})
	if err != nil {
		return nil, err
	}
	return &Client{inner: inner, exec: newExecutor()}, nil
}

// Close releases the connection handle and stops the worker.
func (c *Client) Close() error {
	var err error
	if stopErr := c.exec.stop(func() { err = c.inner.Close() }); stopErr != nil {
		return nil
	}
	return err
}
