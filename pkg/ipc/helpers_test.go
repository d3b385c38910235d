package ipc

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/vdd/pkg/mock"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/testutil"
)

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func startDriver(t *testing.T, opts ...mock.Option) *mock.Server {
	t.Helper()
	testutil.IsolateHome(t)

	opts = append([]mock.Option{mock.WithLogger(quietLogger())}, opts...)
	drv, err := mock.New(testutil.UniquePipeName(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	return drv
}

func connect(t *testing.T, drv *mock.Server, opts ...Option) *Client {
	t.Helper()
	before := drv.Clients()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := ConnectTo(testutil.Context(t, 5*time.Second), drv.Name(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	// The driver subscribes a connection when it accepts it.
	testutil.Eventually(t, 2*time.Second, func() bool { return drv.Clients() > before }, "driver never accepted the client")
	return c
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return Event{}
	}
}

func noEvent(t *testing.T, events <-chan Event, d time.Duration) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(d):
	}
}

func named(id models.ID, name string) models.Monitor {
	return testutil.Monitor(id, name, true, testutil.Mode(1920, 1080, 60))
}
