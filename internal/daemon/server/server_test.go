package server

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/vdd/internal/daemon/engine"
	"github.com/grovetools/vdd/internal/daemon/store"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/protocol"
	"github.com/grovetools/vdd/pkg/transport"
	"github.com/grovetools/vdd/testutil"
)

type harness struct {
	pipe   string
	server *Server
	store  *store.Store
	done   chan error
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func startServer(t *testing.T, opts ...Option) *harness {
	t.Helper()
	testutil.IsolateHome(t)

	st := store.New(16, quietLogger())
	eng := engine.New(st, quietLogger())
	srv := New(eng, quietLogger(), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Start(ctx)

	pipe := testutil.UniquePipeName()
	ln, err := transport.Listen(pipe)
	require.NoError(t, err)

	h := &harness{pipe: pipe, server: srv, store: st, done: make(chan error, 1)}
	go func() { h.done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	})
	return h
}

// peer is a raw client connection that decodes everything it receives.
type peer struct {
	conn *transport.Conn
	cmds chan protocol.Command
	eof  chan struct{}
}

func (h *harness) dial(t *testing.T) *peer {
	t.Helper()
	conn, err := transport.Dial(context.Background(), h.pipe)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	p := &peer{conn: conn, cmds: make(chan protocol.Command, 16), eof: make(chan struct{})}
	go func() {
		defer close(p.eof)
		dec := protocol.NewClientDecoder(nil)
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			for _, cmd := range dec.Feed(buf[:n]) {
				p.cmds <- cmd
			}
			if err != nil {
				return
			}
		}
	}()
	return p
}

func (p *peer) send(t *testing.T, cmd protocol.Command) {
	t.Helper()
	frame, err := protocol.Encode(cmd)
	require.NoError(t, err)
	require.NoError(t, p.conn.WriteFrame(context.Background(), frame))
}

func (p *peer) sendRaw(t *testing.T, raw string) {
	t.Helper()
	require.NoError(t, p.conn.WriteFrame(context.Background(), []byte(raw)))
}

func (p *peer) next(t *testing.T) protocol.Command {
	t.Helper()
	select {
	case cmd := <-p.cmds:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return protocol.Command{}
	}
}

func (p *peer) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case cmd := <-p.cmds:
		t.Fatalf("unexpected frame %s", cmd)
	case <-time.After(d):
	}
}

func TestNotifyIsBroadcastToOtherClients(t *testing.T) {
	h := startServer(t)
	a := h.dial(t)
	b := h.dial(t)
	testutil.Eventually(t, 2*time.Second, func() bool { return h.server.Clients() == 2 }, "clients not registered")

	a.send(t, protocol.NewNotify(testutil.SampleTopology()))

	got := b.next(t)
	assert.Equal(t, protocol.KindChanged, got.Kind)
	assert.True(t, testutil.SampleTopology().Equal(got.Monitors))
	a.quiet(t, 200*time.Millisecond)

	a.send(t, protocol.NewRequestState())
	reply := a.next(t)
	assert.Equal(t, protocol.KindReplyState, reply.Kind)
	assert.True(t, testutil.SampleTopology().Equal(reply.Monitors))
	b.quiet(t, 200*time.Millisecond)
}

func TestRemoveAllBroadcastsEvenWhenEmpty(t *testing.T) {
	h := startServer(t)
	a := h.dial(t)
	b := h.dial(t)
	testutil.Eventually(t, 2*time.Second, func() bool { return h.server.Clients() == 2 }, "clients not registered")

	a.send(t, protocol.NewRemoveAll())
	got := b.next(t)
	assert.Equal(t, protocol.KindChanged, got.Kind)
	assert.Empty(t, got.Monitors)
}

func TestBadClientDoesNotAffectOthers(t *testing.T) {
	h := startServer(t)
	bad := h.dial(t)
	good := h.dial(t)

	bad.sendRaw(t, "{\"Bogus\":1}\x04not json\x04")
	invalid := models.Topology{testutil.Monitor(1, "", true), testutil.Monitor(1, "", false)}
	bad.send(t, protocol.NewNotify(invalid))

	bad.send(t, protocol.NewRequestState())
	reply := bad.next(t)
	assert.Equal(t, protocol.KindReplyState, reply.Kind)
	assert.Empty(t, reply.Monitors)

	good.send(t, protocol.NewRequestState())
	assert.Equal(t, protocol.KindReplyState, good.next(t).Kind)
	assert.Empty(t, h.store.Get())
}

func TestInterceptorDropsCommands(t *testing.T) {
	h := startServer(t, WithInterceptor(func(_ string, cmd protocol.Command) bool {
		return !cmd.IsRequest()
	}))
	a := h.dial(t)

	a.send(t, protocol.NewRequestState())
	a.quiet(t, 300*time.Millisecond)

	a.send(t, protocol.NewNotify(testutil.SampleTopology()))
	testutil.Eventually(t, 2*time.Second, func() bool {
		return h.store.Get().Equal(testutil.SampleTopology())
	}, "notify was not applied")
}

func TestShutdownDisconnectsClients(t *testing.T) {
	h := startServer(t)
	a := h.dial(t)
	testutil.Eventually(t, 2*time.Second, func() bool { return h.server.Clients() == 1 }, "client not registered")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.server.Shutdown(ctx))

	select {
	case <-a.eof:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not disconnected")
	}
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Equal(t, 0, h.server.Clients())
}
