package mock

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/vdd/pkg/protocol"
	"github.com/grovetools/vdd/pkg/transport"
	"github.com/grovetools/vdd/testutil"
)

func quiet() Option {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return WithLogger(logrus.NewEntry(logger))
}

func send(t *testing.T, conn *transport.Conn, cmd protocol.Command) {
	t.Helper()
	frame, err := protocol.Encode(cmd)
	require.NoError(t, err)
	require.NoError(t, conn.WriteFrame(context.Background(), frame))
}

// reader decodes every client-bound command received on conn.
func reader(conn *transport.Conn) <-chan protocol.Command {
	out := make(chan protocol.Command, 8)
	go func() {
		defer close(out)
		dec := protocol.NewClientDecoder(nil)
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			for _, cmd := range dec.Feed(buf[:n]) {
				out <- cmd
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

func readOne(cmds <-chan protocol.Command, d time.Duration) (protocol.Command, bool) {
	select {
	case cmd, ok := <-cmds:
		return cmd, ok
	case <-time.After(d):
		return protocol.Command{}, false
	}
}

func TestRecordsAndAppliesCommands(t *testing.T) {
	testutil.IsolateHome(t)
	drv, err := New(testutil.UniquePipeName(), quiet())
	require.NoError(t, err)
	defer drv.Close()

	conn, err := transport.Dial(context.Background(), drv.Name())
	require.NoError(t, err)
	defer conn.Close()

	send(t, conn, protocol.NewNotify(testutil.SampleTopology()))
	send(t, conn, protocol.NewRemoveAll())

	cmds, err := drv.WaitCommands(testutil.Context(t, 2*time.Second), 2)
	require.NoError(t, err)
	assert.Equal(t, protocol.KindNotify, cmds[0].Kind)
	assert.Equal(t, protocol.KindRemoveAll, cmds[1].Kind)
	assert.Len(t, drv.Commands(), 2)
	testutil.Eventually(t, 2*time.Second, func() bool { return len(drv.State()) == 0 }, "remove all not applied")
}

func TestMuteDropsStateRequests(t *testing.T) {
	testutil.IsolateHome(t)
	drv, err := New(testutil.UniquePipeName(), quiet(), WithState(testutil.SampleTopology()))
	require.NoError(t, err)
	defer drv.Close()
	assert.True(t, drv.State().Equal(testutil.SampleTopology()))

	conn, err := transport.Dial(context.Background(), drv.Name())
	require.NoError(t, err)
	defer conn.Close()

	cmds := reader(conn)
	drv.Mute(true)
	send(t, conn, protocol.NewRequestState())
	_, ok := readOne(cmds, 300*time.Millisecond)
	assert.False(t, ok)
	assert.Len(t, drv.Commands(), 1, "muted requests are still recorded")

	drv.Mute(false)
	send(t, conn, protocol.NewRequestState())
	reply, ok := readOne(cmds, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, protocol.KindReplyState, reply.Kind)
	assert.True(t, reply.Monitors.Equal(testutil.SampleTopology()))
}

func TestWaitCommandsHonorsContext(t *testing.T) {
	testutil.IsolateHome(t)
	drv, err := New(testutil.UniquePipeName(), quiet())
	require.NoError(t, err)
	defer drv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = drv.WaitCommands(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseDisconnectsClients(t *testing.T) {
	testutil.IsolateHome(t)
	drv, err := New(testutil.UniquePipeName(), quiet())
	require.NoError(t, err)

	conn, err := transport.Dial(context.Background(), drv.Name())
	require.NoError(t, err)
	defer conn.Close()
	testutil.Eventually(t, 2*time.Second, func() bool { return drv.Clients() == 1 }, "client not accepted")

	require.NoError(t, drv.Close())
	require.NoError(t, drv.Close())

	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}
