package ipc

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/mock"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/persist"
	"github.com/grovetools/vdd/testutil"
)

func newDriverClient(t *testing.T, drv *mock.Server, opts ...Option) *DriverClient {
	t.Helper()
	before := drv.Clients()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	d, err := NewDriverClientWith(testutil.Context(t, 5*time.Second), drv.Name(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	testutil.Eventually(t, 2*time.Second, func() bool { return drv.Clients() > before }, "driver never accepted the client")
	return d
}

func detail(t *testing.T, err error, key string) interface{} {
	t.Helper()
	v, ok := errors.Detail(err, key)
	require.True(t, ok, "missing detail %q on %v", key, err)
	return v
}

func TestNewDriverClientLoadsState(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	if diff := cmp.Diff(testutil.SampleTopology(), d.Monitors()); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}
}

func TestNewDriverClientInitErrors(t *testing.T) {
	testutil.IsolateHome(t)
	_, err := NewDriverClientWith(context.Background(), testutil.UniquePipeName(), WithLogger(quietLogger()))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInitFailed, errors.GetCode(err))
	assert.True(t, errors.Is(err, errors.ErrCodeConnectFailed))

	drv := startDriver(t)
	drv.Mute(true)
	_, err = NewDriverClientWith(context.Background(), drv.Name(),
		WithLogger(quietLogger()), WithRequestTimeout(100*time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInitFailed, errors.GetCode(err))
	assert.True(t, errors.Is(err, errors.ErrCodeRequestTimeout))
}

func TestFindID(t *testing.T) {
	drv := startDriver(t, mock.WithState(models.Topology{
		named(0, "foo"),
		named(1, "bar"),
		named(2, "1"),
	}))
	d := newDriverClient(t, drv)

	tests := []struct {
		query string
		want  models.ID
		found bool
	}{
		{"foo", 0, true},
		{"bar", 1, true},
		{"1", 2, true},
		{"0", 0, true},
		{"baz", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := d.FindID(tt.query)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	m, ok := d.FindMonitorQuery("bar")
	require.True(t, ok)
	assert.Equal(t, models.ID(1), m.ID)
	_, ok = d.FindMonitor(9)
	assert.False(t, ok)
}

func TestSetMonitorsRejectsDuplicates(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	err := d.SetMonitors(models.Topology{named(5, "a"), named(5, "b")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateMonitor))
	assert.Equal(t, uint32(5), detail(t, err, "id"))
	assert.True(t, testutil.SampleTopology().Equal(d.Monitors()))

	require.NoError(t, d.SetMonitors(models.Topology{named(5, "a")}))
	assert.Len(t, d.Monitors(), 1)
}

func TestMonitorsReturnsCopy(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	got := d.Monitors()
	got[0].Modes[0].Width = 1
	assert.True(t, testutil.SampleTopology().Equal(d.Monitors()))
}

func TestAddMode(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)
	before, _ := d.FindMonitor(0)

	err := d.AddMode(0, testutil.Mode(1920, 1080, 60))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeModeExists))
	assert.Equal(t, uint32(0), detail(t, err, "id"))
	assert.Equal(t, uint32(1920), detail(t, err, "width"))
	assert.Equal(t, uint32(1080), detail(t, err, "height"))

	// Refresh rates are checked before the resolution.
	err = d.AddMode(0, testutil.Mode(1920, 1080, 60, 60))
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateRefreshRate))

	err = d.AddMode(7, testutil.Mode(800, 600, 60))
	assert.True(t, errors.Is(err, errors.ErrCodeMonitorNotFound))

	after, _ := d.FindMonitor(0)
	assert.True(t, before.Equal(after))

	require.NoError(t, d.AddModeQuery("primary", testutil.Mode(800, 600, 60)))
	after, _ = d.FindMonitor(0)
	assert.Len(t, after.Modes, 3)

	err = d.AddModeQuery("nobody", testutil.Mode(640, 480, 60))
	assert.True(t, errors.Is(err, errors.ErrCodeQueryNotFound))
}

func TestRemoveMode(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	require.NoError(t, d.RemoveMode(0, 1280, 720))
	require.NoError(t, d.RemoveMode(0, 1, 1))
	m, _ := d.FindMonitor(0)
	require.Len(t, m.Modes, 1)
	assert.Equal(t, models.Dimen(1920), m.Modes[0].Width)

	assert.True(t, errors.Is(d.RemoveMode(9, 1920, 1080), errors.ErrCodeMonitorNotFound))
	assert.True(t, errors.Is(d.RemoveModeQuery("nobody", 1920, 1080), errors.ErrCodeQueryNotFound))
	require.NoError(t, d.RemoveModeQuery("primary", 1920, 1080))
	m, _ = d.FindMonitor(0)
	assert.Empty(t, m.Modes)
}

func TestNewID(t *testing.T) {
	drv := startDriver(t, mock.WithState(models.Topology{named(0, ""), named(1, ""), named(2, "")}))
	d := newDriverClient(t, drv)

	id, ok := d.NewID(nil)
	assert.True(t, ok)
	assert.Equal(t, models.ID(3), id)

	taken := models.ID(1)
	_, ok = d.NewID(&taken)
	assert.False(t, ok)

	free := models.ID(10)
	id, ok = d.NewID(&free)
	assert.True(t, ok)
	assert.Equal(t, models.ID(10), id)

	d.Remove([]models.ID{1})
	id, _ = d.NewID(nil)
	assert.Equal(t, models.ID(1), id)
}

func TestAdd(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	err := d.Add(named(1, "again"))
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateMonitor))

	bad := testutil.Monitor(3, "", true, testutil.Mode(800, 600, 60), testutil.Mode(800, 600, 75))
	err = d.Add(bad)
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateMode))
	assert.Len(t, d.Monitors(), 2)

	require.NoError(t, d.Add(named(3, "third")))
	got := d.Monitors()
	require.Len(t, got, 3)
	assert.Equal(t, models.ID(3), got[2].ID)
}

func TestReplaceMonitor(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	err := d.ReplaceMonitor(named(9, "ghost"))
	assert.True(t, errors.Is(err, errors.ErrCodeMonitorNotFound))

	require.NoError(t, d.ReplaceMonitor(named(1, "renamed")))
	got := d.Monitors()
	assert.Equal(t, "renamed", got[1].NameOr(""))
	assert.Equal(t, models.ID(0), got[0].ID, "order is kept")
}

func TestUpdateMonitorRollsBack(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	err := d.UpdateMonitor(1, func(m *models.Monitor) {
		m.ID = 0
		m.Name = models.StrPtr("clash")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateMonitor))
	assert.True(t, testutil.SampleTopology().Equal(d.Monitors()))

	err = d.UpdateMonitor(0, func(m *models.Monitor) {
		m.Modes[0].RefreshRates = append(m.Modes[0].RefreshRates, 60)
	})
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateRefreshRate))
	assert.True(t, testutil.SampleTopology().Equal(d.Monitors()))

	require.NoError(t, d.UpdateMonitorQuery("primary", func(m *models.Monitor) { m.Enabled = false }))
	m, _ := d.FindMonitor(0)
	assert.False(t, m.Enabled)

	assert.True(t, errors.Is(d.UpdateMonitor(9, func(*models.Monitor) {}), errors.ErrCodeMonitorNotFound))
	assert.True(t, errors.Is(d.UpdateMonitorQuery("nobody", func(*models.Monitor) {}), errors.ErrCodeQueryNotFound))
}

func TestRemoveAndEnable(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)

	d.SetEnabled([]models.ID{1, 42}, true)
	m, _ := d.FindMonitor(1)
	assert.True(t, m.Enabled)

	err := d.SetEnabledQuery([]string{"primary", "nobody"}, false)
	assert.True(t, errors.Is(err, errors.ErrCodeQueryNotFound))
	m, _ = d.FindMonitor(0)
	assert.True(t, m.Enabled, "nothing changes when a query fails")

	require.NoError(t, d.SetEnabledQuery([]string{"primary", "1"}, false))
	for _, m := range d.Monitors() {
		assert.False(t, m.Enabled)
	}

	assert.True(t, errors.Is(d.RemoveQuery([]string{"0", "nobody"}), errors.ErrCodeQueryNotFound))
	assert.Len(t, d.Monitors(), 2)

	d.Remove([]models.ID{42})
	assert.Len(t, d.Monitors(), 2)
	require.NoError(t, d.RemoveQuery([]string{"primary"}))
	assert.Equal(t, []models.ID{1}, d.Monitors().IDs())

	d.RemoveAll()
	assert.Empty(t, d.Monitors())
}

func TestNotifyAndRefresh(t *testing.T) {
	drv := startDriver(t)
	d := newDriverClient(t, drv)
	ctx := testutil.Context(t, 5*time.Second)

	require.NoError(t, d.SetMonitors(testutil.SampleTopology()))
	require.NoError(t, d.Notify(ctx))
	testutil.Eventually(t, 2*time.Second, func() bool {
		return drv.State().Equal(testutil.SampleTopology())
	}, "driver never received the topology")

	want := models.Topology{named(8, "eight")}
	require.NoError(t, drv.SetState(want))
	assert.True(t, testutil.SampleTopology().Equal(d.Monitors()), "events do not touch the cache")

	got, err := d.RefreshState(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.True(t, want.Equal(d.Monitors()))
}

func TestEventReceiver(t *testing.T) {
	drv := startDriver(t)
	d := newDriverClient(t, drv)

	calls := make(chan models.Topology, 4)
	first := d.SetEventReceiver(func(t models.Topology) { calls <- t })

	require.NoError(t, drv.SetState(testutil.SampleTopology()))
	select {
	case got := <-calls:
		assert.True(t, testutil.SampleTopology().Equal(got))
	case <-time.After(2 * time.Second):
		t.Fatal("receiver was not called")
	}

	var second atomic.Int32
	sub := d.SetEventReceiver(func(models.Topology) { second.Add(1) })
	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("previous receiver was not cancelled")
	}
	cancelled, err := first.Cancel()
	assert.False(t, cancelled)
	assert.NoError(t, err)

	require.NoError(t, drv.SetState(models.Topology{named(3, "")}))
	testutil.Eventually(t, 2*time.Second, func() bool { return second.Load() == 1 }, "new receiver was not called")
	assert.Empty(t, calls)

	cancelled, err = d.TerminateEventReceiver()
	assert.True(t, cancelled)
	assert.NoError(t, err)
	<-sub.Done()

	cancelled, _ = d.TerminateEventReceiver()
	assert.False(t, cancelled)
}

func TestEventReceiverPanic(t *testing.T) {
	drv := startDriver(t)
	d := newDriverClient(t, drv)

	sub := d.SetEventReceiver(func(models.Topology) { panic("boom") })
	require.NoError(t, drv.SetState(testutil.SampleTopology()))

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop after panicking")
	}

	cancelled, err := sub.CancelWait(context.Background())
	assert.True(t, cancelled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCallbackPanicked))

	cancelled, err = sub.Cancel()
	assert.False(t, cancelled)
	assert.NoError(t, err, "a panic is reported once")
}

func TestDuplicate(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	d := newDriverClient(t, drv)
	dup := d.Duplicate()

	dup.RemoveAll()
	assert.Len(t, d.Monitors(), 2)
	assert.Empty(t, dup.Monitors())

	require.NoError(t, d.Close())
	got, err := dup.RefreshState(testutil.Context(t, 5*time.Second))
	require.NoError(t, err)
	assert.True(t, testutil.SampleTopology().Equal(got))
	require.NoError(t, dup.Close())

	select {
	case <-dup.Client().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed with the last handle")
	}
}

func TestDriverClientPersist(t *testing.T) {
	drv := startDriver(t, mock.WithState(testutil.SampleTopology()))
	store := persist.NewFileStore(filepath.Join(t.TempDir(), "data.json"))
	d := newDriverClient(t, drv, WithPersistStore(store))

	require.NoError(t, d.Persist())
	got, err := store.Load()
	require.NoError(t, err)
	assert.True(t, testutil.SampleTopology().Equal(got))
}
