package syncipc

import (
	"context"

	"github.com/grovetools/vdd/pkg/ipc"
	"github.com/grovetools/vdd/pkg/models"
)

// DriverClient is the blocking form of ipc.DriverClient.
type DriverClient struct {
	inner *ipc.DriverClient
	exec  *executor
}

// NewDriverClient connects to the default pipe and loads the driver's state.
func NewDriverClient(opts ...ipc.Option) (*DriverClient, error) {
	return startDriver(func() (*ipc.DriverClient, error) {
		return ipc.NewDriverClient(context.Background(), opts...)
	})
}

// NewDriverClientWith connects to the named pipe and loads the driver's
// state.
func NewDriverClientWith(name string, opts ...ipc.Option) (*DriverClient, error) {
	return startDriver(func() (*ipc.DriverClient, error) {
		return ipc.NewDriverClientWith(context.Background(), name, opts...)
	})
}

func startDriver(open func() (*ipc.DriverClient, error)) (*DriverClient, error) {
	exec := newExecutor()
	inner, err := call(exec, open)
	if err != nil {
		_ = exec.stop(func() {})
		return nil, err
	}
	return &DriverClient{inner: inner, exec: exec}, nil
}

// Monitors returns a copy of the cached topology.
func (d *DriverClient) Monitors() models.Topology {
	return get(d.exec, d.inner.Monitors)
}

// FindID resolves a monitor name or id.
func (d *DriverClient) FindID(query string) (models.ID, bool) {
	var (
		id models.ID
		ok bool
	)
	_ = d.exec.run(func() { id, ok = d.inner.FindID(query) })
	return id, ok
}

// FindMonitor returns a copy of the monitor with the given id.
func (d *DriverClient) FindMonitor(id models.ID) (models.Monitor, bool) {
	var (
		m  models.Monitor
		ok bool
	)
	_ = d.exec.run(func() { m, ok = d.inner.FindMonitor(id) })
	return m, ok
}

// FindMonitorQuery returns a copy of the monitor matched by query.
func (d *DriverClient) FindMonitorQuery(query string) (models.Monitor, bool) {
	var (
		m  models.Monitor
		ok bool
	)
	_ = d.exec.run(func() { m, ok = d.inner.FindMonitorQuery(query) })
	return m, ok
}

// SetMonitors replaces the cache.
func (d *DriverClient) SetMonitors(monitors models.Topology) error {
	return do(d.exec, func() error { return d.inner.SetMonitors(monitors) })
}

// ReplaceMonitor replaces the monitor with the same id.
func (d *DriverClient) ReplaceMonitor(monitor models.Monitor) error {
	return do(d.exec, func() error { return d.inner.ReplaceMonitor(monitor) })
}

// UpdateMonitor changes one monitor, discarding the change if it breaks an
// invariant.
func (d *DriverClient) UpdateMonitor(id models.ID, fn func(*models.Monitor)) error {
	return do(d.exec, func() error { return d.inner.UpdateMonitor(id, fn) })
}

// UpdateMonitorQuery is UpdateMonitor for the monitor matched by query.
func (d *DriverClient) UpdateMonitorQuery(query string, fn func(*models.Monitor)) error {
	return do(d.exec, func() error { return d.inner.UpdateMonitorQuery(query, fn) })
}

// Remove drops the monitors with the given ids.
func (d *DriverClient) Remove(ids []models.ID) {
	_ = d.exec.run(func() { d.inner.Remove(ids) })
}

// RemoveQuery drops the monitors matched by queries.
func (d *DriverClient) RemoveQuery(queries []string) error {
	return do(d.exec, func() error { return d.inner.RemoveQuery(queries) })
}

// RemoveAll clears the cache.
func (d *DriverClient) RemoveAll() {
	_ = d.exec.run(d.inner.RemoveAll)
}

// Add appends a monitor.
func (d *DriverClient) Add(monitor models.Monitor) error {
	return do(d.exec, func() error { return d.inner.Add(monitor) })
}

// SetEnabled sets the enabled flag of the monitors with the given ids.
func (d *DriverClient) SetEnabled(ids []models.ID, enabled bool) {
	_ = d.exec.run(func() { d.inner.SetEnabled(ids, enabled) })
}

// SetEnabledQuery sets the enabled flag of the monitors matched by queries.
func (d *DriverClient) SetEnabledQuery(queries []string, enabled bool) error {
	return do(d.exec, func() error { return d.inner.SetEnabledQuery(queries, enabled) })
}

// AddMode appends a mode to a monitor.
func (d *DriverClient) AddMode(id models.ID, mode models.Mode) error {
	return do(d.exec, func() error { return d.inner.AddMode(id, mode) })
}

// AddModeQuery appends a mode to the monitor matched by query.
func (d *DriverClient) AddModeQuery(query string, mode models.Mode) error {
	return do(d.exec, func() error { return d.inner.AddModeQuery(query, mode) })
}

// RemoveMode drops a resolution from a monitor.
func (d *DriverClient) RemoveMode(id models.ID, width, height models.Dimen) error {
	return do(d.exec, func() error { return d.inner.RemoveMode(id, width, height) })
}

// RemoveModeQuery drops a resolution from the monitor matched by query.
func (d *DriverClient) RemoveModeQuery(query string, width, height models.Dimen) error {
	return do(d.exec, func() error { return d.inner.RemoveModeQuery(query, width, height) })
}

// NewID returns an unused monitor id.
func (d *DriverClient) NewID(preferred *models.ID) (models.ID, bool) {
	var (
		id models.ID
		ok bool
	)
	_ = d.exec.run(func() { id, ok = d.inner.NewID(preferred) })
	return id, ok
}

// Notify sends the cached topology to the driver.
func (d *DriverClient) Notify() error {
	return do(d.exec, func() error { return d.inner.Notify(context.Background()) })
}

// Persist writes the cached topology to persistent storage.
func (d *DriverClient) Persist() error {
	return do(d.exec, d.inner.Persist)
}

// RefreshState replaces the cache with the driver's current topology.
func (d *DriverClient) RefreshState() (models.Topology, error) {
	return call(d.exec, func() (models.Topology, error) {
		return d.inner.RefreshState(context.Background())
	})
}

// SetEventReceiver replaces the event receiver.
func (d *DriverClient) SetEventReceiver(cb ipc.EventReceiver) (*ipc.Subscription, error) {
	return call(d.exec, func() (*ipc.Subscription, error) {
		return d.inner.SetEventReceiver(cb), nil
	})
}

// TerminateEventReceiver cancels the current event receiver.
func (d *DriverClient) TerminateEventReceiver() (bool, error) {
	return call(d.exec, d.inner.TerminateEventReceiver)
}

// Duplicate returns a client with its own cache sharing this connection.
func (d *DriverClient) Duplicate() (*DriverClient, error) {
	inner, err := call(d.exec, func() (*ipc.DriverClient, error) {
		return d.inner.Duplicate(), nil
	})
	if err != nil {
		return nil, err
	}
	return &DriverClient{inner: inner, exec: newExecutor()}, nil
}

// Close stops the event receiver, releases the connection handle and stops
// the worker.
func (d *DriverClient) Close() error {
	var err error
	if stopErr := d.exec.stop(func() { err = d.inner.Close() }); stopErr != nil {
		return nil
	}
	return err
}
