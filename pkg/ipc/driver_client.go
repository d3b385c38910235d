package ipc

import (
	"context"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/protocol"
)

// DriverClient keeps a local copy of the driver's topology. Edits apply to
// the copy only and are validated before they are committed; Notify sends
// the copy to the driver. It is safe for concurrent use.
type DriverClient struct {
	client *Client
	logger *logrus.Entry

	mu       sync.Mutex
	monitors models.Topology

	subMu sync.Mutex
	sub   *Subscription
}

// NewDriverClient connects to the default pipe and loads the driver's
// current topology.
func NewDriverClient(ctx context.Context, opts ...Option) (*DriverClient, error) {
	return NewDriverClientWith(ctx, protocol.DefaultPipeName, opts...)
}

// NewDriverClientWith connects to the named pipe and loads the driver's
// current topology. Failures are INIT_FAILED errors wrapping the connect or
// request error.
func NewDriverClientWith(ctx context.Context, name string, opts ...Option) (*DriverClient, error) {
	client, err := ConnectTo(ctx, name, opts...)
	if err != nil {
		return nil, errors.InitFailed(err)
	}

	monitors, err := client.RequestState(ctx)
	if err != nil {
		_ = client.Close()
		return nil, errors.InitFailed(err)
	}

	return &DriverClient{
		client:   client,
		logger:   client.c.logger,
		monitors: monitors,
	}, nil
}

// Client returns the underlying connection handle.
func (d *DriverClient) Client() *Client {
	return d.client
}

// Monitors returns a copy of the cached topology.
func (d *DriverClient) Monitors() models.Topology {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.monitors.Clone()
}

// FindID resolves a query to a monitor id. A monitor whose name equals the
// query wins over one whose id equals the query parsed as a number.
func (d *DriverClient) FindID(query string) (models.ID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findID(query)
}

func (d *DriverClient) findID(query string) (models.ID, bool) {
	for _, m := range d.monitors {
		if m.Name != nil && *m.Name == query {
			return m.ID, true
		}
	}
	if id, err := strconv.ParseUint(query, 10, 32); err == nil {
		if idx := d.monitors.Index(models.ID(id)); idx >= 0 {
			return d.monitors[idx].ID, true
		}
	}
	return 0, false
}

// resolve maps every query to an id, failing on the first one that matches
// nothing.
func (d *DriverClient) resolve(queries []string) ([]models.ID, error) {
	ids := make([]models.ID, 0, len(queries))
	for _, q := range queries {
		id, ok := d.findID(q)
		if !ok {
			return nil, errors.QueryNotFound(q)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FindMonitor returns a copy of the monitor with the given id.
func (d *DriverClient) FindMonitor(id models.ID) (models.Monitor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.monitors.Find(id)
	if !ok {
		return models.Monitor{}, false
	}
	return m.Clone(), true
}

// FindMonitorQuery returns a copy of the monitor matched by query.
func (d *DriverClient) FindMonitorQuery(query string) (models.Monitor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.findID(query)
	if !ok {
		return models.Monitor{}, false
	}
	m, _ := d.monitors.Find(id)
	return m.Clone(), true
}

// SetMonitors replaces the cache. On a duplicate error the cache is left
// unchanged.
func (d *DriverClient) SetMonitors(monitors models.Topology) error {
	if err := models.ValidateTopology(monitors); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.monitors = monitors.Clone()
	return nil
}

// ReplaceMonitor replaces the monitor with the same id in place.
func (d *DriverClient) ReplaceMonitor(monitor models.Monitor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.monitors.Index(monitor.ID)
	if idx < 0 {
		return errors.MonitorNotFound(monitor.ID)
	}
	if err := models.ValidateMonitor(monitor); err != nil {
		return err
	}
	d.monitors[idx] = monitor.Clone()
	return nil
}

// UpdateMonitor calls fn on the monitor with the given id. If the result
// breaks an invariant the change is discarded and the duplicate error
// returned. fn must not call back into d.
func (d *DriverClient) UpdateMonitor(id models.ID, fn func(*models.Monitor)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.update(id, fn)
}

// UpdateMonitorQuery is UpdateMonitor for the monitor matched by query.
func (d *DriverClient) UpdateMonitorQuery(query string, fn func(*models.Monitor)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.findID(query)
	if !ok {
		return errors.QueryNotFound(query)
	}
	return d.update(id, fn)
}

func (d *DriverClient) update(id models.ID, fn func(*models.Monitor)) error {
	idx := d.monitors.Index(id)
	if idx < 0 {
		return errors.MonitorNotFound(id)
	}

	work := d.monitors.Clone()
	fn(&work[idx])
	if err := models.ValidateTopology(work); err != nil {
		return err
	}
	d.monitors = work
	return nil
}

// Remove drops the monitors with the given ids. Unknown ids are ignored.
func (d *DriverClient) Remove(ids []models.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.monitors, _ = d.monitors.Without(ids)
}

// RemoveQuery drops the monitors matched by queries. Nothing is removed if
// any query matches no monitor.
func (d *DriverClient) RemoveQuery(queries []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids, err := d.resolve(queries)
	if err != nil {
		return err
	}
	d.monitors, _ = d.monitors.Without(ids)
	return nil
}

// RemoveAll clears the cache.
func (d *DriverClient) RemoveAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.monitors = models.Topology{}
}

// Add appends a monitor. Its id must be unused and its modes valid.
func (d *DriverClient) Add(monitor models.Monitor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.monitors.Index(monitor.ID) >= 0 {
		return errors.DuplicateMonitor(monitor.ID)
	}
	if err := models.ValidateMonitor(monitor); err != nil {
		return err
	}
	d.monitors = append(d.monitors, monitor.Clone())
	return nil
}

// SetEnabled sets the enabled flag of every monitor with one of the ids.
// Unknown ids are ignored.
func (d *DriverClient) SetEnabled(ids []models.ID, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setEnabled(ids, enabled)
}

// SetEnabledQuery is SetEnabled for the monitors matched by queries.
func (d *DriverClient) SetEnabledQuery(queries []string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids, err := d.resolve(queries)
	if err != nil {
		return err
	}
	d.setEnabled(ids, enabled)
	return nil
}

func (d *DriverClient) setEnabled(ids []models.ID, enabled bool) {
	for i := range d.monitors {
		for _, id := range ids {
			if d.monitors[i].ID == id {
				d.monitors[i].Enabled = enabled
				break
			}
		}
	}
}

// AddMode appends a mode to a monitor. The mode's refresh rates are checked
// first, then that the monitor has no mode with the same resolution.
func (d *DriverClient) AddMode(id models.ID, mode models.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addMode(id, mode)
}

// AddModeQuery is AddMode for the monitor matched by query.
func (d *DriverClient) AddModeQuery(query string, mode models.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.findID(query)
	if !ok {
		return errors.QueryNotFound(query)
	}
	return d.addMode(id, mode)
}

func (d *DriverClient) addMode(id models.ID, mode models.Mode) error {
	idx := d.monitors.Index(id)
	if idx < 0 {
		return errors.MonitorNotFound(id)
	}
	if err := models.ValidateMode(mode, id); err != nil {
		return err
	}
	mon := &d.monitors[idx]
	if mon.ModeIndex(mode.Width, mode.Height) >= 0 {
		return errors.ModeExists(id, mode.Width, mode.Height)
	}
	mon.Modes = append(mon.Modes, mode.Clone())
	return nil
}

// RemoveMode drops any mode with the given resolution from a monitor. Only a
// missing monitor is an error.
func (d *DriverClient) RemoveMode(id models.ID, width, height models.Dimen) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeMode(id, width, height)
}

// RemoveModeQuery is RemoveMode for the monitor matched by query.
func (d *DriverClient) RemoveModeQuery(query string, width, height models.Dimen) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.findID(query)
	if !ok {
		return errors.QueryNotFound(query)
	}
	return d.removeMode(id, width, height)
}

func (d *DriverClient) removeMode(id models.ID, width, height models.Dimen) error {
	idx := d.monitors.Index(id)
	if idx < 0 {
		return errors.MonitorNotFound(id)
	}
	mon := &d.monitors[idx]
	kept := make([]models.Mode, 0, len(mon.Modes))
	for _, m := range mon.Modes {
		if m.Width == width && m.Height == height {
			continue
		}
		kept = append(kept, m)
	}
	mon.Modes = kept
	return nil
}

// NewID returns an unused monitor id. A preferred id is returned only if it
// is free; when it is taken the result is false rather than another id.
// Without a preference the lowest unused id is returned.
func (d *DriverClient) NewID(preferred *models.ID) (models.ID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	used := make(map[models.ID]struct{}, len(d.monitors))
	for _, m := range d.monitors {
		used[m.ID] = struct{}{}
	}

	if preferred != nil {
		if _, taken := used[*preferred]; taken {
			return 0, false
		}
		return *preferred, true
	}

	for id := models.ID(0); ; id++ {
		if _, taken := used[id]; !taken {
			return id, true
		}
	}
}

// Notify sends the cached topology to the driver. The cache is not updated
// from any reply.
func (d *DriverClient) Notify(ctx context.Context) error {
	return d.client.Notify(ctx, d.Monitors())
}

// Persist writes the cached topology to persistent storage.
func (d *DriverClient) Persist() error {
	return d.client.Persist(d.Monitors())
}

// RefreshState replaces the cache with the driver's current topology.
func (d *DriverClient) RefreshState(ctx context.Context) (models.Topology, error) {
	monitors, err := d.client.RequestState(ctx)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.monitors = monitors
	d.mu.Unlock()
	return monitors.Clone(), nil
}

// ReceiveEvents returns a stream of changes made by other clients.
func (d *DriverClient) ReceiveEvents(ctx context.Context) <-chan Event {
	return d.client.ReceiveEvents(ctx)
}

// SetEventReceiver starts cb on every topology change and returns its
// subscription. A DriverClient has at most one receiver; setting a new one
// cancels the previous. The cache is not changed by events.
func (d *DriverClient) SetEventReceiver(cb EventReceiver) *Subscription {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	if d.sub != nil {
		if _, err := d.sub.Cancel(); err != nil {
			d.logger.WithError(err).Warn("Previous event receiver failed")
		}
	}
	d.sub = d.client.Subscribe(cb)
	return d.sub
}

// TerminateEventReceiver cancels the current receiver. It returns false if
// there was none or it was already cancelled.
func (d *DriverClient) TerminateEventReceiver() (bool, error) {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	if d.sub == nil {
		return false, nil
	}
	cancelled, err := d.sub.Cancel()
	d.sub = nil
	return cancelled, err
}

// Duplicate returns a DriverClient with its own copy of the cache sharing
// this connection.
func (d *DriverClient) Duplicate() *DriverClient {
	return &DriverClient{
		client:   d.client.Clone(),
		logger:   d.logger,
		monitors: d.Monitors(),
	}
}

// Close stops the event receiver and releases this handle on the
// connection.
func (d *DriverClient) Close() error {
	if _, err := d.TerminateEventReceiver(); err != nil {
		d.logger.WithError(err).Warn("Event receiver failed")
	}
	return d.client.Close()
}
