package collector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/vdd/internal/daemon/store"
	"github.com/grovetools/vdd/logging"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/pkg/persist"
	"github.com/grovetools/vdd/pkg/protocol"
)

// PersistOrigin is the origin recorded for changes loaded from storage.
const PersistOrigin = "persist"

// PersistCollector applies the persisted topology when the daemon starts and,
// when watching, again whenever the stored record changes.
type PersistCollector struct {
	source   persist.Store
	watch    bool
	debounce time.Duration
	logger   *logrus.Entry
}

// NewPersistCollector creates a collector reading from source. Watching only
// applies to file-backed stores.
func NewPersistCollector(source persist.Store, watch bool, debounce time.Duration) *PersistCollector {
	return &PersistCollector{
		source:   source,
		watch:    watch,
		debounce: debounce,
		logger:   logging.NewLogger("collector-persist"),
	}
}

// Name returns the collector's name.
func (c *PersistCollector) Name() string { return "persist" }

// Run loads the persisted topology once, then watches for changes until ctx
// is canceled.
func (c *PersistCollector) Run(ctx context.Context, st *store.Store, requests chan<- store.Request) error {
	c.apply(ctx, requests, true)

	fileStore, ok := c.source.(*persist.FileStore)
	if !c.watch || !ok {
		<-ctx.Done()
		return nil
	}

	w, err := persist.NewWatcher(fileStore, c.debounce, func() {
		c.apply(ctx, requests, false)
	})
	if err != nil {
		return err
	}
	c.logger.WithField("path", fileStore.Path()).Info("Watching persisted monitors")
	w.Start(ctx)
	return nil
}

// apply loads the record and submits it as a Notify. An empty record is only
// applied after startup, when it means the monitors were cleared.
func (c *PersistCollector) apply(ctx context.Context, requests chan<- store.Request, startup bool) {
	monitors, err := c.source.Load()
	if err != nil {
		c.logger.WithError(err).WithField("location", c.source.Location()).Warn("Failed to load persisted monitors")
		return
	}
	if startup && len(monitors) == 0 {
		c.logger.Debug("No persisted monitors")
		return
	}

	req := store.Request{
		Command: protocol.NewNotify(monitors),
		Origin:  PersistOrigin,
		Result:  make(chan store.Result, 1),
	}
	select {
	case requests <- req:
	case <-ctx.Done():
		return
	}

	select {
	case res := <-req.Result:
		c.logResult(res, monitors)
	case <-ctx.Done():
	}
}

func (c *PersistCollector) logResult(res store.Result, monitors models.Topology) {
	switch {
	case res.Err != nil:
		c.logger.WithError(res.Err).Warn("Persisted monitors rejected")
	case res.Changed:
		c.logger.WithField("monitors", len(monitors)).Info("Applied persisted monitors")
	default:
		c.logger.Debug("Persisted monitors already current")
	}
}
