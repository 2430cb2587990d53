package service

import (
	"context"
	"sync"
	"time"

	"pilo_plug/internal/models"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type DeviceHealthChecker interface {
	HealthCheck(ctx context.Context) models.DeviceHealth
}

type CollectorHealthChecker interface {
	HealthCheck(ctx context.Context) models.ServiceHealth
}

// HealthAggregator holds no state of its own; every Check queries the three
// legs afresh.
type HealthAggregator struct {
	db        Pinger
	device    DeviceHealthChecker
	collector CollectorHealthChecker
	version   string
	now       func() time.Time
}

func NewHealthAggregator(db Pinger, dev DeviceHealthChecker, col CollectorHealthChecker, version string) *HealthAggregator {
	return &HealthAggregator{db: db, device: dev, collector: col, version: version, now: time.Now}
}

// Check is healthy iff the database, the device and the collector all are.
func (h *HealthAggregator) Check(ctx context.Context) models.HealthReport {
	var (
		wg  sync.WaitGroup
		out models.HealthServices
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		out.Database = h.database(ctx)
	}()
	go func() {
		defer wg.Done()
		out.Device = h.device.HealthCheck(ctx)
	}()
	go func() {
		defer wg.Done()
		out.DataCollection = h.collector.HealthCheck(ctx)
	}()
	wg.Wait()

	ok := out.Database.Healthy() && out.Device.Healthy() && out.DataCollection.Healthy()
	return models.HealthReport{
		Status:    models.StatusFor(ok),
		Timestamp: h.now().UTC(),
		Version:   h.version,
		Services:  out,
	}
}

func (h *HealthAggregator) database(ctx context.Context) models.ComponentHealth {
	ch := models.ComponentHealth{Status: models.StatusHealthy, Timestamp: h.now().UTC()}
	if err := h.db.Ping(ctx); err != nil {
		ch.Status = models.StatusUnhealthy
		ch.Error = err.Error()
	}
	return ch
}
