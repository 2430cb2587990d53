package sink

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"pilo_plug/internal/config"
	"pilo_plug/internal/models"
)

const (
	influxPingTimeout = 5 * time.Second
	measurementName   = "power_usage"
)

// pointWriter is satisfied by api.WriteAPIBlocking.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes one point per sample, synchronously.
type InfluxSink struct {
	writer pointWriter
	close  func()
}

func NewInfluxSink(w pointWriter) *InfluxSink {
	return &InfluxSink{writer: w, close: func() {}}
}

// ConnectInflux pings the server and returns a blocking-write sink.
func ConnectInflux(cfg config.InfluxConfig) (*InfluxSink, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), influxPingTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping %s: %w", cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb ping %s: server not healthy", cfg.URL)
	}

	s := NewInfluxSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket))
	s.close = client.Close
	return s, nil
}

func (s *InfluxSink) Name() string { return "influxdb" }

func (s *InfluxSink) Publish(ctx context.Context, smp models.Sample) error {
	if err := s.writer.WritePoint(ctx, samplePoint(smp)); err != nil {
		return fmt.Errorf("influxdb write: %w", err)
	}
	return nil
}

func (s *InfluxSink) Close() error {
	s.close()
	return nil
}

// samplePoint maps a sample to a point. Null readings are left out.
func samplePoint(s models.Sample) *write.Point {
	fields := map[string]interface{}{
		"power_on":    s.PowerOn,
		"switch_lock": s.SwitchLock,
	}
	for key, v := range map[string]struct {
		val   float64
		valid bool
	}{
		"active_power_w":          {s.ActivePowerW.Decimal.InexactFloat64(), s.ActivePowerW.Valid},
		"voltage_v":               {s.VoltageV.Decimal.InexactFloat64(), s.VoltageV.Valid},
		"current_a":               {s.CurrentA.Decimal.InexactFloat64(), s.CurrentA.Valid},
		"frequency_hz":            {s.FrequencyHz.Decimal.InexactFloat64(), s.FrequencyHz.Valid},
		"total_energy_import_kwh": {s.TotalEnergyImportKWh.Decimal.InexactFloat64(), s.TotalEnergyImportKWh.Valid},
	} {
		if v.valid {
			fields[key] = v.val
		}
	}
	if s.Brightness != nil {
		fields["brightness"] = *s.Brightness
	}

	return influxdb2.NewPoint(measurementName,
		map[string]string{"device_id": s.DeviceID},
		fields,
		s.CapturedAt,
	)
}
