package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pilo_plug/internal/models"
)

type deviceHealthStub struct{ status string }

func (d deviceHealthStub) HealthCheck(context.Context) models.DeviceHealth {
	return models.DeviceHealth{Status: d.status}
}

type collectorHealthStub struct{ status string }

func (c collectorHealthStub) HealthCheck(context.Context) models.ServiceHealth {
	return models.ServiceHealth{Status: c.status}
}

func TestHealthAggregator_Check(t *testing.T) {
	const (
		up   = models.StatusHealthy
		down = models.StatusUnhealthy
	)
	cases := []struct {
		name      string
		pingErr   error
		device    string
		collector string
		want      string
	}{
		{"all healthy", nil, up, up, up},
		{"database down", errors.New("database is closed"), up, up, down},
		{"device down", nil, down, up, down},
		{"collector down", nil, up, down, down},
		{"everything down", errors.New("x"), down, down, down},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthAggregator(&storeRepoStub{pingErr: tc.pingErr},
				deviceHealthStub{tc.device}, collectorHealthStub{tc.collector}, "1.2.0")

			r := h.Check(context.Background())
			assert.Equal(t, tc.want, r.Status)
			assert.Equal(t, "1.2.0", r.Version)
			assert.Equal(t, tc.device, r.Services.Device.Status)
			assert.Equal(t, tc.collector, r.Services.DataCollection.Status)
			if tc.pingErr != nil {
				assert.Equal(t, down, r.Services.Database.Status)
				assert.Equal(t, tc.pingErr.Error(), r.Services.Database.Error)
			} else {
				assert.Equal(t, up, r.Services.Database.Status)
				assert.Empty(t, r.Services.Database.Error)
			}
		})
	}
}
