package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"pilo_plug/internal/device"
	"pilo_plug/internal/models"
	"pilo_plug/internal/service"
)

// ---- Service Mocks ----

type mockCollection struct {
	mu         sync.Mutex
	stats      models.CollectionStats
	health     models.ServiceHealth
	triggered  int
	triggerErr error
	urlErr     error
	lastURL    string
}

func (m *mockCollection) Start(ctx context.Context) error { return nil }
func (m *mockCollection) Stop()                           {}

func (m *mockCollection) TriggerCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered++
	return m.triggerErr
}

func (m *mockCollection) GetStats() models.CollectionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *mockCollection) HealthCheck(ctx context.Context) models.ServiceHealth { return m.health }

func (m *mockCollection) UpdateDeviceURL(raw string) error {
	m.lastURL = raw
	return m.urlErr
}

type mockStats struct {
	mu sync.Mutex

	recent     []models.Sample
	recentErr  error
	lastHours  int
	lastLimit  int
	hourly     []models.HourlyAverage
	lastDays   int
	daily      []models.DailySummary
	latest     models.Sample
	latestErr  error
	summary    models.PeriodSummary
	lastPeriod string
	tables     []models.TableStats
}

func (m *mockStats) Recent(ctx context.Context, hours, limit int) ([]models.Sample, error) {
	m.lastHours, m.lastLimit = hours, limit
	return m.recent, m.recentErr
}

func (m *mockStats) Hourly(ctx context.Context, days int) ([]models.HourlyAverage, error) {
	m.lastDays = days
	return m.hourly, nil
}

func (m *mockStats) Daily(ctx context.Context, days int) ([]models.DailySummary, error) {
	m.lastDays = days
	return m.daily, nil
}

func (m *mockStats) Latest(ctx context.Context) (models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.latestErr
}

func (m *mockStats) Summary(ctx context.Context, period string) (models.PeriodSummary, error) {
	m.lastPeriod = period
	return m.summary, nil
}

func (m *mockStats) DatabaseStats(ctx context.Context) ([]models.TableStats, error) {
	return m.tables, nil
}

type mockHealth struct{ report models.HealthReport }

func (m *mockHealth) Check(ctx context.Context) models.HealthReport { return m.report }

type mockRetention struct{ next time.Time }

func (m *mockRetention) RunOnce(ctx context.Context) (int64, error) { return 0, nil }
func (m *mockRetention) NextRun(time.Time) time.Time                { return m.next }

// mockDevice records control calls; err, when set, fails every call.
type mockDevice struct {
	info       models.DeviceInfo
	state      models.DeviceState
	fs         device.FullStatus
	health     models.DeviceHealth
	err        error
	url        string
	timeout    time.Duration
	lastPatch  models.StatePatch
	lastPower  *bool
	lastBright *int
	lastLock   *bool
	timeoutErr error
}

func (m *mockDevice) GetInfo(ctx context.Context) (models.DeviceInfo, error) { return m.info, m.err }

func (m *mockDevice) GetMeasurement(ctx context.Context) (models.Measurement, error) {
	return models.Measurement{}, m.err
}

func (m *mockDevice) GetState(ctx context.Context) (models.DeviceState, error) { return m.state, m.err }

func (m *mockDevice) UpdateState(ctx context.Context, p models.StatePatch) (models.DeviceState, error) {
	m.lastPatch = p
	return m.state, m.err
}

func (m *mockDevice) SetPower(ctx context.Context, on bool) (models.DeviceState, error) {
	m.lastPower = &on
	return m.state, m.err
}

func (m *mockDevice) SetBrightness(ctx context.Context, b int) (models.DeviceState, error) {
	m.lastBright = &b
	return m.state, m.err
}

func (m *mockDevice) SetSwitchLock(ctx context.Context, locked bool) (models.DeviceState, error) {
	m.lastLock = &locked
	return m.state, m.err
}

func (m *mockDevice) GetFullStatus(ctx context.Context) (device.FullStatus, error) { return m.fs, m.err }

func (m *mockDevice) HealthCheck(ctx context.Context) models.DeviceHealth { return m.health }

func (m *mockDevice) UpdateTimeout(d time.Duration) error {
	if m.timeoutErr != nil {
		return m.timeoutErr
	}
	m.timeout = d
	return nil
}

func (m *mockDevice) Target() (string, time.Duration) { return m.url, m.timeout }

// ---- Shared Test Helpers ----

type mocks struct {
	col    *mockCollection
	stats  *mockStats
	health *mockHealth
	ret    *mockRetention
	dev    *mockDevice
}

func newMocks() *mocks {
	return &mocks{
		col:    &mockCollection{},
		stats:  &mockStats{},
		health: &mockHealth{},
		ret:    &mockRetention{},
		dev:    &mockDevice{url: "http://172.16.0.189", timeout: 10 * time.Second},
	}
}

func (m *mocks) service() *service.Service {
	return &service.Service{
		Collection: m.col,
		Stats:      m.stats,
		Health:     m.health,
		Retention:  m.ret,
		Device:     m.dev,
	}
}

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts...)
	return h.InitRoutes()
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
