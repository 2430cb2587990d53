package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"pilo_plug/internal/config"
	"pilo_plug/internal/device"
	"pilo_plug/internal/logger"
	"pilo_plug/internal/models"
	"pilo_plug/internal/service"
)

func TestSystemHandlers_Health(t *testing.T) {
	for _, status := range []string{models.StatusHealthy, models.StatusUnhealthy} {
		t.Run(status, func(t *testing.T) {
			m := newMocks()
			m.health.report = models.HealthReport{Status: status}
			r := newTestRouter(m.service())

			want := http.StatusOK
			if status == models.StatusUnhealthy {
				want = http.StatusServiceUnavailable
			}
			for _, path := range []string{"/health", "/api/system/health"} {
				w := doRequest(r, http.MethodGet, path, "")
				if w.Code != want {
					t.Fatalf("%s: got %d, want %d", path, w.Code, want)
				}
				var rep models.HealthReport
				_ = json.Unmarshal(w.Body.Bytes(), &rep)
				if rep.Status != status {
					t.Fatalf("%s: status %q", path, rep.Status)
				}
			}
		})
	}
}

func TestSystemHandlers_Collection(t *testing.T) {
	m := newMocks()
	m.col.stats = models.CollectionStats{IsRunning: true, Attempts: 10, Successes: 9, SuccessRate: 0.9}
	r := newTestRouter(m.service())

	w := doRequest(r, http.MethodGet, "/api/system/collection/stats", "")
	env := decodeEnvelope(t, w.Body.Bytes())
	var st models.CollectionStats
	_ = json.Unmarshal(env.Data, &st)
	if st.Attempts != 10 || st.Successes != 9 {
		t.Fatalf("unexpected stats: %s", w.Body.String())
	}

	w = doRequest(r, http.MethodPost, "/api/system/collection/trigger", "")
	if w.Code != http.StatusOK || m.col.triggered != 1 {
		t.Fatalf("trigger status=%d calls=%d", w.Code, m.col.triggered)
	}
}

func TestSystemHandlers_UpdateConfig(t *testing.T) {
	m := newMocks()
	r := newTestRouter(m.service())

	w := doRequest(r, http.MethodPost, "/api/system/config",
		`{"deviceUrl":"http://10.0.0.7","timeout":5000,"collectionInterval":30000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Message string   `json:"message"`
		Updated []string `json:"updated"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	want := []string{"deviceUrl: http://10.0.0.7", "timeout: 5000ms", "collectionInterval: 30000ms (requires restart)"}
	if len(out.Updated) != len(want) {
		t.Fatalf("updated: %v", out.Updated)
	}
	for i := range want {
		if out.Updated[i] != want[i] {
			t.Fatalf("updated[%d]: got %q, want %q", i, out.Updated[i], want[i])
		}
	}
	if m.col.lastURL != "http://10.0.0.7" || m.dev.timeout != 5*time.Second {
		t.Fatalf("not applied: url=%q timeout=%s", m.col.lastURL, m.dev.timeout)
	}

	// same values again: nothing to do
	w = doRequest(r, http.MethodPost, "/api/system/config", `{"deviceUrl":"http://172.16.0.189","timeout":5000}`)
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Message != "No changes made" || len(out.Updated) != 0 {
		t.Fatalf("unexpected: %s", w.Body.String())
	}
}

func TestSystemHandlers_UpdateConfigRejectsBadURL(t *testing.T) {
	m := newMocks()
	m.col.urlErr = &device.Error{Kind: device.KindValidation, Message: `invalid device url "ftp://x"`}
	r := newTestRouter(m.service())

	w := doRequest(r, http.MethodPost, "/api/system/config", `{"deviceUrl":"ftp://x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestSystemHandlers_UpdateConfigOnSimulatedDevice(t *testing.T) {
	client := device.NewClient(device.NewSimulator(60, 1))
	s := newMocks().service()
	s.Device = client
	s.Collection = service.NewCollector(service.CollectorConfig{Env: config.EnvProduction, Interval: time.Minute},
		client, nil, nil, logger.Nop())
	r := newTestRouter(s)

	for _, body := range []string{`{"deviceUrl":"http://10.0.0.7"}`, `{"timeout":5000}`} {
		w := doRequest(r, http.MethodPost, "/api/system/config", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d, want 400 (body=%s)", body, w.Code, w.Body.String())
		}
		var out struct {
			Updated []string `json:"updated"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if len(out.Updated) != 0 {
			t.Fatalf("%s: nothing may be reported as updated: %v", body, out.Updated)
		}
	}
}

func TestSystemHandlers_InfoAndDatabase(t *testing.T) {
	m := newMocks()
	m.ret.next = time.Date(2025, 5, 2, 2, 30, 0, 0, time.UTC)
	m.stats.tables = []models.TableStats{{Table: "power_usage_stats", Rows: 3}, {Table: "device_info", Rows: 1}}
	r := newTestRouter(m.service(), WithSystemInfo(SystemInfo{
		Version: "1.0.0", Environment: "production", Port: "3000",
		CollectionIntervalMs: 60000, RetentionDays: 90, DBPath: "pilo_plug.db",
	}))

	w := doRequest(r, http.MethodGet, "/api/system/info", "")
	var info struct {
		Data struct {
			Version       string `json:"version"`
			Environment   string `json:"environment"`
			Configuration struct {
				DeviceURL          string    `json:"deviceUrl"`
				CollectionInterval int64     `json:"collectionInterval"`
				RetentionDays      int       `json:"retentionDays"`
				NextCleanup        time.Time `json:"nextCleanup"`
			} `json:"configuration"`
		} `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	cfg := info.Data.Configuration
	if info.Data.Version != "1.0.0" || cfg.DeviceURL != "http://172.16.0.189" || cfg.RetentionDays != 90 {
		t.Fatalf("unexpected info: %s", w.Body.String())
	}
	if !cfg.NextCleanup.Equal(m.ret.next) {
		t.Fatalf("nextCleanup: %s", cfg.NextCleanup)
	}

	w = doRequest(r, http.MethodGet, "/api/system/database/stats", "")
	var db struct {
		Data struct {
			Tables []models.TableStats `json:"tables"`
		} `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &db)
	if len(db.Data.Tables) != 2 || db.Data.Tables[0].Rows != 3 {
		t.Fatalf("unexpected database stats: %s", w.Body.String())
	}
}
