package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"pilo_plug/internal/models"
)

// HomeWizard Energy Socket API v1 paths.
const (
	pathInfo        = "/api"
	pathMeasurement = "/api/v1/data"
	pathState       = "/api/v1/state"

	maxErrorBodyBytes = 64 << 10
)

// RemoteDevice talks to the plug over its local REST interface.
// Every request is bounded by the configured timeout.
type RemoteDevice struct {
	mu      sync.RWMutex
	baseURL string
	timeout time.Duration

	httpClient *http.Client
}

// NewRemoteDevice returns a device bound to baseURL.
func NewRemoteDevice(baseURL string, timeout time.Duration) *RemoteDevice {
	return &RemoteDevice{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

func (d *RemoteDevice) SetBaseURL(url string) {
	d.mu.Lock()
	d.baseURL = strings.TrimRight(url, "/")
	d.mu.Unlock()
}

func (d *RemoteDevice) SetTimeout(t time.Duration) {
	d.mu.Lock()
	d.timeout = t
	d.mu.Unlock()
}

func (d *RemoteDevice) BaseURL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.baseURL
}

func (d *RemoteDevice) Timeout() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.timeout
}

func (d *RemoteDevice) GetInfo(ctx context.Context) (models.DeviceInfo, error) {
	var out models.DeviceInfo
	if err := d.do(ctx, http.MethodGet, pathInfo, nil, &out); err != nil {
		return models.DeviceInfo{}, err
	}
	return out, nil
}

func (d *RemoteDevice) GetMeasurement(ctx context.Context) (models.Measurement, error) {
	var out models.Measurement
	if err := d.do(ctx, http.MethodGet, pathMeasurement, nil, &out); err != nil {
		return models.Measurement{}, err
	}
	return out, nil
}

func (d *RemoteDevice) GetState(ctx context.Context) (models.DeviceState, error) {
	var out models.DeviceState
	if err := d.do(ctx, http.MethodGet, pathState, nil, &out); err != nil {
		return models.DeviceState{}, err
	}
	return out, nil
}

func (d *RemoteDevice) UpdateState(ctx context.Context, patch models.StatePatch) (models.DeviceState, error) {
	var out models.DeviceState
	if err := d.do(ctx, http.MethodPut, pathState, patch, &out); err != nil {
		return models.DeviceState{}, err
	}
	return out, nil
}

// do performs one request. The address and deadline are read once, so a
// concurrent SetBaseURL never retargets a request already in flight.
func (d *RemoteDevice) do(ctx context.Context, method, path string, body any, out any) error {
	d.mu.RLock()
	base, timeout := d.baseURL, d.timeout
	d.mu.RUnlock()

	url := base + path
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return d.enrich(&Error{Kind: KindUnknown, Message: fmt.Sprintf("encode request: %v", err), cause: err}, url, timeout)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return d.enrich(Classify(err), url, timeout)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return d.enrich(Classify(err), url, timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return d.enrich(&Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       strings.TrimSpace(string(raw)),
		}, url, timeout)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return d.enrich(Classify(fmt.Errorf("decode %s response: %w", path, err)), url, timeout)
	}
	return nil
}

func (d *RemoteDevice) enrich(e *Error, url string, timeout time.Duration) *Error {
	e.URL = url
	if e.Kind == KindTimeout {
		e.TimeoutMs = timeout.Milliseconds()
	}
	return e
}

var (
	_ Device       = (*RemoteDevice)(nil)
	_ Retargetable = (*RemoteDevice)(nil)
)
