package device

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"pilo_plug/internal/models"
)

const (
	MinBrightness = 0
	MaxBrightness = 255
)

// Client is the bridge's single entry point to the plug. Every method
// returns either a payload or a classified *Error, never both.
type Client struct {
	dev Device
	obs Observer
	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithObserver reports per-call latency and failure kinds to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.obs = o }
}

// WithClock overrides the clock used for health timestamps and latency.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient wraps dev.
func NewClient(dev Device, opts ...Option) *Client {
	c := &Client{dev: dev, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FullStatus is the joined result of the three read calls. Each sub-field is
// independent: callers must check the per-call error.
type FullStatus struct {
	Info        *models.DeviceInfo  `json:"info"`
	Measurement *models.Measurement `json:"data"`
	State       *models.DeviceState `json:"state"`
	Errors      StatusErrors        `json:"errors"`
}

// StatusErrors holds the classified failure of each sub-call, if any.
type StatusErrors struct {
	Info        *Error `json:"info"`
	Measurement *Error `json:"data"`
	State       *Error `json:"state"`
}

func (c *Client) GetInfo(ctx context.Context) (models.DeviceInfo, error) {
	return call(c, ctx, OpInfo, c.dev.GetInfo)
}

func (c *Client) GetMeasurement(ctx context.Context) (models.Measurement, error) {
	return call(c, ctx, OpMeasurement, c.dev.GetMeasurement)
}

func (c *Client) GetState(ctx context.Context) (models.DeviceState, error) {
	return call(c, ctx, OpState, c.dev.GetState)
}

// UpdateState sends a partial state document. Fields left nil in patch are
// not sent.
func (c *Client) UpdateState(ctx context.Context, patch models.StatePatch) (models.DeviceState, error) {
	if patch.Empty() {
		return models.DeviceState{}, validationError("state update needs at least one of power_on, brightness, switch_lock")
	}
	if b := patch.Brightness; b != nil && (*b < MinBrightness || *b > MaxBrightness) {
		return models.DeviceState{}, brightnessError()
	}
	return call(c, ctx, OpUpdateState, func(ctx context.Context) (models.DeviceState, error) {
		return c.dev.UpdateState(ctx, patch)
	})
}

func (c *Client) SetPower(ctx context.Context, on bool) (models.DeviceState, error) {
	return c.UpdateState(ctx, models.StatePatch{PowerOn: &on})
}

// SetBrightness fails fast with a validation error, without touching the
// network, when b is outside [0,255].
func (c *Client) SetBrightness(ctx context.Context, b int) (models.DeviceState, error) {
	if b < MinBrightness || b > MaxBrightness {
		return models.DeviceState{}, brightnessError()
	}
	return c.UpdateState(ctx, models.StatePatch{Brightness: &b})
}

func (c *Client) SetSwitchLock(ctx context.Context, locked bool) (models.DeviceState, error) {
	return c.UpdateState(ctx, models.StatePatch{SwitchLock: &locked})
}

// GetFullStatus fires the info, measurement and state calls in parallel and
// joins all three. It only fails as a whole when ctx is already done.
func (c *Client) GetFullStatus(ctx context.Context) (FullStatus, error) {
	if err := ctx.Err(); err != nil {
		return FullStatus{}, Classify(err)
	}

	var (
		fs FullStatus
		wg sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		if info, err := c.GetInfo(ctx); err != nil {
			fs.Errors.Info = AsError(err)
		} else {
			fs.Info = &info
		}
	}()
	go func() {
		defer wg.Done()
		if m, err := c.GetMeasurement(ctx); err != nil {
			fs.Errors.Measurement = AsError(err)
		} else {
			fs.Measurement = &m
		}
	}()
	go func() {
		defer wg.Done()
		if st, err := c.GetState(ctx); err != nil {
			fs.Errors.State = AsError(err)
		} else {
			fs.State = &st
		}
	}()
	wg.Wait()

	return fs, nil
}

// HealthCheck times a single info call.
func (c *Client) HealthCheck(ctx context.Context) models.DeviceHealth {
	start := c.now()
	info, err := c.GetInfo(ctx)
	elapsed := c.now().Sub(start).Milliseconds()

	h := models.DeviceHealth{
		Status:         models.StatusFor(err == nil),
		ResponseTimeMs: &elapsed,
		Timestamp:      c.now().UTC(),
	}
	if err != nil {
		h.Details = AsError(err)
	} else {
		h.Details = info
	}
	return h
}

// UpdateDeviceURL points subsequent calls at rawURL. Requests already in
// flight keep their original target.
func (c *Client) UpdateDeviceURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError(fmt.Sprintf("invalid device url %q", rawURL))
	}
	r, ok := c.dev.(Retargetable)
	if !ok {
		return notAddressableError()
	}
	r.SetBaseURL(rawURL)
	return nil
}

// UpdateTimeout changes the per-call deadline for subsequent calls.
func (c *Client) UpdateTimeout(d time.Duration) error {
	if d <= 0 {
		return validationError("timeout must be positive")
	}
	r, ok := c.dev.(Retargetable)
	if !ok {
		return notAddressableError()
	}
	r.SetTimeout(d)
	return nil
}

// Target returns the device address and timeout, or empty values for
// devices that are not addressable (the simulator).
func (c *Client) Target() (string, time.Duration) {
	if r, ok := c.dev.(Retargetable); ok {
		return r.BaseURL(), r.Timeout()
	}
	return "", 0
}

func notAddressableError() *Error {
	return validationError("device is simulated and has no address")
}

func brightnessError() *Error {
	return validationError("brightness must be between 0 and 255")
}

// call runs fn, classifies its failure and reports it to the observer.
// A panicking device is turned into an unknown error.
func call[T any](c *Client, ctx context.Context, op string, fn func(context.Context) (T, error)) (out T, err error) {
	start := c.now()
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, &Error{Kind: KindUnknown, Message: fmt.Sprintf("device %s panicked: %v", op, r)}
		}
		if c.obs != nil {
			kind := ""
			if err != nil {
				kind = string(AsError(err).Kind)
			}
			c.obs.ObserveDeviceCall(op, c.now().Sub(start), kind)
		}
	}()

	out, err = fn(ctx)
	if err != nil {
		var zero T
		return zero, Classify(err)
	}
	return out, nil
}
