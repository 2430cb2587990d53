package sink

import (
	"context"
	"errors"
	"time"

	"pilo_plug/internal/logger"
	"pilo_plug/internal/metrics"
	"pilo_plug/internal/models"
)

// DefaultPublishTimeout bounds one sink's Publish call.
const DefaultPublishTimeout = 5 * time.Second

// ErrDisabled is returned by the constructors when a sink is switched off.
var ErrDisabled = errors.New("sink disabled")

// Sink mirrors persisted samples to an external system.
type Sink interface {
	Name() string
	Publish(ctx context.Context, s models.Sample) error
	Close() error
}

// Fanout publishes every sample to all sinks, each under its own deadline.
// A failing sink is logged and counted; it never fails the caller.
type Fanout struct {
	sinks   []Sink
	log     *logger.Logger
	rec     metrics.Recorder
	timeout time.Duration
}

func NewFanout(log *logger.Logger, rec metrics.Recorder, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, log: log, rec: rec, timeout: DefaultPublishTimeout}
}

// WithTimeout replaces the per-sink publish deadline.
func (f *Fanout) WithTimeout(d time.Duration) *Fanout {
	if d > 0 {
		f.timeout = d
	}
	return f
}

func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Publish(ctx context.Context, s models.Sample) {
	for _, sk := range f.sinks {
		if err := f.publishOne(ctx, sk, s); err != nil {
			f.rec.IncSinkFailures(sk.Name())
			f.log.Warnw("sink_publish_failed", "sink", sk.Name(), "err", err)
		}
	}
}

func (f *Fanout) publishOne(ctx context.Context, sk Sink, s models.Sample) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return sk.Publish(ctx, s)
}

func (f *Fanout) Close() {
	for _, sk := range f.sinks {
		if err := sk.Close(); err != nil {
			f.log.Warnw("sink_close_failed", "sink", sk.Name(), "err", err)
		}
	}
}
