package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is everything the bridge reports. The zero-cost Noop
// implementation is used when metrics are disabled.
type Recorder interface {
	ObserveDeviceCall(op string, elapsed time.Duration, kind string)
	ObserveCollection(elapsed time.Duration, ok bool)
	AddRetentionDeleted(n int64)
	IncRetentionFailures()
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncSinkFailures(sink string)
	Handler() http.Handler
}

type Prometheus struct {
	gatherer prometheus.Gatherer

	deviceCalls      *prometheus.HistogramVec
	deviceErrors     *prometheus.CounterVec
	collections      *prometheus.CounterVec
	collectionTime   prometheus.Histogram
	retentionDeleted prometheus.Counter
	retentionFailed  prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	sinkFailures     *prometheus.CounterVec
}

// New returns a Prometheus recorder registered on reg, or Noop when
// enabled is false.
func New(enabled bool, reg *prometheus.Registry) Recorder {
	if !enabled {
		return Noop{}
	}
	f := promauto.With(reg)

	return &Prometheus{
		gatherer: reg,

		deviceCalls: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plug_device_request_duration_seconds",
			Help:    "Latency of calls to the smart plug",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),

		deviceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plug_device_errors_total",
			Help: "Failed calls to the smart plug by error type",
		}, []string{"op", "type"}),

		collections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plug_collections_total",
			Help: "Collection cycles by outcome",
		}, []string{"result"}),

		collectionTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "plug_collection_duration_seconds",
			Help:    "Duration of one collection cycle",
			Buckets: prometheus.DefBuckets,
		}),

		retentionDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "plug_retention_deleted_samples_total",
			Help: "Samples removed by the retention job",
		}),

		retentionFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "plug_retention_failures_total",
			Help: "Retention runs that failed",
		}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plug_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"route", "method", "status"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plug_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "plug_stats_cache_hits_total",
			Help: "Stats query cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "plug_stats_cache_misses_total",
			Help: "Stats query cache misses",
		}),

		sinkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plug_sink_failures_total",
			Help: "Failed sample publications per sink",
		}, []string{"sink"}),
	}
}

func (p *Prometheus) ObserveDeviceCall(op string, elapsed time.Duration, kind string) {
	p.deviceCalls.WithLabelValues(op).Observe(elapsed.Seconds())
	if kind != "" {
		p.deviceErrors.WithLabelValues(op, kind).Inc()
	}
}

func (p *Prometheus) ObserveCollection(elapsed time.Duration, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	p.collections.WithLabelValues(result).Inc()
	p.collectionTime.Observe(elapsed.Seconds())
}

func (p *Prometheus) AddRetentionDeleted(n int64) {
	if n > 0 {
		p.retentionDeleted.Add(float64(n))
	}
}

func (p *Prometheus) IncRetentionFailures() { p.retentionFailed.Inc() }

func (p *Prometheus) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	p.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (p *Prometheus) IncCacheHits()   { p.cacheHits.Inc() }
func (p *Prometheus) IncCacheMisses() { p.cacheMisses.Inc() }

func (p *Prometheus) IncSinkFailures(sink string) { p.sinkFailures.WithLabelValues(sink).Inc() }

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Noop discards every observation.
type Noop struct{}

func (Noop) ObserveDeviceCall(string, time.Duration, string) {}
func (Noop) ObserveCollection(time.Duration, bool)           {}
func (Noop) AddRetentionDeleted(int64)                       {}
func (Noop) IncRetentionFailures()                           {}
func (Noop) ObserveHTTP(string, string, int, time.Duration)  {}
func (Noop) IncCacheHits()                                   {}
func (Noop) IncCacheMisses()                                 {}
func (Noop) IncSinkFailures(string)                          {}
func (Noop) Handler() http.Handler                           { return http.NotFoundHandler() }
