package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"

	"pilo_plug/internal/metrics"
	"pilo_plug/internal/models"
	"pilo_plug/internal/repository"
)

// ErrUnknownPeriod is returned by Summary for anything but day, week or month.
var ErrUnknownPeriod = errors.New("period must be one of day, week, month")

var periodDays = map[string]int{
	"day":   1,
	"week":  7,
	"month": 30,
}

// PeriodDays maps a summary period name to its length in days.
func PeriodDays(period string) (int, error) {
	d, ok := periodDays[period]
	if !ok {
		return 0, ErrUnknownPeriod
	}
	return d, nil
}

// QueryCache holds serialized aggregate results for a short time.
type QueryCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

type freeCache struct {
	cache *freecache.Cache
	ttl   int
}

// NewQueryCache returns a freecache-backed cache of sizeMB megabytes, or a
// cache that stores nothing when disabled.
func NewQueryCache(enabled bool, sizeMB, ttlSeconds int) QueryCache {
	if !enabled || sizeMB <= 0 {
		return noopCache{}
	}
	return &freeCache{
		cache: freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:   max(ttlSeconds, 1),
	}
}

func (c *freeCache) Get(key string) ([]byte, bool) {
	v, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *freeCache) Set(key string, value []byte) {
	_ = c.cache.Set([]byte(key), value, c.ttl)
}

type noopCache struct{}

func (noopCache) Get(string) ([]byte, bool) { return nil, false }
func (noopCache) Set(string, []byte)        {}

// StatsService answers read queries over stored samples. Aggregates are
// cached; raw samples and the latest reading are always read through.
type StatsService struct {
	samples repository.SampleRepo
	store   repository.StoreRepo
	cache   QueryCache
	rec     metrics.Recorder
	now     func() time.Time
}

func NewStatsService(samples repository.SampleRepo, store repository.StoreRepo, cache QueryCache, rec metrics.Recorder) *StatsService {
	if cache == nil {
		cache = noopCache{}
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &StatsService{samples: samples, store: store, cache: cache, rec: rec, now: time.Now}
}

func (s *StatsService) Recent(ctx context.Context, hours, limit int) ([]models.Sample, error) {
	return s.samples.QueryRecent(ctx, hours, limit)
}

func (s *StatsService) Latest(ctx context.Context) (models.Sample, error) {
	return s.samples.Latest(ctx)
}

func (s *StatsService) Hourly(ctx context.Context, days int) ([]models.HourlyAverage, error) {
	return cached(s, fmt.Sprintf("hourly:%d", days), func() ([]models.HourlyAverage, error) {
		return s.samples.QueryHourlyAverages(ctx, days)
	})
}

func (s *StatsService) Daily(ctx context.Context, days int) ([]models.DailySummary, error) {
	return cached(s, fmt.Sprintf("daily:%d", days), func() ([]models.DailySummary, error) {
		return s.samples.QueryDailySummary(ctx, days)
	})
}

func (s *StatsService) Summary(ctx context.Context, period string) (models.PeriodSummary, error) {
	days, err := PeriodDays(period)
	if err != nil {
		return models.PeriodSummary{}, err
	}
	return cached(s, "summary:"+period, func() (models.PeriodSummary, error) {
		return s.samples.Summary(ctx, s.now().AddDate(0, 0, -days))
	})
}

func (s *StatsService) DatabaseStats(ctx context.Context) ([]models.TableStats, error) {
	return s.store.TableStats(ctx)
}

// cached serves key from the cache or computes, stores and returns it.
// Errors are never cached.
func cached[T any](s *StatsService, key string, load func() (T, error)) (T, error) {
	if raw, ok := s.cache.Get(key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			s.rec.IncCacheHits()
			return v, nil
		}
	}
	s.rec.IncCacheMisses()

	v, err := load()
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		s.cache.Set(key, raw)
	}
	return v, nil
}
