package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	json "github.com/goccy/go-json"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilo_plug/internal/config"
	"pilo_plug/internal/logger"
	"pilo_plug/internal/metrics"
	"pilo_plug/internal/models"
)

type fakeToken struct {
	done     chan struct{}
	err      error
	complete bool
}

func newToken(complete bool, err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err, complete: complete}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	token    pahomqtt.Token
	closed   bool
}

func (p *fakePublisher) Publish(topic string, _ byte, _ bool, payload interface{}) pahomqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	return p.token
}

func (p *fakePublisher) Disconnect(uint) { p.closed = true }

func testSample() models.Sample {
	b := 200
	return models.Sample{
		CapturedAt:   time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		DeviceID:     "default",
		ActivePowerW: decimal.NewNullDecimal(decimal.RequireFromString("61.25")),
		PowerOn:      true,
		Brightness:   &b,
	}
}

func TestMQTTSink_PublishesJSONPerDevice(t *testing.T) {
	pub := &fakePublisher{token: newToken(true, nil)}
	s := NewMQTTSink(pub, "pilo/plug/samples", 0)

	require.NoError(t, s.Publish(context.Background(), testSample()))
	require.Len(t, pub.topics, 1)
	assert.Equal(t, "pilo/plug/samples/default", pub.topics[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, 61.25, got["active_power_w"])
	assert.Nil(t, got["voltage_v"])
	assert.Equal(t, true, got["power_on"])

	require.NoError(t, s.Close())
	assert.True(t, pub.closed)
}

func TestMQTTSink_TimeoutAndBrokerError(t *testing.T) {
	s := NewMQTTSink(&fakePublisher{token: newToken(false, nil)}, "t", 1)
	assert.Error(t, s.Publish(context.Background(), testSample()))

	s = NewMQTTSink(&fakePublisher{token: newToken(true, errors.New("not authorized"))}, "t", 1)
	assert.ErrorContains(t, s.Publish(context.Background(), testSample()), "not authorized")
}

type fakeWriter struct {
	points []*write.Point
	err    error
}

func (w *fakeWriter) WritePoint(_ context.Context, p ...*write.Point) error {
	w.points = append(w.points, p...)
	return w.err
}

func TestInfluxSink_WritesLineProtocol(t *testing.T) {
	w := &fakeWriter{}
	s := NewInfluxSink(w)

	require.NoError(t, s.Publish(context.Background(), testSample()))
	require.Len(t, w.points, 1)

	line := write.PointToLineProtocol(w.points[0], time.Second)
	assert.Contains(t, line, "power_usage,device_id=default ")
	assert.Contains(t, line, "active_power_w=61.25")
	assert.Contains(t, line, "brightness=200i")
	assert.Contains(t, line, "power_on=true")
	assert.NotContains(t, line, "voltage_v")
	assert.Contains(t, line, "1740816000")
}

func TestInfluxSink_WrapsWriteError(t *testing.T) {
	s := NewInfluxSink(&fakeWriter{err: errors.New("unauthorized")})
	assert.ErrorContains(t, s.Publish(context.Background(), testSample()), "unauthorized")
}

func TestConnect_DisabledSinks(t *testing.T) {
	_, err := ConnectMQTT(config.MQTTConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = ConnectInflux(config.InfluxConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}

type countingSink struct {
	name  string
	err   error
	calls int
}

func (c *countingSink) Name() string { return c.name }
func (c *countingSink) Publish(context.Context, models.Sample) error {
	c.calls++
	return c.err
}
func (c *countingSink) Close() error { return nil }

func TestFanout_FailingSinkDoesNotStopOthers(t *testing.T) {
	bad := &countingSink{name: "bad", err: errors.New("down")}
	good := &countingSink{name: "good"}
	f := NewFanout(logger.Nop(), metrics.Noop{}, bad, good)

	f.Publish(context.Background(), testSample())
	f.Close()

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
}


// stallingSink blocks until its context ends.
type stallingSink struct{ deadline bool }

func (s *stallingSink) Name() string { return "stalled" }
func (s *stallingSink) Publish(ctx context.Context, _ models.Sample) error {
	_, s.deadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}
func (s *stallingSink) Close() error { return nil }

func TestFanout_HungSinkIsCutOff(t *testing.T) {
	stalled := &stallingSink{}
	next := &countingSink{name: "next"}
	f := NewFanout(logger.Nop(), metrics.Noop{}, stalled, next).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	f.Publish(context.Background(), testSample())

	assert.True(t, stalled.deadline, "publish must run under a deadline")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, next.calls)
}
