package device

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pilo_plug/internal/models"
)

// ----------- Simulation constants -----------
const (
	NominalVoltageV    = 230.0 // V
	NominalFrequencyHz = 50.0  // Hz
	DefaultLoadW       = 60.0  // W drawn by the simulated appliance
	LoadJitterW        = 2.5   // W peak random swing per tick
	VoltageJitterV     = 1.5   // V peak random swing per tick
	RampWPerSec        = 20.0  // W per second towards the load after switching on
)

// Simulator is an in-memory plug. It implements Device and is used in the
// development environment and in tests. Faults can be injected per operation.
type Simulator struct {
	mu sync.Mutex

	info  models.DeviceInfo
	state models.DeviceState

	loadW     float64
	powerW    float64
	voltageV  float64
	energyKWh float64
	updatedAt time.Time

	rng    *rand.Rand
	faults map[string]error
	now    func() time.Time
}

// NewSimulator returns a powered-on simulated plug drawing loadW watts.
func NewSimulator(loadW float64, seed int64) *Simulator {
	if loadW <= 0 {
		loadW = DefaultLoadW
	}
	brightness := MaxBrightness
	return &Simulator{
		info: models.DeviceInfo{
			ProductName:     "Energy Socket (simulated)",
			ProductType:     "HWE-SKT",
			Serial:          "3c39e7aabbcc",
			FirmwareVersion: "4.07",
			APIVersion:      "v1",
		},
		state:    models.DeviceState{PowerOn: true, Brightness: &brightness},
		loadW:    loadW,
		powerW:   loadW,
		voltageV: NominalVoltageV,
		rng:      rand.New(rand.NewSource(seed)),
		faults:   make(map[string]error),
		now:      time.Now,
	}
}

// Fail makes every subsequent call of op return err. A nil err clears the fault.
func (s *Simulator) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Run advances the simulation every tick until ctx is canceled.
func (s *Simulator) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.mu.Lock()
			s.advance(now)
			s.mu.Unlock()
		}
	}
}

func (s *Simulator) GetInfo(ctx context.Context) (models.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, OpInfo); err != nil {
		return models.DeviceInfo{}, err
	}
	return s.info, nil
}

func (s *Simulator) GetMeasurement(ctx context.Context) (models.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, OpMeasurement); err != nil {
		return models.Measurement{}, err
	}
	s.advance(s.now())

	currentA := 0.0
	if s.voltageV > 0 {
		currentA = s.powerW / s.voltageV
	}
	return models.Measurement{
		ActivePowerW:         nullDecimal(s.powerW, 3),
		VoltageV:             nullDecimal(s.voltageV, 3),
		CurrentA:             nullDecimal(currentA, 6),
		FrequencyHz:          nullDecimal(NominalFrequencyHz, 3),
		TotalEnergyImportKWh: nullDecimal(s.energyKWh, 6),
	}, nil
}

func (s *Simulator) GetState(ctx context.Context) (models.DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, OpState); err != nil {
		return models.DeviceState{}, err
	}
	return copyState(s.state), nil
}

// UpdateState applies patch. Like the real socket, a locked switch refuses
// to change its power state.
func (s *Simulator) UpdateState(ctx context.Context, patch models.StatePatch) (models.DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, OpUpdateState); err != nil {
		return models.DeviceState{}, err
	}
	s.advance(s.now())

	locked := s.state.SwitchLock
	if patch.SwitchLock != nil {
		locked = *patch.SwitchLock
	}
	if patch.PowerOn != nil && *patch.PowerOn != s.state.PowerOn && locked {
		return models.DeviceState{}, &Error{
			Kind:       KindHTTP,
			StatusCode: http.StatusForbidden,
			Message:    http.StatusText(http.StatusForbidden),
			Body:       `{"error":{"id":202,"description":"switch is locked"}}`,
		}
	}

	if patch.SwitchLock != nil {
		s.state.SwitchLock = *patch.SwitchLock
	}
	if patch.PowerOn != nil {
		s.state.PowerOn = *patch.PowerOn
	}
	if patch.Brightness != nil {
		b := *patch.Brightness
		s.state.Brightness = &b
	}
	return copyState(s.state), nil
}

// check returns the injected fault for op or the context error.
func (s *Simulator) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.faults[op]
}

// advance moves the simulation to now. Callers hold s.mu.
func (s *Simulator) advance(now time.Time) {
	if s.updatedAt.IsZero() {
		s.updatedAt = now
		return
	}
	elapsed := now.Sub(s.updatedAt).Seconds()
	if elapsed <= 0 {
		return
	}

	s.accumulateEnergy(elapsed)
	if s.state.PowerOn {
		s.rampTowardLoad(elapsed)
	} else {
		s.powerW = 0
	}
	s.voltageV = NominalVoltageV + (s.rng.Float64()*2-1)*VoltageJitterV
	s.updatedAt = now
}

// accumulateEnergy integrates the current draw over elapsed seconds.
func (s *Simulator) accumulateEnergy(elapsed float64) {
	s.energyKWh += s.powerW * elapsed / 3600 / 1000
}

// rampTowardLoad moves the draw towards the nominal load and adds jitter.
func (s *Simulator) rampTowardLoad(elapsed float64) {
	if s.powerW < s.loadW {
		s.powerW = math.Min(s.powerW+RampWPerSec*elapsed, s.loadW)
		return
	}
	s.powerW = math.Max(s.loadW+(s.rng.Float64()*2-1)*LoadJitterW, 0)
}

func copyState(st models.DeviceState) models.DeviceState {
	out := st
	if st.Brightness != nil {
		b := *st.Brightness
		out.Brightness = &b
	}
	return out
}

func nullDecimal(v float64, places int32) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v).Round(places))
}

var _ Device = (*Simulator)(nil)
