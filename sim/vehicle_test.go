package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plantConfig() Config {
	cfg := DefaultConfig()
	cfg.NoiseStd = 0
	cfg.SteerBias = 0
	cfg.SoftPull = false
	return cfg
}

func TestAdvanceActuatorLagConvergesToBiasedCommand(t *testing.T) {
	cfg := plantConfig()
	cfg.SteerBias = 6.0
	p := NewPlantModel(cfg, &cfg.Track)

	s := VehicleState{}
	for i := 0; i < 2000; i++ {
		s, _ = p.Advance(s, 10.0, 0, cfg.DT)
	}
	// Zero base speed: no motion, only the actuator state moves, toward the
	// command plus the bias.
	assert.InDelta(t, 16.0, s.Steer, 1e-6)
	assert.Equal(t, 0.0, s.X)
}

func TestAdvanceSpeedFromBaseCommand(t *testing.T) {
	cfg := plantConfig()
	p := NewPlantModel(cfg, &cfg.Track)

	s := VehicleState{Y: 394}
	s, _ = p.Advance(s, 0, 255, cfg.DT)
	assert.InDelta(t, cfg.MaxSpeed, s.Speed, 1e-12)
	assert.InDelta(t, cfg.MaxSpeed*cfg.DT, s.X, 1e-9)

	s2 := VehicleState{Y: 394}
	s2, _ = p.Advance(s2, 0, 127.5, cfg.DT)
	assert.InDelta(t, cfg.MaxSpeed/2, s2.Speed, 1e-12)
}

func TestAdvanceTurnRateScalesWithSpeed(t *testing.T) {
	cfg := plantConfig()
	cfg.ActuatorTau = 0 // actuator follows the command instantly
	p := NewPlantModel(cfg, &cfg.Track)

	_, omegaFast := p.Advance(VehicleState{Y: 394}, 50.0, 255, cfg.DT)
	_, omegaSlow := p.Advance(VehicleState{Y: 394}, 50.0, 127.5, cfg.DT)
	require.NotZero(t, omegaSlow)
	assert.InDelta(t, 2.0, omegaFast/omegaSlow, 1e-9)

	// Zero speed: no turn regardless of steering.
	_, omegaStill := p.Advance(VehicleState{Y: 394}, 50.0, 0, cfg.DT)
	assert.Equal(t, 0.0, omegaStill)
}

func TestAdvancePhaseScroll(t *testing.T) {
	cfg := plantConfig()
	p := NewPlantModel(cfg, &cfg.Track)

	s := VehicleState{Y: 394}
	s, _ = p.Advance(s, 0, 0, cfg.DT)
	assert.InDelta(t, cfg.Track.PhaseSpeed*cfg.DT, s.Phase, 1e-12)
}

func TestAdvanceLateralClamp(t *testing.T) {
	cfg := plantConfig()
	p := NewPlantModel(cfg, &cfg.Track)

	// Pointed straight down at full speed: Y must stop at the floor.
	s := VehicleState{Y: 20, Heading: -math.Pi / 2}
	for i := 0; i < 600; i++ {
		s, _ = p.Advance(s, 0, 255, cfg.DT)
		assert.GreaterOrEqual(t, s.Y, cfg.YMin)
	}
	assert.Equal(t, cfg.YMin, s.Y)
}

func TestAdvanceSoftPullDragsLostVehicle(t *testing.T) {
	cfg := plantConfig()
	cfg.SoftPull = true
	cfg.Track.Amp = 0 // line fixed at CenterY
	cfg.Track.PhaseSpeed = 0
	p := NewPlantModel(cfg, &cfg.Track)

	// Far off the line, stationary: the pull alone must move Y toward it.
	s := VehicleState{X: 100, Y: 30, Heading: 0}
	before := math.Abs(s.Y - cfg.Track.CenterY)
	for i := 0; i < 60; i++ {
		s, _ = p.Advance(s, 0, 0, cfg.DT)
	}
	after := math.Abs(s.Y - cfg.Track.CenterY)
	assert.Less(t, after, before)

	// Near the line the pull stays out of the way.
	s = VehicleState{X: 100, Y: cfg.Track.CenterY - 5, Heading: 0}
	s, _ = p.Advance(s, 0, 0, cfg.DT)
	assert.Equal(t, cfg.Track.CenterY-5, s.Y)
}

func TestWorldShiftKeepsDistanceContinuous(t *testing.T) {
	cfg := plantConfig()
	cfg.WorldShiftAt = 500.0
	cfg.WorldShiftBy = 400.0
	p := NewPlantModel(cfg, &cfg.Track)

	s := VehicleState{X: 140, Y: 394}
	prev := Distance(s)
	shifted := false
	for i := 0; i < 2000; i++ {
		var xBefore = s.X
		s, _ = p.Advance(s, 0, 255, cfg.DT)
		if s.X < xBefore {
			shifted = true
			assert.Less(t, s.X, cfg.WorldShiftAt)
		}
		d := Distance(s)
		// Distance advances by at most one step of travel plus scroll, shift
		// or not.
		assert.Greater(t, d, prev)
		assert.Less(t, d-prev, (cfg.MaxSpeed+cfg.Track.PhaseSpeed)*cfg.DT+1e-9)
		prev = d
	}
	require.True(t, shifted, "world shift never triggered")
}

func TestAdvanceIsDeterministic(t *testing.T) {
	cfg := plantConfig()
	p := NewPlantModel(cfg, &cfg.Track)

	a := VehicleState{X: 140, Y: 380, Heading: 0.1}
	b := a.Clone()
	for i := 0; i < 500; i++ {
		a, _ = p.Advance(a, 25.0, 120, cfg.DT)
		b, _ = p.Advance(b, 25.0, 120, cfg.DT)
	}
	assert.Equal(t, a, b)
}

func TestInitialStateOnTheLine(t *testing.T) {
	cfg := DefaultConfig()
	s := InitialState(cfg, &cfg.Track)
	assert.Equal(t, 140.0, s.X)
	assert.InDelta(t, cfg.Track.YAt(140, 0), s.Y, 1e-12)
	assert.InDelta(t, cfg.Track.HeadingAt(140, 0), s.Heading, 1e-12)
	assert.Equal(t, 0.0, s.Phase)
}
