package sim

import (
	"math"

	"pid-trainer-core/utils"
)

// VehicleState is the plant state. It is a plain value: cloning it for a
// shadow rollout is a copy, and the rollout can never alias the live state.
type VehicleState struct {
	X       float64
	Y       float64
	Heading float64
	Speed   float64 // forward speed realized on the last step
	Steer   float64 // lagged steering actuator value
	Phase   float64 // track scroll phase, advances with time
}

// Clone returns an independent snapshot for a shadow rollout.
func (s VehicleState) Clone() VehicleState {
	return s
}

// PlantModel advances a VehicleState one timestep given a commanded steering
// output. It is deterministic: all randomness lives in the measurement path.
type PlantModel struct {
	cfg   Config
	track *TrackReference
}

func NewPlantModel(cfg Config, track *TrackReference) *PlantModel {
	return &PlantModel{cfg: cfg, track: track}
}

// Advance integrates one step of dt under commanded steering output u and
// base speed command base (0..255 scale). It returns the new state and the
// realized turn rate.
//
// The steering bias is added to the command before the lag filter, so the
// actuator itself carries the miscalibration; only an integral term can null
// it in steady state.
func (p *PlantModel) Advance(s VehicleState, u, base, dt float64) (VehicleState, float64) {
	cmd := u + p.cfg.SteerBias
	s.Steer = utils.EaseTowards(s.Steer, cmd, dt, p.cfg.ActuatorTau)

	v := (base / 255.0) * p.cfg.MaxSpeed
	s.Speed = v

	// Turn rate proportional to the lagged steering value, scaled by speed.
	omega := p.cfg.SteerGain * s.Steer * v / p.cfg.WheelBase

	s.Heading += omega * dt
	s.X += v * math.Cos(s.Heading) * dt
	s.Y += v * math.Sin(s.Heading) * dt
	s.Phase += p.track.PhaseSpeed * dt

	s.Y = utils.Clamp(s.Y, p.cfg.YMin, p.cfg.YMax)

	// Safety pull-back: drag a badly lost vehicle toward the line instead of
	// letting it leave the playfield for good.
	if p.cfg.SoftPull {
		eF, eR := p.track.BodyError(s, p.cfg.BodyLen*0.5, -p.cfg.BodyLen*0.5)
		if math.Abs(0.5*(eF+eR)) > p.cfg.PullThreshold {
			yTarget := p.track.YAt(s.X, s.Phase)
			s.Y += (yTarget - s.Y) * utils.Clamp(p.cfg.PullStrength*dt, 0.0, 1.0)
		}
	}

	// World shift for long-run float stability; Distance stays continuous
	// because phase absorbs what x gives up.
	if s.X > p.cfg.WorldShiftAt {
		s.X -= p.cfg.WorldShiftBy
		s.Phase += p.cfg.WorldShiftBy
	}

	return s, omega
}

// InitialState places the vehicle on the line, headed along it.
func InitialState(cfg Config, track *TrackReference) VehicleState {
	const x0 = 140.0
	return VehicleState{
		X:       x0,
		Y:       track.YAt(x0, 0),
		Heading: track.HeadingAt(x0, 0),
		Phase:   0,
	}
}
