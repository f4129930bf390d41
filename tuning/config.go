package tuning

import (
	"fmt"

	"pid-trainer-core/sim"
	"pid-trainer-core/utils"
)

// Sampling distribution for candidate perturbations.
const (
	SampleUniform  = "uniform"
	SampleGaussian = "gaussian"
)

// CostWeights are the fixed weights of the rollout penalty terms.
type CostWeights struct {
	E2     float64 `json:"w_e2"`      // squared tracking error
	Spin2  float64 `json:"w_spin2"`   // squared turn rate
	SpinR2 float64 `json:"w_spinr2"`  // squared turn rate normalized by speed
	U2     float64 `json:"w_u2"`      // squared control magnitude
	DU2    float64 `json:"w_du2"`     // squared control change
}

// SampleRadii are the per-parameter perturbation bounds.
type SampleRadii struct {
	Kp   float64 `json:"kp"`
	Ki   float64 `json:"ki"`
	Kd   float64 `json:"kd"`
	Trim float64 `json:"trim"`
}

// Config holds the shadow-search parameters.
type Config struct {
	NumCandidates  int     `json:"num_candidates"`
	ShadowDT       float64 `json:"shadow_dt_s"`
	QuickFraction  float64 `json:"quick_horizon_fraction"` // of one wavelength
	SwapMargin     float64 `json:"swap_margin"`
	MaxShadowSteps int     `json:"max_shadow_steps"`
	SpeedScale     float64 `json:"speed_scale"` // base speed derating while learning
	Seed           uint64  `json:"seed"`

	SampleDist string      `json:"sample_dist"` // "uniform" or "gaussian"
	Radii      SampleRadii `json:"radii"`
	RadGrow    float64     `json:"rad_grow"`
	RadShrink  float64     `json:"rad_shrink"`
	RadMax     SampleRadii `json:"rad_max"`

	Anchor  sim.GainSet `json:"anchor"` // known-reasonable gains, always a candidate
	Weights CostWeights `json:"weights"`
}

// DefaultConfig returns the stock search parameters.
func DefaultConfig() Config {
	return Config{
		NumCandidates:  14,
		ShadowDT:       1.0 / 60.0,
		QuickFraction:  0.12,
		SwapMargin:     0.96,
		MaxShadowSteps: 3500,
		SpeedScale:     0.78,
		Seed:           0x5eed,

		SampleDist: SampleUniform,
		Radii:      SampleRadii{Kp: 0.22, Ki: 0.00025, Kd: 0.55, Trim: 7.0},
		RadGrow:    1.15,
		RadShrink:  0.92,
		RadMax:     SampleRadii{Kp: 0.85, Ki: 0.0035, Kd: 2.4, Trim: 26.0},

		Anchor: sim.GainSet{Kp: 0.95, Ki: 0.00055, Kd: 1.35, Base: 120.0, Trim: 0.0},
		Weights: CostWeights{
			E2:     1.0,
			Spin2:  0.025,
			SpinR2: 0.010,
			U2:     0.0010,
			DU2:    0.0030,
		},
	}
}

// Validate rejects non-finite or out-of-range values before any search state
// is created.
func (c Config) Validate() error {
	if c.NumCandidates < 1 {
		return fmt.Errorf("num_candidates must be >= 1, got %d", c.NumCandidates)
	}
	if !utils.Finite(c.ShadowDT) || c.ShadowDT <= 0 {
		return fmt.Errorf("shadow_dt_s must be a positive number, got %v", c.ShadowDT)
	}
	if !utils.Finite(c.QuickFraction) || c.QuickFraction <= 0 || c.QuickFraction > 1 {
		return fmt.Errorf("quick_horizon_fraction must be in (0, 1], got %v", c.QuickFraction)
	}
	if !utils.Finite(c.SwapMargin) || c.SwapMargin <= 0 || c.SwapMargin >= 1 {
		return fmt.Errorf("swap_margin must be in (0, 1), got %v", c.SwapMargin)
	}
	if c.MaxShadowSteps < 1 {
		return fmt.Errorf("max_shadow_steps must be >= 1, got %d", c.MaxShadowSteps)
	}
	if !utils.Finite(c.SpeedScale) || c.SpeedScale <= 0 {
		return fmt.Errorf("speed_scale must be a positive number, got %v", c.SpeedScale)
	}
	switch c.SampleDist {
	case SampleUniform, SampleGaussian:
	default:
		return fmt.Errorf("sample_dist must be %q or %q, got %q", SampleUniform, SampleGaussian, c.SampleDist)
	}
	for _, w := range []struct {
		name string
		v    float64
	}{
		{"w_e2", c.Weights.E2},
		{"w_spin2", c.Weights.Spin2},
		{"w_spinr2", c.Weights.SpinR2},
		{"w_u2", c.Weights.U2},
		{"w_du2", c.Weights.DU2},
	} {
		if !utils.Finite(w.v) || w.v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v", w.name, w.v)
		}
	}
	for _, r := range []struct {
		name string
		v    float64
	}{
		{"radii.kp", c.Radii.Kp},
		{"radii.ki", c.Radii.Ki},
		{"radii.kd", c.Radii.Kd},
		{"radii.trim", c.Radii.Trim},
	} {
		if !utils.Finite(r.v) || r.v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v", r.name, r.v)
		}
	}
	if !utils.Finite(c.RadGrow) || c.RadGrow < 1 {
		return fmt.Errorf("rad_grow must be >= 1, got %v", c.RadGrow)
	}
	if !utils.Finite(c.RadShrink) || c.RadShrink <= 0 || c.RadShrink > 1 {
		return fmt.Errorf("rad_shrink must be in (0, 1], got %v", c.RadShrink)
	}
	if !c.Anchor.Finite() {
		return fmt.Errorf("anchor gains must be finite: %+v", c.Anchor)
	}
	return nil
}
