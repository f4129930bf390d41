package sim

import (
	"fmt"

	"pid-trainer-core/utils"
)

// Config holds plant, sensor and controller-limit parameters.
type Config struct {
	DT          float64 `json:"dt_s"`
	MaxSpeed    float64 `json:"max_speed"`
	WheelBase   float64 `json:"wheel_base"`
	SteerGain   float64 `json:"steer_gain"`
	BodyLen     float64 `json:"body_len"`
	Lookahead   float64 `json:"lookahead"`
	NoiseStd    float64 `json:"sensor_noise_std"`
	SteerBias   float64 `json:"steering_bias"`
	ActuatorTau float64 `json:"actuator_lag_tau"`
	IMax        float64 `json:"integral_limit"`
	UMax        float64 `json:"output_limit"`

	YMin          float64 `json:"y_min"`
	YMax          float64 `json:"y_max"`
	SoftPull      bool    `json:"soft_pull_to_line"`
	PullThreshold float64 `json:"pull_threshold"`
	PullStrength  float64 `json:"pull_strength"`

	WorldShiftAt float64 `json:"world_shift_at"`
	WorldShiftBy float64 `json:"world_shift_by"`

	Track TrackReference `json:"track"`
}

// DefaultConfig returns the stock simulation parameters.
func DefaultConfig() Config {
	return Config{
		DT:          1.0 / 60.0,
		MaxSpeed:    130.0,
		WheelBase:   44.0,
		SteerGain:   2.0 / 255.0,
		BodyLen:     34.0,
		Lookahead:   36.0,
		NoiseStd:    4.0,
		SteerBias:   6.0,
		ActuatorTau: 0.18,
		IMax:        5000.0,
		UMax:        120.0,

		YMin:          12.0,
		YMax:          668.0,
		SoftPull:      true,
		PullThreshold: 210.0,
		PullStrength:  1.05,

		WorldShiftAt: 1_000_000.0,
		WorldShiftBy: 800_000.0,

		Track: TrackReference{
			CenterY:    394.0,
			Amp:        90.0,
			Wavelen:    980.0,
			PhaseSpeed: 50.0,
		},
	}
}

// Validate rejects non-finite or out-of-range values. It runs before any
// simulation state is created; a failure here is fatal.
func (c Config) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"dt_s", c.DT},
		{"max_speed", c.MaxSpeed},
		{"wheel_base", c.WheelBase},
		{"steer_gain", c.SteerGain},
		{"body_len", c.BodyLen},
		{"lookahead", c.Lookahead},
		{"sensor_noise_std", c.NoiseStd},
		{"steering_bias", c.SteerBias},
		{"actuator_lag_tau", c.ActuatorTau},
		{"integral_limit", c.IMax},
		{"output_limit", c.UMax},
		{"track.center_y", c.Track.CenterY},
		{"track.amp", c.Track.Amp},
		{"track.wavelen", c.Track.Wavelen},
		{"track.phase_speed", c.Track.PhaseSpeed},
	}
	for _, ch := range checks {
		if !utils.Finite(ch.v) {
			return fmt.Errorf("%s is not finite: %v", ch.name, ch.v)
		}
	}
	if c.DT <= 0 {
		return fmt.Errorf("dt_s must be positive, got %v", c.DT)
	}
	if c.MaxSpeed <= 0 {
		return fmt.Errorf("max_speed must be positive, got %v", c.MaxSpeed)
	}
	if c.WheelBase <= 0 {
		return fmt.Errorf("wheel_base must be positive, got %v", c.WheelBase)
	}
	if c.NoiseStd < 0 {
		return fmt.Errorf("sensor_noise_std must be >= 0, got %v", c.NoiseStd)
	}
	if c.ActuatorTau < 0 {
		return fmt.Errorf("actuator_lag_tau must be >= 0, got %v", c.ActuatorTau)
	}
	if c.IMax <= 0 {
		return fmt.Errorf("integral_limit must be positive, got %v", c.IMax)
	}
	if c.UMax <= 0 {
		return fmt.Errorf("output_limit must be positive, got %v", c.UMax)
	}
	if c.Track.Wavelen <= 0 {
		return fmt.Errorf("track.wavelen must be positive, got %v", c.Track.Wavelen)
	}
	if c.Track.PhaseSpeed < 0 {
		return fmt.Errorf("track.phase_speed must be >= 0, got %v", c.Track.PhaseSpeed)
	}
	return nil
}
