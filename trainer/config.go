package main

import (
	"encoding/json"
	"fmt"
	"os"

	"pid-trainer-core/sim"
	"pid-trainer-core/tuning"
	"pid-trainer-core/utils"
)

// AppConfig is the full trainer configuration. Values load from JSON on top
// of the defaults, so a config file only needs the fields it changes.
type AppConfig struct {
	Sim    sim.Config     `json:"sim"`
	Tuning tuning.Config  `json:"tuning"`
	Limits sim.GainLimits `json:"gain_limits"`

	// StartGains is the deliberately poor initial tune, so a LEARN run has
	// visible room to improve.
	StartGains sim.GainSet `json:"start_gains"`

	// Seed drives the live measurement noise stream only; the search has its
	// own seed under tuning.
	Seed uint64 `json:"seed"`

	// BlendTau smooths live gains toward the search target so a swap never
	// steps the controller discontinuously.
	BlendTau float64 `json:"blend_tau"`
}

// DefaultAppConfig returns the stock trainer setup.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Sim:        sim.DefaultConfig(),
		Tuning:     tuning.DefaultConfig(),
		Limits:     sim.DefaultGainLimits(),
		StartGains: sim.GainSet{Kp: 0.22, Ki: 0.0, Kd: 0.15, Base: 120.0, Trim: 18.0},
		Seed:       1,
		BlendTau:   0.60,
	}
}

// LoadAppConfig reads a JSON config over the defaults and validates it. Any
// failure here is a configuration error: fatal, surfaced before any
// simulation state exists.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}

func (c AppConfig) Validate() error {
	if err := c.Sim.Validate(); err != nil {
		return err
	}
	if err := c.Tuning.Validate(); err != nil {
		return err
	}
	if !c.StartGains.Finite() {
		return fmt.Errorf("start_gains must be finite: %+v", c.StartGains)
	}
	if !utils.Finite(c.BlendTau) || c.BlendTau < 0 {
		return fmt.Errorf("blend_tau must be >= 0, got %v", c.BlendTau)
	}
	return nil
}
