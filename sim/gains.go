package sim

import "pid-trainer-core/utils"

// GainSet is one complete controller parameterization. A GainSet handed to a
// rollout is never modified afterwards; edits always produce a new value.
type GainSet struct {
	Kp   float64 `json:"kp"`
	Ki   float64 `json:"ki"`
	Kd   float64 `json:"kd"`
	Base float64 `json:"base"` // base speed command, 0..255 scale
	Trim float64 `json:"trim"`
}

// Finite reports whether every parameter is a usable number.
func (g GainSet) Finite() bool {
	return utils.Finite(g.Kp) && utils.Finite(g.Ki) && utils.Finite(g.Kd) &&
		utils.Finite(g.Base) && utils.Finite(g.Trim)
}

// GainLimits bounds both manual edits and search candidates so neither can
// drift into useless regions of the gain space.
type GainLimits struct {
	KpMin   float64 `json:"kp_min"`
	KpMax   float64 `json:"kp_max"`
	KiMin   float64 `json:"ki_min"`
	KiMax   float64 `json:"ki_max"`
	KdMin   float64 `json:"kd_min"`
	KdMax   float64 `json:"kd_max"`
	BaseMin float64 `json:"base_min"`
	BaseMax float64 `json:"base_max"`
	TrimMin float64 `json:"trim_min"`
	TrimMax float64 `json:"trim_max"`
}

// DefaultGainLimits returns the stock tuning envelope.
func DefaultGainLimits() GainLimits {
	return GainLimits{
		KpMin: 0.0, KpMax: 5.0,
		KiMin: 0.0, KiMax: 0.2,
		KdMin: 0.0, KdMax: 10.0,
		BaseMin: 0.0, BaseMax: 255.0,
		TrimMin: -80.0, TrimMax: 80.0,
	}
}

// Clamp returns g with every parameter forced into the envelope.
func (l GainLimits) Clamp(g GainSet) GainSet {
	return GainSet{
		Kp:   utils.Clamp(g.Kp, l.KpMin, l.KpMax),
		Ki:   utils.Clamp(g.Ki, l.KiMin, l.KiMax),
		Kd:   utils.Clamp(g.Kd, l.KdMin, l.KdMax),
		Base: utils.Clamp(g.Base, l.BaseMin, l.BaseMax),
		Trim: utils.Clamp(g.Trim, l.TrimMin, l.TrimMax),
	}
}
