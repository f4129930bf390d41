package sim

import "math"

// TrackReference is the scrolling sinusoidal reference path. The target
// lateral position is a function of world distance, where distance combines
// the vehicle's x position with the track's own scrolling phase.
type TrackReference struct {
	CenterY    float64 `json:"center_y"`
	Amp        float64 `json:"amp"`
	Wavelen    float64 `json:"wavelen"`
	PhaseSpeed float64 `json:"phase_speed"` // scroll rate, world units per second
}

// YAt returns the target lateral position at world x for the given phase.
func (t *TrackReference) YAt(x, phase float64) float64 {
	return t.CenterY + t.Amp*math.Sin((x+phase)/t.Wavelen*2.0*math.Pi)
}

// SlopeAt returns dy/dx of the reference at world x.
func (t *TrackReference) SlopeAt(x, phase float64) float64 {
	k := (2.0 * math.Pi) / t.Wavelen
	return t.Amp * k * math.Cos(k*(x+phase))
}

// HeadingAt returns the tangent heading of the reference at world x.
func (t *TrackReference) HeadingAt(x, phase float64) float64 {
	return math.Atan2(t.SlopeAt(x, phase), 1.0)
}

// LookaheadError is the tracking error at a point `lookahead` ahead of the
// vehicle along its heading. This is the controller's input signal.
func (t *TrackReference) LookaheadError(s VehicleState, lookahead float64) float64 {
	c := math.Cos(s.Heading)
	sn := math.Sin(s.Heading)
	lx := s.X + lookahead*c
	ly := s.Y + lookahead*sn
	return t.YAt(lx, s.Phase) - ly
}

// BodyError returns the tracking error at the front and rear of the body.
// The cost function penalizes both so a vehicle angled across the line pays
// for it even when its center sits on the line.
func (t *TrackReference) BodyError(s VehicleState, frontOffset, rearOffset float64) (eF, eR float64) {
	c := math.Cos(s.Heading)
	sn := math.Sin(s.Heading)
	fx := s.X + frontOffset*c
	fy := s.Y + frontOffset*sn
	rx := s.X + rearOffset*c
	ry := s.Y + rearOffset*sn
	eF = t.YAt(fx, s.Phase) - fy
	eR = t.YAt(rx, s.Phase) - ry
	return eF, eR
}

// Distance is the travel coordinate used for cycle accounting. The world
// shift applied by PlantModel keeps it continuous.
func Distance(s VehicleState) float64 {
	return s.X + s.Phase
}

// CycleTracker signals when one full wavelength of travel has elapsed. A
// cycle is the unit at which the tuning search re-evaluates gains.
type CycleTracker struct {
	start   float64
	wavelen float64
}

func NewCycleTracker(start, wavelen float64) *CycleTracker {
	return &CycleTracker{start: start, wavelen: wavelen}
}

// Update reports whether the boundary has been crossed at distance d.
func (c *CycleTracker) Update(d float64) bool {
	return d-c.start >= c.wavelen-1e-9
}

// Progress returns completion of the current cycle in [0, 1].
func (c *CycleTracker) Progress(d float64) float64 {
	if c.wavelen <= 0 {
		return 0
	}
	p := (d - c.start) / c.wavelen
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Reset starts a new cycle at distance d.
func (c *CycleTracker) Reset(d float64) {
	c.start = d
}
