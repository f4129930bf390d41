package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testTrack() *TrackReference {
	return &TrackReference{CenterY: 394, Amp: 90, Wavelen: 980, PhaseSpeed: 50}
}

func TestTrackYAt(t *testing.T) {
	tr := testTrack()

	assert.InDelta(t, tr.CenterY, tr.YAt(0, 0), 1e-9)
	assert.InDelta(t, tr.CenterY+tr.Amp, tr.YAt(tr.Wavelen/4, 0), 1e-9)
	assert.InDelta(t, tr.CenterY, tr.YAt(tr.Wavelen/2, 0), 1e-9)
	assert.InDelta(t, tr.CenterY-tr.Amp, tr.YAt(3*tr.Wavelen/4, 0), 1e-9)

	// Phase scrolls the pattern: shifting x and phase are interchangeable.
	assert.InDelta(t, tr.YAt(100, 37), tr.YAt(137, 0), 1e-9)
}

func TestTrackSlopeMatchesFiniteDifference(t *testing.T) {
	tr := testTrack()
	const h = 1e-6
	for _, x := range []float64{0, 55, 245, 510, 933} {
		num := (tr.YAt(x+h, 12) - tr.YAt(x-h, 12)) / (2 * h)
		assert.InDelta(t, num, tr.SlopeAt(x, 12), 1e-4, "x=%v", x)
	}
}

func TestTrackHeadingAt(t *testing.T) {
	tr := testTrack()
	// At a trough/crest the tangent is flat.
	assert.InDelta(t, 0.0, tr.HeadingAt(tr.Wavelen/4, 0), 1e-9)
	// At a zero crossing the heading equals atan(slope).
	assert.InDelta(t, math.Atan(tr.SlopeAt(0, 0)), tr.HeadingAt(0, 0), 1e-12)
}

func TestLookaheadErrorOnTheLine(t *testing.T) {
	tr := testTrack()
	// Flat line: a vehicle sitting on the center with zero heading has zero
	// error at every lookahead.
	flat := &TrackReference{CenterY: 100, Amp: 0, Wavelen: 980}
	s := VehicleState{X: 10, Y: 100, Heading: 0}
	assert.InDelta(t, 0.0, flat.LookaheadError(s, 36), 1e-12)

	// Below the line the error is positive (line is above the probe point).
	s.Y = 90
	assert.InDelta(t, 10.0, flat.LookaheadError(s, 36), 1e-12)

	// On the sine the sign follows the reference at the probe point.
	s = VehicleState{X: 0, Y: tr.CenterY, Heading: 0}
	e := tr.LookaheadError(s, 36)
	assert.Greater(t, e, 0.0, "reference rises ahead of x=0")
}

func TestBodyErrorAngledAcrossLine(t *testing.T) {
	flat := &TrackReference{CenterY: 100, Amp: 0, Wavelen: 980}

	// Center on the line but angled: front and rear errors are equal and
	// opposite, so the mean body error alone would hide the misalignment.
	s := VehicleState{X: 0, Y: 100, Heading: 0.3}
	eF, eR := flat.BodyError(s, 17, -17)
	assert.InDelta(t, -eR, eF, 1e-9)
	assert.Less(t, eF, 0.0, "front end sits above the line")
}

func TestCycleTracker(t *testing.T) {
	c := NewCycleTracker(1000, 980)

	assert.False(t, c.Update(1000))
	assert.False(t, c.Update(1979))
	assert.True(t, c.Update(1980))
	assert.True(t, c.Update(2500))

	assert.InDelta(t, 0.5, c.Progress(1490), 1e-9)
	assert.Equal(t, 0.0, c.Progress(900))
	assert.Equal(t, 1.0, c.Progress(9999))

	c.Reset(1980)
	assert.False(t, c.Update(1981))
	assert.True(t, c.Update(2960))
}

func TestDistanceCombinesXAndPhase(t *testing.T) {
	assert.Equal(t, 150.0, Distance(VehicleState{X: 100, Phase: 50}))
}
