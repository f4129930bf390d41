package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pid-trainer-core/sim"
	"pid-trainer-core/telemetry"
	"pid-trainer-core/tuning"
	"pid-trainer-core/utils"
)

// recordSink counts telemetry instead of printing it.
type recordSink struct {
	ticks  int
	cycles []tuning.CycleOutcome
	faults []string
}

func (r *recordSink) Tick(telemetry.TickSample)   { r.ticks++ }
func (r *recordSink) Cycle(o tuning.CycleOutcome) { r.cycles = append(r.cycles, o) }
func (r *recordSink) Fault(kind, _ string)        { r.faults = append(r.faults, kind) }
func (r *recordSink) Close() error                { return nil }

func quietLogger() *utils.Logger {
	return utils.NewStdoutLogger(utils.CRITICAL)
}

func newTestDriver(tweak func(*AppConfig)) (*Driver, *recordSink) {
	cfg := DefaultAppConfig()
	if tweak != nil {
		tweak(&cfg)
	}
	sink := &recordSink{}
	return NewDriver(cfg, quietLogger(), sink), sink
}

func TestDriverSameSeedBitIdentical(t *testing.T) {
	// Two drivers with identical configs must stay bit-for-bit in lockstep,
	// shadow search included.
	a, _ := newTestDriver(nil)
	b, _ := newTestDriver(nil)
	a.ToggleMode()
	b.ToggleMode()

	for i := 0; i < 2000; i++ {
		a.Tick()
		b.Tick()
		require.Equal(t, a.State(), b.State(), "tick %d", i)
	}
	assert.Equal(t, a.Gains(), b.Gains())
	assert.Equal(t, a.SwapCount(), b.SwapCount())
}

func TestShadowSearchCannotPerturbLiveRun(t *testing.T) {
	// Before the first cycle boundary no search result can have been applied,
	// so the live trajectory must be identical regardless of how many shadow
	// candidates the search is configured to evaluate.
	a, _ := newTestDriver(nil)
	b, _ := newTestDriver(func(c *AppConfig) { c.Tuning.NumCandidates = 5 })
	a.ToggleMode()
	b.ToggleMode()

	for i := 0; i < 400; i++ {
		a.Tick()
		b.Tick()
		require.Equal(t, a.State(), b.State(), "tick %d", i)
	}
	assert.Equal(t, a.Gains(), b.Gains())
}

func TestDriverLearnEmitsCycleOutcomes(t *testing.T) {
	d, sink := newTestDriver(nil)
	d.ToggleMode()

	for i := 0; i < 1400; i++ {
		d.Tick()
	}
	require.NotEmpty(t, sink.cycles, "no tuning round completed")
	assert.Equal(t, 0, sink.cycles[0].Cycle)
	assert.Equal(t, 1400, sink.ticks)
}

func TestDriverOffRunsNoSearch(t *testing.T) {
	d, sink := newTestDriver(nil)

	for i := 0; i < 1400; i++ {
		d.Tick()
	}
	assert.Empty(t, sink.cycles)
	assert.Equal(t, ModeOff, d.Mode())
}

func TestDriverGainsBlendTowardSwapTarget(t *testing.T) {
	d, sink := newTestDriver(nil)
	d.ToggleMode()

	start := d.Gains()
	for i := 0; i < 6000; i++ {
		d.Tick()
	}
	require.NotEmpty(t, sink.cycles)

	// The start tune is deliberately poor; after several rounds the live
	// gains must have moved.
	if d.SwapCount() > 0 {
		assert.NotEqual(t, start, d.Gains())
	}
	g := d.Gains()
	lim := d.cfg.Limits
	assert.GreaterOrEqual(t, g.Kp, lim.KpMin)
	assert.LessOrEqual(t, g.Kp, lim.KpMax)
	assert.GreaterOrEqual(t, g.Trim, lim.TrimMin)
	assert.LessOrEqual(t, g.Trim, lim.TrimMax)
}

func TestAdjustRequiresOffMode(t *testing.T) {
	d, _ := newTestDriver(nil)

	before := d.Gains()
	require.NoError(t, d.Adjust(telemetry.ParamKp, 0.1))
	assert.InDelta(t, before.Kp+0.1, d.Gains().Kp, 1e-12)

	d.ToggleMode()
	err := d.Adjust(telemetry.ParamKp, 0.1)
	assert.ErrorIs(t, err, errManualInAuto)
}

func TestAdjustClampsToLimits(t *testing.T) {
	d, _ := newTestDriver(nil)

	require.NoError(t, d.Adjust(telemetry.ParamTrim, 1e6))
	assert.Equal(t, d.cfg.Limits.TrimMax, d.Gains().Trim)

	require.NoError(t, d.Adjust(telemetry.ParamBase, -1e6))
	assert.Equal(t, d.cfg.Limits.BaseMin, d.Gains().Base)
}

func TestAdjustRejectsBadInput(t *testing.T) {
	d, _ := newTestDriver(nil)
	assert.Error(t, d.Adjust(telemetry.Param(99), 1.0))
}

func TestPauseFreezesEverything(t *testing.T) {
	d, sink := newTestDriver(nil)

	for i := 0; i < 10; i++ {
		d.Tick()
	}
	state := d.State()
	ticks := sink.ticks

	d.SetPaused(true)
	for i := 0; i < 50; i++ {
		d.Tick()
	}
	assert.Equal(t, state, d.State())
	assert.Equal(t, ticks, sink.ticks)

	d.SetPaused(false)
	d.Tick()
	assert.NotEqual(t, state, d.State())
}

func TestResetReinitializesWorldKeepsGains(t *testing.T) {
	d, _ := newTestDriver(nil)

	require.NoError(t, d.Adjust(telemetry.ParamKp, 0.3))
	g := d.Gains()
	for i := 0; i < 100; i++ {
		d.Tick()
	}

	d.Reset()
	fresh := sim.InitialState(d.cfg.Sim, &d.cfg.Sim.Track)
	assert.Equal(t, fresh, d.State())
	assert.Equal(t, g, d.Gains())
	assert.Equal(t, uint64(0), d.tick)
}

func TestToggleModeRoundTrip(t *testing.T) {
	d, _ := newTestDriver(nil)

	assert.Equal(t, ModeLearn, d.ToggleMode())
	assert.Equal(t, ModeOff, d.ToggleMode())

	// Leaving LEARN keeps whatever gains are live.
	g := d.Gains()
	d.ToggleMode()
	for i := 0; i < 50; i++ {
		d.Tick()
	}
	mid := d.Gains()
	d.ToggleMode()
	assert.Equal(t, mid, d.Gains())
	_ = g
}

func TestApplyDispatch(t *testing.T) {
	d, _ := newTestDriver(nil)

	d.Apply(telemetry.Command{Op: telemetry.OpPause})
	assert.True(t, d.Paused())
	d.Apply(telemetry.Command{Op: telemetry.OpResume})
	assert.False(t, d.Paused())

	d.Apply(telemetry.Command{Op: telemetry.OpToggleMode})
	assert.Equal(t, ModeLearn, d.Mode())

	// Adjust in LEARN is rejected but must not panic or change gains.
	g := d.Gains()
	d.Apply(telemetry.Command{Op: telemetry.OpAdjust, Param: telemetry.ParamKd, Delta: 1})
	assert.Equal(t, g, d.Gains())
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := LoadAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
}

func TestLoadAppConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"blend_tau": 0.4, "sim": {"max_speed": 100}}`), 0o644))

	cfg, err := LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.BlendTau)
	assert.Equal(t, 100.0, cfg.Sim.MaxSpeed)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultAppConfig().Sim.WheelBase, cfg.Sim.WheelBase)
}

func TestLoadAppConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sim": {"dt_s": -1}}`), 0o644))
	_, err := LoadAppConfig(path)
	assert.ErrorContains(t, err, "configuration")

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = LoadAppConfig(path)
	assert.ErrorContains(t, err, "parse config")

	_, err = LoadAppConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read config")
}
