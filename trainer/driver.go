package main

import (
	"errors"
	"fmt"

	"pid-trainer-core/sim"
	"pid-trainer-core/telemetry"
	"pid-trainer-core/tuning"
	"pid-trainer-core/utils"
)

// Mode of the tuning loop.
type Mode int

const (
	ModeOff Mode = iota
	ModeLearn
)

func (m Mode) String() string {
	if m == ModeLearn {
		return "LEARN"
	}
	return "OFF"
}

// Driver is the live orchestrator: one Tick per real frame advances the
// vehicle, feeds the tuning search on cycle boundaries and emits telemetry.
// It is single-threaded by design; commands are applied between ticks.
type Driver struct {
	cfg  AppConfig
	log  *utils.Logger
	sink telemetry.Sink

	gains  sim.GainSet // live gains, read by the plant step
	target sim.GainSet // search target the live gains blend toward
	mode   Mode
	paused bool

	state  sim.VehicleState
	ctrl   sim.Controller
	plant  *sim.PlantModel
	track  *sim.TrackReference
	noise  *sim.NoiseSource
	search *tuning.TuningSearch
	cycle  *sim.CycleTracker

	t            float64
	tick         uint64
	invalidSteps uint64
	swapCount    int
}

// NewDriver validates nothing itself: cfg must already have passed Validate.
func NewDriver(cfg AppConfig, log *utils.Logger, sink telemetry.Sink) *Driver {
	d := &Driver{
		cfg:  cfg,
		log:  log,
		sink: sink,
	}
	d.track = &d.cfg.Sim.Track
	d.plant = sim.NewPlantModel(d.cfg.Sim, d.track)
	d.gains = cfg.Limits.Clamp(cfg.StartGains)
	d.target = d.gains
	d.search = tuning.NewTuningSearch(cfg.Tuning, cfg.Sim, cfg.Limits, d.gains)
	d.initWorld()
	return d
}

func (d *Driver) initWorld() {
	d.state = sim.InitialState(d.cfg.Sim, d.track)
	d.ctrl = sim.Controller{IMax: d.cfg.Sim.IMax, UMax: d.cfg.Sim.UMax}
	d.noise = sim.NewNoiseSource(d.cfg.Seed, d.cfg.Sim.NoiseStd)
	d.cycle = sim.NewCycleTracker(sim.Distance(d.state), d.track.Wavelen)
	d.t = 0
	d.tick = 0
}

func (d *Driver) Mode() Mode             { return d.mode }
func (d *Driver) Paused() bool           { return d.paused }
func (d *Driver) Gains() sim.GainSet     { return d.gains }
func (d *Driver) State() sim.VehicleState { return d.state }
func (d *Driver) SwapCount() int         { return d.swapCount }
func (d *Driver) InvalidSteps() uint64   { return d.invalidSteps }

// Tick advances one frame at the configured fixed timestep. Pause suspends
// ticking entirely; nothing in the loop advances.
func (d *Driver) Tick() {
	if d.paused {
		return
	}
	dt := d.cfg.Sim.DT

	// Blend live gains toward the search target while learning so swaps take
	// effect smoothly instead of stepping the controller.
	if d.mode == ModeLearn {
		d.gains.Kp = utils.EaseTowards(d.gains.Kp, d.target.Kp, dt, d.cfg.BlendTau)
		d.gains.Ki = utils.EaseTowards(d.gains.Ki, d.target.Ki, dt, d.cfg.BlendTau)
		d.gains.Kd = utils.EaseTowards(d.gains.Kd, d.target.Kd, dt, d.cfg.BlendTau)
		d.gains.Trim = utils.EaseTowards(d.gains.Trim, d.target.Trim, dt, d.cfg.BlendTau)
	}

	eTrue := d.track.LookaheadError(d.state, d.cfg.Sim.Lookahead)
	eMeas := eTrue + d.noise.Sample()

	u, err := d.ctrl.Step(d.gains, eMeas, dt)
	if err != nil {
		// Previous valid output is reused; memory stays untouched.
		d.invalidSteps++
		d.sink.Fault("invalid_input", fmt.Sprintf("t=%.3f e_meas=%v: %v", d.t, eMeas, err))
	}

	base := d.gains.Base
	if d.mode == ModeLearn {
		base *= d.cfg.Tuning.SpeedScale
	}
	d.state, _ = d.plant.Advance(d.state, u, base, dt)

	d.t += dt
	d.tick++

	d.sink.Tick(telemetry.TickSample{
		T:       d.t,
		TrueErr: eTrue,
		MeasErr: eMeas,
		Output:  u,
		Steer:   d.state.Steer,
	})

	if d.mode != ModeLearn {
		return
	}

	if d.cycle.Update(sim.Distance(d.state)) {
		snap := tuning.Snapshot{
			Vehicle: d.state.Clone(),
			Memory:  d.ctrl.Mem,
		}
		d.search.OnCycleBoundary(snap, d.gains)
		d.cycle.Reset(sim.Distance(d.state))
	}

	if out := d.search.Step(); out != nil {
		d.target = d.search.Target()
		if out.Swapped {
			d.swapCount++
		}
		if out.Discarded > 0 {
			d.sink.Fault("candidate_diverged",
				fmt.Sprintf("cycle=%d discarded=%d", out.Cycle, out.Discarded))
		}
		d.sink.Cycle(*out)
	}
}

// ToggleMode flips between OFF and LEARN. Entering LEARN seeds the search
// champion from the live gains; leaving it abandons any in-flight round
// without touching the live gain set.
func (d *Driver) ToggleMode() Mode {
	if d.mode == ModeOff {
		d.mode = ModeLearn
		d.search.Enable(d.gains)
		d.target = d.search.Target()
		d.cycle.Reset(sim.Distance(d.state))
		d.log.Info("AUTO enabled: champion kp=%.3f ki=%.5f kd=%.3f trim=%.2f",
			d.gains.Kp, d.gains.Ki, d.gains.Kd, d.gains.Trim)
	} else {
		d.mode = ModeOff
		d.search.Disable()
		d.target = d.gains
		d.log.Info("AUTO disabled")
	}
	return d.mode
}

var errManualInAuto = errors.New("manual adjustment requires OFF mode")

// Adjust applies a manual parameter delta. Only valid while OFF; in LEARN
// the search owns the gains.
func (d *Driver) Adjust(p telemetry.Param, delta float64) error {
	if d.mode != ModeOff {
		return errManualInAuto
	}
	if !utils.Finite(delta) {
		return fmt.Errorf("adjust: non-finite delta %v", delta)
	}
	g := d.gains
	switch p {
	case telemetry.ParamBase:
		g.Base += delta
	case telemetry.ParamKp:
		g.Kp += delta
	case telemetry.ParamKi:
		g.Ki += delta
	case telemetry.ParamKd:
		g.Kd += delta
	case telemetry.ParamTrim:
		g.Trim += delta
	default:
		return fmt.Errorf("adjust: unknown parameter %d", p)
	}
	d.gains = d.cfg.Limits.Clamp(g)
	d.target = d.gains
	return nil
}

// Reset reinitializes the vehicle, the controller memory and the tuning
// search state. Gains keep their current values.
func (d *Driver) Reset() {
	d.initWorld()
	d.search.Disable()
	if d.mode == ModeLearn {
		d.search.Enable(d.gains)
		d.target = d.search.Target()
	} else {
		d.target = d.gains
	}
	d.log.Info("reset")
}

// SetPaused suspends or resumes ticking. Pausing changes nothing else.
func (d *Driver) SetPaused(p bool) {
	d.paused = p
}

// Apply dispatches a decoded UI command.
func (d *Driver) Apply(cmd telemetry.Command) {
	switch cmd.Op {
	case telemetry.OpToggleMode:
		d.ToggleMode()
	case telemetry.OpAdjust:
		if err := d.Adjust(cmd.Param, cmd.Delta); err != nil {
			d.log.Warn("command adjust rejected: %v", err)
		}
	case telemetry.OpReset:
		d.Reset()
	case telemetry.OpPause:
		d.SetPaused(true)
	case telemetry.OpResume:
		d.SetPaused(false)
	default:
		d.log.Warn("unknown command op %d", cmd.Op)
	}
}
