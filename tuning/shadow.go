package tuning

import (
	"errors"
	"math"

	"pid-trainer-core/sim"
	"pid-trainer-core/utils"
)

// ErrCandidateDiverged marks a rollout whose cost went non-finite, typically
// from an unstable gain set. The candidate is discarded; the search goes on.
var ErrCandidateDiverged = errors.New("shadow: candidate diverged")

// Snapshot carries the cloned live state a rollout starts from. Both fields
// are values; building a Snapshot is the deep copy.
type Snapshot struct {
	Vehicle sim.VehicleState
	Memory  sim.ControllerMemory
}

// ShadowRunner executes isolated rollouts for candidate gain sets. A run
// works entirely on its own copies and the caller-provided noise stream; it
// mutates nothing outside its locals, so the live trajectory is bit-for-bit
// independent of how many rollouts happen.
type ShadowRunner struct {
	cfg    Config
	simCfg sim.Config
	track  *sim.TrackReference
	plant  *sim.PlantModel
}

func NewShadowRunner(cfg Config, simCfg sim.Config) *ShadowRunner {
	r := &ShadowRunner{cfg: cfg, simCfg: simCfg}
	r.track = &r.simCfg.Track
	r.plant = sim.NewPlantModel(r.simCfg, r.track)
	return r
}

// Run steps plant, controller and track exactly horizon times under the
// candidate gains, feeding every step into the cost evaluator. It returns
// the mean cost and the running per-step cost curve.
func (r *ShadowRunner) Run(snap Snapshot, g sim.GainSet, horizon int, noise *sim.NoiseSource) (float64, []float64, error) {
	if !g.Finite() {
		return 0, nil, ErrCandidateDiverged
	}

	state := snap.Vehicle.Clone()
	ctrl := sim.Controller{IMax: r.simCfg.IMax, UMax: r.simCfg.UMax, Mem: snap.Memory}
	eval := NewCostEvaluator(r.cfg.Weights)
	curve := make([]float64, 0, horizon)

	dt := r.cfg.ShadowDT
	base := g.Base * r.cfg.SpeedScale
	front := r.simCfg.BodyLen * 0.5

	for i := 0; i < horizon; i++ {
		eTrue := r.track.LookaheadError(state, r.simCfg.Lookahead)
		eMeas := eTrue + noise.Sample()

		u, err := ctrl.Step(g, eMeas, dt)
		if err != nil {
			// A non-finite measurement inside a rollout means the candidate
			// drove the state somewhere unusable.
			return 0, nil, ErrCandidateDiverged
		}

		var omega float64
		state, omega = r.plant.Advance(state, u, base, dt)

		eF, eR := r.track.BodyError(state, front, -front)
		eval.Add(eF, eR, omega, state.Speed, u, ctrl.Mem.Out-ctrl.Mem.PrevOut)
		curve = append(curve, eval.Mean())
	}

	cost := eval.Mean()
	if !utils.Finite(cost) {
		return 0, nil, ErrCandidateDiverged
	}
	return cost, curve, nil
}

// FullCycleSteps is the fixed validation horizon: the steps needed to travel
// one wavelength at the nominal advance rate, capped. A fixed count keeps
// paired champion/challenger rollouts consuming equal noise draws.
func (r *ShadowRunner) FullCycleSteps(base float64) int {
	v := (base*r.cfg.SpeedScale/255.0)*r.simCfg.MaxSpeed + r.track.PhaseSpeed
	if v < 1e-6 {
		v = 1e-6
	}
	steps := int(math.Ceil(r.track.Wavelen / (v * r.cfg.ShadowDT)))
	if steps < 1 {
		steps = 1
	}
	if steps > r.cfg.MaxShadowSteps {
		steps = r.cfg.MaxShadowSteps
	}
	return steps
}

// QuickSteps is the cheap screening horizon, a configured fraction of the
// full cycle.
func (r *ShadowRunner) QuickSteps(base float64) int {
	steps := int(math.Ceil(float64(r.FullCycleSteps(base)) * r.cfg.QuickFraction))
	if steps < 1 {
		steps = 1
	}
	return steps
}
