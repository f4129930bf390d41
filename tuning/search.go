package tuning

import (
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"pid-trainer-core/sim"
)

// Phase of the champion/challenger state machine. Exactly one phase is active
// at a time; Step advances one phase per call so a search round can be spread
// across frames without stalling the live loop.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSampling
	PhaseQuickScreen
	PhaseFullValidate
	PhaseSwapDecision
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSampling:
		return "SAMPLING"
	case PhaseQuickScreen:
		return "QUICK_SCREEN"
	case PhaseFullValidate:
		return "FULL_VALIDATE"
	case PhaseSwapDecision:
		return "SWAP_DECISION"
	default:
		return "UNKNOWN"
	}
}

// CycleOutcome is the per-cycle record handed to telemetry: both full-cycle
// costs and whether the challenger took over.
type CycleOutcome struct {
	Cycle          int
	ChampionCost   float64 // full-cycle cost measured this round
	ChallengerCost float64
	BestCost       float64 // recorded champion cost, non-increasing
	Swapped        bool
	Adopted        sim.GainSet // champion after the decision
	PickTag        string      // origin of the challenger: cur/champ/anch/rnd
	Discarded      int         // candidates dropped for diverging
}

type candidate struct {
	gains sim.GainSet
	tag   string
	quick float64
	ok    bool
}

// TuningSearch runs the champion/challenger gain search. All of its
// randomness (candidate sampling and shadow noise seeds) comes from a private
// stream, disjoint from the live measurement stream.
type TuningSearch struct {
	cfg    Config
	limits sim.GainLimits
	runner *ShadowRunner
	sigma  float64

	rng   *rand.Rand
	unit  distuv.Uniform
	gauss distuv.Normal

	phase Phase
	cycle int

	champion     sim.GainSet
	championCost float64 // best full-cycle cost recorded so far
	challenger   sim.GainSet
	challTag     string
	target       sim.GainSet
	radii        SampleRadii

	// in-flight round, valid while phase != PhaseIdle
	snap       Snapshot
	current    sim.GainSet
	cands      []candidate
	discarded  int
	shadowSeed uint64
	fullChamp  float64
	fullChall  float64
	challOK    bool
}

// NewTuningSearch builds a search seeded with the given initial gains as
// champion.
func NewTuningSearch(cfg Config, simCfg sim.Config, limits sim.GainLimits, initial sim.GainSet) *TuningSearch {
	src := rand.NewSource(cfg.Seed)
	t := &TuningSearch{
		cfg:    cfg,
		limits: limits,
		runner: NewShadowRunner(cfg, simCfg),
		sigma:  simCfg.NoiseStd,

		rng:   rand.New(src),
		unit:  distuv.Uniform{Min: -1, Max: 1, Src: src},
		gauss: distuv.Normal{Mu: 0, Sigma: 1, Src: src},

		phase:        PhaseIdle,
		champion:     limits.Clamp(initial),
		championCost: math.Inf(1),
		radii:        cfg.Radii,
	}
	t.target = t.champion
	return t
}

func (t *TuningSearch) Phase() Phase          { return t.phase }
func (t *TuningSearch) Cycle() int            { return t.cycle }
func (t *TuningSearch) Champion() sim.GainSet { return t.champion }
func (t *TuningSearch) ChampionCost() float64 { return t.championCost }

// Target is the gain set the live loop should blend toward.
func (t *TuningSearch) Target() sim.GainSet { return t.target }

// Enable restarts the search from the live gains. Called when AUTO is
// switched on so the champion always begins as what is actually running.
func (t *TuningSearch) Enable(live sim.GainSet) {
	t.abandon()
	t.champion = t.limits.Clamp(live)
	t.championCost = math.Inf(1)
	t.target = t.champion
	t.radii = t.cfg.Radii
	t.cycle = 0
}

// Disable abandons any in-flight round. Partial results are discarded, never
// applied; champion and target are left as they were.
func (t *TuningSearch) Disable() {
	t.abandon()
}

func (t *TuningSearch) abandon() {
	t.phase = PhaseIdle
	t.cands = nil
	t.discarded = 0
	t.challOK = false
}

// OnCycleBoundary arms a new round from the cloned live state. If the
// previous round has not finished yet, this boundary is skipped so the
// machine's ordering is preserved.
func (t *TuningSearch) OnCycleBoundary(snap Snapshot, current sim.GainSet) {
	if t.phase != PhaseIdle {
		return
	}
	t.snap = snap
	t.current = current
	t.shadowSeed = t.rng.Uint64()
	t.phase = PhaseSampling
}

// Step advances the machine by exactly one phase. It returns a CycleOutcome
// when a round completes, nil otherwise.
func (t *TuningSearch) Step() *CycleOutcome {
	switch t.phase {
	case PhaseSampling:
		t.cands = t.sample()
		t.discarded = 0
		t.phase = PhaseQuickScreen
		return nil

	case PhaseQuickScreen:
		return t.quickScreen()

	case PhaseFullValidate:
		t.fullValidate()
		t.phase = PhaseSwapDecision
		return nil

	case PhaseSwapDecision:
		return t.swapDecision()

	default:
		return nil
	}
}

// sample builds the candidate list: the live gains, the champion and the
// anchor, then bounded random perturbations alternating around the champion
// and the live gains.
func (t *TuningSearch) sample() []candidate {
	cands := make([]candidate, 0, t.cfg.NumCandidates)
	cands = append(cands,
		candidate{gains: t.current, tag: "cur"},
		candidate{gains: t.champion, tag: "champ"},
		candidate{gains: t.limits.Clamp(t.cfg.Anchor), tag: "anch"},
	)
	for i := 0; len(cands) < t.cfg.NumCandidates; i++ {
		center := t.champion
		if i%2 == 1 {
			center = t.current
		}
		g := sim.GainSet{
			Kp:   center.Kp + t.offset(t.radii.Kp),
			Ki:   center.Ki + t.offset(t.radii.Ki),
			Kd:   center.Kd + t.offset(t.radii.Kd),
			Base: center.Base,
			Trim: center.Trim + t.offset(t.radii.Trim),
		}
		cands = append(cands, candidate{gains: t.limits.Clamp(g), tag: "rnd"})
	}
	return cands
}

// offset draws one perturbation within radius r using the configured shape.
func (t *TuningSearch) offset(r float64) float64 {
	if r <= 0 {
		return 0
	}
	if t.cfg.SampleDist == SampleGaussian {
		return t.gauss.Rand() * r
	}
	return t.unit.Rand() * r
}

// quickScreen scores every candidate over the short horizon with the same
// noise seed, keeping the comparison about gains rather than draws. Ties go
// to the candidate closer to the champion, biasing toward minimal change.
func (t *TuningSearch) quickScreen() *CycleOutcome {
	quick := t.runner.QuickSteps(t.current.Base)
	best := -1
	for i := range t.cands {
		noise := sim.NewNoiseSource(t.shadowSeed, t.sigma)
		cost, _, err := t.runner.Run(t.snap, t.cands[i].gains, quick, noise)
		if err != nil {
			t.discarded++
			continue
		}
		t.cands[i].quick = cost
		t.cands[i].ok = true
		if best < 0 ||
			cost < t.cands[best].quick ||
			(cost == t.cands[best].quick && t.distToChampion(t.cands[i].gains) < t.distToChampion(t.cands[best].gains)) {
			best = i
		}
	}

	if best < 0 {
		// Every candidate diverged; no swap this cycle.
		out := t.finishRound(math.Inf(1), math.Inf(1), false, "none")
		return out
	}

	t.challenger = t.cands[best].gains
	t.challTag = t.cands[best].tag
	t.phase = PhaseFullValidate
	return nil
}

// fullValidate runs both the champion and the challenger over the full-cycle
// horizon from the identical snapshot with identical-seed noise streams, so
// any cost difference is attributable to the gains alone.
func (t *TuningSearch) fullValidate() {
	full := t.runner.FullCycleSteps(t.current.Base)
	seed := t.shadowSeed + 1

	champCost, _, errA := t.runner.Run(t.snap, t.champion, full, sim.NewNoiseSource(seed, t.sigma))
	challCost, _, errB := t.runner.Run(t.snap, t.challenger, full, sim.NewNoiseSource(seed, t.sigma))

	if errA != nil {
		champCost = math.Inf(1)
	}
	t.fullChamp = champCost
	t.fullChall = challCost
	t.challOK = errB == nil
}

// swapDecision applies the margin test and closes the round.
func (t *TuningSearch) swapDecision() *CycleOutcome {
	swap := t.challOK && t.fullChall < t.fullChamp*t.cfg.SwapMargin
	return t.finishRound(t.fullChamp, t.fullChall, swap, t.challTag)
}

func (t *TuningSearch) finishRound(champCost, challCost float64, swap bool, pick string) *CycleOutcome {
	if swap {
		t.champion = t.challenger
		t.target = t.champion
		// Exploit: tighten sampling around the new champion.
		t.radii = scaleRadii(t.radii, t.cfg.RadShrink, t.cfg.RadMax)
	} else {
		// Explore: widen the net after a failed round.
		t.radii = scaleRadii(t.radii, t.cfg.RadGrow, t.cfg.RadMax)
	}

	// Recorded champion cost is the best full-cycle cost seen so far; it can
	// only go down even when a re-measured champion fluctuates with the
	// starting snapshot.
	measured := challCost
	if !swap {
		measured = champCost
	}
	if measured < t.championCost {
		t.championCost = measured
	}

	out := &CycleOutcome{
		Cycle:          t.cycle,
		ChampionCost:   champCost,
		ChallengerCost: challCost,
		BestCost:       t.championCost,
		Swapped:        swap,
		Adopted:        t.champion,
		PickTag:        pick,
		Discarded:      t.discarded,
	}
	t.cycle++
	t.abandon()
	return out
}

// distToChampion is the radius-normalized Euclidean distance used for quick
// screen tie-breaking.
func (t *TuningSearch) distToChampion(g sim.GainSet) float64 {
	sq := func(a, b, r float64) float64 {
		if r <= 0 {
			r = 1
		}
		d := (a - b) / r
		return d * d
	}
	return math.Sqrt(sq(g.Kp, t.champion.Kp, t.radii.Kp) +
		sq(g.Ki, t.champion.Ki, t.radii.Ki) +
		sq(g.Kd, t.champion.Kd, t.radii.Kd) +
		sq(g.Trim, t.champion.Trim, t.radii.Trim))
}

func scaleRadii(r SampleRadii, f float64, max SampleRadii) SampleRadii {
	return SampleRadii{
		Kp:   math.Min(r.Kp*f, max.Kp),
		Ki:   math.Min(r.Ki*f, max.Ki),
		Kd:   math.Min(r.Kd*f, max.Kd),
		Trim: math.Min(r.Trim*f, max.Trim),
	}
}
