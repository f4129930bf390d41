package sim

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseSource produces Gaussian measurement noise from a private, seedable
// stream. The live run and every shadow rollout construct their own source,
// so shadow evaluations can never advance or perturb the live draw sequence.
// Two sources built with the same seed and sigma emit identical sequences,
// which is what the champion/challenger fairness policy relies on.
type NoiseSource struct {
	dist distuv.Normal
}

// NewNoiseSource creates an isolated stream with standard deviation sigma.
func NewNoiseSource(seed uint64, sigma float64) *NoiseSource {
	return &NoiseSource{dist: distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   rand.NewSource(seed),
	}}
}

// Sample returns one noise draw. A zero-sigma source still consumes a draw so
// that enabling noise does not change the draw alignment of a run.
func (n *NoiseSource) Sample() float64 {
	return n.dist.Rand()
}

// Sigma returns the configured standard deviation.
func (n *NoiseSource) Sigma() float64 {
	return n.dist.Sigma
}
