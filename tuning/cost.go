package tuning

import "math"

// speedEps keeps the speed-normalized spin term bounded near standstill.
const speedEps = 1e-3

// CostEvaluator accumulates the weighted tracking penalty over one rollout
// window. The running sum never decreases and never goes negative; the mean
// is exactly zero only for an empty window.
type CostEvaluator struct {
	w     CostWeights
	sum   float64
	steps int
}

func NewCostEvaluator(w CostWeights) *CostEvaluator {
	return &CostEvaluator{w: w}
}

// Add accumulates one step. eF and eR are the front and rear body errors,
// omega the realized turn rate, v the forward speed, u the control output and
// du the control change since the previous step.
func (c *CostEvaluator) Add(eF, eR, omega, v, u, du float64) {
	e2 := 0.5 * (eF*eF + eR*eR)
	spinR := omega / (math.Abs(v) + speedEps)
	c.sum += c.w.E2*e2 +
		c.w.Spin2*omega*omega +
		c.w.SpinR2*spinR*spinR +
		c.w.U2*u*u +
		c.w.DU2*du*du
	c.steps++
}

// Mean returns the per-step cost, zero for an empty window.
func (c *CostEvaluator) Mean() float64 {
	if c.steps == 0 {
		return 0
	}
	return c.sum / float64(c.steps)
}

// Steps returns the number of accumulated steps.
func (c *CostEvaluator) Steps() int {
	return c.steps
}
