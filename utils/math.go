package utils

import "math"

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// EaseTowards moves current toward target through a first-order lag with time
// constant tau: alpha = 1 - exp(-dt/tau). The result converges geometrically
// to target and never overshoots it in open loop.
func EaseTowards(current, target, dt, tau float64) float64 {
	if tau <= 1e-6 {
		return target
	}
	alpha := 1.0 - math.Exp(-dt/tau)
	return current + (target-current)*alpha
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
