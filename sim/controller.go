package sim

import (
	"errors"

	"pid-trainer-core/utils"
)

// ErrInvalidInput marks a non-finite error or timestep fed to the controller.
// The caller keeps the previous valid output; memory is left untouched.
var ErrInvalidInput = errors.New("controller: non-finite input")

// ControllerMemory is the mutable state of one controller instance. A shadow
// rollout copies it; the live instance is never shared.
type ControllerMemory struct {
	Integral float64
	PrevErr  float64
	PrevOut  float64
	Out      float64
}

// Reset clears the memory to the power-on state.
func (m *ControllerMemory) Reset() {
	*m = ControllerMemory{}
}

// Controller is a discrete PID with conditional-integration anti-windup.
type Controller struct {
	IMax float64
	UMax float64
	Mem  ControllerMemory
}

// Step computes the control output for one period from the measured (noisy)
// error. The derivative is taken on the measured error deliberately, so
// sensor noise amplification shows up in the derivative path as it would on
// hardware.
//
// Anti-windup is conditional integration: when the raw output saturates and
// the error would push the integral further into saturation, the whole
// integral update for the step is rolled back, not merely clamped.
func (c *Controller) Step(g GainSet, measuredErr, dt float64) (float64, error) {
	if !utils.Finite(measuredErr) || !utils.Finite(dt) || dt <= 0 {
		return c.Mem.Out, ErrInvalidInput
	}

	iPrev := c.Mem.Integral
	integral := utils.Clamp(iPrev+measuredErr*dt, -c.IMax, c.IMax)

	d := (measuredErr - c.Mem.PrevErr) / dt

	raw := g.Kp*measuredErr + g.Ki*integral + g.Kd*d + g.Trim
	if (raw > c.UMax && measuredErr > 0) || (raw < -c.UMax && measuredErr < 0) {
		integral = iPrev
		raw = g.Kp*measuredErr + g.Ki*integral + g.Kd*d + g.Trim
	}

	out := utils.Clamp(raw, -c.UMax, c.UMax)

	c.Mem.Integral = integral
	c.Mem.PrevErr = measuredErr
	c.Mem.PrevOut = c.Mem.Out
	c.Mem.Out = out
	return out, nil
}

// Diagnostics is a snapshot of controller internals for telemetry.
type Diagnostics struct {
	Integral float64
	PrevErr  float64
	Output   float64
}

func (c *Controller) Diagnostics() Diagnostics {
	return Diagnostics{
		Integral: c.Mem.Integral,
		PrevErr:  c.Mem.PrevErr,
		Output:   c.Mem.Out,
	}
}
