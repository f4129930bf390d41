package telemetry

import (
	"context"

	"pid-trainer-core/tuning"
	"pid-trainer-core/utils"
)

// TickSample is the per-tick record of the live loop.
type TickSample struct {
	T       float64 // sim time, seconds
	TrueErr float64
	MeasErr float64
	Output  float64
	Steer   float64 // lagged actuator value
}

// Sink consumes the core's telemetry. Implementations must not block the
// frame loop for long; a slow consumer should drop rather than stall.
type Sink interface {
	Tick(s TickSample)
	Cycle(o tuning.CycleOutcome)
	// Fault records a recovered failure (invalid controller input, diverged
	// candidate). Recovered failures are never silently dropped.
	Fault(kind string, msg string)
	Close() error
}

// LogSink writes telemetry to the logger. Tick samples go out at TRACE so a
// normal run is not drowned; cycle outcomes and faults are always visible.
type LogSink struct {
	log *utils.Logger
}

func NewLogSink(log *utils.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Tick(t TickSample) {
	s.log.Trace("tick t=%.3f e_true=%.2f e_meas=%.2f u=%.2f steer=%.2f",
		t.T, t.TrueErr, t.MeasErr, t.Output, t.Steer)
}

func (s *LogSink) Cycle(o tuning.CycleOutcome) {
	s.log.Info("cycle=%d champ=%.3f chall=%.3f best=%.3f swap=%v pick=%s discarded=%d",
		o.Cycle, o.ChampionCost, o.ChallengerCost, o.BestCost, o.Swapped, o.PickTag, o.Discarded)
}

func (s *LogSink) Fault(kind, msg string) {
	s.log.Warn("fault %s: %s", kind, msg)
}

func (s *LogSink) Close() error { return nil }

// CANSink encodes telemetry as CAN frames for an external HUD. Transmit
// errors are logged and otherwise dropped; telemetry must never halt the
// live loop.
type CANSink struct {
	ctx context.Context
	fm  *FrameMap
	w   Writer
	log *utils.Logger
}

func NewCANSink(ctx context.Context, fm *FrameMap, w Writer, log *utils.Logger) *CANSink {
	return &CANSink{ctx: ctx, fm: fm, w: w, log: log}
}

func (s *CANSink) Tick(t TickSample) {
	frame, err := s.fm.Encode(FrameTickState, map[string]float64{
		"true_error":     t.TrueErr,
		"meas_error":     t.MeasErr,
		"control_output": t.Output,
		"steer_actuator": t.Steer,
	})
	if err != nil {
		s.log.Error("encode %s: %v", FrameTickState, err)
		return
	}
	if err := s.w.WriteFrame(s.ctx, frame); err != nil {
		s.log.Error("transmit %s: %v", FrameTickState, err)
	}
}

func (s *CANSink) Cycle(o tuning.CycleOutcome) {
	swapped := 0.0
	if o.Swapped {
		swapped = 1.0
	}
	event, err := s.fm.Encode(FrameTuneEvent, map[string]float64{
		"champion_cost":   o.ChampionCost,
		"challenger_cost": o.ChallengerCost,
		"cycle":           float64(o.Cycle),
		"swapped":         swapped,
		"discarded":       float64(o.Discarded),
	})
	if err != nil {
		s.log.Error("encode %s: %v", FrameTuneEvent, err)
		return
	}
	if err := s.w.WriteFrame(s.ctx, event); err != nil {
		s.log.Error("transmit %s: %v", FrameTuneEvent, err)
		return
	}

	gains, err := s.fm.Encode(FrameTuneGains, map[string]float64{
		"kp":   o.Adopted.Kp,
		"ki":   o.Adopted.Ki,
		"kd":   o.Adopted.Kd,
		"trim": o.Adopted.Trim,
	})
	if err != nil {
		s.log.Error("encode %s: %v", FrameTuneGains, err)
		return
	}
	if err := s.w.WriteFrame(s.ctx, gains); err != nil {
		s.log.Error("transmit %s: %v", FrameTuneGains, err)
	}
}

func (s *CANSink) Fault(kind, msg string) {
	// No dedicated fault frame; visibility comes through the log.
	s.log.Warn("fault %s: %s", kind, msg)
}

func (s *CANSink) Close() error {
	return s.w.Close()
}

// TeeSink fans telemetry out to several sinks.
type TeeSink []Sink

func (t TeeSink) Tick(s TickSample) {
	for _, sk := range t {
		sk.Tick(s)
	}
}

func (t TeeSink) Cycle(o tuning.CycleOutcome) {
	for _, sk := range t {
		sk.Cycle(o)
	}
}

func (t TeeSink) Fault(kind, msg string) {
	for _, sk := range t {
		sk.Fault(kind, msg)
	}
}

func (t TeeSink) Close() error {
	var firstErr error
	for _, sk := range t {
		if err := sk.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
