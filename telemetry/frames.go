// Package telemetry carries the core's outward surface: per-tick plant and
// controller samples, per-cycle tuning outcomes, and inbound UI commands,
// all encodable as little-endian CAN frames for an external HUD.
package telemetry

import "sort"

type SignalDef struct {
	Name      string
	StartBit  int
	BitLength int
	Signed    bool
	Factor    float64
	Offset    float64
	Min       float64
	Max       float64
	Default   float64
	Unit      string
}

type FrameDef struct {
	ID      uint32
	Name    string
	DLC     int
	Signals []SignalDef
}

type FrameMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func NewFrameMap(defs ...FrameDef) *FrameMap {
	m := &FrameMap{
		ByID:   map[uint32]*FrameDef{},
		ByName: map[string]*FrameDef{},
	}
	for i := range defs {
		fd := defs[i]
		m.ByID[fd.ID] = &fd
		m.ByName[fd.Name] = &fd
	}
	return m
}

func (m *FrameMap) FrameNames() []string {
	out := make([]string, 0, len(m.ByName))
	for k := range m.ByName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Frame and signal names of the builtin map.
const (
	FrameTickState  = "TICK_STATE"
	FrameTuneEvent  = "TUNE_EVENT"
	FrameTuneGains  = "TUNE_GAINS"
	FrameTrainerCmd = "TRAINER_CMD"

	TickStateID  uint32 = 0x310
	TuneEventID  uint32 = 0x320
	TuneGainsID  uint32 = 0x321
	TrainerCmdID uint32 = 0x330
)

// BuiltinFrameMap is the default frame set. A CSV map loaded at startup can
// override it for bench setups with different IDs or scaling.
func BuiltinFrameMap() *FrameMap {
	return NewFrameMap(
		FrameDef{
			ID: TickStateID, Name: FrameTickState, DLC: 8,
			Signals: []SignalDef{
				{Name: "true_error", StartBit: 0, BitLength: 16, Signed: true, Factor: 0.01, Min: -327.0, Max: 327.0, Unit: "px"},
				{Name: "meas_error", StartBit: 16, BitLength: 16, Signed: true, Factor: 0.01, Min: -327.0, Max: 327.0, Unit: "px"},
				{Name: "control_output", StartBit: 32, BitLength: 16, Signed: true, Factor: 0.01, Min: -327.0, Max: 327.0},
				{Name: "steer_actuator", StartBit: 48, BitLength: 16, Signed: true, Factor: 0.01, Min: -327.0, Max: 327.0},
			},
		},
		FrameDef{
			ID: TuneEventID, Name: FrameTuneEvent, DLC: 8,
			Signals: []SignalDef{
				{Name: "champion_cost", StartBit: 0, BitLength: 16, Factor: 1.0, Min: 0, Max: 65535},
				{Name: "challenger_cost", StartBit: 16, BitLength: 16, Factor: 1.0, Min: 0, Max: 65535},
				{Name: "cycle", StartBit: 32, BitLength: 16, Factor: 1.0, Min: 0, Max: 65535},
				{Name: "swapped", StartBit: 48, BitLength: 1, Factor: 1.0, Min: 0, Max: 1},
				{Name: "discarded", StartBit: 56, BitLength: 8, Factor: 1.0, Min: 0, Max: 255},
			},
		},
		FrameDef{
			ID: TuneGainsID, Name: FrameTuneGains, DLC: 8,
			Signals: []SignalDef{
				{Name: "kp", StartBit: 0, BitLength: 16, Factor: 0.001, Min: 0, Max: 65.535},
				{Name: "ki", StartBit: 16, BitLength: 16, Factor: 0.00001, Min: 0, Max: 0.65535},
				{Name: "kd", StartBit: 32, BitLength: 16, Factor: 0.001, Min: 0, Max: 65.535},
				{Name: "trim", StartBit: 48, BitLength: 16, Signed: true, Factor: 0.01, Min: -327.0, Max: 327.0},
			},
		},
		FrameDef{
			ID: TrainerCmdID, Name: FrameTrainerCmd, DLC: 8,
			Signals: []SignalDef{
				{Name: "op", StartBit: 0, BitLength: 8, Factor: 1.0, Min: 0, Max: 255},
				{Name: "param", StartBit: 8, BitLength: 8, Factor: 1.0, Min: 0, Max: 255},
				{Name: "delta", StartBit: 16, BitLength: 32, Signed: true, Factor: 0.0001, Min: -214748.0, Max: 214748.0},
			},
		},
	)
}
