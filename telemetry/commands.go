package telemetry

import (
	"context"

	"go.einride.tech/can"

	"pid-trainer-core/utils"
)

// Writer transmits CAN frames.
type Writer interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// Reader receives CAN frames.
type Reader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

// Opcode of an inbound UI command.
type Opcode int

const (
	OpToggleMode Opcode = iota
	OpAdjust
	OpReset
	OpPause
	OpResume
)

// Param selects the manually tunable parameter for OpAdjust.
type Param int

const (
	ParamBase Param = iota
	ParamKp
	ParamKi
	ParamKd
	ParamTrim
)

// Command is a decoded TRAINER_CMD frame.
type Command struct {
	Op    Opcode
	Param Param
	Delta float64
}

// DecodeCommand decodes a TRAINER_CMD frame. Frames with other IDs are
// reported as not-a-command, not as errors.
func (m *FrameMap) DecodeCommand(f can.Frame) (Command, bool, error) {
	fd, ok := m.ByName[FrameTrainerCmd]
	if !ok || f.ID != fd.ID {
		return Command{}, false, nil
	}
	vals, err := m.Decode(f.ID, f.Data[:f.Length])
	if err != nil {
		return Command{}, true, err
	}
	return Command{
		Op:    Opcode(int(vals["op"])),
		Param: Param(int(vals["param"])),
		Delta: vals["delta"],
	}, true, nil
}

// ReceiveCommands reads frames until the context ends, decoding TRAINER_CMD
// frames into out. Non-command frames are ignored; a full channel drops the
// command rather than blocking the bus.
func ReceiveCommands(ctx context.Context, r Reader, m *FrameMap, log *utils.Logger, out chan<- Command) {
	log.Debug("command RX loop started")
	defer log.Debug("command RX loop stopped")

	for {
		frame, err := r.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("command RX: %v", err)
			continue
		}

		cmd, isCmd, err := m.DecodeCommand(frame)
		if err != nil {
			log.Error("command decode id=0x%X: %v", uint32(frame.ID), err)
			continue
		}
		if !isCmd {
			continue
		}

		select {
		case out <- cmd:
		default:
			log.Warn("command channel full, dropping op=%d", cmd.Op)
		}
	}
}
