package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mapHeader = "frame_id,frame_name,dlc,signal_name,start_bit,bit_length,signed,factor,offset,min,max,default,unit\n"

func writeMap(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.csv")
	require.NoError(t, os.WriteFile(path, []byte(mapHeader+body), 0o644))
	return path
}

// minimal map covering every frame the sinks need
const validBody = `0x400,TICK_STATE,8,true_error,0,16,true,0.01,0,-327,327,0,px
0x400,TICK_STATE,8,meas_error,16,16,true,0.01,0,-327,327,0,px
0x400,TICK_STATE,8,control_output,32,16,true,0.01,0,-327,327,0,
0x400,TICK_STATE,8,steer_actuator,48,16,true,0.01,0,-327,327,0,
0x410,TUNE_EVENT,8,champion_cost,0,16,false,1,0,0,65535,0,
0x410,TUNE_EVENT,8,challenger_cost,16,16,false,1,0,0,65535,0,
0x410,TUNE_EVENT,8,cycle,32,16,false,1,0,0,65535,0,
0x410,TUNE_EVENT,8,swapped,48,1,false,1,0,0,1,0,
0x410,TUNE_EVENT,8,discarded,56,8,false,1,0,0,255,0,
0x411,TUNE_GAINS,8,kp,0,16,false,0.001,0,0,65.535,0,
0x411,TUNE_GAINS,8,ki,16,16,false,0.00001,0,0,0.65535,0,
0x411,TUNE_GAINS,8,kd,32,16,false,0.001,0,0,65.535,0,
0x411,TUNE_GAINS,8,trim,48,16,true,0.01,0,-327,327,0,
0x420,TRAINER_CMD,8,op,0,8,false,1,0,0,255,0,
0x420,TRAINER_CMD,8,param,8,8,false,1,0,0,255,0,
0x420,TRAINER_CMD,8,delta,16,32,true,0.0001,0,-214748,214748,0,
`

func TestLoadFrameMapOverridesIDs(t *testing.T) {
	m, err := LoadFrameMap(writeMap(t, validBody))
	require.NoError(t, err)

	fd, err := m.FrameByName(FrameTickState)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x400), fd.ID)
	assert.Len(t, fd.Signals, 4)

	// Signals sorted by start bit.
	for i := 1; i < len(fd.Signals); i++ {
		assert.Greater(t, fd.Signals[i].StartBit, fd.Signals[i-1].StartBit)
	}

	// The loaded map encodes like the builtin one, just with its own IDs.
	f, err := m.Encode(FrameTickState, map[string]float64{"true_error": -1.5})
	require.NoError(t, err)
	out, err := m.Decode(0x400, f.Data[:f.Length])
	require.NoError(t, err)
	assert.InDelta(t, -1.5, out["true_error"], 0.01)
}

func TestLoadFrameMapMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("frame_id,frame_name,dlc\n0x400,TICK_STATE,8\n"), 0o644))
	_, err := LoadFrameMap(path)
	assert.ErrorContains(t, err, "missing required column")
}

func TestLoadFrameMapRejectsZeroFactor(t *testing.T) {
	_, err := LoadFrameMap(writeMap(t,
		"0x400,TICK_STATE,8,true_error,0,16,true,0,0,-327,327,0,px\n"))
	assert.ErrorContains(t, err, "factor must be non-zero")
}

func TestLoadFrameMapRejectsInconsistentDLC(t *testing.T) {
	body := "0x400,TICK_STATE,8,true_error,0,16,true,0.01,0,-327,327,0,px\n" +
		"0x400,TICK_STATE,4,meas_error,16,16,true,0.01,0,-327,327,0,px\n"
	_, err := LoadFrameMap(writeMap(t, body))
	assert.ErrorContains(t, err, "inconsistent DLC")
}

func TestLoadFrameMapRequiresAllBuiltinFrames(t *testing.T) {
	// TRAINER_CMD omitted: the command RX path would have nothing to decode.
	body := `0x400,TICK_STATE,8,true_error,0,16,true,0.01,0,-327,327,0,px
0x410,TUNE_EVENT,8,cycle,32,16,false,1,0,0,65535,0,
0x411,TUNE_GAINS,8,kp,0,16,false,0.001,0,0,65.535,0,
`
	_, err := LoadFrameMap(writeMap(t, body))
	assert.ErrorContains(t, err, "TRAINER_CMD")
}

func TestLoadFrameMapBadFrameID(t *testing.T) {
	_, err := LoadFrameMap(writeMap(t,
		"banana,TICK_STATE,8,true_error,0,16,true,0.01,0,-327,327,0,px\n"))
	assert.ErrorContains(t, err, "invalid frame_id")
}

func TestLoadFrameMapMissingFile(t *testing.T) {
	_, err := LoadFrameMap(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
