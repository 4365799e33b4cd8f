package sysex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAllDump() AllDump {
	var dump AllDump
	for i := range dump.Programs {
		p := testProgram()
		p.Number = byte(i + 1)
		p.FilterAttack = byte(i)
		p.Cutoff = byte(127 - i)
		p.Mod1Amount = byte(i * 3 % 128)
		dump.Programs[i] = p
	}
	dump.Global = GlobalSettings{
		Channel:        1,
		ControlMode:    ControlModeSignal,
		DeviceID:       9,
		StartupProgram: 39,
		TriggerNote:    60,
		KnobMode:       KnobModeRelative,
	}
	return dump
}

func TestAllDumpRoundTrip(t *testing.T) {
	dump := testAllDump()
	raw := dump.Encode(0)
	require.Len(t, raw, AllDumpSize)

	got, err := DecodeAllDump(raw)
	require.NoError(t, err)
	require.Len(t, got.Programs, ProgramCount)

	for i := range dump.Programs {
		assert.True(t, dump.Programs[i].EqualParameters(got.Programs[i]), "slot %d", i+1)
		assert.Equal(t, byte(i+1), got.Programs[i].Number)
	}
	assert.Equal(t, dump.Global, got.Global)
}

func TestDecodeAllDumpScenario(t *testing.T) {
	// Hand-built 593-byte buffer: header, 580 positional parameter bytes,
	// 6 global bytes, checksum, terminator.
	raw := make([]byte, 0, AllDumpSize)
	raw = append(raw, Start, ManufacturerID, MachineID, 0x00, CmdAllDump)
	for i := 0; i < ProgramCount*ProgramDataSize; i++ {
		raw = append(raw, byte(i%128))
	}
	raw = append(raw, 2, 1, 5, 10, 64, 0)
	raw = append(raw, Checksum(raw[HeaderSize:]))
	raw = append(raw, End)
	require.Len(t, raw, AllDumpSize)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, CmdAllDump, msg.Command)

	dump, err := msg.AllDump()
	require.NoError(t, err)
	require.Len(t, dump.Programs, ProgramCount)

	assert.Equal(t, byte(0), dump.Programs[0].FilterAttack)
	assert.Equal(t, byte(1), dump.Programs[0].FilterDecay)
	assert.Equal(t, byte(ProgramDataSize%128), dump.Programs[1].FilterAttack)

	assert.Equal(t, byte(2), dump.Global.Channel)
	assert.Equal(t, ControlModeControl, dump.Global.ControlMode)
	assert.Equal(t, byte(5), dump.Global.DeviceID)
	assert.Equal(t, byte(10), dump.Global.StartupProgram)
	assert.Equal(t, byte(64), dump.Global.TriggerNote)
	assert.Equal(t, KnobModeJump, dump.Global.KnobMode)
}

func TestDecodeAllDumpRejectsOtherCommands(t *testing.T) {
	p := testProgram()
	_, err := DecodeAllDump(p.Encode(0))
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestDecodeAllDumpWrongLength(t *testing.T) {
	// One byte short of a full program region, checksum recomputed so the
	// frame still passes Parse.
	raw := make([]byte, 0, AllDumpSize-1)
	raw = append(raw, Start, ManufacturerID, MachineID, 0x00, CmdAllDump)
	for i := 0; i < ProgramCount*ProgramDataSize-1; i++ {
		raw = append(raw, byte(i%128))
	}
	raw = append(raw, 0, 0, 0, 0, 0, 0)
	raw = append(raw, Checksum(raw[HeaderSize:]))
	raw = append(raw, End)

	_, err := DecodeAllDump(raw)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestAllDumpEncodeDropsBookkeeping(t *testing.T) {
	dump := testAllDump()
	dump.Programs[0].Name = "lead"
	dump.Programs[0].ReadOnly = true
	dump.Programs[0].Number = 99

	raw := dump.Encode(0)
	got, err := DecodeAllDump(raw)
	require.NoError(t, err)

	assert.Equal(t, byte(1), got.Programs[0].Number)
	assert.Empty(t, got.Programs[0].Name)
	assert.False(t, got.Programs[0].ReadOnly)
}

func TestGlobalSettingsData(t *testing.T) {
	g := GlobalSettings{
		Channel:        16,
		ControlMode:    ControlModeControl,
		DeviceID:       126,
		StartupProgram: 39,
		TriggerNote:    127,
		KnobMode:       KnobModeRelative,
	}
	data := g.Data()
	require.Len(t, data, GlobalDataSize)

	var got GlobalSettings
	require.NoError(t, got.SetData(data))
	assert.Equal(t, g, got)

	assert.ErrorIs(t, got.SetData(data[:5]), ErrInvalidLength)
}
