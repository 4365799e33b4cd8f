package sysex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramRoundTrip(t *testing.T) {
	p := testProgram()
	p.Name = "bass sweep"
	p.ReadOnly = true

	raw := p.Encode(3)
	require.Len(t, raw, ProgramDumpSize)

	got, err := DecodeProgram(raw)
	require.NoError(t, err)
	assert.True(t, p.EqualParameters(got))
	assert.Equal(t, p.Number, got.Number)

	// Name and read-only are local bookkeeping, never on the wire.
	assert.Empty(t, got.Name)
	assert.False(t, got.ReadOnly)
}

func TestProgramBulkRoundTrip(t *testing.T) {
	p := testProgram()
	raw := p.EncodeBulk(0)
	require.Len(t, raw, ProgramDumpSize)
	assert.Equal(t, CmdProgramBulkDump, raw[4])

	got, err := DecodeProgram(raw)
	require.NoError(t, err)
	assert.True(t, p.EqualParameters(got))
}

func TestProgramEncodeLayout(t *testing.T) {
	p := testProgram()
	raw := p.Encode(5)

	assert.Equal(t, byte(0xF0), raw[0])
	assert.Equal(t, byte(ManufacturerID), raw[1])
	assert.Equal(t, byte(MachineID), raw[2])
	assert.Equal(t, byte(5), raw[3])
	assert.Equal(t, CmdProgramDump, raw[4])
	assert.Equal(t, p.Number, raw[5])
	assert.Equal(t, byte(0xF7), raw[len(raw)-1])

	// The parameter block starts right after the program number.
	data := p.Data()
	for _, par := range Params {
		assert.Equal(t, data[par.Offset], raw[HeaderSize+1+par.Offset], par.Name)
	}

	payload := raw[HeaderSize : len(raw)-2]
	assert.Equal(t, Checksum(payload), raw[len(raw)-2])
}

func TestDecodeProgramWrongLength(t *testing.T) {
	// A frame one parameter short, with a checksum that still adds up, gets
	// past Parse and must fail the exact-size check.
	body := make([]byte, 0, ProgramDumpSize-1)
	body = append(body, Start, ManufacturerID, MachineID, 0, CmdProgramDump)
	body = append(body, 1)
	for i := 0; i < ProgramDataSize-1; i++ {
		body = append(body, byte(i))
	}
	body = append(body, Checksum(body[HeaderSize:]))
	body = append(body, End)

	_, err := DecodeProgram(body)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeProgramRejectsOtherCommands(t *testing.T) {
	raw := EncodeAllDumpRequest(0)
	_, err := DecodeProgram(raw)
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestProgramSetDataSize(t *testing.T) {
	var p Program
	assert.ErrorIs(t, p.SetData(make([]byte, 28)), ErrInvalidLength)
	assert.ErrorIs(t, p.SetData(make([]byte, 30)), ErrInvalidLength)
	assert.NoError(t, p.SetData(make([]byte, 29)))
}

func TestProgramKeepsOutOfRangeValues(t *testing.T) {
	data := make([]byte, ProgramDataSize)
	data[ParamByName["lfo shape"].Offset] = 9
	data[ParamByName["trigger mode"].Offset] = 7

	var p Program
	require.NoError(t, p.SetData(data))
	assert.Equal(t, byte(9), p.LFOShape)
	assert.Equal(t, byte(7), p.TriggerMode)
}

func TestProgramClamp(t *testing.T) {
	p := Program{LFOShape: 0, Mod1Source: 0, TriggerMode: 7, TriggerSource: 9, Cutoff: 127}
	p.Clamp()

	assert.Equal(t, byte(1), p.LFOShape)
	assert.Equal(t, byte(1), p.Mod1Source)
	assert.Equal(t, byte(1), p.TriggerMode)
	assert.Equal(t, byte(2), p.TriggerSource)
	assert.Equal(t, byte(127), p.Cutoff)
}

func TestEqualParameters(t *testing.T) {
	a := testProgram()
	b := a
	b.Number = 19
	b.Name = "renamed"
	b.ReadOnly = true
	assert.True(t, a.EqualParameters(b))

	b.Cutoff++
	assert.False(t, a.EqualParameters(b))
}

func TestParamsTable(t *testing.T) {
	require.Len(t, Params, ProgramDataSize)

	seen := make(map[int]bool)
	for _, par := range Params {
		assert.False(t, seen[par.Offset], "duplicate offset %d", par.Offset)
		seen[par.Offset] = true
		assert.GreaterOrEqual(t, par.Offset, 0)
		assert.Less(t, par.Offset, ProgramDataSize)
		assert.LessOrEqual(t, par.Min, par.Max, par.Name)
	}

	assert.Equal(t, 22, ParamByName["cutoff"].Offset)
	assert.Equal(t, byte(4), ParamByName["lfo shape"].Max)
	assert.Equal(t, byte(15), ParamByName["mod 3 source"].Max)
}
