package sysex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProgram() Program {
	return Program{
		Number:          2,
		FilterAttack:    10,
		FilterDecay:     20,
		FilterSustain:   90,
		FilterRelease:   30,
		AmpAttack:       5,
		AmpDecay:        40,
		AmpSustain:      100,
		AmpRelease:      25,
		FilterEnvAmount: 64,
		AmpEnvAmount:    70,
		LFOSpeed:        33,
		LFOShape:        2,
		LFOModAmount:    15,
		LFOModSource:    3,
		Mod1Amount:      1,
		Mod2Amount:      2,
		Mod3Amount:      3,
		Mod4Amount:      4,
		Mod1Source:      5,
		Mod2Source:      6,
		Mod3Source:      7,
		Mod4Source:      8,
		Cutoff:          110,
		Resonance:       55,
		Volume:          99,
		Panning:         63,
		GateTime:        12,
		TriggerSource:   1,
		TriggerMode:     1,
	}
}

func TestParseProgramDump(t *testing.T) {
	p := testProgram()
	raw := p.Encode(9)
	require.Len(t, raw, ProgramDumpSize)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, CmdProgramDump, msg.Command)
	assert.Equal(t, byte(9), msg.DeviceID)
	assert.Equal(t, raw, msg.Raw)
	assert.False(t, msg.IsRequest())
	assert.Equal(t, "program dump", msg.String())
}

func TestParseValidationOrder(t *testing.T) {
	base := testProgram().Encode(0)

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr error
	}{
		{
			name:    "too short",
			mutate:  func(b []byte) []byte { return b[:5] },
			wantErr: ErrInvalidLength,
		},
		{
			name: "missing start byte",
			mutate: func(b []byte) []byte {
				b[0] = 0x00
				return b
			},
			wantErr: ErrInvalidStart,
		},
		{
			name: "missing end byte",
			mutate: func(b []byte) []byte {
				b[len(b)-1] = 0x00
				return b
			},
			wantErr: ErrInvalidEnd,
		},
		{
			name: "wrong manufacturer",
			mutate: func(b []byte) []byte {
				b[1] = 0x41
				return b
			},
			wantErr: ErrInvalidManufacturer,
		},
		{
			name: "wrong machine",
			mutate: func(b []byte) []byte {
				b[2] = 0x13
				return b
			},
			wantErr: ErrInvalidMachine,
		},
		{
			name: "unknown command",
			mutate: func(b []byte) []byte {
				b[4] = 0x7F
				return b
			},
			wantErr: ErrInvalidCommand,
		},
		{
			name: "corrupted payload",
			mutate: func(b []byte) []byte {
				b[10] ^= 0x01
				return b
			},
			wantErr: ErrInvalidChecksum,
		},
		{
			name: "corrupted checksum byte",
			mutate: func(b []byte) []byte {
				b[len(b)-2] ^= 0x01
				return b
			},
			wantErr: ErrInvalidChecksum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([]byte, len(base))
			copy(raw, base)
			_, err := Parse(tt.mutate(raw))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    byte
	}{
		{"empty", nil, 0},
		{"small sum", []byte{1, 2, 3}, 6},
		{"wraps at seven bits", []byte{0x40, 0x40}, 0},
		{"wraps past boundary", []byte{0x7F, 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.payload))
		})
	}
}

func TestValidChecksumFlipsOnCorruption(t *testing.T) {
	p := testProgram()
	raw := p.Encode(0)

	msg, err := Parse(raw)
	require.NoError(t, err)
	require.True(t, msg.ValidChecksum())

	// Byte 34 is the last payload byte, one before the checksum slot.
	corrupted := make([]byte, len(raw))
	copy(corrupted, raw)
	corrupted[34] ^= 0x01
	bad := Message{Command: CmdProgramDump, DeviceID: corrupted[3], Raw: corrupted}
	assert.False(t, bad.ValidChecksum())

	corrupted = make([]byte, len(raw))
	copy(corrupted, raw)
	corrupted[35] ^= 0x01
	bad = Message{Command: CmdProgramDump, DeviceID: corrupted[3], Raw: corrupted}
	assert.False(t, bad.ValidChecksum())
}

func TestEncodeProgramDumpRequest(t *testing.T) {
	raw := EncodeProgramDumpRequest(4, 2)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x04, 0x04, 0x40, 0x02, 0xF7}, raw)
	assert.Len(t, raw, ProgramDumpRequestSize)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, CmdProgramDumpRequest, msg.Command)
	assert.Equal(t, byte(4), msg.DeviceID)
	assert.True(t, msg.IsRequest())
	assert.True(t, msg.ValidChecksum())
}

func TestEncodeProgramBulkDumpRequest(t *testing.T) {
	raw := EncodeProgramBulkDumpRequest(0, 17)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x04, 0x00, 0x41, 0x11, 0xF7}, raw)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, CmdProgramBulkDumpRequest, msg.Command)
}

func TestEncodeAllDumpRequest(t *testing.T) {
	raw := EncodeAllDumpRequest(126)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x04, 0x7E, 0x48, 0xF7}, raw)
	assert.Len(t, raw, AllDumpRequestSize)

	msg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, CmdAllDumpRequest, msg.Command)
	assert.Equal(t, byte(126), msg.DeviceID)
}

func TestParseAcceptsAnyDeviceID(t *testing.T) {
	for _, id := range []byte{0, 1, 64, 126} {
		p := testProgram()
		raw := p.Encode(id)
		msg, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, id, msg.DeviceID)
	}
}
