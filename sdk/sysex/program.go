package sysex

import "fmt"

// ProgramDataSize is the number of parameter bytes in one program record.
const ProgramDataSize = 29

// Program is one patch: 29 one-byte parameters plus local bookkeeping.
// Name and ReadOnly never travel on the wire; Number does only in
// standalone dumps, inside an all dump the slot position carries it.
type Program struct {
	Number   byte   `json:"number"`
	Name     string `json:"name,omitempty"`
	ReadOnly bool   `json:"readOnly,omitempty"`

	FilterAttack    byte `json:"filterAttack"`
	FilterDecay     byte `json:"filterDecay"`
	FilterSustain   byte `json:"filterSustain"`
	FilterRelease   byte `json:"filterRelease"`
	AmpAttack       byte `json:"ampAttack"`
	AmpDecay        byte `json:"ampDecay"`
	AmpSustain      byte `json:"ampSustain"`
	AmpRelease      byte `json:"ampRelease"`
	FilterEnvAmount byte `json:"filterEnvAmount"`
	AmpEnvAmount    byte `json:"ampEnvAmount"`
	LFOSpeed        byte `json:"lfoSpeed"`
	LFOShape        byte `json:"lfoShape"`
	LFOModAmount    byte `json:"lfoModAmount"`
	LFOModSource    byte `json:"lfoModSource"`
	Mod1Amount      byte `json:"mod1Amount"`
	Mod2Amount      byte `json:"mod2Amount"`
	Mod3Amount      byte `json:"mod3Amount"`
	Mod4Amount      byte `json:"mod4Amount"`
	Mod1Source      byte `json:"mod1Source"`
	Mod2Source      byte `json:"mod2Source"`
	Mod3Source      byte `json:"mod3Source"`
	Mod4Source      byte `json:"mod4Source"`
	Cutoff          byte `json:"cutoff"`
	Resonance       byte `json:"resonance"`
	Volume          byte `json:"volume"`
	Panning         byte `json:"panning"`
	GateTime        byte `json:"gateTime"`
	TriggerSource   byte `json:"triggerSource"`
	TriggerMode     byte `json:"triggerMode"`
}

// parameters lists every parameter slot in wire order. The whole layout
// lives in this one table so offsets stay auditable.
func (p *Program) parameters() [ProgramDataSize]*byte {
	return [ProgramDataSize]*byte{
		&p.FilterAttack, &p.FilterDecay, &p.FilterSustain, &p.FilterRelease,
		&p.AmpAttack, &p.AmpDecay, &p.AmpSustain, &p.AmpRelease,
		&p.FilterEnvAmount, &p.AmpEnvAmount,
		&p.LFOSpeed, &p.LFOShape, &p.LFOModAmount, &p.LFOModSource,
		&p.Mod1Amount, &p.Mod2Amount, &p.Mod3Amount, &p.Mod4Amount,
		&p.Mod1Source, &p.Mod2Source, &p.Mod3Source, &p.Mod4Source,
		&p.Cutoff, &p.Resonance, &p.Volume, &p.Panning,
		&p.GateTime, &p.TriggerSource, &p.TriggerMode,
	}
}

// Data returns the 29 parameter bytes in wire order.
func (p *Program) Data() []byte {
	out := make([]byte, ProgramDataSize)
	for i, ptr := range p.parameters() {
		out[i] = *ptr
	}
	return out
}

// SetData fills the parameters from a 29-byte block. Out-of-range values
// are kept as received; the wire format does not self-validate ranges.
func (p *Program) SetData(data []byte) error {
	if len(data) != ProgramDataSize {
		return fmt.Errorf("%w: parameter block is %d bytes, want %d", ErrInvalidLength, len(data), ProgramDataSize)
	}
	for i, ptr := range p.parameters() {
		*ptr = data[i]
	}
	return nil
}

// EqualParameters reports whether two programs hold the same parameter
// bytes, ignoring number, name, and the read-only flag.
func (p Program) EqualParameters(o Program) bool {
	a, b := p.parameters(), o.parameters()
	for i := range a {
		if *a[i] != *b[i] {
			return false
		}
	}
	return true
}

// Clamp forces every parameter into its legal range. Decoding never clamps;
// editors call this before presenting values.
func (p *Program) Clamp() {
	ptrs := p.parameters()
	for _, par := range Params {
		v := *ptrs[par.Offset]
		if v < par.Min {
			*ptrs[par.Offset] = par.Min
		} else if v > par.Max {
			*ptrs[par.Offset] = par.Max
		}
	}
}

// DecodeProgram decodes a standalone 37-byte program dump. The edit-buffer
// dump and the bulk dump share the layout.
func DecodeProgram(data []byte) (Program, error) {
	msg, err := Parse(data)
	if err != nil {
		return Program{}, err
	}
	if msg.Command != CmdProgramDump && msg.Command != CmdProgramBulkDump {
		return Program{}, fmt.Errorf("%w: 0x%02X is not a program dump", ErrInvalidCommand, msg.Command)
	}
	if len(data) != ProgramDumpSize {
		return Program{}, fmt.Errorf("%w: program dump is %d bytes, want %d", ErrInvalidLength, len(data), ProgramDumpSize)
	}

	p := Program{Number: data[HeaderSize]}
	if err := p.SetData(data[HeaderSize+1 : HeaderSize+1+ProgramDataSize]); err != nil {
		return Program{}, err
	}
	return p, nil
}

// Encode serializes the program as a standalone edit-buffer dump addressed
// to the given device ID.
func (p *Program) Encode(deviceID byte) []byte {
	return p.encode(deviceID, CmdProgramDump)
}

// EncodeBulk serializes the program as a bulk dump, which the device
// writes into the program's RAM slot instead of the edit buffer.
func (p *Program) EncodeBulk(deviceID byte) []byte {
	return p.encode(deviceID, CmdProgramBulkDump)
}

func (p *Program) encode(deviceID, command byte) []byte {
	out := make([]byte, 0, ProgramDumpSize)
	out = append(out, Start, ManufacturerID, MachineID, deviceID, command)
	out = append(out, p.Number)
	out = append(out, p.Data()...)
	out = append(out, Checksum(out[HeaderSize:]))
	return append(out, End)
}

// Param describes one editable parameter: its wire offset within the
// 29-byte parameter block and its legal value range.
type Param struct {
	Name   string
	Offset int
	Min    byte
	Max    byte
}

// Params lists all 29 parameters in wire order.
var Params = []Param{
	{"filter attack", 0, 0, 127},
	{"filter decay", 1, 0, 127},
	{"filter sustain", 2, 0, 127},
	{"filter release", 3, 0, 127},
	{"amp attack", 4, 0, 127},
	{"amp decay", 5, 0, 127},
	{"amp sustain", 6, 0, 127},
	{"amp release", 7, 0, 127},
	{"filter env amount", 8, 0, 127},
	{"amp env amount", 9, 0, 127},
	{"lfo speed", 10, 0, 127},
	{"lfo shape", 11, 1, 4},
	{"lfo mod amount", 12, 0, 127},
	{"lfo mod source", 13, 1, 15},
	{"mod 1 amount", 14, 0, 127},
	{"mod 2 amount", 15, 0, 127},
	{"mod 3 amount", 16, 0, 127},
	{"mod 4 amount", 17, 0, 127},
	{"mod 1 source", 18, 1, 15},
	{"mod 2 source", 19, 1, 15},
	{"mod 3 source", 20, 1, 15},
	{"mod 4 source", 21, 1, 15},
	{"cutoff", 22, 0, 127},
	{"resonance", 23, 0, 127},
	{"volume", 24, 0, 127},
	{"panning", 25, 0, 127},
	{"gate time", 26, 0, 127},
	{"trigger source", 27, 0, 2},
	{"trigger mode", 28, 0, 1},
}

// ParamByName maps parameter names to their descriptors.
var ParamByName = make(map[string]Param, len(Params))

func init() {
	for _, p := range Params {
		ParamByName[p.Name] = p
	}
}
