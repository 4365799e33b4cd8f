package sysex

import "fmt"

// ProgramCount is the size of the device's RAM program memory.
const ProgramCount = 20

// AllDump is the complete device memory: twenty programs in slot order plus
// the global settings. The program count is fixed; a dump with any other
// count is a decode failure, never a partial result.
type AllDump struct {
	Programs [ProgramCount]Program `json:"programs"`
	Global   GlobalSettings        `json:"global"`
}

// DecodeAllDump decodes a complete 593-byte memory dump. The program region
// carries no per-slot number bytes; slot order is positional, so numbers
// are filled 1 through 20.
func DecodeAllDump(data []byte) (AllDump, error) {
	msg, err := Parse(data)
	if err != nil {
		return AllDump{}, err
	}
	if msg.Command != CmdAllDump {
		return AllDump{}, fmt.Errorf("%w: 0x%02X is not an all dump", ErrInvalidCommand, msg.Command)
	}
	if len(data) != AllDumpSize {
		return AllDump{}, fmt.Errorf("%w: all dump is %d bytes, want %d", ErrInvalidLength, len(data), AllDumpSize)
	}

	var dump AllDump
	offset := HeaderSize
	for i := 0; i < ProgramCount; i++ {
		p := Program{Number: byte(i + 1)}
		if err := p.SetData(data[offset : offset+ProgramDataSize]); err != nil {
			return AllDump{}, err
		}
		dump.Programs[i] = p
		offset += ProgramDataSize
	}
	if err := dump.Global.SetData(data[offset : offset+GlobalDataSize]); err != nil {
		return AllDump{}, err
	}
	return dump, nil
}

// Encode serializes the full memory dump addressed to the given device ID.
// Slot bookkeeping (number, name, read-only) is not part of the wire
// format and is dropped.
func (a *AllDump) Encode(deviceID byte) []byte {
	out := make([]byte, 0, AllDumpSize)
	out = append(out, Start, ManufacturerID, MachineID, deviceID, CmdAllDump)
	for i := range a.Programs {
		out = append(out, a.Programs[i].Data()...)
	}
	out = append(out, a.Global.Data()...)
	out = append(out, Checksum(out[HeaderSize:]))
	return append(out, End)
}
