// Package sysex implements the System-Exclusive protocol of the Waldorf
// MiniWorks 4-Pole filter: frame validation, message classification, the
// 7-bit checksum, and the binary program and all-dump record layouts.
package sysex

import (
	"errors"
	"fmt"
)

// Framing and header constants.
const (
	Start          = 0xF0 // SysEx start byte
	End            = 0xF7 // SysEx end byte
	ManufacturerID = 0x3E // Waldorf Electronics
	MachineID      = 0x04 // MiniWorks 4-Pole
)

// Command bytes, header byte 4.
const (
	CmdProgramDump            byte = 0x00
	CmdProgramBulkDump        byte = 0x01
	CmdAllDump                byte = 0x08
	CmdProgramDumpRequest     byte = 0x40
	CmdProgramBulkDumpRequest byte = 0x41
	CmdAllDumpRequest         byte = 0x48
)

// Fixed message sizes in bytes.
const (
	HeaderSize             = 5   // F0, manufacturer, machine, device, command
	ProgramDumpSize        = 37  // header + number + parameters + checksum + F7
	AllDumpSize            = 593 // header + 20 parameter blocks + globals + checksum + F7
	ProgramDumpRequestSize = 7
	AllDumpRequestSize     = 6
	minMessageSize         = 6
)

// Decode errors. Parse reports the first failing validation check; decoding
// is all or nothing, a failed message yields no partial result.
var (
	ErrInvalidLength       = errors.New("sysex: invalid message length")
	ErrInvalidStart        = errors.New("sysex: message does not start with F0")
	ErrInvalidEnd          = errors.New("sysex: message does not end with F7")
	ErrInvalidManufacturer = errors.New("sysex: unknown manufacturer ID")
	ErrInvalidMachine      = errors.New("sysex: unknown machine ID")
	ErrInvalidCommand      = errors.New("sysex: unknown command byte")
	ErrInvalidChecksum     = errors.New("sysex: checksum mismatch")
)

var commandNames = map[byte]string{
	CmdProgramDump:            "program dump",
	CmdProgramBulkDump:        "program bulk dump",
	CmdAllDump:                "all dump",
	CmdProgramDumpRequest:     "program dump request",
	CmdProgramBulkDumpRequest: "program bulk dump request",
	CmdAllDumpRequest:         "all dump request",
}

// Message is one classified SysEx frame. The command byte is the tag; Raw
// holds the complete frame including the F0/F7 framing, decoded lazily via
// Program or AllDump.
type Message struct {
	Command  byte   // One of the Cmd constants.
	DeviceID byte   // Header byte 3, carried through without validation.
	Raw      []byte // The complete frame.
}

// Parse classifies a complete SysEx frame. Checks run in a fixed order and
// the first failure wins: length, F0, F7, manufacturer, machine, command,
// checksum. Byte 3 (device ID) is accepted as-is; addressing by device ID
// is left to the caller.
func Parse(data []byte) (Message, error) {
	if len(data) < minMessageSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(data))
	}
	if data[0] != Start {
		return Message{}, fmt.Errorf("%w: starts with 0x%02X", ErrInvalidStart, data[0])
	}
	if data[len(data)-1] != End {
		return Message{}, fmt.Errorf("%w: ends with 0x%02X", ErrInvalidEnd, data[len(data)-1])
	}
	if data[1] != ManufacturerID {
		return Message{}, fmt.Errorf("%w: 0x%02X", ErrInvalidManufacturer, data[1])
	}
	if data[2] != MachineID {
		return Message{}, fmt.Errorf("%w: 0x%02X", ErrInvalidMachine, data[2])
	}
	if _, known := commandNames[data[4]]; !known {
		return Message{}, fmt.Errorf("%w: 0x%02X", ErrInvalidCommand, data[4])
	}

	msg := Message{Command: data[4], DeviceID: data[3], Raw: data}
	if !msg.ValidChecksum() {
		return Message{}, fmt.Errorf("%w: stored 0x%02X", ErrInvalidChecksum, data[len(data)-2])
	}
	return msg, nil
}

// Checksum computes the 7-bit checksum of a payload: the byte sum truncated
// to the low seven bits, which keeps the result MIDI data legal.
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum = (sum + b) & 0x7F
	}
	return sum
}

// IsRequest reports whether the message is a dump request. Requests carry
// no payload body and no checksum.
func (m Message) IsRequest() bool {
	return m.Command&0x40 != 0
}

// ValidChecksum recomputes the checksum over the bytes between the header
// and the checksum slot and compares it with the stored byte. Requests
// always validate since they carry no checksum.
func (m Message) ValidChecksum() bool {
	if m.IsRequest() {
		return true
	}
	if len(m.Raw) < HeaderSize+2 {
		return false
	}
	return Checksum(m.Raw[HeaderSize:len(m.Raw)-2]) == m.Raw[len(m.Raw)-2]
}

// Program decodes the frame as a single program dump.
func (m Message) Program() (Program, error) {
	return DecodeProgram(m.Raw)
}

// AllDump decodes the frame as a complete memory dump.
func (m Message) AllDump() (AllDump, error) {
	return DecodeAllDump(m.Raw)
}

// String names the message command.
func (m Message) String() string {
	if name, ok := commandNames[m.Command]; ok {
		return name
	}
	return fmt.Sprintf("unknown command 0x%02X", m.Command)
}

// EncodeProgramDumpRequest builds the 7-byte request for one program.
func EncodeProgramDumpRequest(deviceID, program byte) []byte {
	return []byte{Start, ManufacturerID, MachineID, deviceID, CmdProgramDumpRequest, program, End}
}

// EncodeProgramBulkDumpRequest builds the 7-byte bulk request for one
// program slot.
func EncodeProgramBulkDumpRequest(deviceID, program byte) []byte {
	return []byte{Start, ManufacturerID, MachineID, deviceID, CmdProgramBulkDumpRequest, program, End}
}

// EncodeAllDumpRequest builds the 6-byte request for the full memory dump.
func EncodeAllDumpRequest(deviceID byte) []byte {
	return []byte{Start, ManufacturerID, MachineID, deviceID, CmdAllDumpRequest, End}
}
