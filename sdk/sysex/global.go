package sysex

import "fmt"

// GlobalDataSize is the number of global setting bytes in an all dump.
const GlobalDataSize = 6

// ControlMode selects how the device responds to incoming MIDI control.
type ControlMode byte

const (
	ControlModeOff ControlMode = iota
	ControlModeControl
	ControlModeSignal
)

func (m ControlMode) String() string {
	switch m {
	case ControlModeOff:
		return "off"
	case ControlModeControl:
		return "control"
	case ControlModeSignal:
		return "signal"
	}
	return fmt.Sprintf("unknown %d", byte(m))
}

// KnobMode selects how front-panel knobs pick up parameter values.
type KnobMode byte

const (
	KnobModeJump KnobMode = iota
	KnobModeRelative
)

func (m KnobMode) String() string {
	switch m {
	case KnobModeJump:
		return "jump"
	case KnobModeRelative:
		return "relative"
	}
	return fmt.Sprintf("unknown %d", byte(m))
}

// GlobalSettings is the device-wide configuration block: exactly six bytes
// on the wire, in field order.
type GlobalSettings struct {
	Channel        byte        `json:"channel"`        // 0 is omni, otherwise 1-16.
	ControlMode    ControlMode `json:"controlMode"`    // Off, control, or signal.
	DeviceID       byte        `json:"deviceID"`       // 0-126.
	StartupProgram byte        `json:"startupProgram"` // 0-39, RAM and ROM banks.
	TriggerNote    byte        `json:"triggerNote"`    // 0-127.
	KnobMode       KnobMode    `json:"knobMode"`       // Jump or relative.
}

// Data returns the six global bytes in wire order.
func (g *GlobalSettings) Data() []byte {
	return []byte{
		g.Channel,
		byte(g.ControlMode),
		g.DeviceID,
		g.StartupProgram,
		g.TriggerNote,
		byte(g.KnobMode),
	}
}

// SetData fills the settings from a six-byte block.
func (g *GlobalSettings) SetData(data []byte) error {
	if len(data) != GlobalDataSize {
		return fmt.Errorf("%w: global block is %d bytes, want %d", ErrInvalidLength, len(data), GlobalDataSize)
	}
	g.Channel = data[0]
	g.ControlMode = ControlMode(data[1])
	g.DeviceID = data[2]
	g.StartupProgram = data[3]
	g.TriggerNote = data[4]
	g.KnobMode = KnobMode(data[5])
	return nil
}
