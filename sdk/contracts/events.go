package contracts

import "fmt"

// EventKind identifies a channel-voice message type. Values match the MIDI
// status nibble.
type EventKind byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff EventKind = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn EventKind = 0x90
	// PolyAftertouch is the MIDI command for polyphonic key pressure (0xA0).
	PolyAftertouch EventKind = 0xA0
	// ControlChange is the MIDI command for a controller change (0xB0).
	ControlChange EventKind = 0xB0
	// ProgramChange is the MIDI command for a program change (0xC0).
	ProgramChange EventKind = 0xC0
	// Aftertouch is the MIDI command for channel pressure (0xD0).
	Aftertouch EventKind = 0xD0
	// PitchBend is the MIDI command for a pitch bend (0xE0).
	PitchBend EventKind = 0xE0
)

func (k EventKind) String() string {
	switch k {
	case NoteOff:
		return "note off"
	case NoteOn:
		return "note on"
	case PolyAftertouch:
		return "poly aftertouch"
	case ControlChange:
		return "control change"
	case ProgramChange:
		return "program change"
	case Aftertouch:
		return "aftertouch"
	case PitchBend:
		return "pitch bend"
	}
	return fmt.Sprintf("unknown 0x%02X", byte(k))
}

// ChannelEvent is one decoded channel-voice message. Only the fields that
// belong to the event kind are set.
type ChannelEvent struct {
	Kind       EventKind
	Timestamp  uint64 // Arrival time of the carrying packet, nanoseconds.
	Channel    uint8  // MIDI channel 0-15.
	Note       uint8  // NoteOn, NoteOff, PolyAftertouch.
	Velocity   uint8  // NoteOn, NoteOff.
	Controller uint8  // ControlChange.
	Value      uint8  // ControlChange.
	Program    uint8  // ProgramChange.
	Pressure   uint8  // Aftertouch, PolyAftertouch.
	Bend       uint16 // PitchBend, 14-bit value 0-16383.
}

// EventFilter restricts which channel-voice kinds are dispatched to
// subscribers.
type EventFilter struct {
	Kinds []EventKind // Kinds to let through.
}

// Allows reports whether the kind passes the filter. A nil filter or an
// empty kind list allows everything.
func (f *EventFilter) Allows(kind EventKind) bool {
	if f == nil || len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
