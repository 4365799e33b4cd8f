package miniworks

import (
	"github.com/fourpole/miniworks/sdk/contracts"
	"github.com/fourpole/miniworks/sdk/sysex"
)

// voiceDataLen maps a channel-voice status nibble to the number of data
// bytes that must follow it.
var voiceDataLen = map[byte]int{
	0x80: 2, // note off
	0x90: 2, // note on
	0xA0: 2, // poly aftertouch
	0xB0: 2, // control change
	0xC0: 1, // program change
	0xD0: 1, // channel aftertouch
	0xE0: 2, // pitch bend
}

// classifierSink receives classification results in scan order.
type classifierSink interface {
	channelEvent(ev contracts.ChannelEvent)
	sysexFrame(frame []byte)
}

// classifier turns raw transport packets into channel-voice events and
// complete SysEx frames. The accumulator is the only state that survives
// between packets: a bulk dump routinely spans many deliveries, so
// accumulation continues across packet boundaries until the terminator
// arrives. Channel-voice messages never cross packet boundaries; a
// truncated one is discarded.
type classifier struct {
	logger contracts.Logger
	sysex  []byte
}

func newClassifier(log contracts.Logger) *classifier {
	return &classifier{logger: log}
}

// classify scans one packet left to right, forwarding every completed
// event to the sink. Anomalies are discarded with a diagnostic and the
// scan continues; nothing is fatal.
func (c *classifier) classify(pkt contracts.RawPacket, sink classifierSink) {
	data := pkt.Data
	i := 0
	for i < len(data) {
		if c.sysex != nil {
			// Accumulating: every byte belongs to the frame, whatever
			// its value, until the terminator shows up.
			b := data[i]
			c.sysex = append(c.sysex, b)
			i++
			if b == sysex.End {
				frame := c.sysex
				c.sysex = nil
				sink.sysexFrame(frame)
			}
			continue
		}

		b := data[i]
		switch {
		case b == sysex.Start:
			c.sysex = []byte{b}
			i++
		case b >= 0x80 && b <= 0xEF:
			i = c.voiceMessage(data, i, pkt.Timestamp, sink)
		case b >= 0xF0:
			c.logger.Debug("unrecognized status byte skipped",
				c.logger.Field().Uint8("status", b))
			i++
		default:
			c.logger.Debug("stray data byte skipped",
				c.logger.Field().Uint8("value", b))
			i++
		}
	}
}

// voiceMessage decodes one channel-voice message starting at index i. The
// required data bytes must sit inside the same packet; otherwise the
// message is dropped and scanning resumes right after the status byte.
func (c *classifier) voiceMessage(data []byte, i int, ts uint64, sink classifierSink) int {
	status := data[i]
	need := voiceDataLen[status&0xF0]
	for n := 1; n <= need; n++ {
		if i+n >= len(data) || data[i+n] >= 0x80 {
			c.logger.Warn("truncated channel-voice message discarded",
				c.logger.Field().Uint8("status", status))
			return i + 1
		}
	}

	ev := contracts.ChannelEvent{
		Kind:      contracts.EventKind(status & 0xF0),
		Timestamp: ts,
		Channel:   status & 0x0F,
	}
	var d1, d2 byte
	if need >= 1 {
		d1 = data[i+1]
	}
	if need == 2 {
		d2 = data[i+2]
	}

	switch ev.Kind {
	case contracts.NoteOn:
		if d2 == 0 {
			// Velocity zero means note off.
			ev.Kind = contracts.NoteOff
		}
		ev.Note, ev.Velocity = d1, d2
	case contracts.NoteOff:
		ev.Note, ev.Velocity = d1, d2
	case contracts.PolyAftertouch:
		ev.Note, ev.Pressure = d1, d2
	case contracts.ControlChange:
		ev.Controller, ev.Value = d1, d2
	case contracts.ProgramChange:
		ev.Program = d1
	case contracts.Aftertouch:
		ev.Pressure = d1
	case contracts.PitchBend:
		ev.Bend = uint16(d1) | uint16(d2)<<7
	}

	sink.channelEvent(ev)
	return i + 1 + need
}
