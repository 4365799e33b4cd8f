package miniworks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fourpole/miniworks/internal/logger"
	"github.com/fourpole/miniworks/sdk/contracts"
)

// recordingSink captures classification results, keeping the order in
// which events and frames were handed over.
type recordingSink struct {
	events []contracts.ChannelEvent
	frames [][]byte
	order  []string
}

func (s *recordingSink) channelEvent(ev contracts.ChannelEvent) {
	s.events = append(s.events, ev)
	s.order = append(s.order, "event")
}

func (s *recordingSink) sysexFrame(frame []byte) {
	s.frames = append(s.frames, frame)
	s.order = append(s.order, "sysex")
}

func packet(data ...byte) contracts.RawPacket {
	return contracts.RawPacket{Timestamp: 42, Data: data}
}

func TestClassifyNoteEvents(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	c.classify(packet(0x92, 60, 100, 0x82, 60, 20), sink)

	require.Len(t, sink.events, 2)
	on, off := sink.events[0], sink.events[1]
	assert.Equal(t, contracts.NoteOn, on.Kind)
	assert.Equal(t, uint8(2), on.Channel)
	assert.Equal(t, uint8(60), on.Note)
	assert.Equal(t, uint8(100), on.Velocity)
	assert.Equal(t, uint64(42), on.Timestamp)
	assert.Equal(t, contracts.NoteOff, off.Kind)
	assert.Equal(t, uint8(20), off.Velocity)
}

func TestClassifyNoteOnVelocityZeroIsNoteOff(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	c.classify(packet(0x90, 61, 0), sink)

	require.Len(t, sink.events, 1)
	assert.Equal(t, contracts.NoteOff, sink.events[0].Kind)
	assert.Equal(t, uint8(61), sink.events[0].Note)
	assert.Equal(t, uint8(0), sink.events[0].Velocity)
}

func TestClassifyControllerAndProgramEvents(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	c.classify(packet(0xB3, 74, 90, 0xC5, 12, 0xD0, 33, 0xE1, 0x21, 0x40, 0xA0, 60, 45), sink)

	require.Len(t, sink.events, 5)

	cc := sink.events[0]
	assert.Equal(t, contracts.ControlChange, cc.Kind)
	assert.Equal(t, uint8(3), cc.Channel)
	assert.Equal(t, uint8(74), cc.Controller)
	assert.Equal(t, uint8(90), cc.Value)

	pc := sink.events[1]
	assert.Equal(t, contracts.ProgramChange, pc.Kind)
	assert.Equal(t, uint8(5), pc.Channel)
	assert.Equal(t, uint8(12), pc.Program)

	at := sink.events[2]
	assert.Equal(t, contracts.Aftertouch, at.Kind)
	assert.Equal(t, uint8(33), at.Pressure)

	bend := sink.events[3]
	assert.Equal(t, contracts.PitchBend, bend.Kind)
	assert.Equal(t, uint16(0x21|0x40<<7), bend.Bend)

	poly := sink.events[4]
	assert.Equal(t, contracts.PolyAftertouch, poly.Kind)
	assert.Equal(t, uint8(60), poly.Note)
	assert.Equal(t, uint8(45), poly.Pressure)
}

func TestClassifySysExAcrossPackets(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	frame := []byte{0xF0, 0x3E, 0x04, 0x00, 0x40, 0x02, 0xF7}
	c.classify(packet(frame[:2]...), sink)
	assert.Empty(t, sink.frames)
	c.classify(packet(frame[2:5]...), sink)
	assert.Empty(t, sink.frames)
	c.classify(packet(frame[5:]...), sink)

	require.Len(t, sink.frames, 1)
	assert.Equal(t, frame, sink.frames[0])
	assert.Empty(t, sink.events)
}

func TestClassifyTwoFramesInOnePacket(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	c.classify(packet(0xF0, 0x01, 0xF7, 0xF0, 0x02, 0xF7), sink)

	require.Len(t, sink.frames, 2)
	assert.Equal(t, []byte{0xF0, 0x01, 0xF7}, sink.frames[0])
	assert.Equal(t, []byte{0xF0, 0x02, 0xF7}, sink.frames[1])
}

func TestClassifyInterleavedVoiceAndSysEx(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	c.classify(packet(0xB0, 74, 1, 0xF0, 0x3E, 0x04), sink)
	c.classify(packet(0x00, 0x48, 0xF7, 0x90, 60, 100), sink)

	assert.Equal(t, []string{"event", "sysex", "event"}, sink.order)
	require.Len(t, sink.frames, 1)
	assert.Equal(t, []byte{0xF0, 0x3E, 0x04, 0x00, 0x48, 0xF7}, sink.frames[0])
	require.Len(t, sink.events, 2)
	assert.Equal(t, contracts.ControlChange, sink.events[0].Kind)
	assert.Equal(t, contracts.NoteOn, sink.events[1].Kind)
}

func TestClassifyStatusBytesInsideFrameAreData(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	// 0x90 inside an open frame belongs to the frame, not to a note.
	c.classify(packet(0xF0, 0x90, 0x60, 0xF7), sink)

	require.Len(t, sink.frames, 1)
	assert.Equal(t, []byte{0xF0, 0x90, 0x60, 0xF7}, sink.frames[0])
	assert.Empty(t, sink.events)
}

func TestClassifyTruncatedVoiceMessageDiscarded(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	// Packet ends one data byte short.
	c.classify(packet(0x90, 60), sink)
	assert.Empty(t, sink.events)

	// The discard does not leak into the next packet.
	c.classify(packet(0x90, 60, 100), sink)
	require.Len(t, sink.events, 1)
	assert.Equal(t, contracts.NoteOn, sink.events[0].Kind)
}

func TestClassifyStatusByteCutsVoiceMessageShort(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	// The second data byte slot holds a status byte, so the note is
	// dropped and scanning resumes after 0x90. The 0x85 then starts a
	// note off that is itself truncated.
	c.classify(packet(0x90, 60, 0x85), sink)
	assert.Empty(t, sink.events)

	// A complete message after the garbage still decodes.
	c.classify(packet(0x90, 60, 0xB0, 7, 99), sink)
	require.Len(t, sink.events, 1)
	assert.Equal(t, contracts.ControlChange, sink.events[0].Kind)
}

func TestClassifyStrayDataSkipped(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	c.classify(packet(0x01, 0x7F, 0x90, 60, 100), sink)

	require.Len(t, sink.events, 1)
	assert.Equal(t, contracts.NoteOn, sink.events[0].Kind)
}

func TestClassifyUnknownStatusSkipped(t *testing.T) {
	c := newClassifier(logger.NewNopLogger())
	sink := &recordingSink{}

	// Realtime and system-common statuses are not classified; scanning
	// continues behind them.
	c.classify(packet(0xF8, 0xFE, 0x90, 60, 100), sink)

	require.Len(t, sink.events, 1)
	assert.Equal(t, contracts.NoteOn, sink.events[0].Kind)
	assert.Empty(t, sink.frames)
}
