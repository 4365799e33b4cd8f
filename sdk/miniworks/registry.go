package miniworks

import (
	"fmt"
	"sync"

	"github.com/fourpole/miniworks/sdk/contracts"
	"github.com/fourpole/miniworks/sdk/sysex"
)

// Stream buffer capacities. SysEx, note, and control streams favor
// freshness and drop their oldest buffered item once full; program-change
// streams favor the first-seen change and drop the newest arrival instead.
const (
	streamBufferSize        = 5
	programChangeBufferSize = 3
)

// category indexes a connection's channel-voice subscriber lists.
type category int

const (
	categoryNote category = iota
	categoryControlChange
	categoryProgramChange
)

// connection tracks one registered device: its transport endpoints, the
// SysEx accumulator feeding the classifier, and the per-category
// subscriber lists.
type connection struct {
	device     string
	source     contracts.SourceConn
	dest       contracts.DestinationConn
	classifier *classifier

	// implicit marks connections registered by a subscribe call rather
	// than Connect; they are reaped when their last subscriber ends.
	implicit bool

	sysexSubs   []*SysExStream
	noteSubs    []*EventStream
	controlSubs []*EventStream
	programSubs []*EventStream
}

func (conn *connection) subscriberCount() int {
	return len(conn.sysexSubs) + len(conn.noteSubs) + len(conn.controlSubs) + len(conn.programSubs)
}

// SysExStream delivers classified SysEx messages to one consumer.
type SysExStream struct {
	client *Client
	device string
	ch     chan sysex.Message
	done   bool
	once   sync.Once
}

// Events returns the receive channel. It is closed once the stream ends.
func (s *SysExStream) Events() <-chan sysex.Message {
	return s.ch
}

// Close terminates the subscription. Deregistration happens asynchronously
// and never blocks dispatch; other subscribers and the connection itself
// are unaffected.
func (s *SysExStream) Close() {
	s.once.Do(func() {
		go s.client.removeSysExStream(s)
	})
}

// EventStream delivers channel-voice events of one category to one
// consumer.
type EventStream struct {
	client   *Client
	device   string
	category category
	ch       chan contracts.ChannelEvent
	done     bool
	once     sync.Once
}

// Events returns the receive channel. It is closed once the stream ends.
func (s *EventStream) Events() <-chan contracts.ChannelEvent {
	return s.ch
}

// Close terminates the subscription. Deregistration happens asynchronously
// and never blocks dispatch.
func (s *EventStream) Close() {
	s.once.Do(func() {
		go s.client.removeEventStream(s)
	})
}

// SubscribeSysEx opens a SysEx stream for a source device. Subscribing to
// an unregistered source registers an input-only connection first.
func (c *Client) SubscribeSysEx(source string) (*SysExStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureSourceLocked(source)
	if err != nil {
		return nil, err
	}
	s := &SysExStream{client: c, device: source, ch: make(chan sysex.Message, streamBufferSize)}
	conn.sysexSubs = append(conn.sysexSubs, s)
	return s, nil
}

// SubscribeNotes opens a stream of note on and note off events.
func (c *Client) SubscribeNotes(source string) (*EventStream, error) {
	return c.subscribeEvents(source, categoryNote, streamBufferSize)
}

// SubscribeControlChanges opens a stream of controller change events.
func (c *Client) SubscribeControlChanges(source string) (*EventStream, error) {
	return c.subscribeEvents(source, categoryControlChange, streamBufferSize)
}

// SubscribeProgramChanges opens a stream of program change events.
func (c *Client) SubscribeProgramChanges(source string) (*EventStream, error) {
	return c.subscribeEvents(source, categoryProgramChange, programChangeBufferSize)
}

func (c *Client) subscribeEvents(source string, cat category, size int) (*EventStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureSourceLocked(source)
	if err != nil {
		return nil, err
	}
	s := &EventStream{client: c, device: source, category: cat, ch: make(chan contracts.ChannelEvent, size)}
	switch cat {
	case categoryNote:
		conn.noteSubs = append(conn.noteSubs, s)
	case categoryControlChange:
		conn.controlSubs = append(conn.controlSubs, s)
	case categoryProgramChange:
		conn.programSubs = append(conn.programSubs, s)
	}
	return s, nil
}

// ensureSourceLocked returns the connection for a source, registering an
// implicit input-only connection when none exists. Callers hold c.mu.
func (c *Client) ensureSourceLocked(source string) (*connection, error) {
	if source == "" {
		return nil, ErrNoEndpoints
	}
	if conn, ok := c.conns[source]; ok {
		if conn.source == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoSource, source)
		}
		return conn, nil
	}

	srcConn, err := c.transport.OpenSource(source, func(pkt contracts.RawPacket) {
		c.handlePacket(source, pkt)
	})
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", source, err)
	}
	conn := &connection{
		device:     source,
		source:     srcConn,
		classifier: newClassifier(c.logger),
		implicit:   true,
	}
	c.conns[source] = conn
	c.logger.Debug("implicit connection registered",
		c.logger.Field().String("device", source))
	return conn, nil
}

// removeSysExStream deregisters a SysEx subscriber after its consumer
// closed the stream.
func (c *Client) removeSysExStream(s *SysExStream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn := c.conns[s.device]
	if conn != nil {
		for i, sub := range conn.sysexSubs {
			if sub == s {
				conn.sysexSubs = append(conn.sysexSubs[:i], conn.sysexSubs[i+1:]...)
				break
			}
		}
	}
	c.finishSysExLocked(s)
	if conn != nil {
		c.reapLocked(conn)
	}
}

// removeEventStream deregisters a channel-voice subscriber after its
// consumer closed the stream.
func (c *Client) removeEventStream(s *EventStream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn := c.conns[s.device]
	if conn != nil {
		var list *[]*EventStream
		switch s.category {
		case categoryNote:
			list = &conn.noteSubs
		case categoryControlChange:
			list = &conn.controlSubs
		case categoryProgramChange:
			list = &conn.programSubs
		}
		for i, sub := range *list {
			if sub == s {
				*list = append((*list)[:i], (*list)[i+1:]...)
				break
			}
		}
	}
	c.finishEventLocked(s)
	if conn != nil {
		c.reapLocked(conn)
	}
}

// finishSysExLocked closes a stream channel exactly once. Callers hold
// c.mu.
func (c *Client) finishSysExLocked(s *SysExStream) {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}

func (c *Client) finishEventLocked(s *EventStream) {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}

// reapLocked unregisters an implicitly created connection once its last
// subscriber is gone. Explicitly connected devices stay registered until
// Disconnect; they may exist only to be send targets. Callers hold c.mu.
func (c *Client) reapLocked(conn *connection) {
	if !conn.implicit || conn.dest != nil || conn.subscriberCount() > 0 {
		return
	}
	if conn.source != nil {
		conn.source.Disconnect()
		conn.source = nil
	}
	delete(c.conns, conn.device)
	c.logger.Debug("idle connection removed",
		c.logger.Field().String("device", conn.device))
}

// handlePacket classifies one transport delivery. The single client mutex
// serializes packet handling with registry mutation, so accumulator state
// is never observed mid-update.
func (c *Client) handlePacket(device string, pkt contracts.RawPacket) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[device]
	if !ok {
		return
	}
	conn.classifier.classify(pkt, c)
}

// channelEvent fans a classified channel-voice event out to the matching
// category's subscribers on every registered connection. Callers hold
// c.mu.
func (c *Client) channelEvent(ev contracts.ChannelEvent) {
	if !c.filter.Allows(ev.Kind) {
		return
	}
	for _, conn := range c.conns {
		switch ev.Kind {
		case contracts.NoteOn, contracts.NoteOff:
			for _, s := range conn.noteSubs {
				offerFresh(s.ch, ev, c.logger)
			}
		case contracts.ControlChange:
			for _, s := range conn.controlSubs {
				offerFresh(s.ch, ev, c.logger)
			}
		case contracts.ProgramChange:
			for _, s := range conn.programSubs {
				offerFirst(s.ch, ev, c.logger)
			}
		}
	}
}

// sysexFrame validates a completed frame and fans the message out to the
// SysEx subscribers of every registered connection, not only the
// originating device's. Frames that fail validation are transport noise
// and are dropped with a diagnostic. Callers hold c.mu.
func (c *Client) sysexFrame(frame []byte) {
	msg, err := sysex.Parse(frame)
	if err != nil {
		c.logger.Debug("discarding SysEx frame",
			c.logger.Field().Int("size", len(frame)),
			c.logger.Field().Error("error", err))
		return
	}
	c.logger.Debug("SysEx message classified",
		c.logger.Field().String("type", msg.String()),
		c.logger.Field().Uint8("deviceID", msg.DeviceID))

	for _, conn := range c.conns {
		for _, s := range conn.sysexSubs {
			offerFreshSysEx(s.ch, msg, c.logger)
		}
	}
}

// offerFresh pushes onto a freshness-biased stream: when the buffer is
// full, the oldest buffered event makes room for the new one. Dispatch
// never blocks.
func offerFresh(ch chan contracts.ChannelEvent, ev contracts.ChannelEvent, log contracts.Logger) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
		log.Debug("stream full; oldest event dropped")
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

// offerFreshSysEx is offerFresh for SysEx message channels.
func offerFreshSysEx(ch chan sysex.Message, msg sysex.Message, log contracts.Logger) {
	select {
	case ch <- msg:
		return
	default:
	}
	select {
	case <-ch:
		log.Debug("SysEx stream full; oldest message dropped")
	default:
	}
	select {
	case ch <- msg:
	default:
	}
}

// offerFirst pushes onto an arrival-biased stream: when the buffer is
// full, the newest event is the one discarded.
func offerFirst(ch chan contracts.ChannelEvent, ev contracts.ChannelEvent, log contracts.Logger) {
	select {
	case ch <- ev:
	default:
		log.Warn("program change stream full; event discarded")
	}
}
