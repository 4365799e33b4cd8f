// Package miniworks is the control core for the Waldorf MiniWorks 4-Pole.
// A Client owns a MIDI transport, classifies everything the device sends
// into SysEx messages and channel-voice events, and fans those out to
// buffered subscriber streams. Outbound, it builds and sends the dump and
// request messages the unit understands.
package miniworks

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fourpole/miniworks/sdk/contracts"
)

var (
	// ErrNoEndpoints is returned when a connection names neither a source
	// nor a destination.
	ErrNoEndpoints = errors.New("no source or destination given")
	// ErrAlreadyConnected is returned when the device is already registered.
	ErrAlreadyConnected = errors.New("device already connected")
	// ErrNotConnected is returned when the device is not registered.
	ErrNotConnected = errors.New("device not connected")
	// ErrNoSource is returned when a subscription targets a send-only
	// connection.
	ErrNoSource = errors.New("connection has no source")
	// ErrNoDestination is returned when a send targets a receive-only
	// connection.
	ErrNoDestination = errors.New("connection has no destination")
)

// Client connects MiniWorks units to subscriber streams. All registry and
// classifier state is guarded by one mutex; transport callbacks and API
// calls take turns.
type Client struct {
	logger    contracts.Logger
	transport contracts.Transport
	filter    *contracts.EventFilter
	deviceID  byte

	mu    sync.Mutex
	conns map[string]*connection

	stopOnce sync.Once
}

// NewClient creates a control client. Without a WithTransport option the
// platform MIDI driver is opened under the configured client name.
func NewClient(opts ...contracts.Option) (*Client, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	transport := options.Transport
	if transport == nil {
		transport, err = newTransport(&options)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		logger:    options.Logger,
		transport: transport,
		filter:    options.EventFilter,
		deviceID:  options.SysExDeviceID,
		conns:     make(map[string]*connection),
	}, nil
}

// Devices lists the MIDI endpoints the transport can see.
func (c *Client) Devices() ([]contracts.DeviceInfo, error) {
	return c.transport.Devices()
}

// Connect registers a device under the source name, or under the
// destination name for send-only use. Either name may be empty, not both.
// Connecting a source that was implicitly registered by a subscription
// upgrades it in place and keeps its subscribers.
func (c *Client) Connect(source, destination string) error {
	device := source
	if device == "" {
		device = destination
	}
	if device == "" {
		return ErrNoEndpoints
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[device]
	if ok && !conn.implicit {
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, device)
	}
	if !ok {
		conn = &connection{device: device, classifier: newClassifier(c.logger)}
	}

	if source != "" && conn.source == nil {
		srcConn, err := c.transport.OpenSource(source, func(pkt contracts.RawPacket) {
			c.handlePacket(device, pkt)
		})
		if err != nil {
			return fmt.Errorf("open source %q: %w", source, err)
		}
		conn.source = srcConn
	}
	if destination != "" && conn.dest == nil {
		destConn, err := c.transport.OpenDestination(destination)
		if err != nil {
			if !ok && conn.source != nil {
				conn.source.Disconnect()
			}
			return fmt.Errorf("open destination %q: %w", destination, err)
		}
		conn.dest = destConn
	}

	conn.implicit = false
	c.conns[device] = conn
	c.logger.Info("device connected",
		c.logger.Field().String("device", device),
		c.logger.Field().Bool("send", conn.dest != nil),
		c.logger.Field().Bool("receive", conn.source != nil))
	return nil
}

// Disconnect unregisters a device, closes its endpoints, and ends all of
// its subscriber streams.
func (c *Client) Disconnect(device string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[device]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, device)
	}
	c.closeLocked(conn)
	return nil
}

// DisconnectAll unregisters every device.
func (c *Client) DisconnectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, conn := range c.conns {
		c.closeLocked(conn)
	}
}

// closeLocked tears one connection down. Callers hold c.mu.
func (c *Client) closeLocked(conn *connection) {
	if conn.source != nil {
		conn.source.Disconnect()
		conn.source = nil
	}
	if conn.dest != nil {
		conn.dest.Disconnect()
		conn.dest = nil
	}
	for _, s := range conn.sysexSubs {
		c.finishSysExLocked(s)
	}
	conn.sysexSubs = nil
	for _, s := range conn.noteSubs {
		c.finishEventLocked(s)
	}
	conn.noteSubs = nil
	for _, s := range conn.controlSubs {
		c.finishEventLocked(s)
	}
	conn.controlSubs = nil
	for _, s := range conn.programSubs {
		c.finishEventLocked(s)
	}
	conn.programSubs = nil

	delete(c.conns, conn.device)
	c.logger.Info("device disconnected",
		c.logger.Field().String("device", conn.device))
}

// Send writes raw bytes to a connected device's destination. The transport
// write happens outside the registry lock.
func (c *Client) Send(device string, data []byte) error {
	c.mu.Lock()
	conn, ok := c.conns[device]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotConnected, device)
	}
	dest := conn.dest
	c.mu.Unlock()

	if dest == nil {
		return fmt.Errorf("%w: %s", ErrNoDestination, device)
	}
	return dest.Send(data)
}

// Stop disconnects every device and shuts the transport down. It is safe
// to call more than once.
func (c *Client) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.DisconnectAll()
		err = c.transport.Close()
	})
	return err
}
