//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fourpole/miniworks/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrDeviceNotFound      = errors.New("MIDI device not found")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
	ErrCreateOutputPort    = errors.New("error creating output port")
)

// internalPortConnection is an interface for handling disconnection from a
// MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// Transport drives CoreMIDI on Darwin (macOS) systems. Each opened source
// gets its own input port so packet callbacks stay per-device; one shared
// output port serves every destination.
type Transport struct {
	logger contracts.Logger
	client coremidi.Client

	mu       sync.Mutex
	output   coremidi.OutputPort
	hasOut   bool
	stopOnce sync.Once
}

// NewTransport registers a CoreMIDI client under the configured name.
func NewTransport(options *contracts.ClientOptions) (contracts.Transport, error) {
	client, err := coremidi.NewClient(options.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("CoreMIDI client successfully created",
		options.Logger.Field().String("name", options.ClientName))

	return &Transport{
		logger: options.Logger,
		client: client,
	}, nil
}

// Devices lists MIDI endpoints, sources first, then destinations that do
// not double as sources. If nothing is attached an error is logged and
// returned.
func (t *Transport) Devices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	if len(sources) == 0 && len(destinations) == 0 {
		t.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, 0, len(sources)+len(destinations))
	seen := make(map[string]bool, len(sources))
	for _, source := range sources {
		entity := source.Entity()
		devices = append(devices, contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		})
		seen[source.Name()] = true
	}
	for _, destination := range destinations {
		if seen[destination.Name()] {
			continue
		}
		entity := destination.Entity()
		devices = append(devices, contracts.DeviceInfo{
			Name:         destination.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		})
	}
	return devices, nil
}

// OpenSource connects an input port to the named source and forwards every
// packet to the handler. Packet data is copied before handing it over;
// CoreMIDI owns the callback buffer.
func (t *Transport) OpenSource(name string, handler contracts.PacketHandler) (contracts.SourceConn, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	var source coremidi.Source
	found := false
	for _, s := range sources {
		if s.Name() == name {
			source, found = s, true
			break
		}
	}
	if !found {
		t.logger.Error(ErrDeviceNotFound.Error(),
			t.logger.Field().String("device", name))
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	inputPort, err := coremidi.NewInputPort(t.client, "Input Port",
		func(src coremidi.Source, packet coremidi.Packet) {
			data := make([]byte, len(packet.Data))
			copy(data, packet.Data)
			handler(contracts.RawPacket{
				Timestamp: uint64(time.Now().UTC().UnixNano()),
				Data:      data,
			})
		})
	if err != nil {
		t.logger.Error(ErrCreateInputPort.Error())
		return nil, fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	portConn, err := inputPort.Connect(source)
	if err != nil {
		t.logger.Error(ErrMIDIConnectionError.Error())
		return nil, fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	t.logger.Info("MIDI source successfully connected",
		t.logger.Field().String("device", name))
	return &sourceConn{conn: portConn}, nil
}

// OpenDestination resolves the named destination for sending.
func (t *Transport) OpenDestination(name string) (contracts.DestinationConn, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI destinations: %w", err)
	}
	for _, d := range destinations {
		if d.Name() == name {
			port, err := t.outputPort()
			if err != nil {
				return nil, err
			}
			t.logger.Info("MIDI destination successfully connected",
				t.logger.Field().String("device", name))
			return &destinationConn{port: port, dest: d}, nil
		}
	}
	t.logger.Error(ErrDeviceNotFound.Error(),
		t.logger.Field().String("device", name))
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

// outputPort lazily creates the shared output port.
func (t *Transport) outputPort() (coremidi.OutputPort, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasOut {
		return t.output, nil
	}
	port, err := coremidi.NewOutputPort(t.client, "Output Port")
	if err != nil {
		t.logger.Error(ErrCreateOutputPort.Error())
		return coremidi.OutputPort{}, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}
	t.output = port
	t.hasOut = true
	return port, nil
}

// Close shuts the transport down. CoreMIDI reclaims client and port
// resources when the process releases them; open source connections are
// expected to be disconnected by their owners first.
func (t *Transport) Close() error {
	t.stopOnce.Do(func() {
		t.logger.Info("CoreMIDI transport stopped")
	})
	return nil
}

// sourceConn wraps one CoreMIDI port connection.
type sourceConn struct {
	conn internalPortConnection
}

func (s *sourceConn) Disconnect() {
	s.conn.Disconnect()
}

// destinationConn sends packets to one CoreMIDI destination through the
// shared output port.
type destinationConn struct {
	port coremidi.OutputPort
	dest coremidi.Destination
}

func (d *destinationConn) Send(data []byte) error {
	packet := coremidi.NewPacket(data, 0)
	return packet.Send(&d.port, &d.dest)
}

// Disconnect is a no-op; CoreMIDI destinations hold no per-connection
// state on the sending side.
func (d *destinationConn) Disconnect() {}
