//go:build linux
// +build linux

package midirtmidi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/fourpole/miniworks/sdk/contracts"
)

// ErrDeviceNotFound is returned when no port carries the requested name.
var ErrDeviceNotFound = errors.New("MIDI device not found")

// sysExBufferSize is handed to the listener; the largest message the
// device sends is 593 bytes.
const sysExBufferSize = 4096

// Transport drives ALSA MIDI through the rtmidi driver.
type Transport struct {
	logger   contracts.Logger
	drv      *rtmididrv.Driver
	stopOnce sync.Once
}

// NewTransport initialises the rtmidi driver.
func NewTransport(options *contracts.ClientOptions) (contracts.Transport, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	options.Logger.Info("rtmidi transport created",
		options.Logger.Field().String("name", options.ClientName))

	return &Transport{
		logger: options.Logger,
		drv:    drv,
	}, nil
}

// Devices lists MIDI ports, inputs first, then outputs whose names were
// not already listed.
func (t *Transport) Devices() ([]contracts.DeviceInfo, error) {
	ins, err := t.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI inputs: %w", err)
	}
	outs, err := t.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI outputs: %w", err)
	}

	devices := make([]contracts.DeviceInfo, 0, len(ins)+len(outs))
	seen := make(map[string]bool, len(ins))
	for _, in := range ins {
		name := in.String()
		devices = append(devices, contracts.DeviceInfo{Name: name, EntityName: name})
		seen[name] = true
	}
	for _, out := range outs {
		name := out.String()
		if seen[name] {
			continue
		}
		devices = append(devices, contracts.DeviceInfo{Name: name, EntityName: name})
	}
	return devices, nil
}

// OpenSource opens the named input and forwards every message, SysEx
// included, to the handler as one raw packet.
func (t *Transport) OpenSource(name string, handler contracts.PacketHandler) (contracts.SourceConn, error) {
	ins, err := t.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		t.logger.Error(ErrDeviceNotFound.Error(),
			t.logger.Field().String("device", name))
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		data := make([]byte, len(msg))
		copy(data, msg)
		handler(contracts.RawPacket{
			Timestamp: uint64(time.Now().UTC().UnixNano()),
			Data:      data,
		})
	}, midi.UseSysEx(), midi.SysExBufferSize(sysExBufferSize),
		midi.HandleError(func(listenErr error) {
			t.logger.Warn("MIDI listener error",
				t.logger.Field().String("device", name),
				t.logger.Field().Error("error", listenErr))
		}))
	if err != nil {
		_ = found.Close()
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}

	t.logger.Info("MIDI input connected",
		t.logger.Field().String("device", name))
	return &sourceConn{in: found, stop: stop}, nil
}

// OpenDestination opens the named output for sending.
func (t *Transport) OpenDestination(name string) (contracts.DestinationConn, error) {
	outs, err := t.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("error retrieving MIDI outputs: %w", err)
	}
	for _, out := range outs {
		if out.String() != name {
			continue
		}
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("open %q: %w", name, err)
		}
		t.logger.Info("MIDI output connected",
			t.logger.Field().String("device", name))
		return &destinationConn{out: out}, nil
	}
	t.logger.Error(ErrDeviceNotFound.Error(),
		t.logger.Field().String("device", name))
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

// Close shuts the rtmidi driver down.
func (t *Transport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		err = t.drv.Close()
		t.logger.Info("rtmidi transport stopped")
	})
	return err
}

// sourceConn is one listening input port.
type sourceConn struct {
	in   drivers.In
	stop func()
}

func (s *sourceConn) Disconnect() {
	s.stop()
	_ = s.in.Close()
}

// destinationConn is one opened output port.
type destinationConn struct {
	out drivers.Out
}

func (d *destinationConn) Send(data []byte) error {
	return d.out.Send(data)
}

func (d *destinationConn) Disconnect() {
	_ = d.out.Close()
}
