//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/fourpole/miniworks/sdk/contracts"
)

type DummyTransport struct {
	logger contracts.Logger
}

func NewTransport(options *contracts.ClientOptions) (contracts.Transport, error) {
	options.Logger.Info("Using dummy CoreMIDI transport for non-macOS system")
	return &DummyTransport{
		logger: options.Logger,
	}, nil
}

func (t *DummyTransport) Devices() ([]contracts.DeviceInfo, error) {
	t.logger.Warn("Devices called on dummy CoreMIDI transport")
	return nil, fmt.Errorf("CoreMIDI is not available on this platform")
}

func (t *DummyTransport) OpenSource(name string, handler contracts.PacketHandler) (contracts.SourceConn, error) {
	t.logger.Warn("OpenSource called on dummy CoreMIDI transport")
	return nil, fmt.Errorf("CoreMIDI is not available on this platform")
}

func (t *DummyTransport) OpenDestination(name string) (contracts.DestinationConn, error) {
	t.logger.Warn("OpenDestination called on dummy CoreMIDI transport")
	return nil, fmt.Errorf("CoreMIDI is not available on this platform")
}

func (t *DummyTransport) Close() error {
	return nil
}
