//go:build !linux
// +build !linux

package midirtmidi

import (
	"fmt"

	"github.com/fourpole/miniworks/sdk/contracts"
)

type dummyTransport struct {
	logger contracts.Logger
}

// NewTransport initializes a dummy MIDI transport for non-Linux systems.
func NewTransport(options *contracts.ClientOptions) (contracts.Transport, error) {
	options.Logger.Info("Using dummy rtmidi transport for non-Linux system")
	return &dummyTransport{
		logger: options.Logger,
	}, nil
}

func (t *dummyTransport) Devices() ([]contracts.DeviceInfo, error) {
	t.logger.Warn("Devices called on dummy rtmidi transport")
	return nil, fmt.Errorf("rtmidi is not available on this platform")
}

func (t *dummyTransport) OpenSource(name string, handler contracts.PacketHandler) (contracts.SourceConn, error) {
	t.logger.Warn("OpenSource called on dummy rtmidi transport")
	return nil, fmt.Errorf("rtmidi is not available on this platform")
}

func (t *dummyTransport) OpenDestination(name string) (contracts.DestinationConn, error) {
	t.logger.Warn("OpenDestination called on dummy rtmidi transport")
	return nil, fmt.Errorf("rtmidi is not available on this platform")
}

func (t *dummyTransport) Close() error {
	return nil
}
