package miniworks

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fourpole/miniworks/internal/midi/mididarwin"
	"github.com/fourpole/miniworks/internal/midi/midirtmidi"
	"github.com/fourpole/miniworks/internal/midi/midiwindows"
	"github.com/fourpole/miniworks/sdk/contracts"
)

// ErrUnsupportedOS is returned when no MIDI transport exists for the
// current operating system.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// transportInitializers maps OS names to platform transport constructors.
var transportInitializers = map[string]func(*contracts.ClientOptions) (contracts.Transport, error){
	"darwin":  mididarwin.NewTransport,  // CoreMIDI transport.
	"windows": midiwindows.NewTransport, // Windows multimedia transport.
	"linux":   midirtmidi.NewTransport,  // ALSA transport via rtmidi.
}

// newTransport opens the platform MIDI transport for the current operating
// system, returning ErrUnsupportedOS when there is none.
func newTransport(opts *contracts.ClientOptions) (contracts.Transport, error) {
	if initializer, exists := transportInitializers[runtime.GOOS]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
}
