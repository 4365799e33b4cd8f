//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/fourpole/miniworks/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type (
	HMIDIIN  windows.Handle
	HMIDIOUT windows.Handle
)

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	CALLBACK_NULL     = 0x00000000 // No callback mechanism
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI input messages
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // Short MIDI message received
	MIM_LONGDATA  = 0x3C4 // SysEx buffer returned by the driver
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Header flag bits for midiHdr.dwFlags
const (
	MHDR_DONE     = 0x00000001
	MHDR_PREPARED = 0x00000002
	MHDR_INQUEUE  = 0x00000004
)

// SysEx receive buffers queued per opened input. A full dump is 593 bytes,
// so one buffer holds any message the device sends with room to spare.
const (
	sysExBufferCount = 4
	sysExBufferSize  = 1024
)

// Struct representing MIDI input device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// midiHdr mirrors the winmm MIDIHDR structure used for long messages.
type midiHdr struct {
	lpData          uintptr
	dwBufferLength  uint32
	dwBytesRecorded uint32
	dwUser          uintptr
	dwFlags         uint32
	lpNext          uintptr
	reserved        uintptr
	dwOffset        uint32
	dwReserved      [8]uintptr
}

// Load the winmm.dll library and required functions
var (
	winmm                      = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs       = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps       = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen             = winmm.NewProc("midiInOpen")
	procMidiInStart            = winmm.NewProc("midiInStart")
	procMidiInStop             = winmm.NewProc("midiInStop")
	procMidiInReset            = winmm.NewProc("midiInReset")
	procMidiInClose            = winmm.NewProc("midiInClose")
	procMidiInPrepareHeader    = winmm.NewProc("midiInPrepareHeader")
	procMidiInUnprepareHeader  = winmm.NewProc("midiInUnprepareHeader")
	procMidiInAddBuffer        = winmm.NewProc("midiInAddBuffer")
	procMidiOutGetNumDevs      = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps      = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen            = winmm.NewProc("midiOutOpen")
	procMidiOutClose           = winmm.NewProc("midiOutClose")
	procMidiOutShortMsg        = winmm.NewProc("midiOutShortMsg")
	procMidiOutLongMsg         = winmm.NewProc("midiOutLongMsg")
	procMidiOutPrepareHeader   = winmm.NewProc("midiOutPrepareHeader")
	procMidiOutUnprepareHeader = winmm.NewProc("midiOutUnprepareHeader")
)

// midiInCallbackPtr is created once; Windows callback slots are a limited
// process-wide resource.
var midiInCallbackPtr = windows.NewCallback(midiInCallback)

// inputRegistry maps the dwInstance value passed to midiInOpen back to the
// owning connection. Handing the driver a map key instead of a Go pointer
// keeps the callback free of pointer lifetime issues.
var (
	inputRegistryMu sync.Mutex
	inputRegistry   = map[uintptr]*inputConn{}
	inputRegistryID uintptr
)

func registerInput(c *inputConn) uintptr {
	inputRegistryMu.Lock()
	defer inputRegistryMu.Unlock()
	inputRegistryID++
	inputRegistry[inputRegistryID] = c
	return inputRegistryID
}

func lookupInput(key uintptr) *inputConn {
	inputRegistryMu.Lock()
	defer inputRegistryMu.Unlock()
	return inputRegistry[key]
}

func dropInput(key uintptr) {
	inputRegistryMu.Lock()
	defer inputRegistryMu.Unlock()
	delete(inputRegistry, key)
}

// Transport drives the Windows multimedia MIDI API.
type Transport struct {
	logger   contracts.Logger
	stopOnce sync.Once
}

// NewTransport creates the winmm-backed transport.
func NewTransport(options *contracts.ClientOptions) (contracts.Transport, error) {
	options.Logger.Info("MIDI transport created for Windows")
	return &Transport{logger: options.Logger}, nil
}

// Devices lists the available MIDI devices, inputs first, then outputs
// whose names were not already listed.
func (t *Transport) Devices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numIn := uint32(r0)
	r0, _, _ = procMidiOutGetNumDevs.Call()
	numOut := uint32(r0)
	if numIn == 0 && numOut == 0 {
		t.logger.Warn("No MIDI devices found")
		return nil, errors.New("no MIDI devices found")
	}

	devices := make([]contracts.DeviceInfo, 0, numIn+numOut)
	seen := make(map[string]bool, numIn)
	for i := uint32(0); i < numIn; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			t.logger.Warn(fmt.Sprintf("Failed to get information for MIDI input %d", i))
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.DeviceInfo{
			Name:         name,
			EntityName:   name,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
		seen[name] = true
	}
	for i := uint32(0); i < numOut; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			t.logger.Warn(fmt.Sprintf("Failed to get information for MIDI output %d", i))
			continue
		}
		name := windows.UTF16ToString(caps.szPname[:])
		if seen[name] {
			continue
		}
		devices = append(devices, contracts.DeviceInfo{
			Name:         name,
			EntityName:   name,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

// findInputDevice resolves a device name to its winmm input ID.
func findInputDevice(name string) (uint32, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			continue
		}
		if windows.UTF16ToString(caps.szPname[:]) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("MIDI input not found: %s", name)
}

// findOutputDevice resolves a device name to its winmm output ID.
func findOutputDevice(name string) (uint32, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			continue
		}
		if windows.UTF16ToString(caps.szPname[:]) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("MIDI output not found: %s", name)
}

// OpenSource opens the named input, queues SysEx receive buffers, and
// starts capture.
func (t *Transport) OpenSource(name string, handler contracts.PacketHandler) (contracts.SourceConn, error) {
	deviceID, err := findInputDevice(name)
	if err != nil {
		t.logger.Error(err.Error())
		return nil, err
	}

	conn := &inputConn{logger: t.logger, handler: handler}
	conn.key = registerInput(conn)

	r1, _, callErr := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&conn.handle)),
		uintptr(deviceID),
		midiInCallbackPtr,
		conn.key,
		CALLBACK_FUNCTION|MIDI_IO_STATUS,
	)
	if r1 != 0 {
		dropInput(conn.key)
		t.logger.Error(fmt.Sprintf("Failed to open MIDI input %q: %v", name, callErr))
		return nil, fmt.Errorf("failed to open MIDI input %q: %v", name, callErr)
	}

	if err := conn.queueBuffers(); err != nil {
		conn.Disconnect()
		return nil, err
	}

	r1, _, callErr = procMidiInStart.Call(uintptr(conn.handle))
	if r1 != 0 {
		conn.Disconnect()
		t.logger.Error(fmt.Sprintf("Failed to start MIDI capture: %v", callErr))
		return nil, fmt.Errorf("failed to start MIDI capture: %v", callErr)
	}

	t.logger.Info(fmt.Sprintf("MIDI input %q connected", name))
	return conn, nil
}

// OpenDestination opens the named output for sending.
func (t *Transport) OpenDestination(name string) (contracts.DestinationConn, error) {
	deviceID, err := findOutputDevice(name)
	if err != nil {
		t.logger.Error(err.Error())
		return nil, err
	}

	conn := &outputConn{logger: t.logger}
	r1, _, callErr := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&conn.handle)),
		uintptr(deviceID),
		0,
		0,
		CALLBACK_NULL,
	)
	if r1 != 0 {
		t.logger.Error(fmt.Sprintf("Failed to open MIDI output %q: %v", name, callErr))
		return nil, fmt.Errorf("failed to open MIDI output %q: %v", name, callErr)
	}

	t.logger.Info(fmt.Sprintf("MIDI output %q connected", name))
	return conn, nil
}

// Close shuts the transport down. Open connections are owned and closed by
// their callers.
func (t *Transport) Close() error {
	t.stopOnce.Do(func() {
		t.logger.Info("Windows MIDI transport stopped")
	})
	return nil
}

// inputConn is one opened winmm input with its queued SysEx buffers.
type inputConn struct {
	logger  contracts.Logger
	handler contracts.PacketHandler
	handle  HMIDIIN
	key     uintptr

	mu      sync.Mutex
	closing bool
	buffers [][]byte
	headers []*midiHdr
}

// queueBuffers prepares and queues the SysEx receive buffers. The backing
// slices stay referenced by the connection for as long as the driver may
// write into them.
func (c *inputConn) queueBuffers() error {
	for i := 0; i < sysExBufferCount; i++ {
		buf := make([]byte, sysExBufferSize)
		hdr := &midiHdr{
			lpData:         uintptr(unsafe.Pointer(&buf[0])),
			dwBufferLength: sysExBufferSize,
		}
		r1, _, err := procMidiInPrepareHeader.Call(
			uintptr(c.handle),
			uintptr(unsafe.Pointer(hdr)),
			unsafe.Sizeof(*hdr),
		)
		if r1 != 0 {
			return fmt.Errorf("failed to prepare SysEx buffer: %v", err)
		}
		r1, _, err = procMidiInAddBuffer.Call(
			uintptr(c.handle),
			uintptr(unsafe.Pointer(hdr)),
			unsafe.Sizeof(*hdr),
		)
		if r1 != 0 {
			return fmt.Errorf("failed to queue SysEx buffer: %v", err)
		}
		c.buffers = append(c.buffers, buf)
		c.headers = append(c.headers, hdr)
	}
	return nil
}

// midiInCallback processes incoming MIDI messages for all open inputs.
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	conn := lookupInput(dwInstance)
	if conn == nil {
		return 0
	}

	switch wMsg {
	case MIM_OPEN:
		conn.logger.Info("MIDI device opened")
	case MIM_CLOSE:
		conn.logger.Info("MIDI device closed")
	case MIM_DATA:
		conn.shortMessage(dwParam1)
	case MIM_LONGDATA:
		conn.longMessage(dwParam1)
	case MIM_ERROR, MIM_LONGERROR:
		conn.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg))
	case MIM_MOREDATA:
		conn.logger.Debug("Received MIM_MOREDATA message; ignored")
	default:
		conn.logger.Warn(fmt.Sprintf("Unknown MIDI message: 0x%X", wMsg))
	}

	return 0
}

// shortMessage repacks a dword-encoded short message into its wire bytes.
// The dword always carries three data bytes; only the ones the status byte
// defines are forwarded.
func (c *inputConn) shortMessage(dwParam1 uintptr) {
	status := byte(dwParam1 & 0xFF)
	data1 := byte((dwParam1 >> 8) & 0xFF)
	data2 := byte((dwParam1 >> 16) & 0xFF)

	var data []byte
	switch {
	case status < 0x80:
		return
	case status&0xF0 == 0xC0 || status&0xF0 == 0xD0:
		data = []byte{status, data1}
	case status < 0xF0:
		data = []byte{status, data1, data2}
	case status == 0xF1 || status == 0xF3:
		data = []byte{status, data1}
	case status == 0xF2:
		data = []byte{status, data1, data2}
	default:
		data = []byte{status}
	}

	c.handler(contracts.RawPacket{
		Timestamp: uint64(time.Now().UTC().UnixNano()),
		Data:      data,
	})
}

// longMessage copies a returned SysEx buffer out and requeues it unless
// the connection is closing. midiInReset hands buffers back with zero
// bytes recorded.
func (c *inputConn) longMessage(dwParam1 uintptr) {
	hdr := (*midiHdr)(unsafe.Pointer(dwParam1))
	if n := int(hdr.dwBytesRecorded); n > 0 {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(hdr.lpData)), n)
		data := make([]byte, n)
		copy(data, raw)
		c.handler(contracts.RawPacket{
			Timestamp: uint64(time.Now().UTC().UnixNano()),
			Data:      data,
		})
	}

	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if closing {
		return
	}
	hdr.dwBytesRecorded = 0
	procMidiInAddBuffer.Call(uintptr(c.handle), dwParam1, unsafe.Sizeof(*hdr))
}

// Disconnect stops capture, drains the queued buffers, and closes the
// input.
func (c *inputConn) Disconnect() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.closing = true
	c.mu.Unlock()

	procMidiInStop.Call(uintptr(c.handle))
	procMidiInReset.Call(uintptr(c.handle))
	for _, hdr := range c.headers {
		procMidiInUnprepareHeader.Call(
			uintptr(c.handle),
			uintptr(unsafe.Pointer(hdr)),
			unsafe.Sizeof(*hdr),
		)
	}
	procMidiInClose.Call(uintptr(c.handle))
	dropInput(c.key)
	c.logger.Info("MIDI input closed")
}

// outputConn is one opened winmm output.
type outputConn struct {
	logger contracts.Logger

	mu     sync.Mutex
	handle HMIDIOUT
	closed bool
}

// Send writes one message. Short channel messages go out as a packed
// dword; anything longer, SysEx included, takes the buffered long-message
// path.
func (c *outputConn) Send(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("MIDI output closed")
	}

	if len(data) > 3 || data[0] == 0xF0 {
		return c.sendLong(data)
	}

	var msg uint32
	for i := len(data) - 1; i >= 0; i-- {
		msg = msg<<8 | uint32(data[i])
	}
	r1, _, err := procMidiOutShortMsg.Call(uintptr(c.handle), uintptr(msg))
	if r1 != 0 {
		return fmt.Errorf("failed to send MIDI message: %v", err)
	}
	return nil
}

// sendLong sends a SysEx message and waits for the driver to release the
// buffer before unpreparing it.
func (c *outputConn) sendLong(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	hdr := &midiHdr{
		lpData:          uintptr(unsafe.Pointer(&buf[0])),
		dwBufferLength:  uint32(len(buf)),
		dwBytesRecorded: uint32(len(buf)),
	}

	r1, _, err := procMidiOutPrepareHeader.Call(
		uintptr(c.handle),
		uintptr(unsafe.Pointer(hdr)),
		unsafe.Sizeof(*hdr),
	)
	if r1 != 0 {
		return fmt.Errorf("failed to prepare SysEx send: %v", err)
	}
	defer procMidiOutUnprepareHeader.Call(
		uintptr(c.handle),
		uintptr(unsafe.Pointer(hdr)),
		unsafe.Sizeof(*hdr),
	)

	r1, _, err = procMidiOutLongMsg.Call(
		uintptr(c.handle),
		uintptr(unsafe.Pointer(hdr)),
		unsafe.Sizeof(*hdr),
	)
	if r1 != 0 {
		return fmt.Errorf("failed to send SysEx message: %v", err)
	}

	for i := 0; i < 1000; i++ {
		if hdr.dwFlags&MHDR_DONE != 0 {
			runtime.KeepAlive(buf)
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	runtime.KeepAlive(buf)
	return errors.New("timed out waiting for SysEx send to complete")
}

// Disconnect closes the output.
func (c *outputConn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	procMidiOutClose.Call(uintptr(c.handle))
	c.logger.Info("MIDI output closed")
}
