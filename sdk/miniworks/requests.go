package miniworks

import "github.com/fourpole/miniworks/sdk/sysex"

// RequestProgramDump asks the device to send one program as a standalone
// dump. The reply arrives on the SysEx streams.
func (c *Client) RequestProgramDump(device string, program byte) error {
	return c.Send(device, sysex.EncodeProgramDumpRequest(c.deviceID, program))
}

// RequestProgramBulkDump asks the device to send one program slot as a
// bulk dump.
func (c *Client) RequestProgramBulkDump(device string, program byte) error {
	return c.Send(device, sysex.EncodeProgramBulkDumpRequest(c.deviceID, program))
}

// RequestAllDump asks the device for its complete memory, all twenty
// programs plus the global settings.
func (c *Client) RequestAllDump(device string) error {
	return c.Send(device, sysex.EncodeAllDumpRequest(c.deviceID))
}

// SendProgram transfers a program to the device's edit buffer.
func (c *Client) SendProgram(device string, p *sysex.Program) error {
	return c.Send(device, p.Encode(c.deviceID))
}

// SendProgramBulk writes a program into the device's program memory slot
// named by p.Number.
func (c *Client) SendProgramBulk(device string, p *sysex.Program) error {
	return c.Send(device, p.EncodeBulk(c.deviceID))
}

// SendAllDump replaces the device's entire memory with the given dump.
func (c *Client) SendAllDump(device string, d *sysex.AllDump) error {
	return c.Send(device, d.Encode(c.deviceID))
}
