package contracts

// RawPacket is one delivery from the hardware transport: an opaque byte
// sequence plus the arrival time in nanoseconds. A packet may carry several
// complete channel-voice messages, a fragment of a SysEx message, or both.
type RawPacket struct {
	Timestamp uint64
	Data      []byte
}

// PacketHandler receives raw packets from an open source in arrival order.
type PacketHandler func(packet RawPacket)

// SourceConn is an open connection to a device input endpoint.
type SourceConn interface {
	Disconnect()
}

// DestinationConn is an open connection to a device output endpoint.
type DestinationConn interface {
	// Send transmits the bytes immediately and returns the transport
	// status. Nothing is queued, retried, or rate limited.
	Send(data []byte) error
	Disconnect()
}

// Transport is the hardware boundary. It enumerates endpoints by name,
// delivers raw packets from sources, and accepts raw bytes for
// destinations. Implementations never interpret protocol contents.
type Transport interface {
	Devices() ([]DeviceInfo, error)
	OpenSource(name string, handler PacketHandler) (SourceConn, error)
	OpenDestination(name string) (DestinationConn, error)
	Close() error
}
