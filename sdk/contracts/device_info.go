package contracts

// DeviceInfo contains information about a MIDI endpoint.
type DeviceInfo struct {
	Name         string // Endpoint name, used to address connections.
	Manufacturer string // Device manufacturer, when the transport reports one.
	EntityName   string // Name of the entity the endpoint belongs to.
}
