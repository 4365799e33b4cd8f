package contracts

// ClientOptions defines the configuration options for the control client.
type ClientOptions struct {
	Logger        Logger       // Logger for events and errors.
	LogLevel      LogLevel     // Level of logging to use.
	ClientName    string       // Name the transport registers with the system.
	SysExDeviceID byte         // Device ID placed in SysEx headers built by the client.
	EventFilter   *EventFilter // Optional filter for channel-voice events.
	Transport     Transport    // Transport override; the platform driver is used when nil.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger for the client.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the client.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithClientName sets the name the transport registers with the system.
func WithClientName(name string) Option {
	return func(opts *ClientOptions) {
		opts.ClientName = name
	}
}

// WithSysExDeviceID sets the device ID used in SysEx headers built by the
// client, for setups with more than one unit on the same port.
func WithSysExDeviceID(id byte) Option {
	return func(opts *ClientOptions) {
		opts.SysExDeviceID = id
	}
}

// WithEventFilter sets the channel-voice event filter.
func WithEventFilter(filter EventFilter) Option {
	return func(opts *ClientOptions) {
		opts.EventFilter = &filter
	}
}

// WithTransport replaces the platform transport. Used by tests and by
// callers that bring their own driver.
func WithTransport(t Transport) Option {
	return func(opts *ClientOptions) {
		opts.Transport = t
	}
}
