package miniworks

import (
	"github.com/fourpole/miniworks/internal/logger"
	"github.com/fourpole/miniworks/sdk/contracts"
)

// applyDefaultOptions sets default values for ClientOptions if not
// explicitly provided.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.ClientName == "" {
		options.ClientName = "MiniWorks Client"
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
