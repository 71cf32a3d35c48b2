package fulltextcontroller

import (
	"time"

	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"
)

func WithProvider(provider Provider) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Controller); ok {
			c.provider = provider
		}
	}
}

func WithLogger(logger slogx.SLogger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Controller); ok {
			c.logger = logger
		}
	}
}

// WithHealthInterval sets how often index states are pushed to the health service.
func WithHealthInterval(interval time.Duration) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Controller); ok && interval > 0 {
			c.healthInterval = interval
		}
	}
}
