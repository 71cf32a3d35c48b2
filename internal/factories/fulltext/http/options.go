package httpfulltextfactory

import (
	"net"

	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	fulltextcontroller "gitlab.com/pietroski-software-company/lightning-fulltext/internal/controllers/fulltext"
)

func WithListener(listener net.Listener) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Factory); ok {
			c.listener = listener
		}
	}
}

func WithController(controller *fulltextcontroller.Controller) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Factory); ok {
			c.controller = controller
		}
	}
}

func WithLogger(logger slogx.SLogger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Factory); ok {
			c.logger = logger
		}
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Factory); ok {
			c.gatherer = gatherer
		}
	}
}

// WithAllowedOrigins restricts CORS to the given origins. Empty allows any.
func WithAllowedOrigins(origins ...string) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Factory); ok {
			c.origins = origins
		}
	}
}
