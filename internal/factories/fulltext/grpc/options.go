package grpcfulltextfactory

import (
	"net"

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
