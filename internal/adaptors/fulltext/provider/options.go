package fulltextprovider

import (
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"
)

// WithPath sets the base directory; each index lives in <path>/<kind>/<name>.
func WithPath(path string) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Provider); ok {
			c.path = path
		}
	}
}

func WithInMemory() options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Provider); ok {
			c.inMemory = true
		}
	}
}

func WithLogger(logger slogx.SLogger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Provider); ok {
			c.logger = logger
		}
	}
}

// WithApplierOptions forwards options to the update applier.
func WithApplierOptions(opts ...options.Option) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Provider); ok {
			c.applierOpts = append(c.applierOpts, opts...)
		}
	}
}

// WithIndexOptions forwards options to every index the provider opens.
func WithIndexOptions(opts ...options.Option) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Provider); ok {
			c.indexOpts = append(c.indexOpts, opts...)
		}
	}
}
