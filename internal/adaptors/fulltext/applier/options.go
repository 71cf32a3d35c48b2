package fulltextapplier

import (
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"
)

func WithLogger(logger slogx.SLogger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Applier); ok {
			c.logger = logger
		}
	}
}

func WithMetrics(metrics *Metrics) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Applier); ok && metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithQueueSize bounds the work queue; Submit blocks while it is full.
func WithQueueSize(size int) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Applier); ok && size > 0 {
			c.queueSize = size
		}
	}
}

// WithPopulationBatchSize sets how many operations a population scan packs
// into a single submission.
func WithPopulationBatchSize(size int) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Applier); ok && size > 0 {
			c.populationBatchSize = size
		}
	}
}

func WithScanLimit(limit int) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Applier); ok && limit > 0 {
			c.scanLimit = limit
		}
	}
}
