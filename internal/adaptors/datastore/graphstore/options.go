package graphstore

import (
	"github.com/dgraph-io/badger/v4"

	"gitlab.com/pietroski-software-company/golang/devex/options"
	serializermodels "gitlab.com/pietroski-software-company/golang/devex/serializer/models"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"
)

func WithPath(path string) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Store); ok {
			c.path = path
		}
	}
}

func WithInMemory() options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Store); ok {
			c.inMemory = true
		}
	}
}

func WithLogger(logger slogx.SLogger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Store); ok {
			c.logger = logger
		}
	}
}

func WithBadgerLogger(logger badger.Logger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Store); ok {
			c.badgerLogger = logger
		}
	}
}

func WithSerializer(serializer serializermodels.Serializer) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Store); ok {
			c.serializer = serializer
		}
	}
}

// WithScanChunk sets how many ids Enumerate collects per read snapshot.
func WithScanChunk(size int) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Store); ok && size > 0 {
			c.scanChunk = size
		}
	}
}

// WithEventBuffer sets the buffer of every subscription channel.
func WithEventBuffer(size int) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Store); ok && size >= 0 {
			c.eventBuffer = size
		}
	}
}
