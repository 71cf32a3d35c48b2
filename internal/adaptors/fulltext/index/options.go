package fulltextindex

import (
	"github.com/dgraph-io/badger/v4"

	"gitlab.com/pietroski-software-company/golang/devex/options"
	serializermodels "gitlab.com/pietroski-software-company/golang/devex/serializer/models"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"
)

// WithPath sets the directory holding the index files.
func WithPath(path string) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Index); ok {
			c.path = path
		}
	}
}

// WithInMemory keeps the whole index in memory. Mostly useful for tests.
func WithInMemory() options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Index); ok {
			c.inMemory = true
		}
	}
}

func WithLogger(logger slogx.SLogger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Index); ok {
			c.logger = logger
		}
	}
}

func WithBadgerLogger(logger badger.Logger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Index); ok {
			c.badgerLogger = logger
		}
	}
}

func WithSerializer(serializer serializermodels.Serializer) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Index); ok {
			c.serializer = serializer
		}
	}
}

// WithMaxEdits caps the edit distance fuzzy queries expand to.
func WithMaxEdits(maxEdits int) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Index); ok && maxEdits >= 0 {
			c.maxEdits = maxEdits
		}
	}
}
