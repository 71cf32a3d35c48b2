package fulltextindex

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/serializer"
	serializermodels "gitlab.com/pietroski-software-company/golang/devex/serializer/models"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"
	"gitlab.com/pietroski-software-company/golang/devex/syncx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
	badgerdblogger "gitlab.com/pietroski-software-company/lightning-fulltext/pkg/tools/badgerdb/logger"
)

type State string

const (
	StatePopulating State = "POPULATING"
	StateOnline     State = "ONLINE"
	StateFailed     State = "FAILED"
)

type (
	// Writable is the mutating side of an index.
	// Only the applier worker may hold it.
	Writable interface {
		Identity() fulltextmodels.IndexIdentity
		Upsert(ctx context.Context, op *fulltextmodels.Operation) error
		Delete(ctx context.Context, entityID int64) error
		Clear(ctx context.Context) error
		SetState(ctx context.Context, state State) error
		Close() error
	}

	ReadOnly interface {
		Query(ctx context.Context, terms ...string) (*Results, error)
		FuzzyQuery(ctx context.Context, terms ...string) (*Results, error)
		Close() error
	}

	// Index is one physical fulltext index backed by its own badger database.
	Index struct {
		identity fulltextmodels.IndexIdentity

		path         string
		inMemory     bool
		maxEdits     int
		badgerLogger badger.Logger

		db      *badger.DB
		mtx     *sync.RWMutex
		closed  *atomic.Bool
		readers *syncx.GenericMap[*Reader]

		needsPopulation bool

		serializer serializermodels.Serializer
		logger     slogx.SLogger
	}
)

var _ Writable = (*Index)(nil)

func Open(
	ctx context.Context,
	identity fulltextmodels.IndexIdentity,
	opts ...options.Option,
) (*Index, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	idx := &Index{
		identity:     identity,
		maxEdits:     defaultMaxEdits,
		badgerLogger: badgerdblogger.NewBadgerDBSilentLogger(),
		mtx:          new(sync.RWMutex),
		closed:       new(atomic.Bool),
		readers:      syncx.NewGenericMap[*Reader](),
		serializer:   serializer.NewJsonSerializer(),
		logger:       slogx.New(),
	}
	options.ApplyOptions(idx, opts...)

	if err := idx.open(ctx); err != nil {
		return nil, err
	}

	return idx, nil
}

func (idx *Index) Identity() fulltextmodels.IndexIdentity {
	return idx.identity
}

// NeedsPopulation tells whether the index has to be backfilled from the store:
// it is new, its property set changed, or it was not online when last closed.
func (idx *Index) NeedsPopulation() bool {
	return idx.needsPopulation
}

func (idx *Index) Writer() Writable {
	return idx
}

func (idx *Index) State(_ context.Context) (State, error) {
	if idx.closed.Load() {
		return "", idx.closedErr()
	}

	var state State
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			state = StatePopulating
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			state = State(val)
			return nil
		})
	})
	if err != nil {
		return "", idx.corruption("failed to read index state", err)
	}

	return state, nil
}

func (idx *Index) SetState(ctx context.Context, state State) error {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	if idx.closed.Load() {
		return idx.closedErr()
	}

	if err := idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(stateKey), []byte(state))
	}); err != nil {
		return idx.corruption("failed to persist index state", err)
	}

	idx.logger.Debug(ctx, "fulltext index state changed", "index", idx.identity.Key(), "state", string(state))

	return nil
}

// NewReader opens a read only snapshot of the index.
func (idx *Index) NewReader() (*Reader, error) {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	if idx.closed.Load() {
		return nil, idx.closedErr()
	}

	reader := &Reader{
		id:     uuid.NewString(),
		index:  idx,
		txn:    idx.db.NewTransaction(false),
		mtx:    new(sync.Mutex),
		closed: new(atomic.Bool),
	}
	idx.readers.Set(reader.id, reader)

	return reader, nil
}

// Close releases every open reader and the underlying database.
// Closing twice is a no-op.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return nil
	}

	idx.mtx.Lock()
	defer idx.mtx.Unlock()

	idx.readers.RangeAndDelete(func(_ string, reader *Reader) bool {
		reader.release()
		return true
	})

	if err := idx.db.Close(); err != nil {
		return errorsx.Wrapf(fulltextmodels.ErrShutdown, "index %s: %v", idx.identity.Key(), err)
	}

	return nil
}

func (idx *Index) open(ctx context.Context) error {
	badgerOpts := badger.DefaultOptions(idx.path)
	if idx.inMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else if idx.path == "" {
		return errorsx.Errorf("index %s has neither a path nor in memory mode", idx.identity.Key())
	}

	db, err := badger.Open(badgerOpts.WithLogger(idx.badgerLogger))
	if err != nil {
		return idx.corruption("failed to open index", err)
	}
	idx.db = db

	if err = idx.recover(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			idx.logger.Error(ctx, "error closing index after failed recovery",
				"index", idx.identity.Key(), "error", closeErr)
		}

		return err
	}

	return nil
}

// recover compares the persisted identity and state with the configured ones
// and flags the index for population when they diverge.
func (idx *Index) recover(ctx context.Context) error {
	stored, found, err := idx.loadIdentity()
	if err != nil {
		return err
	}

	state, err := idx.State(ctx)
	if err != nil {
		return err
	}

	switch {
	case !found:
		idx.logger.Debug(ctx, "creating fulltext index", "index", idx.identity.Key())
		idx.needsPopulation = true
	case !stored.SameProperties(idx.identity):
		idx.logger.Info(ctx, "fulltext index configuration changed, rebuilding",
			"index", idx.identity.Key(), "stored", stored.Properties, "configured", idx.identity.Properties)
		if err = idx.db.DropAll(); err != nil {
			return idx.corruption("failed to drop stale index", err)
		}
		idx.needsPopulation = true
	case state != StateOnline:
		idx.logger.Info(ctx, "fulltext index was not online, repopulating",
			"index", idx.identity.Key(), "state", string(state))
		idx.needsPopulation = true
	}

	if !idx.needsPopulation {
		return nil
	}

	bs, err := idx.serializer.Serialize(idx.identity)
	if err != nil {
		return errorsx.Wrap(err, "failed to serialize index identity")
	}

	if err = idx.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(identityKey), bs); err != nil {
			return err
		}

		return txn.Set([]byte(stateKey), []byte(StatePopulating))
	}); err != nil {
		return idx.corruption("failed to persist index identity", err)
	}

	return nil
}

func (idx *Index) loadIdentity() (fulltextmodels.IndexIdentity, bool, error) {
	var stored fulltextmodels.IndexIdentity
	var found bool
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(identityKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return idx.serializer.Deserialize(val, &stored)
		})
	})
	if err != nil {
		return stored, false, idx.corruption("failed to load index identity", err)
	}

	return stored, found, nil
}

func (idx *Index) corruption(msg string, err error) error {
	return errorsx.Wrapf(fulltextmodels.ErrIndexCorruption, "%s %s: %v", msg, idx.identity.Key(), err)
}

func (idx *Index) closedErr() error {
	return errorsx.Wrapf(fulltextmodels.ErrIndexCorruption, "index %s: %v", idx.identity.Key(), badger.ErrDBClosed)
}
