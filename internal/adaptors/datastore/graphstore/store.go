package graphstore

import (
	"context"
	"errors"
	"iter"
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

const (
	defaultScanChunk   = 1 << 8
	defaultEventBuffer = 1 << 6
)

var (
	ErrStoreClosed = errorsx.New("graph store is closed")
	ErrTxFinished  = errorsx.New("transaction already finished")
)

// Store is a small badger backed property graph. Every committed transaction
// is published as a CommitEvent to the subscriptions open at commit time, in
// commit order.
type Store struct {
	ctx context.Context

	path         string
	inMemory     bool
	badgerLogger badger.Logger

	db      *badger.DB
	nodeSeq *badger.Sequence
	relSeq  *badger.Sequence

	commitMtx *sync.Mutex
	locks     *syncx.KVLock
	txSeq     *atomic.Uint64

	subsMtx *sync.RWMutex
	subs    map[string]*Subscription

	availableOnce *sync.Once
	available     chan struct{}

	closed *atomic.Bool

	scanChunk   int
	eventBuffer int

	serializer serializermodels.Serializer
	logger     slogx.SLogger
}

func Open(ctx context.Context, opts ...options.Option) (*Store, error) {
	s := &Store{
		ctx:           ctx,
		badgerLogger:  badgerdblogger.NewBadgerDBSilentLogger(),
		commitMtx:     new(sync.Mutex),
		locks:         syncx.NewKVLock(),
		txSeq:         new(atomic.Uint64),
		subsMtx:       new(sync.RWMutex),
		subs:          make(map[string]*Subscription),
		availableOnce: new(sync.Once),
		available:     make(chan struct{}),
		closed:        new(atomic.Bool),
		scanChunk:     defaultScanChunk,
		eventBuffer:   defaultEventBuffer,
		serializer:    serializer.NewJsonSerializer(),
		logger:        slogx.New(),
	}
	options.ApplyOptions(s, opts...)

	badgerOpts := badger.DefaultOptions(s.path)
	if s.inMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else if s.path == "" {
		return nil, errorsx.New("graph store has neither a path nor in memory mode")
	}

	db, err := badger.Open(badgerOpts.WithLogger(s.badgerLogger))
	if err != nil {
		return nil, errorsx.Wrapf(err, "failed to open graph store")
	}
	s.db = db

	if s.nodeSeq, err = db.GetSequence([]byte(nodeSequenceKey), sequenceBandwidth); err != nil {
		s.closeDB(ctx)
		return nil, errorsx.Wrapf(err, "failed to lease node ids")
	}
	if s.relSeq, err = db.GetSequence([]byte(relationshipSequenceKey), sequenceBandwidth); err != nil {
		s.closeDB(ctx)
		return nil, errorsx.Wrapf(err, "failed to lease relationship ids")
	}

	return s, nil
}

// Begin opens a write transaction. Entities it touches stay locked until it
// commits or rolls back.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	return &Tx{
		ctx:      ctx,
		id:       s.txSeq.Add(1),
		store:    s,
		entities: make(map[EntityRef]*txEntity),
	}, nil
}

// Update runs fn in a transaction, committing when it returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Get reads the committed state of one entity.
func (s *Store) Get(_ context.Context, kind fulltextmodels.EntityKind, id int64) (*fulltextmodels.Entity, error) {
	rec, err := s.read(EntityRef{Kind: kind, ID: id})
	if err != nil {
		return nil, err
	}

	return rec.entity(kind), nil
}

// Relationship reads the committed graph shape of one relationship.
func (s *Store) Relationship(_ context.Context, id int64) (*Relationship, error) {
	rec, err := s.read(EntityRef{Kind: fulltextmodels.Relationship, ID: id})
	if err != nil {
		return nil, err
	}

	return &Relationship{ID: rec.ID, Type: rec.Type, Start: rec.Start, End: rec.End}, nil
}

// Enumerate walks every entity of the kind in id order. Ids are collected in
// chunks from short lived snapshots and each entity is then read on its own,
// so an entity deleted in between yields ErrEntityNotFound.
func (s *Store) Enumerate(ctx context.Context, kind fulltextmodels.EntityKind) iter.Seq2[*fulltextmodels.Entity, error] {
	return func(yield func(*fulltextmodels.Entity, error) bool) {
		var (
			from    int64
			hasFrom bool
		)
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, errorsx.Wrapf(err, "enumeration of %s interrupted", kind))
				return
			}

			ids, err := s.scanIDs(kind, from, hasFrom)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, id := range ids {
				entity, err := s.Get(ctx, kind, id)
				if !yield(entity, err) {
					return
				}
			}

			if len(ids) < s.scanChunk {
				return
			}
			from, hasFrom = ids[len(ids)-1]+1, true
		}
	}
}

func (s *Store) scanIDs(kind fulltextmodels.EntityKind, from int64, hasFrom bool) ([]int64, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	ids := make([]int64, 0, s.scanChunk)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: false,
			Prefix:         prefixOf(kind),
		})
		defer it.Close()

		start := prefixOf(kind)
		if hasFrom {
			start = entityKey(EntityRef{Kind: kind, ID: from})
		}

		for it.Seek(start); it.Valid() && len(ids) < s.scanChunk; it.Next() {
			id, err := idFromKey(kind, it.Item().KeyCopy(nil))
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		return nil
	})
	if err != nil {
		return nil, errorsx.Wrapf(err, "failed to scan %s", kind)
	}

	return ids, nil
}

func (s *Store) read(ref EntityRef) (*record, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(ref))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return s.serializer.Deserialize(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errorsx.Wrapf(fulltextmodels.ErrEntityNotFound, "%s", ref)
	}
	if err != nil {
		return nil, errorsx.Wrapf(err, "failed to read %s", ref)
	}
	if rec.Properties == nil {
		rec.Properties = make(map[string]fulltextmodels.Value)
	}

	return &rec, nil
}

// Subscribe registers a listener for commit events. Events are delivered in
// commit order; a slow listener holds back later commits.
func (s *Store) Subscribe() (*Subscription, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	sub := &Subscription{
		id:     uuid.NewString(),
		store:  s,
		events: syncx.NewChannel[*CommitEvent](syncx.WithChannelSize[*CommitEvent](s.eventBuffer)),
		done:   make(chan struct{}),
		once:   new(sync.Once),
		mtx:    new(sync.RWMutex),

		delivered: new(atomic.Uint64),
	}

	s.subsMtx.Lock()
	s.subs[sub.id] = sub
	s.subsMtx.Unlock()

	return sub, nil
}

func (s *Store) unsubscribe(id string) {
	s.subsMtx.Lock()
	delete(s.subs, id)
	s.subsMtx.Unlock()
}

// publish must be called with commitMtx held.
func (s *Store) publish(ev *CommitEvent) {
	s.subsMtx.RLock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMtx.RUnlock()

	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// MarkAvailable opens the availability gate. Calling it again is a no-op.
func (s *Store) MarkAvailable() {
	s.availableOnce.Do(func() {
		close(s.available)
		s.logger.Debug(s.ctx, "graph store is available")
	})
}

// WaitAvailable blocks until MarkAvailable was called.
func (s *Store) WaitAvailable(ctx context.Context) error {
	select {
	case <-s.available:
		return nil
	case <-ctx.Done():
		return errorsx.Wrapf(ctx.Err(), "graph store did not become available")
	}
}

// Close ends every subscription and releases the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.subsMtx.RLock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMtx.RUnlock()
	for _, sub := range subs {
		sub.Close()
	}

	s.commitMtx.Lock()
	defer s.commitMtx.Unlock()

	for _, seq := range []*badger.Sequence{s.nodeSeq, s.relSeq} {
		if err := seq.Release(); err != nil {
			s.logger.Error(s.ctx, "failed to release id sequence", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		return errorsx.Wrapf(err, "failed to close graph store")
	}

	return nil
}

func (s *Store) closeDB(ctx context.Context) {
	if err := s.db.Close(); err != nil {
		s.logger.Error(ctx, "failed to close graph store", "error", err)
	}
}

// Subscription receives the commit events of a store.
type Subscription struct {
	id     string
	store  *Store
	events *syncx.Channel[*CommitEvent]
	done   chan struct{}
	once   *sync.Once
	mtx    *sync.RWMutex

	delivered *atomic.Uint64
}

// Events is closed once the subscription or its store is closed.
func (sub *Subscription) Events() <-chan *CommitEvent {
	return sub.events.Ch
}

func (sub *Subscription) Close() {
	sub.once.Do(func() {
		close(sub.done)

		sub.mtx.Lock()
		sub.events.Close()
		sub.mtx.Unlock()

		sub.store.unsubscribe(sub.id)
	})
}

func (sub *Subscription) deliver(ev *CommitEvent) {
	sub.mtx.RLock()
	defer sub.mtx.RUnlock()

	if sub.events.IsClosed() {
		return
	}

	select {
	case sub.events.Ch <- ev:
		sub.delivered.Add(1)
	case <-sub.done:
	}
}

// Delivered counts the events handed to this subscription so far.
func (sub *Subscription) Delivered() uint64 {
	return sub.delivered.Load()
}
