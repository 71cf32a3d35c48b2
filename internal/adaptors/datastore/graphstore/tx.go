package graphstore

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

type (
	// Tx buffers writes until Commit. It is not safe for concurrent use.
	Tx struct {
		ctx   context.Context
		id    uint64
		store *Store

		entities map[EntityRef]*txEntity
		order    []EntityRef
		locked   []EntityRef
		done     bool
	}

	txEntity struct {
		before  *record
		after   *record
		created bool
		deleted bool
	}
)

func (tx *Tx) ID() uint64 {
	return tx.id
}

func (tx *Tx) CreateNode() (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}

	id, err := tx.store.nodeSeq.Next()
	if err != nil {
		return 0, errorsx.Wrapf(err, "failed to allocate node id")
	}

	ref := EntityRef{Kind: fulltextmodels.Node, ID: int64(id)}
	tx.track(ref, &txEntity{
		created: true,
		after:   &record{ID: ref.ID, Properties: make(map[string]fulltextmodels.Value)},
	})

	return ref.ID, nil
}

// CreateRelationship links two existing nodes.
func (tx *Tx) CreateRelationship(start, end int64, relType string) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	for _, node := range []int64{start, end} {
		if _, err := tx.load(EntityRef{Kind: fulltextmodels.Node, ID: node}); err != nil {
			return 0, errorsx.Wrapf(err, "relationship endpoint")
		}
	}

	id, err := tx.store.relSeq.Next()
	if err != nil {
		return 0, errorsx.Wrapf(err, "failed to allocate relationship id")
	}

	ref := EntityRef{Kind: fulltextmodels.Relationship, ID: int64(id)}
	tx.track(ref, &txEntity{
		created: true,
		after: &record{
			ID:         ref.ID,
			Type:       relType,
			Start:      start,
			End:        end,
			Properties: make(map[string]fulltextmodels.Value),
		},
	})

	return ref.ID, nil
}

// SetProperty stores a string, number, boolean or homogeneous array value.
func (tx *Tx) SetProperty(kind fulltextmodels.EntityKind, id int64, name string, value any) error {
	if err := tx.check(); err != nil {
		return err
	}

	normalized, err := fulltextmodels.NormalizeValue(value)
	if err != nil {
		return errorsx.Wrapf(err, "property %s of %s", name, EntityRef{Kind: kind, ID: id})
	}

	entity, err := tx.load(EntityRef{Kind: kind, ID: id})
	if err != nil {
		return err
	}
	entity.after.Properties[name] = normalized

	return nil
}

func (tx *Tx) RemoveProperty(kind fulltextmodels.EntityKind, id int64, name string) error {
	if err := tx.check(); err != nil {
		return err
	}

	entity, err := tx.load(EntityRef{Kind: kind, ID: id})
	if err != nil {
		return err
	}
	delete(entity.after.Properties, name)

	return nil
}

func (tx *Tx) Delete(kind fulltextmodels.EntityKind, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}

	entity, err := tx.load(EntityRef{Kind: kind, ID: id})
	if err != nil {
		return err
	}
	entity.deleted = true
	entity.after = nil

	return nil
}

// Get reads an entity as this transaction sees it.
func (tx *Tx) Get(kind fulltextmodels.EntityKind, id int64) (*fulltextmodels.Entity, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}

	entity, err := tx.load(EntityRef{Kind: kind, ID: id})
	if err != nil {
		return nil, err
	}

	return entity.after.entity(kind), nil
}

// Commit persists every buffered write atomically and publishes the
// resulting CommitEvent.
func (tx *Tx) Commit() error {
	if err := tx.check(); err != nil {
		return err
	}
	tx.done = true
	defer tx.release()

	s := tx.store
	s.commitMtx.Lock()
	defer s.commitMtx.Unlock()

	if s.closed.Load() {
		return ErrStoreClosed
	}

	ev := tx.event()
	if err := s.db.Update(func(txn *badger.Txn) error {
		for _, ref := range tx.order {
			entity := tx.entities[ref]
			switch {
			case entity.created && entity.deleted:
				continue
			case entity.deleted:
				if err := txn.Delete(entityKey(ref)); err != nil {
					return err
				}
			default:
				bs, err := s.serializer.Serialize(entity.after)
				if err != nil {
					return err
				}
				if err = txn.Set(entityKey(ref), bs); err != nil {
					return err
				}
			}
		}

		return nil
	}); err != nil {
		return errorsx.Wrapf(err, "failed to commit transaction %d", tx.id)
	}

	if len(ev.Changes) > 0 || len(ev.Created) > 0 || len(ev.Deleted) > 0 {
		s.publish(ev)
	}

	return nil
}

// Rollback discards the buffered writes. It is safe to call after Commit.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}

	tx.done = true
	tx.release()
}

func (tx *Tx) event() *CommitEvent {
	ev := &CommitEvent{
		TxID:      tx.id,
		Snapshots: make(map[EntityRef]*fulltextmodels.Entity),
	}

	for _, ref := range tx.order {
		entity := tx.entities[ref]
		if entity.created && entity.deleted {
			continue
		}

		switch {
		case entity.created:
			ev.Created = append(ev.Created, ref)
		case entity.deleted:
			ev.Deleted = append(ev.Deleted, ref)
		}

		ev.Changes = append(ev.Changes, diff(ref, entity.before, entity.after)...)
		if !entity.deleted {
			ev.Snapshots[ref] = entity.after.entity(ref.Kind)
		}
	}

	return ev
}

// diff reports the properties that differ between two states in name order.
func diff(ref EntityRef, before, after *record) []Change {
	var oldProps, newProps map[string]fulltextmodels.Value
	if before != nil {
		oldProps = before.Properties
	}
	if after != nil {
		newProps = after.Properties
	}

	names := make([]string, 0, len(oldProps)+len(newProps))
	for name := range oldProps {
		names = append(names, name)
	}
	for name := range newProps {
		if _, ok := oldProps[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	changes := make([]Change, 0, len(names))
	for _, name := range names {
		oldValue, hadOld := oldProps[name]
		newValue, hasNew := newProps[name]
		if hadOld && hasNew && oldValue.Equal(newValue) {
			continue
		}

		changes = append(changes, Change{
			EntityID: ref.ID,
			Kind:     ref.Kind,
			Property: name,
			Old:      oldValue,
			New:      newValue,
			HadOld:   hadOld,
			HasNew:   hasNew,
		})
	}

	return changes
}

func (tx *Tx) check() error {
	if tx.done {
		return ErrTxFinished
	}
	if tx.store.closed.Load() {
		return ErrStoreClosed
	}

	return nil
}

func (tx *Tx) track(ref EntityRef, entity *txEntity) {
	tx.store.locks.Lock(ref, tx.id)
	tx.locked = append(tx.locked, ref)
	tx.entities[ref] = entity
	tx.order = append(tx.order, ref)
}

// load returns the transaction view of an entity, locking it on first use.
func (tx *Tx) load(ref EntityRef) (*txEntity, error) {
	if entity, ok := tx.entities[ref]; ok {
		if entity.deleted {
			return nil, errorsx.Wrapf(fulltextmodels.ErrEntityNotFound, "%s", ref)
		}

		return entity, nil
	}

	tx.store.locks.Lock(ref, tx.id)
	rec, err := tx.store.read(ref)
	if err != nil {
		tx.store.locks.Unlock(ref)
		return nil, err
	}

	entity := &txEntity{before: rec, after: rec.clone()}
	tx.locked = append(tx.locked, ref)
	tx.entities[ref] = entity
	tx.order = append(tx.order, ref)

	return entity, nil
}

func (tx *Tx) release() {
	for _, ref := range tx.locked {
		tx.store.locks.Unlock(ref)
	}
	tx.locked = nil
}
