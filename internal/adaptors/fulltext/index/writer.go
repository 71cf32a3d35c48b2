package fulltextindex

import (
	"context"
	"errors"
	"math"

	"github.com/dgraph-io/badger/v4"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

// Upsert replaces the document of the operation's entity.
// Properties outside the index's property set are ignored; an operation left
// with no indexable text removes the document.
func (idx *Index) Upsert(ctx context.Context, op *fulltextmodels.Operation) error {
	if op.IsDeletion() {
		return idx.Delete(ctx, op.EntityID)
	}

	doc, err := idx.buildDocument(op)
	if err != nil {
		return err
	}
	if len(doc.Fields) == 0 {
		return idx.Delete(ctx, op.EntityID)
	}

	bs, err := idx.serializer.Serialize(doc)
	if err != nil {
		return errorsx.Wrapf(fulltextmodels.ErrDocumentApplication,
			"entity %d on %s: serialize: %v", op.EntityID, idx.identity.Key(), err)
	}

	return idx.update(ctx, op.EntityID, func(txn *badger.Txn) error {
		if err := idx.removeDocument(txn, op.EntityID); err != nil {
			return err
		}

		return idx.insertDocument(txn, op.EntityID, doc, bs)
	})
}

func (idx *Index) Delete(ctx context.Context, entityID int64) error {
	return idx.update(ctx, entityID, func(txn *badger.Txn) error {
		return idx.removeDocument(txn, entityID)
	})
}

// Clear drops every document while keeping the index identity and state.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	if idx.closed.Load() {
		return idx.closedErr()
	}

	prefixes := [][]byte{
		[]byte(docCountKey),
		[]byte(fieldStatsPrefix),
		[]byte(termPrefix),
		[]byte(documentPrefix),
		[]byte(postingPrefix),
	}
	if err := idx.db.DropPrefix(prefixes...); err != nil {
		return idx.corruption("failed to clear index", err)
	}

	idx.logger.Debug(ctx, "fulltext index cleared", "index", idx.identity.Key())

	return nil
}

func (idx *Index) update(ctx context.Context, entityID int64, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return errorsx.Wrapf(fulltextmodels.ErrDocumentApplication,
			"entity %d on %s: %v", entityID, idx.identity.Key(), err)
	}

	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	if idx.closed.Load() {
		return idx.closedErr()
	}

	if err := idx.db.Update(fn); err != nil {
		return idx.classify(entityID, err)
	}

	return nil
}

// classify tells a failure of one document apart from a broken index.
func (idx *Index) classify(entityID int64, err error) error {
	switch {
	case errorsx.Is(err, fulltextmodels.ErrIndexCorruption),
		errorsx.Is(err, fulltextmodels.ErrDocumentApplication):
		return err
	case errors.Is(err, badger.ErrTxnTooBig),
		errors.Is(err, badger.ErrConflict),
		errors.Is(err, badger.ErrEmptyKey),
		errors.Is(err, badger.ErrInvalidKey):
		return errorsx.Wrapf(fulltextmodels.ErrDocumentApplication,
			"entity %d on %s: %v", entityID, idx.identity.Key(), err)
	default:
		return idx.corruption("failed to write", err)
	}
}

func (idx *Index) buildDocument(op *fulltextmodels.Operation) (*storedDocument, error) {
	doc := &storedDocument{Fields: make(map[string]map[string]uint32)}
	for _, property := range op.Properties {
		if !idx.identity.Indexes(property.Name) {
			continue
		}

		value, err := fulltextmodels.NormalizeValue(property.Value)
		if err != nil {
			return nil, errorsx.Wrapf(fulltextmodels.ErrDocumentApplication,
				"entity %d on %s: property %s: %v", op.EntityID, idx.identity.Key(), property.Name, err)
		}

		for _, text := range value.Strings() {
			for _, token := range Analyze(text) {
				tfs, ok := doc.Fields[property.Name]
				if !ok {
					tfs = make(map[string]uint32)
					doc.Fields[property.Name] = tfs
				}
				if tfs[token] == math.MaxUint32 {
					continue
				}
				tfs[token]++
			}
		}
	}

	return doc, nil
}

func (idx *Index) insertDocument(txn *badger.Txn, entityID int64, doc *storedDocument, bs []byte) error {
	for field, tfs := range doc.Fields {
		length := doc.fieldLen(field)
		for term, tf := range tfs {
			p := posting{tf: tf, fieldLen: length}
			if err := txn.Set(postingKey(term, field, entityID), p.encode()); err != nil {
				return err
			}
		}

		if err := idx.addFieldStats(txn, field, 1, int64(length)); err != nil {
			return err
		}
	}

	for term := range doc.terms() {
		if err := addCounter(txn, termKey(term), 1); err != nil {
			return err
		}
	}

	if err := addCounter(txn, []byte(docCountKey), 1); err != nil {
		return err
	}

	return txn.Set(documentKey(entityID), bs)
}

// removeDocument undoes insertDocument; a missing document is not an error.
func (idx *Index) removeDocument(txn *badger.Txn, entityID int64) error {
	item, err := txn.Get(documentKey(entityID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var doc storedDocument
	if err = item.Value(func(val []byte) error {
		return idx.serializer.Deserialize(val, &doc)
	}); err != nil {
		return errorsx.Wrapf(fulltextmodels.ErrIndexCorruption,
			"stored document %d on %s: %v", entityID, idx.identity.Key(), err)
	}

	for field, tfs := range doc.Fields {
		for term := range tfs {
			if err = txn.Delete(postingKey(term, field, entityID)); err != nil {
				return err
			}
		}

		if err = idx.addFieldStats(txn, field, -1, -int64(doc.fieldLen(field))); err != nil {
			return err
		}
	}

	for term := range doc.terms() {
		if err = addCounter(txn, termKey(term), -1); err != nil {
			return err
		}
	}

	if err = addCounter(txn, []byte(docCountKey), -1); err != nil {
		return err
	}

	return txn.Delete(documentKey(entityID))
}

func (idx *Index) addFieldStats(txn *badger.Txn, field string, docs, tokens int64) error {
	stats, err := readFieldStats(txn, field)
	if err != nil {
		return err
	}

	stats.docs = applyDelta(stats.docs, docs)
	stats.tokens = applyDelta(stats.tokens, tokens)
	if stats.docs == 0 {
		return txn.Delete(fieldStatsKey(field))
	}

	return txn.Set(fieldStatsKey(field), stats.encode())
}

// addCounter adjusts a counter key, deleting it once it drops to zero.
func addCounter(txn *badger.Txn, key []byte, delta int64) error {
	current, err := readCounter(txn, key)
	if err != nil {
		return err
	}

	next := applyDelta(current, delta)
	if next == 0 {
		return txn.Delete(key)
	}

	return txn.Set(key, encodeUint64(next))
}

func applyDelta(v uint64, delta int64) uint64 {
	if delta < 0 && uint64(-delta) > v {
		return 0
	}

	return uint64(int64(v) + delta)
}

func readCounter(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var v uint64
	err = item.Value(func(val []byte) error {
		v, err = decodeUint64(val)
		return err
	})

	return v, err
}

func readFieldStats(txn *badger.Txn, field string) (fieldStats, error) {
	item, err := txn.Get(fieldStatsKey(field))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fieldStats{}, nil
	}
	if err != nil {
		return fieldStats{}, err
	}

	var stats fieldStats
	err = item.Value(func(val []byte) error {
		stats, err = decodeFieldStats(val)
		return err
	})

	return stats, err
}
