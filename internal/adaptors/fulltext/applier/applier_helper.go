package fulltextapplier

import (
	"context"
	"maps"
	"strings"
	"time"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

// handleSafely keeps the worker alive when handling an item panics. A barrier
// caught in it still resolves so no waiter hangs.
func (a *Applier) handleSafely(ctx context.Context, item *workItem) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		err := errorsx.Wrapf(fulltextmodels.ErrDocumentApplication, "%s item panicked: %v", item.typ, r)
		a.logger.Error(ctx, "recovered from fulltext worker panic", "type", item.typ.String(), "error", err)
		if item.barrier != nil {
			item.barrier.resolve(err)
		}
	}()

	a.handle(ctx, item)
}

func (a *Applier) handle(ctx context.Context, item *workItem) {
	switch item.typ {
	case batchItem:
		a.applyBatch(ctx, item)
	case populationStartItem:
		a.startPopulation(ctx, item)
	case populationEndItem:
		a.endPopulation(ctx, item)
	case barrierItem:
		a.resolveBarrier(item)
	default:
		a.logger.Warn(ctx, "unknown work item type", "type", item.typ.String())
	}
}

func (a *Applier) stateOf(writer fulltextindex.Writable) (string, *indexState) {
	key := writer.Identity().Key()
	state, ok := a.indexes.Get(key)
	if !ok {
		// Stop may have already released the writer.
		state = &indexState{writer: writer}
	}

	return key, state
}

func (a *Applier) applyBatch(ctx context.Context, item *workItem) {
	key, state := a.stateOf(item.writer)
	if state.dead {
		a.metrics.OperationsDropped.WithLabelValues(key).Add(float64(len(item.batch)))
		a.logger.Warn(ctx, "dropping operations for dead fulltext index",
			"index", key, "operations", len(item.batch))
		return
	}

	phase := item.phase()
	for idx, op := range item.batch {
		if op == nil {
			continue
		}
		if state.superseded(item, op) {
			a.metrics.SupersededEntities.WithLabelValues(key).Inc()
			continue
		}

		if err := a.apply(ctx, state.writer, op); err != nil {
			kind := fulltextmodels.Classify(err)
			a.metrics.OperationsFailed.WithLabelValues(key, phase, kind.String()).Inc()

			if kind == fulltextmodels.DocumentErrorKind {
				a.logger.Error(ctx, "failed to apply fulltext document",
					"index", key, "entity_id", op.EntityID, "phase", phase, "error", err)
				continue
			}

			a.markDead(ctx, key, state, err)
			if rest := len(item.batch) - idx - 1; rest > 0 {
				a.metrics.OperationsDropped.WithLabelValues(key).Add(float64(rest))
			}

			return
		}

		a.metrics.OperationsApplied.WithLabelValues(key, phase).Inc()
	}
}

func (a *Applier) apply(ctx context.Context, writer fulltextindex.Writable, op *fulltextmodels.Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errorsx.Wrapf(fulltextmodels.ErrDocumentApplication, "entity %d panicked: %v", op.EntityID, r)
		}
	}()

	if op.Kind != writer.Identity().Kind {
		return errorsx.Wrapf(fulltextmodels.ErrDocumentApplication,
			"entity %d is a %s entity, index %s holds %s",
			op.EntityID, op.Kind, writer.Identity().Key(), writer.Identity().Kind)
	}

	if op.IsDeletion() {
		return writer.Delete(ctx, op.EntityID)
	}

	return writer.Upsert(ctx, op)
}

func (a *Applier) startPopulation(ctx context.Context, item *workItem) {
	key, state := a.stateOf(item.writer)
	if state.dead {
		a.logger.Warn(ctx, "skipping population of dead fulltext index", "index", key)
		return
	}

	state.populating = true
	state.live = make(map[int64]struct{})
	if err := state.writer.Clear(ctx); err != nil {
		a.markDead(ctx, key, state, err)
		return
	}
	if err := state.writer.SetState(ctx, fulltextindex.StatePopulating); err != nil {
		a.markDead(ctx, key, state, err)
		return
	}

	a.logger.Debug(ctx, "fulltext index population started", "index", key, "job", item.population.ID())
}

func (a *Applier) endPopulation(ctx context.Context, item *workItem) {
	key, state := a.stateOf(item.writer)
	state.populating = false
	state.live = nil
	if state.dead {
		return
	}

	// a failed scan leaves the index marked as populating so the next
	// start backfills it again.
	if err := item.population.scanErr; err != nil {
		a.logger.Error(ctx, "fulltext index population aborted", "index", key, "error", err)
		return
	}

	if err := state.writer.SetState(ctx, fulltextindex.StateOnline); err != nil {
		a.markDead(ctx, key, state, err)
		return
	}

	a.logger.Debug(ctx, "fulltext index population finished",
		"index", key, "job", item.population.ID(), "entities", item.population.count)
}

func (a *Applier) markDead(ctx context.Context, key string, state *indexState, err error) {
	if state.populating {
		err = errorsx.Wrapf(fulltextmodels.ErrPopulation, "index %s: %v", key, err)
	}

	state.dead = true
	a.dead = append(a.dead, key)
	a.deadMtx.Lock()
	a.deadErrs[key] = err
	a.deadMtx.Unlock()
	a.metrics.DeadIndexes.Inc()
	a.logger.Error(ctx, "fulltext index marked as dead",
		"index", key, "phase", state.phase(), "error", err)

	if setErr := state.writer.SetState(ctx, fulltextindex.StateFailed); setErr != nil {
		a.logger.Warn(ctx, "failed to persist failed state", "index", key, "error", setErr)
	}
}

func (a *Applier) resolveBarrier(item *workItem) {
	a.metrics.BarrierDuration.Observe(time.Since(item.enqueuedAt).Seconds())

	if len(a.dead) == 0 {
		item.barrier.resolve(nil)
		return
	}

	item.barrier.resolve(errorsx.Wrapf(fulltextmodels.ErrIndexDead, "%s", strings.Join(a.dead, ", ")))
}

// DeadIndexes reports the failure of every index the worker gave up on.
func (a *Applier) DeadIndexes() map[string]error {
	a.deadMtx.RLock()
	defer a.deadMtx.RUnlock()

	return maps.Clone(a.deadErrs)
}
