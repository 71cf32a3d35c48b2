package fulltextapplier

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

// PopulationJob tracks one population scan. It completes once the whole
// scan has been enqueued, not once it has been applied; a barrier written
// after Wait returns covers every population operation.
type PopulationJob struct {
	id       uuid.UUID
	identity fulltextmodels.IndexIdentity

	once *sync.Once
	done chan struct{}
	err  error

	// written by the scanner before the end marker is enqueued.
	scanErr error
	count   int
}

func newPopulationJob(identity fulltextmodels.IndexIdentity) *PopulationJob {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &PopulationJob{
		id:       id,
		identity: identity,
		once:     new(sync.Once),
		done:     make(chan struct{}),
	}
}

func (j *PopulationJob) ID() string {
	return j.id.String()
}

func (j *PopulationJob) Identity() fulltextmodels.IndexIdentity {
	return j.identity
}

func (j *PopulationJob) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the scan is enqueued. A failed scan surfaces as ErrPopulation.
func (j *PopulationJob) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return errorsx.Wrapf(ctx.Err(), "population job %s", j.id)
	}
}

func (j *PopulationJob) finish(err error) {
	j.once.Do(func() {
		j.err = err
		close(j.done)
	})
}

// PopulateNodes backfills a node index from the store in the background.
func (a *Applier) PopulateNodes(
	ctx context.Context,
	writer fulltextindex.Writable,
	store Enumerator,
) *PopulationJob {
	return a.populate(ctx, fulltextmodels.Node, writer, store)
}

// PopulateRelationships backfills a relationship index from the store in the background.
func (a *Applier) PopulateRelationships(
	ctx context.Context,
	writer fulltextindex.Writable,
	store Enumerator,
) *PopulationJob {
	return a.populate(ctx, fulltextmodels.Relationship, writer, store)
}

func (a *Applier) populate(
	ctx context.Context,
	kind fulltextmodels.EntityKind,
	writer fulltextindex.Writable,
	store Enumerator,
) *PopulationJob {
	identity := writer.Identity()
	job := newPopulationJob(identity)

	if identity.Kind != kind {
		job.finish(errorsx.Wrapf(fulltextmodels.ErrPopulation,
			"index %s holds %s, not %s", identity.Key(), identity.Kind, kind))
		return job
	}

	a.scanMtx.Lock()
	defer a.scanMtx.Unlock()

	a.mtx.RLock()
	state := a.state
	a.mtx.RUnlock()

	switch {
	case state == created:
		job.finish(errorsx.Wrapf(fulltextmodels.ErrPopulation, "index %s: %v", identity.Key(), ErrNotStarted))
		return job
	case state == stopped, a.scansClosed:
		job.finish(errorsx.Wrapf(fulltextmodels.ErrPopulation,
			"index %s: %v", identity.Key(), fulltextmodels.ErrApplierStopped))
		return job
	}

	a.logger.Debug(ctx, "scheduling fulltext index population", "index", identity.Key(), "job", job.ID())
	scanCtx := a.scanCtx
	a.scanners.Op(func() {
		err := a.scan(scanCtx, job, writer, store)
		if err != nil {
			a.logger.Error(scanCtx, "fulltext index population failed",
				"index", identity.Key(), "job", job.ID(), "error", err)
		}
		job.finish(err)
	})

	return job
}

func (a *Applier) scan(
	ctx context.Context,
	job *PopulationJob,
	writer fulltextindex.Writable,
	store Enumerator,
) error {
	identity := writer.Identity()
	key := identity.Key()

	if err := a.enqueue(ctx, &workItem{
		typ:        populationStartItem,
		writer:     writer,
		population: job,
	}); err != nil {
		return errorsx.Wrapf(fulltextmodels.ErrPopulation, "index %s: %v", key, err)
	}

	var (
		scanErr error
		count   int
		batch   = make(fulltextmodels.Batch, 0, a.populationBatchSize)
	)
	flush := func() error {
		if err := a.enqueue(ctx, &workItem{
			typ:        batchItem,
			writer:     writer,
			batch:      batch,
			population: job,
		}); err != nil {
			return errorsx.Wrapf(fulltextmodels.ErrPopulation, "index %s: %v", key, err)
		}

		a.metrics.PopulatedEntities.WithLabelValues(key).Add(float64(len(batch)))
		count += len(batch)
		batch = make(fulltextmodels.Batch, 0, a.populationBatchSize)

		return nil
	}

	for entity, err := range store.Enumerate(ctx, identity.Kind) {
		if err != nil {
			// deleted while the scan was reading it.
			if errors.Is(err, fulltextmodels.ErrEntityNotFound) {
				a.metrics.SkippedEntities.WithLabelValues(key).Inc()
				continue
			}

			scanErr = errorsx.Wrapf(fulltextmodels.ErrPopulation, "index %s: %v", key, err)
			break
		}
		if entity == nil {
			continue
		}

		props := entity.Document(identity)
		if len(props) == 0 {
			a.metrics.SkippedEntities.WithLabelValues(key).Inc()
			continue
		}

		batch = append(batch, fulltextmodels.NewUpdate(identity.Kind, entity.ID, props...))
		if len(batch) >= a.populationBatchSize {
			if scanErr = flush(); scanErr != nil {
				break
			}
		}
	}
	if scanErr == nil && len(batch) > 0 {
		scanErr = flush()
	}

	job.scanErr = scanErr
	job.count = count
	if err := a.enqueue(ctx, &workItem{
		typ:        populationEndItem,
		writer:     writer,
		population: job,
	}); err != nil && scanErr == nil {
		return errorsx.Wrapf(fulltextmodels.ErrPopulation, "index %s: %v", key, err)
	}

	return scanErr
}
