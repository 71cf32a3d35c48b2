package fulltextapplier

import (
	"context"
	"sync"
	"time"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/loop"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"
	"gitlab.com/pietroski-software-company/golang/devex/syncx"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const (
	defaultQueueSize           = 1 << 12
	defaultPopulationBatchSize = 1 << 9
	defaultScanLimit           = 1 << 2

	workerThread = "fulltext-applier-worker"
)

var ErrNotStarted = errorsx.New("update applier has not been started")

type lifecycle uint8

const (
	created lifecycle = iota
	running
	stopped
)

// Applier serializes every mutation of the indexes it knows about onto a
// single worker. Producers submit batches concurrently; the worker applies
// them in enqueue order across all indexes.
type Applier struct {
	mtx      *sync.RWMutex
	state    lifecycle
	stopOnce *sync.Once

	queueSize           int
	populationBatchSize int
	scanLimit           int

	queue  *syncx.Channel[*workItem]
	worker *syncx.OffThread

	scanMtx     *sync.Mutex
	scansClosed bool
	scanCtx     context.Context
	scanCancel  context.CancelFunc
	scanners    *syncx.OffThread

	regMtx  *sync.Mutex
	indexes *syncx.GenericMap[*indexState]
	// dead is only touched by the worker.
	dead     []string
	deadMtx  *sync.RWMutex
	deadErrs map[string]error

	metrics *Metrics
	logger  slogx.SLogger
}

func New(opts ...options.Option) *Applier {
	a := &Applier{
		mtx:                 new(sync.RWMutex),
		stopOnce:            new(sync.Once),
		regMtx:              new(sync.Mutex),
		queueSize:           defaultQueueSize,
		populationBatchSize: defaultPopulationBatchSize,
		scanLimit:           defaultScanLimit,
		scanMtx:             new(sync.Mutex),
		deadMtx:             new(sync.RWMutex),
		deadErrs:            make(map[string]error),
		indexes:             syncx.NewGenericMap[*indexState](),
		metrics:             NewMetrics(),
		logger:              slogx.New(),
	}
	options.ApplyOptions(a, opts...)

	return a
}

func (a *Applier) Metrics() *Metrics {
	return a.metrics
}

// Start launches the worker. Calling it on a running applier is a no-op.
func (a *Applier) Start(ctx context.Context) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	switch a.state {
	case running:
		return nil
	case stopped:
		return fulltextmodels.ErrApplierStopped
	}

	a.queue = syncx.NewChannel[*workItem](syncx.WithChannelSize[*workItem](a.queueSize))
	a.worker = syncx.NewThreadOperator(workerThread, syncx.WithThreadLimit(1))
	a.scanners = syncx.NewThreadOperator("fulltext-population", syncx.WithThreadLimit(a.scanLimit))
	a.scanCtx, a.scanCancel = context.WithCancel(context.WithoutCancel(ctx))

	// the worker only ends when the queue is closed, so it outlives ctx.
	workerCtx := loop.WithThread(context.WithoutCancel(ctx), workerThread)
	a.worker.Op(func() {
		loop.RunFromChannel(workerCtx, a.queue.Ch, func(item *workItem) {
			a.metrics.QueueDepth.Dec()
			a.handleSafely(workerCtx, item)
		})
	})

	a.state = running
	a.logger.Debug(ctx, "update applier started", "queue_size", a.queueSize)

	return nil
}

// Stop cancels in-flight population scans, lets the worker drain whatever
// was already enqueued and closes every index writer it knows of.
// It never fails; close errors are logged.
func (a *Applier) Stop(ctx context.Context) {
	a.mtx.Lock()
	if a.state == created {
		a.state = stopped
		a.mtx.Unlock()
		return
	}
	a.mtx.Unlock()

	a.stopOnce.Do(func() {
		a.stop(ctx)
	})
}

func (a *Applier) stop(ctx context.Context) {
	a.scanMtx.Lock()
	a.scansClosed = true
	a.scanMtx.Unlock()
	a.scanCancel()
	a.scanners.Wait()

	a.mtx.Lock()
	a.state = stopped
	a.queue.Close()
	a.mtx.Unlock()

	a.worker.Wait()

	a.indexes.RangeAndDelete(func(key string, state *indexState) bool {
		if err := state.writer.Close(); err != nil {
			a.logger.Error(ctx, "failed to close fulltext index", "index", key, "error", err)
		}

		return true
	})

	a.logger.Debug(ctx, "update applier stopped")
}

// Submit enqueues the batch as one indivisible unit for the given writer.
// It returns once the batch is queued, not once it is applied, and blocks
// only while the queue is full.
func (a *Applier) Submit(ctx context.Context, writer fulltextindex.Writable, batch fulltextmodels.Batch) error {
	if len(batch) == 0 {
		a.mtx.RLock()
		defer a.mtx.RUnlock()

		return a.checkRunning()
	}

	return a.enqueue(ctx, &workItem{
		typ:    batchItem,
		writer: writer,
		batch:  batch,
	})
}

// WriteBarrier enqueues a barrier behind everything submitted so far.
// On an applier that is not running the barrier is already resolved.
func (a *Applier) WriteBarrier(ctx context.Context) *Barrier {
	barrier := newBarrier()
	if err := a.enqueue(ctx, &workItem{
		typ:     barrierItem,
		barrier: barrier,
	}); err != nil {
		barrier.resolve(err)
	}

	return barrier
}

// checkRunning must be called with mtx held.
func (a *Applier) checkRunning() error {
	switch a.state {
	case created:
		return ErrNotStarted
	case stopped:
		return fulltextmodels.ErrApplierStopped
	}

	return nil
}

func (a *Applier) enqueue(ctx context.Context, item *workItem) error {
	a.mtx.RLock()
	defer a.mtx.RUnlock()

	if err := a.checkRunning(); err != nil {
		return err
	}
	// select picks at random when both cases are ready.
	if err := ctx.Err(); err != nil {
		return errorsx.Wrapf(err, "failed to enqueue %s", item.typ)
	}

	if item.writer != nil {
		a.register(item.writer)
	}

	item.enqueuedAt = time.Now()
	a.metrics.QueueDepth.Inc()
	select {
	case a.queue.Ch <- item:
		return nil
	case <-ctx.Done():
		a.metrics.QueueDepth.Dec()
		return errorsx.Wrapf(ctx.Err(), "failed to enqueue %s", item.typ)
	}
}

func (a *Applier) register(writer fulltextindex.Writable) {
	a.regMtx.Lock()
	defer a.regMtx.Unlock()

	key := writer.Identity().Key()
	if _, ok := a.indexes.Get(key); ok {
		return
	}

	a.indexes.Set(key, &indexState{writer: writer})
}
