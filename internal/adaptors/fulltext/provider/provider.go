package fulltextprovider

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	"gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/datastore/graphstore"
	fulltextapplier "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/applier"
	changeextractor "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/extractor"
	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

var (
	ErrAlreadyInitialized = errorsx.New("fulltext provider is already initialized")
	ErrProviderClosed     = errorsx.New("fulltext provider is closed")
	ErrIndexExists        = errorsx.New("fulltext index is already registered")
)

type (
	// Store is the host store as seen by the fulltext layer: an enumeration
	// source for population, a commit event feed and an availability gate.
	Store interface {
		fulltextapplier.Enumerator
		Subscribe() (*graphstore.Subscription, error)
		WaitAvailable(ctx context.Context) error
	}

	// Status is a point in time view of one registered index.
	Status struct {
		Identity fulltextmodels.IndexIdentity
		State    fulltextindex.State
		Err      error
	}

	// Provider owns the fulltext indexes of one store together with the applier
	// that writes them and the extractor that feeds it.
	Provider struct {
		store Store

		path        string
		inMemory    bool
		applierOpts []options.Option
		indexOpts   []options.Option

		mtx         *sync.RWMutex
		initialized bool
		closed      bool
		handles     map[string]*fulltextindex.Index
		order       []string
		jobs        []*fulltextapplier.PopulationJob

		indexes   *changeextractor.IndexSet
		applier   *fulltextapplier.Applier
		extractor *changeextractor.Extractor

		subscription *graphstore.Subscription
		listening    chan struct{}

		logger slogx.SLogger
	}
)

func New(_ context.Context, store Store, opts ...options.Option) *Provider {
	p := &Provider{
		store:   store,
		mtx:     new(sync.RWMutex),
		handles: make(map[string]*fulltextindex.Index),
		indexes: changeextractor.NewIndexSet(),
		logger:  slogx.New(),
	}
	options.ApplyOptions(p, opts...)

	p.applier = fulltextapplier.New(append(
		[]options.Option{fulltextapplier.WithLogger(p.logger)}, p.applierOpts...,
	)...)
	p.extractor = changeextractor.New(p.indexes, p.applier, changeextractor.WithLogger(p.logger))

	return p
}

func (p *Provider) Metrics() *fulltextapplier.Metrics {
	return p.applier.Metrics()
}

// Register opens the index for the given identity and makes it a target of
// the change feed. Indexes registered after Init are populated right away.
func (p *Provider) Register(ctx context.Context, identity fulltextmodels.IndexIdentity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.closed {
		return ErrProviderClosed
	}
	key := identity.Key()
	if _, ok := p.handles[key]; ok {
		return errorsx.Wrapf(ErrIndexExists, "%s", key)
	}

	idx, err := fulltextindex.Open(ctx, identity, p.indexOptions(identity)...)
	if err != nil {
		return errorsx.Wrapf(err, "failed to open fulltext index %s", key)
	}

	p.handles[key] = idx
	p.order = append(p.order, key)
	p.indexes.Add(idx.Writer())
	p.logger.Debug(ctx, "fulltext index registered",
		"index", key, "properties", identity.Properties, "needs_population", idx.NeedsPopulation())

	if p.initialized && idx.NeedsPopulation() {
		p.jobs = append(p.jobs, p.populate(ctx, idx))
	}

	return nil
}

func (p *Provider) indexOptions(identity fulltextmodels.IndexIdentity) []options.Option {
	opts := []options.Option{fulltextindex.WithLogger(p.logger)}
	if p.inMemory {
		opts = append(opts, fulltextindex.WithInMemory())
	} else {
		opts = append(opts, fulltextindex.WithPath(
			filepath.Join(p.path, strings.ToLower(identity.Kind.String()), identity.Name)))
	}

	return append(opts, p.indexOpts...)
}

// Init starts the applier and subscribes to the store before any population
// is scheduled, so no commit lands between the scan and the live feed.
// Population itself runs in the background; see AwaitPopulation.
func (p *Provider) Init(ctx context.Context) error {
	if err := p.listen(ctx); err != nil {
		return err
	}

	if err := p.store.WaitAvailable(ctx); err != nil {
		return errorsx.Wrap(err, "store did not become available")
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.closed {
		return ErrProviderClosed
	}

	for _, key := range p.order {
		if idx := p.handles[key]; idx.NeedsPopulation() {
			p.jobs = append(p.jobs, p.populate(ctx, idx))
		}
	}
	p.initialized = true

	p.logger.Debug(ctx, "fulltext provider initialized", "indexes", len(p.order), "populations", len(p.jobs))

	return nil
}

func (p *Provider) listen(ctx context.Context) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	switch {
	case p.closed:
		return ErrProviderClosed
	case p.subscription != nil:
		return ErrAlreadyInitialized
	}

	if err := p.applier.Start(ctx); err != nil {
		return errorsx.Wrap(err, "failed to start update applier")
	}

	sub, err := p.store.Subscribe()
	if err != nil {
		p.applier.Stop(ctx)
		return errorsx.Wrap(err, "failed to subscribe to store changes")
	}
	p.subscription = sub
	p.listening = make(chan struct{})
	go func() {
		defer close(p.listening)
		p.extractor.Listen(context.WithoutCancel(ctx), sub.Events())
	}()

	return nil
}

func (p *Provider) populate(ctx context.Context, idx *fulltextindex.Index) *fulltextapplier.PopulationJob {
	if idx.Identity().Kind == fulltextmodels.Relationship {
		return p.applier.PopulateRelationships(ctx, idx.Writer(), p.store)
	}

	return p.applier.PopulateNodes(ctx, idx.Writer(), p.store)
}

// AwaitPopulation waits for every scheduled population and then for the
// applier to catch up with everything enqueued so far.
func (p *Provider) AwaitPopulation(ctx context.Context) error {
	p.mtx.RLock()
	jobs := slices.Clone(p.jobs)
	p.mtx.RUnlock()

	var errs error
	for _, job := range jobs {
		if err := job.Wait(ctx); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	if err := p.applier.WriteBarrier(ctx).AwaitCompletion(ctx); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// Sync waits until every commit delivered so far has been submitted by the
// extractor and then applied. Reads opened afterwards observe those commits.
func (p *Provider) Sync(ctx context.Context) error {
	p.mtx.RLock()
	sub := p.subscription
	p.mtx.RUnlock()

	if sub == nil {
		return fulltextapplier.ErrNotStarted
	}

	if err := p.extractor.WaitHandled(ctx, sub.Delivered()); err != nil {
		return err
	}

	return p.applier.WriteBarrier(ctx).AwaitCompletion(ctx)
}

// WriteBarrier exposes the applier barrier for callers that need their own
// writes to be visible before reading.
func (p *Provider) WriteBarrier(ctx context.Context) *fulltextapplier.Barrier {
	return p.applier.WriteBarrier(ctx)
}

// Reader opens a read only snapshot of the named index.
func (p *Provider) Reader(name string, kind fulltextmodels.EntityKind) (fulltextindex.ReadOnly, error) {
	key := fulltextmodels.IndexIdentity{Name: name, Kind: kind}.Key()

	p.mtx.RLock()
	idx, ok := p.handles[key]
	closed := p.closed
	p.mtx.RUnlock()

	if closed {
		return nil, ErrProviderClosed
	}
	if !ok {
		return nil, errorsx.Wrapf(fulltextmodels.ErrIndexNotFound, "%s", key)
	}

	reader, err := idx.NewReader()
	if err != nil {
		return nil, err
	}

	return reader, nil
}

// Indexes reports every registered index in registration order.
func (p *Provider) Indexes(ctx context.Context) []Status {
	p.mtx.RLock()
	defer p.mtx.RUnlock()

	dead := p.applier.DeadIndexes()
	statuses := make([]Status, 0, len(p.order))
	for _, key := range p.order {
		idx := p.handles[key]
		status := Status{Identity: idx.Identity(), Err: dead[key]}
		if status.Err != nil {
			status.State = fulltextindex.StateFailed
		} else {
			status.State, status.Err = idx.State(ctx)
		}

		statuses = append(statuses, status)
	}

	return statuses
}

// Close detaches from the store, drains the applier and closes every index.
// Failures are logged and never returned.
func (p *Provider) Close(ctx context.Context) {
	p.mtx.Lock()
	if p.closed {
		p.mtx.Unlock()
		return
	}
	p.closed = true
	sub, listening := p.subscription, p.listening
	p.mtx.Unlock()

	if sub != nil {
		sub.Close()
		<-listening
	}

	p.applier.Stop(ctx)

	p.mtx.Lock()
	defer p.mtx.Unlock()

	for _, key := range p.order {
		p.indexes.Remove(p.handles[key].Identity())
		if err := p.handles[key].Close(); err != nil {
			p.logger.Error(ctx, "failed to close fulltext index", "index", key, "error", err)
		}
	}

	p.logger.Debug(ctx, "fulltext provider closed")
}
