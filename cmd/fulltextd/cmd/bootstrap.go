package cmd

import (
	"context"
	"sync"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/options"

	"gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/datastore/graphstore"
	fulltextapplier "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/applier"
	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextprovider "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/provider"
	fulltextconfig "gitlab.com/pietroski-software-company/lightning-fulltext/internal/config/fulltext"
)

type engine struct {
	store    *graphstore.Store
	provider *fulltextprovider.Provider
	once     *sync.Once
}

// openEngine opens the graph store and registers every configured index.
// The provider is not initialized yet.
func openEngine(ctx context.Context, cfg *fulltextconfig.Config) (*engine, error) {
	identities, err := cfg.Fulltext.Index.Identities()
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "opening graph store", "path", cfg.Fulltext.Store.Path)
	store, err := graphstore.Open(ctx,
		graphstore.WithPath(cfg.Fulltext.Store.Path),
		graphstore.WithLogger(logger),
	)
	if err != nil {
		return nil, errorsx.Wrap(err, "failed to open graph store")
	}
	store.MarkAvailable()

	provider := fulltextprovider.New(ctx, store,
		fulltextprovider.WithPath(cfg.Fulltext.Index.Path),
		fulltextprovider.WithLogger(logger),
		fulltextprovider.WithApplierOptions(applierOptions(cfg.Fulltext.Applier)...),
		fulltextprovider.WithIndexOptions(indexOptions(cfg.Fulltext.Index)...),
	)

	e := &engine{store: store, provider: provider, once: new(sync.Once)}
	for _, identity := range identities {
		if err = provider.Register(ctx, identity); err != nil {
			e.close(ctx)
			return nil, err
		}
	}

	return e, nil
}

func applierOptions(cfg *fulltextconfig.Applier) []options.Option {
	if cfg == nil {
		return nil
	}

	var opts []options.Option
	if cfg.QueueSize > 0 {
		opts = append(opts, fulltextapplier.WithQueueSize(cfg.QueueSize))
	}
	if cfg.PopulationBatchSize > 0 {
		opts = append(opts, fulltextapplier.WithPopulationBatchSize(cfg.PopulationBatchSize))
	}
	if cfg.ScanLimit > 0 {
		opts = append(opts, fulltextapplier.WithScanLimit(cfg.ScanLimit))
	}

	return opts
}

func indexOptions(cfg *fulltextconfig.Index) []options.Option {
	if cfg.MaxEdits > 0 {
		return []options.Option{fulltextindex.WithMaxEdits(cfg.MaxEdits)}
	}

	return nil
}

func (e *engine) close(ctx context.Context) {
	e.once.Do(func() {
		e.provider.Close(ctx)
		if err := e.store.Close(); err != nil {
			logger.Error(ctx, "failed to close graph store", "error", err)
		}
	})
}
