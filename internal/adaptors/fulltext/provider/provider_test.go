package fulltextprovider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	"gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/datastore/graphstore"
	fulltextapplier "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/applier"
	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const zebroid = "A zebroid (also zedonk, zorse, zebra mule, zonkey, and zebmule) is the offspring of any cross " +
	"between a zebra and any other equine: essentially, a zebra hybrid."

func testLogger() slogx.SLogger {
	return slogx.New(slogx.WithSLogLevel(slogx.LevelTest))
}

func testCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func newTestStore(t *testing.T) *graphstore.Store {
	t.Helper()

	s, err := graphstore.Open(context.Background(), graphstore.WithInMemory(), graphstore.WithLogger(testLogger()))
	require.NoError(t, err)
	s.MarkAvailable()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func newTestProvider(t *testing.T, store Store, identities ...fulltextmodels.IndexIdentity) *Provider {
	t.Helper()

	p := newProvider(t, store, WithInMemory())
	for _, identity := range identities {
		require.NoError(t, p.Register(testCtx(t), identity))
	}

	return p
}

func newProvider(t *testing.T, store Store, opts ...options.Option) *Provider {
	t.Helper()

	p := New(context.Background(), store, append([]options.Option{WithLogger(testLogger())}, opts...)...)
	t.Cleanup(func() {
		p.Close(context.Background())
	})

	return p
}

func identity(t *testing.T, name string, kind fulltextmodels.EntityKind, properties ...string) fulltextmodels.IndexIdentity {
	t.Helper()

	id, err := fulltextmodels.NewIndexIdentity(name, kind, properties...)
	require.NoError(t, err)

	return id
}

func query(t *testing.T, p *Provider, name string, kind fulltextmodels.EntityKind, terms ...string) []int64 {
	t.Helper()

	reader, err := p.Reader(name, kind)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reader.Close())
	}()

	results, err := reader.Query(testCtx(t), terms...)
	require.NoError(t, err)
	ids, err := results.IDs()
	require.NoError(t, err)

	return ids
}

func fuzzyQuery(t *testing.T, p *Provider, name string, kind fulltextmodels.EntityKind, terms ...string) []int64 {
	t.Helper()

	reader, err := p.Reader(name, kind)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, reader.Close())
	}()

	results, err := reader.FuzzyQuery(testCtx(t), terms...)
	require.NoError(t, err)
	ids, err := results.IDs()
	require.NoError(t, err)

	return ids
}

// createNodes commits one node per value, each holding it under "prop".
func createNodes(t *testing.T, s *graphstore.Store, values ...any) []int64 {
	t.Helper()

	ids := make([]int64, 0, len(values))
	require.NoError(t, s.Update(testCtx(t), func(tx *graphstore.Tx) error {
		for _, value := range values {
			id, err := tx.CreateNode()
			if err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Node, id, "prop", value); err != nil {
				return err
			}
			ids = append(ids, id)
		}

		return nil
	}))

	return ids
}

func setProperty(t *testing.T, s *graphstore.Store, kind fulltextmodels.EntityKind, id int64, name string, value any) {
	t.Helper()

	require.NoError(t, s.Update(testCtx(t), func(tx *graphstore.Tx) error {
		return tx.SetProperty(kind, id, name, value)
	}))
}

func TestProvider_LiveUpdates(t *testing.T) {
	t.Run("finds committed strings", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		ids := createNodes(t, s, "Hello. Hello again.", zebroid)
		require.NoError(t, p.Sync(testCtx(t)))

		assert.Equal(t, []int64{ids[0]}, query(t, p, "nodes", fulltextmodels.Node, "hello"))
		assert.Equal(t, []int64{ids[1]}, query(t, p, "nodes", fulltextmodels.Node, "zebra"))
		assert.Equal(t, []int64{ids[1]}, query(t, p, "nodes", fulltextmodels.Node, "zedonk"))
		assert.Equal(t, []int64{ids[1]}, query(t, p, "nodes", fulltextmodels.Node, "cross"))
	})

	t.Run("numbers booleans and arrays are searchable as text", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		ids := createNodes(t, s, int64(1), int64(234), true, []int64{1, 27, 48}, []string{"live", "long"})
		require.NoError(t, p.Sync(testCtx(t)))

		assert.Equal(t, []int64{ids[0], ids[3]}, query(t, p, "nodes", fulltextmodels.Node, "1"))
		assert.Equal(t, []int64{ids[1]}, query(t, p, "nodes", fulltextmodels.Node, "234"))
		assert.Equal(t, []int64{ids[2]}, query(t, p, "nodes", fulltextmodels.Node, "true"))
		assert.Equal(t, []int64{ids[3]}, query(t, p, "nodes", fulltextmodels.Node, "27"))
		assert.Equal(t, []int64{ids[4]}, query(t, p, "nodes", fulltextmodels.Node, "live"))
	})

	t.Run("property changes replace the document", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		ids := createNodes(t, s, "Hello. Hello again.", zebroid)
		setProperty(t, s, fulltextmodels.Node, ids[0], "prop", "Hahahaha! potato!")
		setProperty(t, s, fulltextmodels.Node, ids[1], "prop", "This one is a potato farmer.")
		require.NoError(t, p.Sync(testCtx(t)))

		for _, term := range []string{"hello", "zebra", "zedonk", "cross"} {
			assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, term), term)
		}
		assert.Equal(t, []int64{ids[0]}, query(t, p, "nodes", fulltextmodels.Node, "hahahaha"))
		assert.Equal(t, []int64{ids[1]}, query(t, p, "nodes", fulltextmodels.Node, "farmer"))
		assert.Equal(t, []int64{ids[0], ids[1]}, query(t, p, "nodes", fulltextmodels.Node, "potato"))
	})

	t.Run("deleted nodes are not found", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		ids := createNodes(t, s, "Hello. Hello again.", zebroid)
		require.NoError(t, s.Update(testCtx(t), func(tx *graphstore.Tx) error {
			for _, id := range ids {
				if err := tx.Delete(fulltextmodels.Node, id); err != nil {
					return err
				}
			}
			return nil
		}))
		require.NoError(t, p.Sync(testCtx(t)))

		for _, term := range []string{"hello", "zebra", "zedonk", "cross"} {
			assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, term), term)
		}
	})

	t.Run("removed properties are not found", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		ids := createNodes(t, s, zebroid, "Hello. Hello again.")
		setProperty(t, s, fulltextmodels.Node, ids[0], "other", "kept")
		require.NoError(t, s.Update(testCtx(t), func(tx *graphstore.Tx) error {
			return tx.RemoveProperty(fulltextmodels.Node, ids[0], "prop")
		}))
		require.NoError(t, p.Sync(testCtx(t)))

		assert.Equal(t, []int64{ids[1]}, query(t, p, "nodes", fulltextmodels.Node, "hello"))
		assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, "zebra"))
		assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, "kept"))
	})

	t.Run("only indexed properties are searchable", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		ids := createNodes(t, s, "Hello. Hello again.")
		setProperty(t, s, fulltextmodels.Node, ids[0], "other", zebroid)
		require.NoError(t, p.Sync(testCtx(t)))

		assert.Equal(t, []int64{ids[0]}, query(t, p, "nodes", fulltextmodels.Node, "hello"))
		assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, "zebra"))
	})

	t.Run("nodes and relationships stay apart", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s,
			identity(t, "nodes", fulltextmodels.Node, "prop"),
			identity(t, "relationships", fulltextmodels.Relationship, "prop"),
		)
		require.NoError(t, p.Init(testCtx(t)))

		var nodes, rels [2]int64
		require.NoError(t, s.Update(testCtx(t), func(tx *graphstore.Tx) (err error) {
			for i := range nodes {
				if nodes[i], err = tx.CreateNode(); err != nil {
					return err
				}
			}
			for i := range rels {
				if rels[i], err = tx.CreateRelationship(nodes[0], nodes[1], "LIKES"); err != nil {
					return err
				}
			}
			if err = tx.SetProperty(fulltextmodels.Node, nodes[0], "prop", "Hello. Hello again."); err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Node, nodes[1], "prop", zebroid); err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Relationship, rels[0], "prop", "Hello. Hello again."); err != nil {
				return err
			}
			return tx.SetProperty(fulltextmodels.Relationship, rels[1], "prop", "And now, something completely different")
		}))
		require.NoError(t, p.Sync(testCtx(t)))

		assert.Equal(t, []int64{nodes[0]}, query(t, p, "nodes", fulltextmodels.Node, "hello"))
		assert.Equal(t, []int64{nodes[1]}, query(t, p, "nodes", fulltextmodels.Node, "zebra"))
		assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, "different"))

		assert.Equal(t, []int64{rels[0]}, query(t, p, "relationships", fulltextmodels.Relationship, "hello"))
		assert.Empty(t, query(t, p, "relationships", fulltextmodels.Relationship, "zebra"))
		assert.Equal(t, []int64{rels[1]}, query(t, p, "relationships", fulltextmodels.Relationship, "different"))
	})

	t.Run("fuzzy queries tolerate typos", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		ids := createNodes(t, s, "Hello. Hello again.", zebroid)
		require.NoError(t, p.Sync(testCtx(t)))

		assert.Equal(t, ids[0], fuzzyQuery(t, p, "nodes", fulltextmodels.Node, "hella")[0])
		assert.Equal(t, ids[1], fuzzyQuery(t, p, "nodes", fulltextmodels.Node, "zebre")[0])
		assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, "hella"))
	})
}

func TestProvider_Population(t *testing.T) {
	t.Run("backfills existing nodes and relationships", func(t *testing.T) {
		s := newTestStore(t)

		var nodes, rels [2]int64
		require.NoError(t, s.Update(testCtx(t), func(tx *graphstore.Tx) (err error) {
			for i := range nodes {
				if nodes[i], err = tx.CreateNode(); err != nil {
					return err
				}
			}
			for range 2 {
				if _, err = tx.CreateRelationship(nodes[0], nodes[1], "KNOWS"); err != nil {
					return err
				}
			}
			if rels[0], err = tx.CreateRelationship(nodes[0], nodes[1], "KNOWS"); err != nil {
				return err
			}
			if rels[1], err = tx.CreateRelationship(nodes[1], nodes[0], "KNOWS"); err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Node, nodes[0], "prop", "Hello. Hello again."); err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Node, nodes[1], "prop", "This string is slightly shorter than the zebra one"); err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Relationship, rels[0], "prop", "Goodbye"); err != nil {
				return err
			}
			return tx.SetProperty(fulltextmodels.Relationship, rels[1], "prop", "And now, something completely different")
		}))

		p := newTestProvider(t, s,
			identity(t, "nodes", fulltextmodels.Node, "prop"),
			identity(t, "relationships", fulltextmodels.Relationship, "prop"),
		)
		require.NoError(t, p.Init(testCtx(t)))
		require.NoError(t, p.AwaitPopulation(testCtx(t)))

		assert.Equal(t, []int64{nodes[0]}, query(t, p, "nodes", fulltextmodels.Node, "hello"))
		assert.Equal(t, []int64{nodes[1]}, query(t, p, "nodes", fulltextmodels.Node, "string"))
		assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, "goodbye"))
		assert.Empty(t, query(t, p, "nodes", fulltextmodels.Node, "different"))

		assert.Empty(t, query(t, p, "relationships", fulltextmodels.Relationship, "hello"))
		assert.Empty(t, query(t, p, "relationships", fulltextmodels.Relationship, "string"))
		assert.Equal(t, []int64{rels[0]}, query(t, p, "relationships", fulltextmodels.Relationship, "goodbye"))
		assert.Equal(t, []int64{rels[1]}, query(t, p, "relationships", fulltextmodels.Relationship, "different"))

		statuses := p.Indexes(testCtx(t))
		require.Len(t, statuses, 2)
		for _, status := range statuses {
			assert.NoError(t, status.Err)
			assert.Equal(t, fulltextindex.StateOnline, status.State)
		}
	})

	t.Run("waits for the store to become available", func(t *testing.T) {
		s, err := graphstore.Open(context.Background(), graphstore.WithInMemory(), graphstore.WithLogger(testLogger()))
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, s.Close())
		})
		createNodes(t, s, "Hello")

		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.Error(t, p.Init(timeoutCtx))
		require.True(t, errorsx.Is(p.Init(testCtx(t)), ErrAlreadyInitialized))
	})

	t.Run("indexes registered after init are populated", func(t *testing.T) {
		s := newTestStore(t)
		ids := createNodes(t, s, "Hello. Hello again.")

		p := newTestProvider(t, s)
		require.NoError(t, p.Init(testCtx(t)))
		require.NoError(t, p.Register(testCtx(t), identity(t, "late", fulltextmodels.Node, "prop")))
		require.NoError(t, p.AwaitPopulation(testCtx(t)))

		assert.Equal(t, []int64{ids[0]}, query(t, p, "late", fulltextmodels.Node, "hello"))
	})
}

func TestProvider_Recovery(t *testing.T) {
	t.Run("online indexes reopen without population", func(t *testing.T) {
		s := newTestStore(t)
		path := t.TempDir()
		ids := createNodes(t, s, "Hello. Hello again.")

		first := newProvider(t, s, WithPath(path))
		require.NoError(t, first.Register(testCtx(t), identity(t, "nodes", fulltextmodels.Node, "prop")))
		require.NoError(t, first.Init(testCtx(t)))
		require.NoError(t, first.AwaitPopulation(testCtx(t)))
		first.Close(testCtx(t))

		second := newProvider(t, s, WithPath(path))
		require.NoError(t, second.Register(testCtx(t), identity(t, "nodes", fulltextmodels.Node, "prop")))
		require.NoError(t, second.Init(testCtx(t)))
		require.Empty(t, second.jobs)

		assert.Equal(t, []int64{ids[0]}, query(t, second, "nodes", fulltextmodels.Node, "hello"))
	})

	t.Run("a changed property set triggers repopulation", func(t *testing.T) {
		s := newTestStore(t)
		path := t.TempDir()
		ids := createNodes(t, s, "Hello. Hello again.")
		setProperty(t, s, fulltextmodels.Node, ids[0], "title", "zebra")

		first := newProvider(t, s, WithPath(path))
		require.NoError(t, first.Register(testCtx(t), identity(t, "nodes", fulltextmodels.Node, "prop")))
		require.NoError(t, first.Init(testCtx(t)))
		require.NoError(t, first.AwaitPopulation(testCtx(t)))
		first.Close(testCtx(t))

		second := newProvider(t, s, WithPath(path))
		require.NoError(t, second.Register(testCtx(t), identity(t, "nodes", fulltextmodels.Node, "prop", "title")))
		require.NoError(t, second.Init(testCtx(t)))
		require.Len(t, second.jobs, 1)
		require.NoError(t, second.AwaitPopulation(testCtx(t)))

		assert.Equal(t, []int64{ids[0]}, query(t, second, "nodes", fulltextmodels.Node, "zebra"))
	})
}

func TestProvider_Lifecycle(t *testing.T) {
	t.Run("unknown readers", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))

		_, err := p.Reader("nodes", fulltextmodels.Relationship)
		require.True(t, errorsx.Is(err, fulltextmodels.ErrIndexNotFound))
		_, err = p.Reader("missing", fulltextmodels.Node)
		require.True(t, errorsx.Is(err, fulltextmodels.ErrIndexNotFound))
	})

	t.Run("rejects duplicate and invalid registrations", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))

		err := p.Register(testCtx(t), identity(t, "nodes", fulltextmodels.Node, "other"))
		require.True(t, errorsx.Is(err, ErrIndexExists))

		err = p.Register(testCtx(t), fulltextmodels.IndexIdentity{Name: "empty", Kind: fulltextmodels.Node})
		require.True(t, errorsx.Is(err, fulltextmodels.ErrInvalidIdentity))
	})

	t.Run("sync needs init", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s)

		require.True(t, errorsx.Is(p.Sync(testCtx(t)), fulltextapplier.ErrNotStarted))
	})

	t.Run("close is final and idempotent", func(t *testing.T) {
		s := newTestStore(t)
		p := newTestProvider(t, s, identity(t, "nodes", fulltextmodels.Node, "prop"))
		require.NoError(t, p.Init(testCtx(t)))

		reader, err := p.Reader("nodes", fulltextmodels.Node)
		require.NoError(t, err)

		p.Close(testCtx(t))
		p.Close(testCtx(t))

		_, err = reader.Query(testCtx(t), "hello")
		require.Error(t, err)

		_, err = p.Reader("nodes", fulltextmodels.Node)
		require.True(t, errorsx.Is(err, ErrProviderClosed))
		require.True(t, errorsx.Is(p.Register(testCtx(t), identity(t, "other", fulltextmodels.Node, "prop")), ErrProviderClosed))
		require.True(t, errorsx.Is(p.Init(testCtx(t)), ErrProviderClosed))
	})
}
