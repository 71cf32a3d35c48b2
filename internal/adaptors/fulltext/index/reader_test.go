package fulltextindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

func TestReader_Query(t *testing.T) {
	t.Run("searches across multiple properties", func(t *testing.T) {
		idx := newTestIndex(t, "prop", "prop2")
		upsert(t, idx, 0, prop("prop", "Tomtar tomtar oftsat i tomteutstyrsel."))
		upsert(t, idx, 1, prop("prop", "Olof och Hans"), prop("prop2", "och karl"))
		upsert(t, idx, 2, prop("prop2", "Tomtar som inte tomtar ser upp till tomtar som tomtar."))

		require.Equal(t, []int64{1, 2, 0}, query(t, idx, "tomtar", "karl"))
	})

	t.Run("orders results by relevance", func(t *testing.T) {
		idx := newTestIndex(t, "first", "last")
		upsert(t, idx, 0, prop("first", "Full"), prop("last", "Hanks"))
		upsert(t, idx, 1, prop("first", "Tom"), prop("last", "Hunk"))
		upsert(t, idx, 2, prop("first", "Tom"), prop("last", "Hanks"))
		upsert(t, idx, 3, prop("first", "Tom Hanks"), prop("last", "Tom Hanks"))

		require.Equal(t, []int64{3, 2, 0, 1}, query(t, idx, "Tom", "Hanks"))
	})

	t.Run("more occurrences rank higher", func(t *testing.T) {
		idx := newTestIndex(t, "a", "b")
		upsert(t, idx, 10, prop("a", "red"))
		upsert(t, idx, 11, prop("a", "red"), prop("b", "blue"))
		upsert(t, idx, 12, prop("a", "red green"), prop("b", "blue"))
		upsert(t, idx, 13, prop("a", "red green"), prop("b", "blue yellow"))

		require.Equal(t, []int64{13, 12, 11, 10}, query(t, idx, "red", "green", "blue", "yellow"))
	})

	t.Run("shorter fields rank higher for the same term", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		upsert(t, idx, 0, prop("prop", "Hahahaha! potato!"))
		upsert(t, idx, 1, prop("prop", "This one is a potato farmer."))

		require.Equal(t, []int64{0, 1}, query(t, idx, "potato"))
	})

	t.Run("does not return non matches", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		upsert(t, idx, 0, prop("prop", helloText))

		require.Empty(t, query(t, idx, "zebra"))
		require.Empty(t, query(t, idx, ""))
		require.Empty(t, query(t, idx, "the"))
	})

	t.Run("empty index", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		require.Empty(t, query(t, idx, "hello"))
		require.Empty(t, fuzzyQuery(t, idx, "hello"))
	})
}

func TestReader_FuzzyQuery(t *testing.T) {
	t.Run("is fuzzy", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		upsert(t, idx, 0, prop("prop", helloText))
		upsert(t, idx, 1, prop("prop", zebraText))

		require.Equal(t, int64(0), fuzzyQuery(t, idx, "hella")[0])
		require.Equal(t, int64(1), fuzzyQuery(t, idx, "zebre")[0])
		require.Equal(t, int64(1), fuzzyQuery(t, idx, "zedink")[0])
		require.Equal(t, int64(1), fuzzyQuery(t, idx, "cruss")[0])

		for _, term := range []string{"hella", "zebre", "zedink", "cruss"} {
			require.Empty(t, query(t, idx, term))
		}
	})

	t.Run("returns exact matches first", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		upsert(t, idx, 0, prop("prop", "zibre"))
		upsert(t, idx, 1, prop("prop", "zebrae"))
		upsert(t, idx, 2, prop("prop", "zebra"))
		upsert(t, idx, 3, prop("prop", "zibra"))

		require.Equal(t, []int64{2, 1, 3, 0}, fuzzyQuery(t, idx, "zebra"))
	})

	t.Run("exact match beats a better scoring approximate one", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		upsert(t, idx, 0, prop("prop", "zebra zebra zebra"))
		upsert(t, idx, 1, prop("prop", "zebras and a very long tail of many other words"))

		ids := fuzzyQuery(t, idx, "zebras")
		require.Equal(t, []int64{1, 0}, ids)
	})

	t.Run("short tokens are never expanded", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		upsert(t, idx, 0, prop("prop", "ab"))

		require.Empty(t, fuzzyQuery(t, idx, "ac"))
		require.Equal(t, []int64{0}, fuzzyQuery(t, idx, "ab"))
	})

	t.Run("adjacent swaps cost two edits", func(t *testing.T) {
		idx := newTestIndex(t, "prop")
		upsert(t, idx, 0, prop("prop", "zebra"))

		require.Equal(t, []int64{0}, fuzzyQuery(t, idx, "zerba"))
		require.Empty(t, fuzzyQuery(t, idx, "ezrab"))
	})

	t.Run("max edits can be lowered", func(t *testing.T) {
		identity, err := fulltextmodels.NewIndexIdentity("nodes", fulltextmodels.Node, "prop")
		require.NoError(t, err)
		idx, err := Open(context.Background(), identity, WithInMemory(), WithMaxEdits(1))
		require.NoError(t, err)
		defer idx.Close()

		upsert(t, idx, 0, prop("prop", "zibre"))
		upsert(t, idx, 1, prop("prop", "zibra"))

		require.Equal(t, []int64{1}, fuzzyQuery(t, idx, "zebra"))
	})
}

func TestReader_Snapshot(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, "prop")
	upsert(t, idx, 0, prop("prop", "hello"))

	reader, err := idx.NewReader()
	require.NoError(t, err)

	upsert(t, idx, 1, prop("prop", "hello"))

	t.Run("reader sees the state as of opening", func(t *testing.T) {
		results, err := reader.Query(ctx, "hello")
		require.NoError(t, err)
		ids, err := results.IDs()
		require.NoError(t, err)
		require.Equal(t, []int64{0}, ids)

		require.Equal(t, []int64{0, 1}, query(t, idx, "hello"))
	})

	t.Run("closing invalidates outstanding results", func(t *testing.T) {
		results, err := reader.Query(ctx, "hello")
		require.NoError(t, err)

		require.NoError(t, reader.Close())
		require.False(t, results.Next())
		require.True(t, errorsx.Is(results.Err(), fulltextmodels.ErrReaderClosed))

		_, err = reader.FuzzyQuery(ctx, "hello")
		require.True(t, errorsx.Is(err, fulltextmodels.ErrReaderClosed))
		require.NoError(t, reader.Close())
	})

	t.Run("results are single pass", func(t *testing.T) {
		reader, err := idx.NewReader()
		require.NoError(t, err)
		defer reader.Close()

		results, err := reader.Query(ctx, "hello")
		require.NoError(t, err)
		require.True(t, results.Next())
		require.Equal(t, int64(0), results.ID())
		require.Greater(t, results.Hit().Score, 0.0)
		require.True(t, results.Next())
		require.Equal(t, int64(1), results.ID())
		require.False(t, results.Next())
		require.False(t, results.Next())
		require.NoError(t, results.Err())
	})
}
