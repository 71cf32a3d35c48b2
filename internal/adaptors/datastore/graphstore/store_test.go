package graphstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(),
		WithInMemory(),
		WithScanChunk(2),
		WithLogger(slogx.New(slogx.WithSLogLevel(slogx.LevelTest))),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func nextEvent(t *testing.T, sub *Subscription) *CommitEvent {
	t.Helper()

	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok)
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no commit event received")
		return nil
	}
}

func TestStore_Tx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit persists and publishes", func(t *testing.T) {
		s := newTestStore(t)
		sub, err := s.Subscribe()
		require.NoError(t, err)
		defer sub.Close()

		var a, b int64
		require.NoError(t, s.Update(ctx, func(tx *Tx) error {
			if a, err = tx.CreateNode(); err != nil {
				return err
			}
			if b, err = tx.CreateNode(); err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Node, a, "prop", "Hello. Hello again."); err != nil {
				return err
			}
			return tx.SetProperty(fulltextmodels.Node, b, "prop", "zebra")
		}))
		require.Equal(t, int64(0), a)
		require.Equal(t, int64(1), b)

		ev := nextEvent(t, sub)
		require.Equal(t, []EntityRef{{Kind: fulltextmodels.Node, ID: a}, {Kind: fulltextmodels.Node, ID: b}}, ev.Created)
		require.Len(t, ev.Changes, 2)
		require.False(t, ev.Changes[0].HadOld)
		require.True(t, ev.Changes[0].HasNew)
		require.Equal(t, fulltextmodels.StringValue("zebra"),
			ev.Snapshots[EntityRef{Kind: fulltextmodels.Node, ID: b}].Properties["prop"])

		entity, err := s.Get(ctx, fulltextmodels.Node, a)
		require.NoError(t, err)
		require.Equal(t, fulltextmodels.StringValue("Hello. Hello again."), entity.Properties["prop"])
	})

	t.Run("changes carry old and new values", func(t *testing.T) {
		s := newTestStore(t)

		var id int64
		require.NoError(t, s.Update(ctx, func(tx *Tx) (err error) {
			if id, err = tx.CreateNode(); err != nil {
				return err
			}
			if err = tx.SetProperty(fulltextmodels.Node, id, "prop", "Hello"); err != nil {
				return err
			}
			return tx.SetProperty(fulltextmodels.Node, id, "other", int64(4))
		}))

		sub, err := s.Subscribe()
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, s.Update(ctx, func(tx *Tx) error {
			if err := tx.SetProperty(fulltextmodels.Node, id, "prop", "potato"); err != nil {
				return err
			}
			if err := tx.SetProperty(fulltextmodels.Node, id, "other", int64(4)); err != nil {
				return err
			}
			return tx.RemoveProperty(fulltextmodels.Node, id, "missing")
		}))

		ev := nextEvent(t, sub)
		require.Empty(t, ev.Created)
		require.Equal(t, []Change{{
			EntityID: id,
			Kind:     fulltextmodels.Node,
			Property: "prop",
			Old:      fulltextmodels.StringValue("Hello"),
			New:      fulltextmodels.StringValue("potato"),
			HadOld:   true,
			HasNew:   true,
		}}, ev.Changes)
		require.True(t, ev.Touches(EntityRef{Kind: fulltextmodels.Node, ID: id}, []string{"prop"}))
		require.False(t, ev.Touches(EntityRef{Kind: fulltextmodels.Node, ID: id}, []string{"other"}))
	})

	t.Run("delete drops the entity", func(t *testing.T) {
		s := newTestStore(t)

		var id int64
		require.NoError(t, s.Update(ctx, func(tx *Tx) (err error) {
			if id, err = tx.CreateNode(); err != nil {
				return err
			}
			return tx.SetProperty(fulltextmodels.Node, id, "prop", "Hello")
		}))

		sub, err := s.Subscribe()
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, s.Update(ctx, func(tx *Tx) error {
			return tx.Delete(fulltextmodels.Node, id)
		}))

		ev := nextEvent(t, sub)
		ref := EntityRef{Kind: fulltextmodels.Node, ID: id}
		require.Equal(t, []EntityRef{ref}, ev.Deleted)
		require.True(t, ev.IsDeleted(ref))
		require.NotContains(t, ev.Snapshots, ref)
		require.Equal(t, []EntityRef{ref}, ev.Affected())

		_, err = s.Get(ctx, fulltextmodels.Node, id)
		require.True(t, errorsx.Is(err, fulltextmodels.ErrEntityNotFound))
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		s := newTestStore(t)

		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		id, err := tx.CreateNode()
		require.NoError(t, err)
		tx.Rollback()

		_, err = s.Get(ctx, fulltextmodels.Node, id)
		require.True(t, errorsx.Is(err, fulltextmodels.ErrEntityNotFound))
		require.True(t, errorsx.Is(tx.Commit(), ErrTxFinished))
	})

	t.Run("relationships need existing endpoints", func(t *testing.T) {
		s := newTestStore(t)

		var start, end, rel int64
		require.NoError(t, s.Update(ctx, func(tx *Tx) (err error) {
			if start, err = tx.CreateNode(); err != nil {
				return err
			}
			if end, err = tx.CreateNode(); err != nil {
				return err
			}
			if rel, err = tx.CreateRelationship(start, end, "KNOWS"); err != nil {
				return err
			}
			return tx.SetProperty(fulltextmodels.Relationship, rel, "prop", "green")
		}))

		relationship, err := s.Relationship(ctx, rel)
		require.NoError(t, err)
		require.Equal(t, &Relationship{ID: rel, Type: "KNOWS", Start: start, End: end}, relationship)

		err = s.Update(ctx, func(tx *Tx) error {
			_, err := tx.CreateRelationship(start, 42, "KNOWS")
			return err
		})
		require.True(t, errorsx.Is(err, fulltextmodels.ErrEntityNotFound))
	})

	t.Run("rejects unsupported values", func(t *testing.T) {
		s := newTestStore(t)

		err := s.Update(ctx, func(tx *Tx) error {
			id, err := tx.CreateNode()
			if err != nil {
				return err
			}
			return tx.SetProperty(fulltextmodels.Node, id, "prop", map[string]string{"a": "b"})
		})
		require.True(t, errorsx.Is(err, fulltextmodels.ErrUnsupportedValue))
	})

	t.Run("events follow commit order", func(t *testing.T) {
		s := newTestStore(t)
		sub, err := s.Subscribe()
		require.NoError(t, err)
		defer sub.Close()

		ids := make([]uint64, 0, 5)
		for range 5 {
			tx, err := s.Begin(ctx)
			require.NoError(t, err)
			_, err = tx.CreateNode()
			require.NoError(t, err)
			require.NoError(t, tx.Commit())
			ids = append(ids, tx.ID())
		}

		for _, id := range ids {
			require.Equal(t, id, nextEvent(t, sub).TxID)
		}
	})
}

func TestStore_Enumerate(t *testing.T) {
	ctx := context.Background()

	t.Run("walks every entity of a kind", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, s.Update(ctx, func(tx *Tx) error {
			for range 5 {
				if _, err := tx.CreateNode(); err != nil {
					return err
				}
			}
			_, err := tx.CreateRelationship(0, 1, "KNOWS")
			return err
		}))

		var nodes []int64
		for entity, err := range s.Enumerate(ctx, fulltextmodels.Node) {
			require.NoError(t, err)
			require.Equal(t, fulltextmodels.Node, entity.Kind)
			nodes = append(nodes, entity.ID)
		}
		require.Equal(t, []int64{0, 1, 2, 3, 4}, nodes)

		var rels []int64
		for entity, err := range s.Enumerate(ctx, fulltextmodels.Relationship) {
			require.NoError(t, err)
			rels = append(rels, entity.ID)
		}
		require.Equal(t, []int64{0}, rels)
	})

	t.Run("entities deleted mid scan are reported as not found", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, s.Update(ctx, func(tx *Tx) error {
			for range 4 {
				if _, err := tx.CreateNode(); err != nil {
					return err
				}
			}
			return nil
		}))

		var (
			seen    []int64
			missing int
		)
		for entity, err := range s.Enumerate(ctx, fulltextmodels.Node) {
			if err != nil {
				require.True(t, errorsx.Is(err, fulltextmodels.ErrEntityNotFound))
				missing++
				continue
			}

			seen = append(seen, entity.ID)
			if entity.ID == 0 {
				// id 1 is already part of the collected chunk.
				require.NoError(t, s.Update(ctx, func(tx *Tx) error {
					return tx.Delete(fulltextmodels.Node, 1)
				}))
			}
		}

		require.Equal(t, []int64{0, 2, 3}, seen)
		require.Equal(t, 1, missing)
	})

	t.Run("stops on a cancelled context", func(t *testing.T) {
		s := newTestStore(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		for _, err := range s.Enumerate(cancelled, fulltextmodels.Node) {
			require.Error(t, err)
		}
	})
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("availability gate", func(t *testing.T) {
		s := newTestStore(t)

		timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		require.Error(t, s.WaitAvailable(timeoutCtx))

		s.MarkAvailable()
		s.MarkAvailable()
		require.NoError(t, s.WaitAvailable(ctx))
	})

	t.Run("close ends subscriptions", func(t *testing.T) {
		s, err := Open(ctx, WithInMemory())
		require.NoError(t, err)

		sub, err := s.Subscribe()
		require.NoError(t, err)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		_, ok := <-sub.Events()
		require.False(t, ok)

		_, err = s.Begin(ctx)
		require.True(t, errorsx.Is(err, ErrStoreClosed))
	})

	t.Run("closed subscriptions stop receiving", func(t *testing.T) {
		s := newTestStore(t)
		sub, err := s.Subscribe()
		require.NoError(t, err)
		sub.Close()
		sub.Close()

		require.NoError(t, s.Update(ctx, func(tx *Tx) error {
			_, err := tx.CreateNode()
			return err
		}))

		_, ok := <-sub.Events()
		require.False(t, ok)
	})
}
