package fulltextapplier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
)

// Barrier resolves once every item enqueued before it has been applied.
type Barrier struct {
	id        uuid.UUID
	createdAt time.Time

	once *sync.Once
	done chan struct{}
	err  error
}

func newBarrier() *Barrier {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	return &Barrier{
		id:        id,
		createdAt: time.Now(),
		once:      new(sync.Once),
		done:      make(chan struct{}),
	}
}

func (b *Barrier) ID() string {
	return b.id.String()
}

// Done is closed when the barrier resolves.
func (b *Barrier) Done() <-chan struct{} {
	return b.done
}

// AwaitCompletion blocks until the barrier resolves. The context only bounds
// the wait; it never revokes the barrier itself.
func (b *Barrier) AwaitCompletion(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return errorsx.Wrapf(ctx.Err(), "barrier %s", b.id)
	}
}

func (b *Barrier) resolve(err error) {
	b.once.Do(func() {
		b.err = err
		close(b.done)
	})
}
