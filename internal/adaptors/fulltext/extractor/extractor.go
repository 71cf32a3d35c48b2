package changeextractor

import (
	"context"
	"errors"
	"sync"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/loop"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	"gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/datastore/graphstore"
	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const listenerThread = "fulltext-change-extractor"

type (
	// Submitter is the applier side the extractor feeds.
	Submitter interface {
		Submit(ctx context.Context, writer fulltextindex.Writable, batch fulltextmodels.Batch) error
	}

	// Submission is the batch one transaction produced for one index.
	Submission struct {
		Writer fulltextindex.Writable
		Batch  fulltextmodels.Batch
	}

	// Extractor turns committed transactions into per index batches.
	Extractor struct {
		indexes   *IndexSet
		submitter Submitter

		progressMtx *sync.Mutex
		handled     uint64
		advanced    chan struct{}

		logger slogx.SLogger
	}
)

func New(indexes *IndexSet, submitter Submitter, opts ...options.Option) *Extractor {
	e := &Extractor{
		indexes:   indexes,
		submitter: submitter,

		progressMtx: new(sync.Mutex),
		advanced:    make(chan struct{}),

		logger: slogx.New(),
	}
	options.ApplyOptions(e, opts...)

	return e
}

func WithLogger(logger slogx.SLogger) options.Option {
	return func(i interface{}) {
		if c, ok := i.(*Extractor); ok {
			c.logger = logger
		}
	}
}

// Extract builds one operation per affected entity per index, in index
// registration order. Operations are full documents taken from the
// entity's after-state; deleted entities and entities that lost every
// indexed property become deletions.
func (e *Extractor) Extract(ev *graphstore.CommitEvent) []Submission {
	if ev == nil {
		return nil
	}

	affected := ev.Affected()
	submissions := make([]Submission, 0)
	for _, kind := range []fulltextmodels.EntityKind{fulltextmodels.Node, fulltextmodels.Relationship} {
		if !e.relevant(ev, kind) {
			continue
		}

		for _, writer := range e.indexes.Writers(kind) {
			if batch := e.batchFor(ev, affected, writer.Identity()); len(batch) > 0 {
				submissions = append(submissions, Submission{Writer: writer, Batch: batch})
			}
		}
	}

	return submissions
}

// relevant checks the event against the union of indexed property names
// before any per index work is done.
func (e *Extractor) relevant(ev *graphstore.CommitEvent, kind fulltextmodels.EntityKind) bool {
	for _, change := range ev.Changes {
		if change.Kind == kind && e.indexes.Indexed(kind, change.Property) {
			return true
		}
	}

	return false
}

func (e *Extractor) batchFor(
	ev *graphstore.CommitEvent,
	affected []graphstore.EntityRef,
	identity fulltextmodels.IndexIdentity,
) fulltextmodels.Batch {
	var batch fulltextmodels.Batch
	for _, ref := range affected {
		if ref.Kind != identity.Kind || !ev.Touches(ref, identity.Properties) {
			continue
		}

		if ev.IsDeleted(ref) {
			batch = append(batch, fulltextmodels.NewDeletion(ref.Kind, ref.ID))
			continue
		}

		snapshot, ok := ev.Snapshots[ref]
		if !ok {
			batch = append(batch, fulltextmodels.NewDeletion(ref.Kind, ref.ID))
			continue
		}

		doc := snapshot.Document(identity)
		if len(doc) == 0 {
			batch = append(batch, fulltextmodels.NewDeletion(ref.Kind, ref.ID))
			continue
		}

		batch = append(batch, fulltextmodels.NewUpdate(ref.Kind, ref.ID, doc...))
	}

	return batch
}

// Handle submits the batches of one transaction. Every batch is attempted
// even when an earlier one fails.
func (e *Extractor) Handle(ctx context.Context, ev *graphstore.CommitEvent) error {
	var errs error
	for _, submission := range e.Extract(ev) {
		if err := e.submitter.Submit(ctx, submission.Writer, submission.Batch); err != nil {
			errs = errors.Join(errs, errorsx.Wrapf(err, "tx %d on %s", ev.TxID, submission.Writer.Identity().Key()))
		}
	}

	return errs
}

// Listen consumes commit events until the channel is closed.
func (e *Extractor) Listen(ctx context.Context, events <-chan *graphstore.CommitEvent) {
	ctx = loop.WithThread(ctx, listenerThread)
	for ev := range events {
		if err := e.Handle(ctx, ev); err != nil {
			e.logger.Error(ctx, "failed to submit transaction changes", "tx", ev.TxID, "error", err)
		}
		e.advance()
	}
	e.logger.Debug(ctx, "change extractor stopped")
}

func (e *Extractor) advance() {
	e.progressMtx.Lock()
	defer e.progressMtx.Unlock()

	e.handled++
	close(e.advanced)
	e.advanced = make(chan struct{})
}

// Handled counts the events Listen has fully submitted.
func (e *Extractor) Handled() uint64 {
	e.progressMtx.Lock()
	defer e.progressMtx.Unlock()

	return e.handled
}

// WaitHandled blocks until Listen has submitted at least n events.
func (e *Extractor) WaitHandled(ctx context.Context, n uint64) error {
	for {
		e.progressMtx.Lock()
		handled, advanced := e.handled, e.advanced
		e.progressMtx.Unlock()

		if handled >= n {
			return nil
		}

		select {
		case <-advanced:
		case <-ctx.Done():
			return errorsx.Wrapf(ctx.Err(), "waiting for %d change events, %d handled", n, handled)
		}
	}
}
