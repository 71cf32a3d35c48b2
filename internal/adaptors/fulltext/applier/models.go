package fulltextapplier

import (
	"context"
	"iter"
	"time"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

type (
	// Enumerator lists every entity of a kind currently in the primary store.
	// An entity deleted while being read is reported as ErrEntityNotFound.
	Enumerator interface {
		Enumerate(ctx context.Context, kind fulltextmodels.EntityKind) iter.Seq2[*fulltextmodels.Entity, error]
	}

	itemType uint8

	workItem struct {
		typ        itemType
		writer     fulltextindex.Writable
		batch      fulltextmodels.Batch
		population *PopulationJob
		barrier    *Barrier
		enqueuedAt time.Time
	}

	// indexState is owned by the worker once registered.
	indexState struct {
		writer     fulltextindex.Writable
		populating bool
		dead       bool
		// live holds the entities a live batch touched since the population
		// started; the scan's copies of them are stale.
		live map[int64]struct{}
	}
)

const (
	batchItem itemType = iota
	populationStartItem
	populationEndItem
	barrierItem
)

func (t itemType) String() string {
	switch t {
	case batchItem:
		return "batch"
	case populationStartItem:
		return "population_start"
	case populationEndItem:
		return "population_end"
	case barrierItem:
		return "barrier"
	default:
		return "unknown"
	}
}

func (s *indexState) phase() string {
	if s.populating {
		return phasePopulation
	}

	return phaseLive
}

func (item *workItem) phase() string {
	if item.population != nil {
		return phasePopulation
	}

	return phaseLive
}

// superseded reports whether op is a population copy of an entity that a live
// batch already wrote, recording live writes as it goes.
func (s *indexState) superseded(item *workItem, op *fulltextmodels.Operation) bool {
	if !s.populating {
		return false
	}

	if item.population == nil {
		s.live[op.EntityID] = struct{}{}
		return false
	}

	_, ok := s.live[op.EntityID]
	return ok
}
