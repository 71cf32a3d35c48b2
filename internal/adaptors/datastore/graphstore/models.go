package graphstore

import (
	"strconv"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

type (
	// EntityRef addresses one node or relationship.
	EntityRef struct {
		Kind fulltextmodels.EntityKind
		ID   int64
	}

	// Change is one property write observed by a committed transaction.
	Change struct {
		EntityID int64
		Kind     fulltextmodels.EntityKind
		Property string
		Old      fulltextmodels.Value
		New      fulltextmodels.Value
		HadOld   bool
		HasNew   bool
	}

	// CommitEvent describes a committed transaction. Snapshots hold the
	// after-state of every touched entity that still exists.
	CommitEvent struct {
		TxID      uint64
		Changes   []Change
		Created   []EntityRef
		Deleted   []EntityRef
		Snapshots map[EntityRef]*fulltextmodels.Entity
	}

	// Relationship carries the graph shape of a relationship entity.
	Relationship struct {
		ID    int64
		Type  string
		Start int64
		End   int64
	}

	record struct {
		ID         int64                           `json:"id"`
		Type       string                          `json:"type,omitempty"`
		Start      int64                           `json:"start,omitempty"`
		End        int64                           `json:"end,omitempty"`
		Properties map[string]fulltextmodels.Value `json:"properties,omitempty"`
	}
)

func (r EntityRef) String() string {
	return r.Kind.String() + "/" + strconv.FormatInt(r.ID, 10)
}

// Touches tells whether the event changed any of the given properties of the entity.
func (ev *CommitEvent) Touches(ref EntityRef, properties []string) bool {
	for _, change := range ev.Changes {
		if change.Kind != ref.Kind || change.EntityID != ref.ID {
			continue
		}
		for _, property := range properties {
			if change.Property == property {
				return true
			}
		}
	}

	return false
}

// Affected lists every entity the event changed, created or deleted, in
// first-seen order.
func (ev *CommitEvent) Affected() []EntityRef {
	seen := make(map[EntityRef]struct{})
	refs := make([]EntityRef, 0, len(ev.Changes)+len(ev.Created)+len(ev.Deleted))
	add := func(ref EntityRef) {
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	for _, ref := range ev.Created {
		add(ref)
	}
	for _, change := range ev.Changes {
		add(EntityRef{Kind: change.Kind, ID: change.EntityID})
	}
	for _, ref := range ev.Deleted {
		add(ref)
	}

	return refs
}

func (ev *CommitEvent) IsDeleted(ref EntityRef) bool {
	for _, deleted := range ev.Deleted {
		if deleted == ref {
			return true
		}
	}

	return false
}

func (r *record) clone() *record {
	if r == nil {
		return nil
	}

	cp := *r
	cp.Properties = make(map[string]fulltextmodels.Value, len(r.Properties))
	for name, value := range r.Properties {
		cp.Properties[name] = value
	}

	return &cp
}

func (r *record) entity(kind fulltextmodels.EntityKind) *fulltextmodels.Entity {
	cp := r.clone()
	return &fulltextmodels.Entity{
		ID:         cp.ID,
		Kind:       kind,
		Properties: cp.Properties,
	}
}
