package fulltextmodels

type (
	// Operation replaces the whole indexed document of one entity.
	// A deletion, or an update carrying no properties, removes the document.
	Operation struct {
		EntityID   int64
		Kind       EntityKind
		Properties []Property
		Deletion   bool
	}

	// Batch is the indivisible unit of submission to the applier.
	Batch []*Operation
)

func NewUpdate(kind EntityKind, entityID int64, properties ...Property) *Operation {
	return &Operation{
		EntityID:   entityID,
		Kind:       kind,
		Properties: properties,
	}
}

func NewDeletion(kind EntityKind, entityID int64) *Operation {
	return &Operation{
		EntityID: entityID,
		Kind:     kind,
		Deletion: true,
	}
}

func (op *Operation) IsDeletion() bool {
	return op.Deletion || len(op.Properties) == 0
}
