package fulltextmodels

import (
	"slices"
	"strings"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
)

type EntityKind uint8

const (
	Node EntityKind = iota
	Relationship
)

func (k EntityKind) String() string {
	switch k {
	case Node:
		return "Nodes"
	case Relationship:
		return "Relationships"
	default:
		return "Unknown"
	}
}

func ParseEntityKind(kind string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "node", "nodes":
		return Node, nil
	case "relationship", "relationships", "rel", "rels":
		return Relationship, nil
	default:
		return 0, errorsx.Errorf("unknown entity kind: %q", kind)
	}
}

type (
	// IndexIdentity names one physical fulltext index.
	// It is immutable once the index is created.
	IndexIdentity struct {
		Name       string     `json:"name"`
		Kind       EntityKind `json:"kind"`
		Properties []string   `json:"properties"`
	}

	// Entity is a snapshot of a node or relationship as the store sees it.
	Entity struct {
		ID         int64
		Kind       EntityKind
		Properties map[string]Value
	}
)

func NewIndexIdentity(name string, kind EntityKind, properties ...string) (IndexIdentity, error) {
	identity := IndexIdentity{
		Name:       name,
		Kind:       kind,
		Properties: slices.Clone(properties),
	}

	return identity, identity.Validate()
}

func (id IndexIdentity) Validate() error {
	if strings.TrimSpace(id.Name) == "" {
		return errorsx.Wrap(ErrInvalidIdentity, "empty index name")
	}
	if id.Kind != Node && id.Kind != Relationship {
		return errorsx.Wrapf(ErrInvalidIdentity, "index %s has an unknown entity kind", id.Name)
	}
	if len(id.Properties) == 0 {
		return errorsx.Wrapf(ErrInvalidIdentity, "index %s has no properties", id.Name)
	}

	seen := make(map[string]struct{}, len(id.Properties))
	for _, property := range id.Properties {
		if property == "" || strings.ContainsRune(property, 0) {
			return errorsx.Wrapf(ErrInvalidIdentity, "index %s has an invalid property name %q", id.Name, property)
		}
		if _, ok := seen[property]; ok {
			return errorsx.Wrapf(ErrInvalidIdentity, "index %s has duplicate property %q", id.Name, property)
		}
		seen[property] = struct{}{}
	}

	return nil
}

// Key is the registry key of the index, unique across kinds.
func (id IndexIdentity) Key() string {
	return id.Kind.String() + "/" + id.Name
}

func (id IndexIdentity) Indexes(property string) bool {
	return slices.Contains(id.Properties, property)
}

// SameProperties compares the property sets regardless of their order.
func (id IndexIdentity) SameProperties(other IndexIdentity) bool {
	if len(id.Properties) != len(other.Properties) {
		return false
	}

	a, b := slices.Clone(id.Properties), slices.Clone(other.Properties)
	slices.Sort(a)
	slices.Sort(b)

	return slices.Equal(a, b)
}

// Document filters the entity down to the properties indexed by the given identity.
func (e *Entity) Document(id IndexIdentity) []Property {
	props := make([]Property, 0, len(id.Properties))
	for _, name := range id.Properties {
		if value, ok := e.Properties[name]; ok {
			props = append(props, Property{Name: name, Value: value})
		}
	}

	return props
}
