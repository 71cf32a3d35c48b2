package changeextractor

import (
	"slices"
	"sync"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

// IndexSet tracks the writable indexes of both entity kinds together with the
// union of the property names they index. One set is built per provider and
// shared with its extractor.
type IndexSet struct {
	mtx        *sync.RWMutex
	writers    map[fulltextmodels.EntityKind][]fulltextindex.Writable
	properties map[fulltextmodels.EntityKind]map[string]int
}

func NewIndexSet() *IndexSet {
	return &IndexSet{
		mtx:        new(sync.RWMutex),
		writers:    make(map[fulltextmodels.EntityKind][]fulltextindex.Writable),
		properties: make(map[fulltextmodels.EntityKind]map[string]int),
	}
}

// Add registers a writer. Adding an index with an already registered
// identity key is a no-op.
func (s *IndexSet) Add(writer fulltextindex.Writable) bool {
	identity := writer.Identity()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, registered := range s.writers[identity.Kind] {
		if registered.Identity().Key() == identity.Key() {
			return false
		}
	}

	s.writers[identity.Kind] = append(s.writers[identity.Kind], writer)
	if s.properties[identity.Kind] == nil {
		s.properties[identity.Kind] = make(map[string]int)
	}
	for _, property := range identity.Properties {
		s.properties[identity.Kind][property]++
	}

	return true
}

// Remove unregisters the index with the given key, dropping the property
// names no other index of that kind still uses.
func (s *IndexSet) Remove(identity fulltextmodels.IndexIdentity) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	writers := s.writers[identity.Kind]
	idx := slices.IndexFunc(writers, func(w fulltextindex.Writable) bool {
		return w.Identity().Key() == identity.Key()
	})
	if idx < 0 {
		return false
	}

	removed := writers[idx].Identity()
	s.writers[identity.Kind] = slices.Delete(writers, idx, idx+1)
	for _, property := range removed.Properties {
		s.properties[identity.Kind][property]--
		if s.properties[identity.Kind][property] <= 0 {
			delete(s.properties[identity.Kind], property)
		}
	}

	return true
}

// Writers returns the registered writers of a kind in registration order.
func (s *IndexSet) Writers(kind fulltextmodels.EntityKind) []fulltextindex.Writable {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return slices.Clone(s.writers[kind])
}

// Properties returns the sorted union of property names indexed for a kind.
func (s *IndexSet) Properties(kind fulltextmodels.EntityKind) []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	properties := make([]string, 0, len(s.properties[kind]))
	for property := range s.properties[kind] {
		properties = append(properties, property)
	}
	slices.Sort(properties)

	return properties
}

func (s *IndexSet) Indexed(kind fulltextmodels.EntityKind, property string) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	_, ok := s.properties[kind][property]
	return ok
}

func (s *IndexSet) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return len(s.writers[fulltextmodels.Node]) + len(s.writers[fulltextmodels.Relationship])
}
