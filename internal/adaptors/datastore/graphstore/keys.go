package graphstore

import (
	"encoding/binary"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const (
	nodePrefix         = "n/"
	relationshipPrefix = "r/"

	nodeSequenceKey         = "s/nodes"
	relationshipSequenceKey = "s/relationships"

	sequenceBandwidth = 1 << 10
)

func prefixOf(kind fulltextmodels.EntityKind) []byte {
	if kind == fulltextmodels.Relationship {
		return []byte(relationshipPrefix)
	}

	return []byte(nodePrefix)
}

func entityKey(ref EntityRef) []byte {
	prefix := prefixOf(ref.Kind)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(ref.ID))

	return key
}

func idFromKey(kind fulltextmodels.EntityKind, key []byte) (int64, error) {
	prefix := prefixOf(kind)
	if len(key) != len(prefix)+8 {
		return 0, errorsx.Errorf("malformed %s key of %d bytes", kind, len(key))
	}

	return int64(binary.BigEndian.Uint64(key[len(prefix):])), nil
}
