package fulltextindex

import (
	"bytes"
	"encoding/binary"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

// key layout
//
//	m/identity                  -> serialized IndexIdentity
//	m/state                     -> State
//	m/docs                      -> uint64 document count
//	f/<field>                   -> uint64 docs with field | uint64 token total
//	t/<term>                    -> uint64 documents containing term in any field
//	d/<id>                      -> serialized storedDocument
//	p/<term>\x00<field>\x00<id> -> uint32 term frequency | uint32 field length
const (
	identityKey = "m/identity"
	stateKey    = "m/state"
	docCountKey = "m/docs"

	fieldStatsPrefix = "f/"
	termPrefix       = "t/"
	documentPrefix   = "d/"
	postingPrefix    = "p/"

	sep = 0x00
)

var errMalformedKey = errorsx.New("malformed index key")

type (
	storedDocument struct {
		Fields map[string]map[string]uint32 `json:"fields"`
	}

	fieldStats struct {
		docs   uint64
		tokens uint64
	}

	posting struct {
		tf       uint32
		fieldLen uint32
	}
)

func (d *storedDocument) fieldLen(field string) uint32 {
	var length uint32
	for _, tf := range d.Fields[field] {
		length += tf
	}

	return length
}

// terms returns the distinct terms of the document across all fields.
func (d *storedDocument) terms() map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tfs := range d.Fields {
		for term := range tfs {
			terms[term] = struct{}{}
		}
	}

	return terms
}

func encodeEntityID(id int64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, uint64(id)^(1<<63))
	return bs
}

func decodeEntityID(bs []byte) int64 {
	return int64(binary.BigEndian.Uint64(bs) ^ (1 << 63))
}

func documentKey(id int64) []byte {
	return append([]byte(documentPrefix), encodeEntityID(id)...)
}

func termKey(term string) []byte {
	return []byte(termPrefix + term)
}

func fieldStatsKey(field string) []byte {
	return []byte(fieldStatsPrefix + field)
}

func postingTermPrefix(term string) []byte {
	key := make([]byte, 0, len(postingPrefix)+len(term)+1)
	key = append(key, postingPrefix...)
	key = append(key, term...)
	return append(key, sep)
}

func postingKey(term, field string, id int64) []byte {
	key := postingTermPrefix(term)
	key = append(key, field...)
	key = append(key, sep)
	return append(key, encodeEntityID(id)...)
}

// parsePostingKey splits the remainder of a posting key after its term prefix.
func parsePostingKey(key, prefix []byte) (string, int64, error) {
	rest, ok := bytes.CutPrefix(key, prefix)
	if !ok || len(rest) < 10 || rest[len(rest)-9] != sep {
		return "", 0, errorsx.Wrapf(fulltextmodels.ErrIndexCorruption, "%v: %q", errMalformedKey, key)
	}

	return string(rest[:len(rest)-9]), decodeEntityID(rest[len(rest)-8:]), nil
}

func encodeUint64(v uint64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, v)
	return bs
}

func decodeUint64(bs []byte) (uint64, error) {
	if len(bs) != 8 {
		return 0, errorsx.Wrapf(fulltextmodels.ErrIndexCorruption, "counter has %d bytes", len(bs))
	}

	return binary.BigEndian.Uint64(bs), nil
}

func (s fieldStats) encode() []byte {
	bs := make([]byte, 16)
	binary.BigEndian.PutUint64(bs[:8], s.docs)
	binary.BigEndian.PutUint64(bs[8:], s.tokens)
	return bs
}

func decodeFieldStats(bs []byte) (fieldStats, error) {
	if len(bs) != 16 {
		return fieldStats{}, errorsx.Wrapf(fulltextmodels.ErrIndexCorruption, "field stats have %d bytes", len(bs))
	}

	return fieldStats{
		docs:   binary.BigEndian.Uint64(bs[:8]),
		tokens: binary.BigEndian.Uint64(bs[8:]),
	}, nil
}

func (p posting) encode() []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint32(bs[:4], p.tf)
	binary.BigEndian.PutUint32(bs[4:], p.fieldLen)
	return bs
}

func decodePosting(bs []byte) (posting, error) {
	if len(bs) != 8 {
		return posting{}, errorsx.Wrapf(fulltextmodels.ErrIndexCorruption, "posting has %d bytes", len(bs))
	}

	return posting{
		tf:       binary.BigEndian.Uint32(bs[:4]),
		fieldLen: binary.BigEndian.Uint32(bs[4:]),
	}, nil
}
