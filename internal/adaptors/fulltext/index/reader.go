package fulltextindex

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dgraph-io/badger/v4"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type (
	// Reader is a consistent snapshot of an index as of the moment it was opened.
	// Closing it invalidates every Results it handed out.
	Reader struct {
		id     string
		index  *Index
		txn    *badger.Txn
		mtx    *sync.Mutex
		closed *atomic.Bool
	}

	Hit struct {
		EntityID     int64
		Score        float64
		ExactMatches int
	}

	// Results is a finite single pass sequence of hits ordered by relevance.
	Results struct {
		reader *Reader
		hits   []Hit
		pos    int
		err    error
	}

	expansion struct {
		term   string
		weight float64
		exact  bool
	}

	// clause is one analysed query token and the index terms it stands for.
	clause struct {
		token      string
		expansions []expansion
	}

	accumulator struct {
		score   float64
		matched []bool
		exact   []bool
	}
)

var _ ReadOnly = (*Reader)(nil)

// Query ORs the analysed terms across every indexed field.
func (r *Reader) Query(ctx context.Context, terms ...string) (*Results, error) {
	tokens := analyzeQuery(terms)
	clauses := make([]clause, 0, len(tokens))
	for _, token := range tokens {
		clauses = append(clauses, clause{
			token:      token,
			expansions: []expansion{{term: token, weight: 1, exact: true}},
		})
	}

	return r.search(ctx, clauses, false)
}

// FuzzyQuery expands every analysed term to the indexed terms within its edit
// distance bound. Documents matching more terms exactly rank first.
func (r *Reader) FuzzyQuery(ctx context.Context, terms ...string) (*Results, error) {
	tokens := analyzeQuery(terms)
	if len(tokens) == 0 {
		return r.search(ctx, nil, true)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.closed.Load() {
		return nil, fulltextmodels.ErrReaderClosed
	}

	clauses, err := r.expand(ctx, tokens)
	if err != nil {
		return nil, err
	}

	return r.score(ctx, clauses, true)
}

// Close discards the snapshot. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed.Load() {
		return nil
	}

	r.index.readers.Delete(r.id)
	r.release()

	return nil
}

func (r *Reader) release() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.closed.CompareAndSwap(false, true) {
		r.txn.Discard()
	}
}

func (r *Reader) search(ctx context.Context, clauses []clause, exactFirst bool) (*Results, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.closed.Load() {
		return nil, fulltextmodels.ErrReaderClosed
	}

	return r.score(ctx, clauses, exactFirst)
}

func (r *Reader) expand(ctx context.Context, tokens []string) ([]clause, error) {
	clauses := make([]clause, len(tokens))
	limits := make([]int, len(tokens))
	for i, token := range tokens {
		clauses[i].token = token
		limits[i] = maxEditsFor(utf8.RuneCountInString(token), r.index.maxEdits)
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(termPrefix)
	it := r.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		term := string(it.Item().Key()[len(termPrefix):])
		for i, token := range tokens {
			distance := editDistance(token, term, limits[i])
			if distance > limits[i] {
				continue
			}

			clauses[i].expansions = append(clauses[i].expansions, expansion{
				term:   term,
				weight: 1 - float64(distance)/float64(min(len(token), len(term))),
				exact:  distance == 0,
			})
		}
	}

	return clauses, nil
}

// score is BM25 summed over clauses and fields, scaled by the share of clauses
// the document matched.
func (r *Reader) score(ctx context.Context, clauses []clause, exactFirst bool) (*Results, error) {
	results := &Results{reader: r}
	if len(clauses) == 0 {
		return results, nil
	}

	docCount, err := readCounter(r.txn, []byte(docCountKey))
	if err != nil {
		return nil, r.index.corruption("failed to read document count", err)
	}
	if docCount == 0 {
		return results, nil
	}

	stats := make(map[string]fieldStats)
	accumulators := make(map[int64]*accumulator)
	for ci, c := range clauses {
		for _, e := range c.expansions {
			df, err := readCounter(r.txn, termKey(e.term))
			if err != nil {
				return nil, r.index.corruption("failed to read term frequency", err)
			}
			if df == 0 {
				continue
			}

			idf := math.Log(1 + (float64(docCount)-float64(df)+0.5)/(float64(df)+0.5))
			if err = r.scanPostings(ctx, e.term, func(field string, entityID int64, p posting) error {
				fs, ok := stats[field]
				if !ok {
					if fs, err = readFieldStats(r.txn, field); err != nil {
						return err
					}
					stats[field] = fs
				}

				avg := 1.0
				if fs.docs > 0 && fs.tokens > 0 {
					avg = float64(fs.tokens) / float64(fs.docs)
				}

				tf := float64(p.tf)
				norm := bm25K1 * (1 - bm25B + bm25B*float64(p.fieldLen)/avg)

				acc, ok := accumulators[entityID]
				if !ok {
					acc = &accumulator{
						matched: make([]bool, len(clauses)),
						exact:   make([]bool, len(clauses)),
					}
					accumulators[entityID] = acc
				}
				acc.score += e.weight * idf * tf * (bm25K1 + 1) / (tf + norm)
				acc.matched[ci] = true
				acc.exact[ci] = acc.exact[ci] || e.exact

				return nil
			}); err != nil {
				return nil, err
			}
		}
	}

	results.hits = make([]Hit, 0, len(accumulators))
	for entityID, acc := range accumulators {
		hit := Hit{EntityID: entityID}
		matched := 0
		for ci := range clauses {
			if acc.matched[ci] {
				matched++
			}
			if acc.exact[ci] {
				hit.ExactMatches++
			}
		}
		hit.Score = acc.score * float64(matched) / float64(len(clauses))
		results.hits = append(results.hits, hit)
	}

	slices.SortFunc(results.hits, func(a, b Hit) int {
		if exactFirst && a.ExactMatches != b.ExactMatches {
			return b.ExactMatches - a.ExactMatches
		}
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.EntityID < b.EntityID {
			return -1
		}
		if a.EntityID > b.EntityID {
			return 1
		}
		return 0
	})

	return results, nil
}

func (r *Reader) scanPostings(
	ctx context.Context,
	term string,
	fn func(field string, entityID int64, p posting) error,
) error {
	prefix := postingTermPrefix(term)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := r.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := it.Item()
		field, entityID, err := parsePostingKey(item.Key(), prefix)
		if err != nil {
			return err
		}

		var p posting
		if err = item.Value(func(val []byte) error {
			p, err = decodePosting(val)
			return err
		}); err != nil {
			return r.corruptionOf(err)
		}

		if err = fn(field, entityID, p); err != nil {
			return r.corruptionOf(err)
		}
	}

	return nil
}

func (r *Reader) corruptionOf(err error) error {
	if errorsx.Is(err, fulltextmodels.ErrIndexCorruption) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return r.index.corruption("failed to read postings", err)
}

// Next advances to the following hit.
func (res *Results) Next() bool {
	if res.err != nil {
		return false
	}
	if res.reader.closed.Load() {
		res.err = fulltextmodels.ErrReaderClosed
		return false
	}
	if res.pos >= len(res.hits) {
		return false
	}

	res.pos++
	return true
}

func (res *Results) ID() int64 {
	return res.Hit().EntityID
}

func (res *Results) Hit() Hit {
	if res.pos == 0 || res.pos > len(res.hits) {
		return Hit{}
	}

	return res.hits[res.pos-1]
}

func (res *Results) Err() error {
	return res.err
}

// IDs drains the remaining hits.
func (res *Results) IDs() ([]int64, error) {
	var ids []int64
	for res.Next() {
		ids = append(ids, res.ID())
	}

	return ids, res.Err()
}
