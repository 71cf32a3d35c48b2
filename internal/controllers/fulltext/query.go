package fulltextcontroller

import (
	"net/http"
	"strconv"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

var errBadRequest = errorsx.New("bad request")

// Query runs GET /v1/indexes/{kind}/{name}/query?q=...&fuzzy=true&limit=n.
// Every q parameter is one query term.
func (c *Controller) Query(w http.ResponseWriter, r *http.Request, params map[string]string) {
	ctx := r.Context()

	kind, err := fulltextmodels.ParseEntityKind(params["kind"])
	if err != nil {
		c.writeError(ctx, w, errorsx.Wrapf(errBadRequest, "%v", err))
		return
	}

	values := r.URL.Query()
	terms := values["q"]
	if len(terms) == 0 {
		c.writeError(ctx, w, errorsx.Wrap(errBadRequest, "missing q parameter"))
		return
	}

	var fuzzy bool
	if raw := values.Get("fuzzy"); raw != "" {
		if fuzzy, err = strconv.ParseBool(raw); err != nil {
			c.writeError(ctx, w, errorsx.Wrapf(errBadRequest, "invalid fuzzy parameter %q", raw))
			return
		}
	}

	limit := -1
	if raw := values.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			c.writeError(ctx, w, errorsx.Wrapf(errBadRequest, "invalid limit parameter %q", raw))
			return
		}
	}

	reader, err := c.provider.Reader(params["name"], kind)
	if err != nil {
		c.writeError(ctx, w, err)
		return
	}
	defer func() {
		if err := reader.Close(); err != nil {
			c.logger.Error(ctx, "failed to close index reader", "index", params["name"], "error", err)
		}
	}()

	var results *fulltextindex.Results
	if fuzzy {
		results, err = reader.FuzzyQuery(ctx, terms...)
	} else {
		results, err = reader.Query(ctx, terms...)
	}
	if err != nil {
		c.writeError(ctx, w, err)
		return
	}

	hits := make([]any, 0)
	for (limit < 0 || len(hits) < limit) && results.Next() {
		hit := results.Hit()
		hits = append(hits, map[string]any{
			"id":            hit.EntityID,
			"score":         hit.Score,
			"exact_matches": hit.ExactMatches,
		})
	}
	if err = results.Err(); err != nil {
		c.writeError(ctx, w, err)
		return
	}

	c.write(ctx, w, http.StatusOK, map[string]any{
		"index": fulltextmodels.IndexIdentity{Name: params["name"], Kind: kind}.Key(),
		"hits":  hits,
	})
}
