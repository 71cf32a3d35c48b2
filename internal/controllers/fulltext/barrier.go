package fulltextcontroller

import (
	"net/http"
)

// Barrier blocks until every commit seen so far is visible to new readers.
func (c *Controller) Barrier(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	ctx := r.Context()

	if err := c.provider.Sync(ctx); err != nil {
		c.writeError(ctx, w, err)
		return
	}

	c.write(ctx, w, http.StatusOK, map[string]any{"synced": true})
}
