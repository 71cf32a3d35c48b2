package fulltextcontroller

import (
	"net/http"
)

func (c *Controller) ListIndexes(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	ctx := r.Context()

	statuses := c.provider.Indexes(ctx)
	indexes := make([]any, 0, len(statuses))
	for _, status := range statuses {
		properties := make([]any, 0, len(status.Identity.Properties))
		for _, property := range status.Identity.Properties {
			properties = append(properties, property)
		}

		index := map[string]any{
			"name":       status.Identity.Name,
			"kind":       status.Identity.Kind.String(),
			"properties": properties,
			"state":      string(status.State),
		}
		if status.Err != nil {
			index["error"] = status.Err.Error()
		}

		indexes = append(indexes, index)
	}

	c.write(ctx, w, http.StatusOK, map[string]any{"indexes": indexes})
}
