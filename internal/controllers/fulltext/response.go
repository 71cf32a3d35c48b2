package fulltextcontroller

import (
	"context"
	"net/http"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"

	fulltextapplier "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/applier"
	fulltextprovider "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/provider"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

func (c *Controller) write(ctx context.Context, w http.ResponseWriter, code int, payload map[string]any) {
	body, err := structpb.NewStruct(payload)
	if err != nil {
		c.logger.Error(ctx, "failed to build response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	bs, err := protojson.Marshal(body)
	if err != nil {
		c.logger.Error(ctx, "failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(bs); err != nil {
		c.logger.Error(ctx, "failed to write response", "error", err)
	}
}

func (c *Controller) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		c.logger.Error(ctx, "fulltext request failed", "error", err)
	}

	c.write(ctx, w, code, map[string]any{
		"error": err.Error(),
		"kind":  fulltextmodels.Classify(err).String(),
	})
}

func statusOf(err error) int {
	switch {
	case errorsx.Is(err, fulltextmodels.ErrIndexNotFound):
		return http.StatusNotFound
	case errorsx.Is(err, fulltextmodels.ErrInvalidIdentity), errorsx.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errorsx.Is(err, fulltextmodels.ErrIndexDead),
		errorsx.Is(err, fulltextmodels.ErrApplierStopped),
		errorsx.Is(err, fulltextapplier.ErrNotStarted),
		errorsx.Is(err, fulltextprovider.ErrProviderClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
