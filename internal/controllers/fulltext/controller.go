package fulltextcontroller

import (
	"context"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/health"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextprovider "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/provider"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const defaultHealthInterval = time.Second

var ErrMissingProvider = errorsx.New("fulltext controller needs a provider")

type (
	// Provider is the part of the fulltext provider the transport layer uses.
	Provider interface {
		Indexes(ctx context.Context) []fulltextprovider.Status
		Reader(name string, kind fulltextmodels.EntityKind) (fulltextindex.ReadOnly, error)
		Sync(ctx context.Context) error
	}

	Controller struct {
		provider Provider

		health         *health.Server
		healthInterval time.Duration

		logger slogx.SLogger
	}
)

func New(
	_ context.Context,
	opts ...options.Option,
) (*Controller, error) {
	c := &Controller{
		health:         health.NewServer(),
		healthInterval: defaultHealthInterval,
		logger:         slogx.New(),
	}
	options.ApplyOptions(c, opts...)

	if c.provider == nil {
		return nil, ErrMissingProvider
	}

	return c, nil
}

// Health is the gRPC health service the controller keeps up to date.
func (c *Controller) Health() *health.Server {
	return c.health
}

// Register mounts the HTTP routes on the gateway mux.
func (c *Controller) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/indexes", c.ListIndexes},
		{http.MethodGet, "/v1/indexes/{kind}/{name}/query", c.Query},
		{http.MethodPost, "/v1/barrier", c.Barrier},
	}

	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return errorsx.Wrapf(err, "failed to register %s %s", route.method, route.pattern)
		}
	}

	return nil
}
