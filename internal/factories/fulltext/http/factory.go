package httpfulltextfactory

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	fulltextcontroller "gitlab.com/pietroski-software-company/lightning-fulltext/internal/controllers/fulltext"
	"gitlab.com/pietroski-software-company/lightning-fulltext/pkg/httpx"
)

const shutdownTimeout = 5 * time.Second

var ErrMissingDependency = errorsx.New("http fulltext factory is missing a dependency")

type (
	// Factory serves the query, barrier and metrics endpoints.
	Factory struct {
		ctx    context.Context
		logger slogx.SLogger

		listener  net.Listener
		server    *http.Server
		muxServer *runtime.ServeMux

		controller *fulltextcontroller.Controller
		gatherer   prometheus.Gatherer
		origins    []string
	}
)

func New(
	ctx context.Context,
	opts ...options.Option,
) (*Factory, error) {
	factory := &Factory{
		ctx:      ctx,
		logger:   slogx.New(),
		gatherer: prometheus.DefaultGatherer,
	}
	options.ApplyOptions(factory, opts...)

	switch {
	case factory.listener == nil:
		return nil, errorsx.Wrap(ErrMissingDependency, "listener")
	case factory.controller == nil:
		return nil, errorsx.Wrap(ErrMissingDependency, "controller")
	}

	if err := factory.handle(); err != nil {
		return nil, err
	}

	return factory, nil
}

func (s *Factory) handle() error {
	mux := runtime.NewServeMux()
	if err := s.controller.Register(mux); err != nil {
		return err
	}

	metrics := promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
	if err := mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		metrics.ServeHTTP(w, r)
	}); err != nil {
		return errorsx.Wrap(err, "failed to register metrics handler")
	}

	s.muxServer = mux
	s.server = &http.Server{
		Handler: httpx.EnableCors(s.muxServer, s.origins...),
	}

	return nil
}

// Handler exposes the routed handler, mostly for tests.
func (s *Factory) Handler() http.Handler {
	return s.server.Handler
}

func (s *Factory) Start() error {
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Factory) Stop() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(s.ctx, "failed to shutdown http fulltext server", "error", err)
	}
}
