package httpfulltextfactory

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	"gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/datastore/graphstore"
	fulltextprovider "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/provider"
	fulltextcontroller "gitlab.com/pietroski-software-company/lightning-fulltext/internal/controllers/fulltext"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const (
	testTimeout = 5 * time.Second
	testTick    = 10 * time.Millisecond
)

func newTestController(t *testing.T, registry *prometheus.Registry) *fulltextcontroller.Controller {
	t.Helper()
	ctx := context.Background()
	logger := slogx.New(slogx.WithSLogLevel(slogx.LevelTest))

	store, err := graphstore.Open(ctx, graphstore.WithInMemory(), graphstore.WithLogger(logger))
	require.NoError(t, err)
	store.MarkAvailable()

	provider := fulltextprovider.New(ctx, store, fulltextprovider.WithInMemory(), fulltextprovider.WithLogger(logger))
	identity, err := fulltextmodels.NewIndexIdentity("people", fulltextmodels.Node, "prop")
	require.NoError(t, err)
	require.NoError(t, provider.Register(ctx, identity))
	require.NoError(t, provider.Init(ctx))
	require.NoError(t, provider.Metrics().Register(registry))

	t.Cleanup(func() {
		provider.Close(ctx)
		require.NoError(t, store.Close())
	})

	controller, err := fulltextcontroller.New(ctx,
		fulltextcontroller.WithProvider(provider),
		fulltextcontroller.WithLogger(logger),
	)
	require.NoError(t, err)

	return controller
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("missing listener", func(t *testing.T) {
		_, err := New(ctx)
		require.ErrorIs(t, err, ErrMissingDependency)
	})

	t.Run("missing controller", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()

		_, err = New(ctx, WithListener(listener))
		require.ErrorIs(t, err, ErrMissingDependency)
	})
}

func TestFactory_Handler(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	factory, err := New(ctx,
		WithListener(listener),
		WithController(newTestController(t, registry)),
		WithGatherer(registry),
		WithLogger(slogx.New(slogx.WithSLogLevel(slogx.LevelTest))),
	)
	require.NoError(t, err)

	t.Run("routes the controller", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		factory.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/indexes", nil))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, recorder.Body.String(), "people")
	})

	t.Run("answers preflight requests", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		factory.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/v1/barrier", nil))
		require.Equal(t, http.StatusNoContent, recorder.Code)
	})

	t.Run("serves metrics", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		factory.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, recorder.Code)

		body, err := io.ReadAll(recorder.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "lightning_fulltext_applier_queue_depth")
	})
}

func TestFactory_StartStop(t *testing.T) {
	ctx := context.Background()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	factory, err := New(ctx,
		WithListener(listener),
		WithController(newTestController(t, prometheus.NewRegistry())),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- factory.Start()
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/v1/indexes")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, testTimeout, testTick)

	factory.Stop()
	require.NoError(t, <-done)
}
