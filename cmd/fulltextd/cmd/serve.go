package cmd

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"gitlab.com/pietroski-software-company/golang/devex/servermanager"
	"gitlab.com/pietroski-software-company/golang/devex/servermanager/pprofx"

	fulltextcontroller "gitlab.com/pietroski-software-company/lightning-fulltext/internal/controllers/fulltext"
	grpcfulltextfactory "gitlab.com/pietroski-software-company/lightning-fulltext/internal/factories/fulltext/grpc"
	httpfulltextfactory "gitlab.com/pietroski-software-company/lightning-fulltext/internal/factories/fulltext/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the indexes up to date and serve them",
	Long: `Opens the graph store and the configured indexes, populates the ones
that need it and serves the health service over gRPC together with the query,
barrier and metrics endpoints over HTTP.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancelFn := context.WithCancel(cmd.Context())
		defer cancelFn()

		return serve(ctx, cancelFn)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cancelFn context.CancelFunc) error {
	e, err := openEngine(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "failed to open fulltext engine", "error", err)

		return err
	}
	defer e.close(context.WithoutCancel(ctx))
	exiter := func(code int) {
		e.close(context.WithoutCancel(ctx))
		os.Exit(code)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err = e.provider.Metrics().Register(registry); err != nil {
		logger.Error(ctx, "failed to register fulltext metrics", "error", err)

		return err
	}

	if err = e.provider.Init(ctx); err != nil {
		logger.Error(ctx, "failed to initialize fulltext provider", "error", err)

		return err
	}

	controller, err := fulltextcontroller.New(ctx,
		fulltextcontroller.WithProvider(e.provider),
		fulltextcontroller.WithLogger(logger),
	)
	if err != nil {
		logger.Error(ctx, "error creating fulltext controller", "error", err)

		return err
	}

	server := cfg.Fulltext.Server
	listener, err := net.Listen(server.Network, fmt.Sprintf(":%v", server.GRPCPort))
	if err != nil {
		logger.Error(ctx, "error creating net listener", "error", err)

		return err
	}

	httpListener, err := net.Listen(server.Network, fmt.Sprintf(":%v", server.HTTPPort))
	if err != nil {
		logger.Error(ctx, "error creating http net listener", "error", err)

		return err
	}

	factory, err := grpcfulltextfactory.New(ctx,
		grpcfulltextfactory.WithListener(listener),
		grpcfulltextfactory.WithController(controller),
		grpcfulltextfactory.WithLogger(logger),
	)
	if err != nil {
		logger.Error(ctx, "error creating grpc fulltext factory", "error", err)

		return err
	}

	httpFactory, err := httpfulltextfactory.New(ctx,
		httpfulltextfactory.WithListener(httpListener),
		httpfulltextfactory.WithController(controller),
		httpfulltextfactory.WithGatherer(registry),
		httpfulltextfactory.WithAllowedOrigins(server.AllowedOrigins...),
		httpfulltextfactory.WithLogger(logger),
	)
	if err != nil {
		logger.Error(ctx, "error creating http fulltext factory", "error", err)

		return err
	}

	servermanager.New(ctx, cancelFn,
		servermanager.WithExiter(exiter),
		servermanager.WithLogger(logger),
		servermanager.WithPprofServer(ctx, pprofx.WithPprofLogger(logger)),
		servermanager.WithServers(servermanager.ServerMapping{
			"lightning-fulltext-health": factory,
			"lightning-fulltext-http":   httpFactory,
		}),
	).StartServers()

	return nil
}
