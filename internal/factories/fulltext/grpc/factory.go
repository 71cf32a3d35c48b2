package grpcfulltextfactory

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
	"gitlab.com/pietroski-software-company/golang/devex/options"
	"gitlab.com/pietroski-software-company/golang/devex/slogx"

	fulltextcontroller "gitlab.com/pietroski-software-company/lightning-fulltext/internal/controllers/fulltext"
)

var ErrMissingDependency = errorsx.New("grpc fulltext factory is missing a dependency")

type (
	// Factory serves the health service reporting per index population state.
	Factory struct {
		ctx    context.Context
		cancel context.CancelFunc
		logger slogx.SLogger

		listener net.Listener
		server   *grpc.Server

		controller *fulltextcontroller.Controller
	}
)

func New(
	ctx context.Context,
	opts ...options.Option,
) (*Factory, error) {
	factory := &Factory{
		logger: slogx.New(),
	}
	options.ApplyOptions(factory, opts...)

	switch {
	case factory.listener == nil:
		return nil, errorsx.Wrap(ErrMissingDependency, "listener")
	case factory.controller == nil:
		return nil, errorsx.Wrap(ErrMissingDependency, "controller")
	}

	factory.ctx, factory.cancel = context.WithCancel(ctx)
	factory.handle()

	return factory, nil
}

func (s *Factory) handle() {
	grpcOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     15 * time.Second,
			MaxConnectionAge:      30 * time.Second,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  5 * time.Second,
			Timeout:               1 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	grpcServer := grpc.NewServer(grpcOpts...)
	healthpb.RegisterHealthServer(grpcServer, s.controller.Health())

	// Register reflection service on gRPC server.
	reflection.Register(grpcServer)

	s.server = grpcServer
}

func (s *Factory) Start() error {
	go s.controller.UpdateHealth(s.ctx)

	return s.server.Serve(s.listener)
}

func (s *Factory) Stop() {
	s.cancel()
	s.controller.Health().Shutdown()
	s.server.GracefulStop()
	s.logger.Debug(s.ctx, "grpc fulltext server stopped")
}
