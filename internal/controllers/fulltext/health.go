package fulltextcontroller

import (
	"context"
	"strings"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gitlab.com/pietroski-software-company/golang/devex/loop"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

const healthThread = "fulltext-health-updater"

// ServiceName is the health service name of one index, e.g. fulltext.nodes.people.
func ServiceName(identity fulltextmodels.IndexIdentity) string {
	return "fulltext." + strings.ToLower(identity.Kind.String()) + "." + identity.Name
}

// UpdateHealth refreshes the health service every interval until ctx is done.
// An index serves once it is online; the overall service serves once every
// index does.
func (c *Controller) UpdateHealth(ctx context.Context) {
	ctx = loop.WithThread(ctx, healthThread)
	ticker := time.NewTicker(c.healthInterval)
	defer ticker.Stop()

	c.RefreshHealth(ctx)
	loop.RunUntilDone(ctx, func() error {
		select {
		case <-ctx.Done():
			return loop.ErrEnded
		case <-ticker.C:
			c.RefreshHealth(ctx)
			return nil
		}
	})
}

func (c *Controller) RefreshHealth(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, status := range c.provider.Indexes(ctx) {
		serving := healthpb.HealthCheckResponse_SERVING
		if status.Err != nil || status.State != fulltextindex.StateOnline {
			serving = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}

		c.health.SetServingStatus(ServiceName(status.Identity), serving)
	}

	c.health.SetServingStatus("", overall)
}
