package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type grpcProber struct {
	config  GRPCConfig
	timeout time.Duration
	id      string
	logger  logging.Logger
}

// Check runs the standard grpc.health.v1 Health/Check call over an insecure
// local channel. SERVING is healthy, every other status or RPC error is not.
func (p *grpcProber) Check(ctx context.Context) Result {
	start := time.Now()

	p.logger.Debugf("Performing gRPC probe, id: %s, address: %s, service: %s",
		p.id, p.config.Address, p.config.Service)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := grpc.NewClient(p.config.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return newResult(start, false, fmt.Sprintf("gRPC client setup failed: %v", err))
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: p.config.Service,
	})
	if err != nil {
		return newResult(start, false, fmt.Sprintf("gRPC health check failed: %v", err))
	}

	if status := resp.GetStatus(); status != healthpb.HealthCheckResponse_SERVING {
		return newResult(start, false, fmt.Sprintf("gRPC service not serving: %s", status))
	}

	return newResult(start, true, fmt.Sprintf("gRPC health check passed for %s", p.config.Address))
}
