package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

// JobsServiceName is the health service reporting job store and queue
// reachability. The empty name reports the process itself.
const JobsServiceName = "gait.jobs"

// HealthProbe serves the standard gRPC health protocol and keeps the
// JobsServiceName status in step with a periodic check.
type HealthProbe struct {
	server   *grpc.Server
	health   *health.Server
	check    func(ctx context.Context) error
	interval time.Duration
	clock    timeutil.Clock
}

// NewHealthProbe creates a probe. check is typically jobs.Service.Health.
func NewHealthProbe(check func(ctx context.Context) error, interval time.Duration, clock timeutil.Clock) *HealthProbe {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &HealthProbe{server: srv, health: hs, check: check, interval: interval, clock: clock}
}

// Refresh runs the check once and publishes the outcome.
func (p *HealthProbe) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := p.check(ctx); err != nil {
		monitoring.Logf("[Health] %s not serving: %v", JobsServiceName, err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.health.SetServingStatus(JobsServiceName, status)
}

// Serve listens on addr and blocks until ctx is cancelled.
func (p *HealthProbe) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.ServeListener(ctx, lis)
}

// ServeListener is Serve on an existing listener.
func (p *HealthProbe) ServeListener(ctx context.Context, lis net.Listener) error {
	p.Refresh(ctx)
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("[Health] gRPC health listening on %s", lis.Addr())
		errCh <- p.server.Serve(lis)
	}()

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.health.Shutdown()
			p.server.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-ticker.C():
			p.Refresh(ctx)
		}
	}
}
