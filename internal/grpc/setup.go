// Package grpc runs the gRPC health endpoint of the show tracker.
package grpc

import (
	"context"
	"sync"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Belphemur/ShowTracker/internal/config"
)

// ServiceName is the health-check name of the show API.
const ServiceName = "showtracker.v1.ShowService"

const pingTimeout = 2 * time.Second

var (
	grpcServerMetrics         *grpcprom.ServerMetrics
	registerServerMetricsOnce sync.Once
)

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewGRPCServer creates a gRPC server with Prometheus metrics, health checking, and reflection.
// The returned health server starts as SERVING for ServiceName and the empty service.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	// Set up Prometheus gRPC server metrics once per process
	registerServerMetricsOnce.Do(func() {
		grpcServerMetrics = grpcprom.NewServerMetrics(
			grpcprom.WithServerHandlingTimeHistogram(),
		)
		prometheus.MustRegister(grpcServerMetrics)
	})

	srvMetrics := grpcServerMetrics

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(srvMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(srvMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	setStatus(healthServer, grpc_health_v1.HealthCheckResponse_SERVING)

	// Reflection for tools like grpcurl
	reflection.Register(grpcServer)

	srvMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

// WatchHealth pings p every interval and flips the health status between SERVING and
// NOT_SERVING. It blocks until ctx is done.
func WatchHealth(ctx context.Context, hs *health.Server, p Pinger, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := checkHealth(ctx, hs, p, grpc_health_v1.HealthCheckResponse_SERVING)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = checkHealth(ctx, hs, p, last)
		}
	}
}

// checkHealth pings once and updates hs. Status changes are logged.
func checkHealth(ctx context.Context, hs *health.Server, p Pinger, previous grpc_health_v1.HealthCheckResponse_ServingStatus) grpc_health_v1.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	err := p.Ping(pingCtx)
	if err != nil {
		if ctx.Err() != nil {
			return previous
		}
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	if status != previous {
		logger := config.GetLogger()
		if err != nil {
			logger.Warn().Err(err).Str("status", status.String()).Msg("Store health check failed")
		} else {
			logger.Info().Str("status", status.String()).Msg("Store health restored")
		}
	}
	setStatus(hs, status)
	return status
}

func setStatus(hs *health.Server, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus(ServiceName, status)
	hs.SetServingStatus("", status)
}
