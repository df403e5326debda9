package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
	"github.com/signalsfoundry/orbit-visualizer/kb"
)

// HealthServiceName is the gRPC health service that tracks the run state.
const HealthServiceName = "orbitviz.Simulation"

// NewHealthServer returns a health server whose HealthServiceName status is
// SERVING while a run is active, plus a function that detaches it from the
// store. The overall ("") status is always SERVING.
func NewHealthServer(store *kb.KnowledgeBase) (*health.Server, func()) {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthServiceName, servingStatus(store.Running()))

	unsubscribe := store.Subscribe(func(ev kb.Event) {
		switch ev.Type {
		case kb.EventRunStarted:
			hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
		case kb.EventRunStopped:
			hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		}
	})
	return hs, unsubscribe
}

// NewGRPCServer builds a gRPC server exposing hs, instrumented with OTel,
// per-call request IDs and, when metrics is non-nil, the Prometheus
// interceptor.
func NewGRPCServer(hs *health.Server, metrics *observability.ServerCollector, log logging.Logger, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		requestIDUnaryInterceptor(log),
		spanAttributesUnaryInterceptor(),
	}
	if metrics != nil {
		interceptors = append(interceptors, metrics.UnaryServerInterceptor())
	}
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
	srv := grpc.NewServer(append(base, opts...)...)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv
}

func servingStatus(running bool) healthpb.HealthCheckResponse_ServingStatus {
	if running {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
