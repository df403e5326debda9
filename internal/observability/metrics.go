package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// ServerCollector bundles Prometheus metrics for the HTTP and gRPC surfaces
// and provides helpers to wire them into servers and handlers.
type ServerCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	StreamClients prometheus.Gauge
}

// NewServerCollector registers server metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewServerCollector(reg prometheus.Registerer) (*ServerCollector, error) {
	reg, gatherer := gathererFor(reg)

	rpcRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitviz_grpc_requests_total",
		Help: "Total number of handled gRPC calls, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "orbitviz_grpc_requests_total")
	if err != nil {
		return nil, err
	}
	rpcDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbitviz_grpc_request_duration_seconds",
		Help:    "gRPC call latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "orbitviz_grpc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbitviz_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route pattern, method, and status code.",
	}, []string{"route", "method", "code"}), "orbitviz_http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbitviz_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"route"}), "orbitviz_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitviz_stream_clients",
		Help: "Current number of connected websocket frame stream clients.",
	}), "orbitviz_stream_clients")
	if err != nil {
		return nil, err
	}

	return &ServerCollector{
		gatherer:      gatherer,
		RPCRequests:   rpcRequests,
		RPCDurations:  rpcDurations,
		HTTPRequests:  httpRequests,
		HTTPDurations: httpDurations,
		StreamClients: clients,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *ServerCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// ObserveHTTP records one handled HTTP request. route should be the mux
// pattern rather than the raw path to keep label cardinality bounded.
func (c *ServerCollector) ObserveHTTP(route, method string, code int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	if c.HTTPRequests != nil {
		c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	}
	if c.HTTPDurations != nil {
		c.HTTPDurations.WithLabelValues(route).Observe(d.Seconds())
	}
}

// StreamConnected and StreamDisconnected track websocket clients.
func (c *ServerCollector) StreamConnected() {
	if c == nil || c.StreamClients == nil {
		return
	}
	c.StreamClients.Inc()
}

func (c *ServerCollector) StreamDisconnected() {
	if c == nil || c.StreamClients == nil {
		return
	}
	c.StreamClients.Dec()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ServerCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}
