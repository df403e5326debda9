package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// probePath reports health and readiness probes, which log at debug.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// requestMiddleware assigns a request ID, opens a server span, and records
// logs and metrics for every request once the mux has matched its route.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if id := r.Header.Get(requestIDHeader); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, log := logging.WithRequestLogger(ctx, s.log)
		ctx = logging.ContextWithLogger(ctx, log)
		ctx, span := observability.StartSpan(ctx, "HTTP "+r.Method,
			attribute.String("http.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		)
		defer span.End()

		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		req := r.WithContext(ctx)

		next.ServeHTTP(sr, req)

		duration := time.Since(start)
		route := req.Pattern
		if route != "" {
			span.SetName(route)
		}
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", sr.statusCode),
		)
		if sr.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sr.statusCode))
		}
		s.metrics.ObserveHTTP(route, r.Method, sr.statusCode, duration)

		fields := []logging.Field{
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String("route", route),
			logging.Int("status", sr.statusCode),
			logging.Duration("duration", duration),
			logging.String("remote_ip", clientIP(r, s.stream.TrustProxy)),
		}
		if probePath(r.URL.Path) {
			log.Debug(ctx, "request", fields...)
		} else {
			log.Info(ctx, "request", fields...)
		}
	})
}
