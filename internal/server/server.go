// Package server exposes the simulation over HTTP (JSON readouts, scene
// snapshots, the map raster, the ground track and a websocket frame stream)
// and over gRPC (the standard health service).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
	"github.com/signalsfoundry/orbit-visualizer/internal/sim"
	"github.com/signalsfoundry/orbit-visualizer/model"
	"github.com/signalsfoundry/orbit-visualizer/render"
)

// StreamConfig bounds the websocket frame stream.
type StreamConfig struct {
	MaxFPS          float64
	Burst           int
	MaxClientsPerIP int
	WriteTimeout    time.Duration
	TrustProxy      bool
}

// Options wires a Server.
type Options struct {
	Engine       *sim.Engine
	Fading       *render.FadingGlobe
	Accumulating *render.AccumulatingGlobe
	Map          *render.MapRenderer
	Metrics      *observability.ServerCollector
	Log          logging.Logger
	Stream       StreamConfig

	// RunContext bounds runs started over HTTP. It must outlive individual
	// requests; nil means context.Background().
	RunContext context.Context

	// DefaultParams fill fields a run request leaves out.
	DefaultParams         model.OrbitParameters
	DefaultAnimationSpeed float64
}

// globeScener is implemented by both globe renderers.
type globeScener interface {
	Scene() render.GlobeScene
}

// Server holds HTTP handlers and their dependencies.
type Server struct {
	engine   *sim.Engine
	globes   map[string]globeScener
	mapR     *render.MapRenderer
	metrics  *observability.ServerCollector
	log      logging.Logger
	stream   StreamConfig
	limiter  *streamLimiter
	upgrader websocket.Upgrader
	runCtx   context.Context

	defaultParams model.OrbitParameters
	defaultSpeed  float64
}

// New validates opts and builds a Server.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if opts.Log == nil {
		opts.Log = logging.Noop()
	}
	if opts.RunContext == nil {
		opts.RunContext = context.Background()
	}
	if opts.DefaultParams == (model.OrbitParameters{}) {
		opts.DefaultParams = model.DefaultOrbitParameters()
	}
	if opts.DefaultAnimationSpeed == 0 {
		opts.DefaultAnimationSpeed = 1
	}
	if opts.Stream.MaxFPS <= 0 {
		opts.Stream.MaxFPS = 30
	}
	if opts.Stream.Burst <= 0 {
		opts.Stream.Burst = 1
	}
	if opts.Stream.MaxClientsPerIP <= 0 {
		opts.Stream.MaxClientsPerIP = 4
	}
	if opts.Stream.WriteTimeout <= 0 {
		opts.Stream.WriteTimeout = 5 * time.Second
	}

	globes := make(map[string]globeScener)
	if opts.Fading != nil {
		globes[render.FadingGlobeName] = opts.Fading
	}
	if opts.Accumulating != nil {
		globes[render.AccumulatingGlobeName] = opts.Accumulating
	}

	return &Server{
		engine:  opts.Engine,
		globes:  globes,
		mapR:    opts.Map,
		metrics: opts.Metrics,
		log:     opts.Log.With(logging.String("component", "http")),
		stream:  opts.Stream,
		limiter: newStreamLimiter(opts.Stream.MaxClientsPerIP),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Scenes are public read-only data; any page may subscribe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		runCtx:        opts.RunContext,
		defaultParams: opts.DefaultParams,
		defaultSpeed:  opts.DefaultAnimationSpeed,
	}, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("POST /api/v1/run", s.handleRun)
	mux.HandleFunc("POST /api/v1/stop", s.handleStop)
	mux.HandleFunc("PUT /api/v1/animation-speed", s.handleAnimationSpeed)
	mux.HandleFunc("GET /api/v1/globe/{name}", s.handleGlobe)
	mux.HandleFunc("GET /api/v1/map", s.handleMapScene)
	mux.HandleFunc("GET /api/v1/map.png", s.handleMapPNG)
	mux.HandleFunc("GET /api/v1/track.geojson", s.handleTrack)
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)

	return s.requestMiddleware(mux)
}

// NewHTTPServer wraps Handler in an *http.Server with the given timeouts.
func (s *Server) NewHTTPServer(addr string, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       read,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
}
