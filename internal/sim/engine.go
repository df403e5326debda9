// Package sim runs the orbit simulation: it owns the phase clock and the
// tick driver and fans each frame out to renderers and the run store.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/orbit-visualizer/core"
	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
	"github.com/signalsfoundry/orbit-visualizer/kb"
	"github.com/signalsfoundry/orbit-visualizer/model"
	"github.com/signalsfoundry/orbit-visualizer/render"
	"github.com/signalsfoundry/orbit-visualizer/timectrl"
)

var (
	// ErrNotRunning indicates an operation that needs an active run.
	ErrNotRunning = errors.New("simulation not running")
	// ErrInvalidAnimationSpeed indicates a negative or non-finite animation
	// speed. The phase never runs backwards.
	ErrInvalidAnimationSpeed = errors.New("invalid animation speed")
)

// MetricsRecorder receives per-tick and lifecycle measurements.
type MetricsRecorder interface {
	ObserveTick(phase, earthRotation float64, d time.Duration)
	SetTrailLength(renderer string, n int)
	RunStarted()
	SetRunning(running bool)
}

// Status is a point-in-time view of the engine.
type Status struct {
	Running        bool                  `json:"running"`
	Params         model.OrbitParameters `json:"params"`
	AnimationSpeed float64               `json:"animation_speed"`
	Phase          float64               `json:"phase"`
	Ticks          uint64                `json:"ticks"`
}

// Option customises Engine construction.
type Option func(*Engine)

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRenderers registers renderers that receive every frame.
func WithRenderers(rs ...render.Renderer) Option {
	return func(e *Engine) {
		e.renderers = append(e.renderers, rs...)
	}
}

// WithInterval sets the real-time tick interval.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.interval = d
	}
}

// WithMode selects how the background driver paces ticks.
func WithMode(m timectrl.Mode) Option {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithManualStepping disables the background driver; ticks only happen
// through Step.
func WithManualStepping() Option {
	return func(e *Engine) {
		e.manual = true
	}
}

// Engine coordinates one simulation run at a time.
type Engine struct {
	store     *kb.KnowledgeBase
	log       logging.Logger
	metrics   MetricsRecorder
	renderers []render.Renderer
	clock     *timectrl.PhaseClock
	interval  time.Duration
	mode      timectrl.Mode
	manual    bool

	// mu guards the run lifecycle. It may be held while waiting for the
	// driver to exit, so tick must never take it.
	mu      sync.Mutex
	running bool
	tc      *timectrl.TimeController
	cancel  context.CancelFunc
	done    <-chan struct{}

	// stateMu guards the parameters read on every tick.
	stateMu sync.RWMutex
	params  model.OrbitParameters
	motion  core.MotionModel

	// tickMu serializes ticks with renderer teardown.
	tickMu sync.Mutex
}

// NewEngine builds an idle engine backed by the given run store.
func NewEngine(store *kb.KnowledgeBase, log logging.Logger, opts ...Option) *Engine {
	if store == nil {
		store = kb.NewKnowledgeBase()
	}
	if log == nil {
		log = logging.Noop()
	}
	e := &Engine{
		store:    store,
		log:      log,
		clock:    timectrl.NewPhaseClock(1),
		interval: timectrl.DefaultInterval,
		mode:     timectrl.RealTime,
		params:   model.DefaultOrbitParameters(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.motion = core.NewMotionModel(e.params)
	return e
}

// Store exposes the run store the engine writes to.
func (e *Engine) Store() *kb.KnowledgeBase { return e.store }

// Renderers returns the registered renderers.
func (e *Engine) Renderers() []render.Renderer {
	return append([]render.Renderer(nil), e.renderers...)
}

// Renderer looks up a renderer by name.
func (e *Engine) Renderer(name string) (render.Renderer, bool) {
	for _, r := range e.renderers {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Start begins a new run, stopping any active one first. The phase restarts
// at zero and every renderer is cleared. The background driver lives until
// ctx is cancelled or Stop is called, so ctx should outlive the caller's
// request.
func (e *Engine) Start(ctx context.Context, params model.OrbitParameters, animationSpeed float64) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := validateSpeed(animationSpeed); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.haltLocked()
	}

	e.stateMu.Lock()
	e.params = params
	e.motion = core.NewMotionModel(params)
	e.stateMu.Unlock()

	e.clock.Reset()
	e.clock.SetAnimationSpeed(animationSpeed)
	e.resetRenderers()

	run := e.store.StartRun(params, animationSpeed)
	e.running = true
	if e.metrics != nil {
		e.metrics.RunStarted()
	}

	runCtx, cancel := context.WithCancel(ctx)
	tc := timectrl.NewTimeController(e.clock, e.interval, e.mode)
	tc.AddListener(func(t timectrl.Tick) { e.tick(runCtx, t) })
	e.tc = tc
	e.cancel = cancel

	e.log.Info(ctx, "simulation run started",
		logging.Uint64("run_id", run.ID),
		logging.Float64("initial_latitude", params.InitialLatitude),
		logging.Float64("initial_longitude", params.InitialLongitude),
		logging.Float64("direction", params.PlaneDirection),
		logging.Float64("animation_speed", animationSpeed),
		logging.Bool("manual", e.manual),
	)

	if e.manual {
		return nil
	}
	done := tc.Start(runCtx, 0)
	e.done = done
	go e.watch(ctx, done)
	return nil
}

// watch marks the run stopped when the driver exits on its own, which
// happens when the Start context is cancelled.
func (e *Engine) watch(ctx context.Context, done <-chan struct{}) {
	<-done
	ctx = context.WithoutCancel(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != done {
		return
	}
	e.running = false
	e.done = nil
	e.tc = nil
	e.cancel = nil
	if err := e.store.StopRun(); err != nil && !errors.Is(err, kb.ErrNoRun) {
		e.log.Warn(ctx, "stop run", logging.Err(err))
	}
	if e.metrics != nil {
		e.metrics.SetRunning(false)
	}
	e.log.Info(ctx, "simulation driver exited", logging.Float64("phase", e.clock.Phase()))
}

// Stop freezes the clock, keeping the phase, and clears every renderer.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return ErrNotRunning
	}
	e.haltLocked()
	e.resetRenderers()
	e.log.Info(context.Background(), "simulation run stopped",
		logging.Float64("phase", e.clock.Phase()),
		logging.Uint64("ticks", e.clock.Ticks()),
	)
	return nil
}

func (e *Engine) haltLocked() {
	if e.cancel != nil {
		e.cancel()
	}
	if e.done != nil {
		<-e.done
	}
	e.running = false
	e.tc = nil
	e.cancel = nil
	e.done = nil
	if err := e.store.StopRun(); err != nil && !errors.Is(err, kb.ErrNoRun) {
		e.log.Warn(context.Background(), "stop run", logging.Err(err))
	}
	if e.metrics != nil {
		e.metrics.SetRunning(false)
	}
}

// SetAnimationSpeed changes the phase step of subsequent ticks. Renderers
// are cleared; the phase itself carries on.
func (e *Engine) SetAnimationSpeed(speed float64) error {
	if err := validateSpeed(speed); err != nil {
		return err
	}
	e.clock.SetAnimationSpeed(speed)
	if err := e.store.SetAnimationSpeed(speed); err != nil && !errors.Is(err, kb.ErrNoRun) {
		return err
	}
	e.resetRenderers()
	e.log.Debug(context.Background(), "animation speed changed", logging.Float64("animation_speed", speed))
	return nil
}

// Step advances the active run by one tick synchronously and returns the
// resulting frame.
func (e *Engine) Step() (model.Frame, error) {
	e.mu.Lock()
	tc := e.tc
	running := e.running
	e.mu.Unlock()
	if !running || tc == nil {
		return model.Frame{}, ErrNotRunning
	}
	tick := tc.Step()
	frame, ok := e.store.LatestFrame()
	if !ok || frame.Seq != tick.Seq {
		frame = e.frameFor(tick)
	}
	return frame, nil
}

// Status reports the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	e.stateMu.RLock()
	params := e.params
	e.stateMu.RUnlock()
	return Status{
		Running:        running,
		Params:         params,
		AnimationSpeed: e.clock.AnimationSpeed(),
		Phase:          e.clock.Phase(),
		Ticks:          e.clock.Ticks(),
	}
}

func (e *Engine) frameFor(t timectrl.Tick) model.Frame {
	e.stateMu.RLock()
	params, motion := e.params, e.motion
	e.stateMu.RUnlock()

	pos := motion.PositionAt(t.Phase)
	rotation := core.EarthRotation(t.Phase)
	return model.Frame{
		Seq:            t.Seq,
		Phase:          t.Phase,
		EarthRotation:  rotation,
		Position:       pos.CartesianPosition,
		Absolute:       pos.GeoPosition,
		Earth:          core.AbsoluteToEarth(pos.GeoPosition, rotation),
		Params:         params,
		AnimationSpeed: e.clock.AnimationSpeed(),
	}
}

func (e *Engine) tick(ctx context.Context, t timectrl.Tick) {
	start := time.Now()
	_, span := observability.StartSpan(ctx, "sim.tick",
		attribute.Int64("sim.seq", int64(t.Seq)),
		attribute.Float64("sim.phase", t.Phase),
	)
	defer span.End()

	frame := e.frameFor(t)

	e.tickMu.Lock()
	for _, r := range e.renderers {
		r.Render(frame)
		if e.metrics != nil {
			e.metrics.SetTrailLength(r.Name(), r.TrailLen())
		}
	}
	e.tickMu.Unlock()

	if err := e.store.UpdateFrame(frame); err != nil {
		e.log.Debug(ctx, "frame dropped", logging.Uint64("seq", t.Seq), logging.Err(err))
	}
	if e.metrics != nil {
		e.metrics.ObserveTick(frame.Phase, frame.EarthRotation, time.Since(start))
	}
}

func (e *Engine) resetRenderers() {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	for _, r := range e.renderers {
		r.Reset()
		if e.metrics != nil {
			e.metrics.SetTrailLength(r.Name(), 0)
		}
	}
}

func validateSpeed(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAnimationSpeed, s)
	}
	return nil
}
