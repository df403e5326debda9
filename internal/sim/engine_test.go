package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/orbit-visualizer/core"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
	"github.com/signalsfoundry/orbit-visualizer/kb"
	"github.com/signalsfoundry/orbit-visualizer/model"
	"github.com/signalsfoundry/orbit-visualizer/render"
)

type recordingRenderer struct {
	mu     sync.Mutex
	frames []model.Frame
	resets int
}

func (r *recordingRenderer) Name() string { return "recording" }

func (r *recordingRenderer) Render(f model.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recordingRenderer) Reset() {
	r.mu.Lock()
	r.frames = nil
	r.resets++
	r.mu.Unlock()
}

func (r *recordingRenderer) TrailLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recordingRenderer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames), r.resets
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestStartValidates(t *testing.T) {
	e := NewEngine(nil, nil, WithManualStepping())
	bad := model.DefaultOrbitParameters()
	bad.InitialLatitude = 91
	if err := e.Start(context.Background(), bad, 1); !errors.Is(err, model.ErrInvalidOrbitParameters) {
		t.Fatalf("Start(lat 91) error = %v, want ErrInvalidOrbitParameters", err)
	}
	if err := e.Start(context.Background(), model.DefaultOrbitParameters(), math.NaN()); !errors.Is(err, ErrInvalidAnimationSpeed) {
		t.Fatalf("Start(NaN speed) error = %v, want ErrInvalidAnimationSpeed", err)
	}
	if e.Status().Running {
		t.Fatalf("engine running after rejected starts")
	}
}

func TestNegativeAnimationSpeedRejected(t *testing.T) {
	e := NewEngine(nil, nil, WithManualStepping())
	if err := e.Start(context.Background(), model.DefaultOrbitParameters(), -5); !errors.Is(err, ErrInvalidAnimationSpeed) {
		t.Fatalf("Start(-5) error = %v, want ErrInvalidAnimationSpeed", err)
	}
	if e.Status().Running {
		t.Fatalf("engine running after negative speed start")
	}

	if err := e.Start(context.Background(), model.DefaultOrbitParameters(), 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()
	if err := e.SetAnimationSpeed(-0.5); !errors.Is(err, ErrInvalidAnimationSpeed) {
		t.Fatalf("SetAnimationSpeed(-0.5) error = %v, want ErrInvalidAnimationSpeed", err)
	}

	prev := e.Status().Phase
	for i := range 3 {
		f, err := e.Step()
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if f.Phase <= prev {
			t.Fatalf("tick %d phase = %v, want above %v", i+1, f.Phase, prev)
		}
		prev = f.Phase
	}

	if err := e.SetAnimationSpeed(0); err != nil {
		t.Fatalf("SetAnimationSpeed(0) = %v, want nil", err)
	}
	f, _ := e.Step()
	if f.Phase != prev {
		t.Fatalf("phase at speed 0 = %v, want unchanged %v", f.Phase, prev)
	}
}

func TestIdleEngineRejectsStepAndStop(t *testing.T) {
	e := NewEngine(nil, nil, WithManualStepping())
	if _, err := e.Step(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Step() error = %v, want ErrNotRunning", err)
	}
	if err := e.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop() error = %v, want ErrNotRunning", err)
	}
}

func TestStepProducesFrames(t *testing.T) {
	store := kb.NewKnowledgeBase()
	rec := &recordingRenderer{}
	e := NewEngine(store, nil, WithManualStepping(), WithRenderers(rec))
	params := model.DefaultOrbitParameters()
	if err := e.Start(context.Background(), params, 1); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var last model.Frame
	for i := 1; i <= 3; i++ {
		f, err := e.Step()
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if f.Seq != uint64(i) {
			t.Fatalf("Seq = %d, want %d", f.Seq, i)
		}
		if want := float64(i) * 0.01; math.Abs(f.Phase-want) > 1e-12 {
			t.Fatalf("Phase = %v, want %v", f.Phase, want)
		}
		last = f
	}

	if math.Abs(last.EarthRotation-last.Phase*100) > 1e-9 {
		t.Fatalf("EarthRotation = %v, want %v", last.EarthRotation, last.Phase*100)
	}
	if math.Abs(last.Earth.Lon-(last.Absolute.Lon-last.EarthRotation)) > 1e-12 || last.Earth.Lat != last.Absolute.Lat {
		t.Fatalf("earth frame %+v does not match absolute %+v", last.Earth, last.Absolute)
	}
	want := core.CalculatePosition(params.InitialLatitude, params.InitialLongitude, params.PlaneDirection, last.Phase)
	if math.Abs(last.Position.X-want.X) > 1e-12 || math.Abs(last.Position.Y-want.Y) > 1e-12 || math.Abs(last.Position.Z-want.Z) > 1e-12 {
		t.Fatalf("Position = %+v, want %+v", last.Position, want)
	}
	if last.Params != params || last.AnimationSpeed != 1 {
		t.Fatalf("frame params = %+v speed %v", last.Params, last.AnimationSpeed)
	}

	if got, ok := store.LatestFrame(); !ok || got.Seq != 3 {
		t.Fatalf("store latest frame = %+v, %v", got, ok)
	}
	if n, _ := rec.counts(); n != 3 {
		t.Fatalf("renderer frames = %d, want 3", n)
	}
}

func TestStopClearsRenderersAndKeepsPhase(t *testing.T) {
	store := kb.NewKnowledgeBase()
	rec := &recordingRenderer{}
	e := NewEngine(store, nil, WithManualStepping(), WithRenderers(rec))
	if err := e.Start(context.Background(), model.DefaultOrbitParameters(), 2); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range 5 {
		if _, err := e.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st := e.Status()
	if st.Running || math.Abs(st.Phase-0.1) > 1e-12 {
		t.Fatalf("status after stop = %+v", st)
	}
	if n, _ := rec.counts(); n != 0 {
		t.Fatalf("renderer frames after stop = %d, want 0", n)
	}
	if store.Running() {
		t.Fatalf("store still running after stop")
	}
	if _, err := e.Step(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Step after stop error = %v, want ErrNotRunning", err)
	}
}

func TestSetAnimationSpeedContinuesPhase(t *testing.T) {
	rec := &recordingRenderer{}
	e := NewEngine(nil, nil, WithManualStepping(), WithRenderers(rec))
	if err := e.Start(context.Background(), model.DefaultOrbitParameters(), 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range 4 {
		e.Step()
	}
	_, resetsBefore := rec.counts()
	if err := e.SetAnimationSpeed(3); err != nil {
		t.Fatalf("SetAnimationSpeed: %v", err)
	}
	n, resets := rec.counts()
	if n != 0 || resets != resetsBefore+1 {
		t.Fatalf("renderer after speed change: frames %d resets %d", n, resets)
	}
	f, err := e.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if math.Abs(f.Phase-0.07) > 1e-12 || f.AnimationSpeed != 3 {
		t.Fatalf("frame after speed change = phase %v speed %v, want 0.07 and 3", f.Phase, f.AnimationSpeed)
	}
	if run, _ := e.Store().CurrentRun(); run.AnimationSpeed != 3 {
		t.Fatalf("stored animation speed = %v, want 3", run.AnimationSpeed)
	}
	if err := e.SetAnimationSpeed(math.Inf(1)); !errors.Is(err, ErrInvalidAnimationSpeed) {
		t.Fatalf("SetAnimationSpeed(+Inf) error = %v", err)
	}
}

func TestRestartResetsPhase(t *testing.T) {
	store := kb.NewKnowledgeBase()
	e := NewEngine(store, nil, WithManualStepping())
	ctx := context.Background()
	if err := e.Start(ctx, model.DefaultOrbitParameters(), 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e.Step()
	e.Step()

	next := model.DefaultOrbitParameters()
	next.PlaneDirection = 60
	if err := e.Start(ctx, next, 1); err != nil {
		t.Fatalf("restart: %v", err)
	}
	run, _ := store.CurrentRun()
	if run.ID != 2 || run.Params != next {
		t.Fatalf("run after restart = %+v", run)
	}
	f, _ := e.Step()
	if f.Seq != 1 || math.Abs(f.Phase-0.01) > 1e-12 || f.Params.PlaneDirection != 60 {
		t.Fatalf("first frame of the new run = %+v", f)
	}
}

func TestEngineRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}
	globe := render.NewFadingGlobe(2)
	e := NewEngine(nil, nil, WithManualStepping(), WithMetricsRecorder(metrics), WithRenderers(globe))
	if err := e.Start(context.Background(), model.DefaultOrbitParameters(), 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range 3 {
		e.Step()
	}
	if got := testutil.ToFloat64(metrics.TicksTotal); got != 3 {
		t.Fatalf("ticks = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.TrailLength.WithLabelValues(render.FadingGlobeName)); got != 2 {
		t.Fatalf("trail length = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.Running); got != 1 {
		t.Fatalf("running = %v, want 1", got)
	}
	e.Stop()
	if got := testutil.ToFloat64(metrics.Running); got != 0 {
		t.Fatalf("running after stop = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.TrailLength.WithLabelValues(render.FadingGlobeName)); got != 0 {
		t.Fatalf("trail length after stop = %v, want 0", got)
	}
}

func TestDriverTicksUntilStopped(t *testing.T) {
	store := kb.NewKnowledgeBase()
	rec := &recordingRenderer{}
	e := NewEngine(store, nil, WithInterval(time.Millisecond), WithRenderers(rec))
	if e.Renderers()[0] != render.Renderer(rec) {
		t.Fatalf("Renderers() did not return the registered renderer")
	}
	if r, ok := e.Renderer("recording"); !ok || r != render.Renderer(rec) {
		t.Fatalf("Renderer(recording) = %v, %v", r, ok)
	}
	if err := e.Start(context.Background(), model.DefaultOrbitParameters(), 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "three ticks", func() bool {
		f, ok := store.LatestFrame()
		return ok && f.Seq >= 3
	})
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st := e.Status()
	if st.Running || st.Phase < 0.03-1e-12 {
		t.Fatalf("status after stop = %+v", st)
	}
	phase := st.Phase
	time.Sleep(10 * time.Millisecond)
	if got := e.Status().Phase; got != phase {
		t.Fatalf("phase moved after stop: %v -> %v", phase, got)
	}
}

func TestDriverStopsWithContext(t *testing.T) {
	store := kb.NewKnowledgeBase()
	e := NewEngine(store, nil, WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	if err := e.Start(ctx, model.DefaultOrbitParameters(), 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	waitFor(t, "run to stop", func() bool { return !e.Status().Running })
	if store.Running() {
		t.Fatalf("store still running after context cancel")
	}
	if err := e.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop after cancel error = %v, want ErrNotRunning", err)
	}
}
