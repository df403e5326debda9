package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimulationCollector exposes simulation loop metrics.
type SimulationCollector struct {
	TicksTotal    prometheus.Counter
	RunsTotal     prometheus.Counter
	Running       prometheus.Gauge
	Phase         prometheus.Gauge
	EarthRotation prometheus.Gauge
	TickDuration  prometheus.Histogram
	TrailLength   *prometheus.GaugeVec
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitviz_ticks_total",
		Help: "Cumulative number of simulation ticks.",
	}), "orbitviz_ticks_total")
	if err != nil {
		return nil, err
	}
	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitviz_runs_total",
		Help: "Cumulative number of started runs.",
	}), "orbitviz_runs_total")
	if err != nil {
		return nil, err
	}
	running, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitviz_running",
		Help: "1 while a run is active, 0 otherwise.",
	}), "orbitviz_running")
	if err != nil {
		return nil, err
	}
	phase, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitviz_phase_radians",
		Help: "Current orbital phase of the run.",
	}), "orbitviz_phase_radians")
	if err != nil {
		return nil, err
	}
	rotation, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitviz_earth_rotation_degrees",
		Help: "Current earth rotation of the run.",
	}), "orbitviz_earth_rotation_degrees")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitviz_tick_duration_seconds",
		Help:    "Time spent computing and rendering one tick.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "orbitviz_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	trail, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orbitviz_trail_length",
		Help: "Number of trail elements held by each renderer.",
	}, []string{"renderer"}), "orbitviz_trail_length")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		TicksTotal:    ticks,
		RunsTotal:     runs,
		Running:       running,
		Phase:         phase,
		EarthRotation: rotation,
		TickDuration:  duration,
		TrailLength:   trail,
	}, nil
}

// ObserveTick records one completed tick.
func (c *SimulationCollector) ObserveTick(phase, earthRotation float64, d time.Duration) {
	if c == nil {
		return
	}
	if c.TicksTotal != nil {
		c.TicksTotal.Inc()
	}
	if c.Phase != nil {
		c.Phase.Set(phase)
	}
	if c.EarthRotation != nil {
		c.EarthRotation.Set(earthRotation)
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(d.Seconds())
	}
}

// SetTrailLength updates the trail gauge for a renderer.
func (c *SimulationCollector) SetTrailLength(renderer string, n int) {
	if c == nil || c.TrailLength == nil {
		return
	}
	c.TrailLength.WithLabelValues(renderer).Set(float64(n))
}

// RunStarted counts a run and marks the simulation as running.
func (c *SimulationCollector) RunStarted() {
	if c == nil {
		return
	}
	if c.RunsTotal != nil {
		c.RunsTotal.Inc()
	}
	c.SetRunning(true)
}

// SetRunning updates the running gauge.
func (c *SimulationCollector) SetRunning(running bool) {
	if c == nil || c.Running == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	c.Running.Set(v)
}
