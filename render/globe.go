package render

import (
	"sync"

	"github.com/signalsfoundry/orbit-visualizer/core"
	"github.com/signalsfoundry/orbit-visualizer/model"
)

// Renderer names used in URLs and metric labels.
const (
	FadingGlobeName       = "fading"
	AccumulatingGlobeName = "accumulating"
	MapName               = "map"
)

// TrailVertex is one trail point with its display opacity in [0, 1].
type TrailVertex struct {
	model.CartesianPosition
	Alpha float64 `json:"alpha"`
}

// GlobeScene is a snapshot of a 3D globe renderer.
type GlobeScene struct {
	Name string `json:"name"`
	Seq  uint64 `json:"seq"`
	// Marker is the object position in the inertial frame.
	Marker model.CartesianPosition `json:"marker"`
	// MarkerEarthFixed is Marker expressed in the rotating earth mesh frame.
	MarkerEarthFixed model.CartesianPosition  `json:"marker_earth_fixed"`
	InitialPoint     *model.CartesianPosition `json:"initial_point,omitempty"`
	// EarthRotation is the mesh rotation about the polar axis, in degrees.
	EarthRotation float64       `json:"earth_rotation"`
	Trail         []TrailVertex `json:"trail"`
	DrawCount     int           `json:"draw_count"`
	Capacity      int           `json:"capacity"`
}

// FadingGlobe keeps a bounded trail whose opacity fades from the newest
// point to the oldest, over an earth mesh that rotates with the frame.
type FadingGlobe struct {
	mu       sync.RWMutex
	trail    *TrailBuffer[model.CartesianPosition]
	marker   model.CartesianPosition
	rotation float64
	seq      uint64
}

// NewFadingGlobe builds the renderer. A non-positive capacity selects
// DefaultTrailCapacity.
func NewFadingGlobe(capacity int) *FadingGlobe {
	return &FadingGlobe{trail: NewTrailBuffer[model.CartesianPosition](capacity)}
}

// Name implements Renderer.
func (g *FadingGlobe) Name() string { return FadingGlobeName }

// Render moves the marker to the frame position and extends the trail.
func (g *FadingGlobe) Render(frame model.Frame) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.marker = frame.Position
	g.rotation = frame.EarthRotation
	g.seq = frame.Seq
	g.trail.Push(frame.Position)
}

// Reset clears the trail and markers.
func (g *FadingGlobe) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trail.Reset()
	g.marker = model.CartesianPosition{}
	g.rotation = 0
	g.seq = 0
}

// TrailLen returns the number of trail points held.
func (g *FadingGlobe) TrailLen() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.trail.Len()
}

// Scene returns a snapshot of the globe.
func (g *FadingGlobe) Scene() GlobeScene {
	g.mu.RLock()
	defer g.mu.RUnlock()
	pts := g.trail.Points()
	trail := make([]TrailVertex, len(pts))
	for i, p := range pts {
		trail[i] = TrailVertex{CartesianPosition: p, Alpha: float64(i+1) / float64(len(pts))}
	}
	return GlobeScene{
		Name:             FadingGlobeName,
		Seq:              g.seq,
		Marker:           g.marker,
		MarkerEarthFixed: core.RotateAboutPole(g.marker, -g.rotation),
		EarthRotation:    g.rotation,
		Trail:            trail,
		DrawCount:        len(trail),
		Capacity:         g.trail.Cap(),
	}
}

// AccumulatingGlobe keeps a fixed-capacity trail drawn at full opacity plus
// a marker at the run's initial point. Its earth mesh does not rotate.
type AccumulatingGlobe struct {
	mu      sync.RWMutex
	trail   *TrailBuffer[model.CartesianPosition]
	marker  model.CartesianPosition
	initial *model.CartesianPosition
	seq     uint64
}

// NewAccumulatingGlobe builds the renderer. A non-positive capacity selects
// DefaultTrailCapacity.
func NewAccumulatingGlobe(capacity int) *AccumulatingGlobe {
	return &AccumulatingGlobe{trail: NewTrailBuffer[model.CartesianPosition](capacity)}
}

// Name implements Renderer.
func (g *AccumulatingGlobe) Name() string { return AccumulatingGlobeName }

// Render moves the marker to the frame position and extends the trail.
func (g *AccumulatingGlobe) Render(frame model.Frame) {
	initial := core.NewInitialPointModel(frame.Params).PositionAt(frame.Phase).CartesianPosition

	g.mu.Lock()
	defer g.mu.Unlock()
	g.marker = frame.Position
	g.initial = &initial
	g.seq = frame.Seq
	g.trail.Push(frame.Position)
}

// Reset clears the trail and markers.
func (g *AccumulatingGlobe) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trail.Reset()
	g.marker = model.CartesianPosition{}
	g.initial = nil
	g.seq = 0
}

// TrailLen returns the number of trail points held.
func (g *AccumulatingGlobe) TrailLen() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.trail.Len()
}

// Scene returns a snapshot of the globe.
func (g *AccumulatingGlobe) Scene() GlobeScene {
	g.mu.RLock()
	defer g.mu.RUnlock()
	pts := g.trail.Points()
	trail := make([]TrailVertex, len(pts))
	for i, p := range pts {
		trail[i] = TrailVertex{CartesianPosition: p, Alpha: 1}
	}
	scene := GlobeScene{
		Name:             AccumulatingGlobeName,
		Seq:              g.seq,
		Marker:           g.marker,
		MarkerEarthFixed: g.marker,
		Trail:            trail,
		DrawCount:        len(trail),
		Capacity:         g.trail.Cap(),
	}
	if g.initial != nil {
		p := *g.initial
		scene.InitialPoint = &p
	}
	return scene
}
