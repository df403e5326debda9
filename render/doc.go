// Package render turns simulation frames into presentation state: two 3D
// globe scenes with bounded trails, a Mercator-projected 2D map with an
// accumulating trail, and a GeoJSON ground track.
//
// Renderers are driven by the simulation engine once per tick and read
// concurrently by the HTTP layer, so every renderer guards its own state.
package render

import "github.com/signalsfoundry/orbit-visualizer/model"

// Renderer consumes one frame per tick.
type Renderer interface {
	// Name identifies the renderer in URLs, logs and metrics.
	Name() string
	// Render applies a frame.
	Render(frame model.Frame)
	// Reset tears down accumulated state such as trails.
	Reset()
	// TrailLen returns the number of trail elements currently held.
	TrailLen() int
}
