package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // base maps may be JPEG
	"image/png"
	"io"
	"math"
	"os"
	"sync"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/image/draw"

	"github.com/signalsfoundry/orbit-visualizer/core"
	"github.com/signalsfoundry/orbit-visualizer/model"
)

// Default raster size of the map.
const (
	DefaultMapWidth  = 1024
	DefaultMapHeight = 768
)

// ErrInvalidMapConfig is returned for unusable map dimensions or frames.
var ErrInvalidMapConfig = errors.New("invalid map config")

const markerRadius = 5

var (
	backgroundColor = color.NRGBA{R: 0x0b, G: 0x1d, B: 0x3a, A: 0xff}
	gridColor       = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80}
	trailColor      = color.NRGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
	initialColor    = color.NRGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}
	objectColor     = color.NRGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}
)

// MapConfig configures a MapRenderer.
type MapConfig struct {
	Width, Height int
	// WestLongitude is the longitude at the left edge of the map.
	WestLongitude float64
	// Frame selects absolute or earth-fixed coordinates. Empty means absolute.
	Frame model.ReferenceFrame
	// MaxSegments caps the trail; zero keeps every segment.
	MaxSegments int
	// BaseMap, if set, is drawn under the grid, scaled to the map height
	// and repeated horizontally. Its left edge is taken to be -180°.
	BaseMap image.Image
}

// Segment is one trail piece between consecutive ticks.
type Segment struct {
	From ScreenPoint `json:"from"`
	To   ScreenPoint `json:"to"`
}

// MapScene is a snapshot of the map renderer.
type MapScene struct {
	Seq           uint64               `json:"seq"`
	Width         int                  `json:"width"`
	Height        int                  `json:"height"`
	WestLongitude float64              `json:"west_longitude"`
	Frame         model.ReferenceFrame `json:"frame"`
	Initial       *ScreenPoint         `json:"initial,omitempty"`
	Object        *ScreenPoint         `json:"object,omitempty"`
	Segments      []Segment            `json:"segments"`
	Grid          GridLines            `json:"grid"`
}

// MapRenderer draws the object's path on a Mercator map.
type MapRenderer struct {
	cfg    MapConfig
	proj   Projector
	scaled *image.RGBA

	mu       sync.RWMutex
	params   *model.OrbitParameters
	last     *ScreenPoint
	segments []Segment
	track    *GroundTrack
	seq      uint64
}

// NewMapRenderer validates cfg and builds the renderer. Zero dimensions
// select the defaults.
func NewMapRenderer(cfg MapConfig) (*MapRenderer, error) {
	if cfg.Width == 0 {
		cfg.Width = DefaultMapWidth
	}
	if cfg.Height == 0 {
		cfg.Height = DefaultMapHeight
	}
	if cfg.Frame == "" {
		cfg.Frame = model.FrameAbsolute
	}
	if cfg.Width < 0 || cfg.Height < 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidMapConfig, cfg.Width, cfg.Height)
	}
	if !cfg.Frame.Valid() {
		return nil, fmt.Errorf("%w: frame %q", ErrInvalidMapConfig, cfg.Frame)
	}
	if math.IsNaN(cfg.WestLongitude) || math.IsInf(cfg.WestLongitude, 0) {
		return nil, fmt.Errorf("%w: west longitude %v", ErrInvalidMapConfig, cfg.WestLongitude)
	}
	r := &MapRenderer{
		cfg:   cfg,
		proj:  Projector{Width: float64(cfg.Width), Height: float64(cfg.Height), WestLongitude: cfg.WestLongitude},
		track: NewGroundTrack(cfg.MaxSegments),
	}
	if cfg.BaseMap != nil {
		r.scaled = scaleBaseMap(cfg.BaseMap, cfg.Height)
	}
	return r, nil
}

// LoadBaseMap decodes a PNG or JPEG image from path.
func LoadBaseMap(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open base map: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode base map %s: %w", path, err)
	}
	return img, nil
}

func scaleBaseMap(src image.Image, height int) *image.RGBA {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || height == 0 {
		return nil
	}
	width := max(1, height*b.Dx()/b.Dy())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Name identifies the renderer.
func (r *MapRenderer) Name() string { return MapName }

// Projector returns the screen mapping used by the renderer.
func (r *MapRenderer) Projector() Projector { return r.proj }

// Render recomputes the geographic position from the frame's orbit
// parameters and phase, then extends the trail. A segment whose ends sit on
// opposite halves of the map wrapped around the edge and is not drawn.
func (r *MapRenderer) Render(frame model.Frame) {
	p := frame.Params
	geo := core.CalculateOrbitPosition(p.InitialLatitude, p.InitialLongitude, p.PlaneDirection, frame.Phase).GeoPosition
	if r.cfg.Frame == model.FrameEarth {
		geo = core.AbsoluteToEarth(geo, frame.EarthRotation)
	}
	pt := r.proj.ToScreen(geo)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = &p
	r.seq = frame.Seq
	if r.last != nil && math.Abs(pt.X-r.last.X) <= r.proj.Width/2 {
		r.segments = append(r.segments, Segment{From: *r.last, To: pt})
		if n := r.cfg.MaxSegments; n > 0 && len(r.segments) > n {
			r.segments = append(r.segments[:0], r.segments[len(r.segments)-n:]...)
		}
	}
	r.last = &pt
	r.track.Add(geo, frame.Seq)
}

// Reset clears the trail, the markers and the ground track.
func (r *MapRenderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = nil
	r.last = nil
	r.segments = nil
	r.track.Reset()
	r.seq = 0
}

// TrailLen returns the number of drawn segments.
func (r *MapRenderer) TrailLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.segments)
}

// Scene returns a snapshot of the map in screen coordinates.
func (r *MapRenderer) Scene() MapScene {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scene := MapScene{
		Seq:           r.seq,
		Width:         r.cfg.Width,
		Height:        r.cfg.Height,
		WestLongitude: r.cfg.WestLongitude,
		Frame:         r.cfg.Frame,
		Segments:      append([]Segment(nil), r.segments...),
		Grid:          r.proj.Grid(),
	}
	if r.params != nil {
		initial := r.proj.ToScreen(r.params.InitialPosition())
		scene.Initial = &initial
	}
	if r.last != nil {
		obj := *r.last
		scene.Object = &obj
	}
	return scene
}

// GroundTrack exports the geographic trail as GeoJSON, in the renderer's
// reference frame.
func (r *MapRenderer) GroundTrack() *geojson.FeatureCollection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var initial *model.GeoPosition
	if r.params != nil {
		g := r.params.InitialPosition()
		initial = &g
	}
	return r.track.FeatureCollection(initial)
}

// Image rasterizes the current scene: background or base map, grid, trail,
// then the initial-point and object markers.
func (r *MapRenderer) Image() *image.RGBA {
	scene := r.Scene()
	img := image.NewRGBA(image.Rect(0, 0, scene.Width, scene.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	if r.scaled != nil {
		w := r.scaled.Bounds().Dx()
		offset := pixel(positiveMod(r.cfg.WestLongitude+180, 360) / 360 * float64(w))
		for x := -offset; x < scene.Width; x += w {
			draw.Draw(img, image.Rect(x, 0, x+w, scene.Height), r.scaled, image.Point{}, draw.Over)
		}
	}
	for _, y := range scene.Grid.Horizontal {
		hline(img, y, gridColor)
	}
	for _, x := range scene.Grid.Vertical {
		vline(img, x, gridColor)
	}
	for _, s := range scene.Segments {
		line(img, s.From, s.To, trailColor)
	}
	if scene.Initial != nil {
		disc(img, *scene.Initial, markerRadius, initialColor)
	}
	if scene.Object != nil {
		disc(img, *scene.Object, markerRadius, objectColor)
	}
	return img
}

// EncodePNG writes Image as a PNG.
func (r *MapRenderer) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.Image()); err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	return nil
}
