package render

import (
	"math"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

// MaxMercatorLatitude is where MercatorY reaches ±π, the top and bottom
// edges of the map.
var MaxMercatorLatitude = 180 / math.Pi * math.Atan(math.Sinh(math.Pi))

// Grid spacing and extent, in degrees.
const (
	gridStep   = 15.0
	gridMaxLat = 75.0
)

// MercatorY returns ln(tan(π/4 + lat/2)) for lat in degrees. Latitudes are
// clamped to ±MaxMercatorLatitude so the poles stay on the map.
func MercatorY(lat float64) float64 {
	lat = math.Max(-MaxMercatorLatitude, math.Min(MaxMercatorLatitude, lat))
	return math.Log(math.Tan(math.Pi/4 + lat*math.Pi/360))
}

// ScreenPoint is a pixel position with the origin at the top-left corner.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projector maps geographic positions onto a Width×Height raster.
// WestLongitude is the longitude shown at the left edge.
type Projector struct {
	Width, Height float64
	WestLongitude float64
}

// LongitudeX returns the horizontal pixel for a longitude, wrapping any
// unnormalized longitude onto the map.
func (p Projector) LongitudeX(lon float64) float64 {
	return positiveMod(lon-p.WestLongitude, 360) / 360 * p.Width
}

// LatitudeY returns the vertical pixel for a latitude.
func (p Projector) LatitudeY(lat float64) float64 {
	return (1 - MercatorY(lat)/math.Pi) * p.Height / 2
}

// ToScreen projects a geographic position.
func (p Projector) ToScreen(geo model.GeoPosition) ScreenPoint {
	return ScreenPoint{X: p.LongitudeX(geo.Lon), Y: p.LatitudeY(geo.Lat)}
}

// GridLines holds the pixel offsets of the map's graticule.
type GridLines struct {
	Horizontal []float64 `json:"horizontal"` // y of each parallel
	Vertical   []float64 `json:"vertical"`   // x of each meridian
}

// Grid returns parallels every 15° between ±75° and meridians every 15°
// from -180° to 180°.
func (p Projector) Grid() GridLines {
	var g GridLines
	for lat := -gridMaxLat; lat <= gridMaxLat; lat += gridStep {
		g.Horizontal = append(g.Horizontal, p.LatitudeY(lat))
	}
	for lon := -180.0; lon <= 180; lon += gridStep {
		g.Vertical = append(g.Vertical, p.LongitudeX(lon))
	}
	return g
}

func positiveMod(v, m float64) float64 {
	r := math.Mod(v, m)
	if r < 0 {
		r += m
	}
	return r
}
