package render

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/orbit-visualizer/core"
	"github.com/signalsfoundry/orbit-visualizer/model"
)

// A longitude jump larger than this between consecutive points is taken as
// a crossing of the ±180° meridian rather than real motion.
const antimeridianThreshold = 180.0

// TrackPoint is one ground-track sample. Lon is normalized to (-180, 180].
type TrackPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	Seq uint64  `json:"seq"`
}

// GroundTrack is the geographic history of the object. It is not safe for
// concurrent use; MapRenderer guards it.
type GroundTrack struct {
	points []TrackPoint
	limit  int
}

// NewGroundTrack creates a track. A positive limit keeps only the most
// recent limit points.
func NewGroundTrack(limit int) *GroundTrack {
	return &GroundTrack{limit: limit}
}

// Add appends a position.
func (gt *GroundTrack) Add(geo model.GeoPosition, seq uint64) {
	gt.points = append(gt.points, TrackPoint{Lon: core.WrapLongitude(geo.Lon), Lat: geo.Lat, Seq: seq})
	if gt.limit > 0 && len(gt.points) > gt.limit {
		gt.points = append(gt.points[:0], gt.points[len(gt.points)-gt.limit:]...)
	}
}

// Len returns the number of recorded points.
func (gt *GroundTrack) Len() int { return len(gt.points) }

// Points returns a copy of the recorded points.
func (gt *GroundTrack) Points() []TrackPoint {
	return append([]TrackPoint(nil), gt.points...)
}

// Reset drops all points.
func (gt *GroundTrack) Reset() { gt.points = gt.points[:0] }

// Segments splits the track wherever it crosses the antimeridian, closing
// and reopening the pieces with interpolated points on the ±180° boundary.
func (gt *GroundTrack) Segments() [][]TrackPoint {
	return splitAtAntimeridian(gt.points)
}

// FeatureCollection exports the track as a MultiLineString feature, plus a
// Point feature for initial when it is non-nil.
func (gt *GroundTrack) FeatureCollection(initial *model.GeoPosition) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	segments := gt.Segments()
	lines := make(orb.MultiLineString, 0, len(segments))
	for _, seg := range segments {
		ls := make(orb.LineString, len(seg))
		for i, p := range seg {
			ls[i] = orb.Point{p.Lon, p.Lat}
		}
		lines = append(lines, ls)
	}
	track := geojson.NewFeature(lines)
	track.Properties["role"] = "track"
	track.Properties["points"] = len(gt.points)
	if n := len(gt.points); n > 0 {
		track.Properties["first_seq"] = gt.points[0].Seq
		track.Properties["last_seq"] = gt.points[n-1].Seq
	}
	fc.Append(track)

	if initial != nil {
		start := geojson.NewFeature(orb.Point{core.WrapLongitude(initial.Lon), initial.Lat})
		start.Properties["role"] = "initial"
		fc.Append(start)
	}
	return fc
}

func splitAtAntimeridian(points []TrackPoint) [][]TrackPoint {
	if len(points) == 0 {
		return nil
	}
	var segments [][]TrackPoint
	current := []TrackPoint{points[0]}
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if math.Abs(cur.Lon-prev.Lon) > antimeridianThreshold {
			closing, opening := antimeridianCrossing(prev, cur)
			segments = append(segments, append(current, closing))
			current = []TrackPoint{opening, cur}
			continue
		}
		current = append(current, cur)
	}
	return append(segments, current)
}

// antimeridianCrossing returns the boundary point on p1's side of the
// crossing and its twin on p2's side, interpolating latitude linearly in
// unwrapped longitude.
func antimeridianCrossing(p1, p2 TrackPoint) (TrackPoint, TrackPoint) {
	edge, unwrapped := 180.0, p2.Lon+360
	if p1.Lon < 0 {
		edge, unwrapped = -180.0, p2.Lon-360
	}
	t := 0.5
	if d := unwrapped - p1.Lon; math.Abs(d) > 1e-10 {
		t = (edge - p1.Lon) / d
	}
	lat := p1.Lat + t*(p2.Lat-p1.Lat)
	return TrackPoint{Lon: edge, Lat: lat, Seq: p1.Seq}, TrackPoint{Lon: -edge, Lat: lat, Seq: p2.Seq}
}
