package model

// Frame is the per-tick output of the simulation. It is pushed to every
// renderer and subscriber; consumers must treat it as an immutable value.
type Frame struct {
	Seq   uint64  `json:"seq"`
	Phase float64 `json:"phase"` // orbital phase theta, radians

	// EarthRotation is the accumulated planetary spin in degrees.
	EarthRotation float64 `json:"earth_rotation"`

	Position CartesianPosition `json:"position"`
	Absolute GeoPosition       `json:"absolute"`
	Earth    GeoPosition       `json:"earth"`

	Params         OrbitParameters `json:"params"`
	AnimationSpeed float64         `json:"animation_speed"`
}
