package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOrbitParameters indicates orbit parameters failed validation.
var ErrInvalidOrbitParameters = errors.New("invalid orbit parameters")

// OrbitParameters fix a simulation run. They are set once when a run starts
// and never change while it is running.
type OrbitParameters struct {
	InitialLatitude  float64 `json:"initial_latitude"`  // degrees
	InitialLongitude float64 `json:"initial_longitude"` // degrees
	// PlaneDirection tilts the orbital plane at the initial point, measured
	// from local east towards local north, in degrees.
	PlaneDirection float64 `json:"direction"`
	// ScaleFactor is the "speed" control. It is carried with the run but the
	// position formula does not use it; only the animation speed changes how
	// fast the phase advances.
	ScaleFactor float64 `json:"speed"`
}

// DefaultOrbitParameters mirrors the controls' initial values.
func DefaultOrbitParameters() OrbitParameters {
	return OrbitParameters{
		InitialLatitude:  0,
		InitialLongitude: 135,
		PlaneDirection:   30,
		ScaleFactor:      100,
	}
}

// InitialPosition returns the starting point of the run.
func (p OrbitParameters) InitialPosition() GeoPosition {
	return GeoPosition{Lat: p.InitialLatitude, Lon: p.InitialLongitude}
}

// Validate checks that every field is finite and the latitude is on the sphere.
func (p OrbitParameters) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"initial_latitude", p.InitialLatitude},
		{"initial_longitude", p.InitialLongitude},
		{"direction", p.PlaneDirection},
		{"speed", p.ScaleFactor},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidOrbitParameters, f.name, f.value)
		}
	}
	if p.InitialLatitude < -90 || p.InitialLatitude > 90 {
		return fmt.Errorf("%w: initial_latitude %v outside [-90, 90]", ErrInvalidOrbitParameters, p.InitialLatitude)
	}
	return nil
}
