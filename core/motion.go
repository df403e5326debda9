package core

import (
	"github.com/signalsfoundry/orbit-visualizer/model"
)

// MotionModel returns where a tracked point is for a given orbital phase.
type MotionModel interface {
	PositionAt(phase float64) OrbitPosition
}

// StaticMotionModel keeps its point fixed regardless of phase. It is used
// for the initial-point marker.
type StaticMotionModel struct {
	Position model.GeoPosition
	Radius   float64
}

// PositionAt returns the fixed position.
func (m *StaticMotionModel) PositionAt(float64) OrbitPosition {
	return OrbitPosition{
		CartesianPosition: GeoToCartesian(m.Position, radiusOrUnit(m.Radius)),
		GeoPosition:       m.Position,
	}
}

// GreatCircleMotionModel moves along the great circle defined by a run's
// orbit parameters.
type GreatCircleMotionModel struct {
	Params model.OrbitParameters
	Radius float64
}

// PositionAt evaluates the orbit at the given phase.
func (m *GreatCircleMotionModel) PositionAt(phase float64) OrbitPosition {
	radius := radiusOrUnit(m.Radius)
	pos := CalculatePositionWithRadius(
		m.Params.InitialLatitude,
		m.Params.InitialLongitude,
		m.Params.PlaneDirection,
		phase,
		radius,
	)
	return OrbitPosition{
		CartesianPosition: pos,
		GeoPosition:       CartesianToGeo(pos, radius),
	}
}

// NewMotionModel builds the unit-sphere great-circle model for a run.
func NewMotionModel(params model.OrbitParameters) MotionModel {
	return &GreatCircleMotionModel{Params: params, Radius: UnitRadius}
}

// NewInitialPointModel builds the static model for a run's starting point.
func NewInitialPointModel(params model.OrbitParameters) MotionModel {
	return &StaticMotionModel{Position: params.InitialPosition(), Radius: UnitRadius}
}

func radiusOrUnit(r float64) float64 {
	if r <= 0 {
		return UnitRadius
	}
	return r
}
