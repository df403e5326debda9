package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

func TestStaticMotionModel_NoChange(t *testing.T) {
	m := &StaticMotionModel{Position: model.GeoPosition{Lat: 10, Lon: 20}}
	first := m.PositionAt(0)
	second := m.PositionAt(42)
	if first != second {
		t.Fatalf("static motion should not change, got %+v then %+v", first, second)
	}
	if first.GeoPosition != m.Position {
		t.Fatalf("static geo = %+v, want %+v", first.GeoPosition, m.Position)
	}
	if want := GeoToXYZ(m.Position); !closePos(first.CartesianPosition, want, tol) {
		t.Fatalf("static xyz = %+v, want %+v", first.CartesianPosition, want)
	}
}

func TestGreatCircleMotionModel_ChangesOverTime(t *testing.T) {
	params := model.DefaultOrbitParameters()
	m := NewMotionModel(params)

	first := m.PositionAt(0)
	second := m.PositionAt(0.5)
	if first == second {
		t.Fatalf("expected position to change over time, got %+v at both phases", first)
	}
	want := CalculateOrbitPosition(params.InitialLatitude, params.InitialLongitude, params.PlaneDirection, 0.5)
	if !closePos(second.CartesianPosition, want.CartesianPosition, tol) {
		t.Fatalf("PositionAt(0.5) = %+v, want %+v", second, want)
	}
	if math.Abs(second.Lat-want.Lat) > tol || math.Abs(second.Lon-want.Lon) > tol {
		t.Fatalf("PositionAt(0.5) geo = %+v, want %+v", second.GeoPosition, want.GeoPosition)
	}
}

func TestGreatCircleMotionModel_Radius(t *testing.T) {
	params := model.DefaultOrbitParameters()
	m := &GreatCircleMotionModel{Params: params, Radius: 2}
	got := m.PositionAt(1)
	if n := Norm(got.CartesianPosition); math.Abs(n-2) > 1e-9 {
		t.Fatalf("norm = %v, want 2", n)
	}
	unit := NewMotionModel(params).PositionAt(1)
	if math.Abs(got.Lat-unit.Lat) > 1e-9 || math.Abs(got.Lon-unit.Lon) > 1e-9 {
		t.Fatalf("geo should not depend on radius: %+v vs %+v", got.GeoPosition, unit.GeoPosition)
	}
}

func TestNewInitialPointModel(t *testing.T) {
	params := model.DefaultOrbitParameters()
	got := NewInitialPointModel(params).PositionAt(99)
	if got.GeoPosition != params.InitialPosition() {
		t.Fatalf("initial point = %+v, want %+v", got.GeoPosition, params.InitialPosition())
	}
}
