package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

func closePos(a, b model.CartesianPosition, eps float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, eps) &&
		scalar.EqualWithinAbs(a.Y, b.Y, eps) &&
		scalar.EqualWithinAbs(a.Z, b.Z, eps)
}

var orbitGrid = struct {
	lats, lons, dirs, times []float64
}{
	lats:  []float64{-90, -60, -23.4, 0, 12.5, 45, 89.9, 90},
	lons:  []float64{-180, -97, 0, 42, 135, 180},
	dirs:  []float64{-135, 0, 30, 90, 210},
	times: []float64{0, 0.01, 0.5, math.Pi / 2, 2, math.Pi, 5.5, 123.456},
}

func TestCalculatePositionUnitSphere(t *testing.T) {
	for _, lat := range orbitGrid.lats {
		for _, lon := range orbitGrid.lons {
			for _, dir := range orbitGrid.dirs {
				for _, tm := range orbitGrid.times {
					p := CalculatePosition(lat, lon, dir, tm)
					if n := p.X*p.X + p.Y*p.Y + p.Z*p.Z; !scalar.EqualWithinAbs(n, 1, tol) {
						t.Fatalf("|CalculatePosition(%v,%v,%v,%v)|² = %v, want 1", lat, lon, dir, tm, n)
					}
				}
			}
		}
	}
}

func TestCalculatePositionPeriodic(t *testing.T) {
	for _, lat := range orbitGrid.lats {
		for _, lon := range orbitGrid.lons {
			for _, dir := range orbitGrid.dirs {
				for _, tm := range orbitGrid.times {
					a := CalculatePosition(lat, lon, dir, tm)
					b := CalculatePosition(lat, lon, dir, tm+2*math.Pi)
					if !closePos(a, b, 1e-9) {
						t.Fatalf("not periodic at (%v,%v,%v,%v): %+v vs %+v", lat, lon, dir, tm, a, b)
					}
				}
			}
		}
	}
}

func TestCalculatePositionZeroTimeIdentity(t *testing.T) {
	for _, lat := range orbitGrid.lats {
		for _, lon := range orbitGrid.lons {
			want := GeoToXYZ(model.GeoPosition{Lat: lat, Lon: lon})
			for _, dir := range orbitGrid.dirs {
				if got := CalculatePosition(lat, lon, dir, 0); !closePos(got, want, tol) {
					t.Fatalf("CalculatePosition(%v,%v,%v,0) = %+v, want %+v", lat, lon, dir, got, want)
				}
			}
		}
	}
}

func TestCalculatePositionExampleStart(t *testing.T) {
	got := CalculatePosition(0, 135, 30, 0)
	want := model.CartesianPosition{X: math.Cos(DegreeToRadian(135)), Y: math.Sin(DegreeToRadian(135)), Z: 0}
	if !closePos(got, want, tol) {
		t.Fatalf("CalculatePosition(0,135,30,0) = %+v, want %+v", got, want)
	}
	if !scalar.EqualWithinAbs(got.X, -0.7071, 1e-4) || !scalar.EqualWithinAbs(got.Y, 0.7071, 1e-4) {
		t.Fatalf("CalculatePosition(0,135,30,0) = %+v, want about (-0.7071, 0.7071, 0)", got)
	}
}

func TestCalculatePositionExampleQuarterPeriod(t *testing.T) {
	start := CalculatePosition(0, 135, 30, 0)
	got := CalculatePosition(0, 135, 30, math.Pi/2)

	// Quarter period: east rotated 30° towards north at (0°, 135°).
	c30, s30 := math.Cos(DegreeToRadian(30)), math.Sin(DegreeToRadian(30))
	want := model.CartesianPosition{
		X: -math.Sin(DegreeToRadian(135)) * c30,
		Y: math.Cos(DegreeToRadian(135)) * c30,
		Z: s30,
	}
	if !closePos(got, want, tol) {
		t.Fatalf("CalculatePosition(0,135,30,π/2) = %+v, want %+v", got, want)
	}
	if a := CentralAngle(start, got); !scalar.EqualWithinAbs(a, 90, 1e-9) {
		t.Fatalf("central angle after a quarter period = %v, want 90", a)
	}
	// Inclination of the orbital plane relative to the equator equals the
	// tilt away from east when starting on the equator.
	normal := r3.Unit(r3.Cross(Vec(start), Vec(got)))
	incl := RadianToDegree(math.Acos(normal.Z))
	if !scalar.EqualWithinAbs(incl, 30, 1e-9) {
		t.Fatalf("orbital plane inclination = %v, want 30", incl)
	}
	if geo := XYZToGeo(got); !scalar.EqualWithinAbs(geo.Lat, 30, 1e-9) {
		t.Fatalf("latitude after a quarter period = %v, want 30", geo.Lat)
	}
}

func TestCalculatePositionStaysOnGreatCircle(t *testing.T) {
	for _, lat := range []float64{-45, 0, 30, 60} {
		for _, dir := range []float64{0, 30, 75, 160} {
			p0 := Vec(CalculatePosition(lat, 10, dir, 0))
			p1 := Vec(CalculatePosition(lat, 10, dir, 0.3))
			normal := r3.Unit(r3.Cross(p0, p1))
			for tm := 0.0; tm < 2*math.Pi; tm += 0.37 {
				p := Vec(CalculatePosition(lat, 10, dir, tm))
				if d := r3.Dot(normal, p); !scalar.EqualWithinAbs(d, 0, 1e-9) {
					t.Fatalf("lat=%v dir=%v t=%v: off the great circle by %v", lat, dir, tm, d)
				}
			}
		}
	}
}

func TestCalculatePositionAtPoles(t *testing.T) {
	for _, lat := range []float64{90, -90} {
		for _, dir := range []float64{0, 30, 90} {
			a := CalculatePosition(lat, 135, dir, math.Pi/3)
			b := CalculatePosition(lat, 135, dir, math.Pi/3)
			if a != b {
				t.Fatalf("pole result not deterministic: %+v vs %+v", a, b)
			}
			for _, v := range []float64{a.X, a.Y, a.Z} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("pole result not finite: %+v", a)
				}
			}
			if n := Norm(a); !scalar.EqualWithinAbs(n, 1, tol) {
				t.Fatalf("pole result off the unit sphere: %v", n)
			}
			// Leaving a pole always heads towards the opposite pole.
			if lat > 0 && a.Z >= 1 || lat < 0 && a.Z <= -1 {
				t.Fatalf("pole result did not move: %+v", a)
			}
		}
	}
}

func TestCalculatePositionWithRadiusScales(t *testing.T) {
	unit := CalculatePosition(20, -40, 30, 1.1)
	big := CalculatePositionWithRadius(20, -40, 30, 1.1, 3)
	want := model.CartesianPosition{X: 3 * unit.X, Y: 3 * unit.Y, Z: 3 * unit.Z}
	if !closePos(big, want, tol) {
		t.Fatalf("radius 3 = %+v, want %+v", big, want)
	}
}

func TestCalculateOrbitPositionConsistent(t *testing.T) {
	for _, tm := range orbitGrid.times {
		op := CalculateOrbitPosition(0, 135, 30, tm)
		if op.CartesianPosition != CalculatePosition(0, 135, 30, tm) {
			t.Fatalf("t=%v: cartesian mismatch", tm)
		}
		if op.GeoPosition != XYZToGeo(op.CartesianPosition) {
			t.Fatalf("t=%v: geographic mismatch %+v vs %+v", tm, op.GeoPosition, XYZToGeo(op.CartesianPosition))
		}
		if math.IsNaN(op.Lat) {
			t.Fatalf("t=%v: NaN latitude", tm)
		}
	}
}
