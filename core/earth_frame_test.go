package core

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

func TestAbsoluteToEarth(t *testing.T) {
	g := model.GeoPosition{Lat: 12, Lon: 135}
	got := AbsoluteToEarth(g, 200)
	if got.Lat != 12 || got.Lon != -65 {
		t.Fatalf("AbsoluteToEarth = %+v, want {12 -65}", got)
	}
	// No wrapping is applied.
	if got := AbsoluteToEarth(g, 1000); got.Lon != -865 {
		t.Fatalf("AbsoluteToEarth lon = %v, want -865", got.Lon)
	}
}

func TestAbsoluteToEarthComposes(t *testing.T) {
	g := model.GeoPosition{Lat: -33, Lon: 151}
	for _, r1 := range []float64{0, 1.5, 90, 359, 1234.5} {
		for _, r2 := range []float64{0, -10, 45, 720} {
			got := AbsoluteToEarth(AbsoluteToEarth(g, r1), r2)
			want := g.Lon - r1 - r2
			if lonDiff(got.Lon, want) > 1e-9 {
				t.Fatalf("compose(%v, %v) lon = %v, want %v", r1, r2, got.Lon, want)
			}
			if got.Lat != g.Lat {
				t.Fatalf("latitude changed: %v", got.Lat)
			}
		}
	}
}

func TestEarthRotation(t *testing.T) {
	if got := EarthRotation(0.01); !scalar.EqualWithinAbs(got, 1, 1e-12) {
		t.Fatalf("EarthRotation(0.01) = %v, want 1", got)
	}
	if got := EarthRotation(3); got != 300 {
		t.Fatalf("EarthRotation(3) = %v, want 300", got)
	}
}

func TestWrapLongitude(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{180, 180},
		{-180, 180},
		{181, -179},
		{-181, 179},
		{360, 0},
		{540, 180},
		{-865, -145},
		{719.5, -0.5},
	}
	for _, tc := range cases {
		if got := WrapLongitude(tc.in); !scalar.EqualWithinAbs(got, tc.want, 1e-9) {
			t.Fatalf("WrapLongitude(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
