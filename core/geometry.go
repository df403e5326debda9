package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/orbit-visualizer/model"
)

// Vec converts a position to a gonum vector.
func Vec(p model.CartesianPosition) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// FromVec converts a gonum vector back to a position.
func FromVec(v r3.Vec) model.CartesianPosition {
	return model.CartesianPosition{X: v.X, Y: v.Y, Z: v.Z}
}

// Norm returns the distance of p from the sphere's centre.
func Norm(p model.CartesianPosition) float64 {
	return r3.Norm(Vec(p))
}

// CentralAngle returns the angle in degrees between two positions as seen
// from the centre of the sphere. It returns 0 if either vector is zero.
func CentralAngle(a, b model.CartesianPosition) float64 {
	va, vb := Vec(a), Vec(b)
	if r3.Norm(va) == 0 || r3.Norm(vb) == 0 {
		return 0
	}
	// atan2 of |a×b| and a·b stays accurate for nearly parallel vectors.
	return RadianToDegree(math.Atan2(r3.Norm(r3.Cross(va, vb)), r3.Dot(va, vb)))
}

// RotateAboutPole rotates p about the sphere's polar (z) axis by the given
// angle in degrees. Positive angles turn eastwards.
func RotateAboutPole(p model.CartesianPosition, degrees float64) model.CartesianPosition {
	rot := r3.NewRotation(DegreeToRadian(degrees), r3.Vec{Z: 1})
	return FromVec(rot.Rotate(Vec(p)))
}
