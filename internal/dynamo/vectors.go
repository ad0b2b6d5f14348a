package dynamo

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Points returns the number of 3-vectors stored in s.
func Points(s State) int {
	return len(s) / 3
}

// Components returns the x, y and z views of a component-major vector field.
// The views alias s.
func Components(s State) (x, y, z []float64) {
	n := Points(s)
	return s[:n], s[n : 2*n], s[2*n : 3*n]
}

// At returns the vector stored at point i.
func At(s State, i int) r3.Vec {
	n := Points(s)
	return r3.Vec{X: s[i], Y: s[n+i], Z: s[2*n+i]}
}

// Set stores v at point i.
func Set(s State, i int, v r3.Vec) {
	n := Points(s)
	s[i], s[n+i], s[2*n+i] = v.X, v.Y, v.Z
}

// Uniform returns a field of n copies of dir.
func Uniform(n int, dir [3]float64) State {
	s := make(State, 3*n)
	x, y, z := Components(s)
	for i := 0; i < n; i++ {
		x[i], y[i], z[i] = dir[0], dir[1], dir[2]
	}
	return s
}

// Normalize rescales every point of s in place to the given length.
// Zero vectors are left untouched.
func Normalize(s State, length float64) {
	x, y, z := Components(s)
	for i := range x {
		norm := math.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
		if norm == 0 {
			continue
		}
		f := length / norm
		x[i] *= f
		y[i] *= f
		z[i] *= f
	}
}

// Average returns the mean vector of the field.
func Average(s State) [3]float64 {
	n := Points(s)
	if n == 0 {
		return [3]float64{}
	}
	x, y, z := Components(s)
	inv := 1 / float64(n)
	return [3]float64{floats.Sum(x) * inv, floats.Sum(y) * inv, floats.Sum(z) * inv}
}

// MaxNormDeviation returns max_i ||m_i| - 1|.
func MaxNormDeviation(s State) float64 {
	x, y, z := Components(s)
	dev := 0.0
	for i := range x {
		norm := math.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
		dev = math.Max(dev, math.Abs(norm-1))
	}
	return dev
}

// Angle returns the angle between a and b in radians.
func Angle(a, b [3]float64) float64 {
	va := r3.Vec{X: a[0], Y: a[1], Z: a[2]}
	vb := r3.Vec{X: b[0], Y: b[1], Z: b[2]}
	c := r3.Dot(va, vb) / (r3.Norm(va) * r3.Norm(vb))
	// rounding can push |c| slightly above 1
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// PerturbedVectors returns n unit vectors pointing roughly along dir, each
// displaced by a uniform random offset in [-amplitude/2, amplitude/2)^3.
func PerturbedVectors(n int, dir [3]float64, amplitude float64, rng *rand.Rand) State {
	s := Uniform(n, dir)
	if amplitude != 0 {
		for i := range s {
			s[i] += amplitude * (rng.Float64() - 0.5)
		}
	}
	Normalize(s, 1)
	return s
}
