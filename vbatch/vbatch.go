// Package vbatch implements columnar batches of 3D vectors where every
// component is a slice of float64 lanes. All arithmetic is performed
// lane-wise and returns freshly allocated batches.
//
// The only operations that mutate a receiver are [V3.Place] and [V3.CopyFrom].
// Everything else may be treated as a pure transformation.
package vbatch

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/soypat/geometry/md3"
)

// Tol is the absolute per-component tolerance used by [V3.Equal].
const Tol = 1e-14

// ErrDimensionMismatch is returned when batch components or operands
// do not share the same lane count.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// V3 is a batch of 3D vectors stored as three equal length lane slices.
type V3 struct {
	X, Y, Z []float64
}

// New creates a V3 from its components. The slices are not copied.
func New(x, y, z []float64) (V3, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return V3{}, fmt.Errorf("%w: x=%d y=%d z=%d", ErrDimensionMismatch, len(x), len(y), len(z))
	}
	return V3{X: x, Y: y, Z: z}, nil
}

// Zeros returns a batch of n zero vectors.
func Zeros(n int) V3 {
	return V3{X: make([]float64, n), Y: make([]float64, n), Z: make([]float64, n)}
}

// Broadcast returns a batch of n copies of v.
func Broadcast(v md3.Vec, n int) V3 {
	b := Zeros(n)
	for i := 0; i < n; i++ {
		b.X[i], b.Y[i], b.Z[i] = v.X, v.Y, v.Z
	}
	return b
}

// FromVecs packs scalar vectors into a batch, one lane per vector.
func FromVecs(vecs []md3.Vec) V3 {
	b := Zeros(len(vecs))
	for i, v := range vecs {
		b.X[i], b.Y[i], b.Z[i] = v.X, v.Y, v.Z
	}
	return b
}

// Len returns the amount of lanes in the batch.
func (a V3) Len() int { return len(a.X) }

// At returns lane i as a scalar vector.
func (a V3) At(i int) md3.Vec {
	return md3.Vec{X: a.X[i], Y: a.Y[i], Z: a.Z[i]}
}

// Set writes v into lane i. Meant for filling freshly allocated batches.
func (a V3) Set(i int, v md3.Vec) {
	a.X[i], a.Y[i], a.Z[i] = v.X, v.Y, v.Z
}

// Validate checks component lengths agree. Batches built with [New] are always valid.
func (a V3) Validate() error {
	if len(a.X) != len(a.Y) || len(a.X) != len(a.Z) {
		return fmt.Errorf("%w: x=%d y=%d z=%d", ErrDimensionMismatch, len(a.X), len(a.Y), len(a.Z))
	}
	return nil
}

func (a V3) String() string {
	var sb strings.Builder
	sb.WriteString("[\n\t")
	fmt.Fprint(&sb, a.X)
	sb.WriteString(",\n\t")
	fmt.Fprint(&sb, a.Y)
	sb.WriteString(",\n\t")
	fmt.Fprint(&sb, a.Z)
	sb.WriteString("\n]")
	return sb.String()
}

func (a V3) mustMatch(n int) {
	if a.Len() != n {
		panic(fmt.Sprintf("vbatch: lane count mismatch %d != %d", a.Len(), n))
	}
}

func (a V3) zip(b V3, op func(x, y float64) float64) V3 {
	b.mustMatch(a.Len())
	c := Zeros(a.Len())
	for i := range a.X {
		c.X[i] = op(a.X[i], b.X[i])
		c.Y[i] = op(a.Y[i], b.Y[i])
		c.Z[i] = op(a.Z[i], b.Z[i])
	}
	return c
}

// Map applies f to every component of every lane.
func (a V3) Map(f func(float64) float64) V3 {
	c := Zeros(a.Len())
	for i := range a.X {
		c.X[i] = f(a.X[i])
		c.Y[i] = f(a.Y[i])
		c.Z[i] = f(a.Z[i])
	}
	return c
}

// Add returns a+b lane-wise.
func (a V3) Add(b V3) V3 { return a.zip(b, func(x, y float64) float64 { return x + y }) }

// Sub returns a-b lane-wise.
func (a V3) Sub(b V3) V3 { return a.zip(b, func(x, y float64) float64 { return x - y }) }

// Mul returns the elementwise product of a and b.
func (a V3) Mul(b V3) V3 { return a.zip(b, func(x, y float64) float64 { return x * y }) }

// Div returns the elementwise quotient of a and b.
func (a V3) Div(b V3) V3 { return a.zip(b, func(x, y float64) float64 { return x / y }) }

// AddScalar adds f to every component.
func (a V3) AddScalar(f float64) V3 { return a.Map(func(x float64) float64 { return x + f }) }

// SubScalar subtracts f from every component.
func (a V3) SubScalar(f float64) V3 { return a.Map(func(x float64) float64 { return x - f }) }

// Scale multiplies every component by f.
func (a V3) Scale(f float64) V3 { return a.Map(func(x float64) float64 { return x * f }) }

// DivScalar divides every component by f.
func (a V3) DivScalar(f float64) V3 { return a.Map(func(x float64) float64 { return x / f }) }

// AddVec adds the constant vector v to every lane.
func (a V3) AddVec(v md3.Vec) V3 {
	c := Zeros(a.Len())
	for i := range a.X {
		c.X[i] = a.X[i] + v.X
		c.Y[i] = a.Y[i] + v.Y
		c.Z[i] = a.Z[i] + v.Z
	}
	return c
}

// SubVec subtracts the constant vector v from every lane.
func (a V3) SubVec(v md3.Vec) V3 {
	return a.AddVec(md3.Scale(-1, v))
}

// MulVec multiplies every lane elementwise by the constant vector v.
func (a V3) MulVec(v md3.Vec) V3 {
	c := Zeros(a.Len())
	for i := range a.X {
		c.X[i] = a.X[i] * v.X
		c.Y[i] = a.Y[i] * v.Y
		c.Z[i] = a.Z[i] * v.Z
	}
	return c
}

// ScaleLanes multiplies lane i by s[i].
func (a V3) ScaleLanes(s []float64) V3 {
	a.mustMatch(len(s))
	c := Zeros(a.Len())
	for i, f := range s {
		c.X[i] = a.X[i] * f
		c.Y[i] = a.Y[i] * f
		c.Z[i] = a.Z[i] * f
	}
	return c
}

// DivLanes divides lane i by s[i].
func (a V3) DivLanes(s []float64) V3 {
	a.mustMatch(len(s))
	c := Zeros(a.Len())
	for i, f := range s {
		c.X[i] = a.X[i] / f
		c.Y[i] = a.Y[i] / f
		c.Z[i] = a.Z[i] / f
	}
	return c
}

// Dot returns the lane-wise dot product of a and b.
func (a V3) Dot(b V3) []float64 {
	b.mustMatch(a.Len())
	d := make([]float64, a.Len())
	for i := range d {
		d[i] = a.X[i]*b.X[i] + a.Y[i]*b.Y[i] + a.Z[i]*b.Z[i]
	}
	return d
}

// DotVec returns the dot product of every lane with v.
func (a V3) DotVec(v md3.Vec) []float64 {
	d := make([]float64, a.Len())
	for i := range d {
		d[i] = a.X[i]*v.X + a.Y[i]*v.Y + a.Z[i]*v.Z
	}
	return d
}

// Cross returns the lane-wise cross product a×b.
func (a V3) Cross(b V3) V3 {
	b.mustMatch(a.Len())
	c := Zeros(a.Len())
	for i := range c.X {
		c.X[i] = a.Y[i]*b.Z[i] - a.Z[i]*b.Y[i]
		c.Y[i] = a.Z[i]*b.X[i] - a.X[i]*b.Z[i]
		c.Z[i] = a.X[i]*b.Y[i] - a.Y[i]*b.X[i]
	}
	return c
}

// NormSq returns the squared euclidean norm of every lane.
func (a V3) NormSq() []float64 { return a.Dot(a) }

// Norm returns the euclidean norm of every lane.
func (a V3) Norm() []float64 {
	n := a.NormSq()
	for i := range n {
		n[i] = math.Sqrt(n[i])
	}
	return n
}

// Unit returns a with every lane scaled to unit length. Zero length lanes
// result in non-finite components; callers must guard against them.
func (a V3) Unit() V3 {
	n := a.Norm()
	for i := range n {
		n[i] = 1 / n[i]
	}
	return a.ScaleLanes(n)
}

// Clip clamps every component to [min, max]. NaN components are left as is.
func (a V3) Clip(min, max float64) V3 {
	return a.Map(func(x float64) float64 {
		if x < min {
			return min
		} else if x > max {
			return max
		}
		return x
	})
}

// Repeat expands every lane into n consecutive copies of itself.
func (a V3) Repeat(n int) V3 {
	c := Zeros(a.Len() * n)
	for i := range a.X {
		for j := 0; j < n; j++ {
			k := i*n + j
			c.X[k], c.Y[k], c.Z[k] = a.X[i], a.Y[i], a.Z[i]
		}
	}
	return c
}

// Extract returns the lanes of a selected by mask, preserving their order.
func (a V3) Extract(mask Mask) V3 {
	a.mustMatch(len(mask))
	return V3{
		X: ExtractFloats(mask, a.X),
		Y: ExtractFloats(mask, a.Y),
		Z: ExtractFloats(mask, a.Z),
	}
}

// Place writes other's lanes, in order, into the lanes of a selected by mask.
// other must have as many lanes as mask has true values.
//
// Place mutates a.
func (a V3) Place(mask Mask, other V3) {
	a.mustMatch(len(mask))
	PlaceFloats(mask, a.X, other.X)
	PlaceFloats(mask, a.Y, other.Y)
	PlaceFloats(mask, a.Z, other.Z)
}

// CopyFrom copies src's lane i into a's lane i wherever where[i] is true.
// A nil where copies every lane.
//
// CopyFrom mutates a.
func (a V3) CopyFrom(src V3, where Mask) {
	src.mustMatch(a.Len())
	if where != nil {
		a.mustMatch(len(where))
	}
	for i := range a.X {
		if where == nil || where[i] {
			a.X[i], a.Y[i], a.Z[i] = src.X[i], src.Y[i], src.Z[i]
		}
	}
}

// Where returns a batch choosing lane i from a where useFirst[i] is true and from other otherwise.
func (a V3) Where(useFirst Mask, other V3) V3 {
	a.mustMatch(len(useFirst))
	return V3{
		X: WhereFloats(useFirst, a.X, other.X),
		Y: WhereFloats(useFirst, a.Y, other.Y),
		Z: WhereFloats(useFirst, a.Z, other.Z),
	}
}

// Equal compares lanes of a and b with absolute tolerance [Tol] per component.
func (a V3) Equal(b V3) Mask {
	b.mustMatch(a.Len())
	m := make(Mask, a.Len())
	for i := range m {
		m[i] = math.Abs(a.X[i]-b.X[i]) < Tol &&
			math.Abs(a.Y[i]-b.Y[i]) < Tol &&
			math.Abs(a.Z[i]-b.Z[i]) < Tol
	}
	return m
}

// AllEqual reports whether a and b have the same lanes with exactly equal components.
func (a V3) AllEqual(b V3) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.X {
		if a.X[i] != b.X[i] || a.Y[i] != b.Y[i] || a.Z[i] != b.Z[i] {
			return false
		}
	}
	return true
}

// Finite returns a mask of lanes whose components are all finite.
func (a V3) Finite() Mask {
	m := make(Mask, a.Len())
	for i := range m {
		m[i] = isFinite(a.X[i]) && isFinite(a.Y[i]) && isFinite(a.Z[i])
	}
	return m
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
