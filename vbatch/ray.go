package vbatch

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/soypat/geometry/md3"
)

// Ray is a batch of rays with origins R and unit directions V.
type Ray struct {
	R V3
	V V3
}

// NewRay creates a ray batch. v is normalized before being stored.
func NewRay(r, v V3) (Ray, error) {
	if err := r.Validate(); err != nil {
		return Ray{}, fmt.Errorf("ray origin: %w", err)
	} else if err = v.Validate(); err != nil {
		return Ray{}, fmt.Errorf("ray direction: %w", err)
	} else if r.Len() != v.Len() {
		return Ray{}, fmt.Errorf("%w: %d origins for %d directions", ErrDimensionMismatch, r.Len(), v.Len())
	}
	return Ray{R: r, V: v.Unit()}, nil
}

// Len returns the amount of rays in the batch.
func (r Ray) Len() int { return r.R.Len() }

// Trace returns the points r + v*dist, one per lane.
func (r Ray) Trace(dist []float64) V3 {
	return r.R.Add(r.V.ScaleLanes(dist))
}

// Extract returns the rays selected by mask.
func (r Ray) Extract(mask Mask) Ray {
	return Ray{R: r.R.Extract(mask), V: r.V.Extract(mask)}
}

// Transform re-expresses the rays in another frame: origins are mapped
// by the full affine map, directions by its linear part and renormalized.
func (r Ray) Transform(t Affine) Ray {
	return Ray{R: t.Apply(r.R), V: t.ApplyLinear(r.V).Unit()}
}

// Affine is a homogeneous 4x4 transformation. The last row is expected to be (0,0,0,1).
type Affine struct {
	M mgl64.Mat4
}

// Identity returns the identity transform.
func Identity() Affine { return Affine{M: mgl64.Ident4()} }

// Translation returns a transform moving points by d.
func Translation(d md3.Vec) Affine {
	return Affine{M: mgl64.Translate3D(d.X, d.Y, d.Z)}
}

// Scaling returns a transform scaling each axis by the components of s.
func Scaling(s md3.Vec) Affine {
	return Affine{M: mgl64.Scale3D(s.X, s.Y, s.Z)}
}

// Rotation returns a rotation of radians around axis.
func Rotation(radians float64, axis md3.Vec) Affine {
	ax := mgl64.Vec3{axis.X, axis.Y, axis.Z}.Normalize()
	return Affine{M: mgl64.HomogRotate3D(radians, ax)}
}

// Mul returns the composition t∘u, which applies u first.
func (t Affine) Mul(u Affine) Affine {
	return Affine{M: t.M.Mul4(u.M)}
}

// Det returns the determinant of the linear part.
func (t Affine) Det() float64 {
	return t.M.Mat3().Det()
}

// Inverse returns the inverse transform. Singular transforms return the zero matrix.
func (t Affine) Inverse() Affine {
	return Affine{M: t.M.Inv()}
}

// Apply maps points through the affine transform.
func (t Affine) Apply(p V3) V3 {
	m := &t.M
	c := Zeros(p.Len())
	for i := range p.X {
		x, y, z := p.X[i], p.Y[i], p.Z[i]
		c.X[i] = m.At(0, 0)*x + m.At(0, 1)*y + m.At(0, 2)*z + m.At(0, 3)
		c.Y[i] = m.At(1, 0)*x + m.At(1, 1)*y + m.At(1, 2)*z + m.At(1, 3)
		c.Z[i] = m.At(2, 0)*x + m.At(2, 1)*y + m.At(2, 2)*z + m.At(2, 3)
	}
	return c
}

// ApplyLinear maps directions through the linear part of the transform, ignoring translation.
func (t Affine) ApplyLinear(v V3) V3 {
	m := &t.M
	c := Zeros(v.Len())
	for i := range v.X {
		x, y, z := v.X[i], v.Y[i], v.Z[i]
		c.X[i] = m.At(0, 0)*x + m.At(0, 1)*y + m.At(0, 2)*z
		c.Y[i] = m.At(1, 0)*x + m.At(1, 1)*y + m.At(1, 2)*z
		c.Z[i] = m.At(2, 0)*x + m.At(2, 1)*y + m.At(2, 2)*z
	}
	return c
}

// ApplyNormal maps surface normals through the inverse transpose of the
// linear part and renormalizes them. t must be the forward transform.
func (t Affine) ApplyNormal(n V3) V3 {
	inv := t.M.Mat3().Inv()
	c := Zeros(n.Len())
	for i := range n.X {
		x, y, z := n.X[i], n.Y[i], n.Z[i]
		// Transposed access of the inverse.
		c.X[i] = inv.At(0, 0)*x + inv.At(1, 0)*y + inv.At(2, 0)*z
		c.Y[i] = inv.At(0, 1)*x + inv.At(1, 1)*y + inv.At(2, 1)*z
		c.Z[i] = inv.At(0, 2)*x + inv.At(1, 2)*y + inv.At(2, 2)*z
	}
	return c.Unit()
}
