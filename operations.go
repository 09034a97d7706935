package gtrace

import (
	"fmt"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace/vbatch"
)

// csg is the result of the Union, Intersection and Difference operations.
type csg struct {
	op     boolOp
	s1, s2 Surface
}

// Union joins the solids of a and b. A ray is inside the result where it is inside a or b.
func (bld *Builder) Union(a, b Surface) Surface {
	return bld.newCSG(opUnion, a, b)
}

// Intersection keeps the solid common to a and b.
func (bld *Builder) Intersection(a, b Surface) Surface {
	return bld.newCSG(opIntersection, a, b)
}

// Difference removes the solid of b from a, a-b.
// The boundary of b inside a is kept with its normals reversed.
func (bld *Builder) Difference(a, b Surface) Surface {
	return bld.newCSG(opDifference, a, b)
}

// UnionAll joins several surfaces into one. Needs at least one argument.
func (bld *Builder) UnionAll(surfaces ...Surface) Surface {
	if len(surfaces) == 0 {
		panic("need at least 1 argument to UnionAll")
	}
	u := surfaces[0]
	for _, s := range surfaces[1:] {
		u = bld.Union(u, s)
	}
	return u
}

func (bld *Builder) newCSG(op boolOp, a, b Surface) Surface {
	if a == nil || b == nil {
		bld.nilsurface(op.String())
	}
	return &csg{op: op, s1: a, s2: b}
}

func (u *csg) ForEachChild(userData any, fn func(userData any, s *Surface) error) error {
	err := fn(userData, &u.s1)
	if err != nil {
		return err
	}
	return fn(userData, &u.s2)
}

func (u *csg) Intersect(rays vbatch.Ray) Hits {
	ha := u.s1.Intersect(rays)
	hb := u.s2.Intersect(rays)
	hits := make(Hits, len(ha))
	for i := range hits {
		hits[i] = u.op.combine(ha[i], hb[i])
	}
	return hits
}

func (u *csg) String() string {
	return fmt.Sprintf("%s(%v, %v)", u.op, u.s1, u.s2)
}

// Paint assigns a material name to every crossing of s that has no material.
// Materials painted deeper in the tree take precedence.
func (bld *Builder) Paint(s Surface, material string) Surface {
	if s == nil {
		bld.nilsurface("Paint")
	}
	if material == "" {
		bld.shapeErrorf("empty material name")
	}
	return &paint{s: s, material: material}
}

type paint struct {
	s        Surface
	material string
}

func (p *paint) ForEachChild(userData any, fn func(userData any, s *Surface) error) error {
	return fn(userData, &p.s)
}

func (p *paint) Intersect(rays vbatch.Ray) Hits {
	hits := p.s.Intersect(rays)
	for _, cs := range hits {
		for j := range cs.C {
			if cs.C[j].Material == "" {
				cs.C[j].Material = p.material
			}
		}
	}
	return hits
}

// Transform places s in the world with the affine transformation t.
// Rays are mapped into the frame of s with the inverse of t.
func (bld *Builder) Transform(s Surface, t vbatch.Affine) Surface {
	if s == nil {
		bld.nilsurface("Transform")
	}
	det := t.Det()
	if det > -epstol && det < epstol {
		bld.shapeErrorf("singular transform")
	}
	return &transform{s: s, t: t, tInv: t.Inverse()}
}

// Translate moves s by d.
func (bld *Builder) Translate(s Surface, d md3.Vec) Surface {
	return bld.Transform(s, vbatch.Translation(d))
}

// Rotate rotates s by radians around axis, which passes through the origin.
func (bld *Builder) Rotate(s Surface, radians float64, axis md3.Vec) Surface {
	if axis == (md3.Vec{}) {
		bld.shapeErrorf("null rotation axis")
		axis = md3.Vec{Z: 1}
	}
	return bld.Transform(s, vbatch.Rotation(radians, axis))
}

// Scale scales s by factor around the origin.
func (bld *Builder) Scale(s Surface, factor float64) Surface {
	if factor == 0 {
		bld.shapeErrorf("zero scale factor")
	}
	return bld.Transform(s, vbatch.Scaling(md3.Vec{X: factor, Y: factor, Z: factor}))
}

type transform struct {
	s Surface
	// Forward transformation, maps s's frame to world.
	t vbatch.Affine
	// Inverse transformation needed for intersecting: rays are
	// evaluated in the frame of s, so we must work backwards.
	tInv vbatch.Affine
}

func (t *transform) ForEachChild(userData any, fn func(userData any, s *Surface) error) error {
	return fn(userData, &t.s)
}

func (t *transform) Intersect(rays vbatch.Ray) Hits {
	local := rays.Transform(t.tInv)
	// Distances in the local frame are stretched by the length of the
	// transformed unit direction.
	stretch := t.tInv.ApplyLinear(rays.V).Norm()
	hits := t.s.Intersect(local)
	wrapped := make(map[Boundary]Boundary)
	for i, cs := range hits {
		for j := range cs.C {
			c := &cs.C[j]
			c.T /= stretch[i]
			w, ok := wrapped[c.Boundary]
			if !ok {
				w = &transformedBoundary{b: c.Boundary, t: t}
				wrapped[c.Boundary] = w
			}
			c.Boundary = w
		}
	}
	return hits
}

type transformedBoundary struct {
	b Boundary
	t *transform
}

func (tb *transformedBoundary) Normals(points vbatch.V3) vbatch.V3 {
	local := tb.t.tInv.Apply(points)
	return tb.t.t.ApplyNormal(tb.b.Normals(local))
}
