package gtrace

import (
	"math"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace/vbatch"
)

type sphere struct {
	c md3.Vec
	r float64
}

// NewSphere creates a sphere centered at center of radius r.
func (bld *Builder) NewSphere(center md3.Vec, r float64) Surface {
	valid := r > 0
	if !valid {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	return &sphere{c: center, r: r}
}

func (s *sphere) ForEachChild(userData any, fn func(userData any, s *Surface) error) error {
	return nil
}

// Intersect solves |o + v*t - c|² = r² for every lane. Rays that miss the
// sphere or only graze it produce no crossings.
func (s *sphere) Intersect(rays vbatch.Ray) Hits {
	oc := rays.R.SubVec(s.c)
	b := rays.V.Dot(oc)
	c := oc.NormSq()
	r2 := s.r * s.r
	hits := make(Hits, rays.Len())
	for i := range hits {
		disc := b[i]*b[i] - (c[i] - r2)
		if !(disc > 0) {
			continue
		}
		sq := math.Sqrt(disc)
		hits[i].C = []Crossing{
			{T: -b[i] - sq, Enter: true, Boundary: s},
			{T: -b[i] + sq, Enter: false, Boundary: s},
		}
	}
	return hits
}

// Normals implements [Boundary].
func (s *sphere) Normals(points vbatch.V3) vbatch.V3 {
	return points.SubVec(s.c).Unit()
}

type ground struct {
	p md3.Vec
	n md3.Vec // Unit normal, points out of the solid.
}

// NewGround creates the half-space lying below the plane through point with the given normal.
// The normal points away from the solid and is normalized.
func (bld *Builder) NewGround(point, normal md3.Vec) Surface {
	l := md3.Norm(normal)
	if l < epstol {
		bld.shapeErrorf("zero ground normal")
		l = 1
		normal = md3.Vec{Z: 1}
	}
	return &ground{p: point, n: md3.Scale(1/l, normal)}
}

func (g *ground) ForEachChild(userData any, fn func(userData any, s *Surface) error) error {
	return nil
}

// Intersect returns at most one crossing per lane. Rays parallel to the
// plane never cross it and are entirely inside or outside the solid.
func (g *ground) Intersect(rays vbatch.Ray) Hits {
	denom := rays.V.DotVec(g.n)
	height := rays.R.SubVec(g.p).DotVec(g.n)
	hits := make(Hits, rays.Len())
	for i, d := range denom {
		if d == 0 {
			hits[i].StartInside = height[i] <= 0
			continue
		}
		hits[i].StartInside = d > 0
		hits[i].C = []Crossing{{T: -height[i] / d, Enter: d < 0, Boundary: g}}
	}
	return hits
}

// Normals implements [Boundary].
func (g *ground) Normals(points vbatch.V3) vbatch.V3 {
	return vbatch.Broadcast(g.n, points.Len())
}
