package gtrace

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace/vbatch"
)

const (
	// Steps allowed on top of those needed to cross the box at minimum step size.
	implicitSlackSteps = 512
	// Bisection iterations used to refine a detected sign change.
	implicitBisections = 48
)

// NewImplicit creates a surface from a signed distance function.
// Crossings are found by sphere tracing the ray segment inside the SDF's bounding box
// and refining sign changes by bisection, so s must not overestimate distances.
func (bld *Builder) NewImplicit(s sdf.SDF3) Surface {
	if s == nil {
		bld.nilsurface("NewImplicit")
	}
	bb := s.BoundingBox()
	size := bb.Max.Sub(bb.Min)
	diag := size.Length()
	if !(diag > 0) {
		bld.shapeErrorf("implicit surface with empty bounding box")
		diag = 1
	}
	// Pad box so that tracing starts and ends outside the solid.
	pad := v3.Vec{X: diag, Y: diag, Z: diag}.MulScalar(1e-3)
	return &implicit{
		sdf:     s,
		min:     md3.Vec{X: bb.Min.X - pad.X, Y: bb.Min.Y - pad.Y, Z: bb.Min.Z - pad.Z},
		max:     md3.Vec{X: bb.Max.X + pad.X, Y: bb.Max.Y + pad.Y, Z: bb.Max.Z + pad.Z},
		minStep: diag * 1e-4,
		tol:     diag * 1e-12,
		h:       diag * 1e-6,
	}
}

// NewBox creates a box centered at the origin with x,y,z dimensions and a rounding parameter to round edges.
func (bld *Builder) NewBox(dims md3.Vec, round float64) Surface {
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		bld.shapeErrorf("zero or negative box dimension")
		return bld.NewSphere(md3.Vec{}, 1)
	}
	s, err := sdf.Box3D(v3.Vec{X: dims.X, Y: dims.Y, Z: dims.Z}, round)
	if err != nil {
		bld.shapeErrorf("box: %s", err)
		return bld.NewSphere(md3.Vec{}, 1)
	}
	return bld.NewImplicit(s)
}

// NewCylinder creates a cylinder centered at the origin with given radius and height.
// The cylinder's axis points in z direction.
func (bld *Builder) NewCylinder(r, h, round float64) Surface {
	if r <= 0 || h <= 0 {
		bld.shapeErrorf("bad cylinder dimension")
		return bld.NewSphere(md3.Vec{}, 1)
	}
	s, err := sdf.Cylinder3D(h, r, round)
	if err != nil {
		bld.shapeErrorf("cylinder: %s", err)
		return bld.NewSphere(md3.Vec{}, 1)
	}
	return bld.NewImplicit(s)
}

type implicit struct {
	sdf      sdf.SDF3
	min, max md3.Vec
	minStep  float64
	tol      float64
	h        float64 // Central differences step.
}

func (s *implicit) ForEachChild(userData any, fn func(userData any, s *Surface) error) error {
	return nil
}

func (s *implicit) Intersect(rays vbatch.Ray) Hits {
	hits := make(Hits, rays.Len())
	for i := range hits {
		o := rays.R.At(i)
		v := rays.V.At(i)
		t0, t1, ok := s.slab(o, v)
		if !ok {
			continue
		}
		hits[i].C = s.march(o, v, t0, t1)
	}
	return hits
}

func (s *implicit) eval(o, v md3.Vec, t float64) float64 {
	p := md3.Add(o, md3.Scale(t, v))
	return s.sdf.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// march sphere traces the segment [t0,t1] recording every sign change of the SDF.
// Every step advances at least minStep so the step budget always reaches t1,
// even for grazing rays where the SDF stays near zero along the segment.
func (s *implicit) march(o, v md3.Vec, t0, t1 float64) []Crossing {
	var crossings []Crossing
	t := t0
	d := s.eval(o, v, t)
	inside := d < 0
	if inside {
		crossings = append(crossings, Crossing{T: t, Enter: true, Boundary: s})
	}
	maxSteps := int(math.Ceil((t1-t0)/s.minStep)) + implicitSlackSteps
	for step := 0; step < maxSteps && t < t1; step++ {
		dt := math.Max(math.Abs(d), s.minStep)
		tn := math.Min(t+dt, t1)
		dn := s.eval(o, v, tn)
		if (dn < 0) != inside {
			root := s.bisect(o, v, t, tn, inside)
			inside = !inside
			crossings = append(crossings, Crossing{T: root, Enter: inside, Boundary: s})
		}
		t, d = tn, dn
	}
	if inside && t >= t1 {
		// Segment ends at the padded box which lies outside the solid.
		crossings = append(crossings, Crossing{T: t1, Enter: false, Boundary: s})
	}
	return crossings
}

// bisect finds the boundary between ta (where insideness is insideA) and tb.
func (s *implicit) bisect(o, v md3.Vec, ta, tb float64, insideA bool) float64 {
	for i := 0; i < implicitBisections && tb-ta > s.tol; i++ {
		tm := 0.5 * (ta + tb)
		if (s.eval(o, v, tm) < 0) == insideA {
			ta = tm
		} else {
			tb = tm
		}
	}
	return 0.5 * (ta + tb)
}

// slab returns the parametric range of the ray inside the padded bounding box.
func (s *implicit) slab(o, v md3.Vec) (t0, t1 float64, ok bool) {
	t0, t1 = math.Inf(-1), math.Inf(1)
	for _, ax := range [3][4]float64{
		{o.X, v.X, s.min.X, s.max.X},
		{o.Y, v.Y, s.min.Y, s.max.Y},
		{o.Z, v.Z, s.min.Z, s.max.Z},
	} {
		orig, dir, lo, hi := ax[0], ax[1], ax[2], ax[3]
		if dir == 0 {
			if orig < lo || orig > hi {
				return 0, 0, false
			}
			continue
		}
		ta, tb := (lo-orig)/dir, (hi-orig)/dir
		if ta > tb {
			ta, tb = tb, ta
		}
		t0 = math.Max(t0, ta)
		t1 = math.Min(t1, tb)
	}
	return t0, t1, t0 < t1
}

// Normals implements [Boundary] with central differences of the SDF.
func (s *implicit) Normals(points vbatch.V3) vbatch.V3 {
	n := vbatch.Zeros(points.Len())
	h := s.h
	for i := range n.X {
		p := v3.Vec{X: points.X[i], Y: points.Y[i], Z: points.Z[i]}
		n.X[i] = s.sdf.Evaluate(p.Add(v3.Vec{X: h})) - s.sdf.Evaluate(p.Sub(v3.Vec{X: h}))
		n.Y[i] = s.sdf.Evaluate(p.Add(v3.Vec{Y: h})) - s.sdf.Evaluate(p.Sub(v3.Vec{Y: h}))
		n.Z[i] = s.sdf.Evaluate(p.Add(v3.Vec{Z: h})) - s.sdf.Evaluate(p.Sub(v3.Vec{Z: h}))
	}
	return n.Unit()
}
