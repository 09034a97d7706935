// Package gtrace implements ray intersection of implicit surfaces combined
// with constructive solid geometry (CSG). Every surface computes, for each
// lane of a ray batch, the ordered sequence of points where the ray's line
// crosses the surface boundary. CSG combinators merge those sequences as
// sets of inside intervals.
package gtrace

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/gtrace/vbatch"
)

// Surface is implemented by every primitive and every CSG combinator.
type Surface interface {
	// Intersect returns, for every lane of rays, the crossings of the ray's
	// line with the surface boundary sorted by ascending distance.
	// Distances may be negative (behind the ray origin).
	Intersect(rays vbatch.Ray) Hits
	// ForEachChild calls fn with a pointer to every direct child of the surface.
	// Primitives have no children.
	ForEachChild(userData any, fn func(userData any, s *Surface) error) error
}

// Boundary computes outward facing unit normals of a primitive's boundary.
// Boundaries identify primitives and are used as map keys to group hits,
// so implementations must be comparable, usually pointer types.
type Boundary interface {
	// Normals returns the outward unit normal at each of the points, which
	// are expected to lie on the boundary.
	Normals(points vbatch.V3) vbatch.V3
}

// Crossing is a point where a ray's line crosses a surface boundary.
type Crossing struct {
	// T is the signed distance along the ray.
	T float64
	// Enter is true when the ray enters the solid at T.
	Enter bool
	// Flip inverts the orientation of the Boundary's normal.
	Flip bool
	// Boundary provides the normal of the primitive that was crossed.
	Boundary Boundary
	// Material is the name of the material at the crossing. May be empty.
	Material string
}

// Normals returns the crossing normals for points lying on the crossing's boundary.
func (c Crossing) Normals(points vbatch.V3) vbatch.V3 {
	n := c.Boundary.Normals(points)
	if c.Flip {
		n = n.Scale(-1)
	}
	return n
}

// Crossings is the sorted sequence of crossings of a single ray, which
// describes the intervals along the ray that lie inside the solid.
type Crossings struct {
	// StartInside is set if the ray's line starts inside the solid at t=-∞,
	// which is the case for unbounded solids such as half-spaces.
	StartInside bool
	C           []Crossing
}

// InsideAt reports whether the point at distance t lies inside the solid.
// Points exactly on a crossing are reported with the state before the crossing.
func (c Crossings) InsideAt(t float64) bool {
	inside := c.StartInside
	for _, x := range c.C {
		if x.T >= t {
			break
		}
		inside = x.Enter
	}
	return inside
}

// Hits contains the crossings of each lane of a ray batch.
type Hits []Crossings

// Nearest returns the first entering crossing with distance greater than eps for each lane.
// Lanes without such a crossing are unset in ok and have dist set to +Inf.
func (h Hits) Nearest(eps float64) (dist []float64, hit []Crossing, ok vbatch.Mask) {
	dist = vbatch.Fill(len(h), math.Inf(1))
	hit = make([]Crossing, len(h))
	ok = make(vbatch.Mask, len(h))
	for lane, cs := range h {
		for _, c := range cs.C {
			if c.Enter && c.T > eps {
				dist[lane] = c.T
				hit[lane] = c
				ok[lane] = true
				break
			}
		}
	}
	return dist, hit, ok
}

// MaterialNames returns the distinct material names referenced by s.
// It fails if a primitive of s is not covered by a [Builder.Paint] ancestor,
// since its crossings would carry no material.
func MaterialNames(s Surface) ([]string, error) {
	if s == nil {
		return nil, errors.New("nil surface")
	}
	var names []string
	seen := make(map[string]bool)
	var walk func(s Surface, painted bool) error
	walk = func(s Surface, painted bool) error {
		if p, ok := s.(*paint); ok {
			painted = true
			if !seen[p.material] {
				seen[p.material] = true
				names = append(names, p.material)
			}
		}
		nchild := 0
		err := s.ForEachChild(nil, func(_ any, child *Surface) error {
			nchild++
			if *child == nil {
				return errors.New("nil child surface")
			}
			return walk(*child, painted)
		})
		if err != nil {
			return err
		}
		if nchild == 0 && !painted {
			return fmt.Errorf("surface %T has no material", s)
		}
		return nil
	}
	err := walk(s, false)
	return names, err
}
