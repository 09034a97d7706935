// Package rtrender renders scenes of gtrace surfaces by recursive batched ray tracing.
package rtrender

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace"
	"github.com/soypat/gtrace/shade"
	"github.com/soypat/gtrace/vbatch"
)

// ErrNonFinite is returned by a [Raytracer] configured with StrictFloat when a
// color or depth lane is NaN or infinite.
var ErrNonFinite = errors.New("non-finite value in output")

// Config configures a [Raytracer].
type Config struct {
	Resolution Resolution
	// MaxDepth is the maximum amount of reflection generations traced after the primary rays.
	MaxDepth int
	// Background is the color of rays that hit nothing.
	Background md3.Vec
	// Epsilon is the minimum distance along a ray a hit is accepted at.
	// Zero value uses [gtrace.Epsilon].
	Epsilon float64
	// StrictFloat makes rendering fail when a non-finite value is produced
	// instead of silently clipping it.
	StrictFloat bool
}

// Raytracer renders scenes as seen by a camera.
type Raytracer struct {
	cfg Config
}

// NewRaytracer validates the configuration and returns a ready to use raytracer.
func NewRaytracer(cfg Config) (*Raytracer, error) {
	if err := cfg.Resolution.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxDepth < 0 {
		return nil, errors.New("negative max depth")
	}
	if cfg.Epsilon < 0 || math.IsNaN(cfg.Epsilon) {
		return nil, errors.New("invalid epsilon")
	} else if cfg.Epsilon == 0 {
		cfg.Epsilon = gtrace.Epsilon
	}
	return &Raytracer{cfg: cfg}, nil
}

// Config returns the raytracer configuration with defaults applied.
func (rt *Raytracer) Config() Config { return rt.cfg }

// Render traces one primary ray per pixel and returns a color per lane in
// row-major order. Color components are clipped to [0,1].
func (rt *Raytracer) Render(cam Camera, sc *Scene) (vbatch.V3, error) {
	rays, err := cam.Generate(rt.cfg.Resolution)
	if err != nil {
		return vbatch.V3{}, fmt.Errorf("generating camera rays: %w", err)
	}
	return rt.TraceRays(rays, sc)
}

// TraceRays returns the clipped color seen along each ray.
func (rt *Raytracer) TraceRays(rays vbatch.Ray, sc *Scene) (vbatch.V3, error) {
	if sc == nil {
		return vbatch.V3{}, errors.New("nil scene")
	}
	color := rt.trace(rays, sc, 0)
	if rt.cfg.StrictFloat {
		if bad := color.Finite().Not(); bad.Any() {
			return vbatch.V3{}, fmt.Errorf("%w: %d lanes", ErrNonFinite, bad.Count())
		}
	}
	return color.Clip(0, 1), nil
}

// Depth returns the distance to the nearest hit of each primary ray.
// Lanes that miss are +Inf.
func (rt *Raytracer) Depth(cam Camera, sc *Scene) ([]float64, error) {
	rays, err := cam.Generate(rt.cfg.Resolution)
	if err != nil {
		return nil, fmt.Errorf("generating camera rays: %w", err)
	}
	if sc == nil {
		return nil, errors.New("nil scene")
	}
	dist, _, _ := sc.Nearest(rays, rt.cfg.Epsilon)
	if rt.cfg.StrictFloat {
		for _, d := range dist {
			if math.IsNaN(d) || math.IsInf(d, -1) {
				return nil, ErrNonFinite
			}
		}
	}
	return dist, nil
}

// trace returns the unclipped color along rays. depth is the reflection generation of rays.
func (rt *Raytracer) trace(rays vbatch.Ray, sc *Scene, depth int) vbatch.V3 {
	color := vbatch.Broadcast(rt.cfg.Background, rays.Len())
	dist, hits, ok := sc.Nearest(rays, rt.cfg.Epsilon)
	if !ok.Any() {
		return color
	}
	sub := rays.Extract(ok)
	p := sub.Trace(vbatch.ExtractFloats(ok, dist))
	hit := make([]gtrace.Crossing, 0, p.Len())
	for i, o := range ok {
		if o {
			hit = append(hit, hits[i])
		}
	}
	n := hitNormals(p, hit)
	occ := occluder{sc: sc, eps: rt.cfg.Epsilon}

	direct := vbatch.Zeros(p.Len())
	k := make([]float64, p.Len())
	for _, g := range groupBy(hit, func(c gtrace.Crossing) string { return c.Material }) {
		m, _ := sc.Material(g.key)
		gp, gn := p.Extract(g.mask), n.Extract(g.mask)
		direct.Place(g.mask, shade.Direct(m, gp, gn, sc.lights, occ))
		vbatch.PlaceFloats(g.mask, k, m.Reflectivity(gp))
	}

	shaded := direct
	reflective := make(vbatch.Mask, len(k))
	for i := range k {
		reflective[i] = k[i] > 0 && depth < rt.cfg.MaxDepth
	}
	if reflective.Any() {
		rp, rn := p.Extract(reflective), n.Extract(reflective)
		rdir := shade.Reflect(sub.V.Extract(reflective), rn)
		next, err := vbatch.NewRay(rp, rdir)
		if err != nil {
			panic(err) // Lane counts agree by construction.
		}
		reflected := rt.trace(next, sc, depth+1)
		shaded.Place(reflective, shade.Blend(direct.Extract(reflective), reflected, vbatch.ExtractFloats(reflective, k)))
	}
	color.Place(ok, shaded)
	return color
}

// hitNormals evaluates the normals of hits at points p, one boundary query per distinct boundary and orientation.
func hitNormals(p vbatch.V3, hit []gtrace.Crossing) vbatch.V3 {
	type key struct {
		b    gtrace.Boundary
		flip bool
	}
	n := vbatch.Zeros(p.Len())
	for _, g := range groupBy(hit, func(c gtrace.Crossing) key { return key{c.Boundary, c.Flip} }) {
		n.Place(g.mask, hit[g.first].Normals(p.Extract(g.mask)))
	}
	return n
}

type group[K comparable] struct {
	key   K
	first int
	mask  vbatch.Mask
}

// groupBy partitions hits by key in order of first appearance.
func groupBy[K comparable](hit []gtrace.Crossing, keyfn func(gtrace.Crossing) K) []group[K] {
	var groups []group[K]
	idx := make(map[K]int)
	for i, c := range hit {
		k := keyfn(c)
		gi, ok := idx[k]
		if !ok {
			gi = len(groups)
			idx[k] = gi
			groups = append(groups, group[K]{key: k, first: i, mask: make(vbatch.Mask, len(hit))})
		}
		groups[gi].mask[i] = true
	}
	return groups
}
