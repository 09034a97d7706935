// Package shade implements materials and light sources operating on lane batches
// of surface points and normals.
package shade

import (
	"math"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace/vbatch"
)

// Material maps surface hit points to a base color and reflectivity.
type Material interface {
	// BaseColor returns the color of the material at points p with normals n.
	BaseColor(p, n vbatch.V3) vbatch.V3
	// Reflectivity returns the reflectivity coefficient in [0,1] at points p.
	Reflectivity(p vbatch.V3) []float64
}

// Occluder answers shadow queries.
type Occluder interface {
	// Occluded reports, per lane, whether the ray hits anything ahead of its origin.
	Occluded(rays vbatch.Ray) vbatch.Mask
}

// Light is a light source contributing color to shaded points.
type Light interface {
	// Illuminate returns the light arriving at points p with surface normals n.
	// occ is used to trace shadow rays and may be nil for unshadowed lighting.
	Illuminate(p, n vbatch.V3, occ Occluder) vbatch.V3
}

// Uniform is a material of a single color.
type Uniform struct {
	Color md3.Vec
	// Reflect is the reflectivity coefficient in [0,1].
	Reflect float64
}

// BaseColor implements [Material].
func (u Uniform) BaseColor(p, n vbatch.V3) vbatch.V3 {
	return vbatch.Broadcast(u.Color, p.Len())
}

// Reflectivity implements [Material].
func (u Uniform) Reflectivity(p vbatch.V3) []float64 {
	return vbatch.Fill(p.Len(), u.Reflect)
}

// Checkered alternates between materials A and B in a square tiling of the XY plane.
// A tile has side 1/Scale.
type Checkered struct {
	A, B  Material
	Scale float64
}

// tiles returns lanes of p lying on A tiles, where floor(x*scale)+floor(y*scale) is even.
func (c Checkered) tiles(p vbatch.V3) vbatch.Mask {
	m := make(vbatch.Mask, p.Len())
	for i := range m {
		k := math.Floor(p.X[i]*c.Scale) + math.Floor(p.Y[i]*c.Scale)
		m[i] = math.Mod(k, 2) == 0
	}
	return m
}

// BaseColor implements [Material].
func (c Checkered) BaseColor(p, n vbatch.V3) vbatch.V3 {
	onA := c.tiles(p)
	onB := onA.Not()
	color := vbatch.Zeros(p.Len())
	if onA.Any() {
		color.Place(onA, c.A.BaseColor(p.Extract(onA), n.Extract(onA)))
	}
	if onB.Any() {
		color.Place(onB, c.B.BaseColor(p.Extract(onB), n.Extract(onB)))
	}
	return color
}

// Reflectivity implements [Material].
func (c Checkered) Reflectivity(p vbatch.V3) []float64 {
	onA := c.tiles(p)
	onB := onA.Not()
	k := make([]float64, p.Len())
	if onA.Any() {
		vbatch.PlaceFloats(onA, k, c.A.Reflectivity(p.Extract(onA)))
	}
	if onB.Any() {
		vbatch.PlaceFloats(onB, k, c.B.Reflectivity(p.Extract(onB)))
	}
	return k
}

// Ambient is a constant light reaching every point regardless of orientation or occlusion.
type Ambient struct {
	Intensity float64
	Color     md3.Vec
}

// NewAmbient returns a white ambient light of the given intensity in [0,1].
func NewAmbient(intensity float64) Ambient {
	return Ambient{Intensity: intensity, Color: md3.Vec{X: 1, Y: 1, Z: 1}}
}

// Illuminate implements [Light].
func (a Ambient) Illuminate(p, n vbatch.V3, occ Occluder) vbatch.V3 {
	return vbatch.Broadcast(md3.Scale(a.Intensity, a.Color), p.Len())
}

// Directional is a light at infinity shining along Direction.
type Directional struct {
	// Direction the light travels in. Need not be normalized.
	Direction md3.Vec
	Color     md3.Vec
}

// NewDirectional returns a white directional light shining along dir.
func NewDirectional(dir md3.Vec) Directional {
	return Directional{Direction: dir, Color: md3.Vec{X: 1, Y: 1, Z: 1}}
}

// Illuminate implements [Light] with a Lambertian term. Lanes facing the light
// are shadow tested by tracing rays from p towards the light.
func (d Directional) Illuminate(p, n vbatch.V3, occ Occluder) vbatch.V3 {
	toLight := md3.Scale(-1/md3.Norm(d.Direction), d.Direction)
	lambert := n.DotVec(toLight)
	lit := make(vbatch.Mask, len(lambert))
	for i, l := range lambert {
		lit[i] = l > 0
		if !lit[i] {
			lambert[i] = 0
		}
	}
	if occ != nil && lit.Any() {
		origins := p.Extract(lit)
		dirs := vbatch.Broadcast(toLight, origins.Len())
		rays, err := vbatch.NewRay(origins, dirs)
		if err != nil {
			panic(err) // Lane counts agree by construction.
		}
		shadowed := lit.Expand(occ.Occluded(rays))
		for i, s := range shadowed {
			if s {
				lambert[i] = 0
			}
		}
	}
	return vbatch.Broadcast(d.Color, p.Len()).ScaleLanes(lambert)
}

// Direct returns the direct shading of points: the material's base color
// modulated by the sum of all light contributions.
func Direct(m Material, p, n vbatch.V3, lights []Light, occ Occluder) vbatch.V3 {
	total := vbatch.Zeros(p.Len())
	for _, l := range lights {
		total = total.Add(l.Illuminate(p, n, occ))
	}
	return m.BaseColor(p, n).Mul(total)
}

// Reflect returns the mirror reflection v - 2(v·n)n of directions v about normals n.
func Reflect(v, n vbatch.V3) vbatch.V3 {
	vn := v.Dot(n)
	for i := range vn {
		vn[i] *= 2
	}
	return v.Sub(n.ScaleLanes(vn))
}

// Blend mixes direct color with reflected color by reflectivity k: direct*(1-k) + reflected*k.
func Blend(direct, reflected vbatch.V3, k []float64) vbatch.V3 {
	oneMinus := make([]float64, len(k))
	for i, f := range k {
		oneMinus[i] = 1 - f
	}
	return direct.ScaleLanes(oneMinus).Add(reflected.ScaleLanes(k))
}
