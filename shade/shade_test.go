package shade

import (
	"math"
	"testing"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace/vbatch"
)

// occludeAll blocks every ray and counts the rays it is asked about.
type occludeAll struct{ queried int }

func (o *occludeAll) Occluded(rays vbatch.Ray) vbatch.Mask {
	o.queried += rays.Len()
	return vbatch.NewMask(rays.Len(), true)
}

type occludeNone struct{}

func (occludeNone) Occluded(rays vbatch.Ray) vbatch.Mask { return make(vbatch.Mask, rays.Len()) }

func TestUniformAndCheckered(t *testing.T) {
	red := Uniform{Color: md3.Vec{X: 1}}
	mirror := Uniform{Reflect: 1}
	check := Checkered{A: red, B: mirror, Scale: 1}
	p := vbatch.FromVecs([]md3.Vec{
		{X: 0.5, Y: 0.5},   // 0+0 even -> A
		{X: 1.5, Y: 0.5},   // 1+0 odd -> B
		{X: -0.5, Y: 0.5},  // -1+0 odd -> B
		{X: -0.5, Y: -0.5}, // -1-1 even -> A
	})
	n := vbatch.Broadcast(md3.Vec{Z: 1}, p.Len())
	color := check.BaseColor(p, n)
	k := check.Reflectivity(p)
	wantA := []bool{true, false, false, true}
	for i, a := range wantA {
		if a && (color.At(i) != red.Color || k[i] != 0) {
			t.Errorf("lane %d: expected red tile, got %v k=%v", i, color.At(i), k[i])
		} else if !a && (color.At(i) != (md3.Vec{}) || k[i] != 1) {
			t.Errorf("lane %d: expected mirror tile, got %v k=%v", i, color.At(i), k[i])
		}
	}
	// Periodic tiling.
	shifted := check.BaseColor(p.AddVec(md3.Vec{X: 2, Y: 4}), n)
	if !shifted.AllEqual(color) {
		t.Error("checkered material not periodic")
	}
}

func TestAmbient(t *testing.T) {
	a := NewAmbient(0.25)
	p := vbatch.Zeros(3)
	c := a.Illuminate(p, p, &occludeAll{})
	want := vbatch.Broadcast(md3.Vec{X: 0.25, Y: 0.25, Z: 0.25}, 3)
	if !c.AllEqual(want) {
		t.Errorf("ambient: got %v", c)
	}
}

func TestDirectionalLambert(t *testing.T) {
	d := NewDirectional(md3.Vec{Z: -2})
	p := vbatch.Zeros(3)
	n := vbatch.FromVecs([]md3.Vec{
		{Z: 1},
		md3.Unit(md3.Vec{X: 1, Z: 1}),
		{Z: -1},
	})
	occ := &occludeAll{}
	c := d.Illuminate(p, n, occludeNone{})
	if c.X[0] != 1 || math.Abs(c.X[1]-math.Sqrt2/2) > 1e-15 || c.X[2] != 0 {
		t.Errorf("lambert: got %v", c.X)
	}
	c = d.Illuminate(p, n, occ)
	if c.X[0] != 0 || c.X[1] != 0 || c.X[2] != 0 {
		t.Errorf("expected shadowed lanes to be dark, got %v", c.X)
	}
	if occ.queried != 2 {
		t.Errorf("expected only lanes facing light to be shadow tested, got %d", occ.queried)
	}
}

func TestDirectAndBlend(t *testing.T) {
	m := Uniform{Color: md3.Vec{X: 1, Y: 0.5}}
	p := vbatch.Zeros(1)
	n := vbatch.Broadcast(md3.Vec{Z: 1}, 1)
	lights := []Light{NewAmbient(0.5), NewDirectional(md3.Vec{Z: -1})}
	direct := Direct(m, p, n, lights, occludeNone{})
	if direct.At(0) != (md3.Vec{X: 1.5, Y: 0.75}) {
		t.Errorf("direct: got %v", direct.At(0))
	}
	refl := vbatch.Broadcast(md3.Vec{Z: 1}, 1)
	b := Blend(direct, refl, []float64{0.5})
	if b.At(0) != (md3.Vec{X: 0.75, Y: 0.375, Z: 0.5}) {
		t.Errorf("blend: got %v", b.At(0))
	}
}

func TestReflect(t *testing.T) {
	v := vbatch.FromVecs([]md3.Vec{md3.Unit(md3.Vec{X: 1, Z: -1})})
	n := vbatch.FromVecs([]md3.Vec{{Z: 1}})
	r := Reflect(v, n)
	want := md3.Unit(md3.Vec{X: 1, Z: 1})
	if md3.Norm(md3.Sub(r.At(0), want)) > 1e-15 {
		t.Errorf("reflect: got %v want %v", r.At(0), want)
	}
}
