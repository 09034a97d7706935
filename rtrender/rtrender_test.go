package rtrender_test

import (
	"bytes"
	"errors"
	"flag"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace"
	"github.com/soypat/gtrace/rtrender"
	"github.com/soypat/gtrace/shade"
	"github.com/soypat/gtrace/vbatch"
)

var update = flag.Bool("update", false, "rewrite golden files in testdata")

// counter counts Intersect calls of the surface it wraps.
type counter struct {
	gtrace.Surface
	calls int
	lanes int
}

func (c *counter) Intersect(rays vbatch.Ray) gtrace.Hits {
	c.calls++
	c.lanes += rays.Len()
	return c.Surface.Intersect(rays)
}

func mustScene(t *testing.T, objects []gtrace.Surface, materials map[string]shade.Material, lights []shade.Light) *rtrender.Scene {
	t.Helper()
	sc, err := rtrender.NewScene(objects, materials, lights)
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func mustTracer(t *testing.T, cfg rtrender.Config) *rtrender.Raytracer {
	t.Helper()
	rt, err := rtrender.NewRaytracer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func exampleScene(t *testing.T) *rtrender.Scene {
	var bld gtrace.Builder
	lens := bld.Paint(bld.Intersection(
		bld.NewSphere(md3.Vec{X: 4}, 1),
		bld.NewSphere(md3.Vec{X: 4, Y: -1}, 1),
	), "blue")
	bite := bld.Paint(bld.NewSphere(md3.Vec{X: 4, Y: -1}, 0.5), "green")
	objects := []gtrace.Surface{
		bld.Difference(lens, bite),
		bld.Paint(bld.NewSphere(md3.Vec{X: 4, Y: 3, Z: 0.8}, 0.5), "mirror"),
		bld.Paint(bld.NewGround(md3.Vec{Z: -20}, md3.Vec{Z: 1}), "checkered"),
	}
	if err := bld.Err(); err != nil {
		t.Fatal(err)
	}
	materials := map[string]shade.Material{
		"red":   shade.Uniform{Color: md3.Vec{X: 1}},
		"green": shade.Uniform{Color: md3.Vec{Y: 1}},
		"blue":  shade.Uniform{Color: md3.Vec{Z: 1}},
		"checkered": shade.Checkered{
			A:     shade.Uniform{Color: md3.Vec{X: 0.8, Y: 0.8, Z: 0.8}},
			B:     shade.Uniform{},
			Scale: 10,
		},
		"mirror": shade.Uniform{Reflect: 1},
	}
	lights := []shade.Light{shade.NewAmbient(0), shade.NewDirectional(md3.Vec{X: 1, Y: 1, Z: -1})}
	return mustScene(t, objects, materials, lights)
}

func exampleCamera() rtrender.Camera {
	return rtrender.NewPerspective(md3.Vec{Y: -3, Z: 0.5}, md3.Vec{X: 4}, 1, 1)
}

func TestMirrorSphereReflectsBackground(t *testing.T) {
	var bld gtrace.Builder
	mirror := bld.Paint(bld.NewSphere(md3.Vec{X: 5}, 1), "mirror")
	sc := mustScene(t, []gtrace.Surface{mirror}, map[string]shade.Material{
		"mirror": shade.Uniform{Reflect: 1},
	}, nil)
	bg := md3.Vec{X: 0.25, Y: 0.5, Z: 0.75}
	rt := mustTracer(t, rtrender.Config{Resolution: rtrender.Resolution{Width: 1, Height: 1}, MaxDepth: 3, Background: bg})
	rays, err := vbatch.NewRay(vbatch.FromVecs([]md3.Vec{{}, {Y: 5}}), vbatch.FromVecs([]md3.Vec{{X: 1}, {X: 1}}))
	if err != nil {
		t.Fatal(err)
	}
	color, err := rt.TraceRays(rays, sc)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < color.Len(); i++ {
		if color.At(i) != bg {
			t.Errorf("lane %d: expected background %v, got %v", i, bg, color.At(i))
		}
	}
}

func TestReflectionDepthCap(t *testing.T) {
	var bld gtrace.Builder
	planes := &counter{Surface: bld.Union(
		bld.NewGround(md3.Vec{}, md3.Vec{Z: 1}),
		bld.NewGround(md3.Vec{Z: 2}, md3.Vec{Z: -1}),
	)}
	sc := mustScene(t, []gtrace.Surface{bld.Paint(planes, "mirror")}, map[string]shade.Material{
		"mirror": shade.Uniform{Reflect: 1},
	}, nil)
	rays, err := vbatch.NewRay(vbatch.FromVecs([]md3.Vec{{Z: 1}}), vbatch.FromVecs([]md3.Vec{{Z: -1}}))
	if err != nil {
		t.Fatal(err)
	}
	for _, maxDepth := range []int{0, 1, 4} {
		planes.calls = 0
		rt := mustTracer(t, rtrender.Config{
			Resolution: rtrender.Resolution{Width: 1, Height: 1},
			MaxDepth:   maxDepth,
			Background: md3.Vec{X: 1, Y: 1, Z: 1},
		})
		color, err := rt.TraceRays(rays, sc)
		if err != nil {
			t.Fatal(err)
		}
		if planes.calls != maxDepth+1 {
			t.Errorf("max depth %d: expected %d ray generations, got %d", maxDepth, maxDepth+1, planes.calls)
		}
		// Rays never escape so the black direct color at the cap propagates up.
		if color.At(0) != (md3.Vec{}) {
			t.Errorf("max depth %d: expected black, got %v", maxDepth, color.At(0))
		}
	}
}

func TestMissIsBackground(t *testing.T) {
	sc := exampleScene(t)
	bg := md3.Vec{X: 0.1, Y: 0.2, Z: 0.3}
	rt := mustTracer(t, rtrender.Config{Resolution: rtrender.Resolution{Width: 4, Height: 4}, Background: bg})
	// Looking straight up from above the ground sees nothing.
	cam := rtrender.Perspective{Origin: md3.Vec{Z: 100}, Direction: md3.Vec{Z: 1}, Up: md3.Vec{X: 1}, Width: 0.1, Height: 0.1}
	color, err := rt.Render(cam, sc)
	if err != nil {
		t.Fatal(err)
	}
	want := vbatch.Broadcast(bg, 16)
	if !color.AllEqual(want) {
		t.Errorf("expected background everywhere, got %v", color)
	}
	depth, err := rt.Depth(cam, sc)
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range depth {
		if !math.IsInf(d, 1) {
			t.Errorf("lane %d: expected +Inf depth, got %v", i, d)
		}
	}
}

func TestDepthPass(t *testing.T) {
	var bld gtrace.Builder
	floor := bld.Paint(bld.NewGround(md3.Vec{Z: -2}, md3.Vec{Z: 1}), "grey")
	sc := mustScene(t, []gtrace.Surface{floor}, map[string]shade.Material{"grey": shade.Uniform{Color: md3.Vec{X: .5, Y: .5, Z: .5}}}, nil)
	rt := mustTracer(t, rtrender.Config{Resolution: rtrender.Resolution{Width: 1, Height: 1}})
	cam := rtrender.Perspective{Direction: md3.Vec{Z: -1}, Up: md3.Vec{Y: 1}, Width: 1, Height: 1}
	depth, err := rt.Depth(cam, sc)
	if err != nil {
		t.Fatal(err)
	}
	if len(depth) != 1 || math.Abs(depth[0]-2) > 1e-12 {
		t.Errorf("expected depth 2, got %v", depth)
	}
}

// nanMaterial produces non-finite colors.
type nanMaterial struct{}

func (nanMaterial) BaseColor(p, n vbatch.V3) vbatch.V3 {
	return vbatch.Broadcast(md3.Vec{X: math.NaN()}, p.Len())
}
func (nanMaterial) Reflectivity(p vbatch.V3) []float64 { return make([]float64, p.Len()) }

func TestStrictFloat(t *testing.T) {
	var bld gtrace.Builder
	s := bld.Paint(bld.NewSphere(md3.Vec{X: 5}, 1), "nan")
	sc := mustScene(t, []gtrace.Surface{s}, map[string]shade.Material{"nan": nanMaterial{}}, []shade.Light{shade.NewAmbient(1)})
	cam := rtrender.Perspective{Direction: md3.Vec{X: 1}, Width: 0.01, Height: 0.01}
	cfg := rtrender.Config{Resolution: rtrender.Resolution{Width: 2, Height: 2}}
	color, err := mustTracer(t, cfg).Render(cam, sc)
	if err != nil {
		t.Fatal("lenient render should not fail:", err)
	}
	img, err := rtrender.ToRGBA(color, cfg.Resolution)
	if err != nil {
		t.Fatal(err)
	}
	if img.Pix[0] != 0 {
		t.Errorf("expected non-finite component to convert to 0, got %d", img.Pix[0])
	}
	cfg.StrictFloat = true
	_, err = mustTracer(t, cfg).Render(cam, sc)
	if !errors.Is(err, rtrender.ErrNonFinite) {
		t.Errorf("expected ErrNonFinite, got %v", err)
	}
}

func TestCameraLanes(t *testing.T) {
	res := rtrender.Resolution{Width: 3, Height: 2}
	persp := rtrender.Perspective{Direction: md3.Vec{X: 1}, Width: 1, Height: 1}
	rays, err := persp.Generate(res)
	if err != nil {
		t.Fatal(err)
	}
	if rays.Len() != 6 {
		t.Fatalf("expected 6 lanes, got %d", rays.Len())
	}
	// Row-major from the top-left: first lane looks up and left (+Z, +Y).
	first, last := rays.V.At(0), rays.V.At(5)
	if first.Z <= 0 || first.Y <= 0 || last.Z >= 0 || last.Y >= 0 {
		t.Errorf("unexpected lane order: first %v last %v", first, last)
	}
	// Middle column of the top row points straight up the image plane.
	mid := rays.V.At(1)
	if math.Abs(mid.Y) > 1e-15 || mid.Z <= 0 {
		t.Errorf("middle column should have no horizontal offset: %v", mid)
	}
	for i, n := range rays.V.Norm() {
		if math.Abs(n-1) > 1e-14 {
			t.Errorf("lane %d: non-unit direction norm %v", i, n)
		}
	}

	pano := rtrender.Panoramic{AzimuthMin: -90, AzimuthMax: 90, ElevationMin: -45, ElevationMax: 45}
	rays, err = pano.Generate(rtrender.Resolution{Width: 2, Height: 1})
	if err != nil {
		t.Fatal(err)
	}
	left, right := rays.V.At(0), rays.V.At(1)
	if left.Y <= 0 || right.Y >= 0 || math.Abs(left.Z) > 1e-15 {
		t.Errorf("panoramic: left %v right %v", left, right)
	}

	_, err = persp.Generate(rtrender.Resolution{})
	if err == nil {
		t.Error("expected error for empty resolution")
	}
	_, err = rtrender.Perspective{Direction: md3.Vec{Z: 1}, Width: 1, Height: 1}.Generate(res)
	if err == nil {
		t.Error("expected error for direction parallel to up")
	}
}

func TestSceneValidation(t *testing.T) {
	var bld gtrace.Builder
	painted := bld.Paint(bld.NewSphere(md3.Vec{}, 1), "gold")
	unpainted := bld.NewSphere(md3.Vec{}, 1)
	_, err := rtrender.NewScene([]gtrace.Surface{painted}, nil, nil)
	if err == nil {
		t.Error("expected undefined material error")
	}
	_, err = rtrender.NewScene([]gtrace.Surface{unpainted}, map[string]shade.Material{"gold": shade.Uniform{}}, nil)
	if err == nil {
		t.Error("expected unpainted surface error")
	}
	_, err = rtrender.NewScene([]gtrace.Surface{nil}, nil, nil)
	if err == nil {
		t.Error("expected nil surface error")
	}
	_, err = rtrender.NewScene([]gtrace.Surface{painted}, map[string]shade.Material{"gold": shade.Uniform{}}, []shade.Light{nil})
	if err == nil {
		t.Error("expected nil light error")
	}
	_, err = rtrender.NewRaytracer(rtrender.Config{Resolution: rtrender.Resolution{Width: 1, Height: 1}, MaxDepth: -1})
	if err == nil {
		t.Error("expected negative depth error")
	}
}

func TestExampleGolden(t *testing.T) {
	sc := exampleScene(t)
	cfg := rtrender.Config{Resolution: rtrender.Resolution{Width: 8, Height: 8}, MaxDepth: 4}
	rt := mustTracer(t, cfg)
	color, err := rt.Render(exampleCamera(), sc)
	if err != nil {
		t.Fatal(err)
	}
	again, err := rt.Render(exampleCamera(), sc)
	if err != nil {
		t.Fatal(err)
	}
	if !color.AllEqual(again) {
		t.Fatal("render is not deterministic")
	}
	img, err := rtrender.ToRGBA(color, cfg.Resolution)
	if err != nil {
		t.Fatal(err)
	}
	golden := filepath.Join("testdata", "example_8x8.golden")
	if *update {
		err = os.WriteFile(golden, img.Pix, 0o644)
		if err != nil {
			t.Fatal(err)
		}
		t.Log("updated golden file", golden)
	}
	want, err := os.ReadFile(golden)
	if err != nil {
		t.Fatalf("%s (run with -update to regenerate)", err)
	}
	if !bytes.Equal(want, img.Pix) {
		t.Error("rendered image differs from golden file")
	}
}

func TestRenderImageSize(t *testing.T) {
	sc := exampleScene(t)
	rt := mustTracer(t, rtrender.Config{Resolution: rtrender.Resolution{Width: 4, Height: 3}})
	img, err := rtrender.ToRGBA(vbatch.Zeros(12), rtrender.Resolution{Width: 4, Height: 3})
	if err != nil {
		t.Fatal(err)
	}
	err = rt.RenderImage(exampleCamera(), sc, img)
	if err != nil {
		t.Fatal(err)
	}
	// Top left pixel looks up at the empty black background.
	if img.Pix[3] != 255 {
		t.Error("expected opaque pixels")
	}
	wrong, _ := rtrender.ToRGBA(vbatch.Zeros(4), rtrender.Resolution{Width: 2, Height: 2})
	err = rt.RenderImage(exampleCamera(), sc, wrong)
	if err == nil {
		t.Error("expected image size mismatch error")
	}
}
