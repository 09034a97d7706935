package rtrender

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/soypat/gtrace"
	"github.com/soypat/gtrace/shade"
	"github.com/soypat/gtrace/vbatch"
)

// Scene is an immutable set of surfaces, the materials they reference by name and the lights illuminating them.
type Scene struct {
	objects   []gtrace.Surface
	materials map[string]shade.Material
	lights    []shade.Light
}

// NewScene validates and creates a scene. Every primitive of every object
// must be painted with a material present in materials.
func NewScene(objects []gtrace.Surface, materials map[string]shade.Material, lights []shade.Light) (*Scene, error) {
	var errs []error
	sc := &Scene{
		objects:   make([]gtrace.Surface, len(objects)),
		materials: make(map[string]shade.Material, len(materials)),
		lights:    make([]shade.Light, len(lights)),
	}
	copy(sc.objects, objects)
	copy(sc.lights, lights)
	for name, m := range materials {
		if m == nil {
			errs = append(errs, fmt.Errorf("material %q is nil", name))
		}
		sc.materials[name] = m
	}
	for i, l := range lights {
		if l == nil {
			errs = append(errs, fmt.Errorf("light %d is nil", i))
		}
	}
	for i, obj := range objects {
		names, err := gtrace.MaterialNames(obj)
		if err != nil {
			errs = append(errs, fmt.Errorf("object %d: %w", i, err))
			continue
		}
		for _, name := range names {
			if _, ok := materials[name]; !ok {
				errs = append(errs, fmt.Errorf("object %d: undefined material %q", i, name))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return sc, nil
}

// Objects returns the root surfaces of the scene.
func (sc *Scene) Objects() []gtrace.Surface { return sc.objects }

// Lights returns the lights of the scene.
func (sc *Scene) Lights() []shade.Light { return sc.lights }

// Material returns the material registered under name.
func (sc *Scene) Material(name string) (shade.Material, bool) {
	m, ok := sc.materials[name]
	return m, ok
}

// MaterialNames returns the sorted names of the registered materials.
func (sc *Scene) MaterialNames() []string {
	names := make([]string, 0, len(sc.materials))
	for name := range sc.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Nearest returns the nearest entering crossing over all objects farther than eps along each ray.
func (sc *Scene) Nearest(rays vbatch.Ray, eps float64) (dist []float64, hit []gtrace.Crossing, ok vbatch.Mask) {
	dist = vbatch.Fill(rays.Len(), math.Inf(1))
	hit = make([]gtrace.Crossing, rays.Len())
	ok = make(vbatch.Mask, rays.Len())
	for _, obj := range sc.objects {
		d, h, hok := obj.Intersect(rays).Nearest(eps)
		for i := range d {
			if hok[i] && d[i] < dist[i] {
				dist[i], hit[i], ok[i] = d[i], h[i], true
			}
		}
	}
	return dist, hit, ok
}

// occluder implements [shade.Occluder] over a scene.
type occluder struct {
	sc  *Scene
	eps float64
}

// Occluded reports lanes whose ray hits any object. Directional lights are
// at infinity so any hit ahead of the origin blocks the light.
func (o occluder) Occluded(rays vbatch.Ray) vbatch.Mask {
	_, _, hit := o.sc.Nearest(rays, o.eps)
	return hit
}
