package gtraceaux

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace"
	"github.com/soypat/gtrace/rtrender"
	"github.com/soypat/gtrace/shade"
)

// SceneFile is the JSON document describing a scene. All three keys are required.
type SceneFile struct {
	Objects   []ObjectCfg            `json:"objects"`
	Materials map[string]MaterialCfg `json:"materials"`
	Lighting  []LightCfg             `json:"lighting"`
}

// Vec is a JSON 3-vector written as [x, y, z].
type Vec [3]float64

func (v Vec) md3() md3.Vec { return md3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// ObjectCfg is a tagged scene node. Type selects which of the remaining fields apply:
//
//	sphere:       center, radius
//	ground:       point, normal
//	box:          dims, round (centered at origin)
//	cylinder:     radius, height, round (centered at origin, axis along Z)
//	union:        children (at least 1)
//	intersection: children (at least 2)
//	difference:   children (at least 2, first minus the rest)
//	translate:    offset, children (exactly 1)
//	rotate:       angle in degrees, axis, children (exactly 1)
//	scale:        factor, children (exactly 1)
//
// Any node may be painted with Material.
type ObjectCfg struct {
	Type     string      `json:"type"`
	Material string      `json:"material,omitempty"`
	Center   *Vec        `json:"center,omitempty"`
	Radius   *float64    `json:"radius,omitempty"`
	Point    *Vec        `json:"point,omitempty"`
	Normal   *Vec        `json:"normal,omitempty"`
	Dims     *Vec        `json:"dims,omitempty"`
	Round    *float64    `json:"round,omitempty"`
	Height   *float64    `json:"height,omitempty"`
	Offset   *Vec        `json:"offset,omitempty"`
	Angle    *float64    `json:"angle,omitempty"`
	Axis     *Vec        `json:"axis,omitempty"`
	Factor   *float64    `json:"factor,omitempty"`
	Children []ObjectCfg `json:"children,omitempty"`
}

// MaterialCfg describes a material. Type is "uniform" (color, reflectivity)
// or "checkered" (a, b, scale).
type MaterialCfg struct {
	Type         string       `json:"type"`
	Color        *Vec         `json:"color,omitempty"`
	Reflectivity float64      `json:"reflectivity,omitempty"`
	A            *MaterialCfg `json:"a,omitempty"`
	B            *MaterialCfg `json:"b,omitempty"`
	Scale        float64      `json:"scale,omitempty"`
}

// LightCfg describes a light. Type is "ambient" (intensity) or "directional" (direction).
// Color defaults to white.
type LightCfg struct {
	Type      string  `json:"type"`
	Intensity float64 `json:"intensity,omitempty"`
	Direction *Vec    `json:"direction,omitempty"`
	Color     *Vec    `json:"color,omitempty"`
}

// LoadSceneFile reads and builds the JSON scene at path.
func LoadSceneFile(path string) (*rtrender.Scene, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	sc, err := LoadScene(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// LoadScene decodes a JSON scene document and builds a validated scene.
// Unknown keys are rejected at every level.
func LoadScene(r io.Reader) (*rtrender.Scene, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding scene: %w", err)
	}
	for _, key := range []string{"objects", "materials", "lighting"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("scene missing required key %q", key)
		}
	}
	var sf SceneFile
	strict := func(key string, dst any) error {
		d := json.NewDecoder(bytes.NewReader(raw[key]))
		d.DisallowUnknownFields()
		if err := d.Decode(dst); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		delete(raw, key)
		return nil
	}
	if err := strict("objects", &sf.Objects); err != nil {
		return nil, err
	}
	if err := strict("materials", &sf.Materials); err != nil {
		return nil, err
	}
	if err := strict("lighting", &sf.Lighting); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		keys := make([]string, 0, len(raw))
		for key := range raw {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown scene keys %q", keys)
	}
	return sf.Build()
}

// Build converts the configuration into a validated scene.
func (sf SceneFile) Build() (*rtrender.Scene, error) {
	var bld gtrace.Builder
	// Report malformed shapes as errors instead of panicking.
	bld.SetFlags(gtrace.FlagNoDimensionPanic)
	objects := make([]gtrace.Surface, 0, len(sf.Objects))
	for i, cfg := range sf.Objects {
		s, err := cfg.Build(&bld)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		objects = append(objects, s)
	}
	if err := bld.Err(); err != nil {
		return nil, err
	}
	materials := make(map[string]shade.Material, len(sf.Materials))
	for name, cfg := range sf.Materials {
		m, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
		materials[name] = m
	}
	lights := make([]shade.Light, 0, len(sf.Lighting))
	for i, cfg := range sf.Lighting {
		l, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("light %d: %w", i, err)
		}
		lights = append(lights, l)
	}
	return rtrender.NewScene(objects, materials, lights)
}

// Build creates the surface described by the node using bld.
func (cfg ObjectCfg) Build(bld *gtrace.Builder) (s gtrace.Surface, err error) {
	if err = cfg.checkFields(); err != nil {
		return nil, err
	}
	children := make([]gtrace.Surface, len(cfg.Children))
	for i, child := range cfg.Children {
		children[i], err = child.Build(bld)
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", cfg.Type, i, err)
		}
	}
	switch cfg.Type {
	case "sphere":
		s = bld.NewSphere(cfg.Center.md3(), *cfg.Radius)
	case "ground":
		s = bld.NewGround(cfg.Point.md3(), cfg.Normal.md3())
	case "box":
		s = bld.NewBox(cfg.Dims.md3(), deref(cfg.Round))
	case "cylinder":
		s = bld.NewCylinder(*cfg.Radius, *cfg.Height, deref(cfg.Round))
	case "union":
		s = bld.UnionAll(children...)
	case "intersection":
		s = children[0]
		for _, c := range children[1:] {
			s = bld.Intersection(s, c)
		}
	case "difference":
		s = bld.Difference(children[0], bld.UnionAll(children[1:]...))
	case "translate":
		s = bld.Translate(children[0], cfg.Offset.md3())
	case "rotate":
		s = bld.Rotate(children[0], *cfg.Angle*math.Pi/180, cfg.Axis.md3())
	case "scale":
		s = bld.Scale(children[0], *cfg.Factor)
	}
	if cfg.Material != "" {
		s = bld.Paint(s, cfg.Material)
	}
	return s, nil
}

// checkFields validates the type tag and that exactly the fields the type uses are present.
func (cfg ObjectCfg) checkFields() error {
	set := map[string]bool{
		"center": cfg.Center != nil,
		"radius": cfg.Radius != nil,
		"point":  cfg.Point != nil,
		"normal": cfg.Normal != nil,
		"dims":   cfg.Dims != nil,
		"round":  cfg.Round != nil,
		"height": cfg.Height != nil,
		"offset": cfg.Offset != nil,
		"angle":  cfg.Angle != nil,
		"axis":   cfg.Axis != nil,
		"factor": cfg.Factor != nil,
	}
	var required, optional []string
	minChildren, maxChildren := 0, 0
	switch cfg.Type {
	case "sphere":
		required = []string{"center", "radius"}
	case "ground":
		required = []string{"point", "normal"}
	case "box":
		required, optional = []string{"dims"}, []string{"round"}
	case "cylinder":
		required, optional = []string{"radius", "height"}, []string{"round"}
	case "union":
		minChildren, maxChildren = 1, math.MaxInt
	case "intersection", "difference":
		minChildren, maxChildren = 2, math.MaxInt
	case "translate":
		required, minChildren, maxChildren = []string{"offset"}, 1, 1
	case "rotate":
		required, minChildren, maxChildren = []string{"angle", "axis"}, 1, 1
	case "scale":
		required, minChildren, maxChildren = []string{"factor"}, 1, 1
	case "":
		return errors.New("missing object type")
	default:
		return fmt.Errorf("unknown object type %q", cfg.Type)
	}
	for _, f := range required {
		if !set[f] {
			return fmt.Errorf("%s requires %q", cfg.Type, f)
		}
		delete(set, f)
	}
	for _, f := range optional {
		delete(set, f)
	}
	for f, ok := range set {
		if ok {
			return fmt.Errorf("%s does not accept %q", cfg.Type, f)
		}
	}
	if n := len(cfg.Children); n < minChildren || n > maxChildren {
		return fmt.Errorf("%s got %d children", cfg.Type, n)
	}
	return nil
}

// Build creates the described material.
func (cfg MaterialCfg) Build() (shade.Material, error) {
	if cfg.Reflectivity < 0 || cfg.Reflectivity > 1 {
		return nil, fmt.Errorf("reflectivity %v out of [0,1] range", cfg.Reflectivity)
	}
	switch cfg.Type {
	case "uniform":
		if cfg.A != nil || cfg.B != nil || cfg.Scale != 0 {
			return nil, errors.New("uniform material does not accept checkered fields")
		}
		var c md3.Vec
		if cfg.Color != nil {
			c = cfg.Color.md3()
		}
		return shade.Uniform{Color: c, Reflect: cfg.Reflectivity}, nil
	case "checkered":
		if cfg.A == nil || cfg.B == nil {
			return nil, errors.New("checkered material requires a and b")
		} else if cfg.Scale <= 0 {
			return nil, errors.New("checkered material requires positive scale")
		} else if cfg.Color != nil || cfg.Reflectivity != 0 {
			return nil, errors.New("checkered material does not accept color or reflectivity")
		}
		a, err := cfg.A.Build()
		if err != nil {
			return nil, fmt.Errorf("checkered a: %w", err)
		}
		b, err := cfg.B.Build()
		if err != nil {
			return nil, fmt.Errorf("checkered b: %w", err)
		}
		return shade.Checkered{A: a, B: b, Scale: cfg.Scale}, nil
	}
	return nil, fmt.Errorf("unknown material type %q", cfg.Type)
}

// Build creates the described light.
func (cfg LightCfg) Build() (shade.Light, error) {
	color := md3.Vec{X: 1, Y: 1, Z: 1}
	if cfg.Color != nil {
		color = cfg.Color.md3()
	}
	switch cfg.Type {
	case "ambient":
		if cfg.Direction != nil {
			return nil, errors.New("ambient light does not accept direction")
		}
		return shade.Ambient{Intensity: cfg.Intensity, Color: color}, nil
	case "directional":
		if cfg.Direction == nil || cfg.Direction.md3() == (md3.Vec{}) {
			return nil, errors.New("directional light requires non-zero direction")
		} else if cfg.Intensity != 0 {
			return nil, errors.New("directional light does not accept intensity")
		}
		return shade.Directional{Direction: cfg.Direction.md3(), Color: color}, nil
	}
	return nil, fmt.Errorf("unknown light type %q", cfg.Type)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
