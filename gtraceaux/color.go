package gtraceaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glgl/math/ms3"
)

var red = color.RGBA{R: 255, A: 255}

// DepthConversionBands creates a depth color conversion in [Inigo Quilez]'s
// distance field style: warm tones darkening towards the camera with
// contour bands every characteristicDistance/25 units. Misses (+Inf) are black and NaN is red.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func DepthConversionBands(characteristicDistance float32) func(float32) color.Color {
	inv := 1. / characteristicDistance
	return func(d float32) color.Color {
		switch {
		case math.IsNaN(d):
			return red
		case math.IsInf(d, 1):
			return color.Black
		}
		d *= inv
		c := ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
		c = ms3.Scale(1-math.Exp(-6*math.Abs(d)), c)
		c = ms3.Scale(0.8+0.2*math.Cos(150*d), c)
		return color.RGBA{
			R: uint8(ms1.Clamp(c.X, 0, 1) * 255),
			G: uint8(ms1.Clamp(c.Y, 0, 1) * 255),
			B: uint8(ms1.Clamp(c.Z, 0, 1) * 255),
			A: 255,
		}
	}
}

// DepthConversionGradient creates a color conversion interpolating in HSV space from
// c0 at depth near to c1 at depth far. Hue takes the short way around the color wheel.
// Misses (+Inf) return background and NaN is red.
func DepthConversionGradient(near, far float32, c0, c1, background color.Color) func(d float32) color.Color {
	hsv0, hsv1 := toHSV(c0), toHSV(c1)
	if hsv1.X-hsv0.X > 0.5 {
		hsv0.X++
	} else if hsv0.X-hsv1.X > 0.5 {
		hsv1.X++
	}
	length := far - near
	return func(d float32) color.Color {
		switch {
		case math.IsNaN(d):
			return red
		case math.IsInf(d, 1):
			return background
		}
		blend := float32(1)
		if length > 0 {
			blend = (d - near) / length
		}
		if blend <= 0 {
			return c0
		} else if blend >= 1 {
			return c1
		}
		h := ms1.Interp(hsv0.X, hsv1.X, blend)
		s := ms1.Interp(hsv0.Y, hsv1.Y, blend)
		v := ms1.Interp(hsv0.Z, hsv1.Z, blend)
		// Branchless hue to RGB from Inigo Quilez. Mod wraps unwrapped hues back onto the wheel.
		k := ms3.Vec{X: math.Mod(h*6, 6), Y: math.Mod(h*6+4, 6), Z: math.Mod(h*6+2, 6)}
		rgb := ms3.AddScalar(-1, ms3.AbsElem(ms3.AddScalar(-3, k)))
		rgb = ms3.ClampElem(rgb, ms3.Vec{}, ms3.Vec{X: 1, Y: 1, Z: 1})
		rgb = ms3.Scale(v, ms3.AddScalar(1-s, ms3.Scale(s, rgb)))
		return color.RGBA{
			R: uint8(ms1.Clamp(rgb.X, 0, 1) * 255),
			G: uint8(ms1.Clamp(rgb.Y, 0, 1) * 255),
			B: uint8(ms1.Clamp(rgb.Z, 0, 1) * 255),
			A: 255,
		}
	}
}

// DepthConversionGray maps near to white and far to black.
func DepthConversionGray(near, far float32) func(d float32) color.Color {
	length := far - near
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		} else if math.IsInf(d, 1) || length <= 0 {
			return color.Black
		}
		blend := ms1.Clamp((d-near)/length, 0, 1)
		return color.Gray{Y: uint8((1 - blend) * 255)}
	}
}

// toHSV returns hue, saturation and value of c in X, Y and Z, all in [0,1].
func toHSV(c color.Color) ms3.Vec {
	r32, g32, b32, _ := c.RGBA()
	r, g, b := float32(r32)/0xffff, float32(g32)/0xffff, float32(b32)/0xffff
	hi, lo := max(r, g, b), min(r, g, b)
	chroma := hi - lo
	if hi == 0 {
		return ms3.Vec{}
	} else if chroma == 0 {
		return ms3.Vec{Z: hi}
	}
	var sector float32
	switch hi {
	case r:
		sector = (g - b) / chroma
	case g:
		sector = 2 + (b-r)/chroma
	default:
		sector = 4 + (r-g)/chroma
	}
	h := sector / 6
	if h < 0 {
		h++
	}
	return ms3.Vec{X: h, Y: chroma / hi, Z: hi}
}
