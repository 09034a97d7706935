package rtrender

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace/vbatch"
)

// Resolution is the size of the output raster in pixels.
type Resolution struct {
	Width, Height int
}

// Lanes returns the amount of pixels, which is the amount of lanes in a frame.
func (r Resolution) Lanes() int { return r.Width * r.Height }

func (r Resolution) validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", r.Width, r.Height)
	}
	return nil
}

// Camera generates one ray per output pixel.
type Camera interface {
	// Generate returns res.Width*res.Height rays in row-major order
	// starting at the top-left pixel.
	Generate(res Resolution) (vbatch.Ray, error)
}

// Perspective is a pinhole camera. Its image plane is at unit distance
// along Direction and spans Width by Height units.
type Perspective struct {
	Origin    md3.Vec
	Direction md3.Vec
	// Up is the approximate up direction of the image. Zero value means +Z.
	Up            md3.Vec
	Width, Height float64
}

// NewPerspective creates a +Z up perspective camera at origin looking at lookat.
func NewPerspective(origin, lookat md3.Vec, width, height float64) Perspective {
	return Perspective{
		Origin:    origin,
		Direction: md3.Sub(lookat, origin),
		Width:     width,
		Height:    height,
	}
}

// Generate implements [Camera].
func (c Perspective) Generate(res Resolution) (vbatch.Ray, error) {
	if err := res.validate(); err != nil {
		return vbatch.Ray{}, err
	}
	dlen := md3.Norm(c.Direction)
	if dlen == 0 {
		return vbatch.Ray{}, errors.New("zero camera direction")
	} else if c.Width <= 0 || c.Height <= 0 {
		return vbatch.Ray{}, errors.New("non-positive image plane dimensions")
	}
	up := c.Up
	if up == (md3.Vec{}) {
		up = md3.Vec{Z: 1}
	}
	dir := md3.Scale(1/dlen, c.Direction)
	right := md3.Cross(dir, up)
	rlen := md3.Norm(right)
	if rlen < 1e-12 {
		return vbatch.Ray{}, errors.New("camera direction parallel to up vector")
	}
	right = md3.Scale(1/rlen, right)
	upv := md3.Cross(right, dir)

	n := res.Lanes()
	dirs := vbatch.Zeros(n)
	w, h := float64(res.Width), float64(res.Height)
	for i := 0; i < res.Height; i++ {
		v := (0.5 - (float64(i)+0.5)/h) * c.Height
		for j := 0; j < res.Width; j++ {
			u := ((float64(j)+0.5)/w - 0.5) * c.Width
			d := md3.Add(dir, md3.Add(md3.Scale(u, right), md3.Scale(v, upv)))
			dirs.Set(i*res.Width+j, d)
		}
	}
	return vbatch.NewRay(vbatch.Broadcast(c.Origin, n), dirs)
}

// Panoramic is an equirectangular camera covering a range of azimuth and
// elevation angles in degrees. Azimuth is measured counter-clockwise from +X
// around +Z and decreases from left to right so the image is not mirrored.
type Panoramic struct {
	Origin                     md3.Vec
	AzimuthMin, AzimuthMax     float64
	ElevationMin, ElevationMax float64
}

// Generate implements [Camera].
func (c Panoramic) Generate(res Resolution) (vbatch.Ray, error) {
	if err := res.validate(); err != nil {
		return vbatch.Ray{}, err
	}
	if c.AzimuthMax <= c.AzimuthMin || c.ElevationMax <= c.ElevationMin {
		return vbatch.Ray{}, errors.New("empty panoramic angle range")
	} else if c.ElevationMin < -90 || c.ElevationMax > 90 {
		return vbatch.Ray{}, errors.New("elevation out of [-90,90] range")
	}
	const deg2rad = math.Pi / 180
	n := res.Lanes()
	dirs := vbatch.Zeros(n)
	w, h := float64(res.Width), float64(res.Height)
	for i := 0; i < res.Height; i++ {
		el := deg2rad * (c.ElevationMax - (float64(i)+0.5)/h*(c.ElevationMax-c.ElevationMin))
		sel, cel := math.Sincos(el)
		for j := 0; j < res.Width; j++ {
			az := deg2rad * (c.AzimuthMax - (float64(j)+0.5)/w*(c.AzimuthMax-c.AzimuthMin))
			saz, caz := math.Sincos(az)
			dirs.Set(i*res.Width+j, md3.Vec{X: cel * caz, Y: cel * saz, Z: sel})
		}
	}
	return vbatch.NewRay(vbatch.Broadcast(c.Origin, n), dirs)
}
