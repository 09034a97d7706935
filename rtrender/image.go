package rtrender

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/soypat/gtrace/vbatch"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// RenderImage renders the scene into img. The image bounds must match the
// configured resolution.
func (rt *Raytracer) RenderImage(cam Camera, sc *Scene, img setImage) error {
	colors, err := rt.Render(cam, sc)
	if err != nil {
		return err
	}
	return PutColors(img, colors, rt.cfg.Resolution)
}

// ToRGBA converts row-major colors in [0,1] to an 8-bit image.
func ToRGBA(colors vbatch.V3, res Resolution) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	err := PutColors(img, colors, res)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// PutColors writes row-major colors to img. Components are truncated to 8 bits
// and non-finite components are written as zero.
func PutColors(img setImage, colors vbatch.V3, res Resolution) error {
	if err := res.validate(); err != nil {
		return err
	}
	bb := img.Bounds()
	if bb.Dx() != res.Width || bb.Dy() != res.Height {
		return fmt.Errorf("image size %dx%d does not match resolution %dx%d", bb.Dx(), bb.Dy(), res.Width, res.Height)
	} else if colors.Len() != res.Lanes() {
		return fmt.Errorf("%w: %d colors for %d pixels", vbatch.ErrDimensionMismatch, colors.Len(), res.Lanes())
	}
	for row := 0; row < res.Height; row++ {
		for col := 0; col < res.Width; col++ {
			lane := row*res.Width + col
			img.Set(bb.Min.X+col, bb.Min.Y+row, color.RGBA{
				R: to8bit(colors.X[lane]),
				G: to8bit(colors.Y[lane]),
				B: to8bit(colors.Z[lane]),
				A: 255,
			})
		}
	}
	return nil
}

func to8bit(c float64) uint8 {
	if math.IsNaN(c) || c <= 0 {
		return 0
	} else if c >= 1 {
		return 255
	}
	return uint8(c * 255)
}
