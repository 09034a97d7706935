// Package gtraceaux provides helpers to get started with gtrace quickly:
// scene files, image output and a one-call render function.
package gtraceaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/md3"
	"github.com/soypat/gtrace/rtrender"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"
)

// RenderConfig configures [Render]. Camera and at least one output are required.
type RenderConfig struct {
	Camera     rtrender.Camera
	Resolution rtrender.Resolution
	MaxDepth   int
	Background md3.Vec
	// ImageOutput receives the rendered image. Format is chosen by ImageFormat.
	ImageOutput io.Writer
	// DepthOutput receives a depth map of the scene colored with [DepthConversionBands].
	DepthOutput io.Writer
	// ImageFormat is one of "png", "bmp" or "tiff". Empty means png.
	ImageFormat string
	// Upscale scales output images by an integer factor with nearest neighbour sampling.
	Upscale int
	// Label is drawn on the top left corner of the rendered image when not empty.
	Label       string
	StrictFloat bool
	Silent      bool
}

// Render is an auxiliary function to aid users in getting setup in using gtrace quickly.
// Ideally users should implement their own rendering functions since applications may vary widely.
func Render(sc *rtrender.Scene, cfg RenderConfig) (err error) {
	if cfg.ImageOutput == nil && cfg.DepthOutput == nil {
		return errors.New("Render requires output parameter in config")
	} else if cfg.Camera == nil {
		return errors.New("Render requires camera")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	rt, err := rtrender.NewRaytracer(rtrender.Config{
		Resolution:  cfg.Resolution,
		MaxDepth:    cfg.MaxDepth,
		Background:  cfg.Background,
		StrictFloat: cfg.StrictFloat,
	})
	if err != nil {
		return err
	}
	if cfg.ImageOutput != nil {
		watch := stopwatch()
		colors, err := rt.Render(cfg.Camera, sc)
		if err != nil {
			return fmt.Errorf("rendering scene: %w", err)
		}
		log("traced", colors.Len(), "primary rays in", watch())
		img, err := rtrender.ToRGBA(colors, cfg.Resolution)
		if err != nil {
			return err
		}
		err = writeOutput(cfg.ImageOutput, "image", img, cfg, log)
		if err != nil {
			return err
		}
	}
	if cfg.DepthOutput != nil {
		watch := stopwatch()
		depth, err := rt.Depth(cfg.Camera, sc)
		if err != nil {
			return fmt.Errorf("rendering depth: %w", err)
		}
		far := farthest(depth)
		log("computed depth map in", watch(), "with farthest hit at", far)
		img, err := DepthImage(depth, cfg.Resolution, DepthConversionBands(float32(far)))
		if err != nil {
			return err
		}
		err = writeOutput(cfg.DepthOutput, "depth map", img, cfg, log)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(w io.Writer, what string, img *image.RGBA, cfg RenderConfig, log func(...any)) (err error) {
	watch := stopwatch()
	if cfg.Upscale > 1 {
		img = Upscale(img, cfg.Upscale)
	}
	if cfg.Label != "" {
		err = DrawLabel(img, cfg.Label, 4, 4, 12, color.White)
		if err != nil {
			return err
		}
	}
	format := cfg.ImageFormat
	if format == "" {
		format = "png"
	}
	err = EncodeImage(w, format, img)
	if err != nil {
		return fmt.Errorf("writing %s: %w", what, err)
	}
	filename := what
	if fp, ok := w.(*os.File); ok {
		filename = fp.Name()
	}
	log("wrote", filename, "in", watch())
	return nil
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// EncodeImage writes img to w in format "png", "bmp", "tif" or "tiff".
func EncodeImage(w io.Writer, format string, img image.Image) error {
	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported image format %q", format)
}

// WriteImageFile saves img to filename choosing the encoder from the file extension.
func WriteImageFile(filename string, img image.Image) error {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return fmt.Errorf("%s: missing image extension", filename)
	}
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = EncodeImage(fp, ext, img)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return fp.Sync()
}

// Upscale enlarges img by an integer factor replicating each pixel.
func Upscale(img image.Image, factor int) *image.RGBA {
	bb := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bb.Dx()*factor, bb.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, bb, draw.Src, nil)
	return dst
}

// DrawLabel draws text with its top left corner at (x,y) in pixels using the Go Mono font of the given size in points.
func DrawLabel(dst draw.Image, text string, x, y int, size float64, c color.Color) error {
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return err
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(text)
	return nil
}

// DepthImage converts row-major depths to an image using conv.
// A nil conv maps the range of finite depths from white to black.
func DepthImage(depth []float64, res rtrender.Resolution, conv func(float32) color.Color) (*image.RGBA, error) {
	if len(depth) != res.Lanes() || res.Width <= 0 {
		return nil, fmt.Errorf("%d depths for %dx%d resolution", len(depth), res.Width, res.Height)
	}
	if conv == nil {
		near, far := math.Inf(1), 0.0
		for _, d := range depth {
			if !math.IsInf(d, 0) && !math.IsNaN(d) {
				near = math.Min(near, d)
				far = math.Max(far, d)
			}
		}
		conv = DepthConversionGray(float32(near), float32(far))
	}
	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	for i, d := range depth {
		img.Set(i%res.Width, i/res.Width, conv(float32(d)))
	}
	return img, nil
}

func farthest(depth []float64) float64 {
	far := 0.0
	for _, d := range depth {
		if !math.IsInf(d, 0) && d > far {
			far = d
		}
	}
	if far == 0 {
		return 1
	}
	return far
}
