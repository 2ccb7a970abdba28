package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"github.com/dmitrijs2005/heartwall/internal/mask"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	// ViewportSize is the edge of the on-screen crop box, in pixels.
	ViewportSize = 250
	// CanvasSize is the edge of the cropped artifact.
	CanvasSize = 600
	// FullMaxEdge caps the longer edge of the full artifact.
	FullMaxEdge = 1200
	// JPEGQuality is fixed for both artifacts.
	JPEGQuality = 90

	MinScale = 0.5
	MaxScale = 3.0

	ContentTypeJPEG = "image/jpeg"
)

var background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Rect is a rectangle in floating point viewport coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Params is the user-chosen placement of the source under the viewport.
type Params struct {
	OffsetX, OffsetY float64
	Scale            float64
}

// FitSize returns the source dimensions fitted to cover the viewport,
// which is what scale 1 displays.
func FitSize(w, h int) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	k := math.Max(ViewportSize/float64(w), ViewportSize/float64(h))
	return float64(w) * k, float64(h) * k
}

// DrawRect computes the placement of a w x h source inside the viewport.
func DrawRect(w, h int, p Params) Rect {
	fw, fh := FitSize(w, h)
	sw, sh := fw*p.Scale, fh*p.Scale
	return Rect{
		X: ViewportSize/2 - sw/2 + p.OffsetX,
		Y: ViewportSize/2 - sh/2 + p.OffsetY,
		W: sw,
		H: sh,
	}
}

// Crop renders src onto a CanvasSize square using the viewport placement
// and clips it to the heart. Pixels outside the heart, or not covered by
// the source, are the background colour.
func Crop(src image.Image, p Params) *image.RGBA {
	b := src.Bounds()
	r := DrawRect(b.Dx(), b.Dy(), p)
	k := float64(CanvasSize) / ViewportSize

	canvas := image.Rect(0, 0, CanvasSize, CanvasSize)
	layer := image.NewRGBA(canvas)

	sx := r.W * k / float64(b.Dx())
	sy := r.H * k / float64(b.Dy())
	s2d := f64.Aff3{
		sx, 0, r.X*k - float64(b.Min.X)*sx,
		0, sy, r.Y*k - float64(b.Min.Y)*sy,
	}
	xdraw.CatmullRom.Transform(layer, s2d, src, b, xdraw.Over, nil)

	out := image.NewRGBA(canvas)
	draw.Draw(out, canvas, &image.Uniform{C: background}, image.Point{}, draw.Src)
	draw.DrawMask(out, canvas, layer, image.Point{}, mask.Heart().Rasterize(CanvasSize), image.Point{}, draw.Over)
	return out
}

// FullSize returns the dimensions of src after capping the longer edge at
// maxEdge. Sources that already fit are never upscaled.
func FullSize(w, h, maxEdge int) (int, int) {
	long := w
	if h > long {
		long = h
	}
	if long <= maxEdge {
		return w, h
	}
	k := float64(maxEdge) / float64(long)
	nw := int(math.Round(float64(w) * k))
	nh := int(math.Round(float64(h) * k))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// Full resizes src to fit FullMaxEdge and flattens any transparency onto the
// background, since the output format has no alpha channel.
func Full(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := FullSize(b.Dx(), b.Dy(), FullMaxEdge)
	dr := image.Rect(0, 0, w, h)

	out := image.NewRGBA(dr)
	draw.Draw(out, dr, &image.Uniform{C: background}, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(out, dr, src, b.Min, draw.Over)
		return out
	}
	xdraw.CatmullRom.Scale(out, dr, src, b, xdraw.Over, nil)
	return out
}

// EncodeJPEG compresses img at JPEGQuality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
