// Package transform maps world coordinates onto image pixels.
//
// The mapping is a single axis-aligned affine transform chosen so that the
// bounding box of the plotted points fills the whole image. Pixel rows grow
// downwards, so world y is flipped: the largest y lands on row 0.
package transform

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrNoPoints is returned when a bounding box is requested for no points.
var ErrNoPoints = errors.New("no points")

// Bounds is an axis-aligned bounding box in world coordinates.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// BoundsOf returns the bounding box of the points (xs[i], ys[i]).
func BoundsOf(xs, ys []float64) (Bounds, error) {
	if len(xs) == 0 || len(ys) == 0 {
		return Bounds{}, ErrNoPoints
	}
	if len(xs) != len(ys) {
		return Bounds{}, fmt.Errorf("coordinate length mismatch: %d xs, %d ys", len(xs), len(ys))
	}
	return Bounds{
		MinX: floats.Min(xs),
		MaxX: floats.Max(xs),
		MinY: floats.Min(ys),
		MaxY: floats.Max(ys),
	}, nil
}

// Union returns the smallest box containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: min(b.MinX, o.MinX),
		MaxX: max(b.MaxX, o.MaxX),
		MinY: min(b.MinY, o.MinY),
		MaxY: max(b.MaxY, o.MaxY),
	}
}

// Width returns the x extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the y extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// PixelTransform maps world coordinates to pixel coordinates of a
// Width x Height image.
type PixelTransform struct {
	Bounds Bounds
	Width  float64
	Height float64
}

// NewPixelTransform builds the transform for an image of w x h pixels.
func NewPixelTransform(b Bounds, w, h int) PixelTransform {
	return PixelTransform{Bounds: b, Width: float64(w), Height: float64(h)}
}

// Apply maps (x, y) to pixel (px, py). An axis whose extent is zero maps
// every point to the image midline on that axis.
func (t PixelTransform) Apply(x, y float64) (px, py float64) {
	b := t.Bounds
	if b.MaxX == b.MinX {
		px = 0.5 * t.Width
	} else {
		px = (x - b.MinX) / (b.MaxX - b.MinX) * t.Width
	}
	if b.MaxY == b.MinY {
		py = 0.5 * t.Height
	} else {
		py = t.Height - (y-b.MinY)/(b.MaxY-b.MinY)*t.Height
	}
	return px, py
}

// EqualAspect widens the shorter side of b around its centre so that one
// world unit spans the same length on both axes of a canvas with the given
// width/height ratio. A degenerate box is padded by pad on each side first.
func EqualAspect(b Bounds, canvasAspect, pad float64) Bounds {
	if b.Width() == 0 {
		b.MinX, b.MaxX = b.MinX-pad, b.MaxX+pad
	}
	if b.Height() == 0 {
		b.MinY, b.MaxY = b.MinY-pad, b.MaxY+pad
	}
	if canvasAspect <= 0 {
		return b
	}

	w, h := b.Width(), b.Height()
	switch {
	case w/h < canvasAspect:
		cx, half := (b.MinX+b.MaxX)/2, h*canvasAspect/2
		b.MinX, b.MaxX = cx-half, cx+half
	case w/h > canvasAspect:
		cy, half := (b.MinY+b.MaxY)/2, w/canvasAspect/2
		b.MinY, b.MaxY = cy-half, cy+half
	}
	return b
}
