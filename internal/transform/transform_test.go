package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsOf(t *testing.T) {
	b, err := BoundsOf([]float64{3, -1, 2}, []float64{0, 4, -2})
	require.NoError(t, err)
	assert.Equal(t, Bounds{MinX: -1, MaxX: 3, MinY: -2, MaxY: 4}, b)
	assert.Equal(t, 4.0, b.Width())
	assert.Equal(t, 6.0, b.Height())
}

func TestBoundsOf_Errors(t *testing.T) {
	_, err := BoundsOf(nil, nil)
	assert.True(t, errors.Is(err, ErrNoPoints))

	_, err = BoundsOf([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestBounds_Union(t *testing.T) {
	a := Bounds{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	b := Bounds{MinX: -2, MaxX: 0.5, MinY: 0.5, MaxY: 3}
	assert.Equal(t, Bounds{MinX: -2, MaxX: 1, MinY: 0, MaxY: 3}, a.Union(b))
}

func TestPixelTransform_Corners(t *testing.T) {
	tr := NewPixelTransform(Bounds{MinX: -10, MaxX: 30, MinY: 5, MaxY: 25}, 200, 100)

	tests := []struct {
		name   string
		x, y   float64
		px, py float64
	}{
		{"min x min y is bottom left", -10, 5, 0, 100},
		{"max x max y is top right", 30, 25, 200, 0},
		{"min x max y is top left", -10, 25, 0, 0},
		{"centre", 10, 15, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, py := tr.Apply(tt.x, tt.y)
			assert.InDelta(t, tt.px, px, 1e-9)
			assert.InDelta(t, tt.py, py, 1e-9)
		})
	}
}

func TestPixelTransform_DegenerateAxes(t *testing.T) {
	// All points share x: every x maps to the vertical midline.
	tr := NewPixelTransform(Bounds{MinX: 4, MaxX: 4, MinY: 0, MaxY: 10}, 100, 80)
	px, py := tr.Apply(4, 10)
	assert.Equal(t, 50.0, px)
	assert.Equal(t, 0.0, py)

	// All points share y: every y maps to the horizontal midline.
	tr = NewPixelTransform(Bounds{MinX: 0, MaxX: 10, MinY: 7, MaxY: 7}, 100, 80)
	px, py = tr.Apply(0, 7)
	assert.Equal(t, 0.0, px)
	assert.Equal(t, 40.0, py)
}

func TestPixelTransform_SinglePointPerDataset(t *testing.T) {
	gt := []float64{0}
	tracks := []float64{10}
	xs := append(append([]float64{}, gt...), tracks...)
	ys := append(append([]float64{}, gt...), tracks...)
	b, err := BoundsOf(xs, ys)
	require.NoError(t, err)

	tr := NewPixelTransform(b, 100, 100)
	px, py := tr.Apply(0, 0)
	assert.Equal(t, [2]float64{0, 100}, [2]float64{px, py})
	px, py = tr.Apply(10, 10)
	assert.Equal(t, [2]float64{100, 0}, [2]float64{px, py})
}

func TestPixelTransform_AllPointsCoincide(t *testing.T) {
	b, err := BoundsOf([]float64{3, 3}, []float64{-2, -2})
	require.NoError(t, err)

	px, py := NewPixelTransform(b, 100, 100).Apply(3, -2)
	assert.Equal(t, 50.0, px)
	assert.Equal(t, 50.0, py)
}

func TestEqualAspect(t *testing.T) {
	// 10 wide, 2 tall on a square canvas: y is widened to 10 around 1.
	b := EqualAspect(Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 2}, 1, 1)
	assert.Equal(t, Bounds{MinX: 0, MaxX: 10, MinY: -4, MaxY: 6}, b)

	// 2 wide, 10 tall on a 2:1 canvas: x is widened to 20 around 1.
	b = EqualAspect(Bounds{MinX: 0, MaxX: 2, MinY: 0, MaxY: 10}, 2, 1)
	assert.Equal(t, Bounds{MinX: -9, MaxX: 11, MinY: 0, MaxY: 10}, b)

	// Already matching.
	in := Bounds{MinX: 0, MaxX: 4, MinY: 0, MaxY: 2}
	assert.Equal(t, in, EqualAspect(in, 2, 1))
}

func TestEqualAspect_DegeneratePadded(t *testing.T) {
	b := EqualAspect(Bounds{MinX: 5, MaxX: 5, MinY: 1, MaxY: 1}, 1, 0.5)
	assert.Equal(t, Bounds{MinX: 4.5, MaxX: 5.5, MinY: 0.5, MaxY: 1.5}, b)
}
