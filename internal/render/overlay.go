package render

import (
	"fmt"
	"image"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/trackviz/internal/tracks"
	"github.com/banshee-data/trackviz/internal/transform"
)

// Dataset tells ground truth markers from track markers.
type Dataset string

const (
	DatasetGroundTruth Dataset = "GT"
	DatasetTracks      Dataset = "TR"
)

// Marker is one last-frame position placed on the image.
type Marker struct {
	Dataset Dataset
	ID      int
	// PX, PY are pixel coordinates: origin top left, y down.
	PX, PY float64
	// Label is set only on the first marker of each dataset.
	Label string
}

// OverlayLayout maps the last-frame positions of both datasets onto a
// w x h image with one shared transform fitted to all points.
func OverlayLayout(gt, tr *tracks.LastFrame, w, h int) ([]Marker, transform.PixelTransform, error) {
	var xs, ys []float64
	for _, lf := range []*tracks.LastFrame{gt, tr} {
		if lf == nil {
			continue
		}
		lxs, lys := lf.XY()
		xs, ys = append(xs, lxs...), append(ys, lys...)
	}
	if len(xs) == 0 {
		return nil, transform.PixelTransform{}, tracks.ErrEmptyDataset
	}
	b, err := transform.BoundsOf(xs, ys)
	if err != nil {
		return nil, transform.PixelTransform{}, err
	}
	pt := transform.NewPixelTransform(b, w, h)

	var markers []Marker
	place := func(ds Dataset, lf *tracks.LastFrame) {
		if lf == nil {
			return
		}
		for i, p := range lf.Positions {
			m := Marker{Dataset: ds, ID: p.ID}
			m.PX, m.PY = pt.Apply(p.X, p.Y)
			if i == 0 {
				m.Label = LineLabel(string(ds), p.ID)
			}
			markers = append(markers, m)
		}
	}
	place(DatasetGroundTruth, gt)
	place(DatasetTracks, tr)
	return markers, pt, nil
}

// OverlayTitle names the frame shown. The track file's last time wins
// over the ground truth's; without either the time is omitted.
func OverlayTitle(gt, tr *tracks.LastFrame, imageName string) string {
	switch {
	case tr != nil && tr.HasTime:
		return fmt.Sprintf("Tracks at t=%.2fs over %s", tr.Time, imageName)
	case gt != nil && gt.HasTime:
		return fmt.Sprintf("Tracks at t=%.2fs over %s", gt.Time, imageName)
	default:
		return "Tracks over " + imageName
	}
}

// OverlayOptions controls the overlay figure.
type OverlayOptions struct {
	DPI int
	// MinWidthIn keeps small images legible; the image is scaled up to it.
	MinWidthIn float64
}

var overlayGlyphs = map[Dataset]draw.GlyphDrawer{
	DatasetGroundTruth: draw.CircleGlyph{},
	DatasetTracks:      draw.CrossGlyph{},
}

var overlayRadius = map[Dataset]vg.Length{
	DatasetGroundTruth: vg.Points(4),
	DatasetTracks:      vg.Points(5),
}

// Overlay draws img across its pixel extent with a circle per ground truth
// position and a cross per track position at the last frame.
func Overlay(img image.Image, imageName string, gt, tr *tracks.LastFrame, opts OverlayOptions) (*Figure, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image %s has no pixels", imageName)
	}

	markers, _, err := OverlayLayout(gt, tr, w, h)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = OverlayTitle(gt, tr, imageName)
	p.Add(plotter.NewImage(img, 0, 0, float64(w), float64(h)))
	p.HideAxes()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Min, p.X.Max = 0, float64(w)
	p.Y.Min, p.Y.Max = 0, float64(h)

	colors := generateColors(len(markers))
	for i, m := range markers {
		// Plot y grows upwards while pixel rows grow downwards.
		sc, err := plotter.NewScatter(plotter.XYs{{X: m.PX, Y: float64(h) - m.PY}})
		if err != nil {
			return nil, fmt.Errorf("marker %s %d: %w", m.Dataset, m.ID, err)
		}
		sc.Color = colors[i]
		sc.Shape = overlayGlyphs[m.Dataset]
		sc.Radius = overlayRadius[m.Dataset]
		p.Add(sc)
		if m.Label != "" {
			p.Legend.Add(m.Label, sc)
		}
	}
	p.Legend.Top = true

	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 150
	}
	widthIn := float64(w) / float64(dpi)
	if widthIn < opts.MinWidthIn {
		widthIn = opts.MinWidthIn
	}
	// Room for the title above the image.
	heightIn := widthIn*float64(h)/float64(w) + 0.4

	return &Figure{
		Plot:   p,
		Width:  vg.Length(widthIn) * vg.Inch,
		Height: vg.Length(heightIn) * vg.Inch,
		DPI:    dpi,
	}, nil
}
