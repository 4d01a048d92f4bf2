package render

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/trackviz/internal/tracks"
	"github.com/banshee-data/trackviz/internal/transform"
)

// TrajectoryTitle is the title of the trajectory figure and chart.
const TrajectoryTitle = "Ground Truth vs Tracks (top view)"

// groundTruthDashes is the dash pattern that tells ground truth lines
// apart from the solid track lines.
var groundTruthDashes = []vg.Length{vg.Points(6), vg.Points(3)}

// TrajectoryOptions controls the trajectory figure.
type TrajectoryOptions struct {
	WidthIn  float64
	HeightIn float64
	DPI      int
	// Detections, when non-empty, are drawn as small markers under the lines.
	Detections []tracks.Detection
}

func (o TrajectoryOptions) size() (w, h vg.Length, dpi int) {
	wi, hi, dpi := o.WidthIn, o.HeightIn, o.DPI
	if wi <= 0 {
		wi = 10
	}
	if hi <= 0 {
		hi = 7
	}
	if dpi <= 0 {
		dpi = 150
	}
	return vg.Length(wi) * vg.Inch, vg.Length(hi) * vg.Inch, dpi
}

// LineLabel returns the legend label of a ground truth ("GT") or track
// ("TR") line.
func LineLabel(prefix string, id int) string {
	return fmt.Sprintf("%s %d", prefix, id)
}

// Trajectories draws one dashed line per ground truth object and one solid
// line per track, on equally scaled axes with a grid and legend.
func Trajectories(gt, tr *tracks.TrajectorySet, opts TrajectoryOptions) (*Figure, error) {
	if gt == nil {
		gt = tracks.NewTrajectorySet()
	}
	if tr == nil {
		tr = tracks.NewTrajectorySet()
	}
	w, h, dpi := opts.size()

	p := plot.New()
	p.Title.Text = TrajectoryTitle
	p.X.Label.Text = "x [m]"
	p.Y.Label.Text = "y [m]"
	p.Add(plotter.NewGrid())

	if err := addDetections(p, opts.Detections); err != nil {
		return nil, err
	}

	colors := generateColors(gt.Len() + tr.Len())
	i := 0
	for _, t := range gt.Trajectories() {
		if err := addTrajectory(p, t, LineLabel("GT", t.ID), colors[i], groundTruthDashes); err != nil {
			return nil, err
		}
		i++
	}
	for _, t := range tr.Trajectories() {
		if err := addTrajectory(p, t, LineLabel("TR", t.ID), colors[i], nil); err != nil {
			return nil, err
		}
		i++
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if b, ok := trajectoryBounds(gt, tr, opts.Detections); ok {
		fitEqualAspect(p, b, w, h)
	}

	return &Figure{Plot: p, Width: w, Height: h, DPI: dpi}, nil
}

// fitEqualAspect sets the axis ranges of p around b so that one metre spans
// the same length on both axes of the data area. The title, axis labels and
// ticks shrink that area below w x h, and tick label widths depend on the
// ranges, so the fit is refined against the measured data canvas.
func fitEqualAspect(p *plot.Plot, b transform.Bounds, w, h vg.Length) {
	c := draw.New(vgimg.New(w, h))
	aspect := float64(w / h)
	for range 4 {
		fitted := transform.EqualAspect(b, aspect, 1)
		p.X.Min, p.X.Max = fitted.MinX, fitted.MaxX
		p.Y.Min, p.Y.Max = fitted.MinY, fitted.MaxY

		da := p.DataCanvas(c)
		dw, dh := float64(da.Max.X-da.Min.X), float64(da.Max.Y-da.Min.Y)
		if dw <= 0 || dh <= 0 {
			return
		}
		measured := dw / dh
		if math.Abs(measured-aspect) <= 1e-4*aspect {
			return
		}
		aspect = measured
	}
}

func addTrajectory(p *plot.Plot, t *tracks.Trajectory, label string, c color.Color, dashes []vg.Length) error {
	if len(t.Samples) == 0 {
		return nil
	}
	pts := make(plotter.XYs, len(t.Samples))
	for i, s := range t.Samples {
		pts[i].X, pts[i].Y = s.X, s.Y
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	line.Dashes = dashes
	p.Add(line)
	p.Legend.Add(label, line)

	// A single sample has no segment to draw, so mark it.
	if len(pts) == 1 {
		dot, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		dot.Color = c
		dot.Shape = draw.CircleGlyph{}
		dot.Radius = vg.Points(2)
		p.Add(dot)
	}
	return nil
}

var detectionStyles = map[tracks.Sensor]draw.GlyphStyle{
	tracks.SensorCamera: {Color: color.Gray{Y: 150}, Shape: draw.TriangleGlyph{}, Radius: vg.Points(1.5)},
	tracks.SensorRadar:  {Color: color.Gray{Y: 100}, Shape: draw.BoxGlyph{}, Radius: vg.Points(1.5)},
}

func addDetections(p *plot.Plot, dets []tracks.Detection) error {
	if len(dets) == 0 {
		return nil
	}
	bySensor := make(map[tracks.Sensor]plotter.XYs)
	for _, d := range dets {
		x, y := d.Position()
		bySensor[d.Sensor] = append(bySensor[d.Sensor], plotter.XY{X: x, Y: y})
	}
	for _, sensor := range []tracks.Sensor{tracks.SensorCamera, tracks.SensorRadar} {
		pts := bySensor[sensor]
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("%s detections: %w", sensor, err)
		}
		sc.GlyphStyle = detectionStyles[sensor]
		p.Add(sc)
		p.Legend.Add(string(sensor)+" detections", sc)
	}
	return nil
}

// trajectoryBounds is the union of the ground truth, track and detection
// extents; ok is false when all three are empty.
func trajectoryBounds(gt, tr *tracks.TrajectorySet, dets []tracks.Detection) (b transform.Bounds, ok bool) {
	add := func(xs, ys []float64) {
		nb, err := transform.BoundsOf(xs, ys)
		if err != nil {
			return
		}
		if ok {
			b = b.Union(nb)
		} else {
			b, ok = nb, true
		}
	}
	add(gt.XY())
	add(tr.XY())

	dxs, dys := make([]float64, len(dets)), make([]float64, len(dets))
	for i, d := range dets {
		dxs[i], dys[i] = d.Position()
	}
	add(dxs, dys)
	return b, ok
}
