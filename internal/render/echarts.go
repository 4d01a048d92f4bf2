package render

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trackviz/internal/tracks"
	"github.com/banshee-data/trackviz/internal/transform"
)

// Chart layout in pixels. The grid is pinned inside the container so the
// axis ranges can be fitted to its exact aspect; the right margin holds the
// vertical legend.
const (
	chartWidth      = 900
	chartHeight     = 820
	chartGridLeft   = 60
	chartGridRight  = 160
	chartGridTop    = 80
	chartGridBottom = 60
	chartGridWidth  = chartWidth - chartGridLeft - chartGridRight
	chartGridHeight = chartHeight - chartGridTop - chartGridBottom
	chartGridAspect = float64(chartGridWidth) / float64(chartGridHeight)
)

func px(n int) string { return fmt.Sprintf("%dpx", n) }

// TrajectoryChart renders an interactive HTML chart of the trajectories:
// zoomable, with per-line tooltips and a toggleable legend. Ground truth is
// dashed as in the static figure.
func TrajectoryChart(gt, tr *tracks.TrajectorySet, dets []tracks.Detection) ([]byte, error) {
	if gt == nil {
		gt = tracks.NewTrajectorySet()
	}
	if tr == nil {
		tr = tracks.NewTrajectorySet()
	}

	xAxis := opts.XAxis{Type: "value", Name: "x [m]", NameLocation: "middle", NameGap: 25}
	yAxis := opts.YAxis{Type: "value", Name: "y [m]", NameLocation: "middle", NameGap: 35}
	if b, ok := trajectoryBounds(gt, tr, dets); ok {
		b = transform.EqualAspect(b, chartGridAspect, 1)
		xAxis.Min, xAxis.Max = b.MinX, b.MaxX
		yAxis.Min, yAxis.Max = b.MinY, b.MaxY
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: TrajectoryTitle, Width: px(chartWidth), Height: px(chartHeight)}),
		charts.WithGridOpts(opts.Grid{
			Left:   px(chartGridLeft),
			Right:  px(chartGridRight),
			Top:    px(chartGridTop),
			Bottom: px(chartGridBottom),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    TrajectoryTitle,
			Subtitle: fmt.Sprintf("ground truth=%d tracks=%d detections=%d", gt.Len(), tr.Len(), len(dets)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Orient: "vertical", Right: "0", Top: "middle"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
	)

	colors := generateColors(gt.Len() + tr.Len())
	i := 0
	for _, t := range gt.Trajectories() {
		line.AddSeries(LineLabel("GT", t.ID), lineData(t),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Color: hexColor(colors[i])}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[i])}),
		)
		i++
	}
	for _, t := range tr.Trajectories() {
		line.AddSeries(LineLabel("TR", t.ID), lineData(t),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "solid", Color: hexColor(colors[i])}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[i])}),
		)
		i++
	}

	if len(dets) > 0 {
		scatter := charts.NewScatter()
		for _, sensor := range []tracks.Sensor{tracks.SensorCamera, tracks.SensorRadar} {
			var data []opts.ScatterData
			for _, d := range dets {
				if d.Sensor != sensor {
					continue
				}
				x, y := d.Position()
				data = append(data, opts.ScatterData{Value: []interface{}{x, y}})
			}
			if len(data) == 0 {
				continue
			}
			scatter.AddSeries(string(sensor)+" detections", data,
				charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
				charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}),
			)
		}
		line.Overlap(scatter)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func lineData(t *tracks.Trajectory) []opts.LineData {
	data := make([]opts.LineData, len(t.Samples))
	for i, s := range t.Samples {
		data[i] = opts.LineData{Value: []interface{}{s.X, s.Y}, Name: fmt.Sprintf("t=%.2f", s.Time)}
	}
	return data
}
