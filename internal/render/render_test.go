package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/trackviz/internal/fsutil"
	"github.com/banshee-data/trackviz/internal/monitoring"
	"github.com/banshee-data/trackviz/internal/testutil"
	"github.com/banshee-data/trackviz/internal/tracks"
	"github.com/banshee-data/trackviz/internal/transform"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func loadLastFrames(t *testing.T, gtCSV, trCSV string) (*tracks.LastFrame, *tracks.LastFrame) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("/gt.csv", gtCSV)
	mfs.AddFile("/tr.csv", trCSV)
	l := tracks.NewLoader(mfs)

	gt, err := l.LoadLastFrame("/gt.csv", tracks.GroundTruthSchema)
	require.NoError(t, err)
	tr, err := l.LoadLastFrame("/tr.csv", tracks.TrackSchema)
	require.NoError(t, err)
	return gt, tr
}

func sampleSets(t *testing.T) (*tracks.TrajectorySet, *tracks.TrajectorySet) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("/gt.csv", "obj_id,time,x,y\n1,0,0,0\n1,1,10,1\n2,0,0,5\n2,1,10,6\n")
	mfs.AddFile("/tr.csv", "track_id,time,x,y\n1,0,0.2,0.1\n1,1,9.8,1.1\n3,1,5,5\n")
	l := tracks.NewLoader(mfs)

	gt, err := l.LoadTrajectories("/gt.csv", tracks.GroundTruthSchema)
	require.NoError(t, err)
	tr, err := l.LoadTrajectories("/tr.csv", tracks.TrackSchema)
	require.NoError(t, err)
	return gt, tr
}

func TestOverlayLayout_CombinedBounds(t *testing.T) {
	gt, tr := loadLastFrames(t, "obj_id,time,x,y\n1,3,0,0\n", "track_id,time,x,y\n1,3,10,10\n")

	markers, pt, err := OverlayLayout(gt, tr, 100, 100)
	require.NoError(t, err)
	require.Len(t, markers, 2)

	assert.Equal(t, Marker{Dataset: DatasetGroundTruth, ID: 1, PX: 0, PY: 100, Label: "GT 1"}, markers[0])
	assert.Equal(t, Marker{Dataset: DatasetTracks, ID: 1, PX: 100, PY: 0, Label: "TR 1"}, markers[1])
	assert.Equal(t, 100.0, pt.Width)
}

func TestOverlayLayout_CoincidentPointsCentre(t *testing.T) {
	gt, tr := loadLastFrames(t, "obj_id,time,x,y\n1,3,4,4\n", "track_id,time,x,y\n9,3,4,4\n")

	markers, _, err := OverlayLayout(gt, tr, 100, 100)
	require.NoError(t, err)
	for _, m := range markers {
		assert.Equal(t, 50.0, m.PX)
		assert.Equal(t, 50.0, m.PY)
	}
}

func TestOverlayLayout_LabelsOnlyFirstMarker(t *testing.T) {
	gt, tr := loadLastFrames(t,
		"obj_id,time,x,y\n1,1,0,0\n2,1,1,1\n",
		"track_id,time,x,y\n5,1,0,1\n6,1,1,0\n7,1,0.5,0.5\n")

	markers, _, err := OverlayLayout(gt, tr, 40, 20)
	require.NoError(t, err)
	require.Len(t, markers, 5)

	var labels []string
	for _, m := range markers {
		labels = append(labels, m.Label)
	}
	assert.Equal(t, []string{"GT 1", "", "TR 5", "", ""}, labels)
	assert.Equal(t, Marker{Dataset: DatasetTracks, ID: 7, PX: 20, PY: 10}, markers[4])
}

func TestOverlayLayout_OneDatasetEmpty(t *testing.T) {
	gt, tr := loadLastFrames(t, "obj_id,time,x,y\n", "track_id,time,x,y\n2,1,0,0\n2,0,9,9\n")

	markers, _, err := OverlayLayout(gt, tr, 100, 60)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, 50.0, markers[0].PX)
	assert.Equal(t, 30.0, markers[0].PY)
}

func TestOverlayLayout_Empty(t *testing.T) {
	gt, tr := loadLastFrames(t, "obj_id,time,x,y\n", "")

	_, _, err := OverlayLayout(gt, tr, 100, 100)
	assert.True(t, errors.Is(err, tracks.ErrEmptyDataset))

	_, _, err = OverlayLayout(nil, nil, 100, 100)
	assert.True(t, errors.Is(err, tracks.ErrEmptyDataset))
}

func TestOverlayTitle(t *testing.T) {
	gt := &tracks.LastFrame{Time: 1.234, HasTime: true}
	tr := &tracks.LastFrame{Time: 9.876, HasTime: true}

	assert.Equal(t, "Tracks at t=9.88s over road.png", OverlayTitle(gt, tr, "road.png"))
	assert.Equal(t, "Tracks at t=1.23s over road.png", OverlayTitle(gt, &tracks.LastFrame{}, "road.png"))
	assert.Equal(t, "Tracks over road.png", OverlayTitle(&tracks.LastFrame{}, nil, "road.png"))
}

func TestOverlay_RendersPNG(t *testing.T) {
	gt, tr := loadLastFrames(t, "obj_id,time,x,y\n1,3,0,0\n2,3,5,2\n", "track_id,time,x,y\n1,3,10,10\n")
	bg := image.NewRGBA(image.Rect(0, 0, 300, 150))
	for x := 0; x < 300; x++ {
		bg.Set(x, 75, color.RGBA{R: 255, A: 255})
	}

	fig, err := Overlay(bg, "road.png", gt, tr, OverlayOptions{DPI: 100, MinWidthIn: 4})
	require.NoError(t, err)
	assert.Equal(t, "Tracks at t=3.00s over road.png", fig.Plot.Title.Text)
	assert.Equal(t, 0.0, fig.Plot.X.Min)
	assert.Equal(t, 300.0, fig.Plot.X.Max)
	assert.Equal(t, 150.0, fig.Plot.Y.Max)

	data, err := fig.PNG()
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width, "4in at 100dpi")
	assert.Greater(t, cfg.Height, 200)
}

func TestOverlayGlyphs(t *testing.T) {
	assert.IsType(t, draw.CircleGlyph{}, overlayGlyphs[DatasetGroundTruth])
	assert.IsType(t, draw.CrossGlyph{}, overlayGlyphs[DatasetTracks])
	assert.Less(t, overlayRadius[DatasetGroundTruth], overlayRadius[DatasetTracks])
}

func TestOverlay_EmptyImage(t *testing.T) {
	gt, tr := loadLastFrames(t, "obj_id,time,x,y\n1,3,0,0\n", "")
	_, err := Overlay(image.NewRGBA(image.Rect(0, 0, 0, 0)), "blank.png", gt, tr, OverlayOptions{})
	assert.Error(t, err)
}

func TestTrajectories_EqualAspect(t *testing.T) {
	gt, tr := sampleSets(t)

	fig, err := Trajectories(gt, tr, TrajectoryOptions{WidthIn: 8, HeightIn: 4, DPI: 72})
	require.NoError(t, err)
	assert.Equal(t, TrajectoryTitle, fig.Plot.Title.Text)
	assert.Equal(t, "x [m]", fig.Plot.X.Label.Text)
	assert.Equal(t, "y [m]", fig.Plot.Y.Label.Text)

	assert.InEpsilon(t, 1.0, scaleRatio(fig), 0.01)
	assert.LessOrEqual(t, fig.Plot.X.Min, 0.0)
	assert.GreaterOrEqual(t, fig.Plot.X.Max, 10.0)

	data, err := fig.PNG()
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 576, cfg.Width)
	assert.Equal(t, 288, cfg.Height)
}

// scaleRatio is the x scale over the y scale of the drawn data area, in
// canvas length per metre.
func scaleRatio(fig *Figure) float64 {
	da := fig.Plot.DataCanvas(draw.New(vgimg.New(fig.Width, fig.Height)))
	xScale := float64(da.Max.X-da.Min.X) / (fig.Plot.X.Max - fig.Plot.X.Min)
	yScale := float64(da.Max.Y-da.Min.Y) / (fig.Plot.Y.Max - fig.Plot.Y.Min)
	return xScale / yScale
}

func TestTrajectories_EqualScaleInDataArea(t *testing.T) {
	gt := tracks.NewTrajectorySet()
	gt.Append(1, tracks.Sample{Time: 0, X: 0, Y: 0})
	gt.Append(1, tracks.Sample{Time: 1, X: 100, Y: 1})
	tr := tracks.NewTrajectorySet()
	tr.Append(7, tracks.Sample{Time: 0, X: 0, Y: 40})
	tr.Append(7, tracks.Sample{Time: 1, X: 2, Y: 42})

	tests := []struct {
		name          string
		gt, tr        *tracks.TrajectorySet
		width, height float64
	}{
		{name: "wide path default canvas", gt: gt, width: 10, height: 7},
		{name: "wide path short canvas", gt: gt, width: 10, height: 3},
		{name: "tall path wide canvas", tr: tr, width: 10, height: 3},
		{name: "both tall canvas", gt: gt, tr: tr, width: 4, height: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fig, err := Trajectories(tt.gt, tt.tr, TrajectoryOptions{WidthIn: tt.width, HeightIn: tt.height, DPI: 72})
			require.NoError(t, err)
			assert.InEpsilon(t, 1.0, scaleRatio(fig), 0.01)
		})
	}
}

func TestTrajectories_WithDetectionsAndSingleSample(t *testing.T) {
	gt, tr := sampleSets(t)
	dets := []tracks.Detection{
		{Sensor: tracks.SensorCamera, X: 1, Y: 1},
		{Sensor: tracks.SensorRadar, X: 20, Y: 0},
	}

	fig, err := Trajectories(gt, tr, TrajectoryOptions{Detections: dets})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fig.Plot.X.Max, 20.0, "radar detection widens the view")
	assert.Equal(t, 150, fig.DPI)

	_, err = fig.PNG()
	require.NoError(t, err)
}

func TestTrajectoryBounds(t *testing.T) {
	gt, tr := sampleSets(t)
	empty := tracks.NewTrajectorySet()

	b, ok := trajectoryBounds(gt, empty, nil)
	require.True(t, ok)
	assert.Equal(t, transform.Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 6}, b)

	b, ok = trajectoryBounds(empty, tr, []tracks.Detection{{Sensor: tracks.SensorCamera, X: -3, Y: 9}})
	require.True(t, ok)
	assert.Equal(t, transform.Bounds{MinX: -3, MaxX: 9.8, MinY: 0.1, MaxY: 9}, b)

	_, ok = trajectoryBounds(empty, empty, nil)
	assert.False(t, ok)
}

func TestTrajectories_Empty(t *testing.T) {
	fig, err := Trajectories(nil, nil, TrajectoryOptions{})
	require.NoError(t, err)
	_, err = fig.PNG()
	require.NoError(t, err)
}

func TestFigure_Save(t *testing.T) {
	gt, tr := sampleSets(t)
	fig, err := Trajectories(gt, tr, TrajectoryOptions{WidthIn: 3, HeightIn: 2, DPI: 50})
	require.NoError(t, err)

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fig.Save(mfs, "/out/plots/trajectories.png"))
	assert.True(t, mfs.Exists("/out/plots"))

	data, ok := mfs.Bytes("/out/plots/trajectories.png")
	require.True(t, ok)
	testutil.AssertPNG(t, data, 150, 100)
}

func TestLoadImage(t *testing.T) {
	mfs := testutil.NewMemoryFS(map[string]string{
		"/img/road.png":  string(testutil.EncodePNG(t, 12, 7)),
		"/img/notes.txt": "not an image",
	})

	img, format, err := LoadImage(mfs, "/img/road.png")
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 7, img.Bounds().Dy())

	_, _, err = LoadImage(mfs, "/img/missing.png")
	assert.True(t, errors.Is(err, tracks.ErrMissingFile))

	_, _, err = LoadImage(mfs, "/img/notes.txt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, tracks.ErrMissingFile))
}

func TestTrajectoryChart(t *testing.T) {
	gt, tr := sampleSets(t)
	dets := []tracks.Detection{{Sensor: tracks.SensorCamera, X: 1, Y: 2}}

	html, err := TrajectoryChart(gt, tr, dets)
	require.NoError(t, err)

	page := string(html)
	assert.Contains(t, page, TrajectoryTitle)
	assert.Contains(t, page, "GT 1")
	assert.Contains(t, page, "GT 2")
	assert.Contains(t, page, "TR 3")
	assert.Contains(t, page, "dashed")
	assert.Contains(t, page, "camera detections")
	assert.Contains(t, page, `"left":"60px"`)
	assert.Contains(t, page, `"right":"160px"`)
}

func TestTrajectoryChart_GridIsSquare(t *testing.T) {
	assert.Equal(t, chartGridWidth, chartGridHeight)
	assert.InDelta(t, 1.0, chartGridAspect, 1e-12)
}

func TestPalette(t *testing.T) {
	assert.Nil(t, generateColors(0))
	colors := generateColors(3)
	require.Len(t, colors, 3)
	assert.NotEqual(t, colors[0], colors[1])

	assert.Equal(t, "#ff0000", hexColor(color.RGBA{R: 255, A: 255}))
	assert.Equal(t, "#0a0b0c", hexColor(color.RGBA{R: 10, G: 11, B: 12, A: 255}))
}
