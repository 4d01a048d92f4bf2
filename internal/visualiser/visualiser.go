// Package visualiser runs the trackviz pipelines: check the inputs exist,
// load them, render, save and optionally display the result.
package visualiser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/trackviz/internal/config"
	"github.com/banshee-data/trackviz/internal/fsutil"
	"github.com/banshee-data/trackviz/internal/monitoring"
	"github.com/banshee-data/trackviz/internal/render"
	"github.com/banshee-data/trackviz/internal/store"
	"github.com/banshee-data/trackviz/internal/timeutil"
	"github.com/banshee-data/trackviz/internal/tracks"
	"github.com/banshee-data/trackviz/internal/viewer"
)

// DisplayFunc shows a rendered page and returns once the user is done
// with it.
type DisplayFunc func(ctx context.Context, page viewer.Page) error

// Viewer returns a DisplayFunc that serves the page on addr until ctx is
// cancelled.
func Viewer(addr string) DisplayFunc {
	return func(ctx context.Context, page viewer.Page) error {
		srv, err := viewer.NewServer(viewer.Config{Address: addr, Page: page})
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	}
}

// Options configures a Visualiser.
type Options struct {
	Config *config.VisualiserConfig
	// FS defaults to the OS filesystem.
	FS fsutil.FileSystem
	// Display is nil when nothing should be shown.
	Display DisplayFunc
	// Clock times the render step and stamps archived runs; defaults to
	// the wall clock.
	Clock timeutil.Clock
	// Out receives the "Saved visualization" line; defaults to io.Discard.
	Out io.Writer
}

// Visualiser holds the shared state of one trackviz invocation.
type Visualiser struct {
	cfg     *config.VisualiserConfig
	fs      fsutil.FileSystem
	loader  *tracks.Loader
	display DisplayFunc
	clock   timeutil.Clock
	out     io.Writer
}

// New creates a Visualiser.
func New(opts Options) *Visualiser {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Empty()
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Visualiser{
		cfg:     cfg,
		fs:      fsys,
		loader:  tracks.NewLoader(fsys),
		display: opts.Display,
		clock:   clock,
		out:     out,
	}
}

// Result describes what a pipeline produced.
type Result struct {
	Summary viewer.Summary
	// SavedPath is empty when the figure was not written to disk.
	SavedPath string
}

// TrajectoryRequest selects the optional parts of the trajectory plot.
type TrajectoryRequest struct {
	// OutputPath, when set, saves the figure as PNG.
	OutputPath string
	// Detections overlays detections.csv when it exists.
	Detections bool
	// ConfirmedOnly drops tentative track samples.
	ConfirmedOnly bool
}

// requireCSVs fails unless both simulator CSVs exist.
func (v *Visualiser) requireCSVs() (gtPath, trPath string, err error) {
	gtPath, trPath = v.cfg.GroundTruthPath(), v.cfg.TracksPath()
	for _, p := range []string{gtPath, trPath} {
		if !v.fs.Exists(p) {
			return "", "", &MissingCSVError{Dir: v.cfg.GetDataDir(), Path: p}
		}
	}
	return gtPath, trPath, nil
}

func (v *Visualiser) loadTrajectories() (gt, tr *tracks.TrajectorySet, err error) {
	gtPath, trPath, err := v.requireCSVs()
	if err != nil {
		return nil, nil, err
	}
	if gt, err = v.loader.LoadTrajectories(gtPath, tracks.GroundTruthSchema); err != nil {
		return nil, nil, err
	}
	if tr, err = v.loader.LoadTrajectories(trPath, tracks.TrackSchema); err != nil {
		return nil, nil, err
	}
	return gt, tr, nil
}

// RunTrajectories plots every ground truth and track trajectory in the
// data directory.
func (v *Visualiser) RunTrajectories(ctx context.Context, req TrajectoryRequest) (Result, error) {
	gt, tr, err := v.loadTrajectories()
	if err != nil {
		return Result{}, err
	}

	var dets []tracks.Detection
	if req.Detections {
		path := v.cfg.DetectionsPath()
		if v.fs.Exists(path) {
			if dets, err = v.loader.LoadDetections(path); err != nil {
				return Result{}, err
			}
		} else {
			monitoring.Logf("no detections at %s, plotting trajectories only", path)
		}
	}
	if req.ConfirmedOnly {
		tr = tr.Confirmed()
	}

	return v.showTrajectories(ctx, gt, tr, dets, v.cfg.GetDataDir(), req.OutputPath)
}

func (v *Visualiser) showTrajectories(ctx context.Context, gt, tr *tracks.TrajectorySet, dets []tracks.Detection, source, outPath string) (Result, error) {
	if gt.Rows()+tr.Rows() == 0 {
		monitoring.Logf("no samples in %s, the plot will be empty", source)
	}

	start := v.clock.Now()
	fig, err := render.Trajectories(gt, tr, render.TrajectoryOptions{
		WidthIn:    v.cfg.GetFigureWidthIn(),
		HeightIn:   v.cfg.GetFigureHeightIn(),
		DPI:        v.cfg.GetDPI(),
		Detections: dets,
	})
	if err != nil {
		return Result{}, fmt.Errorf("render trajectories: %w", err)
	}
	monitoring.Logf("rendered %d ground truth and %d track trajectories in %s",
		gt.Len(), tr.Len(), v.clock.Since(start))

	res := Result{Summary: viewer.TrajectorySummary(render.TrajectoryTitle, source, gt, tr, dets)}
	if outPath != "" {
		if err := fig.Save(v.fs, outPath); err != nil {
			return Result{}, err
		}
		res.SavedPath = outPath
		v.announceSaved(outPath)
	}

	if v.display == nil {
		return res, nil
	}
	png, err := fig.PNG()
	if err != nil {
		return Result{}, err
	}
	chart, err := render.TrajectoryChart(gt, tr, dets)
	if err != nil {
		return Result{}, err
	}
	if err := v.display(ctx, viewer.Page{Summary: res.Summary, PNG: png, Chart: chart}); err != nil {
		return res, err
	}
	return res, nil
}

// announceSaved reports a written figure before any display blocks.
func (v *Visualiser) announceSaved(path string) {
	fmt.Fprintf(v.out, "Saved visualization to %s\n", path)
}

// RunOverlay marks the last-frame positions on top of the image at
// imagePath, saves the figure to the output directory and displays it.
func (v *Visualiser) RunOverlay(ctx context.Context, imagePath string) (Result, error) {
	if imagePath == "" {
		return Result{}, fmt.Errorf("%w: image path", tracks.ErrMissingArgument)
	}
	if !v.fs.Exists(imagePath) {
		return Result{}, &MissingImageError{Path: imagePath}
	}
	gtPath, trPath, err := v.requireCSVs()
	if err != nil {
		return Result{}, err
	}

	gt, err := v.loader.LoadLastFrame(gtPath, tracks.GroundTruthSchema)
	if err != nil {
		return Result{}, err
	}
	tr, err := v.loader.LoadLastFrame(trPath, tracks.TrackSchema)
	if err != nil {
		return Result{}, err
	}
	if gt.Len()+tr.Len() == 0 {
		return Result{}, tracks.ErrEmptyDataset
	}

	img, format, err := render.LoadImage(v.fs, imagePath)
	if err != nil {
		return Result{}, err
	}
	name := filepath.Base(imagePath)
	monitoring.Logf("overlaying %d ground truth and %d track positions on %s (%s, %dx%d)",
		gt.Len(), tr.Len(), name, format, img.Bounds().Dx(), img.Bounds().Dy())

	start := v.clock.Now()
	fig, err := render.Overlay(img, name, gt, tr, render.OverlayOptions{
		DPI:        v.cfg.GetDPI(),
		MinWidthIn: v.cfg.GetFigureWidthIn(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("render overlay: %w", err)
	}
	monitoring.Logf("rendered overlay in %s", v.clock.Since(start))

	out := v.cfg.OverlayPath()
	if err := fig.Save(v.fs, out); err != nil {
		return Result{}, err
	}
	v.announceSaved(out)
	res := Result{
		Summary:   viewer.OverlaySummary(render.OverlayTitle(gt, tr, name), v.cfg.GetDataDir(), gt, tr),
		SavedPath: out,
	}

	if v.display == nil {
		return res, nil
	}
	png, err := fig.PNG()
	if err != nil {
		return Result{}, err
	}
	if err := v.display(ctx, viewer.Page{Summary: res.Summary, PNG: png}); err != nil {
		return res, err
	}
	return res, nil
}

// openStore opens the run archive, creating its directory.
func (v *Visualiser) openStore() (*store.Store, error) {
	path := v.cfg.GetDBPath()
	if dir := filepath.Dir(path); dir != "." {
		if err := v.fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create archive dir: %w", err)
		}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	s.SetClock(v.clock)
	return s, nil
}

// Archive copies the current simulator output into the run archive.
func (v *Visualiser) Archive(ctx context.Context, label string) (store.Run, error) {
	gt, tr, err := v.loadTrajectories()
	if err != nil {
		return store.Run{}, err
	}
	s, err := v.openStore()
	if err != nil {
		return store.Run{}, err
	}
	defer s.Close()

	return s.SaveRun(ctx, label, v.cfg.GetDataDir(), gt, tr)
}

// Runs lists archived runs, newest first.
func (v *Visualiser) Runs(ctx context.Context) ([]store.Run, error) {
	s, err := v.openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.ListRuns(ctx)
}

// DeleteRun removes an archived run. runID may be a unique prefix; the
// deleted run is returned.
func (v *Visualiser) DeleteRun(ctx context.Context, runID string) (store.Run, error) {
	if runID == "" {
		return store.Run{}, fmt.Errorf("%w: run id", tracks.ErrMissingArgument)
	}
	s, err := v.openStore()
	if err != nil {
		return store.Run{}, err
	}
	defer s.Close()

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return store.Run{}, err
	}
	if err := s.DeleteRun(ctx, run.ID); err != nil {
		return store.Run{}, err
	}
	monitoring.Logf("deleted run %s", run.ID)
	return run, nil
}

// Replay plots the trajectories of an archived run. runID may be a unique
// prefix. Without outPath the figure is saved as
// <output_dir>/replay_<label or id>.png.
func (v *Visualiser) Replay(ctx context.Context, runID, outPath string) (Result, error) {
	if runID == "" {
		return Result{}, fmt.Errorf("%w: run id", tracks.ErrMissingArgument)
	}
	s, err := v.openStore()
	if err != nil {
		return Result{}, err
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		s.Close()
		return Result{}, err
	}
	gt, tr, err := s.LoadRun(ctx, run.ID)
	s.Close()
	if err != nil {
		return Result{}, err
	}

	name := run.Label
	if name == "" {
		name = run.ID[:8]
	}
	if outPath == "" {
		outPath = filepath.Join(v.cfg.GetOutputDir(), "replay_"+fsutil.SafeFilename(name)+".png")
	}
	return v.showTrajectories(ctx, gt, tr, nil, "run "+name, outPath)
}
