package viewer

import (
	"fmt"

	"github.com/banshee-data/trackviz/internal/tracks"
	"github.com/banshee-data/trackviz/internal/transform"
)

// Modes reported in a Summary.
const (
	ModeTrajectories = "trajectories"
	ModeOverlay      = "overlay"
)

// Summary is the JSON document served at /api/summary.
type Summary struct {
	Mode        string   `json:"mode"`
	Title       string   `json:"title"`
	Source      string   `json:"source,omitempty"`
	GroundTruth int      `json:"ground_truth"`
	Tracks      int      `json:"tracks"`
	Detections  int      `json:"detections,omitempty"`
	LastTime    *float64 `json:"last_time,omitempty"`
	Bounds      *Bounds  `json:"bounds,omitempty"`
}

// Bounds is the data extent in world coordinates.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// LastTimeText formats LastTime for the index page, or returns "".
func (s Summary) LastTimeText() string {
	if s.LastTime == nil {
		return ""
	}
	return fmt.Sprintf("%.2f s", *s.LastTime)
}

// TrajectorySummary counts trajectories (not samples) per dataset.
func TrajectorySummary(title, source string, gt, tr *tracks.TrajectorySet, dets []tracks.Detection) Summary {
	s := Summary{
		Mode:       ModeTrajectories,
		Title:      title,
		Source:     source,
		Detections: len(dets),
	}
	var xs, ys []float64
	for _, set := range []*tracks.TrajectorySet{gt, tr} {
		if set == nil {
			continue
		}
		sx, sy := set.XY()
		xs, ys = append(xs, sx...), append(ys, sy...)
	}
	if gt != nil {
		s.GroundTruth = gt.Len()
	}
	if tr != nil {
		s.Tracks = tr.Len()
		if t, ok := tr.MaxTime(); ok {
			s.LastTime = &t
		}
	}
	if s.LastTime == nil && gt != nil {
		if t, ok := gt.MaxTime(); ok {
			s.LastTime = &t
		}
	}
	s.Bounds = boundsOf(xs, ys)
	return s
}

// OverlaySummary counts last-frame positions per dataset.
func OverlaySummary(title, source string, gt, tr *tracks.LastFrame) Summary {
	s := Summary{Mode: ModeOverlay, Title: title, Source: source}
	var xs, ys []float64
	for _, lf := range []*tracks.LastFrame{tr, gt} {
		if lf == nil {
			continue
		}
		lx, ly := lf.XY()
		xs, ys = append(xs, lx...), append(ys, ly...)
		if lf.HasTime && s.LastTime == nil {
			t := lf.Time
			s.LastTime = &t
		}
	}
	if gt != nil {
		s.GroundTruth = gt.Len()
	}
	if tr != nil {
		s.Tracks = tr.Len()
	}
	s.Bounds = boundsOf(xs, ys)
	return s
}

func boundsOf(xs, ys []float64) *Bounds {
	b, err := transform.BoundsOf(xs, ys)
	if err != nil {
		return nil
	}
	return &Bounds{MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY}
}
