// Package tracks loads the ground-truth, track and detection CSV files
// written by the tracking simulator.
//
// Two views are offered over the same rows: full trajectories keyed by
// identifier in first-seen order, and the positions present at the
// file's last frame (the maximum time value).
package tracks

import "math"

// Schema names the identifier column of a CSV file. The time, x and y
// columns are fixed.
type Schema struct {
	IDField string
}

var (
	// GroundTruthSchema describes ground_truth.csv.
	GroundTruthSchema = Schema{IDField: "obj_id"}
	// TrackSchema describes tracks.csv.
	TrackSchema = Schema{IDField: "track_id"}
)

// Column names shared by every file.
const (
	FieldTime      = "time"
	FieldX         = "x"
	FieldY         = "y"
	FieldConfirmed = "confirmed"
	FieldSensor    = "sensor"
	FieldZ2        = "z2"
)

// Sample is one row of a trajectory.
type Sample struct {
	Time float64
	X    float64
	Y    float64
	// Tentative is set for track rows whose confirmed column is 0. Files
	// without a confirmed column produce only non-tentative samples.
	Tentative bool
}

// Trajectory is the ordered sample sequence of one identifier.
type Trajectory struct {
	ID      int
	Samples []Sample
}

// XY returns the x and y values as parallel slices.
func (t *Trajectory) XY() (xs, ys []float64) {
	xs = make([]float64, len(t.Samples))
	ys = make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		xs[i], ys[i] = s.X, s.Y
	}
	return xs, ys
}

// TrajectorySet holds trajectories in the order their identifiers were
// first seen.
type TrajectorySet struct {
	trajectories []*Trajectory
	index        map[int]int
}

// NewTrajectorySet returns an empty set.
func NewTrajectorySet() *TrajectorySet {
	return &TrajectorySet{index: make(map[int]int)}
}

// Append adds s to the trajectory for id, creating it on first sight.
func (ts *TrajectorySet) Append(id int, s Sample) {
	i, ok := ts.index[id]
	if !ok {
		i = len(ts.trajectories)
		ts.index[id] = i
		ts.trajectories = append(ts.trajectories, &Trajectory{ID: id})
	}
	ts.trajectories[i].Samples = append(ts.trajectories[i].Samples, s)
}

// Trajectories returns the trajectories in first-seen order.
func (ts *TrajectorySet) Trajectories() []*Trajectory {
	return ts.trajectories
}

// Get returns the trajectory for id.
func (ts *TrajectorySet) Get(id int) (*Trajectory, bool) {
	i, ok := ts.index[id]
	if !ok {
		return nil, false
	}
	return ts.trajectories[i], true
}

// Len returns the number of distinct identifiers.
func (ts *TrajectorySet) Len() int {
	return len(ts.trajectories)
}

// Rows returns the total number of samples across all trajectories.
func (ts *TrajectorySet) Rows() int {
	n := 0
	for _, t := range ts.trajectories {
		n += len(t.Samples)
	}
	return n
}

// XY returns every sample coordinate in the set.
func (ts *TrajectorySet) XY() (xs, ys []float64) {
	n := ts.Rows()
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)
	for _, t := range ts.trajectories {
		for _, s := range t.Samples {
			xs = append(xs, s.X)
			ys = append(ys, s.Y)
		}
	}
	return xs, ys
}

// MaxTime returns the largest sample time, or false for an empty set.
func (ts *TrajectorySet) MaxTime() (float64, bool) {
	maxT, seen := math.Inf(-1), false
	for _, t := range ts.trajectories {
		for _, s := range t.Samples {
			if !seen || s.Time > maxT {
				maxT, seen = s.Time, true
			}
		}
	}
	return maxT, seen
}

// Filter returns a new set holding only the samples keep accepts.
// Identifiers left without samples are dropped.
func (ts *TrajectorySet) Filter(keep func(Sample) bool) *TrajectorySet {
	out := NewTrajectorySet()
	for _, t := range ts.trajectories {
		for _, s := range t.Samples {
			if keep(s) {
				out.Append(t.ID, s)
			}
		}
	}
	return out
}

// Confirmed drops tentative samples.
func (ts *TrajectorySet) Confirmed() *TrajectorySet {
	return ts.Filter(func(s Sample) bool { return !s.Tentative })
}

// Position is an identifier's location at the last frame.
type Position struct {
	ID int
	X  float64
	Y  float64
}

// LastFrame holds the positions observed at a file's maximum time.
type LastFrame struct {
	// Time is the maximum time seen; only meaningful when HasTime is set.
	Time    float64
	HasTime bool
	// Positions are in first-seen order within the last frame.
	Positions []Position

	index map[int]int
}

func newLastFrame() *LastFrame {
	return &LastFrame{index: make(map[int]int)}
}

// observe folds one row into the frame. A later time discards the
// positions collected so far; an equal time adds to them, overwriting a
// repeated identifier in place.
func (lf *LastFrame) observe(t float64, p Position) {
	if !lf.HasTime || t > lf.Time {
		lf.Time, lf.HasTime = t, true
		lf.Positions = lf.Positions[:0]
		clear(lf.index)
	}
	if t != lf.Time {
		return
	}
	if i, ok := lf.index[p.ID]; ok {
		lf.Positions[i] = p
		return
	}
	lf.index[p.ID] = len(lf.Positions)
	lf.Positions = append(lf.Positions, p)
}

// Len returns the number of positions.
func (lf *LastFrame) Len() int {
	return len(lf.Positions)
}

// XY returns the position coordinates as parallel slices.
func (lf *LastFrame) XY() (xs, ys []float64) {
	xs = make([]float64, len(lf.Positions))
	ys = make([]float64, len(lf.Positions))
	for i, p := range lf.Positions {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

// Sensor identifies the simulated sensor behind a detection.
type Sensor string

const (
	SensorCamera Sensor = "camera"
	SensorRadar  Sensor = "radar"
)

// Detection is one row of detections.csv. Camera rows carry a cartesian
// (x, y) measurement. Radar rows carry range and bearing in the x and y
// columns and the radial velocity in z2.
type Detection struct {
	Time   float64
	Sensor Sensor
	X      float64
	Y      float64
	Z2     float64
}

// Position returns the detection in cartesian world coordinates.
func (d Detection) Position() (x, y float64) {
	if d.Sensor == SensorRadar {
		return d.X * math.Cos(d.Y), d.X * math.Sin(d.Y)
	}
	return d.X, d.Y
}
