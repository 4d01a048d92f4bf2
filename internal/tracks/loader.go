package tracks

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/banshee-data/trackviz/internal/fsutil"
	"github.com/banshee-data/trackviz/internal/monitoring"
)

// Loader reads simulator CSV files. The zero value reads from the OS
// filesystem.
type Loader struct {
	FS fsutil.FileSystem
}

// NewLoader returns a Loader backed by fsys, or the OS filesystem when
// fsys is nil.
func NewLoader(fsys fsutil.FileSystem) *Loader {
	return &Loader{FS: fsys}
}

func (l *Loader) fs() fsutil.FileSystem {
	if l == nil || l.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return l.FS
}

// LoadTrajectories groups every row of path by identifier, preserving row
// order within each trajectory and first-seen order across them.
func (l *Loader) LoadTrajectories(path string, schema Schema) (*TrajectorySet, error) {
	set := NewTrajectorySet()
	err := l.scan(path, []string{schema.IDField, FieldTime, FieldX, FieldY}, func(r *row) error {
		id, err := r.intField(schema.IDField)
		if err != nil {
			return err
		}
		s, err := r.sample()
		if err != nil {
			return err
		}
		if r.has(FieldConfirmed) {
			confirmed, err := r.intField(FieldConfirmed)
			if err != nil {
				return err
			}
			s.Tentative = confirmed == 0
		}
		set.Append(id, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.Logf("loaded %d rows for %d ids from %s", set.Rows(), set.Len(), path)
	return set, nil
}

// LoadLastFrame returns the positions of path whose time equals the
// file-wide maximum. Rows at earlier times are discarded as soon as a
// later time is seen.
func (l *Loader) LoadLastFrame(path string, schema Schema) (*LastFrame, error) {
	lf := newLastFrame()
	err := l.scan(path, []string{schema.IDField, FieldTime, FieldX, FieldY}, func(r *row) error {
		t, err := r.floatField(FieldTime)
		if err != nil {
			return err
		}
		// Rows before the running maximum are skipped without parsing the
		// remaining fields.
		if lf.HasTime && t < lf.Time {
			return nil
		}
		id, err := r.intField(schema.IDField)
		if err != nil {
			return err
		}
		x, err := r.floatField(FieldX)
		if err != nil {
			return err
		}
		y, err := r.floatField(FieldY)
		if err != nil {
			return err
		}
		lf.observe(t, Position{ID: id, X: x, Y: y})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lf, nil
}

// LoadDetections reads detections.csv.
func (l *Loader) LoadDetections(path string) ([]Detection, error) {
	var dets []Detection
	err := l.scan(path, []string{FieldTime, FieldSensor, FieldX, FieldY}, func(r *row) error {
		s, err := r.sample()
		if err != nil {
			return err
		}
		d := Detection{Time: s.Time, Sensor: Sensor(strings.ToLower(r.str(FieldSensor))), X: s.X, Y: s.Y}
		if r.has(FieldZ2) {
			if d.Z2, err = r.floatField(FieldZ2); err != nil {
				return err
			}
		}
		dets = append(dets, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dets, nil
}

// scan opens path, resolves the header and calls fn for each data row.
// The file is closed before scan returns.
func (l *Loader) scan(path string, required []string, fn func(*row) error) error {
	f, err := l.fs().Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return &RowError{Path: path, Line: 1, Field: name}
		}
	}

	r := &row{path: path, cols: cols}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		r.line, _ = cr.FieldPos(0)
		r.rec = rec
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
}

// row gives typed access to the current record by column name.
type row struct {
	path string
	line int
	cols map[string]int
	rec  []string
}

func (r *row) has(field string) bool {
	_, ok := r.cols[field]
	return ok
}

func (r *row) str(field string) string {
	i, ok := r.cols[field]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r *row) raw(field string) (string, error) {
	i, ok := r.cols[field]
	if !ok || i >= len(r.rec) {
		return "", &RowError{Path: r.path, Line: r.line, Field: field}
	}
	return strings.TrimSpace(r.rec[i]), nil
}

func (r *row) floatField(field string) (float64, error) {
	v, err := r.raw(field)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &RowError{Path: r.path, Line: r.line, Field: field, Value: v, Err: err}
	}
	return f, nil
}

func (r *row) intField(field string) (int, error) {
	v, err := r.raw(field)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &RowError{Path: r.path, Line: r.line, Field: field, Value: v, Err: err}
	}
	return n, nil
}

func (r *row) sample() (Sample, error) {
	var s Sample
	var err error
	if s.Time, err = r.floatField(FieldTime); err != nil {
		return s, err
	}
	if s.X, err = r.floatField(FieldX); err != nil {
		return s, err
	}
	if s.Y, err = r.floatField(FieldY); err != nil {
		return s, err
	}
	return s, nil
}
