package visualiser

import (
	"errors"
	"fmt"

	"github.com/banshee-data/trackviz/internal/store"
	"github.com/banshee-data/trackviz/internal/tracks"
)

// MissingCSVError reports that the simulator output is not where it was
// expected.
type MissingCSVError struct {
	Dir  string
	Path string
}

func (e *MissingCSVError) Error() string {
	return fmt.Sprintf("cannot find CSV files in %s: %s does not exist", e.Dir, e.Path)
}

func (e *MissingCSVError) Unwrap() error { return tracks.ErrMissingFile }

// MissingImageError reports a background image path that does not exist.
type MissingImageError struct {
	Path string
}

func (e *MissingImageError) Error() string {
	return "image not found: " + e.Path
}

func (e *MissingImageError) Unwrap() error { return tracks.ErrMissingFile }

// Describe turns a pipeline error into the message shown to the user.
func Describe(err error) string {
	var csvErr *MissingCSVError
	var imgErr *MissingImageError
	switch {
	case errors.As(err, &csvErr):
		return fmt.Sprintf("Cannot find CSV files in %s.\nRun the simulation first (e.g., ./run_all.sh).", csvErr.Dir)
	case errors.As(err, &imgErr):
		return "Image not found: " + imgErr.Path
	case errors.Is(err, tracks.ErrEmptyDataset):
		return "No positions found in CSVs."
	case errors.Is(err, store.ErrRunNotFound), errors.Is(err, store.ErrAmbiguousRun):
		return err.Error()
	default:
		return "Error: " + err.Error()
	}
}
