// Package testutil provides shared test fixtures: simulator CSVs, encoded
// background images and helpers to lay them out on disk or in memory.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/trackviz/internal/fsutil"
)

// Simulator output in the column order the simulator writes. Two ground
// truth objects and two tracks over two frames; track 1 is tentative at
// t=0.
const (
	GroundTruthCSV = "time,obj_id,x,y,vx,vy\n" +
		"0,1,0,0,1,0\n" +
		"0,2,0,5,1,0\n" +
		"1,1,1,0,1,0\n" +
		"1,2,1,5,1,0\n"

	TracksCSV = "time,track_id,x,y,vx,vy,confirmed,missed\n" +
		"0,1,0.1,0,1,0,0,0\n" +
		"1,1,1.1,0.1,1,0,1,0\n" +
		"1,4,1,5.2,1,0,1,0\n"

	DetectionsCSV = "time,sensor,x,y,z2\n" +
		"0,camera,0.1,0.1,0\n" +
		"0,radar,5,0.5,0\n"
)

// SimFiles returns the simulator CSVs keyed by their path under dir.
func SimFiles(dir string) map[string]string {
	return map[string]string{
		filepath.Join(dir, "ground_truth.csv"): GroundTruthCSV,
		filepath.Join(dir, "tracks.csv"):       TracksCSV,
	}
}

// NewMemoryFS returns an in-memory filesystem holding files.
func NewMemoryFS(files map[string]string) *fsutil.MemoryFileSystem {
	mfs := fsutil.NewMemoryFileSystem()
	for name, contents := range files {
		mfs.AddFile(name, contents)
	}
	return mfs
}

// WriteFiles writes files to disk, creating parent directories.
func WriteFiles(t *testing.T, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(name, []byte(contents), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// EncodePNG returns a w x h PNG with a red horizon line across the middle.
func EncodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// AssertPNG fails the test unless data is a PNG of the given size. A zero
// dimension is not checked.
func AssertPNG(t *testing.T, data []byte, wantW, wantH int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a png: %v", err)
	}
	if wantW != 0 && cfg.Width != wantW {
		t.Errorf("png width = %d, want %d", cfg.Width, wantW)
	}
	if wantH != 0 && cfg.Height != wantH {
		t.Errorf("png height = %d, want %d", cfg.Height, wantH)
	}
}
