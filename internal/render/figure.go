// Package render draws trajectory and image overlay figures with
// gonum/plot, and the interactive trajectory chart with go-echarts.
package render

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/trackviz/internal/fsutil"
	"github.com/banshee-data/trackviz/internal/monitoring"
)

// Figure is a plot together with the size and resolution it is rasterised at.
type Figure struct {
	Plot   *plot.Plot
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// WritePNG rasterises the figure as PNG into w.
func (f *Figure) WritePNG(w io.Writer) error {
	c := vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(f.DPI))
	f.Plot.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNG returns the rasterised figure.
func (f *Figure) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.WritePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the figure as PNG to path, creating the parent directory.
func (f *Figure) Save(fsys fsutil.FileSystem, path string) error {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	out, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.WritePNG(out); err != nil {
		out.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	monitoring.Logf("saved figure to %s", path)
	return nil
}
