package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/banshee-data/trackviz/internal/fsutil"
	"github.com/banshee-data/trackviz/internal/tracks"
)

// LoadImage decodes the background image at path. PNG, JPEG, GIF, BMP,
// TIFF and WebP are recognised.
func LoadImage(fsys fsutil.FileSystem, path string) (image.Image, string, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", tracks.ErrMissingFile, path)
		}
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, format, nil
}
