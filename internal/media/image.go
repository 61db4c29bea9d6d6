package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"io/fs"

	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ImageDecoder turns a file path into a decoded background layer.
type ImageDecoder interface {
	DecodeImage(ctx context.Context, path string) (*models.Image, error)
}

// FileImageDecoder decodes images from a filesystem.
type FileImageDecoder struct {
	fs afero.Fs
}

// NewFileImageDecoder creates a decoder reading from fsys.
func NewFileImageDecoder(fsys afero.Fs) *FileImageDecoder {
	return &FileImageDecoder{fs: fsys}
}

// DecodeImage reads and decodes the image at path.
//
// A missing file is [shared.ErrNotFound]; unreadable pixel data is [shared.ErrDecode].
func (d *FileImageDecoder) DecodeImage(ctx context.Context, path string) (*models.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readAsset(d.fs, path)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrDecode, path, err)
	}

	bounds := img.Bounds()
	return &models.Image{
		Path:   path,
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: img,
	}, nil
}

func readAsset(fsys afero.Fs, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty asset path", shared.ErrNotFound)
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
