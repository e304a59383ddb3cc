package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"media-converter/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support
)

// ImageInfo describes a produced image.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// CanInspect reports whether the dimensions of a file with this name can
// be read without an external tool.
func CanInspect(name string) bool {
	if _, err := imaging.FormatFromFilename(name); err == nil {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".webp")
}

// InspectImage returns the dimensions of the image at path without fully
// decoding it.
func InspectImage(path string) (*ImageInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	return &ImageInfo{
		Width:  config.Width,
		Height: config.Height,
		Format: format,
	}, nil
}
