package transform

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dmitrijs2005/heartwall/internal/common"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Intake checks a selected file before any decoding is attempted.
func Intake(contentType string, data []byte) error {
	if len(data) == 0 {
		return common.ErrEmptyArtifact
	}
	if !common.IsImageContentType(contentType) {
		return fmt.Errorf("%w: %q", common.ErrNotImage, contentType)
	}
	return nil
}

// Decode decodes any registered raster format. Failures are terminal for
// the attempt; there is no fallback to a blank image.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", fmt.Errorf("%w: empty raster", common.ErrDecode)
	}
	return img, format, nil
}
