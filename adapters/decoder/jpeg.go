// Package decoder provides format-specific image decoders.
package decoder

import (
	"context"
	"image/jpeg"
	"io"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// JPEG decodes JPEG images using the standard library.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG || format == core.FormatUnknown
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}

	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, apperrors.Decode("jpeg.decode", err)
	}
	return core.FromImage(img)
}
