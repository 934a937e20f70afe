// Package encoder provides the container encoders handed the final buffer.
package encoder

import (
	"bytes"
	"context"
	"image/jpeg"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// JPEG encodes buffers to baseline JPEG.  Alpha is discarded.
type JPEG struct{}

func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanEncode(format core.Format) bool {
	return format == core.FormatJPEG
}

func (j *JPEG) Encode(ctx context.Context, buf *core.PixelBuffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	if err := buf.Validate(); err != nil {
		return nil, apperrors.Encoding("jpeg.encode", err)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, buf.Image(), &jpeg.Options{Quality: opts.IntQuality()}); err != nil {
		return nil, apperrors.Encoding("jpeg.encode", err)
	}
	return out.Bytes(), nil
}
