package encoder

import (
	"bytes"
	"context"

	"github.com/chai2010/webp"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// WebP encodes buffers to lossy WebP using github.com/chai2010/webp.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanEncode(format core.Format) bool { return format == core.FormatWebP }

func (w *WebP) Encode(ctx context.Context, buf *core.PixelBuffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	if err := buf.Validate(); err != nil {
		return nil, apperrors.Encoding("webp.encode", err)
	}

	var out bytes.Buffer
	if err := webp.Encode(&out, buf.Image(), &webp.Options{Quality: float32(opts.IntQuality())}); err != nil {
		return nil, apperrors.Encoding("webp.encode", err)
	}
	return out.Bytes(), nil
}
