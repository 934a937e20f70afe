package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// WebP decodes WebP images using golang.org/x/image/webp, which handles both
// lossy (VP8) and lossless (VP8L) streams but not animation.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}

	img, err := webp.Decode(r)
	if err != nil {
		return nil, apperrors.Decode("webp.decode", err)
	}
	return core.FromImage(img)
}
