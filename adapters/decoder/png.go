package decoder

import (
	"context"
	"image/png"
	"io"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// PNG decodes PNG images using the standard library.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(format core.Format) bool {
	return format == core.FormatPNG
}

func (p *PNG) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "png.decode", err)
	}

	img, err := png.Decode(r)
	if err != nil {
		return nil, apperrors.Decode("png.decode", err)
	}
	return core.FromImage(img)
}
