package encoder

import (
	"bytes"
	"context"
	"image/png"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// PNG encodes buffers losslessly.  Quality is ignored.
type PNG struct {
	Level png.CompressionLevel
}

// NewPNG returns a PNG encoder using the best compression level, which suits
// the small palettes produced by quantization.
func NewPNG() *PNG { return &PNG{Level: png.BestCompression} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, buf *core.PixelBuffer, _ core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	if err := buf.Validate(); err != nil {
		return nil, apperrors.Encoding("png.encode", err)
	}

	enc := &png.Encoder{CompressionLevel: p.Level}
	var out bytes.Buffer
	if err := enc.Encode(&out, buf.Image()); err != nil {
		return nil, apperrors.Encoding("png.encode", err)
	}
	return out.Bytes(), nil
}
