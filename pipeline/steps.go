package pipeline

import (
	"context"
	"fmt"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// Quality used when a quantized image has too many colors for a lossless
// container: the grid already removed detail, so the encoder stays high.
const QuantizedLossyQuality = 0.9

// ── Resize ────────────────────────────────────────────────────────────────────

// ResizeStep fits the frame within MaxDimension, preserving aspect ratio.
type ResizeStep struct {
	MaxDimension int
	// Resampler controls quality vs speed.  Defaults to CatmullRom.
	Resampler Resampler
}

func (s *ResizeStep) Name() string { return "resize" }

func (s *ResizeStep) Execute(ctx context.Context, f *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	resized, err := Resize(f.Buffer, s.MaxDimension, s.Resampler)
	if err != nil {
		return nil, err
	}
	out := *f
	out.Buffer = resized
	return &out, nil
}

// ── Quantize ──────────────────────────────────────────────────────────────────

// QuantizeStep reduces the palette and picks the container from the result:
// lossless below PaletteThreshold colors, otherwise JPEG at a fixed high
// quality.
type QuantizeStep struct {
	Quality int
}

func (s *QuantizeStep) Name() string { return "quantize" }

func (s *QuantizeStep) Execute(ctx context.Context, f *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	quantized, palette := Quantize(f.Buffer, s.Quality)

	out := *f
	out.Buffer = quantized
	out.PaletteSize = palette
	out.Format, out.Quality = QuantizedFormat(palette)
	return &out, nil
}

// QuantizedFormat returns the container and encoder quality for a quantized
// image with the given palette size.
func QuantizedFormat(palette int) (core.Format, float64) {
	if palette < PaletteThreshold {
		return core.FormatPNG, 1
	}
	return core.FormatJPEG, QuantizedLossyQuality
}

// ── Block averaging ───────────────────────────────────────────────────────────

// BlockAverageStep flattens pixel blocks and fixes the container to JPEG at
// the user's quality.
type BlockAverageStep struct {
	Quality int
}

func (s *BlockAverageStep) Name() string { return "block_average" }

func (s *BlockAverageStep) Execute(ctx context.Context, f *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	out := *f
	out.Buffer = AverageBlocks(f.Buffer, s.Quality)
	out.Format = core.FormatJPEG
	out.Quality = float64(s.Quality) / 100
	return &out, nil
}

// ── Encode ────────────────────────────────────────────────────────────────────

// EncodeStep serialises the frame with the encoder registered for its format.
// There is no fallback to another format when the encoder fails.
type EncodeStep struct {
	Registry core.Registry
}

func (s *EncodeStep) Name() string { return "encode" }

func (s *EncodeStep) Execute(ctx context.Context, f *core.Frame) (*core.Frame, error) {
	enc, ok := s.Registry.EncoderFor(f.Format)
	if !ok || !enc.CanEncode(f.Format) {
		return nil, apperrors.Encoding(s.Name(),
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, f.Format))
	}

	data, err := enc.Encode(ctx, f.Buffer, core.EncodeOptions{Format: f.Format, Quality: f.Quality})
	if err != nil {
		return nil, apperrors.Encoding(s.Name(), err)
	}

	out := *f
	out.Data = data
	return &out, nil
}

var (
	_ core.Step = (*ResizeStep)(nil)
	_ core.Step = (*QuantizeStep)(nil)
	_ core.Step = (*BlockAverageStep)(nil)
	_ core.Step = (*EncodeStep)(nil)
)
