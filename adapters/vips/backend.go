//go:build vips

// Package vips provides a libvips-backed Decoder and Encoder.
package vips

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
	"github.com/Skryldev/image-compressor/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Backend is a unified libvips-powered Decoder and Encoder.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanDecode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP, core.FormatUnknown:
		return true
	}
	return false
}

// Decode loads any format libvips understands, applies the EXIF orientation
// and hands back the upright pixels.
func (b *Backend) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Decode("vips.decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, apperrors.Decode("vips.decode", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, apperrors.Decode("vips.decode.autorotate", err)
	}

	// Round-trip through PNG to get at the pixels without leaving the
	// libvips export API.
	pngBytes, _, err := ref.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return nil, apperrors.Decode("vips.decode.export", err)
	}
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, apperrors.Decode("vips.decode.png", err)
	}
	return core.FromImage(img)
}

// ─── Encoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanEncode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP:
		return true
	}
	return false
}

func (b *Backend) Encode(ctx context.Context, buf *core.PixelBuffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode", err)
	}
	if err := buf.Validate(); err != nil {
		return nil, apperrors.Encoding("vips.encode", err)
	}

	ref, err := load(buf)
	if err != nil {
		return nil, apperrors.Encoding("vips.encode.load", err)
	}
	defer ref.Close()

	switch opts.Format {
	case core.FormatJPEG:
		ep := govips.NewJpegExportParams()
		ep.Quality = opts.IntQuality()
		ep.StripMetadata = true
		out, _, err := ref.ExportJpeg(ep)
		if err != nil {
			return nil, apperrors.Encoding("vips.encode.jpeg", err)
		}
		return out, nil

	case core.FormatPNG:
		ep := govips.NewPngExportParams()
		ep.StripMetadata = true
		out, _, err := ref.ExportPng(ep)
		if err != nil {
			return nil, apperrors.Encoding("vips.encode.png", err)
		}
		return out, nil

	case core.FormatWebP:
		ep := govips.NewWebpExportParams()
		ep.Quality = opts.IntQuality()
		ep.StripMetadata = true
		out, _, err := ref.ExportWebp(ep)
		if err != nil {
			return nil, apperrors.Encoding("vips.encode.webp", err)
		}
		return out, nil

	default:
		return nil, apperrors.Encoding("vips.encode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, opts.Format))
	}
}

// load hands the buffer to libvips as an uncompressed PNG.
func load(buf *core.PixelBuffer) (*govips.ImageRef, error) {
	var staged bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&staged, buf.Image()); err != nil {
		return nil, err
	}
	return govips.NewImageFromBuffer(staged.Bytes())
}

// ─── RegisterVipsBackend ──────────────────────────────────────────────────────

// RegisterVipsBackend replaces Go stdlib codecs with libvips for all formats.
func RegisterVipsBackend(reg core.Registry, b *Backend) {
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatWebP} {
		reg.RegisterDecoder(f, b)
		reg.RegisterEncoder(f, b)
	}
	reg.RegisterDecoder(core.FormatUnknown, b)
}

// compile-time interface checks
var _ core.Decoder = (*Backend)(nil)
var _ core.Encoder = (*Backend)(nil)
