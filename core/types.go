package core

import (
	"context"
	"fmt"
	"io"
	"time"

	apperrors "github.com/Skryldev/image-compressor/errors"
)

// Format identifies a logical container format handed to an Encoder.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// Lossless reports whether the format preserves pixels exactly.
func (f Format) Lossless() bool { return f == FormatPNG }

// Extension returns the file extension used when saving this format.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	}
	return "bin"
}

// MIMEType returns the media type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// ParseFormat maps a user supplied name or MIME type to a Format.
func ParseFormat(s string) Format {
	switch s {
	case "jpeg", "jpg", "image/jpeg", "image/jpg":
		return FormatJPEG
	case "png", "image/png":
		return FormatPNG
	case "webp", "image/webp":
		return FormatWebP
	}
	return FormatUnknown
}

// Strategy selects the compression simulation applied before encoding.
type Strategy string

const (
	// StrategyDirectLossy hands the resized pixels straight to the encoder.
	StrategyDirectLossy Strategy = "direct"
	// StrategyColorQuantization reduces every channel onto a uniform grid.
	StrategyColorQuantization Strategy = "quantization"
	// StrategyBlockAveraging flattens pixel blocks to simulate DCT artifacts.
	StrategyBlockAveraging Strategy = "dct"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyDirectLossy, StrategyColorQuantization, StrategyBlockAveraging:
		return true
	}
	return false
}

// Preset is a named, user-facing compression type.
type Preset struct {
	ID          string
	Name        string
	Description string
	Strategy    Strategy
	Format      Format
}

var presets = []Preset{
	{ID: "jpeg", Name: "JPEG", Description: "Lossy compression optimized for photographs", Strategy: StrategyDirectLossy, Format: FormatJPEG},
	{ID: "webp", Name: "WebP", Description: "Modern format with superior compression", Strategy: StrategyDirectLossy, Format: FormatWebP},
	{ID: "quantization", Name: "Color Quantization", Description: "Reduces the number of colors", Strategy: StrategyColorQuantization, Format: FormatPNG},
	{ID: "dct", Name: "DCT Transform", Description: "Discrete Cosine Transform visualization", Strategy: StrategyBlockAveraging, Format: FormatJPEG},
}

// Presets returns the catalogue of compression types in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset finds a preset by id.
func LookupPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Config returns a CompressionConfig for the preset at the given quality.
func (p Preset) Config(quality int) CompressionConfig {
	return CompressionConfig{Strategy: p.Strategy, Format: p.Format, Quality: quality}
}

// CompressionConfig parameterises a single pipeline run.
type CompressionConfig struct {
	Strategy Strategy
	// Format is the requested container. Only DirectLossy honours it;
	// the other strategies resolve their own format.
	Format  Format
	Quality int // 1-100
}

// Validate rejects out-of-contract configurations instead of clamping them.
func (c CompressionConfig) Validate() error {
	if !c.Strategy.Valid() {
		return apperrors.New(apperrors.CategoryInput, "config.validate",
			fmt.Errorf("%w: %q", apperrors.ErrInvalidStrategy, c.Strategy))
	}
	if c.Quality < 1 || c.Quality > 100 {
		return apperrors.New(apperrors.CategoryInput, "config.validate",
			fmt.Errorf("%w: got %d", apperrors.ErrInvalidQuality, c.Quality))
	}
	if c.Strategy == StrategyDirectLossy {
		switch c.Format {
		case FormatJPEG, FormatWebP, FormatPNG:
		default:
			return apperrors.New(apperrors.CategoryInput, "config.validate",
				fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, c.Format))
		}
	}
	return nil
}

// Frame is the per-run state passed between pipeline steps.
type Frame struct {
	Buffer *PixelBuffer

	// Encoder parameters resolved so far.
	Format  Format
	Quality float64 // [0,1]

	// PaletteSize is the number of distinct RGB triples after quantization;
	// zero when the strategy does not quantize.
	PaletteSize int

	// Data holds the encoded bytes once the encode step has run.
	Data []byte
}

// CompressionResult is returned to the caller after a run completes.
type CompressionResult struct {
	Data     []byte
	Format   Format // the format actually used
	Strategy Strategy
	Quality  float64 // encoder quality scalar actually used

	Width, Height int
	PaletteSize   int

	ProcessingTime time.Duration
	StepTimings    map[string]time.Duration
}

// ByteSize returns len(Data).
func (r *CompressionResult) ByteSize() int64 { return int64(len(r.Data)) }

// Extension returns the download file extension for the result.
func (r *CompressionResult) Extension() string { return r.Format.Extension() }

// MIMEType returns the media type of the encoded bytes.
func (r *CompressionResult) MIMEType() string { return r.Format.MIMEType() }

// Decoded is the outcome of decoding an uploaded file.
type Decoded struct {
	Buffer *PixelBuffer
	Format Format
	Size   int64 // size of the raw input in bytes
}

// Source abstracts where raw upload bytes come from.
type Source struct {
	Reader      io.Reader
	ContentType string // optional hint
	Name        string // optional logical name / filename
}

// Job encapsulates a single run for the worker pool.
type Job struct {
	Seq          uint64
	Ctx          context.Context //nolint:containedctx // intentional for async jobs
	Buffer       *PixelBuffer
	Config       CompressionConfig
	MaxDimension int
	Delay        time.Duration
	// Result channel; nil for fire-and-forget.  Must have room for one value.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	Seq    uint64
	Result *CompressionResult
	Err    error
}

// Step is the fundamental pipeline building block.  Steps must not retain the
// frame after Execute returns.
type Step interface {
	Name() string
	Execute(ctx context.Context, f *Frame) (*Frame, error)
}

// Hook is an optional observer invoked around pipeline steps.
type Hook interface {
	BeforeStep(ctx context.Context, stepName string, f *Frame)
	AfterStep(ctx context.Context, stepName string, f *Frame, d time.Duration, err error)
}

// StorageKey uniquely identifies a stored image.
type StorageKey struct {
	Bucket string
	Path   string
}
