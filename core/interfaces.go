//go:generate mockgen -destination mock_core/mock_codec.go -package mock_core github.com/Skryldev/image-compressor/core Encoder,Decoder

package core

import (
	"context"
	"io"
	"time"
)

// Decoder converts raw bytes into a PixelBuffer.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode reads from r and returns a decoded PixelBuffer.
	Decode(ctx context.Context, r io.Reader) (*PixelBuffer, error)
	// CanDecode reports whether this decoder handles the given format hint.
	CanDecode(format Format) bool
}

// Encoder serialises a PixelBuffer to bytes in a target container format.
// Implementations live in adapters/encoder/.  Encoders must not modify buf.
type Encoder interface {
	Encode(ctx context.Context, buf *PixelBuffer, opts EncodeOptions) ([]byte, error)
	CanEncode(format Format) bool
}

// EncodeOptions carries the resolved container and quality for one encode.
type EncodeOptions struct {
	Format  Format
	Quality float64 // [0,1]; ignored by lossless containers
}

// IntQuality maps the quality scalar onto the 1-100 scale used by most codecs.
func (o EncodeOptions) IntQuality() int {
	q := int(o.Quality*100 + 0.5)
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// StorageAdapter persists compressed images and retrieves them later.
// Implementations live in adapters/storage/.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader, meta map[string]string) error
	Get(ctx context.Context, key StorageKey) (io.ReadCloser, error)
	Delete(ctx context.Context, key StorageKey) error
	Exists(ctx context.Context, key StorageKey) (bool, error)
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordProcessingTime(stepName string, d time.Duration)
	RecordThroughput(bytes int64)
	RecordError(stepName string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}

// PipelineRunner is a minimal interface over pipeline.Pipeline so that core
// does not import the pipeline package.
type PipelineRunner interface {
	Run(ctx context.Context, f *Frame) (*Frame, map[string]time.Duration, error)
}

// Planner builds the step sequence for one run.
type Planner interface {
	Plan(cfg CompressionConfig, maxDimension int, hooks []Hook) (PipelineRunner, error)
}
