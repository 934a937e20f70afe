package imagecompressor

import (
	"context"
	"io"

	"github.com/Skryldev/image-compressor/adapters/decoder"
	"github.com/Skryldev/image-compressor/adapters/encoder"
	"github.com/Skryldev/image-compressor/config"
	"github.com/Skryldev/image-compressor/core"
	"github.com/Skryldev/image-compressor/pipeline"
	"github.com/Skryldev/image-compressor/stats"
)

// Re-export Format and Strategy constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP

	DirectLossy       = core.StrategyDirectLossy
	ColorQuantization = core.StrategyColorQuantization
	BlockAveraging    = core.StrategyBlockAveraging
)

// DefaultMaxDimension is the longest side an image keeps after resizing.
const DefaultMaxDimension = 1920

// DefaultConfig returns a sensible configuration.
func DefaultConfig() config.Config { return config.Default() }

// Compressor is the primary entry point.
type Compressor struct {
	inner *core.Processor
	reg   *core.DefaultRegistry
}

// New creates a fully wired Compressor with the pure-Go JPEG, PNG and WebP
// codecs registered.  The libvips backend is opt-in: register it through
// Registry() (see adapters/vips).
func New(cfg config.Config) (*Compressor, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG())
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatWebP, encoder.NewWebP())

	planner := pipeline.NewPlanner(reg, pipeline.ResamplerFor(cfg.Resampler))
	return &Compressor{inner: core.New(cfg, reg, planner), reg: reg}, nil
}

// SetLogger attaches a structured logger.
func (c *Compressor) SetLogger(l core.Logger) { c.inner.SetLogger(l) }

// SetMetrics attaches a metrics collector.
func (c *Compressor) SetMetrics(m core.MetricsCollector) { c.inner.SetMetrics(m) }

// AddHook registers an observer for pipeline step events.
func (c *Compressor) AddHook(h core.Hook) { c.inner.AddHook(h) }

// RegisterDecoder registers a custom decoder for the given format.
func (c *Compressor) RegisterDecoder(f core.Format, d core.Decoder) { c.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (c *Compressor) RegisterEncoder(f core.Format, e core.Encoder) { c.reg.RegisterEncoder(f, e) }

// Registry returns the codec registry.
func (c *Compressor) Registry() core.Registry { return c.reg }

// Inner exposes the underlying core.Processor for advanced use.
func (c *Compressor) Inner() *core.Processor { return c.inner }

// Start starts the background worker pool used by sessions.
func (c *Compressor) Start() { c.inner.Start() }

// Stop shuts down the worker pool.
func (c *Compressor) Stop() { c.inner.Stop() }

// Decode reads and decodes an uploaded image.
func (c *Compressor) Decode(ctx context.Context, src core.Source) (*core.Decoded, error) {
	return c.inner.Decode(ctx, src)
}

// Compress runs one pipeline on buf.  Pass 0 as maxDimension for the
// configured default.
func (c *Compressor) Compress(ctx context.Context, buf *core.PixelBuffer, cfg core.CompressionConfig, maxDimension int) (*core.CompressionResult, error) {
	return c.inner.Compress(ctx, buf, cfg, maxDimension)
}

// Report bundles a result with its statistics.
type Report struct {
	Decoded *core.Decoded
	Result  *core.CompressionResult
	Stats   stats.Snapshot
}

// CompressSource decodes src and compresses it in one call.
func (c *Compressor) CompressSource(ctx context.Context, src core.Source, cfg core.CompressionConfig) (*Report, error) {
	dec, err := c.Decode(ctx, src)
	if err != nil {
		return nil, err
	}
	res, err := c.Compress(ctx, dec.Buffer, cfg, 0)
	if err != nil {
		return nil, err
	}
	return &Report{Decoded: dec, Result: res, Stats: stats.ComputeStats(dec.Size, res.ByteSize())}, nil
}

// Compare runs every preset on the decoded image at one quality.
func (c *Compressor) Compare(ctx context.Context, dec *core.Decoded, quality int) []core.CompareEntry {
	return c.inner.Compare(ctx, dec.Buffer, quality, 0)
}

// NewSession opens an interactive session over a decoded image.  Stats are
// attached to every delivered run.  The worker pool must be started.
func (c *Compressor) NewSession(dec *core.Decoded, onResult func(core.Run)) *core.Session {
	return c.inner.NewSession(dec, core.SessionOptions{
		Stats:    SnapshotStats,
		OnResult: onResult,
	})
}

// SnapshotStats adapts stats.ComputeStats to core.StatsFunc.
func SnapshotStats(originalSize, compressedSize int64) core.RunStats {
	return stats.ComputeStats(originalSize, compressedSize)
}

// ComputeStats derives reduction and ratio from two byte sizes.
func ComputeStats(originalSize, compressedSize int64) stats.Snapshot {
	return stats.ComputeStats(originalSize, compressedSize)
}

// Presets returns the compression type catalogue.
func Presets() []core.Preset { return core.Presets() }

// FromReader creates a Source from an io.Reader.
func FromReader(r io.Reader) core.Source { return core.Source{Reader: r} }

// FromReaderWithMeta creates a Source with content-type and name hints.
func FromReaderWithMeta(r io.Reader, contentType, name string) core.Source {
	return core.Source{Reader: r, ContentType: contentType, Name: name}
}
