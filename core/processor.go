package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/image-compressor/config"
	apperrors "github.com/Skryldev/image-compressor/errors"
	"github.com/Skryldev/image-compressor/utils"
)

// Processor is the compression orchestrator.  It is safe for concurrent use;
// every run owns its buffers end to end and nothing is cached between runs.
type Processor struct {
	cfg      config.Config
	registry Registry
	planner  Planner
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	// Worker pool.
	jobQueue chan Job
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once
	shutdown chan struct{}
	// submitMu orders Submit against Stop so nothing is enqueued after the
	// final drain.
	submitMu sync.RWMutex
	stopped  bool

	// Atomic counters for lightweight internal metrics.
	processedCount int64
	errorCount     int64
}

// New creates a Processor.  Call Start() before submitting jobs; call Stop()
// when done.  Synchronous Compress calls work without Start().
func New(cfg config.Config, reg Registry, planner Planner) *Processor {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Processor{
		cfg:      cfg,
		registry: reg,
		planner:  planner,
		logger:   nopLogger{},
		jobQueue: make(chan Job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (p *Processor) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	p.logger = l
}

// Logger returns the attached logger.
func (p *Processor) Logger() Logger { return p.logger }

// SetMetrics attaches a metrics collector.
func (p *Processor) SetMetrics(m MetricsCollector) { p.metrics = m }

// AddHook registers a pipeline hook.
func (p *Processor) AddHook(h Hook) { p.hooks = append(p.hooks, h) }

// Registry returns the underlying registry so callers can register
// encoders/decoders after construction.
func (p *Processor) Registry() Registry { return p.registry }

// Config returns the processor configuration.
func (p *Processor) Config() config.Config { return p.cfg }

// Start launches the worker pool.  It is idempotent.
func (p *Processor) Start() {
	p.once.Do(func() {
		workerCount := p.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop shuts down all workers and waits for in-flight jobs to finish.  Jobs
// still queued are answered with ErrPoolStopped instead of being dropped, so
// a caller waiting on ResultCh always gets a reply.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		p.submitMu.Lock()
		p.stopped = true
		close(p.shutdown)
		p.submitMu.Unlock()
	})
	p.wg.Wait()
	p.drainQueue()
}

// Decode drains src, sniffs its format and decodes it into a PixelBuffer.
// Failures are reported as decode errors; the pipeline never starts.
func (p *Processor) Decode(ctx context.Context, src Source) (*Decoded, error) {
	if src.Reader == nil {
		return nil, apperrors.Decode("decode", apperrors.ErrEmptyInput)
	}

	limited := src.Reader
	if p.cfg.MaxImageBytes > 0 {
		limited = &utils.LimitedReader{R: src.Reader, Max: p.cfg.MaxImageBytes}
	}
	buf, err := utils.DrainReader(ctx, limited, p.cfg.ChunkSize)
	if err != nil {
		return nil, apperrors.Decode("decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	if len(raw) == 0 {
		return nil, apperrors.Decode("decode", apperrors.ErrEmptyInput)
	}

	format := Format(utils.DetectFormat(raw))
	if format == FormatUnknown && src.ContentType != "" {
		format = ParseFormat(src.ContentType)
	}

	dec, ok := p.registry.DecoderFor(format)
	if !ok {
		return nil, apperrors.Decode("decode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}
	pix, err := dec.Decode(ctx, utils.BytesReader(raw))
	if err != nil {
		return nil, apperrors.Decode("decode", err)
	}

	p.logger.Debug("decode.done",
		"name", src.Name,
		"format", format,
		"width", pix.Width,
		"height", pix.Height,
		"bytes", len(raw),
	)
	return &Decoded{Buffer: pix, Format: format, Size: int64(len(raw))}, nil
}

// Compress runs one pipeline: resize, strategy transform, encode.  A
// maxDimension of zero selects the configured default.  buf is never
// modified.
func (p *Processor) Compress(ctx context.Context, buf *PixelBuffer, cfg CompressionConfig, maxDimension int) (*CompressionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if maxDimension == 0 {
		maxDimension = p.cfg.MaxDimension
	}

	runner, err := p.planner.Plan(cfg, maxDimension, p.hooks)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	frame := &Frame{
		Buffer:  buf,
		Format:  cfg.Format,
		Quality: float64(cfg.Quality) / 100,
	}
	out, timings, err := runner.Run(ctx, frame)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.logger.Warn("compress.failed", "strategy", cfg.Strategy, "quality", cfg.Quality, "error", err.Error())
		return nil, err
	}
	atomic.AddInt64(&p.processedCount, 1)
	if p.metrics != nil {
		p.metrics.RecordThroughput(int64(len(out.Data)))
	}

	return &CompressionResult{
		Data:           out.Data,
		Format:         out.Format,
		Strategy:       cfg.Strategy,
		Quality:        out.Quality,
		Width:          out.Buffer.Width,
		Height:         out.Buffer.Height,
		PaletteSize:    out.PaletteSize,
		ProcessingTime: time.Since(start),
		StepTimings:    timings,
	}, nil
}

// Submit enqueues an async job.  Returns ErrWorkerPoolFull if the queue is full.
func (p *Processor) Submit(job Job) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	if p.stopped {
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrPoolStopped)
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrWorkerPoolFull)
	}
}

// CompareEntry is one row of a Compare run.
type CompareEntry struct {
	Preset Preset
	Result *CompressionResult
	Err    error
}

// Compare runs every preset at the given quality concurrently (fan-out /
// fan-in) and returns the entries in preset order.
func (p *Processor) Compare(ctx context.Context, buf *PixelBuffer, quality, maxDimension int) []CompareEntry {
	all := Presets()
	entries := make([]CompareEntry, len(all))
	var wg sync.WaitGroup

	for i, preset := range all {
		wg.Add(1)
		go func(idx int, ps Preset) {
			defer wg.Done()
			res, err := p.Compress(ctx, buf, ps.Config(quality), maxDimension)
			entries[idx] = CompareEntry{Preset: ps, Result: res, Err: err}
		}(i, preset)
	}
	wg.Wait()
	return entries
}

// ── worker pool internals ──────────────────────────────────────────────────────

func (p *Processor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.shutdown:
			return
		case job := <-p.jobQueue:
			p.processJob(job)
		}
	}
}

func (p *Processor) drainQueue() {
	for {
		select {
		case job := <-p.jobQueue:
			if job.ResultCh != nil {
				job.ResultCh <- JobResult{
					Seq: job.Seq,
					Err: apperrors.New(apperrors.CategoryPipeline, "job.drain", apperrors.ErrPoolStopped),
				}
			}
		default:
			return
		}
	}
}

func (p *Processor) processJob(job Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := p.cfg.JobTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var (
		result *CompressionResult
		err    error
	)
	if job.Delay > 0 {
		select {
		case <-ctx.Done():
			err = apperrors.Wrap(apperrors.CategoryPipeline, "job.delay", ctx.Err())
		case <-time.After(job.Delay):
		}
	}
	if err == nil {
		result, err = p.Compress(ctx, job.Buffer, job.Config, job.MaxDimension)
	}
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{Seq: job.Seq, Result: result, Err: err}
	}
}

// ProcessedCount returns the total number of successful runs.
func (p *Processor) ProcessedCount() int64 { return atomic.LoadInt64(&p.processedCount) }

// ErrorCount returns the total number of failed runs.
func (p *Processor) ErrorCount() int64 { return atomic.LoadInt64(&p.errorCount) }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
