package core

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/Skryldev/image-compressor/errors"
)

// ErrSessionClosed is returned by Trigger after Close.
var ErrSessionClosed = errors.New("session closed")

// RunStats is the subset of statistics a Session attaches to each run.  It is
// produced by the StatsFunc supplied at construction so core stays free of
// presentation concerns.
type RunStats interface {
	String() string
}

// StatsFunc derives statistics from the original and compressed byte sizes.
type StatsFunc func(originalSize, compressedSize int64) RunStats

// Run is the outcome of one triggered compression.
type Run struct {
	Seq    uint64
	Config CompressionConfig
	Result *CompressionResult
	Stats  RunStats
	Err    error
}

// Session drives repeated compressions of one decoded image.  Each Trigger
// starts a new run; only the most recently triggered run is ever delivered,
// so a slow earlier run can never overwrite a later one.
type Session struct {
	proc         *Processor
	source       *PixelBuffer
	originalSize int64
	maxDimension int
	stats        StatsFunc
	onResult     func(Run)

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	latest  *Run
	closed  bool
	done    chan struct{}
	pending sync.WaitGroup

	// deliverMu serialises OnResult callbacks without holding mu, so a
	// callback may read the session or trigger a new run.
	deliverMu sync.Mutex
}

// SessionOptions configures a Session.
type SessionOptions struct {
	MaxDimension int       // zero selects the processor default
	Stats        StatsFunc // optional
	// OnResult is called once per delivered run, never for stale runs.
	// Callbacks are serialised.  They may call Latest, Seq and Trigger but
	// must not call Wait or Close.
	OnResult func(Run)
}

// NewSession creates a session over an already decoded image.  The processor
// worker pool must be started.
func (p *Processor) NewSession(d *Decoded, opts SessionOptions) *Session {
	return &Session{
		proc:         p,
		source:       d.Buffer,
		originalSize: d.Size,
		maxDimension: opts.MaxDimension,
		stats:        opts.Stats,
		onResult:     opts.OnResult,
		done:         make(chan struct{}),
	}
}

// Trigger starts a new run with cfg and returns its sequence number.  Any
// in-flight run is cancelled and its result, if it still arrives, discarded.
// When the run cannot be queued the error is returned and the previous run
// keeps going untouched.
func (s *Session) Trigger(ctx context.Context, cfg CompressionConfig) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, apperrors.New(apperrors.CategoryPipeline, "session.trigger", ErrSessionClosed)
	}

	seq := s.seq + 1
	runCtx, cancel := context.WithCancel(ctx)
	resultCh := make(chan JobResult, 1)
	// Submit never blocks, so holding mu here is fine.
	err := s.proc.Submit(Job{
		Seq:          seq,
		Ctx:          runCtx,
		Buffer:       s.source,
		Config:       cfg,
		MaxDimension: s.maxDimension,
		Delay:        s.proc.cfg.Delay,
		ResultCh:     resultCh,
	})
	if err != nil {
		cancel()
		return 0, err
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.seq = seq
	s.cancel = cancel

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		select {
		case jr := <-resultCh:
			s.deliver(cfg, jr)
		case <-s.done:
		}
	}()
	return seq, nil
}

func (s *Session) deliver(cfg CompressionConfig, jr JobResult) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.closed || jr.Seq != s.seq {
		s.proc.logger.Debug("session.discard_stale", "seq", jr.Seq, "latest", s.seq)
		s.mu.Unlock()
		return
	}
	run := Run{Seq: jr.Seq, Config: cfg, Result: jr.Result, Err: jr.Err}
	if jr.Err == nil && s.stats != nil {
		run.Stats = s.stats(s.originalSize, jr.Result.ByteSize())
	}
	s.latest = &run
	s.mu.Unlock()

	if s.onResult != nil {
		s.onResult(run)
	}
}

// Latest returns the most recently delivered run.
func (s *Session) Latest() (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Run{}, false
	}
	return *s.latest, true
}

// Seq returns the sequence number of the most recent trigger.
func (s *Session) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Wait blocks until every triggered run has either been delivered or
// discarded.
func (s *Session) Wait() { s.pending.Wait() }

// Close cancels any in-flight run and waits for it to settle.  Nothing is
// delivered after Close.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.pending.Wait()
}
