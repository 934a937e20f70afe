// Package hooks provides Hook and Logger implementations.
package hooks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

// NewLevelLogger builds a JSON slog logger writing to w at the named level
// ("debug", "info", "warn", "error"; anything else means info).
func NewLevelLogger(w io.Writer, level string) *SlogLogger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})))
}

func (s *SlogLogger) Debug(msg string, fields ...any) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...any)  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...any)  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...any) { s.log.Error(msg, fields...) }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline step.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStep(_ context.Context, stepName string, f *core.Frame) {
	h.logger.Debug("pipeline.step.start",
		"step", stepName,
		"width", f.Buffer.Width,
		"height", f.Buffer.Height,
	)
}

func (h *LoggingHook) AfterStep(_ context.Context, stepName string, f *core.Frame, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("pipeline.step.error",
			"step", stepName,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	fields := []any{
		"step", stepName,
		"duration_ms", d.Milliseconds(),
		"width", f.Buffer.Width,
		"height", f.Buffer.Height,
		"format", f.Format,
		"quality", f.Quality,
	}
	if f.PaletteSize > 0 {
		fields = append(fields, "palette_size", f.PaletteSize)
	}
	if f.Data != nil {
		fields = append(fields, "bytes", len(f.Data))
	}
	h.logger.Debug("pipeline.step.done", fields...)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	stepDurations map[string]time.Duration // cumulative per step
	stepCalls     map[string]int64
	stepErrors    map[string]int64
	errorsByCat   map[string]int64

	totalThroughputB int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		stepDurations: make(map[string]time.Duration),
		stepCalls:     make(map[string]int64),
		stepErrors:    make(map[string]int64),
		errorsByCat:   make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordProcessingTime(stepName string, d time.Duration) {
	m.mu.Lock()
	m.stepDurations[stepName] += d
	m.stepCalls[stepName]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalThroughputB, bytes)
}

func (m *InMemoryMetrics) RecordError(stepName string, category string) {
	m.mu.Lock()
	m.stepErrors[stepName]++
	m.errorsByCat[category]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		StepDurations:    make(map[string]time.Duration, len(m.stepDurations)),
		StepCalls:        make(map[string]int64, len(m.stepCalls)),
		StepErrors:       make(map[string]int64, len(m.stepErrors)),
		ErrorsByCategory: make(map[string]int64, len(m.errorsByCat)),
		TotalThroughputB: atomic.LoadInt64(&m.totalThroughputB),
	}
	for k, v := range m.stepDurations {
		snap.StepDurations[k] = v
	}
	for k, v := range m.stepCalls {
		snap.StepCalls[k] = v
	}
	for k, v := range m.stepErrors {
		snap.StepErrors[k] = v
	}
	for k, v := range m.errorsByCat {
		snap.ErrorsByCategory[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	StepDurations    map[string]time.Duration
	StepCalls        map[string]int64
	StepErrors       map[string]int64
	ErrorsByCategory map[string]int64
	TotalThroughputB int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds pipeline events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeStep(_ context.Context, _ string, _ *core.Frame) {}

func (h *MetricsHook) AfterStep(_ context.Context, stepName string, _ *core.Frame, d time.Duration, err error) {
	h.collector.RecordProcessingTime(stepName, d)
	if err != nil {
		h.collector.RecordError(stepName, category(err))
	}
}

func category(err error) string {
	for _, c := range []apperrors.Category{
		apperrors.CategoryInput,
		apperrors.CategoryDecode,
		apperrors.CategoryEncode,
		apperrors.CategoryStorage,
	} {
		if apperrors.IsCategory(err, c) {
			return string(c)
		}
	}
	return string(apperrors.CategoryPipeline)
}

var (
	_ core.Hook             = (*LoggingHook)(nil)
	_ core.Hook             = (*MetricsHook)(nil)
	_ core.MetricsCollector = (*InMemoryMetrics)(nil)
	_ core.Logger           = (*SlogLogger)(nil)
)
