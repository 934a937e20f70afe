// Package server exposes the compression pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"

	imagecompressor "github.com/Skryldev/image-compressor"
	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
	"github.com/Skryldev/image-compressor/stats"
	"github.com/Skryldev/image-compressor/utils"
)

// Engine is the part of the compressor the HTTP layer needs.
type Engine interface {
	CompressSource(ctx context.Context, src core.Source, cfg core.CompressionConfig) (*imagecompressor.Report, error)
	Decode(ctx context.Context, src core.Source) (*core.Decoded, error)
	Compare(ctx context.Context, dec *core.Decoded, quality int) []core.CompareEntry
}

// Options configures the handler.
type Options struct {
	DefaultPreset  string
	DefaultQuality int
	MaxUploadBytes int64
	Logger         core.Logger
}

// Server routes requests to an Engine.
type Server struct {
	engine Engine
	opts   Options
	router *mux.Router
}

// New builds the router.
func New(engine Engine, opts Options) *Server {
	if opts.DefaultPreset == "" {
		opts.DefaultPreset = "jpeg"
	}
	if opts.DefaultQuality == 0 {
		opts.DefaultQuality = 80
	}
	s := &Server{engine: engine, opts: opts, router: mux.NewRouter()}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/strategies", gzhttp.GzipHandler(http.HandlerFunc(s.strategies))).Methods(http.MethodGet)
	s.router.HandleFunc("/compress", s.compress).Methods(http.MethodPost)
	s.router.Handle("/compress/stats", gzhttp.GzipHandler(http.HandlerFunc(s.compressStats))).Methods(http.MethodPost)
	s.router.Handle("/compare", gzhttp.GzipHandler(http.HandlerFunc(s.compare))).Methods(http.MethodPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.opts.Logger != nil {
			s.opts.Logger.Info("http.request",
				"remote", r.RemoteAddr,
				"method", r.Method,
				"url", r.URL.String(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

type presetView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Strategy    string `json:"strategy"`
}

func (s *Server) strategies(w http.ResponseWriter, _ *http.Request) {
	all := core.Presets()
	out := make([]presetView, len(all))
	for i, p := range all {
		out[i] = presetView{ID: p.ID, Name: p.Name, Description: p.Description, Strategy: string(p.Strategy)}
	}
	writeJSON(w, http.StatusOK, out)
}

// compress returns the encoded image with its statistics in headers.
func (s *Server) compress(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.run(w, r)
	if !ok {
		return
	}
	res := rep.Result
	h := w.Header()
	h.Set("Content-Type", res.MIMEType())
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": "compressed-image." + res.Extension()}))
	h.Set("X-Original-Size", strconv.FormatInt(rep.Stats.OriginalSize, 10))
	h.Set("X-Compressed-Size", strconv.FormatInt(rep.Stats.CompressedSize, 10))
	h.Set("X-Reduction-Percent", strconv.Itoa(rep.Stats.ReductionPercent()))
	h.Set("X-Compression-Ratio", rep.Stats.Ratio())
	h.Set("X-Image-Size", fmt.Sprintf("%dx%d", res.Width, res.Height))
	if res.PaletteSize > 0 {
		h.Set("X-Palette-Size", strconv.Itoa(res.PaletteSize))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

// RunView is the JSON description of one run.
type RunView struct {
	Preset      string       `json:"preset"`
	Strategy    string       `json:"strategy"`
	Format      string       `json:"format,omitempty"`
	Quality     float64      `json:"encoder_quality,omitempty"`
	Width       int          `json:"width,omitempty"`
	Height      int          `json:"height,omitempty"`
	PaletteSize int          `json:"palette_size,omitempty"`
	Stats       stats.Report `json:"stats"`
	Error       string       `json:"error,omitempty"`
}

func newRunView(preset core.Preset, res *core.CompressionResult, originalSize int64) RunView {
	return RunView{
		Preset:      preset.ID,
		Strategy:    string(res.Strategy),
		Format:      string(res.Format),
		Quality:     res.Quality,
		Width:       res.Width,
		Height:      res.Height,
		PaletteSize: res.PaletteSize,
		Stats:       stats.ComputeStats(originalSize, res.ByteSize()).Report(),
	}
}

func (s *Server) compressStats(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.run(w, r)
	if !ok {
		return
	}
	preset, _ := core.LookupPreset(s.presetID(r))
	writeJSON(w, http.StatusOK, newRunView(preset, rep.Result, rep.Decoded.Size))
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	quality, err := s.quality(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if quality < 1 || quality > 100 {
		writeError(w, apperrors.New(apperrors.CategoryInput, "http.quality",
			fmt.Errorf("%w: got %d", apperrors.ErrInvalidQuality, quality)))
		return
	}
	dec, err := s.engine.Decode(r.Context(), s.source(w, r))
	if err != nil {
		writeError(w, err)
		return
	}

	entries := s.engine.Compare(r.Context(), dec, quality)
	out := make([]RunView, len(entries))
	for i, e := range entries {
		if e.Err != nil {
			out[i] = RunView{Preset: e.Preset.ID, Strategy: string(e.Preset.Strategy), Error: e.Err.Error()}
			continue
		}
		out[i] = newRunView(e.Preset, e.Result, dec.Size)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) (*imagecompressor.Report, bool) {
	preset, ok := core.LookupPreset(s.presetID(r))
	if !ok {
		writeError(w, apperrors.New(apperrors.CategoryInput, "http.preset",
			fmt.Errorf("%w: %q", apperrors.ErrInvalidStrategy, s.presetID(r))))
		return nil, false
	}
	quality, err := s.quality(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	cfg := preset.Config(quality)
	if err := cfg.Validate(); err != nil {
		writeError(w, err)
		return nil, false
	}
	rep, err := s.engine.CompressSource(r.Context(), s.source(w, r), cfg)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return rep, true
}

func (s *Server) presetID(r *http.Request) string {
	if id := r.URL.Query().Get("type"); id != "" {
		return id
	}
	return s.opts.DefaultPreset
}

func (s *Server) quality(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("quality")
	if raw == "" {
		return s.opts.DefaultQuality, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.New(apperrors.CategoryInput, "http.quality",
			fmt.Errorf("%w: %q", apperrors.ErrInvalidQuality, raw))
	}
	return q, nil
}

func (s *Server) source(w http.ResponseWriter, r *http.Request) core.Source {
	body := io.Reader(r.Body)
	if s.opts.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	return core.Source{Reader: body, ContentType: r.Header.Get("Content-Type"), Name: r.URL.Query().Get("name")}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, utils.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case apperrors.IsDecodeError(err):
		return http.StatusUnprocessableEntity
	case apperrors.IsCategory(err, apperrors.CategoryInput):
		return http.StatusBadRequest
	case apperrors.IsEncodingFailed(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
