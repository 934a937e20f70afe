package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Skryldev/image-compressor/config"
	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
	"github.com/Skryldev/image-compressor/pipeline"
)

// gateEncoder blocks every encode whose quality equals hold until release is
// closed.
type gateEncoder struct {
	hold    float64
	entered chan struct{}
	release chan struct{}
}

func (g *gateEncoder) CanEncode(core.Format) bool { return true }

func (g *gateEncoder) Encode(_ context.Context, _ *core.PixelBuffer, opts core.EncodeOptions) ([]byte, error) {
	if opts.Quality == g.hold {
		close(g.entered)
		<-g.release
	}
	return []byte{byte(opts.Quality * 100)}, nil
}

type sizeStats struct{ orig, comp int64 }

func (s sizeStats) String() string { return "stats" }

func newSessionProcessor(t *testing.T, enc core.Encoder) *core.Processor {
	t.Helper()
	cfg := config.Default()
	cfg.WorkerCount = 2
	reg := core.NewRegistry()
	reg.RegisterEncoder(core.FormatJPEG, enc)
	p := core.New(cfg, reg, pipeline.NewPlanner(reg, nil))
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func solid(t *testing.T, w, h int) *core.PixelBuffer {
	t.Helper()
	buf, err := core.NewPixelBuffer(w, h)
	if err != nil {
		t.Fatal(err)
	}
	for i := range buf.Pix {
		buf.Pix[i] = 200
	}
	return buf
}

func jpegAt(q int) core.CompressionConfig {
	return core.CompressionConfig{Strategy: core.StrategyDirectLossy, Format: core.FormatJPEG, Quality: q}
}

func TestSession_SlowEarlierRunIsDiscarded(t *testing.T) {
	enc := &gateEncoder{hold: 0.1, entered: make(chan struct{}), release: make(chan struct{})}
	proc := newSessionProcessor(t, enc)

	var (
		mu        sync.Mutex
		delivered []core.Run
	)
	got := make(chan core.Run, 2)
	s := proc.NewSession(&core.Decoded{Buffer: solid(t, 8, 8), Format: core.FormatPNG, Size: 1000}, core.SessionOptions{
		Stats: func(orig, comp int64) core.RunStats { return sizeStats{orig, comp} },
		OnResult: func(r core.Run) {
			mu.Lock()
			delivered = append(delivered, r)
			mu.Unlock()
			got <- r
		},
	})

	// Run A stalls inside the encoder.
	if _, err := s.Trigger(context.Background(), jpegAt(10)); err != nil {
		t.Fatalf("Trigger A: %v", err)
	}
	select {
	case <-enc.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("run A never reached the encoder")
	}

	// Run B finishes while A is still blocked.
	seqB, err := s.Trigger(context.Background(), jpegAt(90))
	if err != nil {
		t.Fatalf("Trigger B: %v", err)
	}
	select {
	case r := <-got:
		if r.Seq != seqB {
			t.Fatalf("first delivery: got seq %d, want %d", r.Seq, seqB)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run B was not delivered")
	}

	// A completes last and must not overwrite B.
	close(enc.release)
	s.Wait()

	latest, ok := s.Latest()
	if !ok {
		t.Fatal("no latest run")
	}
	if latest.Seq != seqB || latest.Config.Quality != 90 {
		t.Errorf("latest: got seq %d q%d, want seq %d q90", latest.Seq, latest.Config.Quality, seqB)
	}
	if st, ok := latest.Stats.(sizeStats); !ok || st.orig != 1000 || st.comp != 1 {
		t.Errorf("stats: got %#v", latest.Stats)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Errorf("delivered %d runs, want 1", len(delivered))
	}
}

func TestSession_DelayHonoursCancellation(t *testing.T) {
	cfg := config.Default()
	cfg.WorkerCount = 1
	cfg.Delay = time.Hour
	reg := core.NewRegistry()
	reg.RegisterEncoder(core.FormatJPEG, &gateEncoder{hold: -1})
	proc := core.New(cfg, reg, pipeline.NewPlanner(reg, nil))
	proc.Start()
	defer proc.Stop()

	s := proc.NewSession(&core.Decoded{Buffer: solid(t, 4, 4), Size: 10}, core.SessionOptions{})
	if _, err := s.Trigger(context.Background(), jpegAt(50)); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not cancel the delayed run")
	}
	if _, ok := s.Latest(); ok {
		t.Error("cancelled run must not be the latest run")
	}
}

func TestSession_SeqIncrements(t *testing.T) {
	proc := newSessionProcessor(t, &gateEncoder{hold: -1})
	s := proc.NewSession(&core.Decoded{Buffer: solid(t, 4, 4), Size: 10}, core.SessionOptions{})
	defer s.Close()

	for want := uint64(1); want <= 3; want++ {
		seq, err := s.Trigger(context.Background(), jpegAt(int(want)*10))
		if err != nil {
			t.Fatalf("Trigger: %v", err)
		}
		if seq != want || s.Seq() != want {
			t.Errorf("seq: got %d/%d, want %d", seq, s.Seq(), want)
		}
	}
	s.Wait()
	if r, ok := s.Latest(); !ok || r.Seq != 3 || r.Err != nil {
		t.Errorf("latest: %+v, %v", r, ok)
	}
}

func waitOrFail(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s did not return", what)
	}
}

// A run still queued when the pool stops must be answered, otherwise Wait
// and Close would block forever.
func TestSession_StopWithQueuedRunDoesNotHang(t *testing.T) {
	for i := 0; i < 10; i++ {
		enc := &gateEncoder{hold: 0.1, entered: make(chan struct{}), release: make(chan struct{})}
		cfg := config.Default()
		cfg.WorkerCount = 1
		reg := core.NewRegistry()
		reg.RegisterEncoder(core.FormatJPEG, enc)
		proc := core.New(cfg, reg, pipeline.NewPlanner(reg, nil))
		proc.Start()

		s := proc.NewSession(&core.Decoded{Buffer: solid(t, 4, 4), Size: 10}, core.SessionOptions{})
		if _, err := s.Trigger(context.Background(), jpegAt(10)); err != nil {
			t.Fatalf("Trigger A: %v", err)
		}
		select {
		case <-enc.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("run A never reached the encoder")
		}
		// The only worker is busy, so B stays queued.
		seqB, err := s.Trigger(context.Background(), jpegAt(90))
		if err != nil {
			t.Fatalf("Trigger B: %v", err)
		}

		stopped := make(chan struct{})
		go func() {
			proc.Stop()
			close(stopped)
		}()
		deadline := time.Now().Add(5 * time.Second)
		for {
			err := proc.Submit(core.Job{Buffer: solid(t, 1, 1), Config: jpegAt(50)})
			if errors.Is(err, apperrors.ErrPoolStopped) {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("pool never reported stopped")
			}
			time.Sleep(time.Millisecond)
		}
		close(enc.release)

		waitOrFail(t, "Wait", s.Wait)
		r, ok := s.Latest()
		if !ok || r.Seq != seqB {
			t.Fatalf("latest: %+v, %v", r, ok)
		}
		if r.Err != nil && !errors.Is(r.Err, apperrors.ErrPoolStopped) {
			t.Errorf("queued run error: %v", r.Err)
		}
		waitOrFail(t, "Close", s.Close)
		<-stopped
	}
}

// A result that is never produced must not keep Close waiting.
func TestSession_CloseReturnsWithoutResult(t *testing.T) {
	cfg := config.Default()
	cfg.WorkerCount = 1
	reg := core.NewRegistry()
	reg.RegisterEncoder(core.FormatJPEG, &gateEncoder{hold: -1})
	// Never started: the queued job is only answered by Stop.
	proc := core.New(cfg, reg, pipeline.NewPlanner(reg, nil))

	s := proc.NewSession(&core.Decoded{Buffer: solid(t, 4, 4), Size: 10}, core.SessionOptions{})
	if _, err := s.Trigger(context.Background(), jpegAt(50)); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	waitOrFail(t, "Close", s.Close)
	proc.Stop()
	if _, ok := s.Latest(); ok {
		t.Error("nothing should be delivered after Close")
	}
}

func TestSession_CallbackMayUseSession(t *testing.T) {
	proc := newSessionProcessor(t, &gateEncoder{hold: -1})

	var s *core.Session
	seen := make(chan uint64, 2)
	s = proc.NewSession(&core.Decoded{Buffer: solid(t, 4, 4), Size: 10}, core.SessionOptions{
		OnResult: func(r core.Run) {
			latest, ok := s.Latest()
			if !ok || latest.Seq != r.Seq {
				t.Errorf("Latest inside callback: %+v, %v", latest, ok)
			}
			if s.Seq() == 1 {
				// Re-trigger from the callback.
				if _, err := s.Trigger(context.Background(), jpegAt(80)); err != nil {
					t.Errorf("Trigger inside callback: %v", err)
				}
			}
			seen <- r.Seq
		},
	})
	defer s.Close()

	if _, err := s.Trigger(context.Background(), jpegAt(40)); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	for want := uint64(1); want <= 2; want++ {
		select {
		case got := <-seen:
			if got != want {
				t.Errorf("delivery: got seq %d, want %d", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("callback for seq %d deadlocked", want)
		}
	}
	s.Wait()
	if r, ok := s.Latest(); !ok || r.Seq != 2 || r.Config.Quality != 80 {
		t.Errorf("latest: %+v, %v", r, ok)
	}
}

func TestSession_FailedTriggerKeepsPreviousRun(t *testing.T) {
	cfg := config.Default()
	cfg.WorkerCount = 1
	cfg.QueueSize = 1
	reg := core.NewRegistry()
	reg.RegisterEncoder(core.FormatJPEG, &gateEncoder{hold: -1})
	proc := core.New(cfg, reg, pipeline.NewPlanner(reg, nil))
	t.Cleanup(proc.Stop)

	s := proc.NewSession(&core.Decoded{Buffer: solid(t, 4, 4), Size: 10}, core.SessionOptions{})
	defer s.Close()

	// No workers yet, so the first run fills the queue.
	first, err := s.Trigger(context.Background(), jpegAt(30))
	if err != nil {
		t.Fatalf("Trigger A: %v", err)
	}
	if _, err := s.Trigger(context.Background(), jpegAt(70)); !errors.Is(err, apperrors.ErrWorkerPoolFull) {
		t.Fatalf("Trigger B: got %v, want ErrWorkerPoolFull", err)
	}
	if s.Seq() != first {
		t.Errorf("seq after rejected trigger: got %d, want %d", s.Seq(), first)
	}

	proc.Start()
	waitOrFail(t, "Wait", s.Wait)
	r, ok := s.Latest()
	if !ok || r.Seq != first || r.Err != nil || r.Config.Quality != 30 {
		t.Errorf("previous run was disturbed: %+v, %v", r, ok)
	}
}
