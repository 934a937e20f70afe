package pipeline

import (
	"fmt"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// Planner builds the step sequence for a strategy:
//
//	direct:       resize -> encode
//	quantization: resize -> quantize -> encode
//	dct:          resize -> block_average -> encode
type Planner struct {
	Registry  core.Registry
	Resampler Resampler
}

// NewPlanner returns a Planner encoding through reg.
func NewPlanner(reg core.Registry, r Resampler) *Planner {
	return &Planner{Registry: reg, Resampler: r}
}

func (p *Planner) Plan(cfg core.CompressionConfig, maxDimension int, hooks []core.Hook) (core.PipelineRunner, error) {
	pl, err := p.Build(cfg, maxDimension)
	if err != nil {
		return nil, err
	}
	return pl.AddHook(hooks...), nil
}

// Build returns the concrete pipeline for cfg.
func (p *Planner) Build(cfg core.CompressionConfig, maxDimension int) (*Pipeline, error) {
	pl := New().Use(&ResizeStep{MaxDimension: maxDimension, Resampler: p.Resampler})

	switch cfg.Strategy {
	case core.StrategyDirectLossy:
	case core.StrategyColorQuantization:
		pl.Use(&QuantizeStep{Quality: cfg.Quality})
	case core.StrategyBlockAveraging:
		pl.Use(&BlockAverageStep{Quality: cfg.Quality})
	default:
		return nil, apperrors.New(apperrors.CategoryInput, "plan",
			fmt.Errorf("%w: %q", apperrors.ErrInvalidStrategy, cfg.Strategy))
	}

	return pl.Use(&EncodeStep{Registry: p.Registry}), nil
}

var _ core.Planner = (*Planner)(nil)
