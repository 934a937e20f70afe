// Package pipeline wires steps together and runs hooks around them.
package pipeline

import (
	"context"
	"time"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// Pipeline executes a sequence of Steps with hook support.  Steps are
// deterministic, so failures are returned as-is and never retried.
type Pipeline struct {
	steps []core.Step
	hooks []core.Hook
}

// New returns an empty Pipeline.
func New() *Pipeline { return &Pipeline{} }

// Use appends a step to the pipeline.  Returns the same Pipeline for chaining.
func (p *Pipeline) Use(s ...core.Step) *Pipeline {
	p.steps = append(p.steps, s...)
	return p
}

// AddHook registers an observer.
func (p *Pipeline) AddHook(h ...core.Hook) *Pipeline {
	p.hooks = append(p.hooks, h...)
	return p
}

// Steps returns the names of the configured steps in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes the pipeline on f.  It returns the final Frame and a map of
// per-step timing observations.
func (p *Pipeline) Run(ctx context.Context, f *core.Frame) (*core.Frame, map[string]time.Duration, error) {
	timings := make(map[string]time.Duration, len(p.steps))
	current := f

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, timings, apperrors.Wrap(apperrors.CategoryPipeline, step.Name(), err)
		}

		p.callHooksBefore(ctx, step.Name(), current)
		start := time.Now()
		result, err := step.Execute(ctx, current)
		elapsed := time.Since(start)
		timings[step.Name()] = elapsed
		p.callHooksAfter(ctx, step.Name(), result, elapsed, err)

		if err != nil {
			return nil, timings, err
		}
		current = result
	}
	return current, timings, nil
}

func (p *Pipeline) callHooksBefore(ctx context.Context, name string, f *core.Frame) {
	for _, h := range p.hooks {
		h.BeforeStep(ctx, name, f)
	}
}

func (p *Pipeline) callHooksAfter(ctx context.Context, name string, f *core.Frame, d time.Duration, err error) {
	for _, h := range p.hooks {
		h.AfterStep(ctx, name, f, d, err)
	}
}

var _ core.PipelineRunner = (*Pipeline)(nil)
