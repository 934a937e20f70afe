package pipeline_test

import (
	"testing"

	"github.com/nfnt/resize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-compressor/config"
	apperrors "github.com/Skryldev/image-compressor/errors"
	"github.com/Skryldev/image-compressor/pipeline"
)

func TestResize_WithinBoundsIsNoOp(t *testing.T) {
	src := gradient(t, 640, 480)
	out, err := pipeline.Resize(src, 1920, nil)
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestResize_LongestSideBecomesMax(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{3000, 1000, 1920, 1920, 640},
		{1000, 3000, 1920, 640, 1920},
		{2000, 2000, 1920, 1920, 1920},
		{1921, 1, 1920, 1920, 1},
		{801, 600, 400, 400, 300},
	}
	for _, tc := range tests {
		out, err := pipeline.Resize(gradient(t, tc.w, tc.h), tc.max, nil)
		require.NoError(t, err, "%dx%d", tc.w, tc.h)
		assert.Equal(t, tc.wantW, out.Width, "%dx%d width", tc.w, tc.h)
		assert.Equal(t, tc.wantH, out.Height, "%dx%d height", tc.w, tc.h)
		require.NoError(t, out.Validate())
	}
}

func TestResize_Deterministic(t *testing.T) {
	src := gradient(t, 300, 200)
	for _, name := range []config.Resampler{config.ResamplerCatmullRom, config.ResamplerBiLinear, config.ResamplerLanczos3} {
		r := pipeline.ResamplerFor(name)
		a, err := pipeline.Resize(src, 100, r)
		require.NoError(t, err)
		b, err := pipeline.Resize(src, 100, r)
		require.NoError(t, err)
		assert.Equal(t, a.Pix, b.Pix, "resampler %s", name)
		assert.Equal(t, 100, a.Width)
		assert.Equal(t, 67, a.Height)
	}
}

func TestResize_InvalidDimension(t *testing.T) {
	_, err := pipeline.Resize(gradient(t, 10000, 1), 1920, nil)
	assert.True(t, apperrors.IsInvalidDimension(err), "got %v", err)

	_, err = pipeline.Resize(gradient(t, 10, 10), 0, nil)
	assert.True(t, apperrors.IsInvalidDimension(err), "got %v", err)
}

func TestResamplerFor(t *testing.T) {
	assert.Equal(t, pipeline.XDrawResampler{Interpolator: xdraw.CatmullRom}, pipeline.ResamplerFor(config.ResamplerCatmullRom))
	assert.Equal(t, pipeline.XDrawResampler{Interpolator: xdraw.BiLinear}, pipeline.ResamplerFor(config.ResamplerBiLinear))
	assert.IsType(t, pipeline.NFNTResampler{}, pipeline.ResamplerFor(config.ResamplerLanczos3))
	assert.Equal(t, resize.Lanczos3, pipeline.ResamplerFor(config.ResamplerLanczos3).(pipeline.NFNTResampler).Filter)
}
