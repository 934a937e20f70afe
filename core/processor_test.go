package core_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-compressor/config"
	"github.com/Skryldev/image-compressor/core"
	"github.com/Skryldev/image-compressor/core/mock_core"
	apperrors "github.com/Skryldev/image-compressor/errors"
	"github.com/Skryldev/image-compressor/pipeline"
	"github.com/Skryldev/image-compressor/utils"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func newDecodeProcessor(t *testing.T, cfg config.Config) (*core.Processor, *mock_core.MockDecoder) {
	t.Helper()
	dec := mock_core.NewMockDecoder(gomock.NewController(t))
	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatPNG, dec)
	return core.New(cfg, reg, pipeline.NewPlanner(reg, nil)), dec
}

func TestDecode_SniffsFormat(t *testing.T) {
	proc, dec := newDecodeProcessor(t, config.Default())
	want := solid(t, 3, 2)
	dec.EXPECT().Decode(gomock.Any(), gomock.Any()).Return(want, nil)

	got, err := proc.Decode(context.Background(), core.Source{Reader: bytes.NewReader(pngMagic)})
	require.NoError(t, err)
	assert.Equal(t, core.FormatPNG, got.Format)
	assert.EqualValues(t, len(pngMagic), got.Size)
	assert.Same(t, want, got.Buffer)
}

func TestDecode_ContentTypeFallback(t *testing.T) {
	proc, dec := newDecodeProcessor(t, config.Default())
	dec.EXPECT().Decode(gomock.Any(), gomock.Any()).Return(solid(t, 1, 1), nil)

	got, err := proc.Decode(context.Background(), core.Source{
		Reader:      bytes.NewReader([]byte("opaque bytes")),
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, core.FormatPNG, got.Format)
}

func TestDecode_Errors(t *testing.T) {
	t.Run("decoder failure", func(t *testing.T) {
		proc, dec := newDecodeProcessor(t, config.Default())
		dec.EXPECT().Decode(gomock.Any(), gomock.Any()).Return(nil, errors.New("corrupt"))

		_, err := proc.Decode(context.Background(), core.Source{Reader: bytes.NewReader(pngMagic)})
		assert.True(t, apperrors.IsDecodeError(err))
	})

	t.Run("no decoder", func(t *testing.T) {
		proc, dec := newDecodeProcessor(t, config.Default())
		dec.EXPECT().CanDecode(core.FormatUnknown).Return(false)
		_, err := proc.Decode(context.Background(), core.Source{Reader: bytes.NewReader([]byte("GIF89a......"))})
		assert.True(t, apperrors.IsDecodeError(err))
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
	})

	t.Run("empty", func(t *testing.T) {
		proc, _ := newDecodeProcessor(t, config.Default())
		_, err := proc.Decode(context.Background(), core.Source{Reader: bytes.NewReader(nil)})
		assert.True(t, apperrors.IsDecodeError(err))
		assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
	})

	t.Run("too large", func(t *testing.T) {
		cfg := config.Default()
		cfg.MaxImageBytes = 4
		proc, _ := newDecodeProcessor(t, cfg)
		_, err := proc.Decode(context.Background(), core.Source{Reader: bytes.NewReader(pngMagic)})
		assert.True(t, apperrors.IsDecodeError(err))
		assert.ErrorIs(t, err, utils.ErrTooLarge)
	})
}

func TestCompressionConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  core.CompressionConfig
		want error
	}{
		{"ok", core.CompressionConfig{Strategy: core.StrategyDirectLossy, Format: core.FormatJPEG, Quality: 1}, nil},
		{"quantization without format", core.CompressionConfig{Strategy: core.StrategyColorQuantization, Quality: 100}, nil},
		{"quality zero", core.CompressionConfig{Strategy: core.StrategyBlockAveraging, Quality: 0}, apperrors.ErrInvalidQuality},
		{"quality too high", core.CompressionConfig{Strategy: core.StrategyBlockAveraging, Quality: 101}, apperrors.ErrInvalidQuality},
		{"unknown strategy", core.CompressionConfig{Strategy: "fractal", Quality: 50}, apperrors.ErrInvalidStrategy},
		{"direct without format", core.CompressionConfig{Strategy: core.StrategyDirectLossy, Quality: 50}, apperrors.ErrUnsupportedFormat},
	}
	for _, tc := range tests {
		err := tc.cfg.Validate()
		if tc.want == nil {
			assert.NoError(t, err, tc.name)
			continue
		}
		assert.ErrorIs(t, err, tc.want, tc.name)
		assert.True(t, apperrors.IsCategory(err, apperrors.CategoryInput), tc.name)
	}
}

func TestCompress_RejectsBadBuffer(t *testing.T) {
	proc, _ := newDecodeProcessor(t, config.Default())
	bad := &core.PixelBuffer{Width: 4, Height: 4, Pix: make([]uint8, 10)}
	_, err := proc.Compress(context.Background(), bad,
		core.CompressionConfig{Strategy: core.StrategyBlockAveraging, Quality: 50}, 0)
	assert.True(t, apperrors.IsInvalidDimension(err))
}

func TestSubmit_AfterStop(t *testing.T) {
	proc, _ := newDecodeProcessor(t, config.Default())
	proc.Start()
	proc.Stop()
	err := proc.Submit(core.Job{Buffer: solid(t, 1, 1)})
	assert.ErrorIs(t, err, apperrors.ErrPoolStopped)
}

func TestStop_AnswersQueuedJobs(t *testing.T) {
	proc, _ := newDecodeProcessor(t, config.Default())
	resultCh := make(chan core.JobResult, 2)
	for seq := uint64(1); seq <= 2; seq++ {
		require.NoError(t, proc.Submit(core.Job{Seq: seq, Buffer: solid(t, 1, 1), ResultCh: resultCh}))
	}

	// Workers never started, so both jobs are still queued.
	proc.Stop()
	for want := uint64(1); want <= 2; want++ {
		jr := <-resultCh
		assert.Equal(t, want, jr.Seq)
		assert.ErrorIs(t, jr.Err, apperrors.ErrPoolStopped)
		assert.Nil(t, jr.Result)
	}
}

func TestPixelBuffer(t *testing.T) {
	_, err := core.NewPixelBuffer(0, 5)
	assert.True(t, apperrors.IsInvalidDimension(err))

	buf := solid(t, 3, 2)
	clone := buf.Clone()
	clone.Pix[0] = 1
	assert.Equal(t, uint8(200), buf.Pix[0], "clone must not share storage")
	assert.Equal(t, (1*3+2)*4, buf.Offset(2, 1))

	img := image.NewRGBA(image.Rect(10, 10, 12, 11))
	img.Set(10, 10, color.RGBA{R: 255, A: 255})
	img.Set(11, 10, color.RGBA{G: 255, A: 255})
	fromRGBA, err := core.FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 255, 0, 255}, fromRGBA.Pix)
	assert.NoError(t, fromRGBA.Validate())
}

func TestPresets(t *testing.T) {
	ids := []string{}
	for _, p := range core.Presets() {
		ids = append(ids, p.ID)
		assert.True(t, p.Strategy.Valid(), p.ID)
		assert.NoError(t, p.Config(50).Validate(), p.ID)
	}
	assert.Equal(t, []string{"jpeg", "webp", "quantization", "dct"}, ids)

	_, ok := core.LookupPreset("gif")
	assert.False(t, ok)
}

func TestFormatNaming(t *testing.T) {
	assert.Equal(t, "jpg", core.FormatJPEG.Extension())
	assert.Equal(t, "image/webp", core.FormatWebP.MIMEType())
	assert.Equal(t, core.FormatJPEG, core.ParseFormat("image/jpg"))
	assert.Equal(t, core.FormatUnknown, core.ParseFormat("image/gif"))
	assert.True(t, core.FormatPNG.Lossless())
}
