package pipeline

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-compressor/config"
	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
	"github.com/Skryldev/image-compressor/utils"
)

// Resampler scales a buffer to an exact size.  Implementations must be
// deterministic: identical input and target size give byte-identical output.
type Resampler interface {
	Scale(src *core.PixelBuffer, width, height int) (*core.PixelBuffer, error)
}

// XDrawResampler scales with a golang.org/x/image/draw interpolator.
type XDrawResampler struct {
	Interpolator xdraw.Interpolator
}

func (r XDrawResampler) Scale(src *core.PixelBuffer, width, height int) (*core.PixelBuffer, error) {
	dst, err := core.NewPixelBuffer(width, height)
	if err != nil {
		return nil, err
	}
	in := r.Interpolator
	if in == nil {
		in = xdraw.CatmullRom
	}
	in.Scale(dst.Image(), dst.Image().Bounds(), src.Image(), src.Image().Bounds(), xdraw.Src, nil)
	return dst, nil
}

// NFNTResampler scales with github.com/nfnt/resize.
type NFNTResampler struct {
	Filter resize.InterpolationFunction
}

func (r NFNTResampler) Scale(src *core.PixelBuffer, width, height int) (*core.PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "resize.nfnt",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimension, width, height))
	}
	var img image.Image = resize.Resize(uint(width), uint(height), src.Image(), r.Filter)
	return core.FromImage(img)
}

// ResamplerFor maps a configured resampler name to an implementation.
func ResamplerFor(name config.Resampler) Resampler {
	switch name {
	case config.ResamplerBiLinear:
		return XDrawResampler{Interpolator: xdraw.BiLinear}
	case config.ResamplerLanczos3:
		return NFNTResampler{Filter: resize.Lanczos3}
	default:
		return XDrawResampler{Interpolator: xdraw.CatmullRom}
	}
}

// Resize downsamples buf so neither side exceeds maxDimension.  A buffer
// already within bounds is returned as-is without copying.
func Resize(buf *core.PixelBuffer, maxDimension int, r Resampler) (*core.PixelBuffer, error) {
	if maxDimension <= 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "resize",
			fmt.Errorf("%w: max dimension %d", apperrors.ErrInvalidDimension, maxDimension))
	}
	w, h := utils.FitWithin(buf.Width, buf.Height, maxDimension)
	if w == buf.Width && h == buf.Height {
		return buf, nil
	}
	if w <= 0 || h <= 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "resize",
			fmt.Errorf("%w: %dx%d scales to %dx%d", apperrors.ErrInvalidDimension, buf.Width, buf.Height, w, h))
	}
	if r == nil {
		r = XDrawResampler{}
	}
	return r.Scale(buf, w, h)
}
