package core

import (
	"fmt"
	"image"
	"image/draw"

	apperrors "github.com/Skryldev/image-compressor/errors"
)

// PixelBuffer is an in-memory raster: interleaved, non-premultiplied R,G,B,A
// samples in row-major order.  len(Pix) == Width*Height*4 always holds.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer allocates a zeroed buffer of the given size.
func NewPixelBuffer(width, height int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "pixelbuffer.new",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimension, width, height))
	}
	return &PixelBuffer{Width: width, Height: height, Pix: make([]uint8, width*height*4)}, nil
}

// Validate checks the size invariant.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return apperrors.New(apperrors.CategoryInput, "pixelbuffer.validate", apperrors.ErrEmptyInput)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return apperrors.New(apperrors.CategoryInput, "pixelbuffer.validate",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimension, b.Width, b.Height))
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return apperrors.New(apperrors.CategoryInput, "pixelbuffer.validate",
			fmt.Errorf("%w: %d samples for %dx%d", apperrors.ErrInvalidDimension, len(b.Pix), b.Width, b.Height))
	}
	return nil
}

// Clone returns a deep copy that shares no storage with b.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Offset returns the index of the R sample of pixel (x, y).
func (b *PixelBuffer) Offset(x, y int) int { return (y*b.Width + x) * 4 }

// Image exposes the buffer as an *image.NRGBA without copying.  The returned
// image aliases b, so callers must treat it as read-only.
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromImage converts any image.Image into a freshly allocated PixelBuffer.
func FromImage(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "pixelbuffer.from_image", apperrors.ErrEmptyInput)
	}
	bounds := img.Bounds()
	buf, err := NewPixelBuffer(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	// Fast path: tightly packed NRGBA at the origin.
	if src, ok := img.(*image.NRGBA); ok && src.Stride == bounds.Dx()*4 && bounds.Min == (image.Point{}) {
		copy(buf.Pix, src.Pix)
		return buf, nil
	}

	draw.Draw(buf.Image(), buf.Image().Bounds(), img, bounds.Min, draw.Src)
	return buf, nil
}
