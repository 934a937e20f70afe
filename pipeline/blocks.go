package pipeline

import (
	"image"

	"github.com/Skryldev/image-compressor/core"
)

// BlockSize returns max(2, round((100-quality)/10 + 1)): 2 at quality 100,
// 11 at quality 1.
func BlockSize(quality int) int {
	size := (115 - quality) / 10
	if size < 2 {
		return 2
	}
	return size
}

// Blocks partitions a width x height image into size x size tiles in
// row-major order.  Tiles on the right and bottom edges are clipped, so every
// pixel belongs to exactly one tile.
func Blocks(width, height, size int) []image.Rectangle {
	if width <= 0 || height <= 0 || size <= 0 {
		return nil
	}
	cols := (width + size - 1) / size
	rows := (height + size - 1) / size
	out := make([]image.Rectangle, 0, cols*rows)
	for y := 0; y < height; y += size {
		for x := 0; x < width; x += size {
			out = append(out, image.Rect(x, y, min(x+size, width), min(y+size, height)))
		}
	}
	return out
}

// AverageBlocks flattens every BlockSize(quality) tile to its mean color.
func AverageBlocks(buf *core.PixelBuffer, quality int) *core.PixelBuffer {
	return AverageBlocksOfSize(buf, BlockSize(quality))
}

// AverageBlocksOfSize replaces the R, G and B of each size x size tile with
// the tile's floored mean.  Alpha is untouched.  Tiles are disjoint, so the
// visiting order does not affect the result.  It returns a new buffer.
func AverageBlocksOfSize(buf *core.PixelBuffer, size int) *core.PixelBuffer {
	out := buf.Clone()
	pix := out.Pix

	for _, blk := range Blocks(out.Width, out.Height, size) {
		var r, g, b, n uint64
		for y := blk.Min.Y; y < blk.Max.Y; y++ {
			for i := out.Offset(blk.Min.X, y); i < out.Offset(blk.Max.X, y); i += 4 {
				r += uint64(pix[i])
				g += uint64(pix[i+1])
				b += uint64(pix[i+2])
				n++
			}
		}

		mr, mg, mb := uint8(r/n), uint8(g/n), uint8(b/n)
		for y := blk.Min.Y; y < blk.Max.Y; y++ {
			for i := out.Offset(blk.Min.X, y); i < out.Offset(blk.Max.X, y); i += 4 {
				pix[i] = mr
				pix[i+1] = mg
				pix[i+2] = mb
			}
		}
	}
	return out
}
