package pipeline

import "github.com/Skryldev/image-compressor/core"

// PaletteThreshold is the palette size below which a quantized image is
// encoded losslessly.
const PaletteThreshold = 256

// ColorLevels returns the number of levels per channel for a quality in
// [1,100]: max(2, round(quality/4)), so 2 at the low end and 25 at 100.
func ColorLevels(quality int) int {
	levels := (quality + 2) / 4
	if levels < 2 {
		return 2
	}
	return levels
}

// BucketWidth returns floor(256/levels).
func BucketWidth(levels int) int { return 256 / levels }

// Quantize maps R, G and B of every pixel onto a uniform grid of step
// BucketWidth(ColorLevels(quality)).  Alpha is untouched.  It returns a new
// buffer and the number of distinct RGB triples in it.
func Quantize(buf *core.PixelBuffer, quality int) (*core.PixelBuffer, int) {
	width := BucketWidth(ColorLevels(quality))
	out := buf.Clone()

	// Each channel can take 255/width+1 values, so the palette fits in a
	// dense lookup table.
	steps := 255/width + 1
	seen := make([]bool, steps*steps*steps)
	palette := 0

	pix := out.Pix
	for i := 0; i < len(pix); i += 4 {
		r := int(pix[i]) / width
		g := int(pix[i+1]) / width
		b := int(pix[i+2]) / width

		pix[i] = uint8(r * width)
		pix[i+1] = uint8(g * width)
		pix[i+2] = uint8(b * width)

		if idx := (r*steps+g)*steps + b; !seen[idx] {
			seen[idx] = true
			palette++
		}
	}
	return out, palette
}
