// Package stats derives size statistics from original and compressed byte
// counts.
package stats

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Snapshot holds the two sizes of one run.  Every derived figure is computed
// from them on demand, so a snapshot can never report a stale ratio.
type Snapshot struct {
	OriginalSize   int64 `json:"original_size"`
	CompressedSize int64 `json:"compressed_size"`
}

// ComputeStats builds a Snapshot.  originalSize is expected to be positive.
func ComputeStats(originalSize, compressedSize int64) Snapshot {
	return Snapshot{OriginalSize: originalSize, CompressedSize: compressedSize}
}

// Expanded reports whether compression failed to shrink the file.
func (s Snapshot) Expanded() bool { return s.CompressedSize >= s.OriginalSize }

// ReductionPercent is round((1 - compressed/original) * 100).  It is negative
// when the output grew.
func (s Snapshot) ReductionPercent() int {
	if s.OriginalSize <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(s.CompressedSize)/float64(s.OriginalSize)) * 100))
}

// Factor is original/compressed when shrinking and compressed/original when
// expanding, so it is always >= 1 for valid sizes.  It is zero when either
// size is not positive.
func (s Snapshot) Factor() float64 {
	if s.OriginalSize <= 0 || s.CompressedSize <= 0 {
		return 0
	}
	if s.Expanded() {
		return float64(s.CompressedSize) / float64(s.OriginalSize)
	}
	return float64(s.OriginalSize) / float64(s.CompressedSize)
}

// Ratio renders "N:1" when shrinking and "1:N" when expanding.  An empty
// output renders as "∞:1"; an unknown original size as "n/a".
func (s Snapshot) Ratio() string {
	switch {
	case s.OriginalSize <= 0:
		return "n/a"
	case s.CompressedSize <= 0:
		return "∞:1"
	}
	if s.Expanded() {
		return fmt.Sprintf("1:%.2f", s.Factor())
	}
	return fmt.Sprintf("%.2f:1", s.Factor())
}

// String summarises the snapshot for logs and terminals.
func (s Snapshot) String() string {
	change := fmt.Sprintf("%d%% smaller", s.ReductionPercent())
	if s.Expanded() {
		change = fmt.Sprintf("%d%% larger", -s.ReductionPercent())
	}
	return fmt.Sprintf("%s -> %s (%s, ratio %s)",
		FormatSize(s.OriginalSize), FormatSize(s.CompressedSize), change, s.Ratio())
}

// Report is the JSON form of a snapshot.
type Report struct {
	OriginalSize     int64  `json:"original_size"`
	CompressedSize   int64  `json:"compressed_size"`
	Original         string `json:"original"`
	Compressed       string `json:"compressed"`
	ReductionPercent int    `json:"reduction_percent"`
	Ratio            string `json:"ratio"`
	Expanded         bool   `json:"expanded"`
}

// Report flattens the derived figures for serialisation.
func (s Snapshot) Report() Report {
	return Report{
		OriginalSize:     s.OriginalSize,
		CompressedSize:   s.CompressedSize,
		Original:         FormatSize(s.OriginalSize),
		Compressed:       FormatSize(s.CompressedSize),
		ReductionPercent: s.ReductionPercent(),
		Ratio:            s.Ratio(),
		Expanded:         s.Expanded(),
	}
}

// FormatSize renders a byte count with binary units ("0 B", "1.5 KiB").
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}
