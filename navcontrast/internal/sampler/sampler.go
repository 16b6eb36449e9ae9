// Package sampler reduces a captured band to channel sums over a sparse grid.
package sampler

import (
	"github.com/hazyhaar/navcontrast/navcontrast/internal/capture"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// Defaults, in source pixels.
const (
	DefaultStepX      = 20
	DefaultStepY      = 10
	DefaultBandHeight = 80
)

// Options controls the sampling grid.
type Options struct {
	// StepX is the horizontal stride. Default: 20.
	StepX int
	// StepY is the vertical stride. Default: 10.
	StepY int
	// BandHeight is the vertical extent matching the navbar height. Default: 80.
	BandHeight int
}

func (o *Options) defaults() {
	if o.StepX <= 0 {
		o.StepX = DefaultStepX
	}
	if o.StepY <= 0 {
		o.StepY = DefaultStepY
	}
	if o.BandHeight <= 0 {
		o.BandHeight = DefaultBandHeight
	}
}

// Normalized returns o with non-positive fields replaced by the defaults.
func (o Options) Normalized() Options {
	o.defaults()
	return o
}

// Sample walks the grid y in [0, min(BandHeight, height)) by StepY and
// x in [0, width) by StepX, summing channels. A nil or degenerate snapshot
// returns the empty accumulator.
func Sample(snap *capture.Snapshot, opts Options) theme.Accumulator {
	var acc theme.Accumulator
	if snap == nil {
		return acc
	}
	opts.defaults()

	maxY := min(opts.BandHeight, snap.Height())
	width := snap.Width()

	for y := 0; y < maxY; y += opts.StepY {
		for x := 0; x < width; x += opts.StepX {
			acc.Add(snap.RGB(x, y))
		}
	}
	return acc
}

// GridCount is the number of samples Sample takes for a w×h snapshot.
func GridCount(w, h int, opts Options) int {
	opts.defaults()
	if w <= 0 || h <= 0 {
		return 0
	}
	rows := ceilDiv(min(opts.BandHeight, h), opts.StepY)
	cols := ceilDiv(w, opts.StepX)
	return rows * cols
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
