// Package classify turns channel sums into a light/dark verdict.
package classify

import (
	"errors"

	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// DefaultThreshold is the luminance above which a background is light.
const DefaultThreshold = 150.0

// ErrInsufficientSamples is returned when the accumulator holds no samples.
var ErrInsufficientSamples = errors.New("classify: insufficient samples")

// Luminance applies the BT.601 weights (299, 587, 114 per mille) to channel
// averages on the 0-255 scale.
func Luminance(r, g, b float64) float64 {
	return (r*299 + g*587 + b*114) / 1000
}

// Classify averages the accumulator and compares its luminance against
// threshold. The comparison is strict: luminance == threshold is dark.
// A negative threshold selects DefaultThreshold; zero is a valid threshold.
func Classify(acc theme.Accumulator, threshold float64) (theme.Verdict, error) {
	if acc.Empty() {
		return theme.Verdict{}, ErrInsufficientSamples
	}
	if threshold < 0 {
		threshold = DefaultThreshold
	}

	n := float64(acc.SampleCount)
	v := theme.Verdict{
		AverageR: float64(acc.RedSum) / n,
		AverageG: float64(acc.GreenSum) / n,
		AverageB: float64(acc.BlueSum) / n,
	}
	v.Luminance = Luminance(v.AverageR, v.AverageG, v.AverageB)
	v.IsLight = v.Luminance > threshold
	return v, nil
}

// DefaultVerdict is used when no measurement exists yet. An unknown
// background is treated as light.
func DefaultVerdict() theme.Verdict {
	return theme.Verdict{IsLight: true, Fallback: true}
}
