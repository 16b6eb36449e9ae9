// Package theme defines the types emitted by navcontrast. Consumers that
// render a navbar import this package to read verdicts and theme selectors.
package theme

// ScrollState is the viewport position class tracked per page.
type ScrollState string

const (
	AtTop    ScrollState = "at_top"   // offset <= scroll threshold, background is sampled
	Scrolled ScrollState = "scrolled" // offset > scroll threshold, navbar is solid
)

// Accumulator holds channel sums for one sampling pass. The zero value is
// the "no data" sentinel.
type Accumulator struct {
	RedSum      uint64 `json:"red_sum"`
	GreenSum    uint64 `json:"green_sum"`
	BlueSum     uint64 `json:"blue_sum"`
	SampleCount uint64 `json:"sample_count"`
}

// Add folds a single pixel into the sums.
func (a *Accumulator) Add(r, g, b uint8) {
	a.RedSum += uint64(r)
	a.GreenSum += uint64(g)
	a.BlueSum += uint64(b)
	a.SampleCount++
}

// Empty reports whether no pixel was sampled.
func (a Accumulator) Empty() bool { return a.SampleCount == 0 }

// Verdict is the light/dark classification of the band beneath the navbar.
type Verdict struct {
	AverageR  float64 `json:"average_r"`
	AverageG  float64 `json:"average_g"`
	AverageB  float64 `json:"average_b"`
	Luminance float64 `json:"luminance"`
	IsLight   bool    `json:"is_light"`

	// Fallback is set when the verdict was not measured but substituted
	// after a failed cycle on a page with no prior measurement.
	Fallback bool `json:"fallback,omitempty"`
}

// Theme is the presentation-facing selector. UseLightBackgroundStyling is
// the whole contract; the remaining fields are the concrete variants it keys.
type Theme struct {
	UseLightBackgroundStyling bool   `json:"use_light_background_styling"`
	TextClass                 string `json:"text_class"`
	LogoVariant               string `json:"logo_variant"`
	Background                string `json:"background"`
}

// Derive maps a scroll state and a light verdict to a Theme. A scrolled
// navbar is solid white, so it always takes the light-background styling.
func Derive(state ScrollState, isLight bool) Theme {
	light := state == Scrolled || isLight

	t := Theme{UseLightBackgroundStyling: light}
	if light {
		t.TextClass = "text-gray-900"
		t.LogoVariant = "dark"
	} else {
		t.TextClass = "text-white"
		t.LogoVariant = "light"
	}
	if state == Scrolled {
		t.Background = "solid"
	} else {
		t.Background = "transparent"
	}
	return t
}
