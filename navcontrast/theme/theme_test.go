package theme

import "testing"

func TestDerive_AtTopLight(t *testing.T) {
	got := Derive(AtTop, true)
	if !got.UseLightBackgroundStyling {
		t.Fatal("light verdict at top: want light-background styling")
	}
	if got.TextClass != "text-gray-900" || got.LogoVariant != "dark" {
		t.Errorf("variants: got %q/%q", got.TextClass, got.LogoVariant)
	}
	if got.Background != "transparent" {
		t.Errorf("Background: got %q, want transparent", got.Background)
	}
}

func TestDerive_AtTopDark(t *testing.T) {
	got := Derive(AtTop, false)
	if got.UseLightBackgroundStyling {
		t.Fatal("dark verdict at top: want dark-background styling")
	}
	if got.TextClass != "text-white" || got.LogoVariant != "light" {
		t.Errorf("variants: got %q/%q", got.TextClass, got.LogoVariant)
	}
}

func TestDerive_ScrolledIgnoresVerdict(t *testing.T) {
	for _, isLight := range []bool{true, false} {
		got := Derive(Scrolled, isLight)
		if !got.UseLightBackgroundStyling {
			t.Errorf("scrolled isLight=%v: want light-background styling", isLight)
		}
		if got.Background != "solid" {
			t.Errorf("scrolled isLight=%v: Background %q, want solid", isLight, got.Background)
		}
	}
}

func TestAccumulator_Add(t *testing.T) {
	var a Accumulator
	if !a.Empty() {
		t.Fatal("zero accumulator must be empty")
	}
	a.Add(10, 20, 30)
	a.Add(1, 2, 3)
	if a.RedSum != 11 || a.GreenSum != 22 || a.BlueSum != 33 || a.SampleCount != 2 {
		t.Fatalf("sums: got %+v", a)
	}
	if a.Empty() {
		t.Fatal("accumulator with samples reported empty")
	}
}

func TestEventUnmarshal_Fields(t *testing.T) {
	data := []byte(`{"id":"e1","page_id":"home","seq":3,"state":"scrolled","reason":"scroll",
		"verdict":{"luminance":42.5,"is_light":false},
		"theme":{"use_light_background_styling":true,"background":"solid"}}`)

	got, err := UnmarshalEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != Scrolled || got.Reason != ReasonScroll {
		t.Errorf("state/reason: got %q/%q", got.State, got.Reason)
	}
	if got.Verdict.Luminance != 42.5 || got.Verdict.IsLight {
		t.Errorf("verdict: got %+v", got.Verdict)
	}
	if !got.Theme.UseLightBackgroundStyling {
		t.Error("theme: want light-background styling")
	}
}
