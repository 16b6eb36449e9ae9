package observer

import (
	"encoding/json"
	"fmt"
)

// Listener receives page events. *trigger.Trigger implements it.
type Listener interface {
	Scroll(offset int)
	ContentChanged()
	Resize(width, height int)
}

type eventType string

const (
	eventScroll   eventType = "scroll"
	eventResize   eventType = "resize"
	eventMutation eventType = "mutation"
)

// pageEvent is one message from the injected script.
type pageEvent struct {
	Type eventType `json:"type"`
	Y    float64   `json:"y"`
	W    float64   `json:"w"`
	H    float64   `json:"h"`
}

func parseEvent(payload string) (pageEvent, error) {
	var ev pageEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("observer: parse binding payload: %w", err)
	}
	switch ev.Type {
	case eventScroll, eventResize, eventMutation:
		return ev, nil
	default:
		return ev, fmt.Errorf("observer: unknown event type %q", ev.Type)
	}
}

// dispatch forwards ev to l. Negative offsets (overscroll bounce) count as 0.
func dispatch(ev pageEvent, l Listener) {
	switch ev.Type {
	case eventScroll:
		y := int(ev.Y)
		if y < 0 {
			y = 0
		}
		l.Scroll(y)
	case eventResize:
		l.Resize(int(ev.W), int(ev.H))
	case eventMutation:
		l.ContentChanged()
	}
}
