package theme

// Reason explains why an Event was published.
type Reason string

const (
	ReasonMount    Reason = "mount"    // trigger started
	ReasonScroll   Reason = "scroll"   // scroll state transition
	ReasonMeasured Reason = "measured" // a classification cycle was applied
	ReasonFallback Reason = "fallback" // a cycle failed, previous or default verdict reused
)

// Event is the unit published to sinks. One event per scroll-state
// transition and per applied classification cycle.
type Event struct {
	ID        string      `json:"id"` // UUIDv7
	PageID    string      `json:"page_id"`
	PageURL   string      `json:"page_url"`
	Seq       uint64      `json:"seq"` // cycle sequence the verdict belongs to
	State     ScrollState `json:"state"`
	Reason    Reason      `json:"reason"`
	Verdict   Verdict     `json:"verdict"`
	Theme     Theme       `json:"theme"`
	Error     string      `json:"error,omitempty"` // cause of a fallback
	Timestamp int64       `json:"timestamp"`       // epoch milliseconds
}
