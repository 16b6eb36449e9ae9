package trigger

import "time"

// DefaultSettle is the quiet period before a scheduled cycle captures.
const DefaultSettle = 150 * time.Millisecond

// settler defers a classification cycle until the rendering engine has had
// the settle window to paint. Re-arming restarts the window, so a burst of
// schedule requests collapses into one cycle, but never past maxWait from
// the first arm.
type settler struct {
	window  time.Duration
	maxWait time.Duration
	first   time.Time
	timer   *time.Timer
	timerCh <-chan time.Time
}

func newSettler(window, maxWait time.Duration) *settler {
	if window <= 0 {
		window = DefaultSettle
	}
	if maxWait < window {
		maxWait = window
	}
	return &settler{window: window, maxWait: maxWait}
}

// arm (re)starts the settle window, clamped to the max-wait deadline.
func (s *settler) arm() {
	now := time.Now()
	if s.timerCh == nil {
		s.first = now
	}
	d := s.window
	if rem := s.first.Add(s.maxWait).Sub(now); rem < d {
		d = max(rem, 0)
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.NewTimer(d)
	s.timerCh = s.timer.C
}

// armed reports whether a window is pending.
func (s *settler) armed() bool { return s.timerCh != nil }

// timerC fires when the window expires. Nil (blocks forever) when disarmed.
func (s *settler) timerC() <-chan time.Time {
	return s.timerCh
}

// stop disarms the window without firing.
func (s *settler) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
		s.timerCh = nil
	}
}
