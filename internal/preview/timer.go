package preview

import (
	"sync"
	"time"

	"hnskin/internal/clock"
)

// timerSlot holds at most one pending callback. Starting the slot replaces
// whatever was pending. The generation counter makes a callback that already
// left the clock but lost the race for mu a no-op.
type timerSlot struct {
	timer *clock.Timer
	gen   uint64
}

// start arms fn to run after d with mu held. The caller must hold mu.
func (s *timerSlot) start(clk clock.Clock, d time.Duration, mu sync.Locker, fn func()) {
	s.stop()
	gen := s.gen
	s.timer = clk.AfterFunc(d, func() {
		mu.Lock()
		defer mu.Unlock()
		if s.gen != gen {
			return
		}
		s.timer = nil
		s.gen++
		fn()
	})
}

// stop cancels the pending callback, if any. The caller must hold mu.
func (s *timerSlot) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *timerSlot) pending() bool {
	return s.timer != nil
}
