package preview

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hnskin/internal/cache"
	"hnskin/internal/clock"
	"hnskin/internal/types"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profile(username string) *types.ProfileRecord {
	return &types.ProfileRecord{
		Username:       username,
		JoinDate:       "Jan 1, 2015",
		Karma:          4321,
		SubmissionsURL: "https://news.ycombinator.com/submitted?id=" + username,
		CommentsURL:    "https://news.ycombinator.com/threads?id=" + username,
	}
}

// recordingSurface keeps everything the presenter did to it
type recordingSurface struct {
	mu         sync.Mutex
	frames     []Frame
	places     []Point
	visible    bool
	shows      int
	hides      int
	size       Size
	measurable bool
}

func (s *recordingSurface) Render(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *recordingSurface) Place(p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = append(s.places, p)
}

func (s *recordingSurface) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
	if visible {
		s.shows++
	} else {
		s.hides++
	}
}

func (s *recordingSurface) Measure() (Size, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size, s.measurable
}

func (s *recordingSurface) lastFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}
	}
	return s.frames[len(s.frames)-1]
}

func (s *recordingSurface) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSurface) lastPlace() Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.places) == 0 {
		return Point{}
	}
	return s.places[len(s.places)-1]
}

func (s *recordingSurface) isVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *recordingSurface) hasFrame(state ViewState, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.frames {
		if f.State == state && f.Username == username {
			return true
		}
	}
	return false
}

// gatedFetcher blocks each fetch until the test releases its username
type gatedFetcher struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan *types.ProfileRecord
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[string]chan *types.ProfileRecord)}
}

func (f *gatedFetcher) gate(username string) chan *types.ProfileRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[username]
	if !ok {
		ch = make(chan *types.ProfileRecord)
		f.gates[username] = ch
	}
	return ch
}

func (f *gatedFetcher) Fetch(ctx context.Context, username string) *types.ProfileRecord {
	f.mu.Lock()
	f.calls = append(f.calls, username)
	f.mu.Unlock()

	select {
	case record := <-f.gate(username):
		return record
	case <-ctx.Done():
		return nil
	}
}

func (f *gatedFetcher) release(username string, record *types.ProfileRecord) {
	f.gate(username) <- record
}

func (f *gatedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingMetrics struct {
	hits, misses, fetchOK, fetchFailed, stale atomic.Int64
}

func (m *countingMetrics) CacheHit()  { m.hits.Add(1) }
func (m *countingMetrics) CacheMiss() { m.misses.Add(1) }
func (m *countingMetrics) FetchResult(ok bool) {
	if ok {
		m.fetchOK.Add(1)
	} else {
		m.fetchFailed.Add(1)
	}
}
func (m *countingMetrics) StaleDropped() { m.stale.Add(1) }

// harness drives an Engine with fake time
type harness struct {
	t        *testing.T
	clock    *clock.FakeClock
	surface  *recordingSurface
	fetcher  *gatedFetcher
	profiles *cache.ProfileCache
	metrics  *countingMetrics
	engine   *Engine
}

var (
	linkRect = Rect{Top: 100, Left: 50, Right: 90, Bottom: 115}
	testView = Viewport{Width: 1024, Height: 768}
)

func newHarness(t *testing.T, configure ...func(*EngineConfig)) *harness {
	t.Helper()
	renderer, err := NewRenderer("https://news.ycombinator.com")
	require.NoError(t, err)

	h := &harness{
		t:       t,
		clock:   clock.Fake(epoch),
		surface: &recordingSurface{},
		fetcher: newGatedFetcher(),
		metrics: &countingMetrics{},
	}
	h.profiles = cache.NewProfileCache(100, 5*time.Minute, h.clock)

	cfg := EngineConfig{
		SiteHost: "news.ycombinator.com",
		Profiles: h.profiles,
		Fetcher:  h.fetcher,
		Renderer: renderer,
		Clock:    h.clock,
		Metrics:  h.metrics,
		Logger:   quietLogger(),
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	h.engine = NewEngine(context.Background(), h.surface, cfg)
	t.Cleanup(h.engine.Close)
	return h
}

func linkElement(username string) *Element {
	return &Element{Href: "user?id=" + username, Rect: linkRect}
}

var (
	surfaceElement = &Element{Surface: true}
	plainElement   = &Element{Href: "item?id=1"}
)

func (h *harness) enterLink(username string) {
	h.engine.Dispatch(PointerEvent{Phase: PhaseEnter, Target: *linkElement(username), Viewport: testView})
}

func (h *harness) leaveLink(username string, to *Element) {
	h.engine.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *linkElement(username), Related: to, Viewport: testView})
}

func (h *harness) enterSurface() {
	h.engine.Dispatch(PointerEvent{Phase: PhaseEnter, Target: *surfaceElement, Viewport: testView})
}

func (h *harness) leaveSurface(to *Element) {
	h.engine.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *surfaceElement, Related: to, Viewport: testView})
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
}

func (h *harness) requireState(want State, username string) {
	h.t.Helper()
	state, name := h.engine.State()
	require.Equal(h.t, want, state, "state")
	require.Equal(h.t, username, name, "username")
}

// waitFrame waits for a frame rendered from a fetch goroutine
func (h *harness) waitFrame(state ViewState, username string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.surface.hasFrame(state, username)
	}, 2*time.Second, time.Millisecond, "no %s frame for %s", state, username)
}

// showProfile hovers username until its popover shows resolved content
func (h *harness) showProfile(username string) {
	h.t.Helper()
	h.enterLink(username)
	h.advance(DefaultShowDelay)
	h.fetcher.release(username, profile(username))
	h.waitFrame(StateContent, username)
}
