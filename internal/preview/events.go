package preview

import (
	"net/url"
	"strings"
	"sync"
)

// Phase is the kind of a raw pointer transition
type Phase string

const (
	PhaseEnter Phase = "enter"
	PhaseLeave Phase = "leave"
)

// Element is the part of a DOM element the engine cares about. Surface is
// set for the popover and anything inside it.
type Element struct {
	Href    string `json:"href,omitempty"`
	Surface bool   `json:"surface,omitempty"`
	Rect    Rect   `json:"rect"`
}

// PointerEvent is a raw enter or leave reported by the page. Related is the
// element the pointer came from (enter) or moved to (leave), nil for the
// window.
type PointerEvent struct {
	Phase    Phase    `json:"phase"`
	Target   Element  `json:"target"`
	Related  *Element `json:"related"`
	Viewport Viewport `json:"viewport"`
}

// Landing says where the pointer went after leaving something
type Landing int

const (
	LandingElsewhere Landing = iota
	LandingSurface
	LandingLink
)

func (l Landing) String() string {
	switch l {
	case LandingSurface:
		return "surface"
	case LandingLink:
		return "link"
	default:
		return "elsewhere"
	}
}

// Trigger is a profile link the pointer is over
type Trigger struct {
	Username string
	Rect     Rect
	Viewport Viewport
}

// Listener receives the logical hover events produced by a Delegator
type Listener interface {
	LinkEntered(t Trigger)
	LinkLeft(t Trigger, landing Landing)
	SurfaceEntered()
	SurfaceLeft(landing Landing)
}

// Delegator classifies raw pointer events from one page and fans the
// resulting logical events out to its subscribers.
type Delegator struct {
	host string

	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

// NewDelegator creates a delegator that also accepts absolute profile links
// on siteHost (e.g. "news.ycombinator.com").
func NewDelegator(siteHost string) *Delegator {
	return &Delegator{
		host:      strings.ToLower(siteHost),
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers l and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (d *Delegator) Subscribe(l Listener) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// Dispatch classifies ev and notifies subscribers. Events on elements that
// are neither a profile link nor the surface are ignored, as are moves
// between two parts of the same surface or link.
func (d *Delegator) Dispatch(ev PointerEvent) {
	target := ev.Target
	switch {
	case target.Surface:
		if ev.Related != nil && ev.Related.Surface {
			return
		}
		switch ev.Phase {
		case PhaseEnter:
			d.each(func(l Listener) { l.SurfaceEntered() })
		case PhaseLeave:
			landing := d.landing(ev.Related)
			d.each(func(l Listener) { l.SurfaceLeft(landing) })
		}

	default:
		username, ok := ProfileUsername(target.Href, d.host)
		if !ok {
			return
		}
		if ev.Related != nil && !ev.Related.Surface && ev.Related.Href == target.Href && ev.Related.Rect == target.Rect {
			return
		}
		trigger := Trigger{Username: username, Rect: target.Rect, Viewport: ev.Viewport}
		switch ev.Phase {
		case PhaseEnter:
			d.each(func(l Listener) { l.LinkEntered(trigger) })
		case PhaseLeave:
			landing := d.landing(ev.Related)
			d.each(func(l Listener) { l.LinkLeft(trigger, landing) })
		}
	}
}

func (d *Delegator) landing(related *Element) Landing {
	switch {
	case related == nil:
		return LandingElsewhere
	case related.Surface:
		return LandingSurface
	}
	if _, ok := ProfileUsername(related.Href, d.host); ok {
		return LandingLink
	}
	return LandingElsewhere
}

func (d *Delegator) each(fn func(Listener)) {
	d.mu.Lock()
	listeners := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		listeners = append(listeners, l)
	}
	d.mu.Unlock()

	for _, l := range listeners {
		fn(l)
	}
}

// ProfileUsername extracts the username from a profile link. Accepted forms
// are "user?id=NAME", "/user?id=NAME" and an absolute URL for /user?id=NAME
// on host. Anything else, or an empty id, is not a profile link.
func ProfileUsername(href, host string) (string, bool) {
	href = strings.TrimSpace(href)
	var rawQuery string

	switch {
	case strings.HasPrefix(href, "user?id="):
		rawQuery = strings.TrimPrefix(href, "user?")
	case strings.HasPrefix(href, "/user?id="):
		rawQuery = strings.TrimPrefix(href, "/user?")
	default:
		if host == "" {
			return "", false
		}
		u, err := url.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return "", false
		}
		if !strings.EqualFold(u.Hostname(), host) || u.Path != "/user" || !strings.HasPrefix(u.RawQuery, "id=") {
			return "", false
		}
		rawQuery = u.RawQuery
	}

	if i := strings.IndexByte(rawQuery, '#'); i >= 0 {
		rawQuery = rawQuery[:i]
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", false
	}
	username := values.Get("id")
	if username == "" {
		return "", false
	}
	return username, true
}
