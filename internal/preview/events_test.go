package preview

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileUsername(t *testing.T) {
	const host = "news.ycombinator.com"
	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"user?id=pg", "pg", true},
		{"/user?id=dang", "dang", true},
		{"https://news.ycombinator.com/user?id=tptacek", "tptacek", true},
		{"HTTPS://News.YCombinator.com/user?id=x", "x", true},
		{"user?id=a%26b", "a&b", true},
		{"user?id=pg#about", "pg", true},
		{"user?id=", "", false},
		{"user?name=pg", "", false},
		{"item?id=123", "", false},
		{"submitted?id=pg", "", false},
		{"https://example.com/user?id=pg", "", false},
		{"https://news.ycombinator.com/item?id=1", "", false},
		{"javascript:user?id=pg", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ProfileUsername(tt.href, host)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.want, got, tt.href)
	}
}

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *recordingListener) LinkEntered(t Trigger) { l.add("link-enter %s", t.Username) }
func (l *recordingListener) LinkLeft(t Trigger, landing Landing) {
	l.add("link-leave %s %s", t.Username, landing)
}
func (l *recordingListener) SurfaceEntered()             { l.add("surface-enter") }
func (l *recordingListener) SurfaceLeft(landing Landing) { l.add("surface-leave %s", landing) }

func TestDelegatorClassifiesEvents(t *testing.T) {
	d := NewDelegator("news.ycombinator.com")
	l := &recordingListener{}
	d.Subscribe(l)

	comment := &Element{Href: "item?id=1"}
	d.Dispatch(PointerEvent{Phase: PhaseEnter, Target: *linkElement("pg"), Related: comment})
	d.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *linkElement("pg"), Related: surfaceElement})
	d.Dispatch(PointerEvent{Phase: PhaseEnter, Target: *surfaceElement, Related: linkElement("pg")})
	d.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *surfaceElement, Related: linkElement("dang")})
	d.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *linkElement("dang"), Related: comment})
	d.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *surfaceElement})

	assert.Equal(t, []string{
		"link-enter pg",
		"link-leave pg surface",
		"surface-enter",
		"surface-leave link",
		"link-leave dang elsewhere",
		"surface-leave elsewhere",
	}, l.events)
}

func TestDelegatorIgnoresIrrelevantMoves(t *testing.T) {
	d := NewDelegator("news.ycombinator.com")
	l := &recordingListener{}
	d.Subscribe(l)

	// Not a profile link
	d.Dispatch(PointerEvent{Phase: PhaseEnter, Target: Element{Href: "item?id=1"}})
	// Inside the surface
	d.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *surfaceElement, Related: &Element{Surface: true, Href: "submitted?id=pg"}})
	d.Dispatch(PointerEvent{Phase: PhaseEnter, Target: *surfaceElement, Related: surfaceElement})
	// Between children of one link
	d.Dispatch(PointerEvent{Phase: PhaseLeave, Target: *linkElement("pg"), Related: linkElement("pg")})

	assert.Empty(t, l.events)
}

func TestDelegatorUnsubscribe(t *testing.T) {
	d := NewDelegator("news.ycombinator.com")
	first, second := &recordingListener{}, &recordingListener{}
	unsubscribe := d.Subscribe(first)
	d.Subscribe(second)

	d.Dispatch(PointerEvent{Phase: PhaseEnter, Target: *linkElement("pg")})
	unsubscribe()
	unsubscribe()
	d.Dispatch(PointerEvent{Phase: PhaseEnter, Target: *linkElement("dang")})

	assert.Equal(t, []string{"link-enter pg"}, first.events)
	assert.Equal(t, []string{"link-enter pg", "link-enter dang"}, second.events)
}
