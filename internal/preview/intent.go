package preview

import (
	"log/slog"
	"sync"
	"time"

	"hnskin/internal/clock"
)

// Default hover delays
const (
	DefaultShowDelay = 300 * time.Millisecond
	DefaultHideDelay = 150 * time.Millisecond
)

// State is the hover intent state
type State int

const (
	Idle State = iota
	PendingShow
	Visible
	PendingHide
)

func (s State) String() string {
	switch s {
	case PendingShow:
		return "pending_show"
	case Visible:
		return "visible"
	case PendingHide:
		return "pending_hide"
	default:
		return "idle"
	}
}

// Intents is told when the pointer has settled on a trigger long enough to
// show its profile, and when the popover should go away.
type Intents interface {
	Show(username string, trigger Trigger)
	Hide()
}

// ControllerOptions configures a Controller. Zero values take defaults.
type ControllerOptions struct {
	ShowDelay time.Duration
	HideDelay time.Duration
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Controller turns link and surface events into show and hide intents.
// Entering a link arms the show timer. Leaving a link arms the hide timer,
// which entering the surface cancels. Leaving the surface for anything but
// another link hides at once.
type Controller struct {
	intents   Intents
	clock     clock.Clock
	showDelay time.Duration
	hideDelay time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	current string // username the show timer is armed for
	visible string // username on screen, empty when hidden
	trigger Trigger
	show    timerSlot
	hide    timerSlot
	closed  bool
}

// NewController creates an idle controller reporting to intents
func NewController(intents Intents, opts ControllerOptions) *Controller {
	if opts.ShowDelay <= 0 {
		opts.ShowDelay = DefaultShowDelay
	}
	if opts.HideDelay <= 0 {
		opts.HideDelay = DefaultHideDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		intents:   intents,
		clock:     opts.Clock,
		showDelay: opts.ShowDelay,
		hideDelay: opts.HideDelay,
		logger:    opts.Logger,
	}
}

// State returns the current state and the username it refers to
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == PendingShow {
		return c.state, c.current
	}
	return c.state, c.visible
}

// LinkEntered restarts the show timer for t. Whatever popover is on screen
// stays until that timer fires.
func (c *Controller) LinkEntered(t Trigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.hide.stop()
	c.current = t.Username
	c.trigger = t
	c.show.start(c.clock, c.showDelay, &c.mu, c.fireShow)
	c.setState(PendingShow)
}

// LinkLeft cancels a pending show for t and, when a popover is on screen,
// gives the pointer the hide delay to reach it.
func (c *Controller) LinkLeft(t Trigger, landing Landing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.show.pending() && c.current == t.Username {
		c.show.stop()
		c.current = ""
	}

	switch {
	case c.show.pending():
		// Still armed for a different link; leave it alone.
	case c.visible == "":
		c.setState(Idle)
	case landing == LandingSurface:
		c.hide.stop()
		c.setState(Visible)
	default:
		c.hide.start(c.clock, c.hideDelay, &c.mu, c.fireHide)
		c.setState(PendingHide)
	}
}

// SurfaceEntered keeps a popover that is about to hide
func (c *Controller) SurfaceEntered() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.visible == "" {
		return
	}

	c.hide.stop()
	if !c.show.pending() {
		c.setState(Visible)
	}
}

// SurfaceLeft hides immediately unless the pointer went onto a link, whose
// enter event takes over.
func (c *Controller) SurfaceLeft(landing Landing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.visible == "" || landing == LandingLink {
		return
	}
	c.fireHide()
}

// Close cancels both timers and ignores all further events
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.show.stop()
	c.hide.stop()
	c.closed = true
}

// fireShow runs with mu held
func (c *Controller) fireShow() {
	username := c.current
	c.visible = username
	c.setState(Visible)
	c.intents.Show(username, c.trigger)
}

// fireHide runs with mu held
func (c *Controller) fireHide() {
	c.show.stop()
	c.hide.stop()
	wasVisible := c.visible != ""
	c.current = ""
	c.visible = ""
	c.setState(Idle)
	if wasVisible {
		c.intents.Hide()
	}
}

func (c *Controller) setState(s State) {
	if c.state != s {
		c.logger.Debug("hover state", "from", c.state.String(), "to", s.String())
	}
	c.state = s
}
