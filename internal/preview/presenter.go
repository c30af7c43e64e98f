package preview

import (
	"html/template"
	"log/slog"
	"sync"
)

// Default popover geometry, in CSS pixels
const (
	DefaultWidth           = 320
	DefaultEstimatedHeight = 150
)

// Surface is the single popover element a presenter drives
type Surface interface {
	Render(frame Frame)
	Place(p Point)
	SetVisible(visible bool)
	// Measure reports the rendered size. Surfaces that learn their size
	// later return false and report it through Presenter.Measured.
	Measure() (Size, bool)
}

// PresenterOptions configures a Presenter. Zero values take defaults.
type PresenterOptions struct {
	Width           float64
	EstimatedHeight float64
	Margins         Margins
	Logger          *slog.Logger
}

// Presenter owns the surface and the session: the username the current
// hover asked for. Results for any other username are dropped.
type Presenter struct {
	surface         Surface
	renderer        *Renderer
	width           float64
	estimatedHeight float64
	margins         Margins
	logger          *slog.Logger

	mu      sync.Mutex
	session string
	trigger Trigger
	visible bool
}

// NewPresenter creates a presenter for surface
func NewPresenter(surface Surface, renderer *Renderer, opts PresenterOptions) *Presenter {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.EstimatedHeight <= 0 {
		opts.EstimatedHeight = DefaultEstimatedHeight
	}
	if opts.Margins == (Margins{}) {
		opts.Margins = DefaultMargins()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Presenter{
		surface:         surface,
		renderer:        renderer,
		width:           opts.Width,
		estimatedHeight: opts.EstimatedHeight,
		margins:         opts.Margins,
		logger:          opts.Logger,
	}
}

// Begin starts a session for username: loading view, placement with the
// estimated height, visible.
func (p *Presenter) Begin(username string, trigger Trigger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = username
	p.trigger = trigger
	p.render(Loading{Username: username})
	p.surface.Place(Position(trigger.Rect, p.width, p.estimatedHeight, trigger.Viewport, p.margins))
	if !p.visible {
		p.surface.SetVisible(true)
		p.visible = true
	}
}

// Resolve shows v if its username is still the session and reports whether
// it did. The final placement uses the measured height when available.
func (p *Presenter) Resolve(v View) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == "" || p.session != v.Subject() {
		return false
	}
	p.render(v)
	if size, ok := p.surface.Measure(); ok {
		p.place(size)
	}
	return true
}

// Measured applies a size reported after the fact. It is dropped when
// username is no longer the session.
func (p *Presenter) Measured(username string, size Size) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == "" || p.session != username || size.Height <= 0 {
		return false
	}
	p.place(size)
	return true
}

// Clear hides the surface and ends the session
func (p *Presenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = ""
	if p.visible {
		p.surface.SetVisible(false)
		p.visible = false
	}
}

// Session returns the current session's username, empty when hidden
func (p *Presenter) Session() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Presenter) place(size Size) {
	width := size.Width
	if width <= 0 {
		width = p.width
	}
	p.surface.Place(Position(p.trigger.Rect, width, size.Height, p.trigger.Viewport, p.margins))
}

func (p *Presenter) render(v View) {
	frame, err := p.renderer.Render(v)
	if err != nil {
		p.logger.Error("popover render failed", "state", v.State(), "username", v.Subject(), "error", err)
		frame = Frame{
			State:    StateError,
			Username: v.Subject(),
			HTML:     template.HTML(template.HTMLEscapeString("Could not load profile for " + v.Subject())),
		}
	}
	p.surface.Render(frame)
}
