package preview

import (
	"context"
	"log/slog"
	"time"

	"hnskin/internal/clock"
)

// EngineConfig holds everything one hover engine needs
type EngineConfig struct {
	SiteHost string

	ShowDelay time.Duration
	HideDelay time.Duration

	Width            float64
	EstimatedHeight  float64
	Margins          Margins
	CancelSuperseded bool

	Profiles ProfileStore
	Fetcher  Fetcher
	Renderer *Renderer
	Clock    clock.Clock
	Metrics  Metrics
	Logger   *slog.Logger
}

// Engine is the hover preview pipeline for one page: delegator, intent
// controller, coordinator and presenter around a single surface.
type Engine struct {
	delegator   *Delegator
	controller  *Controller
	coordinator *Coordinator
	unsubscribe func()
}

// NewEngine builds an engine driving surface
func NewEngine(ctx context.Context, surface Surface, cfg EngineConfig) *Engine {
	presenter := NewPresenter(surface, cfg.Renderer, PresenterOptions{
		Width:           cfg.Width,
		EstimatedHeight: cfg.EstimatedHeight,
		Margins:         cfg.Margins,
		Logger:          cfg.Logger,
	})
	coordinator := NewCoordinator(ctx, presenter, cfg.Profiles, cfg.Fetcher, Options{
		CancelSuperseded: cfg.CancelSuperseded,
		Metrics:          cfg.Metrics,
		Logger:           cfg.Logger,
	})
	controller := NewController(coordinator, ControllerOptions{
		ShowDelay: cfg.ShowDelay,
		HideDelay: cfg.HideDelay,
		Clock:     cfg.Clock,
		Logger:    cfg.Logger,
	})
	delegator := NewDelegator(cfg.SiteHost)

	return &Engine{
		delegator:   delegator,
		controller:  controller,
		coordinator: coordinator,
		unsubscribe: delegator.Subscribe(controller),
	}
}

// Dispatch feeds a raw pointer event into the engine
func (e *Engine) Dispatch(ev PointerEvent) {
	e.delegator.Dispatch(ev)
}

// Measured reports the surface's size after a render
func (e *Engine) Measured(username string, size Size) {
	e.coordinator.Measured(username, size)
}

// State returns the hover state and the username it refers to
func (e *Engine) State() (State, string) {
	return e.controller.State()
}

// Wait blocks until in-flight fetches finish
func (e *Engine) Wait() {
	e.coordinator.Wait()
}

// Close detaches the engine from its events, stops its timers and waits
// for outstanding fetches.
func (e *Engine) Close() {
	e.unsubscribe()
	e.controller.Close()
	e.coordinator.Close()
}
