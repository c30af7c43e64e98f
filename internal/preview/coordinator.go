package preview

import (
	"context"
	"log/slog"
	"sync"

	"hnskin/internal/types"
)

// Fetcher loads a profile; nil means unavailable
type Fetcher interface {
	Fetch(ctx context.Context, username string) *types.ProfileRecord
}

// ProfileStore caches fetched profiles
type ProfileStore interface {
	Get(username string) (*types.ProfileRecord, bool)
	Put(username string, record *types.ProfileRecord)
}

// Metrics receives coordinator events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	CacheHit()
	CacheMiss()
	FetchResult(ok bool)
	StaleDropped()
}

type nopMetrics struct{}

func (nopMetrics) CacheHit()        {}
func (nopMetrics) CacheMiss()       {}
func (nopMetrics) FetchResult(bool) {}
func (nopMetrics) StaleDropped()    {}

// Options configures a Coordinator
type Options struct {
	// CancelSuperseded cancels the in-flight fetch of a session as soon as
	// another session starts. Otherwise it runs to completion and its
	// result is still cached.
	CancelSuperseded bool
	Metrics          Metrics
	Logger           *slog.Logger
}

// Coordinator resolves show intents: cache first, then the fetcher, with
// every result passed through the presenter's session check.
type Coordinator struct {
	presenter *Presenter
	profiles  ProfileStore
	fetcher   Fetcher
	opts      Options
	logger    *slog.Logger
	metrics   Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	cancelCurrent context.CancelFunc
}

// NewCoordinator wires a presenter, cache and fetcher together. Fetches run
// under ctx and stop when it is cancelled or Close is called.
func NewCoordinator(ctx context.Context, presenter *Presenter, profiles ProfileStore, fetcher Fetcher, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Coordinator{
		presenter: presenter,
		profiles:  profiles,
		fetcher:   fetcher,
		opts:      opts,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Show starts a session for username and resolves its profile
func (c *Coordinator) Show(username string, trigger Trigger) {
	c.presenter.Begin(username, trigger)

	if record, ok := c.profiles.Get(username); ok {
		c.metrics.CacheHit()
		c.cancelInFlight()
		c.resolve(username, record)
		return
	}
	c.metrics.CacheMiss()

	ctx := c.ctx
	if c.opts.CancelSuperseded {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(c.ctx)
		c.mu.Lock()
		if c.cancelCurrent != nil {
			c.cancelCurrent()
		}
		c.cancelCurrent = cancel
		c.mu.Unlock()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		record := c.fetcher.Fetch(ctx, username)
		c.metrics.FetchResult(record != nil)
		if record != nil {
			c.profiles.Put(username, record)
		}
		c.resolve(username, record)
	}()
}

// Hide ends the session and hides the surface
func (c *Coordinator) Hide() {
	c.cancelInFlight()
	c.presenter.Clear()
}

// Measured forwards a size reported by the surface
func (c *Coordinator) Measured(username string, size Size) {
	if !c.presenter.Measured(username, size) {
		c.logger.Debug("stale measurement dropped", "username", username)
	}
}

// Wait blocks until every started fetch has finished
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding fetches and waits for them
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) resolve(username string, record *types.ProfileRecord) {
	if !c.presenter.Resolve(ResultView(username, record)) {
		c.metrics.StaleDropped()
		c.logger.Debug("stale profile result dropped", "username", username, "ok", record != nil)
	}
}

func (c *Coordinator) cancelInFlight() {
	if !c.opts.CancelSuperseded {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelCurrent != nil {
		c.cancelCurrent()
		c.cancelCurrent = nil
	}
}
