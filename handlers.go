package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"hnskin/internal/cache"
	"hnskin/internal/clock"
	"hnskin/internal/config"
	"hnskin/internal/preview"
	"hnskin/internal/theme"
	"hnskin/internal/util"
	"hnskin/templates"
)

// maxUsernameLength bounds the usernames accepted from clients
const maxUsernameLength = 64

// server holds what the HTTP and websocket handlers share
type server struct {
	ctx        context.Context
	cfg        config.Config
	fetcher    preview.Fetcher
	renderer   *preview.Renderer
	profiles   *cache.ProfileCache // fragment endpoint only; hover sessions own theirs
	stylesheet string
	clock      clock.Clock

	conns sync.WaitGroup
}

// newServer builds the handlers. Hover sessions end when ctx is cancelled.
func newServer(ctx context.Context, cfg config.Config, fetcher preview.Fetcher, clk clock.Clock) (*server, error) {
	renderer, err := preview.NewRenderer(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, err
	}
	return &server{
		ctx:        ctx,
		cfg:        cfg,
		fetcher:    fetcher,
		renderer:   renderer,
		profiles:   cache.NewProfileCache(cfg.Cache.Capacity, cfg.Cache.TTL, clk),
		stylesheet: theme.Resolve(cfg.Theme).CSS() + "\n" + templates.PopoverStylesheet,
		clock:      clk,
	}, nil
}

// validUsername accepts what could plausibly be a profile id
func validUsername(username string) bool {
	if username == "" || len(username) > maxUsernameLength || !utf8.ValidString(username) {
		return false
	}
	return !strings.ContainsAny(username, "/?#&\x00")
}

// previewHandler renders a profile fragment without a hover session
func (s *server) previewHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !validUsername(username) {
		util.RespondBadRequest(w, "invalid username")
		return
	}
	logger := LoggerFromContext(r.Context())

	record, ok := s.profiles.Get(username)
	if ok {
		cacheHitsTotal.Add(1)
	} else {
		cacheMissesTotal.Add(1)
		record = s.fetcher.Fetch(r.Context(), username)
		engineMetrics{}.FetchResult(record != nil)
		if record != nil {
			s.profiles.Put(username, record)
		}
	}

	frame, err := s.renderer.Render(preview.ResultView(username, record))
	if err != nil {
		logger.Error("failed to render preview fragment", "username", username, "error", err)
		util.RespondInternalError(w, "render failed")
		return
	}

	util.SetHTMLHeaders(w, "60")
	w.Header().Set("X-Hnskin-State", string(frame.State))
	util.WriteHTML(w, string(frame.HTML))
}

// popoverCSSHandler serves the theme tokens followed by the popover rules
func (s *server) popoverCSSHandler(w http.ResponseWriter, r *http.Request) {
	util.SetCSSHeaders(w, "3600")
	fmt.Fprint(w, s.stylesheet)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"rate_limit_backend": rateLimitBackendType,
		"hover_sessions":     hoverSessionsActive.Load(),
	})
}

// engineConfig returns the settings for one hover session's engine
func (s *server) engineConfig(logger *slog.Logger) preview.EngineConfig {
	return preview.EngineConfig{
		SiteHost:         s.cfg.SiteHost(),
		ShowDelay:        s.cfg.Hover.ShowDelay,
		HideDelay:        s.cfg.Hover.HideDelay,
		Width:            s.cfg.Popover.Width,
		EstimatedHeight:  s.cfg.Popover.EstimatedHeight,
		Margins:          s.cfg.Margins(),
		CancelSuperseded: s.cfg.Hover.CancelSuperseded,
		Profiles:         cache.NewProfileCache(s.cfg.Cache.Capacity, s.cfg.Cache.TTL, s.clock),
		Fetcher:          s.fetcher,
		Renderer:         s.renderer,
		Clock:            s.clock,
		Metrics:          engineMetrics{},
		Logger:           logger,
	}
}
