package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"

	"hnskin/internal/clock"
	"hnskin/internal/config"
	"hnskin/internal/hn"
)

// securityHeaders adds security headers to HTML and CSS responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fragments and styles only; never script
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'self' 'unsafe-inline'; img-src * data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// routes builds the HTTP handler tree
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLoggingMiddleware)

	r.Get("/health", healthHandler)
	r.Get("/metrics", metricsHandler)
	r.Get("/ws", s.wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(securityHeaders)
		r.Get("/html/preview/{username}", s.previewHandler)
		r.Get("/static/popover.css", s.popoverCSSHandler)
	})

	// Browser script and other static files
	fs := http.FileServer(http.Dir(s.cfg.StaticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fs))

	return r
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "hnskin:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration from file, environment and flags,
// in increasing order of precedence.
func loadConfig(args []string, getenv func(string) string) (config.Config, error) {
	defaultPath := getenv("HNSKIN_CONFIG")
	if defaultPath == "" {
		defaultPath = config.DefaultPath
	}

	flags := pflag.NewFlagSet("hnskin", pflag.ContinueOnError)
	configPath := flags.String("config", defaultPath, "path to the YAML config file")
	listen := flags.String("listen", "", "listen address, overrides config and PORT")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func run(args []string) error {
	cfg, err := loadConfig(args, os.Getenv)
	if err != nil {
		return err
	}
	InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := initRateLimitStore(ctx, cfg.RedisURL)
	client := hn.NewClient(hn.Config{
		BaseURL:         cfg.Upstream.BaseURL,
		Timeout:         cfg.Upstream.Timeout,
		MaxBodyBytes:    cfg.Upstream.MaxBodyBytes,
		RateLimit:       cfg.Upstream.RateLimit,
		RateLimitWindow: cfg.Upstream.RateWindow,
	}, hn.WithRateLimiter(store))

	sessionCtx, endSessions := context.WithCancel(ctx)
	defer endSessions()
	srv, err := newServer(sessionCtx, cfg, newSharedFetcher(client), clock.Real())
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Listen, "theme", cfg.Theme, "upstream", cfg.Upstream.BaseURL)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	endSessions()
	err = httpServer.Shutdown(shutdownCtx)
	srv.conns.Wait()
	return err
}
