// hn-profile fetches user profiles the way the hover engine does and prints
// them as JSON, one object per line. It exits non-zero if any lookup fails.
//
// Usage:
//
//	hn-profile [--base-url URL] [--timeout 5s] [--pretty] USERNAME...
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"hnskin/internal/hn"
	"hnskin/internal/types"
)

type result struct {
	*types.ProfileRecord
	Username string `json:"username"`
	Error    string `json:"error,omitempty"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "hn-profile:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("hn-profile", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	baseURL := flags.String("base-url", hn.DefaultBaseURL, "site to fetch profiles from")
	timeout := flags.Duration("timeout", hn.DefaultTimeout, "per-profile fetch timeout")
	pretty := flags.Bool("pretty", false, "indent JSON output")
	verbose := flags.BoolP("verbose", "v", false, "log fetch details to stderr")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return fmt.Errorf("at least one username is required")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// One-off lookups are not rate limited
	client := hn.NewClient(hn.Config{BaseURL: *baseURL, Timeout: *timeout}, hn.WithLogger(logger))

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}

	failed := 0
	for _, username := range flags.Args() {
		start := time.Now()
		record, err := client.FetchProfile(ctx, username)
		out := result{ProfileRecord: record, Username: username}
		if err != nil {
			failed++
			out.Error = err.Error()
		}
		logger.Debug("lookup finished", "username", username, "duration_ms", time.Since(start).Milliseconds())
		if err := enc.Encode(out); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, flags.NArg())
	}
	return nil
}
