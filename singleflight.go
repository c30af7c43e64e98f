package main

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"hnskin/internal/preview"
	"hnskin/internal/types"
)

// sharedFetcher deduplicates concurrent profile fetches across hover
// sessions. When several sessions ask for the same username at once, only
// one upstream request runs and all of them share its result.
//
// The upstream request is detached from any single caller's context; a
// caller that gives up stops waiting and gets nil, and the request finishes
// for the others within the fetcher's own timeout.
type sharedFetcher struct {
	group    singleflight.Group
	upstream preview.Fetcher
}

func newSharedFetcher(upstream preview.Fetcher) *sharedFetcher {
	return &sharedFetcher{upstream: upstream}
}

func (f *sharedFetcher) Fetch(ctx context.Context, username string) *types.ProfileRecord {
	ch := f.group.DoChan(username, func() (interface{}, error) {
		return f.upstream.Fetch(context.WithoutCancel(ctx), username), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			sharedFetchesTotal.Add(1)
			slog.Debug("singleflight: shared profile fetch", "username", username)
		}
		record, _ := res.Val.(*types.ProfileRecord)
		return record
	case <-ctx.Done():
		return nil
	}
}
