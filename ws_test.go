package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnskin/internal/clock"
	"hnskin/internal/preview"
	"hnskin/internal/types"
)

var (
	wsLinkRect = preview.Rect{Top: 100, Left: 50, Right: 90, Bottom: 115}
	wsViewport = preview.Viewport{Width: 1024, Height: 768}
)

func dialSession(t *testing.T, srv *server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// waitTimers fails the test instead of hanging when no timer shows up
func waitTimers(t *testing.T, clk *clock.FakeClock, n int) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		clk.WaitForTimers(n)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %d pending timers", n)
	}
}

func pointer(phase preview.Phase, target preview.Element, related *preview.Element) clientMessage {
	return clientMessage{
		Type: "pointer",
		PointerEvent: preview.PointerEvent{
			Phase:    phase,
			Target:   target,
			Related:  related,
			Viewport: wsViewport,
		},
	}
}

func TestWebsocketHoverSession(t *testing.T) {
	clk := clock.Fake(epoch)
	var calls atomic.Int32
	conn := dialSession(t, newTestServer(t, countingFetcher(&calls), clk))

	link := preview.Element{Href: "user?id=pg", Rect: wsLinkRect}
	require.NoError(t, conn.WriteJSON(pointer(preview.PhaseEnter, link, nil)))

	waitTimers(t, clk, 1)
	clk.Advance(300 * time.Millisecond)

	msg := readMessage(t, conn)
	assert.Equal(t, "render", msg["type"])
	assert.Equal(t, "loading", msg["state"])
	assert.Equal(t, "pg", msg["username"])

	msg = readMessage(t, conn)
	assert.Equal(t, "place", msg["type"])
	assert.Equal(t, 123.0, msg["top"])
	assert.Equal(t, 50.0, msg["left"])

	msg = readMessage(t, conn)
	assert.Equal(t, "visibility", msg["type"])
	assert.Equal(t, true, msg["visible"])

	msg = readMessage(t, conn)
	assert.Equal(t, "render", msg["type"])
	assert.Equal(t, "content", msg["state"])
	assert.Contains(t, msg["html"], "4,321")

	// The page reports the rendered size and the popover is placed again
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "measured", Username: "pg", Width: 320, Height: 200}))
	msg = readMessage(t, conn)
	assert.Equal(t, "place", msg["type"])

	require.NoError(t, conn.WriteJSON(pointer(preview.PhaseLeave, link, nil)))
	waitTimers(t, clk, 1)
	clk.Advance(150 * time.Millisecond)

	msg = readMessage(t, conn)
	assert.Equal(t, "visibility", msg["type"])
	assert.Equal(t, false, msg["visible"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebsocketIgnoresNonProfileLinks(t *testing.T) {
	clk := clock.Fake(epoch)
	conn := dialSession(t, newTestServer(t, countingFetcher(new(atomic.Int32)), clk))

	other := preview.Element{Href: "item?id=1", Rect: wsLinkRect}
	require.NoError(t, conn.WriteJSON(pointer(preview.PhaseEnter, other, nil)))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "bogus"}))

	// A profile link afterwards still works, so the earlier messages were
	// consumed without starting a hover
	link := preview.Element{Href: "user?id=dang", Rect: wsLinkRect}
	require.NoError(t, conn.WriteJSON(pointer(preview.PhaseEnter, link, nil)))
	waitTimers(t, clk, 1)
	assert.Equal(t, 1, clk.Pending())
	clk.Advance(300 * time.Millisecond)

	msg := readMessage(t, conn)
	assert.Equal(t, "render", msg["type"])
	assert.Equal(t, "dang", msg["username"])
}

func TestWebsocketSessionEndsWithServer(t *testing.T) {
	clk := clock.Fake(epoch)
	release := make(chan struct{})
	defer close(release)
	fetcher := fetchFunc(func(ctx context.Context, username string) *types.ProfileRecord {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cfg := newTestServer(t, fetcher, clk).cfg
	srv, err := newServer(ctx, cfg, fetcher, clk)
	require.NoError(t, err)
	conn := dialSession(t, srv)

	require.NoError(t, conn.WriteJSON(pointer(preview.PhaseEnter, preview.Element{Href: "user?id=pg", Rect: wsLinkRect}, nil)))
	waitTimers(t, clk, 1)
	clk.Advance(300 * time.Millisecond)
	for range 3 {
		readMessage(t, conn)
	}

	cancel()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
	}

	done := make(chan struct{})
	go func() {
		srv.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hover session did not end")
	}
}
