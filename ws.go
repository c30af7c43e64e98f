package main

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"hnskin/internal/preview"
)

const (
	wsReadLimit    = 16 * 1024
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 20 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 64
)

// clientMessage is anything the page script sends. Pointer messages carry
// the event fields, measured messages the size of the last render.
type clientMessage struct {
	Type string `json:"type"`
	preview.PointerEvent

	Username string  `json:"username"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

type renderMessage struct {
	Type     string            `json:"type"`
	State    preview.ViewState `json:"state"`
	Username string            `json:"username"`
	HTML     template.HTML     `json:"html"`
}

type placeMessage struct {
	Type string  `json:"type"`
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

type visibilityMessage struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
}

// wsSurface is a popover living in a remote page. Every change becomes a
// message queued for the connection's writer. It cannot measure itself;
// the page reports sizes with "measured" messages.
type wsSurface struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
	send   chan any
	done   chan struct{}
	logger *slog.Logger
}

func newWSSurface(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) *wsSurface {
	ctx, cancel := context.WithCancel(ctx)
	return &wsSurface{
		ctx:    ctx,
		cancel: cancel,
		conn:   conn,
		send:   make(chan any, wsSendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (s *wsSurface) Render(frame preview.Frame) {
	s.enqueue(renderMessage{Type: "render", State: frame.State, Username: frame.Username, HTML: frame.HTML})
}

func (s *wsSurface) Place(p preview.Point) {
	s.enqueue(placeMessage{Type: "place", Top: p.Top, Left: p.Left})
}

func (s *wsSurface) SetVisible(visible bool) {
	s.enqueue(visibilityMessage{Type: "visibility", Visible: visible})
}

func (s *wsSurface) Measure() (preview.Size, bool) {
	return preview.Size{}, false
}

// enqueue never blocks. A client that cannot keep up is disconnected, since
// skipping a frame would leave its popover out of step.
func (s *wsSurface) enqueue(msg any) {
	select {
	case s.send <- msg:
	case <-s.ctx.Done():
	default:
		framesDroppedTotal.Add(1)
		s.logger.Warn("websocket client too slow, closing")
		s.cancel()
	}
}

// writeLoop owns all writes to the connection, pings included
func (s *wsSurface) writeLoop() {
	defer close(s.done)
	defer s.conn.Close()
	defer s.cancel()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// checkOrigin accepts same-host pages and pages on the upstream site
func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host) || strings.EqualFold(u.Hostname(), s.cfg.SiteHost())
}

// wsHandler runs one hover session for the lifetime of the connection
func (s *server) wsHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		LoggerFromContext(r.Context()).Debug("websocket upgrade failed", "error", err)
		return
	}

	s.conns.Add(1)
	defer s.conns.Done()
	hoverSessionsActive.Add(1)
	hoverSessionsTotal.Add(1)
	defer hoverSessionsActive.Add(-1)

	logger := LoggerFromContext(r.Context()).With("conn_id", xid.New().String())
	logger.Debug("hover session started", "remote_addr", r.RemoteAddr)

	surface := newWSSurface(s.ctx, conn, logger)
	go surface.writeLoop()

	engine := preview.NewEngine(surface.ctx, surface, s.engineConfig(logger))
	defer func() {
		surface.cancel()
		engine.Close()
		<-surface.done
		logger.Debug("hover session ended")
	}()

	s.readLoop(conn, surface, engine, logger)
}

func (s *server) readLoop(conn *websocket.Conn, surface *wsSurface, engine *preview.Engine, logger *slog.Logger) {
	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && surface.ctx.Err() == nil {
				logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case "pointer":
			if msg.Phase != preview.PhaseEnter && msg.Phase != preview.PhaseLeave {
				logger.Debug("ignoring pointer message with unknown phase", "phase", msg.Phase)
				continue
			}
			engine.Dispatch(msg.PointerEvent)
		case "measured":
			if !validUsername(msg.Username) {
				continue
			}
			engine.Measured(msg.Username, preview.Size{Width: msg.Width, Height: msg.Height})
		default:
			logger.Debug("ignoring unknown websocket message", "type", msg.Type)
		}
	}
}
