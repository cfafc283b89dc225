package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"KOLStats/internal/domain/models"
	xhttp "KOLStats/pkg/http"
	xlogger "KOLStats/pkg/logger"
)

type Options struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	MaxMessage   int64
	// AllowOrigins is matched against the Origin header. Empty or "*" allows all.
	AllowOrigins []string
}

// Handler upgrades /ws/channels/:channel_id to a live metrics view.
type Handler struct {
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
	l        *xlogger.Logger
}

func NewHandler(hub *Hub, l *xlogger.Logger, opts Options) *Handler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	if opts.MaxMessage <= 0 {
		opts.MaxMessage = 4096
	}
	if l == nil {
		l = xlogger.Nop()
	}
	h := &Handler{hub: hub, opts: opts, l: l}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/channels/:channel_id", h.Serve)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowOrigins) == 0 {
		return true
	}
	for _, o := range h.opts.AllowOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (h *Handler) Serve(c echo.Context) error {
	channelID := c.Param("channel_id")
	if channelID == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("channel_id required"))
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.l.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	sub := h.hub.subscribe(channelID, h.opts.SendBuffer)
	h.l.Debug("live view connected", xlogger.String("channel_id", channelID))

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
	return nil
}

func (h *Handler) readPump(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		h.hub.unsubscribe(sub)
		_ = conn.Close()
	}()

	pongWait := h.opts.PingInterval * 2
	conn.SetReadLimit(h.opts.MaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.l.Debug("live view read failed", xlogger.String("channel_id", sub.channelID), xlogger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var v models.ViewState
		if err := json.Unmarshal(msg, &v); err != nil {
			h.hub.push(sub, Frame{Type: FrameError, Data: xhttp.BadRequestError("view state must be a JSON object")})
			continue
		}
		ctx := context.Background()
		if verr := xhttp.ValidateStruct(ctx, &v); verr != nil {
			h.hub.push(sub, Frame{Type: FrameError, Data: verr})
			continue
		}
		sub.setView(v)
		h.hub.answer(ctx, sub, v)
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-sub.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.opts.WriteTimeout))
			return
		case b := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
