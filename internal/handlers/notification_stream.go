package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anonto42/bizgram/backend/internal/notify"
	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type streamConfig struct {
	keepAlive time.Duration
	retryMs   int
	writeWait time.Duration
	readLimit int64
	pongWait  time.Duration
}

var defaultStreamConfig = streamConfig{
	keepAlive: 25 * time.Second,
	retryMs:   3000,
	writeWait: 10 * time.Second,
	readLimit: 512,
	pongWait:  60 * time.Second,
}

// Auth is checked by middleware before the upgrade, so any origin may connect.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

var helloEvent = notify.Event{Kind: notify.EventHello}

// Stream pushes the caller's notifications as server-sent events until the
// client goes away.
func (h *NotificationHandler) Stream(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	res.Header().Set("Cache-Control", "no-cache, no-transform")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	events, cancel := h.bus.Subscribe(ctx, userID)
	defer cancel()
	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	if err := writeSSE(res, helloEvent); err != nil {
		return nil
	}
	if _, err := fmt.Fprintf(res, "retry: %d\n\n", h.stream.retryMs); err != nil {
		return nil
	}
	res.Flush()

	ticker := time.NewTicker(h.stream.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeSSE(res, ev); err != nil {
				h.log.Debug("sse write failed", zap.Uint("user_id", userID), zap.Error(err))
				return nil
			}
			res.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeSSE(res *echo.Response, ev notify.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(res, "data: %s\n\n", raw)
	return err
}

// WebSocket pushes the same events as Stream over a websocket as JSON text
// frames.
func (h *NotificationHandler) WebSocket(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	events, cancel := h.bus.Subscribe(ctx, userID)
	defer cancel()
	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	// The read loop only handles control frames and notices the close.
	closed := make(chan struct{})
	conn.SetReadLimit(h.stream.readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.stream.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.stream.pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(ev notify.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(h.stream.writeWait))
		return conn.WriteJSON(ev)
	}
	if err := write(helloEvent); err != nil {
		return nil
	}

	ticker := time.NewTicker(h.stream.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-closed:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := write(ev); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.stream.writeWait)); err != nil {
				return nil
			}
		}
	}
}
