package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/mentalyze/server/internal/dialog"
)

// wsWriteTimeout bounds each outbound websocket write.
const wsWriteTimeout = 10 * time.Second

// WebSocketHandler serves the persistent chat channel. Each inbound JSON
// message goes through the same dialog router as POST /api/chat, so REST and
// websocket clients share one session per username.
type WebSocketHandler struct {
	dialog *dialog.Router
	isDev  bool
}

// NewWebSocketHandler creates a new websocket chat handler.
func NewWebSocketHandler(router *dialog.Router, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{dialog: router, isDev: isDev}
}

// ServeHTTP upgrades the connection and runs the chat loop until the client
// disconnects.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if h.isDev {
		opts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	slog.Info("websocket chat connected", "remote", r.RemoteAddr)

	for {
		var req chatRequest
		if err := wsjson.Read(r.Context(), conn, &req); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			slog.Debug("websocket read failed", "error", err)
			conn.Close(websocket.StatusInvalidFramePayloadData, "expected a JSON chat message")
			return
		}

		resp, err := h.dialog.HandleMessage(r.Context(), req.Username, req.Message)
		if err != nil && !errors.Is(err, dialog.ErrEmptyMessage) {
			slog.Error("websocket dialog failed", "error", err)
			conn.Close(websocket.StatusInternalError, "dialog failure")
			return
		}

		if err := h.write(r.Context(), conn, chatResponse{
			Reply:   resp.Reply,
			Status:  resp.Status,
			History: resp.History,
		}); err != nil {
			slog.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (h *WebSocketHandler) write(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, v)
}
