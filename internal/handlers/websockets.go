package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chat_playground/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 16 // 64 KB
)

// Envelope types sent over the chat socket.
const (
	wsTypeChunk = "chunk"
	wsTypeDone  = "done"
	wsTypeError = "error"
)

// wsEnvelope is one server frame. Remaining is only set on done frames.
type wsEnvelope struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
	Error     string `json:"error,omitempty"`
}

// wsTurn is one client frame: the conversation to answer.
type wsTurn struct {
	Messages []models.ChatMessage `json:"messages"`
}

// newUpgrader accepts same-origin handshakes and the configured CORS origins.
func (h *Handler) newUpgrader() websocket.Upgrader {
	allowed := make(map[string]bool, len(h.opts.CORSOrigins))
	for _, o := range h.opts.CORSOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

// chatWS runs chat turns over a websocket. The gate has already authenticated
// the upgrade request; every turn is charged to the caller's rate limit.
func (h *Handler) chatWS(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	upgrader := h.newUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, handshakeHeader(c.Writer.Header()))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	turns := make(chan wsTurn)
	go h.startReader(ctx, conn, turns, cancel)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case turn := <-turns:
			if err := h.runTurn(ctx, conn, id, turn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "user_id", id.ID, "err", err)
				}
				return
			}
		}
	}
}

// handshakeHeader carries cookies set by earlier middleware into the 101
// response; Upgrade writes its own headers and ignores the writer's.
func handshakeHeader(written http.Header) http.Header {
	cookies := written.Values("Set-Cookie")
	if len(cookies) == 0 {
		return nil
	}
	return http.Header{"Set-Cookie": cookies}
}

// startReader decodes client frames until the connection closes. Frames that
// are not valid turns are answered with an error envelope via an empty turn.
func (h *Handler) startReader(ctx context.Context, conn *websocket.Conn, out chan<- wsTurn, cancel context.CancelFunc) {
	defer cancel()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
		var turn wsTurn
		if err := json.Unmarshal(data, &turn); err != nil {
			turn = wsTurn{}
		}
		select {
		case out <- turn:
		case <-ctx.Done():
			return
		}
	}
}

// runTurn answers one turn. Domain failures become error envelopes and keep
// the connection open; only write failures are returned.
func (h *Handler) runTurn(ctx context.Context, conn *websocket.Conn, id models.Identity, turn wsTurn) error {
	if len(turn.Messages) == 0 {
		return h.writeEnvelope(conn, wsEnvelope{Type: wsTypeError, Error: errMessageInvalidInput})
	}

	res, err := h.services.Send(ctx, id, turn.Messages)
	if err != nil {
		status, msg := statusFor(err)
		if h.log != nil && status >= http.StatusInternalServerError {
			h.log.Errorw("ws_chat_send_failed", "user_id", id.ID, "err", err)
		}
		return h.writeEnvelope(conn, wsEnvelope{Type: wsTypeError, Error: msg})
	}

	for i, chunk := range res.Chunks {
		if i > 0 && h.opts.StreamDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.opts.StreamDelay):
			}
		}
		if err := h.writeEnvelope(conn, wsEnvelope{Type: wsTypeChunk, Data: chunk}); err != nil {
			return err
		}
	}
	remaining := res.Remaining
	return h.writeEnvelope(conn, wsEnvelope{Type: wsTypeDone, Remaining: &remaining})
}

func (h *Handler) writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
