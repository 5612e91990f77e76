package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"chat_playground/internal/models"

	"github.com/gin-gonic/gin"
)

const headerRateLimitRemaining = "X-RateLimit-Remaining"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []models.ChatMessage `json:"messages" binding:"required"`
}

// @Summary      Consume one chat call
// @Description  Charges the caller's per-minute budget and reports what is left.
// @Tags         chat
// @Produce      json
// @Success      200  {object}  map[string]int
// @Failure      401  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Router       /api/chat/rate-limit [get]
// @Router       /api/chat/rate-limit [post]
// @Security     BearerAuth
func (h *Handler) checkRateLimit(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	remaining, err := h.services.CheckAndConsume(c.Request.Context(), id.ID)
	if err != nil {
		h.respondError(c, "ratelimit_check_failed", err, "user_id", id.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining": remaining})
}

// @Summary      Send a chat turn
// @Description  Streams the assistant reply as plain text chunks.
// @Tags         chat
// @Accept       json
// @Produce      plain
// @Param        body  body      ChatRequest  true  "Conversation"
// @Success      200   {string}  string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/chat [post]
// @Security     BearerAuth
func (h *Handler) sendChat(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	var req ChatRequest
	if ok := h.bindJSONOrBadRequest(c, &req, "chat_bad_request_body"); !ok {
		return
	}

	turn, err := h.services.Send(c.Request.Context(), id, req.Messages)
	if err != nil {
		h.respondError(c, "chat_send_failed", err, "user_id", id.ID)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header(headerRateLimitRemaining, strconv.Itoa(turn.Remaining))
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	next := 0
	c.Stream(func(w io.Writer) bool {
		if next > 0 && h.opts.StreamDelay > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(h.opts.StreamDelay):
			}
		}
		if _, err := io.WriteString(w, turn.Chunks[next]); err != nil {
			return false
		}
		next++
		return next < len(turn.Chunks)
	})
}

// @Summary      Chat history
// @Tags         chat
// @Produce      json
// @Success      200  {object}  map[string][]models.Chat
// @Failure      401  {object}  map[string]string
// @Router       /api/chat [get]
// @Security     BearerAuth
func (h *Handler) chatHistory(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	chats, err := h.services.History(c.Request.Context(), id.ID)
	if err != nil {
		h.respondError(c, "chat_history_failed", err, "user_id", id.ID)
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}
