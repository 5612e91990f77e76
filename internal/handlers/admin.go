package handlers

import (
	"net/http"
	"strconv"

	"chat_playground/internal/models"

	"github.com/gin-gonic/gin"
)

// SetRateLimitRequest is the body of POST /api/admin/rate-limit.
type SetRateLimitRequest struct {
	UserID    *int `json:"userId" binding:"required" example:"2"`
	RateLimit *int `json:"rateLimit" binding:"required,min=1" example:"120"`
}

// ResetPasswordRequest is the body of POST /api/admin/reset-password.
type ResetPasswordRequest struct {
	UserID *int `json:"userId" binding:"required" example:"2"`
}

// @Summary      Admin check
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/check [get]
// @Security     BearerAuth
func (h *Handler) adminCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      List users
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string][]models.User
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/users [get]
// @Security     BearerAuth
func (h *Handler) adminUsers(c *gin.Context) {
	users, err := h.services.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, "admin_list_users_failed", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// @Summary      Recent chats of all users
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string][]models.Chat
// @Failure      403  {object}  map[string]string
// @Router       /api/admin/chats [get]
// @Security     BearerAuth
func (h *Handler) adminChats(c *gin.Context) {
	chats, err := h.services.Recent(c.Request.Context())
	if err != nil {
		h.respondError(c, "admin_list_chats_failed", err)
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// @Summary      Reset a user's password
// @Description  Sets the default password; the user should change it after signing in.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      ResetPasswordRequest  true  "Target user"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/admin/reset-password [post]
// @Security     BearerAuth
func (h *Handler) adminResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if ok := h.bindJSONOrBadRequest(c, &req, "admin_bad_request_body"); !ok {
		return
	}
	if _, err := h.services.ResetPassword(c.Request.Context(), *req.UserID); err != nil {
		h.respondError(c, "admin_reset_password_failed", err, "target_user_id", *req.UserID)
		return
	}
	if h.log != nil {
		admin, _ := IdentityFrom(c.Request.Context())
		h.log.Infow("admin_password_reset", "admin_id", admin.ID, "target_user_id", *req.UserID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Set a user's rate limit
// @Description  Takes effect on the user's next call, even inside the current minute.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      SetRateLimitRequest  true  "New ceiling"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/admin/rate-limit [post]
// @Security     BearerAuth
func (h *Handler) adminSetRateLimit(c *gin.Context) {
	var req SetRateLimitRequest
	if ok := h.bindJSONOrBadRequest(c, &req, "admin_bad_request_body"); !ok {
		return
	}
	if err := h.services.UpdateLimit(c.Request.Context(), *req.UserID, *req.RateLimit); err != nil {
		h.respondError(c, "admin_set_rate_limit_failed", err, "target_user_id", *req.UserID)
		return
	}
	if h.log != nil {
		admin, _ := IdentityFrom(c.Request.Context())
		h.log.Infow("admin_rate_limit_updated",
			"admin_id", admin.ID, "target_user_id", *req.UserID, "rate_limit", *req.RateLimit)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Inspect a user's current window
// @Tags         admin
// @Produce      json
// @Param        userId  path      int  true  "User ID"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]string
// @Router       /api/admin/rate-limit/{userId} [get]
// @Security     BearerAuth
func (h *Handler) adminRateLimitSnapshot(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errMessageInvalidInput})
		return
	}
	w, ok := h.services.Snapshot(userID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"userId": userID, "active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":      userID,
		"active":      true,
		"count":       w.Count,
		"limit":       w.Limit,
		"remaining":   w.Remaining(),
		"windowStart": w.WindowStart,
	})
}
