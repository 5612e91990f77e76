package handlers

import (
	"net/http"

	"chat_playground/internal/models"
	"chat_playground/internal/service"

	"github.com/gin-gonic/gin"
)

// Credentials is the body of login and registration.
type Credentials struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"s3cret"`
}

// UserInfo is the public view of the signed-in user.
type UserInfo struct {
	ID      int    `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func userInfo(u models.User) UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}

func (h *Handler) writeAuthResult(c *gin.Context, res service.AuthResult) {
	h.setTokenCookie(c, res.Token)
	c.JSON(http.StatusOK, AuthResponse{Token: res.Token, User: userInfo(res.User)})
}

// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      Credentials  true  "Credentials"
// @Success      200   {object}  AuthResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input Credentials
	if ok := h.bindJSONOrBadRequest(c, &input, "auth_bad_request_body"); !ok {
		return
	}

	res, err := h.services.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, "auth_login_failed", err, "email", input.Email)
		return
	}
	h.writeAuthResult(c, res)
}

// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      Credentials  true  "Credentials"
// @Success      200   {object}  AuthResponse
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var input Credentials
	if ok := h.bindJSONOrBadRequest(c, &input, "auth_bad_request_body"); !ok {
		return
	}

	res, err := h.services.Register(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, "auth_register_failed", err, "email", input.Email)
		return
	}
	if h.log != nil {
		h.log.Infow("auth_registered", "user_id", res.User.ID)
	}
	h.writeAuthResult(c, res)
}

// @Summary      Log out
// @Description  Clears the token cookie. Issued tokens stay valid until they expire.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /api/auth/logout [post]
func (h *Handler) logout(c *gin.Context) {
	h.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Success      200  {object}  UserInfo
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/me [get]
// @Security     BearerAuth
func (h *Handler) me(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, UserInfo{ID: id.ID, Email: id.Email, IsAdmin: id.IsAdmin})
}

// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/password [post]
// @Security     BearerAuth
func (h *Handler) changePassword(c *gin.Context) {
	id, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	var input changePasswordRequest
	if ok := h.bindJSONOrBadRequest(c, &input, "auth_bad_request_body"); !ok {
		return
	}
	if err := h.services.ChangePassword(c.Request.Context(), id.ID, input.CurrentPassword, input.NewPassword); err != nil {
		h.respondError(c, "auth_change_password_failed", err, "user_id", id.ID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
