package handlers

import (
	"net/http"

	"comet/internal/apperr"
	"comet/internal/middleware"
	"comet/internal/services"
	"comet/internal/views"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const refreshTokenKey = "refresh_token"

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type signUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20,username"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// startSession keeps the refresh token in the jid cookie and hands the
// access token to the client.
func (h *AuthHandler) startSession(c *gin.Context, s *services.Session) {
	session := sessions.Default(c)
	session.Set(refreshTokenKey, s.RefreshToken)
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": s.AccessToken,
		"user":         views.CurrentUser(s.User),
	})
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bind(c, &req) {
		return
	}
	s, err := h.auth.SignUp(c.Request.Context(), services.SignUpInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, s)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	s, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, s)
}

// Refresh issues a new access token from the jid cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	session := sessions.Default(c)
	token, _ := session.Get(refreshTokenKey).(string)
	if token == "" {
		respondError(c, apperr.Unauthorized("Not authenticated"))
		return
	}
	s, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		session.Delete(refreshTokenKey)
		_ = session.Save()
		respondError(c, err)
		return
	}
	h.startSession(c, s)
}

// Logout clears the cookie and, for a signed-in user, revokes every
// outstanding refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	if user := middleware.CurrentUser(c); user != nil {
		if err := h.auth.Logout(c.Request.Context(), user.ID); err != nil {
			respondError(c, err)
			return
		}
	}
	session := sessions.Default(c)
	session.Delete(refreshTokenKey)
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bind(c, &req) {
		return
	}
	s, err := h.auth.ChangePassword(c.Request.Context(), middleware.CurrentUser(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, s)
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, views.CurrentUser(middleware.CurrentUser(c)))
}
