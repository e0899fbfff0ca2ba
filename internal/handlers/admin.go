package handlers

import (
	"net/http"

	"comet/internal/apperr"
	"comet/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves /api/admin, behind AdminRequired.
type AdminHandler struct {
	users    *services.UserService
	reposter *services.Reposter
}

// NewAdminHandler takes a nil reposter when reposting is disabled.
func NewAdminHandler(users *services.UserService, reposter *services.Reposter) *AdminHandler {
	return &AdminHandler{users: users, reposter: reposter}
}

type banRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// BanUser 全站封禁
func (h *AdminHandler) BanUser(c *gin.Context) {
	var req banRequest
	if !bind(c, &req) {
		return
	}
	if err := h.users.Ban(c.Request.Context(), c.Param("username"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *AdminHandler) UnbanUser(c *gin.Context) {
	if err := h.users.Unban(c.Request.Context(), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// RunReposter polls every configured feed now instead of waiting for the
// next tick.
func (h *AdminHandler) RunReposter(c *gin.Context) {
	if h.reposter == nil {
		respondError(c, apperr.Validation("Reposter is not enabled"))
		return
	}
	n, err := h.reposter.RunOnce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posted": n})
}
