package handlers

import (
	"net/http"
	"strconv"

	"comet/internal/apperr"
	"comet/internal/middleware"
	"comet/internal/services"
	"comet/internal/views"

	"github.com/gin-gonic/gin"
)

// ModerationHandler serves /api/planets/:planet/mod, behind PlanetModRequired.
type ModerationHandler struct {
	mod *services.ModerationService
}

func NewModerationHandler(mod *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{mod: mod}
}

type removeRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type themeColorRequest struct {
	Color string `json:"color" binding:"required"`
}

type descriptionRequest struct {
	Description string `json:"description" binding:"max=10000"`
}

type customNameRequest struct {
	CustomName string `json:"custom_name" binding:"max=50"`
}

type allowedPostTypesRequest struct {
	Text  bool `json:"text"`
	Link  bool `json:"link"`
	Image bool `json:"image"`
}

type defaultSortsRequest struct {
	Sort        string `json:"sort" binding:"omitempty,oneof=HOT NEW TOP"`
	CommentSort string `json:"comment_sort" binding:"omitempty,oneof=TOP NEW HOT"`
}

func (h *ModerationHandler) RemovePost(c *gin.Context) {
	var req removeRequest
	if !bind(c, &req) {
		return
	}
	if err := h.mod.RemovePost(c.Request.Context(), c.Param("planet"), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) RemoveComment(c *gin.Context) {
	var req removeRequest
	if !bind(c, &req) {
		return
	}
	if err := h.mod.RemoveComment(c.Request.Context(), c.Param("planet"), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// Sticky 置顶/取消置顶
func (h *ModerationHandler) Sticky(c *gin.Context) {
	sticky, err := h.mod.StickyPost(c.Request.Context(), c.Param("planet"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sticky": sticky})
}

func (h *ModerationHandler) BanUser(c *gin.Context) {
	if err := h.mod.BanUser(c.Request.Context(), c.Param("planet"), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) UnbanUser(c *gin.Context) {
	if err := h.mod.UnbanUser(c.Request.Context(), c.Param("planet"), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) BannedUsers(c *gin.Context) {
	users, err := h.mod.BannedUsers(c.Request.Context(), c.Param("planet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.Authors(users))
}

func (h *ModerationHandler) SetThemeColor(c *gin.Context) {
	var req themeColorRequest
	if !bind(c, &req) {
		return
	}
	if err := h.mod.SetThemeColor(c.Request.Context(), c.Param("planet"), req.Color); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) SetDescription(c *gin.Context) {
	var req descriptionRequest
	if !bind(c, &req) {
		return
	}
	if err := h.mod.SetDescription(c.Request.Context(), c.Param("planet"), req.Description); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) SetCustomName(c *gin.Context) {
	var req customNameRequest
	if !bind(c, &req) {
		return
	}
	if err := h.mod.SetCustomName(c.Request.Context(), c.Param("planet"), req.CustomName); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) SetAllowedPostTypes(c *gin.Context) {
	var req allowedPostTypesRequest
	if !bind(c, &req) {
		return
	}
	if err := h.mod.SetAllowedPostTypes(c.Request.Context(), c.Param("planet"), req.Text, req.Link, req.Image); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) SetDefaultSorts(c *gin.Context) {
	var req defaultSortsRequest
	if !bind(c, &req) {
		return
	}
	if err := h.mod.SetDefaultSorts(c.Request.Context(), c.Param("planet"), req.Sort, req.CommentSort); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) UploadAvatar(c *gin.Context) {
	data, filename, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.mod.UploadAvatar(c.Request.Context(), middleware.CurrentUser(c), c.Param("planet"), data, filename)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *ModerationHandler) UploadCard(c *gin.Context) {
	data, filename, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.mod.UploadCard(c.Request.Context(), middleware.CurrentUser(c), c.Param("planet"), data, filename)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *ModerationHandler) Reports(c *gin.Context) {
	reports, err := h.mod.Reports(c.Request.Context(), c.Param("planet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *ModerationHandler) ResolveReport(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.NotFound("Report not found"))
		return
	}
	if err := h.mod.ResolveReport(c.Request.Context(), c.Param("planet"), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *ModerationHandler) AddModerator(c *gin.Context) {
	if err := h.mod.AddModerator(c.Request.Context(), c.Param("planet"), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}
