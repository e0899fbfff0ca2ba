package handlers

import (
	"net/http"

	"comet/internal/middleware"
	"comet/internal/services"
	"comet/internal/views"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type setBioRequest struct {
	Bio string `json:"bio" binding:"max=160"`
}

// Profile 用户主页 (GET /api/users/:username)
func (h *UserHandler) Profile(c *gin.Context) {
	p, err := h.users.Profile(c.Request.Context(), viewerID(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.NewProfile(p))
}

func (h *UserHandler) Follow(c *gin.Context) {
	if err := h.users.Follow(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	if err := h.users.Unfollow(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *UserHandler) Block(c *gin.Context) {
	if err := h.users.Block(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *UserHandler) Unblock(c *gin.Context) {
	if err := h.users.Unblock(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *UserHandler) Blocked(c *gin.Context) {
	users, err := h.users.BlockedUsers(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.Authors(users))
}

func (h *UserHandler) SetBio(c *gin.Context) {
	var req setBioRequest
	if !bind(c, &req) {
		return
	}
	if err := h.users.SetBio(c.Request.Context(), viewerID(c), req.Bio); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// UploadProfilePic 上传头像, multipart field "file"
func (h *UserHandler) UploadProfilePic(c *gin.Context) {
	data, filename, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.users.UploadProfilePic(c.Request.Context(), middleware.CurrentUser(c), data, filename)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
