package handlers

import (
	"net/http"

	"comet/internal/services"
	"comet/internal/views"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List 我的通知, newest first. ?unread=true keeps only unread ones.
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	ns, err := h.notifications.List(c.Request.Context(), viewerID(c), unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := views.Notifications(c.Request.Context(), loaders(c), viewerID(c), ns)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// Read 标记单条通知为已读
func (h *NotificationHandler) Read(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// ReadAll 全部通知标记为已读
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), viewerID(c)); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}
