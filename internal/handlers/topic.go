package handlers

import (
	"net/http"

	"comet/internal/services"

	"github.com/gin-gonic/gin"
)

type TopicHandler struct {
	topics *services.TopicService
}

func NewTopicHandler(topics *services.TopicService) *TopicHandler {
	return &TopicHandler{topics: topics}
}

func (h *TopicHandler) Get(c *gin.Context) {
	t, err := h.topics.Get(c.Request.Context(), viewerID(c), c.Param("topic"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TopicHandler) Popular(c *gin.Context) {
	topics, err := h.topics.Popular(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (h *TopicHandler) Search(c *gin.Context) {
	topics, err := h.topics.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (h *TopicHandler) Follow(c *gin.Context) {
	if err := h.topics.Follow(c.Request.Context(), viewerID(c), c.Param("topic")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *TopicHandler) Unfollow(c *gin.Context) {
	if err := h.topics.Unfollow(c.Request.Context(), viewerID(c), c.Param("topic")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *TopicHandler) Hide(c *gin.Context) {
	if err := h.topics.Hide(c.Request.Context(), viewerID(c), c.Param("topic")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *TopicHandler) Unhide(c *gin.Context) {
	if err := h.topics.Unhide(c.Request.Context(), viewerID(c), c.Param("topic")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *TopicHandler) Followed(c *gin.Context) {
	topics, err := h.topics.Followed(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

func (h *TopicHandler) Hidden(c *gin.Context) {
	topics, err := h.topics.Hidden(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}
