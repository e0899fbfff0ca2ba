package handlers

import (
	"net/http"

	"comet/internal/feed"
	"comet/internal/middleware"
	"comet/internal/models"
	"comet/internal/services"
	"comet/internal/views"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments     *services.CommentService
	endorsements *services.EndorsementService
}

func NewCommentHandler(comments *services.CommentService, endorsements *services.EndorsementService) *CommentHandler {
	return &CommentHandler{comments: comments, endorsements: endorsements}
}

type submitCommentRequest struct {
	TextContent     string `json:"text_content" binding:"max=10000"`
	ParentCommentID string `json:"parent_comment_id"`
}

type editCommentRequest struct {
	TextContent string `json:"text_content" binding:"max=10000"`
}

func (h *CommentHandler) respondComment(c *gin.Context, status int, comment *models.Comment) {
	out, err := views.OneComment(c.Request.Context(), loaders(c), viewerID(c), comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, out)
}

// ForPost 文章评论 (GET /api/posts/:id/comments). The flat list keeps the
// requested order; tree nests the same comments under their parents.
func (h *CommentHandler) ForPost(c *gin.Context) {
	sort, err := feed.ParseCommentSort(c.Query("sort"), "")
	if err != nil {
		respondError(c, err)
		return
	}
	comments, err := h.comments.PostComments(c.Request.Context(), viewerID(c), c.Param("id"), sort)
	if err != nil {
		respondError(c, err)
		return
	}
	flat, err := views.Comments(c.Request.Context(), loaders(c), viewerID(c), comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": flat, "tree": views.Tree(flat)})
}

func (h *CommentHandler) Get(c *gin.Context) {
	comment, err := h.comments.Get(c.Request.Context(), viewerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondComment(c, http.StatusOK, comment)
}

func (h *CommentHandler) User(c *gin.Context) {
	page, size, err := pageQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	comments, err := h.comments.UserComments(c.Request.Context(), viewerID(c), c.Param("username"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := views.Comments(c.Request.Context(), loaders(c), viewerID(c), comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CommentHandler) Submit(c *gin.Context) {
	var req submitCommentRequest
	if !bind(c, &req) {
		return
	}
	comment, err := h.comments.Submit(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req.TextContent, req.ParentCommentID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondComment(c, http.StatusCreated, comment)
}

func (h *CommentHandler) Edit(c *gin.Context) {
	var req editCommentRequest
	if !bind(c, &req) {
		return
	}
	comment, err := h.comments.Edit(c.Request.Context(), viewerID(c), c.Param("id"), req.TextContent)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondComment(c, http.StatusOK, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *CommentHandler) Endorse(c *gin.Context) {
	active, err := h.endorsements.ToggleComment(c.Request.Context(), viewerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}
