package handlers

import (
	"net/http"
	"strings"

	"comet/internal/feed"
	"comet/internal/middleware"
	"comet/internal/models"
	"comet/internal/services"
	"comet/internal/views"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts        *services.PostService
	endorsements *services.EndorsementService
}

func NewPostHandler(posts *services.PostService, endorsements *services.EndorsementService) *PostHandler {
	return &PostHandler{posts: posts, endorsements: endorsements}
}

type submitPostRequest struct {
	Title       string   `json:"title" binding:"required,min=1,max=300"`
	Type        string   `json:"type" binding:"required,oneof=TEXT LINK IMAGE"`
	Link        string   `json:"link" binding:"omitempty,max=2000"`
	TextContent string   `json:"text_content" binding:"max=40000"`
	Planet      string   `json:"planet" binding:"omitempty,max=21"`
	Topics      []string `json:"topics" binding:"max=10"`
}

type editPostRequest struct {
	TextContent string `json:"text_content" binding:"max=40000"`
}

type reportRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

func (h *PostHandler) respondPosts(c *gin.Context, posts []models.Post, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := views.Posts(c.Request.Context(), loaders(c), viewerID(c), posts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PostHandler) respondPost(c *gin.Context, status int, post *models.Post) {
	out, err := views.OnePost(c.Request.Context(), loaders(c), viewerID(c), post)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, out)
}

// Home 首页 (GET /api/posts)
func (h *PostHandler) Home(c *gin.Context) {
	q, err := listQuery(c, "", feed.WindowDay)
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.posts.HomeFeed(c.Request.Context(), viewerID(c), q)
	h.respondPosts(c, posts, err)
}

func (h *PostHandler) Planet(c *gin.Context) {
	q, err := listQuery(c, "", "")
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.posts.PlanetFeed(c.Request.Context(), viewerID(c), c.Param("planet"), q)
	h.respondPosts(c, posts, err)
}

func (h *PostHandler) Galaxy(c *gin.Context) {
	q, err := listQuery(c, "", "")
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.posts.GalaxyFeed(c.Request.Context(), viewerID(c), c.Param("galaxy"), q)
	h.respondPosts(c, posts, err)
}

func (h *PostHandler) Topic(c *gin.Context) {
	q, err := listQuery(c, "", "")
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.posts.TopicFeed(c.Request.Context(), viewerID(c), c.Param("topic"), q)
	h.respondPosts(c, posts, err)
}

func (h *PostHandler) User(c *gin.Context) {
	q, err := listQuery(c, "", "")
	if err != nil {
		respondError(c, err)
		return
	}
	posts, err := h.posts.UserPosts(c.Request.Context(), viewerID(c), c.Param("username"), q)
	h.respondPosts(c, posts, err)
}

// Search 搜索 (GET /api/search?search=)
func (h *PostHandler) Search(c *gin.Context) {
	q, err := listQuery(c, "", "")
	if err != nil {
		respondError(c, err)
		return
	}
	q.Search = strings.TrimSpace(q.Search)
	if q.Search == "" {
		c.JSON(http.StatusOK, []views.Post{})
		return
	}
	posts, err := h.posts.Search(c.Request.Context(), viewerID(c), q)
	h.respondPosts(c, posts, err)
}

func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), viewerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondPost(c, http.StatusOK, post)
}

func (h *PostHandler) Submit(c *gin.Context) {
	var req submitPostRequest
	if !bind(c, &req) {
		return
	}
	post, err := h.posts.Submit(c.Request.Context(), middleware.CurrentUser(c), services.SubmitPostInput{
		Title:       req.Title,
		Type:        models.PostType(req.Type),
		Link:        req.Link,
		TextContent: req.TextContent,
		PlanetName:  req.Planet,
		Topics:      req.Topics,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondPost(c, http.StatusCreated, post)
}

func (h *PostHandler) Edit(c *gin.Context) {
	var req editPostRequest
	if !bind(c, &req) {
		return
	}
	post, err := h.posts.Edit(c.Request.Context(), viewerID(c), c.Param("id"), req.TextContent)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondPost(c, http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// Endorse toggles the viewer's endorsement (POST /api/posts/:id/endorse)
func (h *PostHandler) Endorse(c *gin.Context) {
	active, err := h.endorsements.TogglePost(c.Request.Context(), viewerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

func (h *PostHandler) RecordView(c *gin.Context) {
	if err := h.posts.RecordView(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *PostHandler) Hide(c *gin.Context) {
	if err := h.posts.Hide(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *PostHandler) Unhide(c *gin.Context) {
	if err := h.posts.Unhide(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *PostHandler) Hidden(c *gin.Context) {
	posts, err := h.posts.HiddenPosts(c.Request.Context(), viewerID(c))
	h.respondPosts(c, posts, err)
}

func (h *PostHandler) Report(c *gin.Context) {
	var req reportRequest
	if !bind(c, &req) {
		return
	}
	if err := h.posts.Report(c.Request.Context(), viewerID(c), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

// TitleAtURL is "" whenever the page cannot be read.
func (h *PostHandler) TitleAtURL(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"title": h.posts.TitleAtURL(c.Request.Context(), c.Query("url"))})
}
