package handlers

import (
	"net/http"

	"comet/internal/services"
	"comet/internal/views"

	"github.com/gin-gonic/gin"
)

type PlanetHandler struct {
	planets *services.PlanetService
}

func NewPlanetHandler(planets *services.PlanetService) *PlanetHandler {
	return &PlanetHandler{planets: planets}
}

type createPlanetRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=21,planetname"`
	Description string `json:"description" binding:"required,min=1,max=10000"`
	Galaxy      string `json:"galaxy" binding:"required"`
}

// Galaxies 星系列表
func (h *PlanetHandler) Galaxies(c *gin.Context) {
	c.JSON(http.StatusOK, h.planets.Galaxies())
}

func (h *PlanetHandler) Galaxy(c *gin.Context) {
	g, err := h.planets.Galaxy(c.Request.Context(), c.Param("galaxy"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// List 星球列表, 按成员数排序
func (h *PlanetHandler) List(c *gin.Context) {
	page, size, err := pageQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	planets, err := h.planets.List(c.Request.Context(), c.Query("galaxy"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, planets)
}

func (h *PlanetHandler) Get(c *gin.Context) {
	d, err := h.planets.Get(c.Request.Context(), viewerID(c), c.Param("planet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.NewPlanet(d))
}

func (h *PlanetHandler) Exists(c *gin.Context) {
	exists, err := h.planets.Exists(c.Request.Context(), c.Param("planet"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *PlanetHandler) Create(c *gin.Context) {
	var req createPlanetRequest
	if !bind(c, &req) {
		return
	}
	planet, err := h.planets.Create(c.Request.Context(), viewerID(c), req.Name, req.Description, req.Galaxy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, planet)
}

func (h *PlanetHandler) Join(c *gin.Context) {
	if err := h.planets.Join(c.Request.Context(), viewerID(c), c.Param("planet")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *PlanetHandler) Leave(c *gin.Context) {
	if err := h.planets.Leave(c.Request.Context(), viewerID(c), c.Param("planet")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *PlanetHandler) Mute(c *gin.Context) {
	if err := h.planets.Mute(c.Request.Context(), viewerID(c), c.Param("planet")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *PlanetHandler) Unmute(c *gin.Context) {
	if err := h.planets.Unmute(c.Request.Context(), viewerID(c), c.Param("planet")); err != nil {
		respondError(c, err)
		return
	}
	ok(c)
}

func (h *PlanetHandler) Joined(c *gin.Context) {
	planets, err := h.planets.Joined(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, planets)
}

func (h *PlanetHandler) Muted(c *gin.Context) {
	planets, err := h.planets.Muted(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, planets)
}
