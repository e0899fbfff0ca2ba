package handlers

import (
	"net/http"

	"comet/internal/middleware"
	"comet/internal/services"

	"github.com/gin-gonic/gin"
)

// ImageHandler 图片上传
type ImageHandler struct {
	uploads *services.UploadService
}

func NewImageHandler(uploads *services.UploadService) *ImageHandler {
	return &ImageHandler{uploads: uploads}
}

// Upload 处理图片上传请求 (POST /api/upload), multipart field "file".
// PNG, JPEG, GIF and WebP up to 4MB.
func (h *ImageHandler) Upload(c *gin.Context) {
	data, filename, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.uploads.Upload(c.Request.Context(), middleware.CurrentUser(c), data, filename, services.AnyImage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
