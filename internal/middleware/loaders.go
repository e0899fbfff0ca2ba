package middleware

import (
	"comet/internal/loader"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Loaders gives every request its own batch loaders.
func Loaders(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := loader.NewContext(c.Request.Context(), loader.NewLoaders(conn))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
