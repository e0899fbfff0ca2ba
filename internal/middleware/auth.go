package middleware

import (
	"context"
	"net/http"
	"strings"

	"comet/internal/models"

	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// TokenVerifier resolves an access token to a user id.
type TokenVerifier interface {
	UserIDFromAccessToken(token string) (string, error)
}

// UserGetter loads a user by id, returning nil when there is none.
type UserGetter interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// ModeratorChecker reports whether user moderates the named planet.
type ModeratorChecker interface {
	IsModerator(ctx context.Context, user *models.User, planet string) (bool, error)
}

// LoadUser resolves the bearer token and sets the user on the context.
// A missing, invalid or expired token, or a banned account, leaves the
// request anonymous.
func LoadUser(tokens TokenVerifier, users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		userID, err := tokens.UserIDFromAccessToken(token)
		if err != nil {
			c.Next()
			return
		}
		user, err := users.Get(c.Request.Context(), userID)
		if err == nil && user != nil && !user.Banned {
			c.Set(CheckUserKey, user)
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CurrentUserID is "" for anonymous requests.
func CurrentUserID(c *gin.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		if !user.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Must be an admin"})
			return
		}
		c.Next()
	}
}

// PlanetModRequired guards routes carrying a :planet param.
func PlanetModRequired(planets ModeratorChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		ok, err := planets.IsModerator(c.Request.Context(), user, c.Param("planet"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Must be a moderator of +" + c.Param("planet")})
			return
		}
		c.Next()
	}
}
