package loader

import (
	"context"

	"comet/internal/models"

	"gorm.io/gorm"
)

// PostViewKey identifies a PostView row.
type PostViewKey struct {
	UserID string
	PostID string
}

// Loaders holds one loader per entity type for a single request.
type Loaders struct {
	Users     *Loader[string, *models.User]
	Posts     *Loader[string, *models.Post]
	Comments  *Loader[string, *models.Comment]
	Planets   *Loader[string, *models.Planet]
	PostViews *Loader[PostViewKey, *models.PostView]
}

// NewLoaders builds fresh loaders reading from db. Build one per request.
func NewLoaders(db *gorm.DB) *Loaders {
	return &Loaders{
		Users: New(byPrimaryKey(db, "id", func(u *models.User) string { return u.ID })),
		Posts: New(byPrimaryKey(db, "id", func(p *models.Post) string { return p.ID })),
		Comments: New(byPrimaryKey(db, "id", func(c *models.Comment) string {
			return c.ID
		})),
		Planets:   New(byPrimaryKey(db, "name", func(p *models.Planet) string { return p.Name })),
		PostViews: New(postViews(db)),
	}
}

// byPrimaryKey issues a single WHERE col IN (...) for a batch.
func byPrimaryKey[T any](db *gorm.DB, column string, key func(*T) string) FetchFunc[string, *T] {
	return func(ctx context.Context, keys []string) (map[string]*T, error) {
		var rows []T
		if err := db.WithContext(ctx).Where(column+" IN ?", keys).Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make(map[string]*T, len(rows))
		for i := range rows {
			out[key(&rows[i])] = &rows[i]
		}
		return out, nil
	}
}

// postViews fetches composite keys with a row-value IN list.
func postViews(db *gorm.DB) FetchFunc[PostViewKey, *models.PostView] {
	return func(ctx context.Context, keys []PostViewKey) (map[PostViewKey]*models.PostView, error) {
		pairs := make([][]interface{}, len(keys))
		for i, k := range keys {
			pairs[i] = []interface{}{k.UserID, k.PostID}
		}
		var rows []models.PostView
		if err := db.WithContext(ctx).Where("(user_id, post_id) IN ?", pairs).Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make(map[PostViewKey]*models.PostView, len(rows))
		for i := range rows {
			out[PostViewKey{UserID: rows[i].UserID, PostID: rows[i].PostID}] = &rows[i]
		}
		return out, nil
	}
}

type ctxKey struct{}

// NewContext attaches l to ctx.
func NewContext(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request's loaders, or nil outside a request.
func FromContext(ctx context.Context) *Loaders {
	l, _ := ctx.Value(ctxKey{}).(*Loaders)
	return l
}
