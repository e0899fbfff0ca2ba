package feed

import (
	"context"

	"comet/internal/models"

	"gorm.io/gorm"
)

// MarkEndorsed sets IsEndorsed on posts the user actively endorses.
func MarkEndorsed(ctx context.Context, db *gorm.DB, userID string, posts []models.Post) error {
	if userID == "" || len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	var endorsed []string
	err := db.WithContext(ctx).Model(&models.PostEndorsement{}).
		Where("user_id = ? AND active = true AND post_id IN ?", userID, ids).
		Pluck("post_id", &endorsed).Error
	if err != nil {
		return err
	}
	set := toSet(endorsed)
	for i := range posts {
		posts[i].IsEndorsed = set[posts[i].ID]
	}
	return nil
}

// MarkCommentsEndorsed is MarkEndorsed for comments.
func MarkCommentsEndorsed(ctx context.Context, db *gorm.DB, userID string, comments []models.Comment) error {
	if userID == "" || len(comments) == 0 {
		return nil
	}
	ids := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}

	var endorsed []string
	err := db.WithContext(ctx).Model(&models.CommentEndorsement{}).
		Where("user_id = ? AND active = true AND comment_id IN ?", userID, ids).
		Pluck("comment_id", &endorsed).Error
	if err != nil {
		return err
	}
	set := toSet(endorsed)
	for i := range comments {
		comments[i].IsEndorsed = set[comments[i].ID]
	}
	return nil
}

// MarkHidden sets IsHidden from the personalization's hidden post set.
func MarkHidden(p *Personalization, posts []models.Post) {
	if p == nil || len(p.HiddenPostIDs) == 0 {
		return
	}
	set := toSet(p.HiddenPostIDs)
	for i := range posts {
		posts[i].IsHidden = set[posts[i].ID]
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
