package services

import (
	"context"
	"strings"
	"time"

	"comet/internal/apperr"
	"comet/internal/db"
	"comet/internal/feed"
	"comet/internal/models"
	"comet/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CommentService struct {
	db            *gorm.DB
	notifications *NotificationService
	log           *zap.Logger
	now           func() time.Time
}

func NewCommentService(conn *gorm.DB, notifications *NotificationService, log *zap.Logger) *CommentService {
	return &CommentService{db: conn, notifications: notifications, log: log, now: time.Now}
}

func (s *CommentService) find(ctx context.Context, id string) (*models.Comment, error) {
	if !utils.ValidID(id) {
		return nil, apperr.NotFound("Comment not found")
	}
	var c models.Comment
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if db.IsNotFound(err) {
		return nil, apperr.NotFound("Comment not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CommentService) findPost(ctx context.Context, id string) (*models.Post, error) {
	if !utils.ValidID(id) {
		return nil, apperr.NotFound("Post not found")
	}
	var post models.Post
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error
	if db.IsNotFound(err) {
		return nil, apperr.NotFound("Post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// PostComments returns every comment of a post in display order. With no
// sort given the planet's default comment sort applies.
func (s *CommentService) PostComments(ctx context.Context, viewerID, postID string, sort feed.Sort) ([]models.Comment, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if sort == "" {
		sort = feed.SortTop
		if post.PlanetName != nil {
			planet, err := findPlanet(ctx, s.db, *post.PlanetName)
			if err != nil {
				return nil, err
			}
			if planet != nil && planet.DefaultCommentSort != "" {
				sort = feed.Sort(planet.DefaultCommentSort)
			}
		}
	}

	comments := []models.Comment{}
	if err := feed.Comments(s.db.WithContext(ctx), post.ID, sort, s.now()).Find(&comments).Error; err != nil {
		return nil, err
	}
	if err := feed.MarkCommentsEndorsed(ctx, s.db, viewerID, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentService) Get(ctx context.Context, viewerID, id string) (*models.Comment, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	comments := []models.Comment{*c}
	if err := feed.MarkCommentsEndorsed(ctx, s.db, viewerID, comments); err != nil {
		return nil, err
	}
	return &comments[0], nil
}

// UserComments lists a user's comments, newest first. An unknown user has none.
func (s *CommentService) UserComments(ctx context.Context, viewerID, username string, page, pageSize int) ([]models.Comment, error) {
	comments := []models.Comment{}
	var user models.User
	err := s.db.WithContext(ctx).Select("id").Where("LOWER(username) = LOWER(?)", username).Take(&user).Error
	if db.IsNotFound(err) {
		return comments, nil
	}
	if err != nil {
		return nil, err
	}
	if err := feed.AuthorComments(s.db.WithContext(ctx), user.ID, page, pageSize).Find(&comments).Error; err != nil {
		return nil, err
	}
	if err := feed.MarkCommentsEndorsed(ctx, s.db, viewerID, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// threadRoot is the root id a reply to parent gets.
func threadRoot(parent *models.Comment) *string {
	if parent == nil {
		return nil
	}
	if parent.RootCommentID != nil {
		root := *parent.RootCommentID
		return &root
	}
	id := parent.ID
	return &id
}

func (s *CommentService) Submit(ctx context.Context, user *models.User, postID, textContent, parentCommentID string) (*models.Comment, error) {
	textContent = strings.TrimSpace(textContent)
	if textContent == "" {
		return nil, apperr.Validation("textContent cannot be empty")
	}

	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Deleted || post.Removed {
		return nil, apperr.NotFound("Post not found")
	}
	if post.PlanetName != nil {
		banned, err := exists(ctx, s.db, &models.PlanetBan{}, "user_id = ? AND planet_name = ?", user.ID, *post.PlanetName)
		if err != nil {
			return nil, err
		}
		if banned {
			return nil, apperr.Forbidden("You have been banned from +" + *post.PlanetName)
		}
	}

	var parent *models.Comment
	if parentCommentID != "" {
		parent, err = s.find(ctx, parentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, apperr.Validation("Parent comment is not on this post")
		}
	}

	now := s.now()
	interval := CommentInterval
	if user.Admin {
		interval = 0
	}
	c := &models.Comment{
		PostID:        post.ID,
		AuthorID:      user.ID,
		RootCommentID: threadRoot(parent),
		TextContent:   textContent,
	}
	if parent != nil {
		c.ParentCommentID = &parent.ID
	}

	commentSlot := slot{userID: user.ID, column: "last_commented_at", interval: interval, last: user.LastCommentedAt, action: "commenting again"}
	err = throttled(s.db.WithContext(ctx), commentSlot, now, func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyReplyAsync(post, parent, c)
	return c, nil
}

func (s *CommentService) Edit(ctx context.Context, userID, id, textContent string) (*models.Comment, error) {
	textContent = strings.TrimSpace(textContent)
	if textContent == "" {
		return nil, apperr.Validation("textContent cannot be empty")
	}
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != userID {
		return nil, apperr.Forbidden("Attempt to edit comment by someone other than author")
	}
	if c.Deleted || c.Removed {
		return nil, apperr.NotFound("Comment not found")
	}

	now := s.now()
	err = s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"text_content": textContent,
		"edited_at":    now,
	}).Error
	if err != nil {
		return nil, err
	}
	c.TextContent = textContent
	c.EditedAt = &now
	return c, nil
}

// Delete soft-deletes so replies keep their place in the thread.
func (s *CommentService) Delete(ctx context.Context, userID, id string) error {
	c, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if c.AuthorID != userID {
		return apperr.Forbidden("Attempt to delete comment by someone other than author")
	}
	return s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).UpdateColumn("deleted", true).Error
}
