package services

import (
	"context"
	"time"

	"comet/internal/apperr"
	"comet/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NotificationService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewNotificationService(conn *gorm.DB, log *zap.Logger) *NotificationService {
	return &NotificationService{db: conn, log: log}
}

// replyRecipient is who hears about c: the parent comment's author, or the
// post author for a top-level comment.
func replyRecipient(post *models.Post, parent *models.Comment) string {
	if parent != nil {
		return parent.AuthorID
	}
	return post.AuthorID
}

// NotifyReply records a reply notification for c. Self replies and replies
// from someone the recipient blocked are skipped.
func (s *NotificationService) NotifyReply(ctx context.Context, post *models.Post, parent *models.Comment, c *models.Comment) error {
	to := replyRecipient(post, parent)
	if to == "" || to == c.AuthorID {
		return nil
	}
	blocked, err := exists(ctx, s.db, &models.UserBlock{}, "blocker_id = ? AND blocked_id = ?", to, c.AuthorID)
	if err != nil || blocked {
		return err
	}
	return s.db.WithContext(ctx).Create(&models.ReplyNotification{
		ToUserID:        to,
		FromUserID:      c.AuthorID,
		PostID:          post.ID,
		CommentID:       c.ID,
		ParentCommentID: c.ParentCommentID,
	}).Error
}

// NotifyReplyAsync 异步发送回复通知（在 goroutine 中调用）
func (s *NotificationService) NotifyReplyAsync(post *models.Post, parent *models.Comment, c *models.Comment) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.NotifyReply(ctx, post, parent, c); err != nil {
			s.log.Error("reply notification failed", zap.String("comment_id", c.ID), zap.Error(err))
		}
	}()
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.ReplyNotification, error) {
	notifications := []models.ReplyNotification{}
	tx := s.db.WithContext(ctx).Where("to_user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("read = false")
	}
	err := tx.Order("created_at DESC").Limit(100).Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReplyNotification{}).
		Where("to_user_id = ? AND read = false", userID).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the user's own notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("Notification not found")
	}
	res := s.db.WithContext(ctx).Model(&models.ReplyNotification{}).
		Where("id = ? AND to_user_id = ?", id, userID).
		UpdateColumn("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.ReplyNotification{}).
		Where("to_user_id = ? AND read = false", userID).
		UpdateColumn("read", true).Error
}
