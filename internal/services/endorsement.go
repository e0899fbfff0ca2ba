package services

import (
	"context"
	"time"

	"comet/internal/apperr"
	"comet/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// endorsable describes one kind of endorsable content.
type endorsable struct {
	table     string // content table
	joinTable string // endorsement rows
	column    string // content id column in joinTable
	notFound  string
	self      string
}

var (
	postEndorsable = endorsable{
		table:     "posts",
		joinTable: "post_endorsements",
		column:    "post_id",
		notFound:  "Post not found",
		self:      "Cannot endorse your own post",
	}
	commentEndorsable = endorsable{
		table:     "comments",
		joinTable: "comment_endorsements",
		column:    "comment_id",
		notFound:  "Comment not found",
		self:      "Cannot endorse your own comment",
	}
)

// toggle computes the next state of an endorsement and the counter delta.
// Without a record the endorsement is created active.
func toggle(exists, active bool) (next bool, delta int) {
	switch {
	case !exists:
		return true, 1
	case active:
		return false, -1
	default:
		return true, 1
	}
}

type EndorsementService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewEndorsementService(conn *gorm.DB) *EndorsementService {
	return &EndorsementService{db: conn, now: time.Now}
}

// TogglePost flips userID's endorsement of postID and reports whether it is
// now active.
func (s *EndorsementService) TogglePost(ctx context.Context, userID, postID string) (bool, error) {
	return s.toggle(ctx, postEndorsable, userID, postID)
}

// ToggleComment is TogglePost for comments.
func (s *EndorsementService) ToggleComment(ctx context.Context, userID, commentID string) (bool, error) {
	return s.toggle(ctx, commentEndorsable, userID, commentID)
}

// check rejects endorsing deleted content or one's own.
func (e endorsable) check(authorID string, deleted bool, userID string) error {
	if deleted {
		return apperr.NotFound(e.notFound)
	}
	if authorID == userID {
		return apperr.Conflict(e.self)
	}
	return nil
}

func (s *EndorsementService) toggle(ctx context.Context, e endorsable, userID, targetID string) (bool, error) {
	var active bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		active, err = s.toggleTx(tx, e, userID, targetID)
		return err
	})
	return active, err
}

// toggleTx runs inside the caller's transaction.
func (s *EndorsementService) toggleTx(tx *gorm.DB, e endorsable, userID, targetID string) (bool, error) {
	var target struct {
		AuthorID string
		Deleted  bool
	}
	err := tx.Table(e.table).Select("author_id, deleted").Where("id = ?", targetID).Take(&target).Error
	if db.IsNotFound(err) {
		return false, apperr.NotFound(e.notFound)
	}
	if err != nil {
		return false, err
	}
	if err := e.check(target.AuthorID, target.Deleted, userID); err != nil {
		return false, err
	}

	// 首次点赞：直接插入，冲突说明已有记录
	res := tx.Exec("INSERT INTO "+e.joinTable+" (user_id, "+e.column+", active, created_at) VALUES (?, ?, true, ?) ON CONFLICT DO NOTHING",
		userID, targetID, s.now())
	if res.Error != nil {
		return false, res.Error
	}

	var active bool
	var delta int
	if res.RowsAffected == 1 {
		active, delta = toggle(false, false)
	} else {
		var row struct{ Active bool }
		err := tx.Table(e.joinTable).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("active").
			Where("user_id = ? AND "+e.column+" = ?", userID, targetID).
			Take(&row).Error
		if err != nil {
			return false, err
		}
		active, delta = toggle(true, row.Active)
		if err := tx.Table(e.joinTable).
			Where("user_id = ? AND "+e.column+" = ?", userID, targetID).
			UpdateColumn("active", active).Error; err != nil {
			return false, err
		}
	}
	return active, e.applyDelta(tx, targetID, target.AuthorID, delta)
}

// applyDelta moves the content's and its author's counters together.
func (e endorsable) applyDelta(tx *gorm.DB, targetID, authorID string, delta int) error {
	if err := tx.Table(e.table).Where("id = ?", targetID).
		UpdateColumn("endorsement_count", gorm.Expr("endorsement_count + ?", delta)).Error; err != nil {
		return err
	}
	return tx.Table("users").Where("id = ?", authorID).
		UpdateColumn("endorsement_count", gorm.Expr("endorsement_count + ?", delta)).Error
}
