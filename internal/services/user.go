package services

import (
	"context"
	"strings"

	"comet/internal/apperr"
	"comet/internal/db"
	"comet/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Profile is a user together with the counts and viewer relations shown on
// the profile page.
type Profile struct {
	User           *models.User
	FollowerCount  int64
	FollowingCount int64
	PostCount      int64
	CommentCount   int64
	IsFollowing    bool // viewer follows user
	IsFollowed     bool // user follows viewer
	IsBlocking     bool // viewer blocks user
	IsBlocked      bool // user blocks viewer
	IsCurrentUser  bool
}

type UserService struct {
	db      *gorm.DB
	uploads *UploadService
}

func NewUserService(conn *gorm.DB, uploads *UploadService) *UserService {
	return &UserService{db: conn, uploads: uploads}
}

// Get loads a user by id. A missing user is nil without error.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ByUsername looks a user up case-insensitively. A missing user is nil
// without error.
func (s *UserService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", strings.TrimSpace(username)).Take(&user).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) mustByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

// Profile builds username's profile as seen by viewerID (may be empty).
func (s *UserService) Profile(ctx context.Context, viewerID, username string) (*Profile, error) {
	user, err := s.mustByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: user, IsCurrentUser: viewerID == user.ID}
	conn := s.db.WithContext(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return conn.Model(&models.UserFollow{}).Where("following_id = ?", user.ID).Count(&p.FollowerCount).Error
	})
	g.Go(func() error {
		return conn.Model(&models.UserFollow{}).Where("follower_id = ?", user.ID).Count(&p.FollowingCount).Error
	})
	g.Go(func() error {
		return conn.Model(&models.Post{}).Where("author_id = ? AND deleted = false", user.ID).Count(&p.PostCount).Error
	})
	g.Go(func() error {
		return conn.Model(&models.Comment{}).Where("author_id = ? AND deleted = false", user.ID).Count(&p.CommentCount).Error
	})
	if viewerID != "" && viewerID != user.ID {
		g.Go(func() (err error) {
			p.IsFollowing, err = exists(ctx, s.db, &models.UserFollow{}, "follower_id = ? AND following_id = ?", viewerID, user.ID)
			return err
		})
		g.Go(func() (err error) {
			p.IsFollowed, err = exists(ctx, s.db, &models.UserFollow{}, "follower_id = ? AND following_id = ?", user.ID, viewerID)
			return err
		})
		g.Go(func() (err error) {
			p.IsBlocking, err = exists(ctx, s.db, &models.UserBlock{}, "blocker_id = ? AND blocked_id = ?", viewerID, user.ID)
			return err
		})
		g.Go(func() (err error) {
			p.IsBlocked, err = exists(ctx, s.db, &models.UserBlock{}, "blocker_id = ? AND blocked_id = ?", user.ID, viewerID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *UserService) requireUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("User not found")
	}
	ok, err := exists(ctx, s.db, &models.User{}, "id = ?", id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (s *UserService) Follow(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return apperr.Conflict("Cannot follow yourself")
	}
	if err := s.requireUser(ctx, targetID); err != nil {
		return err
	}
	return link(ctx, s.db, &models.UserFollow{FollowerID: userID, FollowingID: targetID})
}

func (s *UserService) Unfollow(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return apperr.Conflict("Cannot unfollow yourself")
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return apperr.NotFound("User not found")
	}
	return unlink(ctx, s.db, &models.UserFollow{}, "follower_id = ? AND following_id = ?", userID, targetID)
}

// Block also drops follows in both directions.
func (s *UserService) Block(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return apperr.Conflict("Cannot block yourself")
	}
	if err := s.requireUser(ctx, targetID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := link(ctx, tx, &models.UserBlock{BlockerID: userID, BlockedID: targetID}); err != nil {
			return err
		}
		return unlink(ctx, tx, &models.UserFollow{},
			"(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			userID, targetID, targetID, userID)
	})
}

func (s *UserService) Unblock(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return apperr.Conflict("Cannot unblock yourself")
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return apperr.NotFound("User not found")
	}
	return unlink(ctx, s.db, &models.UserBlock{}, "blocker_id = ? AND blocked_id = ?", userID, targetID)
}

func (s *UserService) BlockedUsers(ctx context.Context, userID string) ([]models.User, error) {
	users := []models.User{}
	err := s.db.WithContext(ctx).
		Where("id IN (SELECT blocked_id FROM user_blocks WHERE blocker_id = ?)", userID).
		Order("username").
		Find(&users).Error
	return users, err
}

// Blocks reports whether blockerID has blocked blockedID.
func (s *UserService) Blocks(ctx context.Context, blockerID, blockedID string) (bool, error) {
	return exists(ctx, s.db, &models.UserBlock{}, "blocker_id = ? AND blocked_id = ?", blockerID, blockedID)
}

func (s *UserService) SetBio(ctx context.Context, userID, bio string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("bio", strings.TrimSpace(bio)).Error
}

// UploadProfilePic stores the image and points the profile at it.
func (s *UserService) UploadProfilePic(ctx context.Context, user *models.User, data []byte, filename string) (string, error) {
	url, err := s.uploads.Upload(ctx, user, data, filename, PNGOrJPEGOnly)
	if err != nil {
		return "", err
	}
	err = s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("profile_pic_url", url).Error
	return url, err
}

// Ban bans username site-wide and invalidates their refresh tokens.
func (s *UserService) Ban(ctx context.Context, username, reason string) error {
	user, err := s.mustByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user.Admin {
		return apperr.Forbidden("Cannot ban an admin")
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"banned":        true,
		"ban_reason":    strings.TrimSpace(reason),
		"token_version": gorm.Expr("token_version + 1"),
	}).Error
}

func (s *UserService) Unban(ctx context.Context, username string) error {
	user, err := s.mustByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"banned":     false,
		"ban_reason": "",
	}).Error
}
