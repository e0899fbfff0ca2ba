package services

import (
	"context"
	"strings"
	"time"

	"comet/internal/apperr"
	"comet/internal/db"
	"comet/internal/models"
	"comet/internal/utils"

	"gorm.io/gorm"
)

// ModerationService holds the planet moderator operations. Callers have
// already checked that the acting user moderates the planet.
type ModerationService struct {
	db      *gorm.DB
	uploads *UploadService
	now     func() time.Time
}

func NewModerationService(conn *gorm.DB, uploads *UploadService) *ModerationService {
	return &ModerationService{db: conn, uploads: uploads, now: time.Now}
}

func (s *ModerationService) planet(ctx context.Context, name string) (*models.Planet, error) {
	planet, err := findPlanet(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if planet == nil {
		return nil, apperr.NotFound("Planet not found")
	}
	return planet, nil
}

// postIn loads a post that belongs to planet.
func (s *ModerationService) postIn(ctx context.Context, planet *models.Planet, postID string) (*models.Post, error) {
	if !utils.ValidID(postID) {
		return nil, apperr.NotFound("Post not found")
	}
	var post models.Post
	err := s.db.WithContext(ctx).Where("id = ? AND planet_name = ?", postID, planet.Name).Take(&post).Error
	if db.IsNotFound(err) {
		return nil, apperr.NotFound("Post not found")
	}
	return &post, err
}

func (s *ModerationService) RemovePost(ctx context.Context, planetName, postID, reason string) error {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return err
	}
	if _, err := s.postIn(ctx, planet, postID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
		"removed":        true,
		"removed_reason": strings.TrimSpace(reason),
		"sticky":         false,
	}).Error
}

func (s *ModerationService) RemoveComment(ctx context.Context, planetName, commentID, reason string) error {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return err
	}
	if !utils.ValidID(commentID) {
		return apperr.NotFound("Comment not found")
	}
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND post_id IN (SELECT id FROM posts WHERE planet_name = ?)", commentID, planet.Name).
		Updates(map[string]interface{}{
			"removed":        true,
			"removed_reason": strings.TrimSpace(reason),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Comment not found")
	}
	return nil
}

// StickyPost toggles whether a post is pinned to the top of the planet and
// returns the new state.
func (s *ModerationService) StickyPost(ctx context.Context, planetName, postID string) (bool, error) {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return false, err
	}
	post, err := s.postIn(ctx, planet, postID)
	if err != nil {
		return false, err
	}
	sticky := !post.Sticky
	err = s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("sticky", sticky).Error
	return sticky, err
}

func (s *ModerationService) userByName(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", strings.TrimSpace(username)).Take(&user).Error
	if db.IsNotFound(err) {
		return nil, apperr.NotFound("User not found")
	}
	return &user, err
}

// BanUser bans username from the planet; they leave it and can no longer
// post or comment there.
func (s *ModerationService) BanUser(ctx context.Context, planetName, username string) error {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return err
	}
	user, err := s.userByName(ctx, username)
	if err != nil {
		return err
	}
	mod, err := exists(ctx, s.db, &models.PlanetModerator{}, "user_id = ? AND planet_name = ?", user.ID, planet.Name)
	if err != nil {
		return err
	}
	if mod || user.Admin {
		return apperr.Forbidden("Cannot ban a moderator")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unlink(ctx, tx, &models.PlanetMember{}, "user_id = ? AND planet_name = ?", user.ID, planet.Name); err != nil {
			return err
		}
		return link(ctx, tx, &models.PlanetBan{UserID: user.ID, PlanetName: planet.Name, CreatedAt: s.now()})
	})
}

func (s *ModerationService) UnbanUser(ctx context.Context, planetName, username string) error {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return err
	}
	user, err := s.userByName(ctx, username)
	if err != nil {
		return err
	}
	return unlink(ctx, s.db, &models.PlanetBan{}, "user_id = ? AND planet_name = ?", user.ID, planet.Name)
}

// BannedUsers lists who is banned from the planet.
func (s *ModerationService) BannedUsers(ctx context.Context, planetName string) ([]models.User, error) {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	err = s.db.WithContext(ctx).
		Where("id IN (SELECT user_id FROM planet_bans WHERE planet_name = ?)", planet.Name).
		Order("username").Find(&users).Error
	return users, err
}

func (s *ModerationService) update(ctx context.Context, planetName string, values map[string]interface{}) error {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Planet{}).Where("name = ?", planet.Name).Updates(values).Error
}

func (s *ModerationService) SetThemeColor(ctx context.Context, planetName, color string) error {
	if !utils.IsHexColor(color) {
		return apperr.Validation("Invalid color")
	}
	return s.update(ctx, planetName, map[string]interface{}{"theme_color": color})
}

func (s *ModerationService) SetDescription(ctx context.Context, planetName, description string) error {
	if len(description) > 10000 {
		return apperr.Validation("Description must be 10000 characters or less")
	}
	return s.update(ctx, planetName, map[string]interface{}{"description": description})
}

func (s *ModerationService) SetCustomName(ctx context.Context, planetName, customName string) error {
	customName = strings.TrimSpace(customName)
	if len(customName) > 50 {
		return apperr.Validation("Custom name must be 50 characters or less")
	}
	return s.update(ctx, planetName, map[string]interface{}{"custom_name": customName})
}

// SetAllowedPostTypes requires at least one type to stay allowed.
func (s *ModerationService) SetAllowedPostTypes(ctx context.Context, planetName string, text, link, image bool) error {
	if !text && !link && !image {
		return apperr.Validation("At least one post type must be allowed")
	}
	return s.update(ctx, planetName, map[string]interface{}{
		"allow_text_posts":  text,
		"allow_link_posts":  link,
		"allow_image_posts": image,
	})
}

// SetDefaultSorts changes the planet's default post and comment order.
func (s *ModerationService) SetDefaultSorts(ctx context.Context, planetName, postSort, commentSort string) error {
	values := map[string]interface{}{}
	if postSort != "" {
		values["default_sort"] = postSort
	}
	if commentSort != "" {
		values["default_comment_sort"] = commentSort
	}
	if len(values) == 0 {
		return nil
	}
	return s.update(ctx, planetName, values)
}

// UploadImage stores a PNG or JPEG and saves its URL in column
// (avatar_image_url or card_image_url).
func (s *ModerationService) UploadImage(ctx context.Context, user *models.User, planetName, column string, data []byte, filename string) (string, error) {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return "", err
	}
	url, err := s.uploads.Upload(ctx, user, data, filename, PNGOrJPEGOnly)
	if err != nil {
		return "", err
	}
	err = s.db.WithContext(ctx).Model(&models.Planet{}).Where("name = ?", planet.Name).UpdateColumn(column, url).Error
	return url, err
}

func (s *ModerationService) UploadAvatar(ctx context.Context, user *models.User, planetName string, data []byte, filename string) (string, error) {
	return s.UploadImage(ctx, user, planetName, "avatar_image_url", data, filename)
}

func (s *ModerationService) UploadCard(ctx context.Context, user *models.User, planetName string, data []byte, filename string) (string, error) {
	return s.UploadImage(ctx, user, planetName, "card_image_url", data, filename)
}

// Reports lists the planet's unresolved reports, oldest first.
func (s *ModerationService) Reports(ctx context.Context, planetName string) ([]models.Report, error) {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return nil, err
	}
	reports := []models.Report{}
	err = s.db.WithContext(ctx).
		Where("planet_name = ? AND resolved = false", planet.Name).
		Order("created_at").Find(&reports).Error
	return reports, err
}

func (s *ModerationService) ResolveReport(ctx context.Context, planetName string, id uint) error {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND planet_name = ?", id, planet.Name).
		UpdateColumn("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Report not found")
	}
	return nil
}

// AddModerator promotes a member of the planet.
func (s *ModerationService) AddModerator(ctx context.Context, planetName, username string) error {
	planet, err := s.planet(ctx, planetName)
	if err != nil {
		return err
	}
	user, err := s.userByName(ctx, username)
	if err != nil {
		return err
	}
	member, err := exists(ctx, s.db, &models.PlanetMember{}, "user_id = ? AND planet_name = ?", user.ID, planet.Name)
	if err != nil {
		return err
	}
	if !member {
		return apperr.Validation(user.Username + " is not a member of +" + planet.Name)
	}
	var moderated int64
	if err := s.db.WithContext(ctx).Model(&models.PlanetModerator{}).Where("user_id = ?", user.ID).Count(&moderated).Error; err != nil {
		return err
	}
	if moderated >= MaxModeratedPlanets {
		return apperr.Forbidden("Cannot moderate more than 10 planets")
	}
	return link(ctx, s.db, &models.PlanetModerator{UserID: user.ID, PlanetName: planet.Name, CreatedAt: s.now()})
}
