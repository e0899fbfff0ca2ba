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

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const MaxModeratedPlanets = 10

// PlanetSummary is a planet row with its member count.
type PlanetSummary struct {
	models.Planet
	MemberCount int64 `json:"member_count"`
}

// PlanetDetails is a planet page as seen by one viewer.
type PlanetDetails struct {
	Planet      *models.Planet
	MemberCount int64
	Moderators  []models.User
	Joined      bool
	Muted       bool
	Banned      bool
	IsModerator bool
}

type GalaxyDetails struct {
	models.Galaxy
	PlanetCount int64 `json:"planet_count"`
}

type PlanetService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPlanetService(conn *gorm.DB) *PlanetService {
	return &PlanetService{db: conn, now: time.Now}
}

// Galaxies lists the fixed galaxy catalogue.
func (s *PlanetService) Galaxies() []models.Galaxy {
	out := make([]models.Galaxy, len(models.Galaxies))
	copy(out, models.Galaxies)
	return out
}

func (s *PlanetService) Galaxy(ctx context.Context, name string) (*GalaxyDetails, error) {
	var g GalaxyDetails
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&g.Galaxy).Error
	if db.IsNotFound(err) {
		return nil, apperr.NotFound("Galaxy not found")
	}
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.Planet{}).Where("galaxy_name = ?", g.Name).Count(&g.PlanetCount).Error
	return &g, err
}

// List returns planets by member count, optionally within one galaxy.
func (s *PlanetService) List(ctx context.Context, galaxy string, page, pageSize int) ([]PlanetSummary, error) {
	page, pageSize = feed.ClampPage(page, pageSize)
	planets := []PlanetSummary{}
	tx := s.db.WithContext(ctx).Model(&models.Planet{}).
		Select("planets.*, (SELECT COUNT(*) FROM planet_members WHERE planet_members.planet_name = planets.name) AS member_count")
	if galaxy != "" {
		tx = tx.Where("planets.galaxy_name = ?", galaxy)
	}
	err := tx.Order("member_count DESC, planets.name").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&planets).Error
	return planets, err
}

func (s *PlanetService) find(ctx context.Context, name string) (*models.Planet, error) {
	planet, err := findPlanet(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if planet == nil {
		return nil, apperr.NotFound("Planet not found")
	}
	return planet, nil
}

func (s *PlanetService) Get(ctx context.Context, viewerID, name string) (*PlanetDetails, error) {
	planet, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}
	d := &PlanetDetails{Planet: planet, Moderators: []models.User{}}
	conn := s.db.WithContext(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return conn.Model(&models.PlanetMember{}).Where("planet_name = ?", planet.Name).Count(&d.MemberCount).Error
	})
	g.Go(func() error {
		return conn.Where("id IN (SELECT user_id FROM planet_moderators WHERE planet_name = ?)", planet.Name).
			Order("username").Find(&d.Moderators).Error
	})
	if viewerID != "" {
		g.Go(func() (err error) {
			d.Joined, err = exists(ctx, s.db, &models.PlanetMember{}, "user_id = ? AND planet_name = ?", viewerID, planet.Name)
			return err
		})
		g.Go(func() (err error) {
			d.Muted, err = exists(ctx, s.db, &models.PlanetMute{}, "user_id = ? AND planet_name = ?", viewerID, planet.Name)
			return err
		})
		g.Go(func() (err error) {
			d.Banned, err = exists(ctx, s.db, &models.PlanetBan{}, "user_id = ? AND planet_name = ?", viewerID, planet.Name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, m := range d.Moderators {
		if m.ID == viewerID {
			d.IsModerator = true
		}
	}
	return d, nil
}

// Exists compares names case-insensitively.
func (s *PlanetService) Exists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, s.db, &models.Planet{}, "LOWER(name) = LOWER(?)", strings.TrimSpace(name))
}

// Create makes a planet; the creator joins and moderates it.
func (s *PlanetService) Create(ctx context.Context, userID, name, description, galaxy string) (*models.Planet, error) {
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 21 || !utils.IsPlanetName(name) {
		return nil, apperr.Validation("Planet name must be 3-21 letters, numbers or underscores")
	}
	if !models.IsGalaxy(galaxy) {
		return nil, apperr.Validation("Invalid galaxy: " + galaxy)
	}
	taken, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Planet already exists")
	}
	var moderated int64
	if err := s.db.WithContext(ctx).Model(&models.PlanetModerator{}).Where("user_id = ?", userID).Count(&moderated).Error; err != nil {
		return nil, err
	}
	if moderated >= MaxModeratedPlanets {
		return nil, apperr.Forbidden("Cannot moderate more than 10 planets")
	}

	now := s.now()
	planet := &models.Planet{
		Name:               name,
		Description:        strings.TrimSpace(description),
		GalaxyName:         galaxy,
		CreatorID:          userID,
		CreatedAt:          now,
		AllowTextPosts:     true,
		AllowLinkPosts:     true,
		AllowImagePosts:    true,
		DefaultSort:        string(feed.SortHot),
		DefaultCommentSort: string(feed.SortTop),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(planet).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.PlanetModerator{UserID: userID, PlanetName: name, CreatedAt: now}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PlanetMember{UserID: userID, PlanetName: name, CreatedAt: now}).Error
	})
	if db.IsUniqueViolation(err) {
		return nil, apperr.Conflict("Planet already exists")
	}
	if err != nil {
		return nil, err
	}
	return planet, nil
}

// Join also lifts a mute on the planet.
func (s *PlanetService) Join(ctx context.Context, userID, name string) error {
	planet, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	banned, err := exists(ctx, s.db, &models.PlanetBan{}, "user_id = ? AND planet_name = ?", userID, planet.Name)
	if err != nil {
		return err
	}
	if banned {
		return apperr.Forbidden("You have been banned from +" + planet.Name)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unlink(ctx, tx, &models.PlanetMute{}, "user_id = ? AND planet_name = ?", userID, planet.Name); err != nil {
			return err
		}
		return link(ctx, tx, &models.PlanetMember{UserID: userID, PlanetName: planet.Name, CreatedAt: s.now()})
	})
}

func (s *PlanetService) Leave(ctx context.Context, userID, name string) error {
	planet, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	return unlink(ctx, s.db, &models.PlanetMember{}, "user_id = ? AND planet_name = ?", userID, planet.Name)
}

// Mute leaves the planet and hides it from aggregate feeds.
func (s *PlanetService) Mute(ctx context.Context, userID, name string) error {
	planet, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unlink(ctx, tx, &models.PlanetMember{}, "user_id = ? AND planet_name = ?", userID, planet.Name); err != nil {
			return err
		}
		return link(ctx, tx, &models.PlanetMute{UserID: userID, PlanetName: planet.Name, CreatedAt: s.now()})
	})
}

func (s *PlanetService) Unmute(ctx context.Context, userID, name string) error {
	planet, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	return unlink(ctx, s.db, &models.PlanetMute{}, "user_id = ? AND planet_name = ?", userID, planet.Name)
}

func (s *PlanetService) Joined(ctx context.Context, userID string) ([]models.Planet, error) {
	planets := []models.Planet{}
	err := s.db.WithContext(ctx).
		Where("name IN (SELECT planet_name FROM planet_members WHERE user_id = ?)", userID).
		Order("name").Find(&planets).Error
	return planets, err
}

func (s *PlanetService) Muted(ctx context.Context, userID string) ([]models.Planet, error) {
	planets := []models.Planet{}
	err := s.db.WithContext(ctx).
		Where("name IN (SELECT planet_name FROM planet_mutes WHERE user_id = ?)", userID).
		Order("name").Find(&planets).Error
	return planets, err
}

// IsModerator reports whether user may moderate the named planet. Admins
// moderate everywhere.
func (s *PlanetService) IsModerator(ctx context.Context, user *models.User, name string) (bool, error) {
	if user.Admin {
		return true, nil
	}
	return exists(ctx, s.db, &models.PlanetModerator{}, "user_id = ? AND LOWER(planet_name) = LOWER(?)", user.ID, name)
}
