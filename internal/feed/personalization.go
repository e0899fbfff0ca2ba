package feed

import (
	"context"

	"comet/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Personalization is the requester's relation sets, loaded once per
// listing and turned into set-membership predicates.
type Personalization struct {
	UserID string

	BlockedUserIDs []string
	HiddenPostIDs  []string
	HiddenTopics   []string
	MutedPlanets   []string

	JoinedPlanets  []string
	FollowedTopics []string
}

// FollowsNothing reports whether a FOLLOWING listing must be empty.
func (p *Personalization) FollowsNothing() bool {
	return p == nil || (len(p.JoinedPlanets) == 0 && len(p.FollowedTopics) == 0)
}

// LoadPersonalization reads all sets for userID concurrently. An empty
// userID returns nil, meaning no personalization.
func LoadPersonalization(ctx context.Context, db *gorm.DB, userID string) (*Personalization, error) {
	if userID == "" {
		return nil, nil
	}
	p := &Personalization{UserID: userID}

	g, ctx := errgroup.WithContext(ctx)
	pluck := func(model interface{}, column, where string, dest *[]string) {
		g.Go(func() error {
			return db.WithContext(ctx).Model(model).Where(where, userID).Pluck(column, dest).Error
		})
	}
	pluck(&models.UserBlock{}, "blocked_id", "blocker_id = ?", &p.BlockedUserIDs)
	pluck(&models.PostHide{}, "post_id", "user_id = ?", &p.HiddenPostIDs)
	pluck(&models.TopicHide{}, "topic_name", "user_id = ?", &p.HiddenTopics)
	pluck(&models.PlanetMute{}, "planet_name", "user_id = ?", &p.MutedPlanets)
	pluck(&models.PlanetMember{}, "planet_name", "user_id = ?", &p.JoinedPlanets)
	pluck(&models.TopicFollow{}, "topic_name", "user_id = ?", &p.FollowedTopics)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}
