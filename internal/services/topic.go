package services

import (
	"context"
	"time"

	"comet/internal/apperr"
	"comet/internal/db"
	"comet/internal/models"
	"comet/internal/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const popularTopicsTTL = 5 * time.Minute

// TopicSummary is a topic with its counts and the viewer's relation to it.
type TopicSummary struct {
	Name            string `json:"name"`
	CapitalizedName string `json:"capitalized_name"`
	PostCount       int64  `json:"post_count"`
	FollowerCount   int64  `json:"follower_count"`
	IsFollowing     bool   `json:"is_following"`
	IsHidden        bool   `json:"is_hidden"`
}

type TopicService struct {
	db      *gorm.DB
	popular *utils.TTLCache[[]TopicSummary]
	now     func() time.Time
}

func NewTopicService(conn *gorm.DB) *TopicService {
	return &TopicService{
		db:      conn,
		popular: utils.NewTTLCache[[]TopicSummary](1),
		now:     time.Now,
	}
}

func (s *TopicService) Get(ctx context.Context, viewerID, name string) (*TopicSummary, error) {
	name = utils.NormalizeTopicName(name)
	var topic models.Topic
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&topic).Error
	if db.IsNotFound(err) {
		return nil, apperr.NotFound("Topic not found")
	}
	if err != nil {
		return nil, err
	}

	t := &TopicSummary{Name: topic.Name, CapitalizedName: utils.CapitalizedName(topic.Name)}
	conn := s.db.WithContext(ctx)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return conn.Model(&models.Post{}).
			Where("? = ANY(topics) AND deleted = false AND removed = false", topic.Name).
			Count(&t.PostCount).Error
	})
	g.Go(func() error {
		return conn.Model(&models.TopicFollow{}).Where("topic_name = ?", topic.Name).Count(&t.FollowerCount).Error
	})
	if viewerID != "" {
		g.Go(func() (err error) {
			t.IsFollowing, err = exists(ctx, s.db, &models.TopicFollow{}, "user_id = ? AND topic_name = ?", viewerID, topic.Name)
			return err
		})
		g.Go(func() (err error) {
			t.IsHidden, err = exists(ctx, s.db, &models.TopicHide{}, "user_id = ? AND topic_name = ?", viewerID, topic.Name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

// Popular is the ten topics with the most posts in the last day. The
// result is shared by all viewers and cached for a few minutes.
func (s *TopicService) Popular(ctx context.Context) ([]TopicSummary, error) {
	if cached, ok := s.popular.Get("popular"); ok {
		return cached, nil
	}

	var rows []struct {
		Name      string
		PostCount int64
	}
	err := s.db.WithContext(ctx).Raw(`SELECT t.name AS name, COUNT(*) AS post_count
FROM posts, unnest(posts.topics) AS t(name)
WHERE posts.deleted = false AND posts.removed = false AND posts.created_at > ?
GROUP BY t.name
ORDER BY post_count DESC, t.name
LIMIT 10`, s.now().Add(-24*time.Hour)).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	topics := make([]TopicSummary, len(rows))
	for i, r := range rows {
		topics[i] = TopicSummary{Name: r.Name, CapitalizedName: utils.CapitalizedName(r.Name), PostCount: r.PostCount}
	}
	s.popular.Set("popular", topics, popularTopicsTTL)
	return topics, nil
}

// Search is a prefix match on the normalized name.
func (s *TopicService) Search(ctx context.Context, search string) ([]TopicSummary, error) {
	prefix := utils.NormalizeTopicName(search)
	if prefix == "" {
		return []TopicSummary{}, nil
	}
	var names []string
	err := s.db.WithContext(ctx).Model(&models.Topic{}).
		Where("name LIKE ?", utils.EscapeLike(prefix)+"%").
		Order("name").
		Limit(10).
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return summaries(names), nil
}

func summaries(names []string) []TopicSummary {
	out := make([]TopicSummary, len(names))
	for i, n := range names {
		out[i] = TopicSummary{Name: n, CapitalizedName: utils.CapitalizedName(n)}
	}
	return out
}

func (s *TopicService) requireTopic(ctx context.Context, name string) (string, error) {
	name = utils.NormalizeTopicName(name)
	ok, err := exists(ctx, s.db, &models.Topic{}, "name = ?", name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.NotFound("Topic not found")
	}
	return name, nil
}

func (s *TopicService) Follow(ctx context.Context, userID, name string) error {
	name, err := s.requireTopic(ctx, name)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unlink(ctx, tx, &models.TopicHide{}, "user_id = ? AND topic_name = ?", userID, name); err != nil {
			return err
		}
		return link(ctx, tx, &models.TopicFollow{UserID: userID, TopicName: name, CreatedAt: s.now()})
	})
}

func (s *TopicService) Unfollow(ctx context.Context, userID, name string) error {
	return unlink(ctx, s.db, &models.TopicFollow{}, "user_id = ? AND topic_name = ?", userID, utils.NormalizeTopicName(name))
}

// Hide unfollows the topic and drops its posts from the user's feeds.
func (s *TopicService) Hide(ctx context.Context, userID, name string) error {
	name, err := s.requireTopic(ctx, name)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unlink(ctx, tx, &models.TopicFollow{}, "user_id = ? AND topic_name = ?", userID, name); err != nil {
			return err
		}
		return link(ctx, tx, &models.TopicHide{UserID: userID, TopicName: name, CreatedAt: s.now()})
	})
}

func (s *TopicService) Unhide(ctx context.Context, userID, name string) error {
	return unlink(ctx, s.db, &models.TopicHide{}, "user_id = ? AND topic_name = ?", userID, utils.NormalizeTopicName(name))
}

func (s *TopicService) Followed(ctx context.Context, userID string) ([]TopicSummary, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.TopicFollow{}).
		Where("user_id = ?", userID).Order("topic_name").Pluck("topic_name", &names).Error
	if err != nil {
		return nil, err
	}
	topics := summaries(names)
	for i := range topics {
		topics[i].IsFollowing = true
	}
	return topics, nil
}

func (s *TopicService) Hidden(ctx context.Context, userID string) ([]TopicSummary, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.TopicHide{}).
		Where("user_id = ?", userID).Order("topic_name").Pluck("topic_name", &names).Error
	if err != nil {
		return nil, err
	}
	topics := summaries(names)
	for i := range topics {
		topics[i].IsHidden = true
	}
	return topics, nil
}
