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

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const MaxTopicsPerPost = 10

type SubmitPostInput struct {
	Title       string
	Type        models.PostType
	Link        string
	TextContent string
	PlanetName  string
	Topics      []string
}

type PostService struct {
	db     *gorm.DB
	unfurl *UnfurlService
	views  *ViewRecorder
	log    *zap.Logger
	now    func() time.Time
}

func NewPostService(conn *gorm.DB, unfurl *UnfurlService, views *ViewRecorder, log *zap.Logger) *PostService {
	return &PostService{db: conn, unfurl: unfurl, views: views, log: log, now: time.Now}
}

// list runs a normalized listing for viewerID and attaches the per-viewer flags.
func (s *PostService) list(ctx context.Context, viewerID string, q feed.Query) ([]models.Post, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	p, err := feed.LoadPersonalization(ctx, s.db, viewerID)
	if err != nil {
		return nil, err
	}

	posts := []models.Post{}
	tx, ok := feed.Posts(s.db.WithContext(ctx), q, p, s.now())
	if !ok {
		return posts, nil
	}
	if err := tx.Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := feed.MarkEndorsed(ctx, s.db, viewerID, posts); err != nil {
		return nil, err
	}
	feed.MarkHidden(p, posts)
	return posts, nil
}

// HomeFeed is the front page, optionally restricted to what the viewer follows.
func (s *PostService) HomeFeed(ctx context.Context, viewerID string, q feed.Query) ([]models.Post, error) {
	q.PlanetName, q.GalaxyName, q.Topic, q.AuthorID, q.Search = "", "", "", "", ""
	return s.list(ctx, viewerID, q)
}

// PlanetFeed lists one planet, sticky posts first. An unknown planet is empty.
func (s *PostService) PlanetFeed(ctx context.Context, viewerID, planetName string, q feed.Query) ([]models.Post, error) {
	planet, err := findPlanet(ctx, s.db, planetName)
	if err != nil {
		return nil, err
	}
	if planet == nil {
		return []models.Post{}, nil
	}
	if q.Sort == "" {
		q.Sort = feed.Sort(planet.DefaultSort)
	}
	q.PlanetName = planet.Name
	q.Filter = feed.FilterAll
	return s.list(ctx, viewerID, q)
}

func (s *PostService) GalaxyFeed(ctx context.Context, viewerID, galaxyName string, q feed.Query) ([]models.Post, error) {
	if !models.IsGalaxy(galaxyName) {
		return []models.Post{}, nil
	}
	q.GalaxyName = galaxyName
	q.Filter = feed.FilterAll
	return s.list(ctx, viewerID, q)
}

func (s *PostService) TopicFeed(ctx context.Context, viewerID, topic string, q feed.Query) ([]models.Post, error) {
	q.Topic = utils.NormalizeTopicName(topic)
	if q.Topic == "" {
		return []models.Post{}, nil
	}
	q.Filter = feed.FilterAll
	return s.list(ctx, viewerID, q)
}

// UserPosts defaults to NEW over all time. An unknown user is empty.
func (s *PostService) UserPosts(ctx context.Context, viewerID, username string, q feed.Query) ([]models.Post, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id").Where("LOWER(username) = LOWER(?)", username).Take(&user).Error
	if db.IsNotFound(err) {
		return []models.Post{}, nil
	}
	if err != nil {
		return nil, err
	}
	if q.Sort == "" {
		q.Sort = feed.SortNew
	}
	q.AuthorID = user.ID
	q.Filter = feed.FilterAll
	return s.list(ctx, viewerID, q)
}

// Search matches title, body and link. An empty term returns nothing
// without touching the database.
func (s *PostService) Search(ctx context.Context, viewerID string, q feed.Query) ([]models.Post, error) {
	q.Search = strings.TrimSpace(q.Search)
	if q.Search == "" {
		return []models.Post{}, nil
	}
	if q.Sort == "" {
		q.Sort = feed.SortNew
	}
	q.Filter = feed.FilterAll
	return s.list(ctx, viewerID, q)
}

// Get fetches one post with the viewer's flags. Deleted and removed posts
// are returned so they can be shown redacted.
func (s *PostService) Get(ctx context.Context, viewerID, id string) (*models.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerID == "" {
		return post, nil
	}

	posts := []models.Post{*post}
	if err := feed.MarkEndorsed(ctx, s.db, viewerID, posts); err != nil {
		return nil, err
	}
	hidden, err := exists(ctx, s.db, &models.PostHide{}, "user_id = ? AND post_id = ?", viewerID, id)
	if err != nil {
		return nil, err
	}
	posts[0].IsHidden = hidden
	return &posts[0], nil
}

func (s *PostService) find(ctx context.Context, id string) (*models.Post, error) {
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

// NormalizeTopics lowercases, de-duplicates and bounds a topic list.
func NormalizeTopics(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	topics := make([]string, 0, len(raw))
	for _, t := range raw {
		name := utils.NormalizeTopicName(t)
		if name == "" || seen[name] {
			continue
		}
		if len(name) > 50 {
			return nil, apperr.Validation("Topic names can be at most 50 characters")
		}
		seen[name] = true
		topics = append(topics, name)
	}
	if len(topics) > MaxTopicsPerPost {
		return nil, apperr.Validation("Posts can have at most 10 topics")
	}
	return topics, nil
}

func (s *PostService) Submit(ctx context.Context, user *models.User, in SubmitPostInput) (*models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Link = strings.TrimSpace(in.Link)
	if !in.Type.Valid() {
		return nil, apperr.Validation("Invalid post type")
	}
	switch in.Type {
	case models.PostTypeLink, models.PostTypeImage:
		if !utils.IsHTTPURL(in.Link) {
			return nil, apperr.Validation("Invalid URL")
		}
		in.TextContent = ""
	default:
		in.Link = ""
	}
	topics, err := NormalizeTopics(in.Topics)
	if err != nil {
		return nil, err
	}

	var planetName *string
	if in.PlanetName != "" {
		planet, err := findPlanet(ctx, s.db, in.PlanetName)
		if err != nil {
			return nil, err
		}
		if planet == nil {
			return nil, apperr.NotFound("Planet not found")
		}
		if !planet.Allows(in.Type) {
			return nil, apperr.Validation("+" + planet.Name + " does not allow " + strings.ToLower(string(in.Type)) + " posts")
		}
		banned, err := exists(ctx, s.db, &models.PlanetBan{}, "user_id = ? AND planet_name = ?", user.ID, planet.Name)
		if err != nil {
			return nil, err
		}
		if banned {
			return nil, apperr.Forbidden("You have been banned from +" + planet.Name)
		}
		planetName = &planet.Name
	}

	now := s.now()
	interval := PostInterval
	if user.Admin {
		interval = 0
	}
	// 先按已加载的时间戳挡掉，避免白白抓取链接
	if remaining(user.LastPostedAt, interval, now) > 0 {
		return nil, apperr.RateLimited(waitMessage(user.LastPostedAt, interval, now, "posting again"))
	}

	post := &models.Post{
		Title:       in.Title,
		Type:        in.Type,
		Link:        in.Link,
		TextContent: in.TextContent,
		AuthorID:    user.ID,
		PlanetName:  planetName,
		Topics:      pq.StringArray(topics),
		EditHistory: pq.StringArray{},
	}
	if in.Link != "" {
		preview := s.unfurl.Unfurl(ctx, in.Link)
		post.ThumbnailURL = preview.ThumbnailURL
		post.Domain = preview.Domain
	}

	postSlot := slot{userID: user.ID, column: "last_posted_at", interval: interval, last: user.LastPostedAt, action: "posting again"}
	err = throttled(s.db.WithContext(ctx), postSlot, now, func(tx *gorm.DB) error {
		if err := saveTopics(tx, topics, now); err != nil {
			return err
		}
		return tx.Create(post).Error
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// saveTopics creates topics that do not exist yet.
func saveTopics(tx *gorm.DB, names []string, now time.Time) error {
	if len(names) == 0 {
		return nil
	}
	rows := make([]models.Topic, len(names))
	for i, n := range names {
		rows[i] = models.Topic{Name: n, CreatedAt: now}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Edit replaces a text post's body, keeping the old body in its history.
func (s *PostService) Edit(ctx context.Context, userID, id, textContent string) (*models.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, apperr.Forbidden("Attempt to edit post by someone other than author")
	}
	if post.Deleted || post.Removed {
		return nil, apperr.NotFound("Post not found")
	}
	if post.Type != models.PostTypeText {
		return nil, apperr.Validation("Only text posts can be edited")
	}

	now := s.now()
	err = s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"edit_history": gorm.Expr("array_append(edit_history, ?)", post.TextContent),
		"text_content": textContent,
		"edited_at":    now,
	}).Error
	if err != nil {
		return nil, err
	}
	post.EditHistory = append(post.EditHistory, post.TextContent)
	post.TextContent = textContent
	post.EditedAt = &now
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, userID, id string) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return apperr.Forbidden("Attempt to delete post by someone other than author")
	}
	return s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).UpdateColumn("deleted", true).Error
}

// RecordView remembers the post's current comment count for the viewer.
// The write happens in the background.
func (s *PostService) RecordView(ctx context.Context, userID, id string) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	s.views.Record(userID, post.ID, post.CommentCount)
	return nil
}

func (s *PostService) Hide(ctx context.Context, userID, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	return link(ctx, s.db, &models.PostHide{UserID: userID, PostID: id, CreatedAt: s.now()})
}

func (s *PostService) Unhide(ctx context.Context, userID, id string) error {
	return unlink(ctx, s.db, &models.PostHide{}, "user_id = ? AND post_id = ?", userID, id)
}

// HiddenPosts lists what the user hid, most recently hidden first.
func (s *PostService) HiddenPosts(ctx context.Context, userID string) ([]models.Post, error) {
	posts := []models.Post{}
	err := s.db.WithContext(ctx).
		Joins("JOIN post_hides ON post_hides.post_id = posts.id AND post_hides.user_id = ?", userID).
		Where("posts.deleted = false").
		Order("post_hides.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].IsHidden = true
	}
	if err := feed.MarkEndorsed(ctx, s.db, userID, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Report flags a post for its planet's moderators.
func (s *PostService) Report(ctx context.Context, userID, id, reason string) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("Reason is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", id).UpdateColumn("reported", true).Error; err != nil {
			return err
		}
		return tx.Create(&models.Report{
			PostID:     post.ID,
			ReporterID: userID,
			PlanetName: post.PlanetName,
			Reason:     reason,
		}).Error
	})
}

// TitleAtURL is the page title at link, empty when it cannot be fetched.
func (s *PostService) TitleAtURL(ctx context.Context, link string) string {
	return s.unfurl.Title(ctx, link)
}

// findPlanet looks a planet up case-insensitively. A missing planet is nil.
func findPlanet(ctx context.Context, conn *gorm.DB, name string) (*models.Planet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var planet models.Planet
	err := conn.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).Take(&planet).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &planet, nil
}
