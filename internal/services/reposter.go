package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"comet/internal/db"
	"comet/internal/models"
	"comet/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reposter 定时抓取 RSS/Atom 订阅源，以机器人账号把新链接发到对应星球
type Reposter struct {
	db       *gorm.DB
	parser   *gofeed.Parser
	unfurl   *UnfurlService
	log      *zap.Logger
	feeds    map[string]string // feed URL -> planet
	interval time.Duration
	botName  string
	botPass  string
	now      func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewReposter(conn *gorm.DB, unfurl *UnfurlService, log *zap.Logger, feeds map[string]string, interval time.Duration, botName, botPassword string) *Reposter {
	// 创建自定义 HTTP 客户端，设置超时
	parser := gofeed.NewParser()
	parser.Client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
	return &Reposter{
		db:       conn,
		parser:   parser,
		unfurl:   unfurl,
		log:      log,
		feeds:    feeds,
		interval: interval,
		botName:  botName,
		botPass:  botPassword,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start runs one pass immediately and then one per interval.
func (r *Reposter) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			n, err := r.RunOnce(ctx)
			cancel()
			if err != nil {
				r.log.Error("repost pass failed", zap.Error(err))
			} else {
				r.log.Info("repost pass finished", zap.Int("posted", n))
			}

			select {
			case <-ticker.C:
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *Reposter) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// RunOnce polls every feed once and returns how many posts were created.
// A failing feed is logged and skipped.
func (r *Reposter) RunOnce(ctx context.Context) (int, error) {
	bot, err := r.ensureBot(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for feedURL, planetName := range r.feeds {
		planet, err := findPlanet(ctx, r.db, planetName)
		if err != nil {
			return total, err
		}
		if planet == nil {
			r.log.Warn("repost planet does not exist", zap.String("planet", planetName), zap.String("feed", feedURL))
			continue
		}

		parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			r.log.Warn("parse feed failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		for _, item := range parsed.Items {
			ok, err := r.repost(ctx, bot, planet, item)
			if err != nil {
				r.log.Error("repost item failed", zap.String("link", item.Link), zap.Error(err))
				continue
			}
			if ok {
				total++
			}
		}
	}
	return total, nil
}

// repost creates a post for item unless its link was already posted.
func (r *Reposter) repost(ctx context.Context, bot *models.User, planet *models.Planet, item *gofeed.Item) (bool, error) {
	in, ok := postFromItem(item)
	if !ok || !planet.Allows(models.PostTypeLink) {
		return false, nil
	}
	posted, err := exists(ctx, r.db, &models.Post{}, "link = ?", in.Link)
	if err != nil || posted {
		return false, err
	}

	preview := r.unfurl.Unfurl(ctx, in.Link)
	post := &models.Post{
		Title:        in.Title,
		Type:         models.PostTypeLink,
		Link:         in.Link,
		AuthorID:     bot.ID,
		PlanetName:   &planet.Name,
		Topics:       pq.StringArray(in.Topics),
		EditHistory:  pq.StringArray{},
		ThumbnailURL: preview.ThumbnailURL,
		Domain:       preview.Domain,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveTopics(tx, in.Topics, r.now()); err != nil {
			return err
		}
		return tx.Create(post).Error
	})
	return err == nil, err
}

// postFromItem turns a feed item into a link submission. Items without an
// http(s) link or a title are skipped.
func postFromItem(item *gofeed.Item) (SubmitPostInput, bool) {
	link := strings.TrimSpace(item.Link)
	title := strings.TrimSpace(utils.StripTags(item.Title))
	if !utils.IsHTTPURL(link) || title == "" {
		return SubmitPostInput{}, false
	}
	if utf8.RuneCountInString(title) > 300 {
		title = string([]rune(title)[:300])
	}

	categories := item.Categories
	if len(categories) > MaxTopicsPerPost {
		categories = categories[:MaxTopicsPerPost]
	}
	topics, err := NormalizeTopics(categories)
	if err != nil {
		topics = []string{}
	}
	return SubmitPostInput{Title: title, Type: models.PostTypeLink, Link: link, Topics: topics}, true
}

// ensureBot returns the bot account, creating it on first use.
func (r *Reposter) ensureBot(ctx context.Context) (*models.User, error) {
	var bot models.User
	err := r.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", r.botName).Take(&bot).Error
	if err == nil {
		return &bot, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}

	password := r.botPass
	if password == "" {
		password = uuid.NewString()
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	bot = models.User{Username: r.botName, PasswordHash: hash, Bio: "I repost links from around the web"}
	if err := r.db.WithContext(ctx).Create(&bot).Error; err != nil {
		return nil, err
	}
	r.log.Info("created repost bot", zap.String("username", bot.Username))
	return &bot, nil
}
