package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"comet/internal/utils"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	unfurlMaxBody  = 2 << 20
	unfurlCacheTTL = 6 * time.Hour
)

// LinkPreview is what a submitted link contributes to its post.
type LinkPreview struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	Domain       string `json:"domain"`
}

// UnfurlService 网页预览抓取服务
type UnfurlService struct {
	client  *http.Client
	timeout time.Duration
	cache   *utils.TTLCache[LinkPreview]
	group   singleflight.Group
	log     *zap.Logger
}

func NewUnfurlService(timeout time.Duration, log *zap.Logger) *UnfurlService {
	return &UnfurlService{
		client:  &http.Client{Timeout: 30 * time.Second},
		timeout: timeout,
		cache:   utils.NewTTLCache[LinkPreview](1000),
		log:     log,
	}
}

// Unfurl never fails. Whatever could not be fetched before the timeout is
// left empty; the domain is always derived from the link itself.
func (s *UnfurlService) Unfurl(ctx context.Context, link string) LinkPreview {
	base := LinkPreview{Domain: utils.Domain(link)}
	if !utils.IsHTTPURL(link) {
		return LinkPreview{}
	}
	if utils.IsImageURL(link) {
		base.ThumbnailURL = link
		return base
	}
	if cached, ok := s.cache.Get(link); ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ch := s.group.DoChan(link, func() (interface{}, error) {
		// detached from the caller so a shared fetch survives one caller leaving
		fetchCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		return s.fetch(fetchCtx, link)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.log.Debug("unfurl failed", zap.String("url", link), zap.Error(res.Err))
			return base
		}
		preview := res.Val.(LinkPreview)
		preview.Domain = base.Domain
		s.cache.Set(link, preview, unfurlCacheTTL)
		return preview
	case <-ctx.Done():
		s.log.Debug("unfurl timed out", zap.String("url", link))
		return base
	}
}

// Title returns the page title, or "" when it cannot be determined.
func (s *UnfurlService) Title(ctx context.Context, link string) string {
	if utils.IsImageURL(link) {
		return ""
	}
	return s.Unfurl(ctx, link).Title
}

func (s *UnfurlService) fetch(ctx context.Context, link string) (LinkPreview, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return LinkPreview{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return LinkPreview{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CometBot/1.0; +https://getcomet.net)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return LinkPreview{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return LinkPreview{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, unfurlMaxBody))
	if err != nil {
		return LinkPreview{}, fmt.Errorf("read body: %w", err)
	}

	var preview LinkPreview
	if meta, err := utils.ExtractPageMeta(bytes.NewReader(body)); err == nil {
		preview.Title = meta.Title
		preview.ThumbnailURL = absolute(pageURL, meta.Image)
	}

	// readability finds a lead image on pages without OpenGraph tags
	if preview.ThumbnailURL == "" || preview.Title == "" {
		if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
			if preview.Title == "" {
				preview.Title = article.Title
			}
			if preview.ThumbnailURL == "" {
				preview.ThumbnailURL = absolute(pageURL, article.Image)
			}
		}
	}

	preview.Title = utils.StripTags(preview.Title)
	return preview, nil
}

func absolute(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}
