package config

import (
	"testing"
	"time"
)

func TestParseFeedMap(t *testing.T) {
	got := ParseFeedMap(" golang=https://go.dev/blog/feed.atom, news = https://example.com/rss ,broken, =https://x.test,empty=")
	want := map[string]string{
		"https://go.dev/blog/feed.atom": "golang",
		"https://example.com/rss":       "news",
	}
	if len(got) != len(want) {
		t.Fatalf("ParseFeedMap = %v, want %v", got, want)
	}
	for url, planet := range want {
		if got[url] != planet {
			t.Errorf("feed %s -> %q, want %q", url, got[url], planet)
		}
	}
}

func TestParseFeedMapEmpty(t *testing.T) {
	if got := ParseFeedMap(""); len(got) != 0 {
		t.Errorf("ParseFeedMap(\"\") = %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")
	t.Setenv("REPOSTER_FEEDS", "golang=https://go.dev/blog/feed.atom")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.UnfurlTimeout != 10*time.Second {
		t.Errorf("UnfurlTimeout = %v", cfg.UnfurlTimeout)
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		t.Error("development should fall back to dev token secrets")
	}
	if cfg.ReposterFeeds["https://go.dev/blog/feed.atom"] != "golang" {
		t.Errorf("ReposterFeeds = %v", cfg.ReposterFeeds)
	}
}

func TestLoadRequiresSecretsInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without token secrets")
	}
}
