package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port    string
	AppEnv  string
	Origin  string
	BaseURL string

	DatabaseURL string
	RedisAddr   string

	AccessTokenSecret  string
	RefreshTokenSecret string
	SessionSecret      string

	RateLimitBurst     int
	RateLimitPerSecond int

	ImgurClientID string
	UnfurlTimeout time.Duration

	ReposterEnabled  bool
	ReposterFeeds    map[string]string // feed URL -> planet
	ReposterInterval time.Duration
	BotUsername      string
	BotPassword      string
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// LoadEnvFile loads .env into the process environment.
func LoadEnvFile() error {
	return godotenv.Load()
}

// Load reads an optional config.yaml and the process environment, the
// environment taking precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:               v.GetString("PORT"),
		AppEnv:             v.GetString("APP_ENV"),
		Origin:             v.GetString("ORIGIN_URL"),
		BaseURL:            v.GetString("BASE_URL"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		AccessTokenSecret:  v.GetString("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		SessionSecret:      v.GetString("SESSION_SECRET"),
		RateLimitBurst:     v.GetInt("RATE_LIMIT_BURST"),
		RateLimitPerSecond: v.GetInt("RATE_LIMIT_PER_SECOND"),
		ImgurClientID:      v.GetString("IMGUR_CLIENT_ID"),
		UnfurlTimeout:      v.GetDuration("UNFURL_TIMEOUT"),
		ReposterEnabled:    v.GetBool("REPOSTER_ENABLED"),
		ReposterFeeds:      ParseFeedMap(v.GetString("REPOSTER_FEEDS")),
		ReposterInterval:   v.GetDuration("REPOSTER_INTERVAL"),
		BotUsername:        v.GetString("BOT_USERNAME"),
		BotPassword:        v.GetString("BOT_PASSWORD"),
	}

	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
		}
		cfg.AccessTokenSecret = "dev_access_secret"
		cfg.RefreshTokenSecret = "dev_refresh_secret"
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ORIGIN_URL", "http://localhost:3000")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=comet port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("SESSION_SECRET", "secret_key_change_me")
	v.SetDefault("RATE_LIMIT_BURST", 60)
	v.SetDefault("RATE_LIMIT_PER_SECOND", 2)
	v.SetDefault("UNFURL_TIMEOUT", 10*time.Second)
	v.SetDefault("REPOSTER_INTERVAL", 30*time.Minute)
	v.SetDefault("BOT_USERNAME", "Comet")
}

// ParseFeedMap parses "planet=url,planet=url" into url -> planet.
func ParseFeedMap(raw string) map[string]string {
	feeds := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		planet, url, ok := strings.Cut(part, "=")
		if !ok || planet == "" || url == "" {
			continue
		}
		feeds[strings.TrimSpace(url)] = strings.TrimSpace(planet)
	}
	return feeds
}
