package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"comet/internal/apperr"
	"comet/internal/db"
	"comet/internal/models"
	"comet/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is shared by access and refresh tokens. Only refresh tokens
// carry a TokenVersion.
type TokenClaims struct {
	UserID       string `json:"userId"`
	TokenVersion int    `json:"tokenVersion,omitempty"`
	jwt.RegisteredClaims
}

// Session is what a successful sign up, login or refresh hands back.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

type SignUpInput struct {
	Username string
	Password string
	Email    string
}

type AuthService struct {
	db            *gorm.DB
	accessSecret  []byte
	refreshSecret []byte
	reserved      []string
	now           func() time.Time
}

func NewAuthService(conn *gorm.DB, accessSecret, refreshSecret, botName string) *AuthService {
	return &AuthService{
		db:            conn,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		reserved:      []string{"null", "undefined", strings.ToLower(botName)},
		now:           time.Now,
	}
}

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	if s.isReserved(in.Username) {
		return nil, apperr.Validation("Invalid username")
	}

	taken, err := s.usernameTaken(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Username taken")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Bio:          "New Comet user",
		LastLogin:    &now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// 并发注册同名用户时由唯一索引兜底
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Username taken")
		}
		return nil, err
	}
	return s.issue(&user)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid Login")
	}
	if user.Banned {
		return nil, apperr.Forbidden("Banned: " + user.BanReason)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("last_login", now).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return s.issue(user)
}

// Refresh trades a refresh token for a new session. Tokens minted before
// the user's last logout are rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := parseToken(refreshToken, s.refreshSecret)
	if err != nil {
		return nil, apperr.Unauthorized("Not authenticated")
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("id = ?", claims.UserID).Take(&user).Error
	if db.IsNotFound(err) {
		return nil, apperr.Unauthorized("Not authenticated")
	}
	if err != nil {
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion || user.Banned {
		return nil, apperr.Unauthorized("Not authenticated")
	}
	return s.issue(&user)
}

// Logout invalidates every refresh token issued so far.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}

func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) (*Session, error) {
	if !utils.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return nil, apperr.Validation("Current password incorrect!")
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	// 改密码同时作废旧的 refresh token
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumns(map[string]interface{}{
			"password_hash": hash,
			"token_version": gorm.Expr("token_version + 1"),
		}).Error; err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.TokenVersion++
	return s.issue(user)
}

// UserIDFromAccessToken validates an access token and returns its subject.
func (s *AuthService) UserIDFromAccessToken(token string) (string, error) {
	claims, err := parseToken(token, s.accessSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	access, err := s.sign(TokenClaims{UserID: user.ID}, AccessTokenTTL, s.accessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(TokenClaims{UserID: user.ID, TokenVersion: user.TokenVersion}, RefreshTokenTTL, s.refreshSecret)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (s *AuthService) sign(claims TokenClaims, ttl time.Duration, secret []byte) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(raw string, secret []byte) (*TokenClaims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) isReserved(username string) bool {
	lower := strings.ToLower(username)
	for _, r := range s.reserved {
		if lower == r {
			return true
		}
	}
	return false
}

func (s *AuthService) usernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error
	return count > 0, err
}

func (s *AuthService) findByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", username).Take(&user).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
