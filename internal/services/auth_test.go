package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"comet/internal/models"
	"comet/internal/utils"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	s := NewAuthService(nil, "access", "refresh", "Comet")
	sess, err := s.issue(&models.User{ID: "u1", TokenVersion: 3})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := s.UserIDFromAccessToken(sess.AccessToken)
	if err != nil {
		t.Fatalf("UserIDFromAccessToken: %v", err)
	}
	if id != "u1" {
		t.Errorf("user id = %q, want u1", id)
	}

	claims, err := parseToken(sess.RefreshToken, s.refreshSecret)
	if err != nil {
		t.Fatalf("parse refresh token: %v", err)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("token version = %d, want 3", claims.TokenVersion)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	s := NewAuthService(nil, "access", "refresh", "Comet")
	sess, err := s.issue(&models.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.UserIDFromAccessToken(sess.RefreshToken); err == nil {
		t.Error("refresh token accepted as access token")
	}
}

func TestExpiredAccessToken(t *testing.T) {
	s := NewAuthService(nil, "access", "refresh", "Comet")
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	sess, err := s.issue(&models.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.UserIDFromAccessToken(sess.AccessToken); err == nil {
		t.Error("expired token accepted")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, err := parseToken(raw, []byte("access")); err == nil {
			t.Errorf("parseToken(%q) succeeded", raw)
		}
	}
}

func TestReservedUsernames(t *testing.T) {
	s := NewAuthService(nil, "access", "refresh", "Comet")
	for _, name := range []string{"null", "Undefined", "comet", "COMET"} {
		if !s.isReserved(name) {
			t.Errorf("%q should be reserved", name)
		}
	}
	if s.isReserved("cometfan") {
		t.Error("cometfan should not be reserved")
	}
}

func TestChangePasswordRevokesRefreshTokens(t *testing.T) {
	conn, pool := openFake(t, 1)
	s := NewAuthService(conn, "access", "refresh", "Comet")
	hash, err := utils.HashPassword("old-secret")
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{ID: "u1", PasswordHash: hash, TokenVersion: 2}

	sess, err := s.ChangePassword(context.Background(), user, "old-secret", "new-secret")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if len(pool.execs) != 1 || !strings.Contains(pool.execs[0], "token_version + 1") || !strings.Contains(pool.execs[0], "password_hash") {
		t.Fatalf("execs = %q", pool.execs)
	}
	claims, err := parseToken(sess.RefreshToken, s.refreshSecret)
	if err != nil {
		t.Fatal(err)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("new refresh token version = %d, want 3", claims.TokenVersion)
	}
	if !utils.CheckPasswordHash("new-secret", user.PasswordHash) {
		t.Error("password hash not replaced")
	}
}

func TestChangePasswordChecksCurrentPassword(t *testing.T) {
	conn, pool := openFake(t, 1)
	s := NewAuthService(conn, "access", "refresh", "Comet")
	hash, _ := utils.HashPassword("old-secret")

	if _, err := s.ChangePassword(context.Background(), &models.User{ID: "u1", PasswordHash: hash}, "wrong", "new-secret"); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if len(pool.execs) != 0 {
		t.Errorf("nothing should be written, got %q", pool.execs)
	}
}
