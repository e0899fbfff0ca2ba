// Package views turns stored rows into what the API returns: deleted and
// removed content is redacted here, authors are resolved through the
// request's batch loaders, and markdown is rendered.
package views

import (
	"time"

	"comet/internal/models"
	"comet/internal/services"
)

// Author is the public part of a user embedded in posts and comments.
type Author struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	ProfilePicURL    string `json:"profile_pic_url"`
	Admin            bool   `json:"admin"`
	EndorsementCount int    `json:"endorsement_count"`
}

func NewAuthor(u *models.User) *Author {
	if u == nil {
		return nil
	}
	return &Author{
		ID:               u.ID,
		Username:         u.Username,
		ProfilePicURL:    u.ProfilePicURL,
		Admin:            u.Admin,
		EndorsementCount: u.EndorsementCount,
	}
}

func Authors(users []models.User) []*Author {
	out := make([]*Author, len(users))
	for i := range users {
		out[i] = NewAuthor(&users[i])
	}
	return out
}

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Bio              string    `json:"bio"`
	ProfilePicURL    string    `json:"profile_pic_url"`
	Admin            bool      `json:"admin"`
	Banned           bool      `json:"banned"`
	EndorsementCount int       `json:"endorsement_count"`
	CreatedAt        time.Time `json:"created_at"`

	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	PostCount      int64 `json:"post_count"`
	CommentCount   int64 `json:"comment_count"`

	IsFollowing   bool `json:"is_following"`
	IsFollowed    bool `json:"is_followed"`
	IsBlocking    bool `json:"is_blocking"`
	IsBlocked     bool `json:"is_blocked"`
	IsCurrentUser bool `json:"is_current_user"`
}

func NewUser(u *models.User) *User {
	return &User{
		ID:               u.ID,
		Username:         u.Username,
		Bio:              u.Bio,
		ProfilePicURL:    u.ProfilePicURL,
		Admin:            u.Admin,
		Banned:           u.Banned,
		EndorsementCount: u.EndorsementCount,
		CreatedAt:        u.CreatedAt,
	}
}

// CurrentUser is the signed-in user's own view of themself.
func CurrentUser(u *models.User) *User {
	v := NewUser(u)
	v.IsCurrentUser = true
	return v
}

func NewProfile(p *services.Profile) *User {
	v := NewUser(p.User)
	v.FollowerCount = p.FollowerCount
	v.FollowingCount = p.FollowingCount
	v.PostCount = p.PostCount
	v.CommentCount = p.CommentCount
	v.IsFollowing = p.IsFollowing
	v.IsFollowed = p.IsFollowed
	v.IsBlocking = p.IsBlocking
	v.IsBlocked = p.IsBlocked
	v.IsCurrentUser = p.IsCurrentUser
	return v
}
