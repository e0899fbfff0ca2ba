package views

import (
	"context"
	"time"

	"comet/internal/loader"
	"comet/internal/models"
	"comet/internal/utils"
)

const (
	DeletedText = "[deleted]"
	RemovedText = "[removed]"
)

type Post struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Type            models.PostType `json:"type"`
	Link            string          `json:"link,omitempty"`
	TextContent     string          `json:"text_content,omitempty"`
	TextContentHTML string          `json:"text_content_html,omitempty"`
	PlanetName      *string         `json:"planet_name,omitempty"`
	Planet          *PlanetBadge    `json:"planet,omitempty"`
	Topics          []string        `json:"topics"`
	CreatedAt       time.Time       `json:"created_at"`
	EditedAt        *time.Time      `json:"edited_at,omitempty"`
	Sticky          bool            `json:"sticky"`
	ThumbnailURL    string          `json:"thumbnail_url,omitempty"`
	Domain          string          `json:"domain,omitempty"`

	EndorsementCount int `json:"endorsement_count"`
	CommentCount     int `json:"comment_count"`
	NewCommentCount  int `json:"new_comment_count"`

	Deleted       bool   `json:"deleted"`
	Removed       bool   `json:"removed"`
	RemovedReason string `json:"removed_reason,omitempty"`

	Author              *Author `json:"author"`
	AuthorIsCurrentUser bool    `json:"author_is_current_user"`
	IsEndorsed          bool    `json:"is_endorsed"`
	IsHidden            bool    `json:"is_hidden"`
}

// PlanetBadge is the slice of a planet shown next to its posts.
type PlanetBadge struct {
	Name           string `json:"name"`
	CustomName     string `json:"custom_name,omitempty"`
	ThemeColor     string `json:"theme_color,omitempty"`
	AvatarImageURL string `json:"avatar_image_url,omitempty"`
}

func NewPlanetBadge(p *models.Planet) *PlanetBadge {
	if p == nil {
		return nil
	}
	return &PlanetBadge{
		Name:           p.Name,
		CustomName:     p.CustomName,
		ThemeColor:     p.ThemeColor,
		AvatarImageURL: p.AvatarImageURL,
	}
}

// NewPost projects one post. author and view may be nil; without a view
// NewCommentCount is -1.
func NewPost(p *models.Post, author *models.User, view *models.PostView, viewerID string) Post {
	v := Post{
		ID:                  p.ID,
		Title:               p.Title,
		Type:                p.Type,
		Link:                p.Link,
		TextContent:         p.TextContent,
		PlanetName:          p.PlanetName,
		Topics:              []string(p.Topics),
		CreatedAt:           p.CreatedAt,
		EditedAt:            p.EditedAt,
		Sticky:              p.Sticky,
		ThumbnailURL:        p.ThumbnailURL,
		Domain:              p.Domain,
		EndorsementCount:    p.EndorsementCount,
		CommentCount:        p.CommentCount,
		NewCommentCount:     -1,
		Deleted:             p.Deleted,
		Removed:             p.Removed,
		Author:              NewAuthor(author),
		AuthorIsCurrentUser: viewerID != "" && p.AuthorID == viewerID,
		IsEndorsed:          p.IsEndorsed,
		IsHidden:            p.IsHidden,
	}
	if v.Topics == nil {
		v.Topics = []string{}
	}
	if view != nil {
		v.NewCommentCount = p.CommentCount - view.LastCommentCount
	}

	switch {
	case p.Deleted:
		v.Title = DeletedText
		v.Link, v.TextContent, v.ThumbnailURL, v.Domain = "", "", "", ""
		v.Author = nil
		v.AuthorIsCurrentUser = false
	case p.Removed:
		v.Title = RemovedText
		v.Link, v.TextContent, v.ThumbnailURL, v.Domain = "", "", "", ""
		v.RemovedReason = p.RemovedReason
	default:
		if p.Type == models.PostTypeText && p.TextContent != "" {
			v.TextContentHTML = utils.RenderMarkdown(p.TextContent)
		}
	}
	return v
}

// Posts projects a page of posts, loading authors, planets and the viewer's
// view records in one batch each.
func Posts(ctx context.Context, l *loader.Loaders, viewerID string, posts []models.Post) ([]Post, error) {
	if len(posts) == 0 {
		return []Post{}, nil
	}
	authorIDs := make([]string, len(posts))
	var planetNames []string
	for i := range posts {
		authorIDs[i] = posts[i].AuthorID
		if posts[i].PlanetName != nil {
			planetNames = append(planetNames, *posts[i].PlanetName)
		}
		l.Posts.Prime(posts[i].ID, &posts[i])
	}
	authors, err := l.Users.LoadMany(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	planetList, err := l.Planets.LoadMany(ctx, planetNames)
	if err != nil {
		return nil, err
	}
	planets := make(map[string]*models.Planet, len(planetList))
	for i, p := range planetList {
		planets[planetNames[i]] = p
	}

	postViews := make([]*models.PostView, len(posts))
	if viewerID != "" {
		keys := make([]loader.PostViewKey, len(posts))
		for i := range posts {
			keys[i] = loader.PostViewKey{UserID: viewerID, PostID: posts[i].ID}
		}
		if postViews, err = l.PostViews.LoadMany(ctx, keys); err != nil {
			return nil, err
		}
	}

	out := make([]Post, len(posts))
	for i := range posts {
		out[i] = NewPost(&posts[i], authors[i], postViews[i], viewerID)
		if posts[i].PlanetName != nil {
			out[i].Planet = NewPlanetBadge(planets[*posts[i].PlanetName])
		}
	}
	return out, nil
}

func OnePost(ctx context.Context, l *loader.Loaders, viewerID string, p *models.Post) (Post, error) {
	out, err := Posts(ctx, l, viewerID, []models.Post{*p})
	if err != nil {
		return Post{}, err
	}
	return out[0], nil
}
