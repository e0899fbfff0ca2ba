package views

import (
	"context"
	"time"

	"comet/internal/loader"
	"comet/internal/models"
	"comet/internal/utils"
)

type Comment struct {
	ID               string     `json:"id"`
	PostID           string     `json:"post_id"`
	ParentCommentID  *string    `json:"parent_comment_id"`
	RootCommentID    *string    `json:"root_comment_id"`
	TextContent      string     `json:"text_content"`
	TextContentHTML  string     `json:"text_content_html"`
	CreatedAt        time.Time  `json:"created_at"`
	EditedAt         *time.Time `json:"edited_at,omitempty"`
	EndorsementCount int        `json:"endorsement_count"`
	Deleted          bool       `json:"deleted"`
	Removed          bool       `json:"removed"`
	RemovedReason    string     `json:"removed_reason,omitempty"`

	Author              *Author `json:"author"`
	AuthorIsCurrentUser bool    `json:"author_is_current_user"`
	IsEndorsed          bool    `json:"is_endorsed"`

	Replies []*Comment `json:"replies,omitempty"`
}

// NewComment projects one comment. Deleted and removed comments keep their
// place in the thread with the text masked.
func NewComment(c *models.Comment, author *models.User, viewerID string) Comment {
	v := Comment{
		ID:                  c.ID,
		PostID:              c.PostID,
		ParentCommentID:     c.ParentCommentID,
		RootCommentID:       c.RootCommentID,
		TextContent:         c.TextContent,
		CreatedAt:           c.CreatedAt,
		EditedAt:            c.EditedAt,
		EndorsementCount:    c.EndorsementCount,
		Deleted:             c.Deleted,
		Removed:             c.Removed,
		Author:              NewAuthor(author),
		AuthorIsCurrentUser: viewerID != "" && c.AuthorID == viewerID,
		IsEndorsed:          c.IsEndorsed,
	}
	switch {
	case c.Deleted:
		v.TextContent = DeletedText
		v.Author = nil
		v.AuthorIsCurrentUser = false
	case c.Removed:
		v.TextContent = RemovedText
		v.RemovedReason = c.RemovedReason
	}
	v.TextContentHTML = utils.RenderMarkdown(v.TextContent)
	return v
}

func Comments(ctx context.Context, l *loader.Loaders, viewerID string, comments []models.Comment) ([]Comment, error) {
	if len(comments) == 0 {
		return []Comment{}, nil
	}
	authorIDs := make([]string, len(comments))
	for i := range comments {
		authorIDs[i] = comments[i].AuthorID
		l.Comments.Prime(comments[i].ID, &comments[i])
	}
	authors, err := l.Users.LoadMany(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	out := make([]Comment, len(comments))
	for i := range comments {
		out[i] = NewComment(&comments[i], authors[i], viewerID)
	}
	return out, nil
}

func OneComment(ctx context.Context, l *loader.Loaders, viewerID string, c *models.Comment) (Comment, error) {
	out, err := Comments(ctx, l, viewerID, []models.Comment{*c})
	if err != nil {
		return Comment{}, err
	}
	return out[0], nil
}

// Tree nests comments under their parents, keeping the given order among
// siblings. A comment whose parent is missing becomes top-level.
func Tree(flat []Comment) []*Comment {
	nodes := make(map[string]*Comment, len(flat))
	for i := range flat {
		c := flat[i]
		c.Replies = nil
		nodes[c.ID] = &c
	}

	roots := []*Comment{}
	for i := range flat {
		node := nodes[flat[i].ID]
		if node.ParentCommentID != nil {
			if parent, ok := nodes[*node.ParentCommentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
