package views

import (
	"context"

	"comet/internal/loader"
	"comet/internal/models"
)

// Notification is a reply notification with the reply and its sender.
type Notification struct {
	models.ReplyNotification
	Comment   *Comment `json:"comment,omitempty"`
	From      *Author  `json:"from,omitempty"`
	PostTitle string   `json:"post_title,omitempty"`
}

// postTitle follows the same redaction as NewPost.
func postTitle(p *models.Post) string {
	switch {
	case p == nil:
		return ""
	case p.Deleted:
		return DeletedText
	case p.Removed:
		return RemovedText
	}
	return p.Title
}

func Notifications(ctx context.Context, l *loader.Loaders, viewerID string, ns []models.ReplyNotification) ([]Notification, error) {
	if len(ns) == 0 {
		return []Notification{}, nil
	}
	commentIDs := make([]string, len(ns))
	senderIDs := make([]string, len(ns))
	postIDs := make([]string, len(ns))
	for i := range ns {
		commentIDs[i] = ns[i].CommentID
		senderIDs[i] = ns[i].FromUserID
		postIDs[i] = ns[i].PostID
	}
	comments, err := l.Comments.LoadMany(ctx, commentIDs)
	if err != nil {
		return nil, err
	}
	senders, err := l.Users.LoadMany(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	posts, err := l.Posts.LoadMany(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Notification, len(ns))
	for i := range ns {
		out[i] = Notification{
			ReplyNotification: ns[i],
			From:              NewAuthor(senders[i]),
			PostTitle:         postTitle(posts[i]),
		}
		if comments[i] != nil {
			c := NewComment(comments[i], senders[i], viewerID)
			out[i].Comment = &c
		}
	}
	return out, nil
}
