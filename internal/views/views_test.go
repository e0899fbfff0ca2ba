package views

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"comet/internal/loader"
	"comet/internal/models"
)

func sp(s string) *string { return &s }

func TestNewPostVisible(t *testing.T) {
	p := &models.Post{ID: "p1", Title: "Hello", Type: models.PostTypeText, TextContent: "**hi**", AuthorID: "u1", CommentCount: 7}
	v := NewPost(p, &models.User{ID: "u1", Username: "alice"}, &models.PostView{LastCommentCount: 4}, "u1")

	if v.Title != "Hello" || v.Author == nil || v.Author.Username != "alice" {
		t.Errorf("unexpected projection %+v", v)
	}
	if !strings.Contains(v.TextContentHTML, "<strong>hi</strong>") {
		t.Errorf("html = %q", v.TextContentHTML)
	}
	if v.NewCommentCount != 3 {
		t.Errorf("new comments = %d, want 3", v.NewCommentCount)
	}
	if !v.AuthorIsCurrentUser {
		t.Error("author should be current user")
	}
	if v.Topics == nil {
		t.Error("topics should never be null")
	}
}

func TestNewPostWithoutViewRecord(t *testing.T) {
	v := NewPost(&models.Post{ID: "p1", CommentCount: 2}, nil, nil, "")
	if v.NewCommentCount != -1 {
		t.Errorf("new comments = %d, want -1", v.NewCommentCount)
	}
}

func TestNewPostRedaction(t *testing.T) {
	author := &models.User{ID: "u1", Username: "alice"}

	deleted := NewPost(&models.Post{ID: "p1", Title: "t", Type: models.PostTypeLink, Link: "https://x.io", AuthorID: "u1", Deleted: true}, author, nil, "u1")
	if deleted.Title != DeletedText || deleted.Link != "" || deleted.Author != nil || deleted.AuthorIsCurrentUser {
		t.Errorf("deleted post leaks content: %+v", deleted)
	}

	removed := NewPost(&models.Post{ID: "p2", Title: "t", Type: models.PostTypeText, TextContent: "body", AuthorID: "u1", Removed: true, RemovedReason: "spam"}, author, nil, "")
	if removed.Title != RemovedText || removed.TextContent != "" || removed.TextContentHTML != "" {
		t.Errorf("removed post leaks content: %+v", removed)
	}
	if removed.RemovedReason != "spam" {
		t.Errorf("reason = %q", removed.RemovedReason)
	}
}

func TestNewCommentRedaction(t *testing.T) {
	author := &models.User{ID: "u1", Username: "alice"}

	c := NewComment(&models.Comment{ID: "c1", TextContent: "secret", AuthorID: "u1", Deleted: true}, author, "")
	if c.TextContent != DeletedText || c.Author != nil {
		t.Errorf("deleted comment leaks content: %+v", c)
	}

	c = NewComment(&models.Comment{ID: "c2", TextContent: "secret", AuthorID: "u1", Removed: true, RemovedReason: "rude"}, author, "")
	if c.TextContent != RemovedText || c.RemovedReason != "rude" || c.Author == nil {
		t.Errorf("removed comment: %+v", c)
	}
	if strings.Contains(c.TextContentHTML, "secret") {
		t.Errorf("html leaks content: %q", c.TextContentHTML)
	}
}

func TestTree(t *testing.T) {
	flat := []Comment{
		{ID: "a"},
		{ID: "b"},
		{ID: "a1", ParentCommentID: sp("a"), RootCommentID: sp("a")},
		{ID: "a1x", ParentCommentID: sp("a1"), RootCommentID: sp("a")},
		{ID: "a2", ParentCommentID: sp("a"), RootCommentID: sp("a")},
		{ID: "orphan", ParentCommentID: sp("gone")},
	}
	roots := Tree(flat)

	var ids []string
	for _, r := range roots {
		ids = append(ids, r.ID)
	}
	if strings.Join(ids, ",") != "a,b,orphan" {
		t.Fatalf("roots = %v", ids)
	}
	a := roots[0]
	if len(a.Replies) != 2 || a.Replies[0].ID != "a1" || a.Replies[1].ID != "a2" {
		t.Fatalf("replies of a = %+v", a.Replies)
	}
	if len(a.Replies[0].Replies) != 1 || a.Replies[0].Replies[0].ID != "a1x" {
		t.Errorf("replies of a1 = %+v", a.Replies[0].Replies)
	}
	if len(flat[0].Replies) != 0 {
		t.Error("Tree modified its input")
	}
}

func TestPostsBatchesAuthorLookups(t *testing.T) {
	var userFetches, viewFetches, planetFetches int32
	l := &loader.Loaders{
		Users: loader.New(func(ctx context.Context, keys []string) (map[string]*models.User, error) {
			atomic.AddInt32(&userFetches, 1)
			out := make(map[string]*models.User)
			for _, k := range keys {
				out[k] = &models.User{ID: k, Username: "user-" + k}
			}
			return out, nil
		}),
		Posts: loader.New(func(ctx context.Context, keys []string) (map[string]*models.Post, error) {
			return nil, nil
		}),
		Planets: loader.New(func(ctx context.Context, keys []string) (map[string]*models.Planet, error) {
			atomic.AddInt32(&planetFetches, 1)
			return map[string]*models.Planet{
				"golang": {Name: "golang", ThemeColor: "#00ADD8", AvatarImageURL: "https://img/go.png"},
			}, nil
		}),
		PostViews: loader.New(func(ctx context.Context, keys []loader.PostViewKey) (map[loader.PostViewKey]*models.PostView, error) {
			atomic.AddInt32(&viewFetches, 1)
			return map[loader.PostViewKey]*models.PostView{
				{UserID: "viewer", PostID: "p2"}: {UserID: "viewer", PostID: "p2", LastCommentCount: 1},
			}, nil
		}),
	}

	posts := []models.Post{
		{ID: "p1", AuthorID: "u1", CommentCount: 5, PlanetName: sp("golang")},
		{ID: "p2", AuthorID: "u2", CommentCount: 5},
		{ID: "p3", AuthorID: "u1", CommentCount: 5, PlanetName: sp("golang")},
	}
	out, err := Posts(context.Background(), l, "viewer", posts)
	if err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if n := atomic.LoadInt32(&userFetches); n != 1 {
		t.Errorf("user fetches = %d, want 1", n)
	}
	if n := atomic.LoadInt32(&viewFetches); n != 1 {
		t.Errorf("view fetches = %d, want 1", n)
	}
	if n := atomic.LoadInt32(&planetFetches); n != 1 {
		t.Errorf("planet fetches = %d, want 1", n)
	}
	if out[0].Planet == nil || out[0].Planet.ThemeColor != "#00ADD8" || out[2].Planet == nil {
		t.Errorf("planet badges = %+v, %+v", out[0].Planet, out[2].Planet)
	}
	if out[1].Planet != nil {
		t.Errorf("post without planet got badge %+v", out[1].Planet)
	}
	if out[2].Author == nil || out[2].Author.Username != "user-u1" {
		t.Errorf("author of p3 = %+v", out[2].Author)
	}
	if out[0].NewCommentCount != -1 || out[1].NewCommentCount != 4 {
		t.Errorf("new comment counts = %d, %d", out[0].NewCommentCount, out[1].NewCommentCount)
	}
}

func TestEmptyPagesSkipLoaders(t *testing.T) {
	// nil loaders: nothing may be fetched for an empty page
	posts, err := Posts(context.Background(), nil, "viewer", nil)
	if err != nil || posts == nil || len(posts) != 0 {
		t.Fatalf("Posts(nil) = %v, %v", posts, err)
	}
	comments, err := Comments(context.Background(), nil, "viewer", nil)
	if err != nil || comments == nil || len(comments) != 0 {
		t.Fatalf("Comments(nil) = %v, %v", comments, err)
	}
	ns, err := Notifications(context.Background(), nil, "viewer", nil)
	if err != nil || ns == nil || len(ns) != 0 {
		t.Fatalf("Notifications(nil) = %v, %v", ns, err)
	}
}

func TestNotificationsCarryPostTitle(t *testing.T) {
	var postFetches int32
	l := &loader.Loaders{
		Users: loader.New(func(ctx context.Context, keys []string) (map[string]*models.User, error) {
			return map[string]*models.User{"u2": {ID: "u2", Username: "bob"}}, nil
		}),
		Comments: loader.New(func(ctx context.Context, keys []string) (map[string]*models.Comment, error) {
			return map[string]*models.Comment{"c1": {ID: "c1", AuthorID: "u2", TextContent: "reply"}}, nil
		}),
		Posts: loader.New(func(ctx context.Context, keys []string) (map[string]*models.Post, error) {
			atomic.AddInt32(&postFetches, 1)
			return map[string]*models.Post{
				"p1": {ID: "p1", Title: "Launch day"},
				"p2": {ID: "p2", Title: "gone", Deleted: true},
			}, nil
		}),
	}
	ns := []models.ReplyNotification{
		{ID: "n1", FromUserID: "u2", PostID: "p1", CommentID: "c1"},
		{ID: "n2", FromUserID: "u2", PostID: "p2", CommentID: "c1"},
		{ID: "n3", FromUserID: "u2", PostID: "p1", CommentID: "c1"},
	}
	out, err := Notifications(context.Background(), l, "u1", ns)
	if err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&postFetches); n != 1 {
		t.Errorf("post fetches = %d, want 1", n)
	}
	if out[0].PostTitle != "Launch day" || out[1].PostTitle != DeletedText || out[2].PostTitle != "Launch day" {
		t.Errorf("titles = %q, %q, %q", out[0].PostTitle, out[1].PostTitle, out[2].PostTitle)
	}
	if out[0].From == nil || out[0].From.Username != "bob" || out[0].Comment == nil {
		t.Errorf("notification = %+v", out[0])
	}
}
