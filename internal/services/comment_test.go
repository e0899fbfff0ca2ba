package services

import (
	"testing"

	"comet/internal/models"
)

func strPtr(s string) *string { return &s }

func TestThreadRoot(t *testing.T) {
	if threadRoot(nil) != nil {
		t.Error("top-level comment should have no root")
	}

	top := &models.Comment{ID: "a"}
	if got := threadRoot(top); got == nil || *got != "a" {
		t.Errorf("reply to top-level: root = %v", got)
	}

	nested := &models.Comment{ID: "b", ParentCommentID: strPtr("a"), RootCommentID: strPtr("a")}
	if got := threadRoot(nested); got == nil || *got != "a" {
		t.Errorf("reply to reply: root = %v", got)
	}
}

func TestReplyRecipient(t *testing.T) {
	post := &models.Post{ID: "p", AuthorID: "author"}
	if got := replyRecipient(post, nil); got != "author" {
		t.Errorf("top-level: %q", got)
	}
	parent := &models.Comment{ID: "c", AuthorID: "commenter"}
	if got := replyRecipient(post, parent); got != "commenter" {
		t.Errorf("reply: %q", got)
	}
}
