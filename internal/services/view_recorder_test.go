package services

import (
	"testing"

	"comet/internal/loader"

	"go.uber.org/zap"
)

func TestViewRecorderKeepsLatestCount(t *testing.T) {
	r := NewViewRecorder(nil, zap.NewNop())
	r.Record("u1", "p1", 3)
	r.Record("u1", "p1", 5)
	r.Record("u1", "p2", 1)

	if n := r.pendingCount(); n != 2 {
		t.Fatalf("pending = %d, want 2", n)
	}
	if n := len(r.queue); n != 2 {
		t.Errorf("queued = %d, want 2", n)
	}
	if got := r.pending[loader.PostViewKey{UserID: "u1", PostID: "p1"}]; got != 5 {
		t.Errorf("count = %d, want 5", got)
	}
}
