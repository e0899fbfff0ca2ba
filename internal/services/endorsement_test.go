package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"comet/internal/apperr"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlRecorder collects the SQL a dry-run session would have sent.
type sqlRecorder struct {
	mu  sync.Mutex
	sql []string
}

func (r *sqlRecorder) LogMode(logger.LogLevel) logger.Interface   { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{})  {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}
func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.mu.Lock()
	r.sql = append(r.sql, sql)
	r.mu.Unlock()
}

func dryRunRecorder(t *testing.T) (*gorm.DB, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=comet dbname=comet sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, Logger: rec})
	if err != nil {
		t.Fatalf("open dry run db: %v", err)
	}
	return conn, rec
}

func findSQL(stmts []string, frags ...string) string {
	for _, s := range stmts {
		ok := true
		for _, f := range frags {
			if !strings.Contains(s, f) {
				ok = false
				break
			}
		}
		if ok {
			return s
		}
	}
	return ""
}

func TestToggleTransitions(t *testing.T) {
	tests := []struct {
		name       string
		exists     bool
		active     bool
		wantActive bool
		wantDelta  int
	}{
		{"no record", false, false, true, 1},
		{"active", true, true, false, -1},
		{"inactive", true, false, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, delta := toggle(tt.exists, tt.active)
			if active != tt.wantActive || delta != tt.wantDelta {
				t.Errorf("toggle(%v, %v) = (%v, %d), want (%v, %d)", tt.exists, tt.active, active, delta, tt.wantActive, tt.wantDelta)
			}
		})
	}
}

func TestToggleSequenceKeepsCounterConsistent(t *testing.T) {
	exists, active := false, false
	count := 0
	for i := 0; i < 7; i++ {
		var delta int
		active, delta = toggle(exists, active)
		exists = true
		count += delta

		want := 0
		if active {
			want = 1
		}
		if count != want {
			t.Fatalf("after %d toggles count = %d, active = %v", i+1, count, active)
		}
	}
	if !active {
		t.Errorf("odd number of toggles should leave the endorsement active")
	}
}

func TestEndorsableCheck(t *testing.T) {
	tests := []struct {
		name     string
		e        endorsable
		authorID string
		deleted  bool
		wantErr  bool
		wantKind apperr.Kind
		wantMsg  string
	}{
		{"own post", postEndorsable, "u1", false, true, apperr.KindConflict, "Cannot endorse your own post"},
		{"own comment", commentEndorsable, "u1", false, true, apperr.KindConflict, "Cannot endorse your own comment"},
		{"deleted post", postEndorsable, "u2", true, true, apperr.KindNotFound, "Post not found"},
		{"deleted own comment", commentEndorsable, "u1", true, true, apperr.KindNotFound, "Comment not found"},
		{"someone else's post", postEndorsable, "u2", false, false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.check(tt.authorID, tt.deleted, "u1")
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !apperr.Is(err, tt.wantKind) || err.Error() != tt.wantMsg {
				t.Errorf("check = %v, want kind %v %q", err, tt.wantKind, tt.wantMsg)
			}
		})
	}
}

func TestToggleTxStatements(t *testing.T) {
	conn, rec := dryRunRecorder(t)
	s := &EndorsementService{db: conn, now: func() time.Time { return time.Unix(0, 0) }}

	if _, err := s.toggleTx(conn, postEndorsable, "u1", "p1"); err != nil {
		t.Fatalf("toggleTx: %v", err)
	}

	if findSQL(rec.sql, "INSERT INTO post_endorsements", "ON CONFLICT DO NOTHING") == "" {
		t.Errorf("missing conflict-free insert in %q", rec.sql)
	}
	if findSQL(rec.sql, "post_endorsements", "SELECT active", "FOR UPDATE") == "" {
		t.Errorf("missing locked read in %q", rec.sql)
	}
	if findSQL(rec.sql, `UPDATE "posts"`, "endorsement_count + 1") == "" {
		t.Errorf("post counter not incremented in %q", rec.sql)
	}
	if findSQL(rec.sql, `UPDATE "users"`, "endorsement_count + 1") == "" {
		t.Errorf("author counter not incremented in %q", rec.sql)
	}
}

func TestApplyDeltaMovesBothCounters(t *testing.T) {
	for _, delta := range []int{1, -1} {
		conn, rec := dryRunRecorder(t)
		if err := commentEndorsable.applyDelta(conn, "c1", "author", delta); err != nil {
			t.Fatal(err)
		}
		want := "endorsement_count + 1"
		if delta < 0 {
			want = "endorsement_count + -1"
		}
		if findSQL(rec.sql, `UPDATE "comments"`, want, "'c1'") == "" {
			t.Errorf("delta %d: comment counter missing in %q", delta, rec.sql)
		}
		if findSQL(rec.sql, `UPDATE "users"`, want, "'author'") == "" {
			t.Errorf("delta %d: author counter missing in %q", delta, rec.sql)
		}
	}
}
