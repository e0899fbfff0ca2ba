package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"comet/internal/apperr"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type execResult int64

func (r execResult) LastInsertId() (int64, error) { return 0, nil }
func (r execResult) RowsAffected() (int64, error) { return int64(r), nil }

// fakePool answers every statement with a fixed row count and records how
// transactions end.
type fakePool struct {
	rows      int64
	execs     []string
	committed int
	rolled    int
}

func (p *fakePool) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, errors.New("not supported")
}

func (p *fakePool) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	p.execs = append(p.execs, query)
	return execResult(p.rows), nil
}

func (p *fakePool) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (p *fakePool) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (p *fakePool) BeginTx(ctx context.Context, opts *sql.TxOptions) (gorm.ConnPool, error) {
	return &fakeTx{p: p}, nil
}

// fakeTx cannot begin again, so statements inside it reuse it like *sql.Tx.
type fakeTx struct{ p *fakePool }

func (t *fakeTx) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return t.p.PrepareContext(ctx, query)
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.p.ExecContext(ctx, query, args...)
}

func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.p.QueryContext(ctx, query, args...)
}

func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.p.QueryRowContext(ctx, query, args...)
}

func (t *fakeTx) Commit() error   { t.p.committed++; return nil }
func (t *fakeTx) Rollback() error { t.p.rolled++; return nil }

func openFake(t *testing.T, rows int64) (*gorm.DB, *fakePool) {
	t.Helper()
	pool := &fakePool{rows: rows}
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return conn, pool
}

func TestRemaining(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-20 * time.Second)
	old := now.Add(-2 * time.Minute)

	if got := remaining(nil, PostInterval, now); got != 0 {
		t.Errorf("never posted: %v", got)
	}
	if got := remaining(&recent, PostInterval, now); got != 40*time.Second {
		t.Errorf("recent: %v", got)
	}
	if got := remaining(&old, PostInterval, now); got != 0 {
		t.Errorf("old: %v", got)
	}
}

func TestWaitMessage(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-5 * time.Second)
	if got := waitMessage(&last, CommentInterval, now, "commenting again"); got != "Please wait 10 seconds before commenting again" {
		t.Errorf("got %q", got)
	}

	almost := now.Add(-CommentInterval + 200*time.Millisecond)
	if got := waitMessage(&almost, CommentInterval, now, "commenting again"); got != "Please wait 1 second before commenting again" {
		t.Errorf("got %q", got)
	}
}

func TestThrottledClaimsInsideWriteTransaction(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := slot{userID: "u1", column: "last_posted_at", interval: PostInterval, action: "posting again"}

	t.Run("write fails", func(t *testing.T) {
		conn, pool := openFake(t, 1)
		boom := errors.New("insert failed")
		err := throttled(conn, s, now, func(tx *gorm.DB) error { return boom })
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		if len(pool.execs) != 1 || !strings.Contains(pool.execs[0], "last_posted_at") {
			t.Fatalf("execs = %q", pool.execs)
		}
		if pool.rolled != 1 || pool.committed != 0 {
			t.Errorf("claim must roll back with the write: committed=%d rolled=%d", pool.committed, pool.rolled)
		}
	})

	t.Run("write succeeds", func(t *testing.T) {
		conn, pool := openFake(t, 1)
		if err := throttled(conn, s, now, func(tx *gorm.DB) error { return nil }); err != nil {
			t.Fatal(err)
		}
		if pool.committed != 1 || pool.rolled != 0 {
			t.Errorf("committed=%d rolled=%d", pool.committed, pool.rolled)
		}
	})

	t.Run("slot taken", func(t *testing.T) {
		conn, pool := openFake(t, 0)
		last := now.Add(-20 * time.Second)
		taken := s
		taken.last = &last
		called := false
		err := throttled(conn, taken, now, func(tx *gorm.DB) error { called = true; return nil })
		if !apperr.Is(err, apperr.KindRateLimited) {
			t.Fatalf("err = %v, want rate limited", err)
		}
		if err.Error() != "Please wait 40 seconds before posting again" {
			t.Errorf("message = %q", err.Error())
		}
		if called || pool.rolled != 1 {
			t.Errorf("write ran=%v rolled=%d", called, pool.rolled)
		}
	})
}
