package loader

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type user struct{ ID, Name string }

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fail  bool
}

func (r *recorder) fetch(ctx context.Context, keys []string) (map[string]*user, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := append([]string(nil), keys...)
	sort.Strings(cp)
	r.calls = append(r.calls, cp)
	if r.fail {
		return nil, errors.New("db down")
	}
	out := make(map[string]*user)
	for _, k := range keys {
		if k == "ghost" {
			continue
		}
		out[k] = &user{ID: k, Name: "name-" + k}
	}
	return out, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestLoadManyDeduplicatesAndAligns(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)

	keys := []string{"a", "b", "a", "ghost", "c", "b"}
	got, err := l.LoadMany(context.Background(), keys)
	if err != nil {
		t.Fatal(err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected one bulk fetch, got %d: %v", rec.count(), rec.calls)
	}
	if want := []string{"a", "b", "c", "ghost"}; len(rec.calls[0]) != len(want) {
		t.Fatalf("fetched keys %v, want %v", rec.calls[0], want)
	}
	for i, k := range keys {
		if k == "ghost" {
			if got[i] != nil {
				t.Errorf("missing key should load as nil, got %+v", got[i])
			}
			continue
		}
		if got[i] == nil || got[i].ID != k {
			t.Errorf("position %d: got %+v, want %s", i, got[i], k)
		}
	}
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch, WithWait(20*time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"x", "y", "z"}[i%3]
			u, found, err := l.Load(context.Background(), key)
			if err != nil || !found || u.ID != key {
				t.Errorf("Load(%s) = %+v, %v, %v", key, u, found, err)
			}
		}(i)
	}
	wg.Wait()

	if rec.count() != 1 {
		t.Fatalf("expected 1 fetch for 20 concurrent loads, got %d", rec.count())
	}
}

func TestResultsAreCachedForTheRequest(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)
	ctx := context.Background()

	if _, _, err := l.Load(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := l.Load(ctx, "ghost"); found {
		t.Fatal("ghost should not be found")
	}
	before := rec.count()
	l.Load(ctx, "a")
	l.Load(ctx, "ghost")
	if rec.count() != before {
		t.Fatalf("cached keys were fetched again (%d -> %d)", before, rec.count())
	}

	l.Clear("a")
	l.Load(ctx, "a")
	if rec.count() != before+1 {
		t.Fatal("Clear should force a refetch")
	}
}

func TestPrimeSkipsFetch(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch)
	l.Prime("p", &user{ID: "p", Name: "primed"})

	u, found, err := l.Load(context.Background(), "p")
	if err != nil || !found || u.Name != "primed" {
		t.Fatalf("got %+v %v %v", u, found, err)
	}
	if rec.count() != 0 {
		t.Fatal("primed key must not be fetched")
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	rec := &recorder{fail: true}
	l := New(rec.fetch)
	ctx := context.Background()

	if _, _, err := l.Load(ctx, "a"); err == nil {
		t.Fatal("expected fetch error")
	}
	rec.mu.Lock()
	rec.fail = false
	rec.mu.Unlock()

	u, found, err := l.Load(ctx, "a")
	if err != nil || !found || u.ID != "a" {
		t.Fatalf("retry after failure: %+v %v %v", u, found, err)
	}
}

func TestMaxBatchSplitsFetches(t *testing.T) {
	rec := &recorder{}
	l := New(rec.fetch, WithMaxBatch(2))
	if _, err := l.LoadMany(context.Background(), []string{"a", "b", "c", "d", "e"}); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 3 {
		t.Fatalf("expected 3 fetches of at most 2 keys, got %v", rec.calls)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("empty context should have no loaders")
	}
	ls := &Loaders{}
	if FromContext(NewContext(context.Background(), ls)) != ls {
		t.Fatal("loaders lost in context")
	}
}
