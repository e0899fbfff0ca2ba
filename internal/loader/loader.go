// Package loader coalesces entity lookups made while building one response
// into a single bulk fetch per entity type.
package loader

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// FetchFunc loads many keys at once. Keys missing from the returned map are
// reported as absent.
type FetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

type entry[V any] struct {
	value V
	found bool
}

// Loader is a request-scoped batching cache over dataloader. Loads issued
// within the wait window share a fetch, and every key is fetched at most
// once. Failed fetches are not cached.
type Loader[K comparable, V any] struct {
	dl *dataloader.Loader[K, entry[V]]
}

type Option func(*options)

type options struct {
	wait     time.Duration
	maxBatch int
}

// WithWait sets how long the first Load waits for others to join its batch.
func WithWait(d time.Duration) Option { return func(o *options) { o.wait = d } }

// WithMaxBatch caps keys per fetch.
func WithMaxBatch(n int) Option { return func(o *options) { o.maxBatch = n } }

func New[K comparable, V any](fetch FetchFunc[K, V], opts ...Option) *Loader[K, V] {
	o := options{wait: time.Millisecond, maxBatch: 100}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader[K, V]{
		dl: dataloader.NewBatchedLoader(batchFunc(fetch),
			dataloader.WithWait[K, entry[V]](o.wait),
			dataloader.WithBatchCapacity[K, entry[V]](o.maxBatch),
		),
	}
}

// batchFunc adapts a map-returning fetch to dataloader's positional results.
func batchFunc[K comparable, V any](fetch FetchFunc[K, V]) dataloader.BatchFunc[K, entry[V]] {
	return func(ctx context.Context, keys []K) []*dataloader.Result[entry[V]] {
		results := make([]*dataloader.Result[entry[V]], len(keys))
		rows, err := fetch(ctx, keys)
		for i, k := range keys {
			if err != nil {
				results[i] = &dataloader.Result[entry[V]]{Error: err}
				continue
			}
			v, found := rows[k]
			results[i] = &dataloader.Result[entry[V]]{Data: entry[V]{value: v, found: found}}
		}
		return results
	}
}

// Load returns the value for key. found is false when the fetch did not
// return the key.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	e, err := l.dl.Load(ctx, key)()
	if err != nil {
		l.dl.Clear(ctx, key)
		var zero V
		return zero, false, err
	}
	return e.value, e.found, nil
}

// LoadMany returns values aligned with keys, the zero value marking an
// absent key. Duplicate keys are fetched once.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	entries, errs := l.dl.LoadMany(ctx, keys)()
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		// 失败的 key 不进缓存，下次重试
		l.dl.Clear(ctx, keys[i])
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	values := make([]V, len(keys))
	for i, e := range entries {
		values[i] = e.value
	}
	return values, nil
}

// Prime stores a value already in hand, e.g. a row just written.
func (l *Loader[K, V]) Prime(key K, value V) {
	ctx := context.Background()
	l.dl.Clear(ctx, key)
	l.dl.Prime(ctx, key, entry[V]{value: value, found: true})
}

// Clear drops key so the next Load fetches it again.
func (l *Loader[K, V]) Clear(key K) {
	l.dl.Clear(context.Background(), key)
}
