package searchcache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
)

func TestLookup_MissThenHit(t *testing.T) {
	c, ms := newTestCache(t, Config{KeyPrefix: "t:"})
	ctx := context.Background()

	if _, _, ok := c.Lookup(ctx, "hello", 3); ok {
		t.Fatal("expected miss on empty cache")
	}

	want := []result.Result{result.New(2, "b", 0.9), result.New(1, "a", 0.5)}
	put(ctx, c, "hello", 3, want)

	got, _, ok := c.Lookup(ctx, "hello", 3)
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got[0].ID() != 2 || got[1].Similarity() != 0.5 {
		t.Errorf("got %+v", got)
	}

	for k, ttl := range ms.ttls {
		if !strings.HasPrefix(k, "t:search:") {
			t.Errorf("unexpected key %q", k)
		}
		if ttl != DefaultTTL {
			t.Errorf("ttl = %v, want %v", ttl, DefaultTTL)
		}
	}
}

func TestLookup_KeyedByLimit(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	ctx := context.Background()

	put(ctx, c, "hello", 3, []result.Result{result.New(1, "a", 1)})
	if _, _, ok := c.Lookup(ctx, "hello", 5); ok {
		t.Error("different limit must miss")
	}
	if _, _, ok := c.Lookup(ctx, "hello!", 3); ok {
		t.Error("different query must miss")
	}
}

func TestLookup_EmptyResultIsCached(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	ctx := context.Background()

	put(ctx, c, "nothing", 3, []result.Result{})
	got, _, ok := c.Lookup(ctx, "nothing", 3)
	if !ok {
		t.Fatal("expected hit for cached empty result")
	}
	if len(got) != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestLookup_CorruptPayloadIsMiss(t *testing.T) {
	c, ms := newTestCache(t, Config{})
	ctx := context.Background()

	put(ctx, c, "q", 1, []result.Result{result.New(1, "a", 1)})
	for k := range ms.data {
		ms.data[k] = []byte("{not json")
	}
	if _, _, ok := c.Lookup(ctx, "q", 1); ok {
		t.Error("corrupt payload must be a miss")
	}
}

func TestLookup_BackendErrorIsMiss(t *testing.T) {
	c, ms := newTestCache(t, Config{})
	ms.getErr = errors.New("connection refused")

	if _, _, ok := c.Lookup(context.Background(), "q", 1); ok {
		t.Error("backend error must be a miss")
	}
}

func TestStore_BackendErrorIsSwallowed(t *testing.T) {
	c, ms := newTestCache(t, Config{})
	ms.setErr = errors.New("connection refused")

	put(context.Background(), c, "q", 1, []result.Result{result.New(1, "a", 1)})
	if len(ms.data) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestInvalidate_Disabled(t *testing.T) {
	c, _ := newTestCache(t, Config{})
	ctx := context.Background()

	put(ctx, c, "q", 1, []result.Result{result.New(1, "a", 1)})
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, ok := c.Lookup(ctx, "q", 1); !ok {
		t.Error("without invalidation the entry stays until TTL")
	}
}

func TestInvalidate_BumpsGeneration(t *testing.T) {
	c, _ := newTestCache(t, Config{InvalidateOnWrite: true})
	ctx := context.Background()

	put(ctx, c, "q", 1, []result.Result{result.New(1, "a", 1)})
	if _, _, ok := c.Lookup(ctx, "q", 1); !ok {
		t.Fatal("expected hit before invalidation")
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, ok := c.Lookup(ctx, "q", 1); ok {
		t.Error("expected miss after invalidation")
	}
}

func TestLookup_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_search_cache_total"}, []string{"result"})
	c := New(newMemStore(), Config{}, counter, nil)
	ctx := context.Background()

	_, key, _ := c.Lookup(ctx, "q", 1)
	c.Store(ctx, key, []result.Result{})
	c.Lookup(ctx, "q", 1)

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v", got)
	}
}

func TestStore_PinsGenerationFromLookup(t *testing.T) {
	c, _ := newTestCache(t, Config{InvalidateOnWrite: true})
	ctx := context.Background()

	_, key, ok := c.Lookup(ctx, "q", 2)
	if ok {
		t.Fatal("expected miss on empty cache")
	}
	// A write lands while the search is still running.
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Store(ctx, key, []result.Result{result.New(1, "stale", 1)})

	if got, _, ok := c.Lookup(ctx, "q", 2); ok {
		t.Errorf("results computed before the write served after it: %+v", got)
	}
}
