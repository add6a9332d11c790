package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"UsersAPI/internal/filters"
	"UsersAPI/internal/metrics"
	"UsersAPI/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func loadModels(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"users":  "table: users\ncolumns: [id, email, group_id, created_at]\nrelations:\n  group:\n    type: belongs_to\n    model: groups\n",
		"groups": "table: groups\ncolumns: [id, name]\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	model.ResetRegistry()
	t.Cleanup(model.ResetRegistry)
	if err := model.InitRegistry(dir); err != nil {
		t.Fatalf("InitRegistry: %v", err)
	}
}

func resetCountCache(t *testing.T) {
	t.Helper()
	globalCountCache.reset()
	SetCountCacheTTL(time.Minute)
	t.Cleanup(func() {
		globalCountCache.reset()
		SetCountCacheTTL(defaultCountTTL)
	})
}

func TestCountCacheKeyIsCanonical(t *testing.T) {
	a := filters.QueryOptions{
		Where: filters.Where{
			"email":      "a@x.io",
			"created_at": filters.Cond{filters.OpGte: "2024-01-01", filters.OpLte: "2024-12-31"},
		},
		Include: []*filters.Include{{Model: "groups", As: "group", Where: filters.Where{"name": "Admins"}}},
		Order:   []filters.OrderTerm{{Path: []string{"email"}, Direction: "asc"}},
		Limit:   filters.Int(10),
	}
	b := filters.QueryOptions{
		Where: filters.Where{
			"created_at": filters.Cond{filters.OpLte: "2024-12-31", filters.OpGte: "2024-01-01"},
			"email":      "a@x.io",
		},
		Include: []*filters.Include{{Model: "groups", As: "group", Where: filters.Where{"name": "Admins"}}},
		Offset:  filters.Int(40),
	}

	ka, err := countCacheKey("users", a)
	if err != nil {
		t.Fatalf("key a: %v", err)
	}
	kb, err := countCacheKey("users", b)
	if err != nil {
		t.Fatalf("key b: %v", err)
	}
	if ka != kb {
		t.Fatalf("keys differ for equivalent count options: %s vs %s", ka, kb)
	}
	if !strings.HasPrefix(ka, countCachePrefix) {
		t.Fatalf("key %q lacks prefix", ka)
	}

	b.Include[0].Required = true
	kc, _ := countCacheKey("users", b)
	if kc == ka {
		t.Fatalf("required include must change the key")
	}
	kd, _ := countCacheKey("groups", a)
	if kd == ka {
		t.Fatalf("model name must change the key")
	}
}

func TestCountCacheKeyOrAlternatives(t *testing.T) {
	opts := filters.QueryOptions{Where: filters.Where{
		filters.OrKey: []filters.Where{{"first_name": "a"}, {"last_name": "a"}},
	}}
	swapped := filters.QueryOptions{Where: filters.Where{
		filters.OrKey: []filters.Where{{"last_name": "a"}, {"first_name": "a"}},
	}}
	k1, err := countCacheKey("users", opts)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	k2, _ := countCacheKey("users", swapped)
	if k1 == k2 {
		t.Fatalf("alternative order is part of the key")
	}
}

func TestCountCacheExpiry(t *testing.T) {
	resetCountCache(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	globalCountCache.set("k", 7, now)
	if n, ok := globalCountCache.get("k", now.Add(30*time.Second)); !ok || n != 7 {
		t.Fatalf("expected cached 7, got %d %v", n, ok)
	}
	if _, ok := globalCountCache.get("k", now.Add(time.Minute)); ok {
		t.Fatalf("entry must expire after ttl")
	}
}

func TestCountCacheSweep(t *testing.T) {
	resetCountCache(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	globalCountCache.set("old", 1, now)
	globalCountCache.set("new", 2, now.Add(50*time.Second))
	globalCountCache.get("missing", now.Add(2*time.Minute))

	globalCountCache.mu.Lock()
	_, oldKept := globalCountCache.items["old"]
	_, newKept := globalCountCache.items["new"]
	globalCountCache.mu.Unlock()
	if oldKept || newKept {
		t.Fatalf("sweep kept expired entries: old=%v new=%v", oldKept, newKept)
	}
}

func TestCountCacheDisabled(t *testing.T) {
	resetCountCache(t)
	SetCountCacheTTL(0)

	storeCount(context.Background(), "k", 3)
	if _, ok := globalCountCache.get("k", time.Now()); ok {
		t.Fatalf("zero ttl must disable caching")
	}
}

func TestCountServedFromMemory(t *testing.T) {
	loadModels(t)
	resetCountCache(t)

	opts := filters.QueryOptions{Where: filters.Where{"email": "a@x.io"}}
	key, err := countCacheKey("users", opts)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	storeCount(context.Background(), key, 42)

	before := testutil.ToFloat64(metrics.CountCacheHits.WithLabelValues("memory"))
	n, err := Count(context.Background(), "users", opts)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected cached count 42, got %d", n)
	}
	if got := testutil.ToFloat64(metrics.CountCacheHits.WithLabelValues("memory")); got != before+1 {
		t.Fatalf("memory hit not counted: before=%v after=%v", before, got)
	}
}

func TestFlushCountCacheClearsMemory(t *testing.T) {
	resetCountCache(t)
	storeCount(context.Background(), "k", 5)

	if err := FlushCountCache(context.Background()); err != nil {
		t.Fatalf("FlushCountCache: %v", err)
	}
	if _, ok := globalCountCache.get("k", time.Now()); ok {
		t.Fatalf("flush must clear memory tier")
	}
}

func TestFindWithoutPool(t *testing.T) {
	loadModels(t)
	resetCountCache(t)

	var logged string
	opts := filters.QueryOptions{
		Where:   filters.Where{"group.name": "Admins"},
		Include: []*filters.Include{{Model: "groups", As: "group"}},
		Logging: func(q string, _ []any) { logged = q },
	}
	if _, err := Find(context.Background(), "users", opts); !errors.Is(err, errNoPool) {
		t.Fatalf("expected errNoPool, got %v", err)
	}
	if !strings.Contains(logged, "LEFT JOIN groups AS t0") {
		t.Fatalf("logging hook not called with the query: %q", logged)
	}

	if _, err := Count(context.Background(), "users", opts); !errors.Is(err, errNoPool) {
		t.Fatalf("expected errNoPool from Count, got %v", err)
	}
}

func TestUnknownModel(t *testing.T) {
	loadModels(t)
	if _, err := Find(context.Background(), "nope", filters.QueryOptions{}); !errors.Is(err, model.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := Count(context.Background(), "nope", filters.QueryOptions{}); !errors.Is(err, model.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestCountCacheSetUntilHonoursDeadline(t *testing.T) {
	resetCountCache(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	globalCountCache.setUntil("k", 7, now, now.Add(5*time.Second))
	if _, ok := globalCountCache.get("k", now.Add(4*time.Second)); !ok {
		t.Fatalf("entry must live until the deadline")
	}
	if _, ok := globalCountCache.get("k", now.Add(5*time.Second)); ok {
		t.Fatalf("entry outlived the redis deadline")
	}

	// a deadline past the memory ttl leaves the ttl in charge
	globalCountCache.setUntil("k", 7, now, now.Add(time.Hour))
	if _, ok := globalCountCache.get("k", now.Add(time.Minute)); ok {
		t.Fatalf("entry must expire after ttl")
	}

	globalCountCache.setUntil("gone", 1, now, now.Add(-time.Second))
	if _, ok := globalCountCache.get("gone", now); ok {
		t.Fatalf("already expired deadline must not be stored")
	}
}

func TestRedisDeadline(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		remaining time.Duration
		want      time.Time
	}{
		{1500 * time.Millisecond, now.Add(1500 * time.Millisecond)},
		{0, time.Time{}},
		{-1 * time.Millisecond, time.Time{}},
		{-2 * time.Millisecond, time.Time{}},
	}
	for _, tc := range tests {
		if got := redisDeadline(now, tc.remaining); !got.Equal(tc.want) {
			t.Fatalf("redisDeadline(%v) = %v, want %v", tc.remaining, got, tc.want)
		}
	}
}

func TestInvalidateCountsDropsOneModel(t *testing.T) {
	loadModels(t)
	resetCountCache(t)

	opts := filters.QueryOptions{Where: filters.Where{"email": "a@x.io"}}
	usersKey, err := countCacheKey("users", opts)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	groupsKey, err := countCacheKey("groups", filters.QueryOptions{})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	storeCount(context.Background(), usersKey, 3)
	storeCount(context.Background(), groupsKey, 2)

	if err := InvalidateCounts(context.Background(), "users"); err != nil {
		t.Fatalf("InvalidateCounts: %v", err)
	}
	if _, ok := globalCountCache.get(usersKey, time.Now()); ok {
		t.Fatalf("users count survived invalidation")
	}
	if n, ok := globalCountCache.get(groupsKey, time.Now()); !ok || n != 2 {
		t.Fatalf("groups count must stay cached, got %d %v", n, ok)
	}
}

func TestUpdateWithoutPool(t *testing.T) {
	loadModels(t)
	resetCountCache(t)

	key, _ := countCacheKey("users", filters.QueryOptions{})
	storeCount(context.Background(), key, 9)

	_, err := Update(context.Background(), "users", map[string]any{"email": "b@x.io"}, filters.Where{"id": "u1"})
	if !errors.Is(err, errNoPool) {
		t.Fatalf("expected errNoPool, got %v", err)
	}
	if _, ok := globalCountCache.get(key, time.Now()); !ok {
		t.Fatalf("failed write must not drop cached counts")
	}

	if _, err := Update(context.Background(), "users", map[string]any{"email": "b@x.io"}, nil); !errors.Is(err, model.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for update without where, got %v", err)
	}
}
