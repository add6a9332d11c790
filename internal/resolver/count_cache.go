package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"UsersAPI/internal/filters"
)

const (
	countCachePrefix    = "countcache:"
	countCacheSweepFreq = time.Minute
	defaultCountTTL     = time.Minute
)

type countCacheEntry struct {
	count     int
	expiresAt time.Time
}

// countCache is the process-local tier. Entries expire after ttl; a zero ttl
// disables caching entirely.
type countCache struct {
	mu        sync.Mutex
	items     map[string]countCacheEntry
	ttl       time.Duration
	lastSweep time.Time
}

var globalCountCache = &countCache{
	items: make(map[string]countCacheEntry),
	ttl:   defaultCountTTL,
}

// SetCountCacheTTL sets the lifetime of cached counts in both tiers.
func SetCountCacheTTL(ttl time.Duration) {
	globalCountCache.mu.Lock()
	defer globalCountCache.mu.Unlock()
	if ttl < 0 {
		ttl = 0
	}
	globalCountCache.ttl = ttl
}

func (c *countCache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

func (c *countCache) get(key string, now time.Time) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeSweepLocked(now)
	entry, ok := c.items[key]
	if !ok {
		return 0, false
	}
	if !now.Before(entry.expiresAt) {
		delete(c.items, key)
		return 0, false
	}
	return entry.count, true
}

func (c *countCache) set(key string, n int, now time.Time) {
	c.setUntil(key, n, now, time.Time{})
}

// setUntil stores n until the earlier of now+ttl and deadline. A zero
// deadline means now+ttl.
func (c *countCache) setUntil(key string, n int, now, deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl == 0 {
		return
	}
	c.maybeSweepLocked(now)
	expiresAt := now.Add(c.ttl)
	if !deadline.IsZero() && deadline.Before(expiresAt) {
		expiresAt = deadline
	}
	if !now.Before(expiresAt) {
		return
	}
	c.items[key] = countCacheEntry{count: n, expiresAt: expiresAt}
}

// dropPrefix removes every entry whose key starts with prefix.
func (c *countCache) dropPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			dropped++
		}
	}
	return dropped
}

func (c *countCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]countCacheEntry)
	c.lastSweep = time.Time{}
}

func (c *countCache) maybeSweepLocked(now time.Time) {
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < countCacheSweepFreq {
		return
	}
	for key, entry := range c.items {
		if !now.Before(entry.expiresAt) {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}

// countCacheKey hashes everything BuildCountQuery depends on. Order, paging,
// grouping and attributes do not change a count and are left out. Keys are
// grouped by model so writes can drop the counts of one model.
func countCacheKey(modelName string, opts filters.QueryOptions) (string, error) {
	payload := map[string]any{
		"model":   modelName,
		"where":   opts.Where,
		"include": includePayload(opts.Include),
	}

	data, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return modelCountPrefix(modelName) + hex.EncodeToString(sum[:]), nil
}

func modelCountPrefix(modelName string) string {
	return countCachePrefix + modelName + ":"
}

func includePayload(includes []*filters.Include) []any {
	out := make([]any, 0, len(includes))
	for _, inc := range includes {
		if inc == nil {
			continue
		}
		item := map[string]any{
			"model":    inc.Model,
			"as":       inc.As,
			"where":    inc.Where,
			"required": inc.Required,
			"include":  includePayload(inc.Include),
		}
		if inc.Through != nil {
			item["through"] = map[string]any{
				"model": inc.Through.Model,
				"as":    inc.Through.As,
				"where": inc.Through.Where,
			}
		}
		out = append(out, item)
	}
	return out
}

func canonicalJSON(value any) ([]byte, error) {
	var b strings.Builder
	if err := encodeCanonical(&b, value); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeCanonical(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if v {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		enc, _ := json.Marshal(v)
		b.Write(enc)
	case float64, float32, int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		enc, _ := json.Marshal(v)
		b.Write(enc)
	case json.Number:
		b.WriteString(v.String())
	case filters.Where:
		return encodeCanonical(b, map[string]any(v))
	case filters.Cond:
		return encodeCanonical(b, map[string]any(v))
	case []filters.Where:
		items := make([]any, len(v))
		for i, w := range v {
			items[i] = w
		}
		return encodeCanonical(b, items)
	case []string:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(item)
			b.Write(enc)
		}
		b.WriteByte(']')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encKey, _ := json.Marshal(k)
			b.Write(encKey)
			b.WriteByte(':')
			if err := encodeCanonical(b, v[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		b.Write(enc)
	}
	return nil
}
