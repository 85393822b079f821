// Package cache implements the tenant-namespaced key/value accelerator
// layer (C5). It is advisory-only: Get degrades to a miss on error, Set
// fails silently, and the authoritative store is always the ticket/tenant
// service, never the cache.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TTLCustomerProfile  = 3600 * time.Second
	TTLChurnPrediction  = 1800 * time.Second
	TTLQueryResult      = 600 * time.Second
	TTLArchetype        = 3600 * time.Second
)

// Key builds the namespaced cache key: tenant:{tenantID}:{prefix}:{suffix}
// when a tenant is bound, else global:{prefix}:{suffix}. This is the one
// helper permitted to construct cache keys; callers MUST NOT build keys
// by hand.
func Key(tenantID, prefix, suffix string) string {
	if tenantID == "" {
		return "global:" + prefix + ":" + suffix
	}
	return "tenant:" + tenantID + ":" + prefix + ":" + suffix
}

type Stats struct {
	mu     sync.Mutex
	Hits   int64
	Misses int64
	Errors int64
}

func (s *Stats) hit()   { s.mu.Lock(); s.Hits++; s.mu.Unlock() }
func (s *Stats) miss()  { s.mu.Lock(); s.Misses++; s.mu.Unlock() }
func (s *Stats) errInc() { s.mu.Lock(); s.Errors++; s.mu.Unlock() }

func (s *Stats) Snapshot() (hits, misses, errs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Hits, s.Misses, s.Errors
}

// Manager is the tenant-facing cache API (C5). L1 is an in-process
// sync.Map; L2 is Redis. Both layers are best-effort.
type Manager struct {
	redis *redis.Client
	local *sync.Map
	stats Stats
	ttl   time.Duration
}

func NewManager(addr string, defaultTTL time.Duration) *Manager {
	var client *redis.Client
	if addr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:         addr,
			PoolSize:     100,
			MinIdleConns: 10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			MaxRetries:   3,
		})
	}
	if defaultTTL == 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Manager{redis: client, local: &sync.Map{}, ttl: defaultTTL}
}

func (m *Manager) Connect(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	return m.redis.Ping(ctx).Err()
}

func (m *Manager) Disconnect() error {
	if m.redis == nil {
		return nil
	}
	return m.redis.Close()
}

// Get returns true on hit. Any Redis error degrades to a miss —
// the cache is never allowed to fail a request.
func (m *Manager) Get(ctx context.Context, key string, target interface{}) bool {
	if cached, ok := m.local.Load(key); ok {
		if raw, ok := cached.([]byte); ok {
			if json.Unmarshal(raw, target) == nil {
				m.stats.hit()
				return true
			}
		}
	}
	if m.redis == nil {
		m.stats.miss()
		return false
	}
	data, err := m.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		m.stats.miss()
		return false
	}
	if err != nil {
		m.stats.errInc()
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		m.stats.errInc()
		return false
	}
	m.local.Store(key, data)
	m.stats.hit()
	return true
}

// Set returns false silently on any failure; callers MUST NOT treat a
// failed Set as fatal.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if ttl == 0 {
		ttl = m.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		m.stats.errInc()
		return false
	}
	m.local.Store(key, data)
	if m.redis == nil {
		return true
	}
	if err := m.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		m.stats.errInc()
		return false
	}
	return true
}

func (m *Manager) Delete(ctx context.Context, key string) {
	m.local.Delete(key)
	if m.redis != nil {
		m.redis.Del(ctx, key)
	}
}

func (m *Manager) Exists(ctx context.Context, key string) bool {
	if _, ok := m.local.Load(key); ok {
		return true
	}
	if m.redis == nil {
		return false
	}
	n, err := m.redis.Exists(ctx, key).Result()
	return err == nil && n > 0
}

// DeletePattern invalidates every key matching a glob pattern, e.g.
// "tenant:{id}:customer:*" for invalidate_all_customers.
func (m *Manager) DeletePattern(ctx context.Context, pattern string) {
	m.local.Range(func(k, _ interface{}) bool {
		if ks, ok := k.(string); ok && globMatch(pattern, ks) {
			m.local.Delete(k)
		}
		return true
	})
	if m.redis == nil {
		return
	}
	iter := m.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		m.redis.Del(ctx, iter.Val())
	}
}

func (m *Manager) ClearAll(ctx context.Context) {
	m.local.Range(func(k, _ interface{}) bool {
		m.local.Delete(k)
		return true
	})
	if m.redis != nil {
		m.redis.FlushDB(ctx)
	}
}

func (m *Manager) Stats() (hits, misses, errs int64) { return m.stats.Snapshot() }

func globMatch(pattern, s string) bool {
	// only "*" suffix patterns are used by callers (DeletePattern(prefix+"*"))
	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(s) >= len(prefix) && s[:len(prefix)] == prefix
	}
	return pattern == s
}
