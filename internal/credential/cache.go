package credential

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kiro-gateway/gateway/internal/logging"
)

const defaultCacheCapacity = 100

// Cache is the Credential Cache (CC, §4.2): a bounded, concurrency-safe LRU
// keyed by refresh token. getOrCreate is atomic enough that two concurrent
// misses on the same key never construct two Managers.
type Cache struct {
	mu         sync.Mutex
	lru        *lru.Cache[string, *Manager]
	region     string
	profileArn string
}

// NewCache builds a Cache with the given capacity (0 uses the default of
// 100). region/profileArn are the fallback values used when a per-tenant
// request doesn't carry its own.
func NewCache(capacity int, region, profileArn string) *Cache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	evictLogger := func(refreshToken string, _ *Manager) {
		logging.Infof("CC", "evicted credential manager for token=%s", redactToken(refreshToken))
	}
	c, _ := lru.NewWithEvict[string, *Manager](capacity, evictLogger)
	return &Cache{lru: c, region: region, profileArn: profileArn}
}

// GetOrCreate returns the Manager for refreshToken, creating one under lock
// on a miss so concurrent misses on the same key never race into two
// Managers (§5 "CC is a concurrent LRU").
func (c *Cache) GetOrCreate(refreshToken, region, profileArn string) (*Manager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.lru.Get(refreshToken); ok {
		return m, nil
	}

	if region == "" {
		region = c.region
	}
	if profileArn == "" {
		profileArn = c.profileArn
	}

	m, err := NewManager(Config{
		RefreshToken: refreshToken,
		Region:       region,
		ProfileArn:   profileArn,
	})
	if err != nil {
		return nil, err
	}

	c.lru.Add(refreshToken, m)
	return m, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func redactToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
