package price

import (
	"sync"
	"time"

	"github.com/mtlprog/swaproute/internal/domain"
)

const cacheTTL = 30 * time.Second

type cacheEntry struct {
	price     domain.TokenPrice
	expiresAt time.Time
}

type priceCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newPriceCache(ttl time.Duration) *priceCache {
	return &priceCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// cacheKey formats: "{chainID}:{lowercase address}" e.g. "1:0xa0b8...eb48"
func cacheKey(chainID domain.ChainID, address string) string {
	return domain.TokenKey(chainID, address)
}

func (c *priceCache) get(key string) (domain.TokenPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return domain.TokenPrice{}, false
	}
	return entry.price, true
}

func (c *priceCache) set(key string, price domain.TokenPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		price:     price,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// prune drops expired entries. Called opportunistically on writes by the oracle.
func (c *priceCache) prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *priceCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
