package oracle

import (
	"context"
	"strconv"
	"time"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/cache"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/id"
)

// Cached wraps a PriceOracle with the sqlite TTL cache. Lookups that miss or
// have expired fall through to the source; source failures are returned
// as-is so callers can decide whether a stale default is acceptable.
type Cached struct {
	source PriceOracle
	store  *cache.Store
	ttl    time.Duration
}

func NewCached(source PriceOracle, store *cache.Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cached{source: source, store: store, ttl: ttl}
}

func (c *Cached) Price(ctx context.Context, token string) (float64, error) {
	key := "price:" + id.NormalizeToken(token)
	if res, err := c.store.Get(key); err == nil && res.Hit {
		if price, parseErr := strconv.ParseFloat(string(res.Value), 64); parseErr == nil {
			return price, nil
		}
	}

	price, err := c.source.Price(ctx, token)
	if err != nil {
		return 0, err
	}
	_ = c.store.Set(key, strconv.AppendFloat(nil, price, 'g', -1, 64), c.ttl)
	return price, nil
}
