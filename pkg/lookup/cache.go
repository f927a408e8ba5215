package lookup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// Cache keeps recent remote lookup responses in redis so repeated cases do
// not re-query the external source. All cache errors are logged and ignored:
// a broken cache degrades latency, never correctness.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(keywords string, maxResults int) string {
	sum := sha256.Sum256([]byte(keywords))
	return fmt.Sprintf("lookup:%s:%d", hex.EncodeToString(sum[:8]), maxResults)
}

func (c *Cache) Get(ctx context.Context, keywords string, maxResults int) ([]Snippet, bool) {
	raw, err := c.client.Get(ctx, c.key(keywords, maxResults)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Debug("lookup cache read failed")
		}
		return nil, false
	}

	var snippets []Snippet
	if err := json.Unmarshal([]byte(raw), &snippets); err != nil {
		return nil, false
	}
	return snippets, true
}

func (c *Cache) Put(ctx context.Context, keywords string, maxResults int, snippets []Snippet) {
	raw, err := json.Marshal(snippets)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(keywords, maxResults), raw, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Debug("lookup cache write failed")
	}
}
