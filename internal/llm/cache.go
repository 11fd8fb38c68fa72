package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache memoises chat-completion responses in Redis, keyed by a hash
// of the exact request payload (model, messages, options). Repeated
// utterances — the same person re-asking a question, or a retried search
// turn with an unchanged preprocessed query — skip the network round trip
// entirely. Grounded on the source repository's internal/redis client; this
// is the backing for spec §5's cache_hits stat.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache builds a cache over an already-connected Redis client.
// A nil client is valid and disables caching (every lookup misses).
func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{client: client, ttl: ttl}
}

func cacheKey(payload map[string]interface{}) string {
	encoded, _ := json.Marshal(payload)
	sum := sha256.Sum256(encoded)
	return "llm_response_cache:" + hex.EncodeToString(sum[:])
}

// get returns the cached response body for payload, if present.
func (c *ResponseCache) get(ctx context.Context, payload map[string]interface{}) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	body, err := c.client.Get(ctx, cacheKey(payload)).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

// set stores body for payload, best-effort (a write failure just means the
// next identical call misses the cache, not a request failure).
func (c *ResponseCache) set(ctx context.Context, payload map[string]interface{}, body []byte) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, cacheKey(payload), body, c.ttl)
}
