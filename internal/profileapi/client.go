// Package profileapi implements the Profile API external collaborator
// (spec §6.3): GET /users/{user_id} plus a bounded-concurrency batch fetch
// for candidate enrichment and referenced-user hydration (spec §4.F, §5).
// Grounded on the source repository's internal/tools.SearXNGClient HTTP
// client shape.
package profileapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"go-llama/internal/searcherr"
	"go-llama/internal/searchtypes"
)

// maxBatchConcurrency bounds the Profile-API fan-out so a large enrichment
// batch cannot saturate the downstream service (spec §5 "recommended cap: 32").
const maxBatchConcurrency = 32

// batchDeadline covers an entire FetchBatch call (spec §5 "~30 s").
const batchDeadline = 30 * time.Second

// Client fetches user profiles over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client against a running Profile API.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves a single user's profile. Returns ProfileNotFound for a 404
// and a plain error for any other status than 200, a transport failure or
// an undecodable body (spec §6.3, §7).
func (c *Client) Fetch(ctx context.Context, userID string) (searchtypes.Profile, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, searcherr.NewProfileNotFound(userID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("profile api returned status %d: %s", resp.StatusCode, string(body))
	}

	var profile searchtypes.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return profile, nil
}

// FetchBatch fetches many profiles concurrently, bounded to
// maxBatchConcurrency in-flight requests, under a single deadline covering
// the whole batch. Missing or errored users are simply absent from the
// result map — callers flag them as "does not exist" rather than failing
// the batch (spec §4.F, §7 "ProfileNotFound").
func (c *Client) FetchBatch(ctx context.Context, userIDs []string) map[string]searchtypes.Profile {
	ctx, cancel := context.WithTimeout(ctx, batchDeadline)
	defer cancel()

	results := make(map[string]searchtypes.Profile, len(userIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxBatchConcurrency)

	for _, id := range userIDs {
		id := id
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			profile, err := c.Fetch(ctx, id)
			if err != nil {
				log.Printf("[ProfileAPI] fetch failed for user_id=%s: %v", id, err)
				return
			}
			mu.Lock()
			results[id] = profile
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}
