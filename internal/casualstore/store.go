// Package casualstore implements the Casual-request store write-through
// client (spec §6.4): upsert-by-user-id, at most one active record per user,
// resetting last_activity_at on every resubmission. The orchestrator never
// reads matches back directly — a separate service (not owned here) performs
// matching; this client only writes the request, and the result it returns
// carries the stored record with no matches (spec §9 "Casual-request
// matching... are placeholders, not contracts").
//
// Backed by Redis (go-llama/internal/redis), following the source
// repository's use of Redis as a lightweight keyed store rather than a
// relational one.
package casualstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go-llama/internal/searchtypes"
)

const keyPrefix = "casual_request:"

// Store upserts casual-request records in Redis, keyed by user_id.
type Store struct {
	client *redis.Client
}

// New builds a Store over an already-connected Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(userID string) string {
	return keyPrefix + userID
}

// Upsert writes or replaces the active casual-request record for userID,
// resetting last_activity_at to now (spec §3 "Casual request record"
// invariant: at most one active record per user).
func (s *Store) Upsert(ctx context.Context, record searchtypes.CasualRequest) (*searchtypes.CasualStoreResult, error) {
	now := time.Now()
	existing, err := s.get(ctx, record.UserID)
	if err == nil && existing != nil {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.LastActivityAt = now
	record.IsActive = true

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal casual request: %w", err)
	}

	if err := s.client.Set(ctx, key(record.UserID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("casual store write failed: %w", err)
	}

	return &searchtypes.CasualStoreResult{Success: true, Record: record}, nil
}

func (s *Store) get(ctx context.Context, userID string) (*searchtypes.CasualRequest, error) {
	data, err := s.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		return nil, err
	}
	var record searchtypes.CasualRequest
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Get returns the active record for userID, or (nil, false) if none exists.
func (s *Store) Get(ctx context.Context, userID string) (searchtypes.CasualRequest, bool) {
	record, err := s.get(ctx, userID)
	if err != nil {
		return searchtypes.CasualRequest{}, false
	}
	return *record, true
}
