// Package vectorstore implements the Vector Store Client (spec §4.B): a
// single hybrid_search operation over a Qdrant collection keyed by user_id,
// carrying a 1024-dim dense vector, a sparse term→weight map, and an
// arbitrary JSON payload per point. Grounded on the source repository's
// internal/memory/storage.go Qdrant wrapper, generalised from "memory"
// records to search "candidate" records, and on the reference
// tencent_vectordb_adapter.py's native-hybrid-preferred / dense-plus-
// sparse-rerank-fallback strategy (spec §4.B, §6.1).
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"go-llama/internal/searcherr"
	"go-llama/internal/searchtypes"
)

const (
	maxRetries     = 3
	retryBaseDelay = 1 * time.Second
	retryFactor    = 1.5
)

// Store wraps a Qdrant collection for dense+sparse candidate search.
type Store struct {
	client         *qdrant.Client
	collectionName string
}

// Filter is the grammar spec §4.B requires: equality predicates plus a
// NOT-IN exclusion list, both optional.
type Filter struct {
	ExcludeUserIDs []string
	Equals         map[string]string
}

// New connects to a Qdrant instance and ensures the collection exists with
// both a dense (1024-dim, cosine) and a sparse vector field.
func New(endpoint, collectionName, apiKey string) (*Store, error) {
	host, port := parseEndpoint(endpoint)
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: false,
	})
	if err != nil {
		return nil, searcherr.NewVectorStoreError(err)
	}

	s := &Store{client: client, collectionName: collectionName}
	if err := s.ensureCollection(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func parseEndpoint(endpoint string) (string, int) {
	host := strings.TrimPrefix(endpoint, "https://")
	host = strings.TrimPrefix(host, "http://")
	port := 6334
	if idx := strings.Index(host, ":"); idx != -1 {
		if p, err := strconv.Atoi(host[idx+1:]); err == nil {
			port = p
		}
		host = host[:idx]
	}
	return host, port
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return searcherr.NewVectorStoreError(err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			"dense": {Size: uint64(DenseDimension), Distance: qdrant.Distance_Cosine},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			"sparse": {},
		}),
	})
	if err != nil {
		return searcherr.NewVectorStoreError(err)
	}

	for _, field := range []string{"user_id", "location"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			// Indexes are an optimisation; a missing one degrades filter
			// performance, not correctness, so the error is ignored.
			continue
		}
	}
	return nil
}

// DenseDimension mirrors embedding.DenseDimension without importing the
// embedding package, avoiding a dependency cycle between the two leaf
// components.
const DenseDimension = 1024

// HybridSearch issues a dense+sparse query against the collection and
// returns up to topK candidates ordered by descending score (spec §4.B).
// sparse may be nil/empty, in which case a dense-only search runs. Transient
// I/O failures are retried with exponential backoff (base 1s, factor 1.5,
// max 3 attempts); on total failure it returns an empty slice, never partial
// results.
func (s *Store) HybridSearch(ctx context.Context, dense []float32, sparse map[string]float32, topK int, filter *Filter) ([]searchtypes.Candidate, error) {
	var candidates []searchtypes.Candidate
	var lastErr error
	delay := retryBaseDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		candidates, lastErr = s.search(ctx, dense, sparse, topK, filter)
		if lastErr == nil {
			return candidates, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isPermanent(lastErr) {
			break
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = time.Duration(float64(delay) * retryFactor)
	}
	if lastErr != nil {
		return []searchtypes.Candidate{}, nil
	}
	return candidates, nil
}

func isPermanent(err error) bool {
	// Schema mismatch and auth failures are not worth retrying; everything
	// else (timeouts, connection resets) is treated as transient.
	msg := err.Error()
	return strings.Contains(msg, "PERMISSION_DENIED") || strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "invalid collection")
}

func (s *Store) search(ctx context.Context, dense []float32, sparse map[string]float32, topK int, filter *Filter) ([]searchtypes.Candidate, error) {
	qdrantFilter := buildFilter(filter)

	if len(sparse) > 0 {
		if candidates, err := s.nativeHybridSearch(ctx, dense, sparse, topK, qdrantFilter); err == nil {
			return candidates, nil
		}
	}

	// Fallback: dense-only query followed by a sparse rerank performed on
	// candidate payloads, matching the reference adapter's degraded path.
	denseResults, err := s.denseOnlySearch(ctx, dense, topK, qdrantFilter)
	if err != nil {
		return nil, searcherr.NewVectorStoreError(err)
	}
	if len(sparse) == 0 {
		return denseResults, nil
	}
	return rerankBySparse(denseResults, sparse), nil
}

func (s *Store) nativeHybridSearch(ctx context.Context, dense []float32, sparse map[string]float32, topK int, filter *qdrant.Filter) ([]searchtypes.Candidate, error) {
	indices, values := sparseVectorComponents(sparse)

	prefetch := []*qdrant.PrefetchQuery{
		{
			Query:          qdrant.NewQueryDense(dense),
			Using:          qdrant.PtrOf("dense"),
			Filter:         filter,
			Limit:          qdrant.PtrOf(uint64(topK * 3)),
		},
		{
			Query:  qdrant.NewQuerySparse(indices, values),
			Using:  qdrant.PtrOf("sparse"),
			Filter: filter,
			Limit:  qdrant.PtrOf(uint64(topK * 3)),
		},
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Prefetch:       prefetch,
		Query:          qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	return pointsToCandidates(points), nil
}

func (s *Store) denseOnlySearch(ctx context.Context, dense []float32, topK int, filter *qdrant.Filter) ([]searchtypes.Candidate, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQueryDense(dense),
		Using:          qdrant.PtrOf("dense"),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	return pointsToCandidates(points), nil
}

func sparseVectorComponents(sparse map[string]float32) ([]uint32, []float32) {
	indices := make([]uint32, 0, len(sparse))
	values := make([]float32, 0, len(sparse))
	for term, weight := range sparse {
		indices = append(indices, hashTerm(term))
		values = append(values, weight)
	}
	return indices, values
}

// hashTerm maps a sparse vocabulary term to a stable dimension index, since
// Qdrant sparse vectors are indexed by integer position rather than string
// keys. FNV-1a keeps this deterministic across dense/sparse encode calls and
// across processes without a shared vocabulary table.
func hashTerm(term string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(term); i++ {
		h ^= uint32(term[i])
		h *= 16777619
	}
	return h
}

func buildFilter(f *Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}
	var mustNot []*qdrant.Condition
	for _, id := range f.ExcludeUserIDs {
		mustNot = append(mustNot, qdrant.NewMatch("user_id", id))
	}
	var must []*qdrant.Condition
	for field, value := range f.Equals {
		must = append(must, qdrant.NewMatch(field, value))
	}
	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must, MustNot: mustNot}
}

func pointsToCandidates(points []*qdrant.ScoredPoint) []searchtypes.Candidate {
	out := make([]searchtypes.Candidate, 0, len(points))
	for _, p := range points {
		out = append(out, searchtypes.Candidate{
			UserID:  getString(p.Payload, "user_id"),
			Score:   float64(p.Score),
			Payload: payloadToMap(p.Payload),
		})
	}
	return out
}

// rerankBySparse re-scores dense-only results against the query sparse
// vector via cosine similarity on each candidate's stored sparse payload,
// then blends with the original dense score (alpha=0.3 default blend,
// matching the reference adapter's _hybrid_search_fallback).
func rerankBySparse(candidates []searchtypes.Candidate, querySparse map[string]float32) []searchtypes.Candidate {
	const alpha = 0.3
	for i := range candidates {
		stored := extractStoredSparse(candidates[i].Payload)
		sparseScore := cosineSimilaritySparse(querySparse, stored)
		denseScore := candidates[i].Score
		blended := alpha*denseScore + (1-alpha)*sparseScore
		candidates[i].DenseScore = ptrOf(denseScore)
		candidates[i].SparseScore = ptrOf(sparseScore)
		candidates[i].Score = blended
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	return candidates
}

func extractStoredSparse(payload map[string]interface{}) map[string]float32 {
	raw, ok := payload["sparse_vector"].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]float32, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = float32(f)
		}
	}
	return out
}

func cosineSimilaritySparse(a, b map[string]float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for k, v := range a {
		normA += float64(v) * float64(v)
		if w, ok := b[k]; ok {
			dot += float64(v) * float64(w)
		}
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func ptrOf(f float64) *float64 { return &f }

func getString(payload map[string]*qdrant.Value, key string) string {
	if payload == nil {
		return ""
	}
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = valueToInterface(v)
	}
	return out
}

func valueToInterface(v *qdrant.Value) interface{} {
	switch {
	case v == nil:
		return nil
	case v.GetStringValue() != "":
		return v.GetStringValue()
	case v.GetIntegerValue() != 0:
		return v.GetIntegerValue()
	case v.GetDoubleValue() != 0:
		return v.GetDoubleValue()
	case v.GetBoolValue():
		return true
	case v.GetListValue() != nil:
		items := v.GetListValue().GetValues()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = valueToInterface(item)
		}
		return out
	case v.GetStructValue() != nil:
		return payloadToMap(v.GetStructValue().GetFields())
	default:
		return nil
	}
}

// Upsert writes a single candidate record; used by the cmd/seed tool and by
// tests, not by the search-time read path.
func (s *Store) Upsert(ctx context.Context, userID string, dense []float32, sparse map[string]float32, payload map[string]interface{}) error {
	indices, values := sparseVectorComponents(sparse)
	payload["user_id"] = userID

	qdrantPayload := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		qdrantPayload[k] = interfaceToValue(v)
	}

	point := &qdrant.PointStruct{
		Id: qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID)).String()),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			"dense":  qdrant.NewVectorDense(dense),
			"sparse": qdrant.NewVectorSparse(indices, values),
		}),
		Payload: qdrantPayload,
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return searcherr.NewVectorStoreError(err)
	}
	return nil
}

func interfaceToValue(v interface{}) *qdrant.Value {
	switch t := v.(type) {
	case string:
		return qdrant.NewValueString(t)
	case int:
		return qdrant.NewValueInt(int64(t))
	case float64:
		return qdrant.NewValueDouble(t)
	case bool:
		return qdrant.NewValueBool(t)
	case []string:
		values := make([]*qdrant.Value, len(t))
		for i, s := range t {
			values[i] = qdrant.NewValueString(s)
		}
		return qdrant.NewValueList(values)
	default:
		return qdrant.NewValueString(fmt.Sprintf("%v", t))
	}
}
