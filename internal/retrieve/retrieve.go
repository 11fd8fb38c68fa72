// Package retrieve implements the Hybrid Retriever (spec §4.F): three
// escalating search strategies, each with its own score-fusion method, a
// swiped-user post-filter, and optional detail enrichment via the Profile
// API. Grounded on the reference agent's intelligent_search retry loop and
// on tencent_vectordb_adapter.py's weighted/RRF rerank choices, re-expressed
// as explicit Go fusion functions over the candidates the Vector Store
// Client already returns.
package retrieve

import (
	"context"
	"math"
	"sort"

	"go-llama/internal/searchtypes"
)

// Strategy names the three escalation tiers (spec §4.F).
type Strategy string

const (
	StrategyStandard Strategy = "standard"
	StrategyExpanded Strategy = "expanded"
	StrategyCustom   Strategy = "custom"
)

// Strategies is the fixed escalation order (spec §8 "Strategy ordering").
var Strategies = []Strategy{StrategyStandard, StrategyExpanded, StrategyCustom}

func (s Strategy) prefetchK() int {
	switch s {
	case StrategyStandard:
		return 50
	case StrategyExpanded:
		return 150
	case StrategyCustom:
		return 120
	default:
		return 50
	}
}

// DenseEncoder is the subset of the Embedding Engine the Retriever needs.
type DenseEncoder interface {
	EncodeDense(ctx context.Context, text string) ([]float32, error)
}

// SparseEncoder is the subset of the Embedding Engine the Retriever needs.
type SparseEncoder interface {
	EncodeSparse(ctx context.Context, text string) map[string]float32
}

// Filter mirrors vectorstore.Filter without importing it, keeping this
// package's public surface independent of the storage backend.
type Filter struct {
	ExcludeUserIDs []string
	Equals         map[string]string
}

// VectorSearcher is the subset of the Vector Store Client the Retriever needs.
type VectorSearcher interface {
	HybridSearch(ctx context.Context, dense []float32, sparse map[string]float32, topK int, filter Filter) ([]searchtypes.Candidate, error)
}

// ProfileFetcher batch-fetches profiles for detail enrichment.
type ProfileFetcher interface {
	FetchBatch(ctx context.Context, userIDs []string) map[string]searchtypes.Profile
}

// Retriever runs one hybrid_search call per invocation (spec §4.F).
type Retriever struct {
	dense   DenseEncoder
	sparse  SparseEncoder
	store   VectorSearcher
	profile ProfileFetcher
}

// New builds a Retriever from its three collaborators.
func New(dense DenseEncoder, sparse SparseEncoder, store VectorSearcher, profile ProfileFetcher) *Retriever {
	return &Retriever{dense: dense, sparse: sparse, store: store, profile: profile}
}

// HybridSearch runs a single strategy attempt: encode, fetch, post-filter,
// fuse, truncate to limit, and (optionally) enrich. Returns fewer than limit
// candidates when the pool is insufficient — the Scheduler is responsible
// for escalating to the next strategy in that case.
func (r *Retriever) HybridSearch(ctx context.Context, denseQuery, sparseQuery string, strategy Strategy, limit int, viewedIDs, swipedIDs []string, fetchDetails bool) ([]searchtypes.Candidate, error) {
	denseVec, err := r.dense.EncodeDense(ctx, denseQuery)
	if err != nil {
		return nil, err
	}
	var sparseVec map[string]float32
	if r.sparse != nil {
		sparseVec = r.sparse.EncodeSparse(ctx, sparseQuery)
	}

	k := strategy.prefetchK()
	if want := 5 * limit; want > k {
		k = want
	}

	candidates, err := r.store.HybridSearch(ctx, denseVec, sparseVec, k, Filter{ExcludeUserIDs: viewedIDs})
	if err != nil {
		return nil, err
	}

	candidates = dropSwiped(candidates, swipedIDs)
	candidates = fuse(candidates, strategy)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if fetchDetails && r.profile != nil && len(candidates) > 0 {
		candidates = r.enrich(ctx, candidates)
	}

	return candidates, nil
}

func dropSwiped(candidates []searchtypes.Candidate, swipedIDs []string) []searchtypes.Candidate {
	if len(swipedIDs) == 0 {
		return candidates
	}
	swiped := make(map[string]bool, len(swipedIDs))
	for _, id := range swipedIDs {
		swiped[id] = true
	}
	out := candidates[:0]
	for _, c := range candidates {
		if !swiped[c.UserID] {
			out = append(out, c)
		}
	}
	return out
}

// fuse applies the strategy's score-fusion method over dense/sparse scores
// already attached to each candidate (set by the Vector Store Client's
// fallback rerank path; absent when native hybrid fusion already ran, in
// which case the order follows the store's combined Score: DBSF keeps that
// Score as-is, RRF replaces it with rank-based values in the same order).
func fuse(candidates []searchtypes.Candidate, strategy Strategy) []searchtypes.Candidate {
	switch strategy {
	case StrategyExpanded:
		return fuseRRF(candidates)
	default:
		return fuseDBSF(candidates, 0.2)
	}
}

// fuseDBSF implements the z-score-then-blend formula from spec §4.F
// ("Score normalisation for custom fusion"), used for both standard and
// custom strategies since DBSF is defined as z-score normalisation by
// construction (see GLOSSARY).
func fuseDBSF(candidates []searchtypes.Candidate, alpha float64) []searchtypes.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	haveBoth := true
	dense := make([]float64, len(candidates))
	sparse := make([]float64, len(candidates))
	for i, c := range candidates {
		if c.DenseScore == nil || c.SparseScore == nil {
			haveBoth = false
			break
		}
		dense[i] = *c.DenseScore
		sparse[i] = *c.SparseScore
	}
	if !haveBoth {
		return sortByScoreDesc(candidates)
	}

	zDense := zScore(dense)
	zSparse := zScore(sparse)
	for i := range candidates {
		fused := alpha*zDense[i] + (1-alpha)*zSparse[i]
		candidates[i].FusedScore = ptrOf(fused)
		candidates[i].Score = fused
	}
	return sortByScoreDesc(candidates)
}

func zScore(values []float64) []float64 {
	n := float64(len(values))
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / n)
	if std < 1e-6 {
		std = 1e-6
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// fuseRRF implements Reciprocal Rank Fusion (k=60) over the dense and sparse
// rank orderings (spec §4.F "expanded" strategy, GLOSSARY "RRF").
func fuseRRF(candidates []searchtypes.Candidate) []searchtypes.Candidate {
	const k = 60.0
	if len(candidates) == 0 {
		return candidates
	}

	denseRank := rankBy(candidates, func(c searchtypes.Candidate) float64 {
		if c.DenseScore != nil {
			return *c.DenseScore
		}
		return c.Score
	})
	sparseRank := rankBy(candidates, func(c searchtypes.Candidate) float64 {
		if c.SparseScore != nil {
			return *c.SparseScore
		}
		return c.Score
	})

	for i, c := range candidates {
		fused := 1.0/(k+float64(denseRank[c.UserID])) + 1.0/(k+float64(sparseRank[c.UserID]))
		candidates[i].FusedScore = ptrOf(fused)
		candidates[i].Score = fused
	}
	return sortByScoreDesc(candidates)
}

func rankBy(candidates []searchtypes.Candidate, key func(searchtypes.Candidate) float64) map[string]int {
	ordered := make([]searchtypes.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return key(ordered[i]) > key(ordered[j]) })

	ranks := make(map[string]int, len(ordered))
	for i, c := range ordered {
		ranks[c.UserID] = i + 1
	}
	return ranks
}

// sortByScoreDesc sorts by descending score, breaking ties by user_id
// ascending for determinism (spec §4.F).
func sortByScoreDesc(candidates []searchtypes.Candidate) []searchtypes.Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	return candidates
}

func ptrOf(f float64) *float64 { return &f }

// enrich looks up each candidate's user_id through the Profile API (one
// bounded-concurrency batch) and merges the returned profile over the
// vector payload: database fields win, vector-only fields are preserved
// (spec §4.F "Detail enrichment").
func (r *Retriever) enrich(ctx context.Context, candidates []searchtypes.Candidate) []searchtypes.Candidate {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.UserID
	}

	profiles := r.profile.FetchBatch(ctx, ids)

	for i, c := range candidates {
		profile, ok := profiles[c.UserID]
		if !ok {
			merged := map[string]interface{}{"error": "User does not exist"}
			for k, v := range c.Payload {
				merged[k] = v
			}
			candidates[i].Payload = merged
			continue
		}
		merged := map[string]interface{}{}
		for k, v := range c.Payload {
			merged[k] = v
		}
		for k, v := range profile {
			merged[k] = v
		}
		candidates[i].Payload = merged
	}
	return candidates
}
