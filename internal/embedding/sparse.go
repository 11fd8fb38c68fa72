package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// SparseEncoder produces a term→weight map. The primary path, when an
// endpoint is configured, calls a learned sparse model (reference: SPLADE
// v2/v3); the secondary path — used automatically when no endpoint is
// configured or the call fails — is an in-process TF-IDF-style scheme,
// ported from the reference agent's _build_tfidf_sparse_vector.
type SparseEncoder struct {
	apiURL string
	model  string
	client *http.Client
}

// NewSparseEncoder builds a SparseEncoder. apiURL may be empty, in which case
// EncodeSparse always uses the TF-IDF fallback. No probe call is made here;
// with an endpoint configured, every EncodeSparse call tries it first.
func NewSparseEncoder(apiURL, model string) *SparseEncoder {
	var client *http.Client
	if apiURL != "" {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SparseEncoder{apiURL: apiURL, model: model, client: client}
}

// EncodeSparse returns a sparse term→weight map for text. Never returns an
// error: on any SPLADE failure it silently falls back to TF-IDF, matching the
// reference implementation's graceful-degradation chain (spec §4.A).
func (e *SparseEncoder) EncodeSparse(ctx context.Context, text string) map[string]float32 {
	if e.apiURL != "" {
		if v, err := e.encodeSPLADE(ctx, text); err == nil && len(v) > 0 {
			return v
		}
	}
	return encodeTFIDF(text)
}

func (e *SparseEncoder) encodeSPLADE(ctx context.Context, text string) (map[string]float32, error) {
	reqBody := map[string]interface{}{"input": text, "model": e.model}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errStatus(resp.StatusCode)
	}

	var result struct {
		Data []struct {
			Sparse map[string]float32 `json:"sparse"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, errStatus(0)
	}
	return maxNormalize(result.Data[0].Sparse), nil
}

type statusError int

func (e statusError) Error() string { return "splade endpoint error" }
func errStatus(code int) error      { return statusError(code) }

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]+\b`)

// stopWords get down-weighted via a higher idf denominator, matching the
// reference agent's exact list.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

// importantKeywords get a fixed 2x boost, matching the reference agent's
// curated domain vocabulary exactly.
var importantKeywords = map[string]bool{
	"mobile": true, "app": true, "android": true, "ios": true, "swift": true,
	"kotlin": true, "react": true, "flutter": true, "development": true,
	"developer": true, "programming": true, "coding": true, "student": true,
	"university": true, "interested": true, "passionate": true, "experience": true,
	"project": true, "build": true, "create": true, "python": true,
	"javascript": true, "java": true, "frontend": true, "backend": true,
	"machine": true, "learning": true, "ai": true, "data": true, "science": true,
	"algorithm": true, "web": true, "design": true, "ui": true, "ux": true,
}

// encodeTFIDF is the non-embedding fallback: lowercase word tokens, stop-word
// down-weighting, a 2x boost for curated domain vocabulary, and per-vector
// max-normalisation so weights fall into [0,1]. Produces non-empty output for
// any input with >= 2 alphabetic words (spec §4.A, §8).
func encodeTFIDF(text string) map[string]float32 {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return map[string]float32{}
	}

	counts := map[string]int{}
	for _, w := range words {
		counts[w]++
	}
	total := float64(len(words))

	scores := map[string]float32{}
	for word, count := range counts {
		tf := float64(count) / total
		denom := 100.0
		if stopWords[word] {
			denom = 1000.0
		}
		idf := math.Log(10000.0 / denom)
		score := tf * idf
		if importantKeywords[word] {
			score *= 2.0
		}
		if score > 0.001 {
			scores[word] = float32(score)
		}
	}

	return maxNormalize(scores)
}

// maxNormalize scales every weight by the maximum weight present, so the
// output falls into [0,1]. An empty or all-zero input is returned unchanged.
func maxNormalize(scores map[string]float32) map[string]float32 {
	if len(scores) == 0 {
		return scores
	}
	var maxScore float32
	for _, v := range scores {
		if v > maxScore {
			maxScore = v
		}
	}
	if maxScore <= 0 {
		return scores
	}
	out := make(map[string]float32, len(scores))
	for k, v := range scores {
		out[k] = v / maxScore
	}
	return out
}
