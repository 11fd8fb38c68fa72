// Package embedding implements the Embedding Engine (spec §4.A): a dense encoder
// over an HTTP embedding service (reference model: BGE-M3, 1024-dim, L2-normalised)
// and a sparse encoder that prefers a learned sparse model (SPLADE) when configured,
// falling back to an in-process TF-IDF scheme. Both operations are pure functions
// of their input text, grounded on the source repository's internal/memory/embedder.go
// HTTP-client shape.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go-llama/internal/searcherr"
)

const DenseDimension = 1024

// DenseEncoder encodes text into an L2-normalised 1024-dim dense vector via an
// HTTP embedding-service backend, loaded once and reused (spec §4.A).
type DenseEncoder struct {
	apiURL string
	model  string
	client *http.Client
}

// NewDenseEncoder builds a DenseEncoder against a running embedding service.
func NewDenseEncoder(apiURL, model string) *DenseEncoder {
	return &DenseEncoder{
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// EncodeDense returns an L2-normalised dense embedding. Fails with
// EmbeddingUnavailable when the backing model cannot be reached or returns
// a malformed response — callers must treat this as fatal for the search path.
func (e *DenseEncoder) EncodeDense(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"input": text,
		"model": e.model,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, searcherr.NewEmbeddingUnavailable(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, searcherr.NewEmbeddingUnavailable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, searcherr.NewEmbeddingUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, searcherr.NewEmbeddingUnavailable(fmt.Errorf("embedding api status %d: %s", resp.StatusCode, string(body)))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, searcherr.NewEmbeddingUnavailable(err)
	}
	if len(result.Data) == 0 {
		return nil, searcherr.NewEmbeddingUnavailable(fmt.Errorf("no embeddings returned"))
	}

	return normalize(result.Data[0].Embedding), nil
}

// normalize L2-normalises v in place semantics (returns a new slice); a
// near-zero vector is returned unchanged to avoid dividing by ~0.
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm < 1e-9 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
