package vectorstore

import (
	"testing"

	"go-llama/internal/searchtypes"
)

func TestRerankBySparse_BlendsDenseAndSparse(t *testing.T) {
	candidates := []searchtypes.Candidate{
		{
			UserID: "u1",
			Score:  0.9,
			Payload: map[string]interface{}{
				"sparse_vector": map[string]interface{}{"mobile": 1.0, "developer": 0.5},
			},
		},
		{
			UserID: "u2",
			Score:  0.5,
			Payload: map[string]interface{}{
				"sparse_vector": map[string]interface{}{"gardening": 1.0},
			},
		},
	}
	query := map[string]float32{"mobile": 1.0, "developer": 0.8}

	out := rerankBySparse(candidates, query)

	if out[0].UserID != "u1" {
		t.Errorf("expected u1 to rank first after sparse rerank, got %s", out[0].UserID)
	}
	if out[0].DenseScore == nil || out[0].SparseScore == nil {
		t.Fatalf("expected dense and sparse scores to be recorded")
	}
	if *out[0].SparseScore <= 0 {
		t.Errorf("expected positive sparse similarity for overlapping terms, got %v", *out[0].SparseScore)
	}
	if *out[1].SparseScore != 0 {
		t.Errorf("expected zero sparse similarity for disjoint terms, got %v", *out[1].SparseScore)
	}
}

func TestCosineSimilaritySparse_EmptyInputs(t *testing.T) {
	if s := cosineSimilaritySparse(nil, map[string]float32{"a": 1}); s != 0 {
		t.Errorf("expected 0 for nil query vector, got %v", s)
	}
	if s := cosineSimilaritySparse(map[string]float32{"a": 1}, nil); s != 0 {
		t.Errorf("expected 0 for nil stored vector, got %v", s)
	}
}

func TestCosineSimilaritySparse_IdenticalVectors(t *testing.T) {
	v := map[string]float32{"mobile": 1.0, "developer": 0.5}
	s := cosineSimilaritySparse(v, v)
	if s < 0.999 || s > 1.001 {
		t.Errorf("expected cosine similarity ~1 for identical vectors, got %v", s)
	}
}

func TestHashTerm_Deterministic(t *testing.T) {
	a := hashTerm("mobile")
	b := hashTerm("mobile")
	if a != b {
		t.Errorf("expected hashTerm to be deterministic, got %d vs %d", a, b)
	}
	if hashTerm("mobile") == hashTerm("developer") {
		t.Errorf("expected distinct terms to hash differently (collision is possible but unlikely for this pair)")
	}
}

func TestBuildFilter_NilForEmpty(t *testing.T) {
	if f := buildFilter(nil); f != nil {
		t.Errorf("expected nil filter for nil input, got %v", f)
	}
	if f := buildFilter(&Filter{}); f != nil {
		t.Errorf("expected nil filter for empty Filter, got %v", f)
	}
}

func TestExtractStoredSparse_SkipsNonNumericValues(t *testing.T) {
	// rerankBySparse reads stored sparse vectors through extractStoredSparse,
	// which must tolerate a non-float64 payload value without panicking.
	payload := map[string]interface{}{"sparse_vector": map[string]interface{}{"x": "not-a-number"}}
	v := extractStoredSparse(payload)
	if len(v) != 0 {
		t.Errorf("expected non-numeric sparse payload values to be skipped, got %v", v)
	}
}
