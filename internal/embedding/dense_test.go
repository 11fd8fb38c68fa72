package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newDenseServer(t *testing.T, raw []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": raw}},
		})
	}))
}

func TestEncodeDense_L2Normalised(t *testing.T) {
	srv := newDenseServer(t, []float32{3, 4, 0})
	defer srv.Close()

	enc := NewDenseEncoder(srv.URL, "bge-m3")
	v, err := enc.EncodeDense(context.Background(), "a student interested in mobile development")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-3 {
		t.Errorf("expected L2 norm within 1 +/- 1e-3, got %v", norm)
	}
}

func TestEncodeDense_UnavailableOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	enc := NewDenseEncoder(srv.URL, "bge-m3")
	_, err := enc.EncodeDense(context.Background(), "text")
	if err == nil {
		t.Fatalf("expected EmbeddingUnavailable error")
	}
}
