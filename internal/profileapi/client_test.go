package profileapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-llama/internal/searcherr"
)

func TestFetch_NotFoundReturnsProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Fetch(context.Background(), "999")
	if !errors.Is(err, searcherr.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"user_id": "42", "name": "Ada"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	profile, err := c.Fetch(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile["name"] != "Ada" {
		t.Errorf("expected name Ada, got %v", profile["name"])
	}
}

func TestFetchBatch_SkipsFailuresKeepsSuccesses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"user_id": r.URL.Path})
	}))
	defer srv.Close()

	c := New(srv.URL)
	results := c.FetchBatch(context.Background(), []string{"1", "2", "404"})

	if len(results) != 2 {
		t.Fatalf("expected 2 successful fetches, got %d: %v", len(results), results)
	}
	if _, ok := results["404"]; ok {
		t.Errorf("expected 404 user to be absent from batch results")
	}
}
