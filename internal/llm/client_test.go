package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-llama/internal/searcherr"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	m := NewManager(cfg, nil)
	t.Cleanup(m.Stop)
	return m
}

func TestChat_SuccessfulCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "hello there"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(testManager(t), PriorityCritical, 5*time.Second, srv.URL, "test-model")
	text, err := client.Chat(context.Background(), "system", "hi", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello there" {
		t.Errorf("expected 'hello there', got %q", text)
	}
}

func TestChat_RetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "recovered"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(testManager(t), PriorityCritical, 5*time.Second, srv.URL, "test-model")
	text, err := client.Chat(context.Background(), "", "hi", Options{})
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if text != "recovered" {
		t.Errorf("expected 'recovered', got %q", text)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestChat_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testManager(t), PriorityCritical, 5*time.Second, srv.URL, "test-model")
	_, err := client.Chat(context.Background(), "", "hi", Options{})
	if err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
}

func TestParseStructuredResponse_StripsFencedJSON(t *testing.T) {
	var target struct {
		Intent string `json:"intent"`
	}
	raw := "Here is the result:\n```json\n{\"intent\": \"search\"}\n```\nLet me know if you need anything else."
	if err := parseStructuredResponse(raw, &target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Intent != "search" {
		t.Errorf("expected intent=search, got %q", target.Intent)
	}
}

func TestParseStructuredResponse_PlainJSONWithoutFence(t *testing.T) {
	var target struct {
		Intent string `json:"intent"`
	}
	if err := parseStructuredResponse(`{"intent": "chat"}`, &target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Intent != "chat" {
		t.Errorf("expected intent=chat, got %q", target.Intent)
	}
}

func TestParseStructuredResponse_UnparseableReturnsLLMParseError(t *testing.T) {
	var target map[string]interface{}
	err := parseStructuredResponse("not json at all", &target)
	if err == nil {
		t.Fatalf("expected an error for unparseable input")
	}
	if !errorIsLLMParseError(err) {
		t.Errorf("expected LLMParseError, got %v", err)
	}
}

func errorIsLLMParseError(err error) bool {
	return err != nil && err.Error() != "" && isWrappedParseError(err)
}

func isWrappedParseError(err error) bool {
	for err != nil {
		if err == searcherr.ErrLLMParseError {
			return true
		}
		u, ok := err.(interface{ Unwrap() []error })
		if !ok {
			return false
		}
		for _, inner := range u.Unwrap() {
			if isWrappedParseError(inner) {
				return true
			}
		}
		return false
	}
	return false
}
