package intent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-llama/internal/llm"
	"go-llama/internal/searchtypes"
)

func newFakeLLMServer(t *testing.T, content string) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	manager := llm.NewManager(llm.DefaultConfig(), nil)
	t.Cleanup(manager.Stop)
	return llm.NewClient(manager, llm.PriorityCritical, 5*time.Second, srv.URL, "test-model")
}

func TestClassify_ParsesLiveLLMResponse(t *testing.T) {
	client := newFakeLLMServer(t, `{"intent": "search", "confidence": 0.9, "reasoning": "explicit search verb", "clarification_needed": false}`)
	c := New(client)

	result := c.Classify(context.Background(), "find me a backend engineer", nil, nil)
	if result.Intent != searchtypes.IntentSearch {
		t.Errorf("expected search intent, got %v", result.Intent)
	}
	if result.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", result.Confidence)
	}
}

func TestClassify_EmptyUtterance(t *testing.T) {
	c := New(nil)
	result := c.Classify(context.Background(), "", nil, nil)
	if result.Intent != searchtypes.IntentChat || !result.ClarificationNeeded {
		t.Errorf("expected chat+clarification for empty utterance, got %+v", result)
	}
}

func TestCoerce_UnknownIntentCollapsesToChat(t *testing.T) {
	result := coerce(rawResult{Intent: "unknown_thing", Confidence: 0.5})
	if result.Intent != searchtypes.IntentChat {
		t.Errorf("expected unknown intent to collapse to chat, got %v", result.Intent)
	}
}

func TestCoerce_ConfidenceClamped(t *testing.T) {
	if r := coerce(rawResult{Intent: "search", Confidence: 1.5}); r.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", r.Confidence)
	}
	if r := coerce(rawResult{Intent: "search", Confidence: -0.2}); r.Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %v", r.Confidence)
	}
}

func TestCoerce_ValidIntentPreserved(t *testing.T) {
	r := coerce(rawResult{Intent: "casual", Confidence: 0.8})
	if r.Intent != searchtypes.IntentCasual {
		t.Errorf("expected casual to pass through unchanged, got %v", r.Intent)
	}
}
