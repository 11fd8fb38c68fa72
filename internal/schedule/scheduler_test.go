package schedule

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-llama/internal/casualstore"
	"go-llama/internal/evaluate"
	"go-llama/internal/intent"
	"go-llama/internal/llm"
	"go-llama/internal/preprocess"
	"go-llama/internal/retrieve"
	"go-llama/internal/searchtypes"
	"go-llama/internal/stats"

	"github.com/redis/go-redis/v9"
)

type fakeProfiles struct {
	profiles map[string]searchtypes.Profile
}

func (f *fakeProfiles) Fetch(_ context.Context, userID string) (searchtypes.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, errNotFound
}

func (f *fakeProfiles) FetchBatch(_ context.Context, userIDs []string) map[string]searchtypes.Profile {
	out := map[string]searchtypes.Profile{}
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "not found" }

type fakeStore struct{}

func (fakeStore) HybridSearch(_ context.Context, _ []float32, _ map[string]float32, _ int, _ retrieve.Filter) ([]searchtypes.Candidate, error) {
	return nil, nil
}

// newChatSchedulerForTest builds a fully-wired Scheduler whose only live
// collaborator is a single httptest LLM server that always classifies the
// turn as "chat" and always answers with a fixed reply, exercising
// IntelligentConversation's full classify-then-dispatch path end to end.
func newChatSchedulerForTest(t *testing.T) *Scheduler {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		content := "hello back"
		if strings.Contains(body, "response_format") || strings.Contains(body, "intent") {
			content = `{"intent": "chat", "confidence": 0.9, "reasoning": "greeting", "clarification_needed": false}`
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	manager := llm.NewManager(llm.DefaultConfig(), nil)
	t.Cleanup(manager.Stop)

	critical := llm.NewClient(manager, llm.PriorityCritical, 5*time.Second, srv.URL, "test-model")
	background := llm.NewClient(manager, llm.PriorityBackground, 5*time.Second, srv.URL, "test-model")

	statsCounter := stats.New()
	classifier := intent.New(critical)
	preprocessor := preprocess.New(background, statsCounter)
	dense := embeddingStub{}
	retriever := retrieve.New(dense, dense, fakeStore{}, &fakeProfiles{})
	evaluator := evaluate.New(critical)
	profiles := &fakeProfiles{profiles: map[string]searchtypes.Profile{}}
	casual := casualstore.New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))

	return New(classifier, preprocessor, retriever, evaluator, profiles, casual, background, statsCounter, 5*time.Second)
}

type embeddingStub struct{}

func (embeddingStub) EncodeDense(_ context.Context, _ string) ([]float32, error) { return nil, nil }
func (embeddingStub) EncodeSparse(_ context.Context, _ string) map[string]float32 {
	return nil
}

func TestIntelligentConversation_ChatTurnEndToEnd(t *testing.T) {
	s := newChatSchedulerForTest(t)
	envelope := s.IntelligentConversation(context.Background(), Request{
		Utterance: "hi there",
		UserID:    "u1",
	})

	if envelope.IntentAnalysis.Intent != searchtypes.IntentChat {
		t.Fatalf("expected chat intent, got %v", envelope.IntentAnalysis.Intent)
	}
	if envelope.Content != "hello back" {
		t.Errorf("expected chat content 'hello back', got %q", envelope.Content)
	}
	if envelope.Status != "ok" {
		t.Errorf("expected status ok, got %q", envelope.Status)
	}
}

func TestPoorAnalysis_LanguageSpecificIntro(t *testing.T) {
	en := poorAnalysis("en")
	zh := poorAnalysis("zh")
	if en.Intro == zh.Intro {
		t.Errorf("expected distinct zh/en guidance intros, got identical: %q", en.Intro)
	}
	if en.OverallQuality != searchtypes.QualityPoor || zh.OverallQuality != searchtypes.QualityPoor {
		t.Errorf("expected poor quality for both languages")
	}
}

func TestDegradedContent_LanguageSpecific(t *testing.T) {
	en := degradedContent("en")
	zh := degradedContent("zh")
	if en == zh {
		t.Errorf("expected distinct degraded content per language")
	}
}
