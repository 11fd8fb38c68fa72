package preprocess

import (
	"context"
	"testing"

	"go-llama/internal/llm"
	"go-llama/internal/stats"
)

func TestProcess_FallsBackToUtteranceOnNilClient(t *testing.T) {
	// A Preprocessor built with a nil-endpoint client exercises the failure
	// path of both concurrent calls without needing a live LLM server.
	manager := llm.NewManager(llm.DefaultConfig(), nil)
	defer manager.Stop()
	client := llm.NewClient(manager, llm.PriorityBackground, 0, "http://127.0.0.1:1/does-not-exist", "test-model")

	statsCounter := stats.New()
	p := New(client, statsCounter)
	result := p.Process(context.Background(), "find me a mobile developer", nil)

	if result.DenseQuery != "find me a mobile developer" {
		t.Errorf("expected dense fallback to original utterance, got %q", result.DenseQuery)
	}
	if result.SparseQuery != "find me a mobile developer" {
		t.Errorf("expected sparse fallback to original utterance, got %q", result.SparseQuery)
	}

	if got := statsCounter.Snapshot().LLMCalls; got != 2 {
		t.Errorf("expected 2 LLM calls recorded (dense + sparse), got %d", got)
	}
}
