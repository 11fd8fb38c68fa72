package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"go-llama/internal/casualstore"
	"go-llama/internal/config"
	"go-llama/internal/embedding"
	"go-llama/internal/evaluate"
	"go-llama/internal/intent"
	"go-llama/internal/llm"
	"go-llama/internal/preprocess"
	"go-llama/internal/profileapi"
	redisdb "go-llama/internal/redis"
	"go-llama/internal/retrieve"
	"go-llama/internal/schedule"
	"go-llama/internal/searchtypes"
	"go-llama/internal/stats"
	"go-llama/internal/tools"
	"go-llama/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	statsCounter := stats.New()

	rdb := redisdb.NewClient(cfg)
	casualStore := casualstore.New(rdb)
	responseCache := llm.NewResponseCache(rdb, 10*time.Minute)

	breaker := tools.NewCircuitBreaker(5, cfg.CircuitBreakerTimeout)
	llmManager := llm.NewManager(llm.DefaultConfig(), breaker)
	defer llmManager.Stop()
	log.Printf("[Main] LLM queue manager initialized")

	criticalClient := llm.NewClient(llmManager, llm.PriorityCritical, cfg.CriticalTimeout, cfg.LLMBaseURL, cfg.LLMModel).
		WithCache(responseCache).OnCacheHit(statsCounter.IncCacheHit)
	backgroundClient := llm.NewClient(llmManager, llm.PriorityBackground, cfg.BackgroundTimeout, cfg.LLMBaseURL, cfg.LLMModel).
		WithCache(responseCache).OnCacheHit(statsCounter.IncCacheHit)

	denseEncoder := embedding.NewDenseEncoder(cfg.EmbeddingAPIURL, cfg.EmbeddingModelName)
	sparseEncoder := embedding.NewSparseEncoder(cfg.SparseAPIURL, cfg.SparseModelName)
	log.Printf("[Main] Embedding engine initialized (dense=%s, sparse fallback=TF-IDF)", cfg.EmbeddingModelName)

	store, err := vectorstore.New(cfg.VectorDBEndpoint, cfg.VectorDBCollection, cfg.VectorDBKey)
	if err != nil {
		log.Fatalf("[Main] Failed to initialize vector store: %v", err)
	}
	log.Printf("[Main] Vector store connected (collection=%s)", cfg.VectorDBCollection)

	profileClient := profileapi.New(cfg.ProfileAPIBaseURL)

	classifier := intent.New(criticalClient)
	preprocessor := preprocess.New(backgroundClient, statsCounter)
	retriever := retrieve.New(denseEncoder, sparseEncoder, storeAdapter{store}, profileClient)
	evaluator := evaluate.New(criticalClient)

	scheduler := schedule.New(
		classifier,
		preprocessor,
		retriever,
		evaluator,
		profileClient,
		casualStore,
		backgroundClient,
		statsCounter,
		cfg.TurnDeadline,
	)

	http.HandleFunc("/converse", converseHandler(scheduler))
	http.HandleFunc("/stats", statsHandler(statsCounter))

	addr := ":8080"
	log.Printf("[Main] Ques search orchestrator listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// storeAdapter narrows *vectorstore.Store to retrieve.VectorSearcher,
// translating the Retriever's storage-agnostic Filter into the vector
// store's own Filter type at the composition root.
type storeAdapter struct {
	store *vectorstore.Store
}

func (a storeAdapter) HybridSearch(ctx context.Context, dense []float32, sparse map[string]float32, topK int, filter retrieve.Filter) ([]searchtypes.Candidate, error) {
	return a.store.HybridSearch(ctx, dense, sparse, topK, &vectorstore.Filter{
		ExcludeUserIDs: filter.ExcludeUserIDs,
		Equals:         filter.Equals,
	})
}

type converseRequest struct {
	Utterance     string   `json:"utterance"`
	UserID        string   `json:"user_id"`
	ReferencedIDs []string `json:"referenced_ids"`
	ViewedIDs     []string `json:"viewed_ids"`
	SwipedIDs     []string `json:"swiped_ids"`
}

func converseHandler(scheduler *schedule.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req converseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		envelope := scheduler.IntelligentConversation(r.Context(), schedule.Request{
			Utterance:     req.Utterance,
			UserID:        req.UserID,
			ReferencedIDs: req.ReferencedIDs,
			ViewedIDs:     req.ViewedIDs,
			SwipedIDs:     req.SwipedIDs,
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(envelope)
	}
}

func statsHandler(counter *stats.Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counter.Snapshot())
	}
}
