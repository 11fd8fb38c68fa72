// Package preprocess implements the Query Preprocessor (spec §4.E): two
// concurrent LLM calls producing a dense-search paragraph and a sparse-search
// keyword string, each independently falling back to the original utterance.
// Grounded on the source repository's goroutine+channel fan-out idiom (see
// internal/llm manager dispatcher) generalised from a single join to the
// preprocessor's 2-way join.
package preprocess

import (
	"context"
	"fmt"
	"strings"

	"go-llama/internal/llm"
	"go-llama/internal/searchtypes"
	"go-llama/internal/stats"
)

const denseSystemPrompt = `Create a clear, descriptive profile paragraph from the user's query, suitable for semantic similarity matching against other people's profiles. Match the language of the query (respond in the same language as the input). Output only the paragraph, no preamble.`

const sparseSystemPrompt = `Extract precise keyword tokens from the user's query: skills, roles, tools, technologies, companies, locations. Output a single line of space-separated tokens, no punctuation, no preamble.`

// Result is the Preprocessor's joined output (spec §3 EmbeddedQuery source).
type Result struct {
	DenseQuery  string
	SparseQuery string
}

// Preprocessor runs the dense/sparse reformulation calls.
type Preprocessor struct {
	client *llm.Client
	stats  *stats.Counter
}

// New builds a Preprocessor over a background-priority LLM client (spec §4.E
// calls are not on the turn's critical classify/evaluate path but still run
// inside the turn deadline). stats is mutated once per LLM call made here
// (spec §5 llm_calls "mutated on every LLM call").
func New(client *llm.Client, statsCounter *stats.Counter) *Preprocessor {
	return &Preprocessor{client: client, stats: statsCounter}
}

// Process runs optimise_dense_query and extract_sparse_tags concurrently and
// blocks until both complete (spec §4.E, §5 "Preprocessor fan-out"). A
// failure of one call does not cancel or affect the other.
func (p *Preprocessor) Process(ctx context.Context, utterance string, referencedUsers []searchtypes.Profile) Result {
	denseCh := make(chan string, 1)
	sparseCh := make(chan string, 1)

	go func() {
		denseCh <- p.optimiseDenseQuery(ctx, utterance, referencedUsers)
	}()
	go func() {
		sparseCh <- p.extractSparseTags(ctx, utterance)
	}()

	return Result{
		DenseQuery:  <-denseCh,
		SparseQuery: <-sparseCh,
	}
}

func (p *Preprocessor) optimiseDenseQuery(ctx context.Context, utterance string, referencedUsers []searchtypes.Profile) string {
	userPrompt := utterance
	if len(referencedUsers) > 0 {
		userPrompt = fmt.Sprintf("%s\n\n(context: %d referenced user(s) already shown)", utterance, len(referencedUsers))
	}

	text, err := p.client.Chat(ctx, denseSystemPrompt, userPrompt, llm.Options{
		Temperature: 0.3,
		MaxTokens:   150,
	})
	p.stats.IncLLMCall()
	if err != nil || strings.TrimSpace(text) == "" {
		return utterance
	}
	return strings.TrimSpace(text)
}

func (p *Preprocessor) extractSparseTags(ctx context.Context, utterance string) string {
	text, err := p.client.Chat(ctx, sparseSystemPrompt, utterance, llm.Options{
		Temperature: 0.1,
		MaxTokens:   150,
	})
	p.stats.IncLLMCall()
	if err != nil || strings.TrimSpace(text) == "" {
		return utterance
	}
	return strings.TrimSpace(text)
}
