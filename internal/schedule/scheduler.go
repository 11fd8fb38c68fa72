// Package schedule implements the Routing Scheduler (spec §4.H): the
// top-level intelligent_conversation operation that detects language,
// hydrates user context, classifies intent, and dispatches to the search
// pipeline or one of the lighter inquiry/chat/casual processors. Grounded on
// the reference agent's top-level intelligent_search orchestration method
// and on the source repository's context.WithTimeout turn-cancellation idiom.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-llama/internal/casualstore"
	"go-llama/internal/evaluate"
	"go-llama/internal/intent"
	"go-llama/internal/llm"
	"go-llama/internal/preprocess"
	"go-llama/internal/retrieve"
	"go-llama/internal/searchtypes"
	"go-llama/internal/stats"
)

// ProfileFetcher is the subset of the Profile API client the Scheduler needs
// for single-user hydration (current user, referenced users).
type ProfileFetcher interface {
	Fetch(ctx context.Context, userID string) (searchtypes.Profile, error)
}

// Scheduler wires every Core component into the single-turn pipeline.
type Scheduler struct {
	classifier   *intent.Classifier
	preprocessor *preprocess.Preprocessor
	retriever    *retrieve.Retriever
	evaluator    *evaluate.Evaluator
	profiles     ProfileFetcher
	casual       *casualstore.Store
	chatClient   *llm.Client
	stats        *stats.Counter
	turnDeadline time.Duration
}

// New builds a Scheduler from its collaborators. chatClient backs the
// inquiry/chat/casual-optimisation completions that don't need a dedicated
// component.
func New(
	classifier *intent.Classifier,
	preprocessor *preprocess.Preprocessor,
	retriever *retrieve.Retriever,
	evaluator *evaluate.Evaluator,
	profiles ProfileFetcher,
	casual *casualstore.Store,
	chatClient *llm.Client,
	statsCounter *stats.Counter,
	turnDeadline time.Duration,
) *Scheduler {
	return &Scheduler{
		classifier:   classifier,
		preprocessor: preprocessor,
		retriever:    retriever,
		evaluator:    evaluator,
		profiles:     profiles,
		casual:       casual,
		chatClient:   chatClient,
		stats:        statsCounter,
		turnDeadline: turnDeadline,
	}
}

// Request is the Scheduler's single-operation input (spec §4.H).
type Request struct {
	Utterance     string
	UserID        string
	ReferencedIDs []string
	ViewedIDs     []string
	SwipedIDs     []string
}

// IntelligentConversation is the top-level operation: detect language,
// hydrate context, classify intent, dispatch, and always return a
// well-formed envelope (spec §4.H, §7 "the Scheduler... never throws").
func (s *Scheduler) IntelligentConversation(ctx context.Context, req Request) searchtypes.ResponseEnvelope {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.turnDeadline)
	defer cancel()

	language, _ := DetectLanguage(req.Utterance)

	var currentUser searchtypes.Profile
	if req.UserID != "" {
		if profile, err := s.profiles.Fetch(ctx, req.UserID); err == nil {
			currentUser = profile
		}
	}

	var referencedUsers []searchtypes.Profile
	for _, id := range req.ReferencedIDs {
		if profile, err := s.profiles.Fetch(ctx, id); err == nil {
			referencedUsers = append(referencedUsers, profile)
		}
	}

	var firstReferenced searchtypes.Profile
	if len(referencedUsers) > 0 {
		firstReferenced = referencedUsers[0]
	}

	intentResult := s.classifier.Classify(ctx, req.Utterance, firstReferenced, currentUser)
	s.stats.IncLLMCall()

	if ctx.Err() != nil {
		return s.deadlineExceededEnvelope(req, intentResult, language, start)
	}

	envelope := s.dispatch(ctx, req, intentResult, language, currentUser, referencedUsers, firstReferenced)
	envelope.IntentAnalysis = intentResult
	envelope.Language = language
	envelope.Query = req.Utterance
	envelope.ProcessingTime = time.Since(start).Seconds()
	envelope.Timestamp = time.Now()
	envelope.Stats = s.stats.Snapshot()
	return envelope
}

func (s *Scheduler) dispatch(ctx context.Context, req Request, intentResult searchtypes.IntentResult, language string, currentUser searchtypes.Profile, referencedUsers []searchtypes.Profile, firstReferenced searchtypes.Profile) searchtypes.ResponseEnvelope {
	switch intentResult.Intent {
	case searchtypes.IntentSearch:
		return s.intelligentSearch(ctx, req, language, currentUser, referencedUsers)
	case searchtypes.IntentInquiry:
		if firstReferenced == nil {
			return s.chatResponse(ctx, req.Utterance, language, true)
		}
		return s.processInquiry(ctx, req.Utterance, language, firstReferenced)
	case searchtypes.IntentChat:
		return s.chatResponse(ctx, req.Utterance, language, intentResult.ClarificationNeeded)
	case searchtypes.IntentCasual:
		return s.processCasualRequest(ctx, req, language)
	default:
		return s.chatResponse(ctx, req.Utterance, language, true)
	}
}

func (s *Scheduler) deadlineExceededEnvelope(req Request, intentResult searchtypes.IntentResult, language string, start time.Time) searchtypes.ResponseEnvelope {
	return searchtypes.ResponseEnvelope{
		Type:           "error_response",
		Status:         "deadline_exceeded",
		Query:          req.Utterance,
		IntentAnalysis: intentResult,
		Language:       language,
		ProcessingTime: time.Since(start).Seconds(),
		Timestamp:      time.Now(),
		Stats:          s.stats.Snapshot(),
	}
}

func (s *Scheduler) processInquiry(ctx context.Context, utterance, language string, referenced searchtypes.Profile) searchtypes.ResponseEnvelope {
	system := "Answer the user's question about the referenced person using only the profile JSON provided. Respond in the same language as the question."
	prompt := fmt.Sprintf("Question: %s\n\nReferenced profile: %v", utterance, referenced)

	content, err := s.chatClient.Chat(ctx, system, prompt, llm.Options{Temperature: 0.4, MaxTokens: 400})
	s.stats.IncLLMCall()
	if err != nil {
		content = degradedContent(language)
	}

	return searchtypes.ResponseEnvelope{
		Type:           "inquiry_response",
		Content:        content,
		ReferencedUser: referenced,
		Status:         "ok",
	}
}

func (s *Scheduler) chatResponse(ctx context.Context, utterance, language string, clarification bool) searchtypes.ResponseEnvelope {
	system := "You are a friendly assistant for a people-search platform. Respond conversationally in the same language as the user."
	content, err := s.chatClient.Chat(ctx, system, utterance, llm.Options{Temperature: 0.5, MaxTokens: 300})
	s.stats.IncLLMCall()
	if err != nil {
		content = degradedContent(language)
	}

	return searchtypes.ResponseEnvelope{
		Type:          "chat_response",
		Content:       content,
		Status:        "ok",
		Clarification: clarification,
	}
}

func (s *Scheduler) processCasualRequest(ctx context.Context, req Request, language string) searchtypes.ResponseEnvelope {
	system := "Extract and rephrase the user's casual social-activity request into a concise optimised query (e.g. activity type, timeframe). Respond in the same language as the input."
	optimised, err := s.chatClient.Chat(ctx, system, req.Utterance, llm.Options{Temperature: 0.2, MaxTokens: 100})
	s.stats.IncLLMCall()
	if err != nil || strings.TrimSpace(optimised) == "" {
		optimised = req.Utterance
	}

	record := searchtypes.CasualRequest{
		UserID:         req.UserID,
		OriginalQuery:  req.Utterance,
		OptimisedQuery: optimised,
		Preferences:    map[string]interface{}{},
	}

	result, err := s.casual.Upsert(ctx, record)
	s.stats.IncCasual()
	if err != nil {
		result = &searchtypes.CasualStoreResult{Success: false, Record: record}
	}

	return searchtypes.ResponseEnvelope{
		Type:          "casual_request",
		Status:        "ok",
		StorageResult: result,
	}
}

func degradedContent(language string) string {
	if language == "zh" {
		return "抱歉，我暂时无法生成回复，请稍后再试。"
	}
	return "Sorry, I'm unable to generate a response right now. Please try again shortly."
}
