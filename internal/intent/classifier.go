// Package intent implements the Intent Classifier (spec §4.D): a single
// json_chat call that tags an utterance as search/inquiry/chat/casual,
// grounded on the reference agent's analyze_user_intent prompt and on the
// source repository's llm.Client json_chat usage pattern.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-llama/internal/llm"
	"go-llama/internal/searchtypes"
)

const systemPrompt = `You are an intent classifier for a people-search platform. Classify the user's utterance into exactly one of:
- "search": the user wants to find people matching some criteria (skills, role, location, goals). Explicit search verbs ("find", "looking for", "寻找") are strong signals.
- "inquiry": the user is asking about a specific, already-referenced person (pronouns like "他"/"this person" combined with a referenced user strongly imply this).
- "chat": small talk, greetings, platform questions, or anything not covered above.
- "casual": the user is proposing or asking about a shared social activity (hike, coffee, "看电影", movies, meetups).

Respond with a JSON object: {"intent": "...", "confidence": 0.0-1.0, "reasoning": "...", "clarification_needed": bool, "uncertainty_reason": "..."}.`

// Classifier tags utterances using the provided LLM client.
type Classifier struct {
	client *llm.Client
}

// New builds a Classifier over an already-configured critical-priority LLM client.
func New(client *llm.Client) *Classifier {
	return &Classifier{client: client}
}

type rawResult struct {
	Intent              string  `json:"intent"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	ClarificationNeeded bool    `json:"clarification_needed"`
	UncertaintyReason   string  `json:"uncertainty_reason"`
}

// Classify returns the utterance's intent result. It never errors: on any
// failure it returns the conservative chat/low-confidence default (spec §4.D).
func (c *Classifier) Classify(ctx context.Context, utterance string, referencedUser, currentUser searchtypes.Profile) searchtypes.IntentResult {
	if strings.TrimSpace(utterance) == "" {
		return searchtypes.IntentResult{
			Intent:              searchtypes.IntentChat,
			Confidence:          0.3,
			ClarificationNeeded: true,
			UncertaintyReason:   "empty utterance",
		}
	}

	userPrompt := buildUserPrompt(utterance, referencedUser, currentUser)

	var raw rawResult
	err := c.client.JSONChat(ctx, systemPrompt, userPrompt, llm.Options{
		Temperature: 0.1,
		MaxTokens:   500,
	}, &raw)
	if err != nil {
		return searchtypes.IntentResult{
			Intent:              searchtypes.IntentChat,
			Confidence:          0.3,
			ClarificationNeeded: true,
			UncertaintyReason:   fmt.Sprintf("classifier error: %v", err),
		}
	}

	return coerce(raw)
}

func buildUserPrompt(utterance string, referencedUser, currentUser searchtypes.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Utterance: %s\n", utterance)
	if referencedUser != nil {
		if encoded, err := json.MarshalIndent(referencedUser, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nReferenced user:\n%s\n", encoded)
		}
	}
	if currentUser != nil {
		if encoded, err := json.MarshalIndent(currentUser, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nCurrent user:\n%s\n", encoded)
		}
	}
	return b.String()
}

func coerce(raw rawResult) searchtypes.IntentResult {
	result := searchtypes.IntentResult{
		Intent:              searchtypes.Intent(raw.Intent),
		Confidence:          raw.Confidence,
		Reasoning:           raw.Reasoning,
		ClarificationNeeded: raw.ClarificationNeeded,
		UncertaintyReason:   raw.UncertaintyReason,
	}
	if !searchtypes.ValidIntent(raw.Intent) {
		result.Intent = searchtypes.IntentChat
		if result.UncertaintyReason == "" {
			result.UncertaintyReason = fmt.Sprintf("unrecognised intent %q coerced to chat", raw.Intent)
		}
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result
}
