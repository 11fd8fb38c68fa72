// Package evaluate implements the Candidate Evaluator (spec §4.G): a single
// bidirectional-matching LLM JSON call that quality-tags a candidate pool,
// selects up to three, and synthesises a rationale per candidate plus an
// intro. Grounded on the reference agent's analyze_candidates_quality
// (system prompt structure, quality-tier thresholds, enrichment-by-merge)
// and _generate_default_match_reason fallback.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-llama/internal/llm"
	"go-llama/internal/searchtypes"
)

const systemPrompt = `You evaluate candidate people against a searcher's query using BIDIRECTIONAL matching:
the candidate must satisfy the searcher's stated query, demands, and goals; AND the searcher must
plausibly satisfy the candidate's own demands and goals.

Quality tiers:
- "poor": fewer than 3 candidates meet the primary requirement. Do NOT include selected_candidates.
- "fair": exactly 3 candidates, with weak mutual fit.
- "good": 3 or more candidates, with decent mutual fit.
- "excellent": 3 or more candidates, with strong mutual fit.

For each selected candidate, write a natural-language match_reason explaining the mutual fit.
Write an intro of at most 200 characters summarising the selection. Respond in the same language as
the query.

Respond with a JSON object:
{"overall_quality": "...", "candidate_count": N, "should_continue": bool,
 "selected_candidates": [{"user_id": "...", "match_score": 1-10, "key_strengths": ["..."], "match_reason": "..."}],
 "analysis": "...", "intro": "..."}`

const maxCandidatesInPrompt = 10

// Evaluator scores candidate pools via a single json_chat call.
type Evaluator struct {
	client *llm.Client
}

// New builds an Evaluator over a critical-priority LLM client.
func New(client *llm.Client) *Evaluator {
	return &Evaluator{client: client}
}

// Input bundles everything the evaluator's prompt needs (spec §4.G).
type Input struct {
	Query           string
	Candidates      []searchtypes.Candidate
	Attempt         int
	CurrentUser     searchtypes.Profile
	Language        string
	ReferencedUsers []searchtypes.Profile
	TotalFound      int
}

type rawSelected struct {
	UserID       string   `json:"user_id"`
	MatchScore   int      `json:"match_score"`
	KeyStrengths []string `json:"key_strengths"`
	MatchReason  string   `json:"match_reason"`
}

type rawResult struct {
	OverallQuality     string        `json:"overall_quality"`
	CandidateCount     int           `json:"candidate_count"`
	ShouldContinue     bool          `json:"should_continue"`
	SelectedCandidates []rawSelected `json:"selected_candidates"`
	Analysis           string        `json:"analysis"`
	Intro              string        `json:"intro"`
}

// Evaluate runs the bidirectional-matching call and enriches the result
// (spec §4.G). On LLM failure it returns a degraded fallback rather than an
// error — the Scheduler never sees a failed evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) searchtypes.AnalysisResult {
	userPrompt := buildUserPrompt(in)

	var raw rawResult
	err := e.client.JSONChat(ctx, systemPrompt, userPrompt, llm.Options{
		Temperature: 0.2,
		MaxTokens:   2000,
	}, &raw)
	if err != nil {
		return fallback(in)
	}

	quality := searchtypes.Quality(raw.OverallQuality)
	switch quality {
	case searchtypes.QualityPoor, searchtypes.QualityFair, searchtypes.QualityGood, searchtypes.QualityExcellent:
	default:
		return fallback(in)
	}

	result := searchtypes.AnalysisResult{
		OverallQuality: quality,
		CandidateCount: raw.CandidateCount,
		ShouldContinue: raw.ShouldContinue,
		Analysis:       raw.Analysis,
		Intro:          raw.Intro,
	}

	if quality == searchtypes.QualityPoor {
		return result
	}

	result.SelectedCandidates = enrich(raw.SelectedCandidates, in.Candidates)
	if len(result.SelectedCandidates) > 3 {
		result.SelectedCandidates = result.SelectedCandidates[:3]
	}
	if len(result.SelectedCandidates) == 0 {
		// A non-poor quality tag with an empty selected_candidates array
		// still must surface at least one candidate (spec
		// "1 <= len(selected_candidates) <= 3" for any non-poor quality).
		// Unknown ids never reach here: enrich keeps them as bare output.
		return fallback(in)
	}
	return result
}

func buildUserPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", in.Query)
	fmt.Fprintf(&b, "Attempt: %d\n", in.Attempt)
	fmt.Fprintf(&b, "Total candidates found: %d\n", in.TotalFound)
	fmt.Fprintf(&b, "Language: %s\n", in.Language)
	if in.CurrentUser != nil {
		if encoded, err := json.MarshalIndent(in.CurrentUser, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nSearcher profile:\n%s\n", encoded)
		}
	}

	n := len(in.Candidates)
	if n > maxCandidatesInPrompt {
		n = maxCandidatesInPrompt
	}
	b.WriteString("\nCandidates:\n")
	for i := 0; i < n; i++ {
		c := in.Candidates[i]
		encoded, _ := json.Marshal(c.Payload)
		fmt.Fprintf(&b, "[%d] user_id=%s payload=%s\n", i, c.UserID, encoded)
	}
	return b.String()
}

// enrich copies the full original candidate payload back over the LLM's
// bare output, so downstream rendering always has complete data (spec
// §4.G "Enrichment step"). Unknown ids are kept as bare LLM output.
func enrich(selected []rawSelected, originals []searchtypes.Candidate) []searchtypes.AnalysedCandidate {
	byID := make(map[string]searchtypes.Candidate, len(originals))
	for _, c := range originals {
		byID[c.UserID] = c
	}

	out := make([]searchtypes.AnalysedCandidate, 0, len(selected))
	for _, s := range selected {
		base, ok := byID[s.UserID]
		if !ok {
			base = searchtypes.Candidate{UserID: s.UserID}
		}
		out = append(out, searchtypes.AnalysedCandidate{
			Candidate:    base,
			MatchScore:   clampScore(s.MatchScore),
			KeyStrengths: s.KeyStrengths,
			MatchReason:  s.MatchReason,
		})
	}
	return out
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// fallback synthesises a degraded result when the LLM call fails or returns
// an unparseable quality tag: quality "fair", first three candidates kept,
// default match reasons derived from payload fields, generic intro (spec
// §4.G, grounded on the reference agent's exception-handling branch).
func fallback(in Input) searchtypes.AnalysisResult {
	n := len(in.Candidates)
	if n > 3 {
		n = 3
	}

	selected := make([]searchtypes.AnalysedCandidate, 0, n)
	for i := 0; i < n; i++ {
		c := in.Candidates[i]
		selected = append(selected, searchtypes.AnalysedCandidate{
			Candidate:   c,
			MatchScore:  5,
			MatchReason: DefaultMatchReason(c, in.Language),
		})
	}

	intro := "We found some potentially relevant matches, though our detailed analysis is temporarily unavailable."
	if in.Language == "zh" {
		intro = "我们找到了一些可能相关的匹配，但详细分析暂时不可用。"
	}

	return searchtypes.AnalysisResult{
		OverallQuality:     searchtypes.QualityFair,
		CandidateCount:     n,
		ShouldContinue:     n < 3,
		SelectedCandidates: selected,
		Analysis:           "degraded evaluation: LLM unavailable or returned an invalid response",
		Intro:              intro,
	}
}

// DefaultMatchReason synthesises a match reason purely from payload fields,
// used when the LLM is unavailable. Produces genuinely distinct zh/en text
// (the reference agent's equivalent emits identical text for both).
func DefaultMatchReason(c searchtypes.Candidate, language string) string {
	skills := stringSliceField(c.Payload, "skills")
	university := stringField(c.Payload, "university")
	company := stringField(c.Payload, "current_company")
	projectCount := intField(c.Payload, "project_count")

	if language == "zh" {
		var parts []string
		if len(skills) > 0 {
			parts = append(parts, fmt.Sprintf("掌握 %s", strings.Join(skills, "、")))
		}
		if university != "" {
			parts = append(parts, fmt.Sprintf("毕业于 %s", university))
		}
		if company != "" {
			parts = append(parts, fmt.Sprintf("目前就职于 %s", company))
		}
		if projectCount > 0 {
			parts = append(parts, fmt.Sprintf("完成过 %d 个项目", projectCount))
		}
		if len(parts) == 0 {
			return "基于资料初步匹配，建议进一步沟通确认细节。"
		}
		return strings.Join(parts, "，") + "，与您的需求存在初步匹配。"
	}

	var parts []string
	if len(skills) > 0 {
		parts = append(parts, fmt.Sprintf("has experience with %s", strings.Join(skills, ", ")))
	}
	if university != "" {
		parts = append(parts, fmt.Sprintf("studied at %s", university))
	}
	if company != "" {
		parts = append(parts, fmt.Sprintf("currently works at %s", company))
	}
	if projectCount > 0 {
		parts = append(parts, fmt.Sprintf("has completed %d projects", projectCount))
	}
	if len(parts) == 0 {
		return "A preliminary profile match; further conversation is recommended to confirm fit."
	}
	return "This candidate " + strings.Join(parts, ", ") + ", a reasonable preliminary match for your query."
}

func stringField(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceField(payload map[string]interface{}, key string) []string {
	if payload == nil {
		return nil
	}
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intField(payload map[string]interface{}, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
