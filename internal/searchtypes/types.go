// Package searchtypes holds the data model shared by every Core component (spec §3).
package searchtypes

import "time"

// Intent is the four-way classification from spec §3/§4.D.
type Intent string

const (
	IntentSearch  Intent = "search"
	IntentInquiry Intent = "inquiry"
	IntentChat    Intent = "chat"
	IntentCasual  Intent = "casual"
)

// ValidIntent reports whether s names one of the four recognised intents.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentSearch, IntentInquiry, IntentChat, IntentCasual:
		return true
	}
	return false
}

// IntentResult is the Intent Classifier's output (spec §3).
type IntentResult struct {
	Intent             Intent  `json:"intent"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	ClarificationNeeded bool    `json:"clarification_needed"`
	UncertaintyReason   string  `json:"uncertainty_reason,omitempty"`
}

// Profile is the opaque-to-the-orchestrator user profile JSON (spec §3).
type Profile map[string]interface{}

// UserID extracts the user_id field if present, coerced to a string.
func (p Profile) UserID() string {
	if p == nil {
		return ""
	}
	switch v := p["user_id"].(type) {
	case string:
		return v
	case float64:
		return trimFloat(v)
	}
	return ""
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return itoa(int64(f))
	}
	return ""
}

func itoa(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// EmbeddedQuery is the Query Preprocessor / Embedding Engine joint output (spec §3).
type EmbeddedQuery struct {
	Dense  []float32          `json:"dense"`
	Sparse map[string]float32 `json:"sparse"`
}

// Candidate is a single vector-store hit (spec §3).
type Candidate struct {
	UserID      string                 `json:"user_id"`
	Score       float64                `json:"score"`
	FusedScore  *float64               `json:"fused_score,omitempty"`
	DenseScore  *float64               `json:"dense_score,omitempty"`
	SparseScore *float64               `json:"sparse_score,omitempty"`
	Payload     map[string]interface{} `json:"payload"`
}

// AnalysedCandidate extends Candidate with the Evaluator's per-candidate output (spec §3).
type AnalysedCandidate struct {
	Candidate
	MatchScore   int      `json:"match_score"`
	KeyStrengths []string `json:"key_strengths"`
	MatchReason  string   `json:"match_reason"`
}

// Quality is the Analysis result's overall_quality tag (spec §3/§4.G).
type Quality string

const (
	QualityPoor      Quality = "poor"
	QualityFair      Quality = "fair"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

// AnalysisResult is the Candidate Evaluator's output (spec §3).
type AnalysisResult struct {
	OverallQuality     Quality             `json:"overall_quality"`
	CandidateCount     int                 `json:"candidate_count"`
	ShouldContinue     bool                `json:"should_continue"`
	SelectedCandidates []AnalysedCandidate `json:"selected_candidates,omitempty"`
	Analysis           string              `json:"analysis"`
	Intro              string              `json:"intro"`
}

// Stats is the process-wide statistics counter (spec §3/§5).
type Stats struct {
	SearchCount     int64   `json:"search_count"`
	TotalSearchTime float64 `json:"total_search_time"`
	LLMCalls        int64   `json:"llm_calls"`
	CacheHits       int64   `json:"cache_hits"`
	VectorSearches  int64   `json:"vector_searches"`
	CasualCount     int64   `json:"casual_count"`
}

// ResponseEnvelope is the Scheduler's terminal output (spec §3/§4.H).
type ResponseEnvelope struct {
	Type               string              `json:"type"`
	Content            string              `json:"content,omitempty"`
	Candidates         []AnalysedCandidate `json:"candidates,omitempty"`
	IntroMessage       string              `json:"intro_message,omitempty"`
	IntentAnalysis     IntentResult        `json:"intent_analysis"`
	Language           string              `json:"language"`
	ProcessingTime     float64             `json:"processing_time"`
	Status             string              `json:"status"`
	Query              string              `json:"query"`
	Timestamp          time.Time           `json:"timestamp"`
	Stats              Stats               `json:"stats"`
	ReferencedUser     Profile             `json:"referenced_user,omitempty"`
	Clarification      bool                `json:"clarification,omitempty"`
	CandidateCount     int                 `json:"candidate_count,omitempty"`
	TotalCandidatesFound int               `json:"total_candidates_found,omitempty"`
	SearchQuality      Quality             `json:"search_quality,omitempty"`
	Analysis           string              `json:"analysis,omitempty"`
	SearchAttempts     int                 `json:"search_attempts,omitempty"`
	StorageResult      *CasualStoreResult  `json:"storage_result,omitempty"`
}

// CasualRequest is the record written to the external casual-request store (spec §3).
type CasualRequest struct {
	UserID          string                 `json:"user_id"`
	OriginalQuery   string                 `json:"original_query"`
	OptimisedQuery  string                 `json:"optimised_query"`
	ProvinceID      *string                `json:"province_id,omitempty"`
	CityID          *string                `json:"city_id,omitempty"`
	Preferences     map[string]interface{} `json:"preferences"`
	IsActive        bool                   `json:"is_active"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	LastActivityAt  time.Time              `json:"last_activity_at"`
}

// CasualStoreResult is what the write-through store returns for an upsert.
type CasualStoreResult struct {
	Success bool                `json:"success"`
	Matches []Candidate         `json:"matches,omitempty"`
	Record  CasualRequest       `json:"record,omitempty"`
}
