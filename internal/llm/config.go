package llm

import "time"

// Config controls the Manager's queue behavior: critical carries
// intent.Classifier and evaluate.Evaluator calls, background carries
// preprocess.Preprocessor and the Scheduler's inquiry/chat/casual
// completions.
type Config struct {
	// Concurrency control
	MaxConcurrent int // Total concurrent LLM requests

	// Queue sizes
	CriticalQueueSize   int // Classify/evaluate calls (small, rarely queues)
	BackgroundQueueSize int // Preprocess/chat/casual calls (larger buffer)

	// Timeouts. The per-request timeout applied to a call is the one carried
	// on its Client (cfg.CriticalTimeout/cfg.BackgroundTimeout from
	// internal/config); the Manager does not read these two fields.
	CriticalTimeout   time.Duration
	BackgroundTimeout time.Duration
}

// DefaultConfig returns sensible defaults for a single-process orchestrator
// handling one turn at a time: two concurrent slots comfortably covers the
// Preprocessor's 2-way fan-out without starving a concurrent classify call.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:       2,   // Preprocessor's dense+sparse fan-out is the widest single burst
		CriticalQueueSize:   20,  // Small buffer
		BackgroundQueueSize: 100, // Large buffer
		CriticalTimeout:     360 * time.Second,
		BackgroundTimeout:   360 * time.Second,
	}
}
