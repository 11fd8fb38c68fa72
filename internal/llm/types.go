package llm

import (
	"context"
	"time"
)

// Priority levels. Classify and evaluate calls are critical; preprocessing and
// the inquiry/chat/casual completions are background.
type Priority int

const (
	PriorityCritical   Priority = 0 // Intent classification, candidate evaluation
	PriorityBackground Priority = 1 // Dense/sparse preprocessing, inquiry/chat/casual completions
)

// Request encapsulates a single LLM completion call routed through the Manager.
type Request struct {
	ID       string
	Priority Priority
	Context  context.Context

	URL     string
	Payload map[string]interface{}

	ResponseCh chan<- *Response
	ErrorCh    chan<- error

	SubmitTime time.Time
	Timeout    time.Duration
}

// Response encapsulates a completed LLM HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Metrics tracks queue performance, exposed via Manager.GetMetrics.
type Metrics struct {
	CriticalEnqueued    int64
	CriticalProcessed   int64
	CriticalDropped     int64
	BackgroundEnqueued  int64
	BackgroundProcessed int64
	BackgroundDropped   int64
	CurrentQueueDepth   map[Priority]int
}
