package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-llama/internal/searcherr"
)

// Message is a single chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options mirrors the option set spec §4.C recognises.
type Options struct {
	Temperature    float64
	MaxTokens      int
	Model          string
	ResponseFormat string // "text" or "json_object"
	Stop           []string
	RequestID      string
}

// Client wraps a Manager with a fixed priority/timeout/model/endpoint, exposing
// the chat / json_chat surface from spec §4.C.
type Client struct {
	manager    *Manager
	priority   Priority
	timeout    time.Duration
	url        string
	model      string
	cache      *ResponseCache
	onCacheHit func()
}

// NewClient creates a new queue client bound to a chat-completions endpoint.
func NewClient(manager *Manager, priority Priority, timeout time.Duration, url, model string) *Client {
	return &Client{manager: manager, priority: priority, timeout: timeout, url: url, model: model}
}

// WithCache attaches a response cache, returning the same Client for
// chaining at the composition root (cmd/server/main.go).
func (c *Client) WithCache(cache *ResponseCache) *Client {
	c.cache = cache
	return c
}

// OnCacheHit registers a callback invoked once per cache hit (the
// composition root wires this to stats.Counter.IncCacheHit).
func (c *Client) OnCacheHit(fn func()) *Client {
	c.onCacheHit = fn
	return c
}

const maxRetries = 3
const retryBaseDelay = 1 * time.Second
const retryFactor = 1.5

// call submits one request and waits for the manager's reply.
func (c *Client) call(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)

	req := &Request{
		ID:         fmt.Sprintf("%d_%d", c.priority, time.Now().UnixNano()),
		Priority:   c.priority,
		Context:    ctx,
		URL:        c.url,
		Payload:    payload,
		ResponseCh: respCh,
		ErrorCh:    errCh,
		SubmitTime: time.Now(),
		Timeout:    c.timeout,
	}

	if err := c.manager.Submit(req); err != nil {
		return nil, fmt.Errorf("failed to submit: %w", err)
	}

	select {
	case resp := <-respCh:
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("llm server error: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("llm returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callWithRetry serves a cached response when available, otherwise retries
// transient failures (network errors, 5xx) with exponential backoff and
// populates the cache on success.
func (c *Client) callWithRetry(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	if body, hit := c.cache.get(ctx, payload); hit {
		if c.onCacheHit != nil {
			c.onCacheHit()
		}
		return body, nil
	}

	var lastErr error
	delay := retryBaseDelay
	for attempt := 1; attempt <= maxRetries; attempt++ {
		body, err := c.call(ctx, payload)
		if err == nil {
			c.cache.set(ctx, payload, body)
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = time.Duration(float64(delay) * retryFactor)
	}
	return nil, searcherr.NewLLMUnavailable(lastErr)
}

func (c *Client) buildPayload(messages []Message, opts Options) map[string]interface{} {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if opts.Temperature != 0 {
		payload["temperature"] = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	if opts.ResponseFormat != "" {
		payload["response_format"] = map[string]string{"type": opts.ResponseFormat}
	}
	if len(opts.Stop) > 0 {
		payload["stop"] = opts.Stop
	}
	return payload
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func extractText(body []byte) (string, error) {
	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Chat performs a plain completion. See spec §4.C "chat".
func (c *Client) Chat(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})

	body, err := c.callWithRetry(ctx, c.buildPayload(messages, opts))
	if err != nil {
		return "", err
	}
	return extractText(body)
}

// JSONChat performs a completion constrained to produce a JSON object, parses it,
// stripping fenced code blocks and trailing prose. See spec §4.C "json_chat".
func (c *Client) JSONChat(ctx context.Context, systemPrompt, userPrompt string, opts Options, target interface{}) error {
	opts.ResponseFormat = "json_object"
	text, err := c.Chat(ctx, systemPrompt, userPrompt, opts)
	if err != nil {
		return err
	}
	return parseStructuredResponse(text, target)
}

// parseStructuredResponse extracts a JSON object from a possibly fenced-markdown response.
func parseStructuredResponse(response string, target interface{}) error {
	start := 0
	end := len(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		start = idx + len("```json")
	} else if idx := strings.Index(response, "```"); idx != -1 {
		start = idx + len("```")
	}

	if idx := strings.Index(response[start:], "```"); idx != -1 {
		end = start + idx
	} else {
		end = len(response)
	}

	jsonStr := strings.TrimSpace(response[start:end])
	// Decode reads only the first JSON value, so prose after it is ignored.
	if err := json.NewDecoder(strings.NewReader(jsonStr)).Decode(target); err != nil {
		return searcherr.NewLLMParseError(err)
	}
	return nil
}
