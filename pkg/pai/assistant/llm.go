// Package assistant – llm.go implements the model gateway: a retrying
// client for an OpenAI-compatible chat-completions endpoint with function
// calling / tool use support.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ---------- Client ----------

// LLMClient handles communication with the LLM provider API. Rate limits
// (HTTP 429) and timeouts are retried with linear backoff; any other
// non-success response is fatal for the conversation turn.
type LLMClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxRetries  int
	backoff     time.Duration
	callTimeout time.Duration
	httpClient  *http.Client
	logger      *slog.Logger

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewLLMClient creates a new LLM client from config.
func NewLLMClient(cfg *Config, logger *slog.Logger) *LLMClient {
	baseURL := cfg.API.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &LLMClient{
		baseURL:     baseURL,
		apiKey:      cfg.API.APIKey,
		model:       cfg.Model,
		maxRetries:  cfg.Agent.MaxRetriesOrDefault(),
		backoff:     cfg.Agent.RetryBackoff(),
		callTimeout: cfg.Agent.LLMTimeout(),
		httpClient:  &http.Client{Timeout: cfg.Agent.LLMTimeout()},
		logger:      logger.With("component", "llm"),
		sleep:       time.Sleep,
	}
}

// ---------- Wire Types (OpenAI-compatible) ----------

// chatMessage represents a message in the OpenAI chat format.
type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// chatRequest is the OpenAI-compatible chat completions request.
type chatRequest struct {
	Model    string           `json:"model"`
	Messages []chatMessage    `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// chatResponse is the OpenAI-compatible chat completions response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ---------- Tool Calling Types ----------

// ToolDefinition is an OpenAI-compatible tool definition for function calling.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a callable function exposed to the LLM.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized arguments from the LLM.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ---------- Response Types ----------

// LLMResponse holds the parsed response from a chat completion.
type LLMResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// errRateLimited marks a 429 from the provider.
var errRateLimited = errors.New("rate limited")

// retryable reports whether an error warrants another attempt: rate limits
// and timeouts only. Context cancellation from the caller is not retried.
func retryable(err error) bool {
	if errors.Is(err, errRateLimited) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// ---------- Public Methods ----------

// CompleteWithTools sends a chat completion request with optional tool
// definitions, retrying transient failures. Returns a structured response
// that may include tool calls the LLM wants to execute.
func (c *LLMClient) CompleteWithTools(ctx context.Context, messages []chatMessage, tools []ToolDefinition) (*LLMResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured. Run 'pai config set-key' or set PAI_API_KEY")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Linear backoff: base, 2×base, 3×base...
			delay := time.Duration(attempt) * c.backoff
			c.logger.Warn("retrying model call",
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"delay", delay,
				"error", lastErr,
			)
			c.sleep(delay)
		}

		resp, err := c.completeOnce(ctx, messages, tools)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// The caller's context is gone; stop retrying.
			return nil, fmt.Errorf("model call canceled: %w", ctx.Err())
		}
		if !retryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("model call failed after %d retries: %w", c.maxRetries, lastErr)
}

// completeOnce performs a single chat completion request.
func (c *LLMClient) completeOnce(ctx context.Context, messages []chatMessage, tools []ToolDefinition) (*LLMResponse, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
	}
	if len(tools) > 0 {
		reqBody.Tools = tools
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("sending chat completion",
		"model", c.model,
		"messages", len(messages),
		"tools", len(tools),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("API returned 429: %w", errRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("API error",
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 500),
		)
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	choice := chatResp.Choices[0]

	c.logger.Info("chat completion done",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"finish_reason", choice.FinishReason,
		"tool_calls", len(choice.Message.ToolCalls),
	)

	return &LLMResponse{
		Content:      strings.TrimSpace(choice.Message.Content),
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
	}, nil
}

// truncate shortens a string for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
