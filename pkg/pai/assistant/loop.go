// Package assistant – loop.go runs the bounded model/tool orchestration
// loop for one conversation turn.
//
// Each turn makes at most MaxRounds model calls. Tool results feed the next
// round; when the model answers with text the loop ends early. If the round
// budget runs out before the model produces text, the reply is synthesized
// from the action log so the caller still learns what happened.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Turn is one prior exchange in a conversation history.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// ActionLogEntry records one executed tool call for the turn's outcome.
type ActionLogEntry struct {
	Tool   string `json:"tool"`
	Target string `json:"target"`
	Result string `json:"result"`
}

// Outcome is the result of one conversation turn.
type Outcome struct {
	// Reply is the assistant's text answer.
	Reply string `json:"reply"`

	// Actions lists every tool call executed during the turn, in execution
	// order across rounds.
	Actions []ActionLogEntry `json:"actions,omitempty"`
}

// Conversation runs turns through the model and the tool executor.
type Conversation struct {
	llm      *LLMClient
	executor *ToolExecutor
	rounds   int
	window   int
	logger   *slog.Logger
}

// NewConversation creates a conversation runner.
func NewConversation(llm *LLMClient, executor *ToolExecutor, cfg *Config, logger *slog.Logger) *Conversation {
	return &Conversation{
		llm:      llm,
		executor: executor,
		rounds:   cfg.Agent.MaxRoundsOrDefault(),
		window:   cfg.Agent.HistoryWindowOrDefault(),
		logger:   logger.With("component", "loop"),
	}
}

// Converse runs one turn: the caller's message plus recent history against
// the compiled prompt and offered tools, bounded by the round budget.
//
// The scope passed in is the enforcement input for every tool call in the
// turn; it is used and discarded, never stored.
func (c *Conversation) Converse(ctx context.Context, systemPrompt string, tools []ToolDefinition, history []Turn, message, channel string, scope *Scope) (*Outcome, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})

	// Only the most recent window of history is sent.
	if len(history) > c.window {
		history = history[len(history)-c.window:]
	}
	for _, t := range history {
		role := t.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: t.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	outcome := &Outcome{}
	start := time.Now()

	for round := 1; round <= c.rounds; round++ {
		resp, err := c.llm.CompleteWithTools(ctx, messages, tools)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		if len(resp.ToolCalls) == 0 {
			outcome.Reply = resp.Content
			c.logger.Info("turn complete",
				"rounds", round,
				"actions", len(outcome.Actions),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return outcome, nil
		}

		messages = append(messages, chatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results := c.executor.ExecuteBatch(ctx, scope, channel, resp.ToolCalls)
		for _, r := range results {
			outcome.Actions = append(outcome.Actions, ActionLogEntry{
				Tool:   r.Name,
				Target: r.Target,
				Result: r.Content,
			})
			messages = append(messages, chatMessage{
				Role:       "tool",
				Content:    r.Content,
				ToolCallID: r.ToolCallID,
			})
		}
	}

	// Round budget exhausted with the model still calling tools. Report what
	// was actually done instead of returning nothing.
	outcome.Reply = synthesizeReply(outcome.Actions)
	c.logger.Warn("round budget exhausted",
		"rounds", c.rounds,
		"actions", len(outcome.Actions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcome, nil
}

// synthesizeReply builds a fallback answer from the executed actions.
func synthesizeReply(actions []ActionLogEntry) string {
	if len(actions) == 0 {
		return "I wasn't able to complete that request. Please try rephrasing it."
	}
	var b strings.Builder
	b.WriteString("Here's what I did:")
	for _, a := range actions {
		b.WriteString("\n- ")
		b.WriteString(a.Result)
	}
	return b.String()
}
