// Package agent implements the stateless conversation core: context
// assembly, tool dispatch, and the orchestration loop that alternates
// between model invocations and tool execution until the model produces a
// final answer or the iteration cap is hit.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taskmate-ai/task-assistant/internal/llm"
	"github.com/taskmate-ai/task-assistant/pkg/logger"
	"github.com/taskmate-ai/task-assistant/pkg/metrics"
)

// FallbackMessage is the safe final answer substituted when the loop hits
// its iteration cap or a model/tool call times out. It is persisted like
// any other assistant turn.
const FallbackMessage = "I had trouble completing that; please try rephrasing."

// Config tunes the orchestration loop.
type Config struct {
	// Model is the model identifier passed to the LLM provider.
	Model string
	// MaxIterations caps model round-trips per request.
	MaxIterations int
	// ModelTimeout bounds each model capability call.
	ModelTimeout time.Duration
	// ToolTimeout bounds each individual tool dispatch.
	ToolTimeout time.Duration
	// MaxTokens is forwarded to the provider.
	MaxTokens int
}

// Agent runs the orchestration loop. It keeps no state between runs:
// everything a run needs arrives in its arguments, so one Agent serves
// all users and all conversations.
type Agent struct {
	llm        llm.Client
	dispatcher *Dispatcher
	cfg        Config
	logger     *logger.Logger
}

// New creates an agent over the given model capability and dispatcher.
func New(client llm.Client, dispatcher *Dispatcher, cfg Config, log *logger.Logger) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 5
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 30 * time.Second
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 10 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Agent{llm: client, dispatcher: dispatcher, cfg: cfg, logger: log}
}

// ToolInvocation records one dispatched tool call for auditing.
type ToolInvocation struct {
	Name    string
	Success bool
}

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	// Response is the final assistant text; FallbackMessage when the run
	// fell back.
	Response string
	// FellBack is set when the iteration cap or a timeout forced the
	// safe fallback answer.
	FellBack bool
	// Iterations is the number of model calls made.
	Iterations int
	// ToolInvocations lists every dispatched tool call in order.
	ToolInvocations []ToolInvocation
}

// Run executes the loop: invoke the model with the current message list
// and the tool catalogue; execute any requested tool calls through the
// dispatcher with the authenticated owner identity; feed results back;
// repeat until the model answers with plain text or the iteration cap is
// reached.
//
// Timeouts and the iteration cap degrade to FallbackMessage. Provider and
// storage faults return an error; the caller surfaces those as a failed
// request.
func (a *Agent) Run(ctx context.Context, messages []llm.ChatMessage, ownerID string) (*RunResult, error) {
	current := make([]llm.ChatMessage, len(messages))
	copy(current, messages)

	tools := ToolCatalogue()
	result := &RunResult{}

	for result.Iterations < a.cfg.MaxIterations {
		result.Iterations++

		resp, err := a.complete(ctx, current, tools)
		if err != nil {
			if isTimeout(ctx, err) {
				a.logger.Warn("model call timed out, falling back",
					zap.Int("iteration", result.Iterations))
				return a.fallback(result), nil
			}
			return nil, err
		}

		current = append(current, llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			metrics.AgentIterations.Observe(float64(result.Iterations))
			result.Response = resp.Content
			if result.Response == "" {
				result.Response = FallbackMessage
				result.FellBack = true
			}
			return result, nil
		}

		a.logger.Debug("dispatching tool calls",
			zap.Int("count", len(resp.ToolCalls)),
			zap.Int("iteration", result.Iterations))

		for _, call := range resp.ToolCalls {
			dispatched, err := a.dispatch(ctx, ownerID, call)
			if err != nil {
				if isTimeout(ctx, err) {
					a.logger.Warn("tool call timed out, falling back",
						zap.String("tool", call.Name))
					return a.fallback(result), nil
				}
				return nil, err
			}

			result.ToolInvocations = append(result.ToolInvocations, ToolInvocation{
				Name:    call.Name,
				Success: dispatched.Success,
			})
			current = append(current, llm.ChatMessage{
				Role:       "tool",
				Content:    string(dispatched.Payload),
				ToolCallID: call.ID,
			})
		}
	}

	a.logger.Warn("iteration cap reached, falling back",
		zap.Int("max_iterations", a.cfg.MaxIterations))
	return a.fallback(result), nil
}

func (a *Agent) complete(ctx context.Context, messages []llm.ChatMessage, tools []llm.ToolDefinition) (*llm.CompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.ModelTimeout)
	defer cancel()

	start := time.Now()
	resp, err := a.llm.Complete(callCtx, &llm.CompletionRequest{
		Model:     a.cfg.Model,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: a.cfg.MaxTokens,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordLLMRequest(a.cfg.Model, status, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.LLMTokensTotal.WithLabelValues(a.cfg.Model, "in").Add(float64(resp.TokensIn))
	metrics.LLMTokensTotal.WithLabelValues(a.cfg.Model, "out").Add(float64(resp.TokensOut))
	return resp, nil
}

func (a *Agent) dispatch(ctx context.Context, ownerID string, call llm.ToolCall) (DispatchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.ToolTimeout)
	defer cancel()
	return a.dispatcher.Dispatch(callCtx, ownerID, call)
}

func (a *Agent) fallback(result *RunResult) *RunResult {
	metrics.AgentFallbacksTotal.Inc()
	metrics.AgentIterations.Observe(float64(result.Iterations))
	result.Response = FallbackMessage
	result.FellBack = true
	return result
}

// isTimeout distinguishes a per-call deadline (degrade to fallback) from
// a provider or storage fault (fail the request). A cancelled parent
// context counts as a fault: the client is gone.
func isTimeout(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}
