package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
	apiKey string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicClient{
		client: client,
		apiKey: apiKey,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	}
}

// Complete sends a completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	// Anthropic takes the system prompt as a top-level parameter and tool
	// results as user-role content blocks, so the neutral message list is
	// reshaped here.
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(msg.Content),
			})

		case "tool":
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.ToolResultBlockParam{
						Type:      anthropic.F(anthropic.ToolResultBlockParamTypeToolResult),
						ToolUseID: anthropic.F(msg.ToolCallID),
						Content: anthropic.F([]anthropic.ToolResultBlockParamContentUnion{
							anthropic.TextBlockParam{
								Type: anthropic.F(anthropic.TextBlockParamTypeText),
								Text: anthropic.F(msg.Content),
							},
						}),
					},
				}),
			})

		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				})
			}
			for _, tc := range msg.ToolCalls {
				var input any
				if err := json.Unmarshal(tc.Arguments, &input); err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ToolUseBlockParam{
					Type:  anthropic.F(anthropic.ToolUseBlockParamTypeToolUse),
					ID:    anthropic.F(tc.ID),
					Name:  anthropic.F(tc.Name),
					Input: anthropic.F(input),
				})
			}
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.F(anthropic.MessageParamRoleAssistant),
				Content: anthropic.F(blocks),
			})

		default:
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.F(anthropic.MessageParamRoleUser),
				Content: anthropic.F([]anthropic.ContentBlockParamUnion{
					anthropic.TextBlockParam{
						Type: anthropic.F(anthropic.TextBlockParamTypeText),
						Text: anthropic.F(msg.Content),
					},
				}),
			})
		}
	}

	var tools []anthropic.ToolParam
	for _, def := range req.Tools {
		var schema any
		if err := json.Unmarshal(def.Parameters, &schema); err != nil {
			return nil, err
		}
		tools = append(tools, anthropic.ToolParam{
			Name:        anthropic.F(def.Name),
			Description: anthropic.F(def.Description),
			InputSchema: anthropic.F(schema),
		})
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.F(model),
		MaxTokens: anthropic.F(int64(maxTokens)),
		Messages:  anthropic.F(messages),
	}
	if len(system) > 0 {
		params.System = anthropic.F(system)
	}
	if len(tools) > 0 {
		params.Tools = anthropic.F(tools)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	out := &CompletionResponse{
		Model:      resp.Model,
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}

	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.ContentBlockTypeText:
			out.Content += block.Text
		case anthropic.ContentBlockTypeToolUse:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			})
		}
	}

	return out, nil
}
