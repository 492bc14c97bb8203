package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// ClaudeClient is an implementation of the LLMClient interface using the Anthropic Messages API
type ClaudeClient struct {
	client        anthropic.Client
	model         anthropic.Model
	maxTokens     int
	temperature   float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClaudeClient creates a new Claude client
func NewClaudeClient(
	client anthropic.Client,
	cfg config.AnthropicConfig,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *ClaudeClient {
	return &ClaudeClient{
		client:        client,
		model:         anthropic.Model(cfg.ModelName),
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		maxBodySize:   cfg.MaxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Generate sends the prompt to Claude and returns the concatenated text blocks.
// The Messages API has no JSON mode; JSON prompts rely on their instructions.
func (c *ClaudeClient) Generate(ctx context.Context, prompt core.Prompt) (string, error) {
	turns, err := alternate(prompt.Messages)
	if err != nil {
		return "", err
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		text := c.textProcessor.ProcessText(m.Content, c.maxBodySize)
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(m.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(float64(c.temperature)),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: prompt.System,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create message with Anthropic: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	var sb strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	c.logger.Debug("Anthropic completion finished",
		zap.String("model", string(c.model)),
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens))

	return sb.String(), nil
}

// alternate merges consecutive same-role messages so the conversation strictly
// alternates, starts with the user and ends with the user.
func alternate(messages []core.Message) ([]core.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("prompt has no messages")
	}

	merged := make([]core.Message, 0, len(messages))
	for _, m := range messages {
		role := core.RoleUser
		if m.Role == core.RoleAssistant {
			role = core.RoleAssistant
		}
		if n := len(merged); n > 0 && merged[n-1].Role == role {
			merged[n-1].Content += "\n\n" + m.Content
			continue
		}
		merged = append(merged, core.Message{Role: role, Content: m.Content})
	}

	if merged[0].Role != core.RoleUser {
		return nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	if last := merged[len(merged)-1]; last.Role != core.RoleUser {
		return nil, fmt.Errorf("last message must be user role, got: %s", last.Role)
	}
	return merged, nil
}
