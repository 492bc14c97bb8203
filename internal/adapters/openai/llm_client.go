package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the LLMClient and Embedder interfaces using OpenAI
type OpenAIClient struct {
	client         *openai.Client
	modelName      string
	embeddingModel string
	maxTokens      int
	temperature    float32
	topP           float32
	maxBodySize    int
	logger         *zap.Logger
	textProcessor  *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	cfg config.OpenAIConfig,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:         client,
		modelName:      cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		maxTokens:      cfg.MaxTokens,
		temperature:    cfg.Temperature,
		topP:           cfg.TopP,
		maxBodySize:    cfg.MaxBodySize,
		logger:         logger,
		textProcessor:  textProcessor,
	}
}

func (c *OpenAIClient) messages(prompt core.Prompt) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(prompt.Messages)+1)
	if prompt.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	for _, m := range prompt.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == core.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    role,
			Content: c.textProcessor.ProcessText(m.Content, c.maxBodySize),
		})
	}
	return msgs
}

// Generate sends the prompt as a chat completion and returns the reply text
func (c *OpenAIClient) Generate(ctx context.Context, prompt core.Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    c.messages(prompt),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	if prompt.JSONOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI completion finished",
		zap.String("model", c.modelName),
		zap.String("id", resp.ID),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

// Embed returns one embedding per input text, in input order
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings with OpenAI: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("OpenAI returned embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
