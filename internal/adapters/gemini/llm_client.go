package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// GeminiClient is an implementation of the LLMClient and Embedder interfaces using Google Gemini
type GeminiClient struct {
	client         *genai.Client
	modelName      string
	embeddingModel string
	maxTokens      int
	temperature    float32
	topP           float32
	maxBodySize    int
	logger         *zap.Logger
	textProcessor  *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	cfg config.GeminiConfig,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		modelName:      cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		maxTokens:      cfg.MaxTokens,
		temperature:    cfg.Temperature,
		topP:           cfg.TopP,
		maxBodySize:    cfg.MaxBodySize,
		logger:         logger,
		textProcessor:  textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// model configures a generative model for one prompt. The model carries the
// system instruction, so it is not shared between calls.
func (c *GeminiClient) model(prompt core.Prompt) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	model.SetTopP(c.topP)
	model.SetMaxOutputTokens(int32(c.maxTokens))
	if prompt.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	}
	if prompt.JSONOutput {
		model.ResponseMIMEType = "application/json"
	}
	return model
}

// Generate runs the prompt as a chat and returns the reply text
func (c *GeminiClient) Generate(ctx context.Context, prompt core.Prompt) (string, error) {
	history, last, err := splitConversation(prompt.Messages, func(s string) string {
		return c.textProcessor.ProcessText(s, c.maxBodySize)
	})
	if err != nil {
		return "", err
	}

	chat := c.model(prompt).StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, last)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		c.logger.Debug("Gemini completion finished",
			zap.String("model", c.modelName),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount))
	}
	return text, nil
}

// Embed returns one embedding per input text, in input order
func (c *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	em := c.client.EmbeddingModel(c.embeddingModel)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content with Gemini: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

// splitConversation turns the prompt messages into chat history plus the
// final user turn that is sent.
func splitConversation(messages []core.Message, process func(string) string) ([]*genai.Content, genai.Part, error) {
	if len(messages) == 0 {
		return nil, nil, fmt.Errorf("prompt has no messages")
	}
	last := messages[len(messages)-1]
	if last.Role != core.RoleUser {
		return nil, nil, fmt.Errorf("last message must be user role, got: %s", last.Role)
	}

	history := make([]*genai.Content, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		role := roleUser
		if m.Role == core.RoleAssistant {
			role = roleModel
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(process(m.Content))},
		})
	}
	return history, genai.Text(process(last.Content)), nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return sb.String(), nil
}
