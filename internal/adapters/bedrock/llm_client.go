package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

// ModelInvoker is the subset of the Bedrock runtime API used by the client
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of the LLMClient and Embedder interfaces using Amazon Bedrock
type BedrockClient struct {
	client           ModelInvoker
	modelID          string
	embeddingModelID string
	maxTokens        int
	temperature      float32
	topP             float32
	maxBodySize      int
	logger           *zap.Logger
	textProcessor    *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client ModelInvoker,
	cfg config.BedrockConfig,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:           client,
		modelID:          cfg.ModelID,
		embeddingModelID: cfg.EmbeddingModelID,
		maxTokens:        cfg.MaxTokens,
		temperature:      cfg.Temperature,
		topP:             cfg.TopP,
		maxBodySize:      cfg.MaxBodySize,
		logger:           logger,
		textProcessor:    textProcessor,
	}
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float32         `json:"temperature"`
	TopP             float32         `json:"top_p"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate invokes the configured model and returns the reply text
func (c *BedrockClient) Generate(ctx context.Context, prompt core.Prompt) (string, error) {
	payload, err := c.payload(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	body, err := c.invoke(ctx, c.modelID, payload)
	if err != nil {
		return "", err
	}

	text, err := c.parse(body)
	if err != nil {
		return "", err
	}
	c.logger.Debug("Bedrock completion finished", zap.String("model", c.modelID), zap.Int("response_size", len(text)))
	return text, nil
}

func (c *BedrockClient) invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error) {
	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}
	return resp.Body, nil
}

// payload builds the request body in the format of the model family
func (c *BedrockClient) payload(prompt core.Prompt) ([]byte, error) {
	switch {
	case c.isAnthropicModel():
		req := claudeRequest{
			AnthropicVersion: anthropicVersion,
			System:           prompt.System,
			MaxTokens:        c.maxTokens,
			Temperature:      c.temperature,
			TopP:             c.topP,
		}
		for _, m := range prompt.Messages {
			req.Messages = append(req.Messages, claudeMessage{
				Role:    string(m.Role),
				Content: c.textProcessor.ProcessText(m.Content, c.maxBodySize),
			})
		}
		return json.Marshal(req)
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": c.flatten(prompt),
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      c.flatten(prompt),
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
}

// flatten renders a chat prompt as a single transcript for text-only models
func (c *BedrockClient) flatten(prompt core.Prompt) string {
	var sb strings.Builder
	if prompt.System != "" {
		sb.WriteString(prompt.System)
		sb.WriteString("\n\n")
	}
	for _, m := range prompt.Messages {
		if m.Role == core.RoleAssistant {
			sb.WriteString("Assistant: ")
		} else {
			sb.WriteString("User: ")
		}
		sb.WriteString(c.textProcessor.ProcessText(m.Content, c.maxBodySize))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Assistant:")
	return sb.String()
}

// parse extracts the reply text from a model response
func (c *BedrockClient) parse(body []byte) (string, error) {
	switch {
	case c.isAnthropicModel():
		var resp claudeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return "", fmt.Errorf("empty response from Claude model")
		}
		return sb.String(), nil
	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return strings.TrimSpace(titanResp.Results[0].OutputText), nil
	default:
		var genericResp struct {
			Output     string `json:"output"`
			Text       string `json:"text"`
			Response   string `json:"response"`
			Generation string `json:"generation"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, s := range []string{genericResp.Output, genericResp.Text, genericResp.Response, genericResp.Generation} {
			if s != "" {
				return s, nil
			}
		}
		return string(body), nil
	}
}

// Embed returns one Titan embedding per input text, in input order
func (c *BedrockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		payload, err := json.Marshal(map[string]string{"inputText": text})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding payload: %w", err)
		}

		body, err := c.invoke(ctx, c.embeddingModelID, payload)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding response: %w", err)
		}
		if len(resp.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding from Bedrock model %s", c.embeddingModelID)
		}
		vectors = append(vectors, resp.Embedding)
	}
	return vectors, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model, including
// cross-region inference profiles such as us.anthropic.claude-*
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
