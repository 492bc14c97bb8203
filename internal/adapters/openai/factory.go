package openai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// FromConfig builds an OpenAI client for chat and embeddings
func FromConfig(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) (*OpenAIClient, error) {
	settings := cfg.GetOpenAI()
	if settings.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key is not set")
	}
	return NewOpenAIClient(openai.NewClient(settings.APIKey), settings, logger.Named("openai"), text), nil
}
