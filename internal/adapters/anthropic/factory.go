package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// FromConfig builds a Claude client; an API key is required
func FromConfig(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) (*ClaudeClient, error) {
	settings := cfg.GetAnthropic()
	if settings.APIKey == "" {
		return nil, fmt.Errorf("anthropic.api_key is not set")
	}
	client := anthropic.NewClient(option.WithAPIKey(settings.APIKey))
	return NewClaudeClient(client, settings, logger.Named("anthropic"), text), nil
}
