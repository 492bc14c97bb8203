package gemini

import (
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// FromConfig builds a Gemini client from the gemini section of the config
func FromConfig(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) (*GeminiClient, error) {
	return NewGeminiClient(cfg.GetGemini(), logger.Named("gemini"), text)
}
