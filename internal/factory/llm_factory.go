package factory

import (
	"fmt"
	"sync"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/anthropic"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/bedrock"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/gemini"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/openai"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients and embedders. A provider used for both chat
// and embeddings is only constructed once.
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor

	mu      sync.Mutex
	clients map[string]core.LLMClient
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		clients:       make(map[string]core.LLMClient),
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	return f.client(f.cfg.GetLLM().Provider)
}

// CreateEmbedder creates the embedder of the configured embedding provider
func (f *LLMFactory) CreateEmbedder() (core.Embedder, error) {
	provider := f.cfg.GetLLM().EmbeddingProvider
	client, err := f.client(provider)
	if err != nil {
		return nil, err
	}
	embedder, ok := client.(core.Embedder)
	if !ok {
		return nil, fmt.Errorf("LLM provider %s does not support embeddings, set llm.embedding_provider", provider)
	}
	return embedder, nil
}

func (f *LLMFactory) client(provider string) (core.LLMClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[provider]; ok {
		return c, nil
	}

	var (
		c   core.LLMClient
		err error
	)
	switch provider {
	case "bedrock":
		var bc *bedrock.BedrockClient
		if bc, err = bedrock.FromConfig(f.cfg, f.logger, f.textProcessor); err == nil {
			c = bc
		}
	case "gemini":
		var gc *gemini.GeminiClient
		if gc, err = gemini.FromConfig(f.cfg, f.logger, f.textProcessor); err == nil {
			c = gc
		}
	case "openai":
		var oc *openai.OpenAIClient
		if oc, err = openai.FromConfig(f.cfg, f.logger, f.textProcessor); err == nil {
			c = oc
		}
	case "anthropic":
		var ac *anthropic.ClaudeClient
		if ac, err = anthropic.FromConfig(f.cfg, f.logger, f.textProcessor); err == nil {
			c = ac
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	f.logger.Info("LLM client created", zap.String("provider", provider))
	f.clients[provider] = c
	return c, nil
}
