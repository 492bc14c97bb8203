package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/adapters/knowledge"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

// KnowledgeFactory opens the knowledge index and builds its retriever and indexer
type KnowledgeFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	llm    *LLMFactory
}

// NewKnowledgeFactory creates a new knowledge factory
func NewKnowledgeFactory(cfg *config.Config, logger *zap.Logger, llm *LLMFactory) *KnowledgeFactory {
	return &KnowledgeFactory{
		cfg:    cfg,
		logger: logger,
		llm:    llm,
	}
}

// OpenStore opens the knowledge index, creating its directory when needed
func (f *KnowledgeFactory) OpenStore() (*knowledge.Store, error) {
	path := f.cfg.GetKnowledge().IndexPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create knowledge index directory: %w", err)
	}
	return knowledge.OpenStore(path, f.logger)
}

// CreateRetriever builds a retriever over an open store
func (f *KnowledgeFactory) CreateRetriever(store *knowledge.Store) (core.KnowledgeRetriever, error) {
	embedder, err := f.llm.CreateEmbedder()
	if err != nil {
		return nil, err
	}
	return knowledge.NewRetriever(store, embedder, f.logger), nil
}

// CreateIndexer builds an indexer over an open store
func (f *KnowledgeFactory) CreateIndexer(store *knowledge.Store) (*knowledge.Indexer, error) {
	embedder, err := f.llm.CreateEmbedder()
	if err != nil {
		return nil, err
	}
	kc := f.cfg.GetKnowledge()
	return knowledge.NewIndexer(store, embedder, knowledge.NewChunker(kc.ChunkSize, kc.ChunkOverlap), f.logger), nil
}
