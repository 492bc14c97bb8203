package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
)

const embedBatchSize = 32

var indexedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// IndexReport summarises an indexing pass
type IndexReport struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

// Indexer chunks documents, embeds the chunks and stores them
type Indexer struct {
	store    *Store
	embedder core.Embedder
	chunker  *Chunker
	logger   *zap.Logger
}

// NewIndexer creates a new indexer
func NewIndexer(store *Store, embedder core.Embedder, chunker *Chunker, logger *zap.Logger) *Indexer {
	return &Indexer{store: store, embedder: embedder, chunker: chunker, logger: logger}
}

// IndexDir indexes every text and markdown file under dir. Sources are keyed
// by their path relative to dir, so re-indexing replaces earlier chunks.
func (ix *Indexer) IndexDir(ctx context.Context, dir string) (*IndexReport, error) {
	report := &IndexReport{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !indexedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		n, err := ix.IndexDocument(ctx, filepath.ToSlash(rel), string(data))
		if err != nil {
			return err
		}
		report.Files++
		report.Chunks += n
		return nil
	})
	if err != nil {
		return report, err
	}

	ix.logger.Info("Knowledge index built",
		zap.String("dir", dir),
		zap.Int("files", report.Files),
		zap.Int("chunks", report.Chunks))
	return report, nil
}

// IndexDocument chunks and embeds one document, replacing any earlier version
func (ix *Indexer) IndexDocument(ctx context.Context, source, text string) (int, error) {
	pieces := ix.chunker.Split(text)
	chunks := make([]Chunk, 0, len(pieces))

	for start := 0; start < len(pieces); start += embedBatchSize {
		end := min(start+embedBatchSize, len(pieces))
		vectors, err := ix.embedder.Embed(ctx, pieces[start:end])
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", source, err)
		}
		if len(vectors) != end-start {
			return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", source, len(vectors), end-start)
		}
		for i, v := range vectors {
			chunks = append(chunks, Chunk{
				Source:    source,
				Position:  start + i,
				Content:   pieces[start+i],
				Embedding: v,
			})
		}
	}

	if err := ix.store.ReplaceSource(ctx, source, chunks); err != nil {
		return 0, err
	}
	ix.logger.Debug("Indexed document", zap.String("source", source), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}
