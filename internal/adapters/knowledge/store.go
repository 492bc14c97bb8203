package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	source     TEXT NOT NULL,
	position   INTEGER NOT NULL,
	content    TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	indexed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Chunk is one stored piece of a knowledge document
type Chunk struct {
	Source    string
	Position  int
	Content   string
	Embedding []float32
}

// Store persists knowledge chunks and their embeddings in SQLite
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// OpenStore opens (or creates) the knowledge index at path
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize knowledge schema: %w", err)
	}

	logger.Info("Opened knowledge index", zap.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceSource swaps every chunk of a source for the given chunks in one transaction
func (s *Store) ReplaceSource(ctx context.Context, source string, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", source, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (source, position, content, embedding, indexed_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, source, c.Position, c.Content, encodeVector(c.Embedding), now); err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", c.Position, source, err)
		}
	}
	return tx.Commit()
}

// All returns every stored chunk ordered by source and position
func (s *Store) All(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, position, content, embedding FROM chunks ORDER BY source, position`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.Source, &c.Position, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %s: %w", c.Position, c.Source, err)
		}
		c.Embedding = vec
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Count returns the number of stored chunks
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// encodeVector stores a vector as little-endian float32s
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has invalid length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
