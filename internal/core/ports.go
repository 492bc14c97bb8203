package core

import (
	"context"
	"time"
)

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Generate returns the model's text reply to the prompt
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Embedder turns text into vectors for the knowledge index
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// KnowledgeRetriever returns the passages most relevant to a query
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

// Mailbox is the provider-neutral mailbox capability set
type Mailbox interface {
	// FetchUnanswered returns unread inbound messages, one per thread, skipping
	// threads that already have a draft and mail sent by the account itself
	FetchUnanswered(ctx context.Context, limit int) ([]Email, error)

	// CreateDraftReply stores a threaded reply draft
	CreateDraftReply(ctx context.Context, original Email, text string) error

	// SendReply sends a threaded reply
	SendReply(ctx context.Context, original Email, text string) error

	// FetchDraftReplies lists existing reply drafts
	FetchDraftReplies(ctx context.Context) ([]Draft, error)

	// Cleanup releases pooled resources; safe to call more than once
	Cleanup() error
}

// InboxReporter is implemented by mailboxes that can report on recent mail
type InboxReporter interface {
	FetchRecent(ctx context.Context, window time.Duration, limit int) ([]Email, error)
	Stats(ctx context.Context, window time.Duration) (*InboxStats, error)
}

// RunRepository stores the history of workflow runs
type RunRepository interface {
	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*RunRecord, error)

	// Save stores a run record
	Save(ctx context.Context, record *RunRecord) error

	// Recent returns the newest runs first
	Recent(ctx context.Context, limit int) ([]RunRecord, error)

	// Delete removes a run record
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired records
	Cleanup(ctx context.Context) error
}

// RunNotifier is told about every finished run
type RunNotifier interface {
	NotifyRun(ctx context.Context, record *RunRecord) error
}
