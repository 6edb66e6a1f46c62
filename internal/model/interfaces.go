package model

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Store lookups that match no record.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientContent is returned when structured content below
	// MinWordCount words, or with a word count that does not match its
	// clean text, is written.
	ErrInsufficientContent = errors.New("insufficient structured content")
)

// Store persists pages, structured content and classifications.
// Each method is atomic for the record it touches; no cross-record
// transactions are implied except UpsertClassification, which also
// sets the page's classified flag.
type Store interface {
	// Pages
	FindPage(ctx context.Context, url string) (*PageRecord, error)
	FindPageByID(ctx context.Context, id int64) (*PageRecord, error)
	UpsertPage(ctx context.Context, page *PageRecord) error
	DeletePage(ctx context.Context, id int64) error

	// Structured content
	FindStructuredContent(ctx context.Context, pageID int64) (*StructuredContent, error)
	UpsertStructuredContent(ctx context.Context, content *StructuredContent) error
	DeleteStructuredContent(ctx context.Context, pageID int64) error

	// Classifications
	FindClassification(ctx context.Context, pageID int64) (*Classification, error)
	UpsertClassification(ctx context.Context, c *Classification) error

	// Work lists
	ListUnextractedPages(ctx context.Context, limit int) ([]PageRecord, error)
	ListUnclassifiedContent(ctx context.Context, limit int) ([]StructuredContent, error)
	ListTrainingItems(ctx context.Context) ([]TrainingItem, error)

	Stats(ctx context.Context) (*Stats, error)

	// Run metadata (last run ids, timestamps)
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}
