// Package classifier assigns a category, sentiment and keyword list to a
// page's structured content. A deterministic rule pass and an optional
// per-language statistical model are combined by Arbitrate.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/masahif/campuscrawl/internal/langdetect"
	"github.com/masahif/campuscrawl/internal/model"
)

// ErrMissingInput is returned when the page or its structured content
// does not exist. It wraps model.ErrNotFound.
var ErrMissingInput = errors.New("classification input missing")

// Classifier evaluates pages against the models in its ModelStore.
type Classifier struct {
	store  model.Store
	models *ModelStore
	now    func() time.Time
}

// New creates a classifier. store may be nil when only Evaluate is used.
func New(store model.Store, models *ModelStore) *Classifier {
	if models == nil {
		models = NewModelStore()
	}
	return &Classifier{store: store, models: models, now: time.Now}
}

// Models returns the model store the classifier reads from.
func (c *Classifier) Models() *ModelStore { return c.models }

// Classify loads page pageID and its structured content, evaluates them
// and persists the classification, which also marks the page classified.
func (c *Classifier) Classify(ctx context.Context, pageID int64) (*model.Classification, error) {
	page, err := c.store.FindPageByID(ctx, pageID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: page %d: %w", ErrMissingInput, pageID, err)
		}
		return nil, fmt.Errorf("failed to load page %d: %w", pageID, err)
	}

	content, err := c.store.FindStructuredContent(ctx, pageID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: structured content of page %d: %w", ErrMissingInput, pageID, err)
		}
		return nil, fmt.Errorf("failed to load structured content of page %d: %w", pageID, err)
	}

	result := c.Evaluate(page, content)

	if err := c.store.UpsertClassification(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save classification of page %d: %w", pageID, err)
	}

	slog.Info("Classified page",
		"page_id", pageID,
		"url", page.URL,
		"category", result.Category,
		"confidence", result.Confidence,
		"method", result.Method,
		"language", result.Language)
	return result, nil
}

// Evaluate classifies page and content without touching the store.
func (c *Classifier) Evaluate(page *model.PageRecord, content *model.StructuredContent) *model.Classification {
	lang := langdetect.Detect(content.CleanText)
	tokens := Tokenize(content.CleanText, lang)

	rule := RuleClassify(InputFor(page, content))
	stat := c.statistical(lang, tokens)
	final := Arbitrate(rule, stat)

	sentiment, score := Sentiment(content.CleanText, lang)

	return &model.Classification{
		PageID:         page.ID,
		Category:       final.Category,
		Confidence:     final.Confidence,
		Sentiment:      sentiment,
		SentimentScore: score,
		Keywords:       Keywords(tokens),
		Method:         final.Method,
		TokenCount:     len(tokens),
		Language:       lang,
		Model:          fmt.Sprintf("%s_hybrid", lang),
		ClassifiedAt:   c.now().UTC(),
	}
}

func (c *Classifier) statistical(lang model.Language, tokens []string) (res Result) {
	m := c.models.Get(lang)
	if m == nil {
		slog.Debug("No trained model, using rules only", "language", lang)
		return Result{}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Statistical pass failed", "language", lang, "panic", r)
			res = Result{}
		}
	}()
	return m.Predict(tokens)
}
