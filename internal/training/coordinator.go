// Package training rebuilds the per-language statistical models from
// stored content, labelling each item with the rule pass.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/masahif/campuscrawl/internal/classifier"
	"github.com/masahif/campuscrawl/internal/langdetect"
	"github.com/masahif/campuscrawl/internal/model"
)

// Status is the outcome of a training run.
type Status string

const (
	StatusOK                Status = "ok"
	StatusNoSourceData      Status = "no_source_data"
	StatusNoValidData       Status = "no_valid_data"
	StatusNoConfidentLabels Status = "no_confident_labels"
)

const (
	// Rule results above this confidence become training labels.
	labelConfidence = 0.7
	// Items without a word count need at least this many characters.
	minCleanTextChars = 50
)

// LanguageReport describes one language bucket of a run.
type LanguageReport struct {
	Items      int                    // valid items detected in this language
	Labelled   int                    // items that became training samples
	Categories map[model.Category]int // samples per category
	Trained    bool                   // a model was installed
}

// Report summarises a training run. A non-ok Status is a normal result,
// not an error.
type Report struct {
	RunID     string
	Status    Status
	Source    int // items read from the store
	Valid     int // items that passed the validity check
	Languages map[model.Language]*LanguageReport
	StartedAt time.Time
	Duration  time.Duration
}

// Samples returns the number of valid items bucketed under lang.
func (r *Report) Samples(lang model.Language) int {
	if lr, ok := r.Languages[lang]; ok {
		return lr.Items
	}
	return 0
}

// Coordinator owns the ModelStore the classifier reads from.
type Coordinator struct {
	store  model.Store
	models *classifier.ModelStore
}

// NewCoordinator creates a coordinator that installs models into models.
func NewCoordinator(store model.Store, models *classifier.ModelStore) *Coordinator {
	return &Coordinator{store: store, models: models}
}

// Train builds fresh models for every language that has at least one
// confidently labelled item and atomically replaces all previous models.
// A language with no confident labels ends up without a model.
func (c *Coordinator) Train(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		Languages: make(map[model.Language]*LanguageReport),
		StartedAt: time.Now().UTC(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	slog.Info("Starting model training", "run_id", report.RunID)

	items, err := c.store.ListTrainingItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training items: %w", err)
	}
	report.Source = len(items)

	if len(items) == 0 {
		report.Status = StatusNoSourceData
		slog.Warn("No structured content to train on", "run_id", report.RunID)
		c.models.Swap(nil)
		return report, nil
	}

	buckets := make(map[model.Language][]model.TrainingItem)
	for _, item := range items {
		if !Valid(item) {
			continue
		}
		report.Valid++
		lang := langdetect.Detect(item.CleanText)
		buckets[lang] = append(buckets[lang], item)
	}

	if report.Valid == 0 {
		report.Status = StatusNoValidData
		slog.Warn("No valid training data", "run_id", report.RunID, "source", report.Source)
		c.models.Swap(nil)
		return report, nil
	}

	models := make(map[model.Language]*classifier.Model)
	for _, lang := range model.Languages {
		bucket := buckets[lang]
		if len(bucket) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, lr := buildModel(lang, bucket)
		report.Languages[lang] = lr
		if m != nil {
			models[lang] = m
		}

		slog.Info("Language bucket processed",
			"run_id", report.RunID,
			"language", lang,
			"items", lr.Items,
			"labelled", lr.Labelled,
			"trained", lr.Trained)
	}

	c.models.Swap(models)

	if len(models) == 0 {
		report.Status = StatusNoConfidentLabels
	} else {
		report.Status = StatusOK
	}

	slog.Info("Model training finished",
		"run_id", report.RunID,
		"status", report.Status,
		"source", report.Source,
		"valid", report.Valid,
		"models", len(models))
	return report, nil
}

func buildModel(lang model.Language, items []model.TrainingItem) (*classifier.Model, *LanguageReport) {
	lr := &LanguageReport{Items: len(items), Categories: make(map[model.Category]int)}
	m := classifier.NewModel(lang)

	for _, item := range items {
		rule := classifier.RuleClassify(classifier.InputForItem(item))
		if rule.Kind != classifier.KindRule || rule.Confidence <= labelConfidence {
			continue
		}
		if m.Learn(classifier.Tokenize(item.CleanText, lang), rule.Category) {
			lr.Labelled++
			lr.Categories[rule.Category]++
		}
	}

	if lr.Labelled == 0 {
		return nil, lr
	}
	lr.Trained = true
	return m, lr
}

// Valid reports whether item can be used for training: it needs a URL,
// a title and clean text, and either a word count of at least 10 or, when no
// word count is recorded, at least 50 characters of clean text.
func Valid(item model.TrainingItem) bool {
	if item.URL == "" || item.Title == "" || item.CleanText == "" {
		return false
	}
	if item.HasWordCount {
		return item.WordCount >= model.MinWordCount
	}
	return utf8.RuneCountInString(item.CleanText) >= minCleanTextChars
}
