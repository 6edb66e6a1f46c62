package classifier

import (
	"math"
	"sort"
	"sync/atomic"

	"github.com/jbrukh/bayesian"

	"github.com/masahif/campuscrawl/internal/model"
)

// Model is a per-language Naive Bayes classifier over the substantive
// categories. A Model is built once by training and then only read.
type Model struct {
	language model.Language
	nb       *bayesian.Classifier
	samples  map[model.Category]int
}

// NewModel creates an untrained model for lang.
func NewModel(lang model.Language) *Model {
	classes := make([]bayesian.Class, 0, len(model.SubstantiveCategories))
	for _, c := range model.SubstantiveCategories {
		classes = append(classes, bayesian.Class(c))
	}
	return &Model{
		language: lang,
		nb:       bayesian.NewClassifier(classes...),
		samples:  make(map[model.Category]int),
	}
}

// Language returns the language the model was trained for.
func (m *Model) Language() model.Language { return m.language }

// Learn adds one labelled token list. Empty lists and the catch-all
// category are ignored.
func (m *Model) Learn(tokens []string, category model.Category) bool {
	if len(tokens) == 0 || category == model.CategoryOther || !category.Valid() {
		return false
	}
	m.nb.Learn(tokens, bayesian.Class(category))
	m.samples[category]++
	return true
}

// Samples returns the number of learned documents.
func (m *Model) Samples() int {
	n := 0
	for _, c := range m.samples {
		n += c
	}
	return n
}

// SamplesByCategory returns learned document counts per category.
func (m *Model) SamplesByCategory() map[model.Category]int {
	out := make(map[model.Category]int, len(m.samples))
	for c, n := range m.samples {
		out[c] = n
	}
	return out
}

// Predict returns the most probable category for tokens and its
// posterior probability. Categories never seen in training get
// probability zero.
func (m *Model) Predict(tokens []string) Result {
	if len(tokens) == 0 || m.Samples() == 0 {
		return Result{}
	}

	scores, _, _ := m.nb.LogScores(tokens)
	probs := softmax(scores)
	best := -1
	for i, p := range probs {
		if p > 0 && (best < 0 || p > probs[best]) {
			best = i
		}
	}
	if best < 0 {
		return Result{}
	}

	return Result{
		Kind:       KindStatistical,
		Category:   model.Category(m.nb.Classes[best]),
		Confidence: probs[best],
		Method:     model.MethodStatistical,
	}
}

func softmax(logs []float64) []float64 {
	maxLog := math.Inf(-1)
	for _, l := range logs {
		if l > maxLog {
			maxLog = l
		}
	}
	probs := make([]float64, len(logs))
	if math.IsInf(maxLog, -1) {
		return probs
	}

	var sum float64
	for i, l := range logs {
		probs[i] = math.Exp(l - maxLog)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// ModelStore holds the current per-language models. Readers see either
// the full previous set or the full new set, never a mix.
type ModelStore struct {
	models atomic.Pointer[map[model.Language]*Model]
}

// NewModelStore creates an empty store.
func NewModelStore() *ModelStore {
	s := &ModelStore{}
	empty := make(map[model.Language]*Model)
	s.models.Store(&empty)
	return s
}

// Get returns the model for lang, or nil when none is trained.
func (s *ModelStore) Get(lang model.Language) *Model {
	return (*s.models.Load())[lang]
}

// Swap replaces every model at once and returns the previous set.
func (s *ModelStore) Swap(models map[model.Language]*Model) map[model.Language]*Model {
	next := make(map[model.Language]*Model, len(models))
	for lang, m := range models {
		if m != nil {
			next[lang] = m
		}
	}
	return *s.models.Swap(&next)
}

// Languages lists the languages with a trained model, sorted.
func (s *ModelStore) Languages() []model.Language {
	current := *s.models.Load()
	langs := make([]model.Language, 0, len(current))
	for lang := range current {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}
