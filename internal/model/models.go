// Package model defines the records shared by the acquisition and
// classification pipeline and the store contract that persists them.
package model

import "time"

// Language is one of the two languages the pipeline distinguishes.
type Language string

const (
	LangTurkish Language = "tr" // primary language
	LangEnglish Language = "en" // secondary language
)

// DefaultLanguage is assigned at extraction time, before detection runs.
const DefaultLanguage = LangTurkish

// Languages lists the supported languages, primary first.
var Languages = []Language{LangTurkish, LangEnglish}

// Category is one of the six fixed classification labels.
type Category string

const (
	CategoryNews     Category = "news"
	CategoryAcademic Category = "academic_announcements"
	CategoryEvents   Category = "events"
	CategoryResearch Category = "research_projects"
	CategoryStudent  Category = "student_announcements"
	CategoryOther    Category = "other" // catch-all
)

// SubstantiveCategories are the categories the rule pass and the
// statistical model can assign. CategoryOther is never learned.
var SubstantiveCategories = []Category{
	CategoryNews,
	CategoryAcademic,
	CategoryEvents,
	CategoryResearch,
	CategoryStudent,
}

var categoryLabels = map[Category]string{
	CategoryNews:     "Haberler",
	CategoryAcademic: "Akademik Duyurular",
	CategoryEvents:   "Etkinlikler",
	CategoryResearch: "Araştırma Projeleri",
	CategoryStudent:  "Öğrenci Duyuruları",
	CategoryOther:    "Diğer",
}

// Label returns the display label used in reports.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is one of the six known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Sentiment is the lexicon-based polarity label.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Method names the sub-strategy that produced a final category.
type Method string

const (
	MethodURLPattern  Method = "url_pattern"
	MethodKeyword     Method = "keyword_matching"
	MethodStatistical Method = "statistical"
	MethodDefault     Method = "default"
)

// PageRecord is a discovered URL plus whatever content has been fetched for it.
type PageRecord struct {
	ID           int64
	URL          string
	Title        string
	RawContent   string // plain text, empty until extraction
	Source       string // hostname
	DiscoveredAt time.Time
	UpdatedAt    time.Time
	Classified   bool
}

// Header is an h1-h6 element.
type Header struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Paragraph is a paragraph-like block of text.
type Paragraph struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Link is an anchor resolved against the page URL.
type Link struct {
	Text       string `json:"text"`
	URL        string `json:"url"`
	IsInternal bool   `json:"is_internal"`
	Order      int    `json:"order"`
}

// Image is an img element with an absolute source.
type Image struct {
	Alt   string `json:"alt"`
	Src   string `json:"src"`
	Order int    `json:"order"`
}

// ListKind distinguishes ol from ul.
type ListKind string

const (
	ListOrdered   ListKind = "ordered"
	ListUnordered ListKind = "unordered"
)

// List is a ul/ol element with its non-empty items.
type List struct {
	Kind  ListKind `json:"kind"`
	Items []string `json:"items"`
	Order int      `json:"order"`
}

// MinWordCount is the content-sufficiency threshold for StructuredContent.
const MinWordCount = 10

// StructuredContent is the typed decomposition of a page's HTML.
// Order fields share one counter, so they reflect document order
// across all element kinds.
type StructuredContent struct {
	PageID      int64
	URL         string
	Headers     []Header
	Paragraphs  []Paragraph
	Links       []Link
	Images      []Image
	Lists       []List
	CleanText   string
	WordCount   int
	Language    Language
	ExtractedAt time.Time
}

// HeaderTexts returns header texts in document order.
func (s *StructuredContent) HeaderTexts() []string {
	out := make([]string, 0, len(s.Headers))
	for _, h := range s.Headers {
		out = append(out, h.Text)
	}
	return out
}

// LinkTexts returns link texts in document order.
func (s *StructuredContent) LinkTexts() []string {
	out := make([]string, 0, len(s.Links))
	for _, l := range s.Links {
		out = append(out, l.Text)
	}
	return out
}

// FirstHeader returns the text of the first header of the given level,
// or of any level when level is 0.
func (s *StructuredContent) FirstHeader(level int) string {
	for _, h := range s.Headers {
		if level == 0 || h.Level == level {
			return h.Text
		}
	}
	return ""
}

// Keyword is a weighted term. Keyword lists are ordered by weight, highest first.
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Classification is the result of classifying one page.
type Classification struct {
	PageID         int64
	Category       Category
	Confidence     float64
	Sentiment      Sentiment
	SentimentScore float64
	Keywords       []Keyword
	Method         Method
	TokenCount     int
	Language       Language
	Model          string
	ClassifiedAt   time.Time
}

// TrainingItem is StructuredContent joined to its PageRecord.
type TrainingItem struct {
	PageID       int64
	URL          string
	Title        string
	CleanText    string
	WordCount    int
	HasWordCount bool
	Headers      []Header
	Links        []Link
}

// CategoryStat aggregates classifications for one category.
type CategoryStat struct {
	Category      Category
	Count         int
	AvgConfidence float64
}

// SentimentStat aggregates classifications for one sentiment label.
type SentimentStat struct {
	Sentiment Sentiment
	Count     int
	AvgScore  float64
}

// LanguageStat counts classifications per detected language.
type LanguageStat struct {
	Language Language
	Count    int
}

// Stats is a snapshot of pipeline progress.
type Stats struct {
	TotalPages      int
	ExtractedPages  int
	ClassifiedPages int
	Unclassified    int // eligible content without a classification
	Categories      []CategoryStat
	Sentiments      []SentimentStat
	Languages       []LanguageStat
}
