package classifier

import (
	"math"
	"strings"

	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/textutil"
)

// RuleInput is everything the rule pass looks at.
type RuleInput struct {
	URL       string
	Title     string
	CleanText string
	Headers   []string
	LinkTexts []string
}

// InputFor builds the rule input of a page and its structured content.
func InputFor(page *model.PageRecord, content *model.StructuredContent) RuleInput {
	return RuleInput{
		URL:       page.URL,
		Title:     page.Title,
		CleanText: content.CleanText,
		Headers:   content.HeaderTexts(),
		LinkTexts: content.LinkTexts(),
	}
}

// InputForItem builds the rule input of a training item.
func InputForItem(item model.TrainingItem) RuleInput {
	in := RuleInput{URL: item.URL, Title: item.Title, CleanText: item.CleanText}
	for _, h := range item.Headers {
		in.Headers = append(in.Headers, h.Text)
	}
	for _, l := range item.Links {
		in.LinkTexts = append(in.LinkTexts, l.Text)
	}
	return in
}

type urlRule struct {
	fragments  []string
	category   model.Category
	confidence float64
}

// Checked in order; the first matching fragment decides.
var urlRules = []urlRule{
	{fragments: []string{"/haber", "/news", "/haberler"}, category: model.CategoryNews, confidence: 0.9},
	{fragments: []string{"/duyuru", "/announcement", "/duyurular"}, category: model.CategoryAcademic, confidence: 0.85},
	{fragments: []string{"/etkinlik", "/event", "/etkinlikler"}, category: model.CategoryEvents, confidence: 0.9},
}

type keywordRule struct {
	category model.Category
	phrases  []textutil.Phrase
}

func newKeywordRule(c model.Category, terms ...string) keywordRule {
	r := keywordRule{category: c}
	for _, t := range terms {
		r.phrases = append(r.phrases, textutil.NewPhrase(t))
	}
	return r
}

var keywordRules = []keywordRule{
	newKeywordRule(model.CategoryNews,
		"haber", "news", "güncel", "son dakika", "duyuru", "açıklama",
		"başarı", "ödül", "tebrik", "kutlama", "açılış", "tören"),
	newKeywordRule(model.CategoryAcademic,
		"akademik", "academic", "duyuru", "announcement", "ilan", "pozisyon",
		"öğretim üyesi", "öğretim elemanı", "başvuru", "application",
		"yönetmelik", "yönerge", "karar", "toplantı"),
	newKeywordRule(model.CategoryEvents,
		"etkinlik", "event", "seminer", "seminar", "konferans", "conference",
		"workshop", "çalıştay", "panel", "söyleşi", "sergi", "exhibition",
		"konser", "concert", "tarih", "date", "saat", "time", "yer", "location"),
	newKeywordRule(model.CategoryResearch,
		"araştırma", "research", "proje", "project", "ar-ge", "r&d",
		"inovasyon", "innovation", "teknoloji transfer", "patent",
		"yayın", "publication", "makale", "article", "tübitak"),
	newKeywordRule(model.CategoryStudent,
		"öğrenci", "student", "burs", "scholarship", "staj", "internship",
		"kariyer", "career", "iş", "job", "kulüp", "club", "topluluk",
		"sosyal", "spor", "sport", "kültür", "culture"),
}

// RuleClassify runs the URL pattern check, then keyword scoring. It
// returns a None result when no URL fragment matches and no category
// has a strictly highest nonzero keyword score.
func RuleClassify(in RuleInput) Result {
	if r, ok := matchURL(in.URL); ok {
		return r
	}

	scores := KeywordScores(in)
	best, bestScore, tied := model.Category(""), 0, false
	for _, rule := range keywordRules {
		s := scores[rule.category]
		switch {
		case s > bestScore:
			best, bestScore, tied = rule.category, s, false
		case s == bestScore && s > 0:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return Result{}
	}

	return Result{
		Kind:       KindRule,
		Category:   best,
		Confidence: math.Min(0.6+float64(bestScore)/10, 0.9),
		Method:     model.MethodKeyword,
	}
}

func matchURL(rawURL string) (Result, bool) {
	u := strings.ToLower(rawURL)
	for _, rule := range urlRules {
		for _, f := range rule.fragments {
			if strings.Contains(u, f) {
				return Result{
					Kind:       KindRule,
					Category:   rule.category,
					Confidence: rule.confidence,
					Method:     model.MethodURLPattern,
				}, true
			}
		}
	}
	return Result{}, false
}

// KeywordScores counts whole-word keyword hits per substantive category
// over the title, clean text, header texts and link texts.
func KeywordScores(in RuleInput) map[model.Category]int {
	parts := make([]string, 0, 2+len(in.Headers)+len(in.LinkTexts))
	parts = append(parts, in.Title, in.CleanText)
	parts = append(parts, in.Headers...)
	parts = append(parts, in.LinkTexts...)
	words := textutil.Words(strings.Join(parts, " "))

	scores := make(map[model.Category]int, len(keywordRules))
	for _, rule := range keywordRules {
		n := 0
		for _, p := range rule.phrases {
			n += p.Count(words)
		}
		scores[rule.category] = n
	}
	return scores
}
