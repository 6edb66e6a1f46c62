// Package langdetect decides whether a text span is Turkish or English
// using diacritics and common-word counts.
package langdetect

import (
	"strings"
	"unicode/utf8"

	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/textutil"
)

const (
	// Texts shorter than this (in runes) are decided by diacritics alone.
	shortTextRunes = 10
	// A language wins on word counts only with this margin over the other.
	dominanceRatio = 1.5
)

// Turkish letters absent from English. ASCII 'I' is deliberately not listed.
const turkishDiacritics = "çğıöşüÇĞİÖŞÜ"

var turkishWords = textutil.NewWordSet(
	"ve", "bir", "bu", "şu", "için", "ile", "da", "de", "olan", "gibi",
	"daha", "çok", "ama", "veya", "olarak", "kadar", "sonra", "tüm", "yeni",
	"hakkında", "tarafından", "üniversite", "üniversitesi", "öğrenci",
	"öğrencileri", "bölüm", "bölümü", "fakülte", "fakültesi", "duyuru",
	"duyurular", "haber", "haberler", "etkinlik", "etkinlikler", "araştırma",
)

var englishWords = textutil.NewWordSet(
	"the", "and", "of", "to", "in", "for", "is", "with", "on", "at", "by",
	"from", "are", "this", "that", "be", "as", "will", "an", "or", "university",
	"student", "students", "department", "faculty", "news", "event", "events",
	"announcement", "announcements", "research", "about",
)

// Result carries the decision and the evidence behind it.
type Result struct {
	Language     model.Language
	Diacritics   bool
	TurkishScore int
	EnglishScore int
}

// Detect returns the language of text.
func Detect(text string) model.Language {
	return Analyze(text).Language
}

// Analyze scores text and returns the decision with its evidence.
func Analyze(text string) Result {
	text = strings.TrimSpace(text)
	res := Result{Diacritics: strings.ContainsAny(text, turkishDiacritics)}

	if utf8.RuneCountInString(text) < shortTextRunes {
		if res.Diacritics {
			res.Language = model.LangTurkish
		} else {
			res.Language = model.LangEnglish
		}
		return res
	}

	for _, w := range textutil.Words(text) {
		if turkishWords.Has(w) {
			res.TurkishScore++
		}
		if englishWords.Has(w) {
			res.EnglishScore++
		}
	}

	res.Language = decide(res)
	return res
}

func decide(r Result) model.Language {
	if r.Diacritics {
		return model.LangTurkish
	}
	tr, en := float64(r.TurkishScore), float64(r.EnglishScore)
	switch {
	case en > 0 && en >= tr*dominanceRatio:
		return model.LangEnglish
	case tr > 0 && tr >= en*dominanceRatio:
		return model.LangTurkish
	default:
		return model.LangTurkish
	}
}
