package classifier

import (
	"unicode/utf8"

	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/textutil"
)

var turkishStopWords = textutil.NewWordSet(
	"ve", "ile", "bir", "bu", "şu", "o", "için", "olan", "gibi", "kadar",
	"de", "da", "den", "dan", "ki", "mi", "mı", "mu", "mü", "var", "yok",
	"ise", "dır", "dir", "dur", "dür", "tır", "tir", "tur", "tür",
)

var englishStopWords = textutil.NewWordSet(
	"about", "above", "after", "again", "all", "also", "am", "an", "and",
	"another", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "came", "can", "cannot",
	"come", "could", "did", "do", "does", "doing", "during", "each", "few",
	"for", "from", "further", "get", "got", "has", "had", "have", "he", "her",
	"here", "him", "himself", "his", "how", "if", "in", "into", "is", "it",
	"its", "itself", "like", "make", "many", "me", "might", "more", "most",
	"much", "must", "my", "myself", "never", "now", "of", "on", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "said", "same",
	"see", "should", "since", "so", "some", "still", "such", "take", "than",
	"that", "the", "their", "theirs", "them", "themselves", "then", "there",
	"these", "they", "this", "those", "through", "to", "too", "under", "until",
	"up", "very", "was", "way", "we", "well", "were", "what", "where", "which",
	"while", "who", "with", "would", "you", "your", "yours", "yourself",
	"yourselves",
)

func stopWordsFor(lang model.Language) textutil.WordSet {
	if lang == model.LangEnglish {
		return englishStopWords
	}
	return turkishStopWords
}

// Tokenize lowercases text, splits it into words and drops tokens shorter
// than two characters, purely numeric tokens and stop words of lang.
func Tokenize(text string, lang model.Language) []string {
	stop := stopWordsFor(lang)
	words := textutil.Words(text)
	tokens := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 || textutil.IsNumeric(w) || stop.Has(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}
