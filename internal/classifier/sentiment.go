package classifier

import (
	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/textutil"
)

type lexicon struct {
	positive textutil.WordSet
	negative textutil.WordSet
}

var sentimentLexicons = map[model.Language]lexicon{
	model.LangTurkish: {
		positive: textutil.NewWordSet("başarı", "ödül", "tebrik", "kutlama", "başarılı", "güzel", "iyi", "harika"),
		negative: textutil.NewWordSet("sorun", "problem", "hata", "başarısız", "kötü", "üzücü"),
	},
	model.LangEnglish: {
		positive: textutil.NewWordSet("success", "award", "congratulations", "celebration", "successful", "good", "great", "excellent"),
		negative: textutil.NewWordSet("problem", "issue", "error", "failed", "bad", "sad"),
	},
}

const sentimentThreshold = 0.2

// Sentiment scores text against the lexicon of lang. The score is
// (pos-neg)/(pos+neg), or 0 when nothing matched.
func Sentiment(text string, lang model.Language) (model.Sentiment, float64) {
	lex, ok := sentimentLexicons[lang]
	if !ok {
		lex = sentimentLexicons[model.DefaultLanguage]
	}

	var pos, neg int
	for _, w := range textutil.Words(text) {
		if lex.positive.Has(w) {
			pos++
		}
		if lex.negative.Has(w) {
			neg++
		}
	}
	if pos+neg == 0 {
		return model.SentimentNeutral, 0
	}

	score := clamp(float64(pos-neg)/float64(pos+neg), -1, 1)
	return SentimentLabel(score), score
}

// SentimentLabel maps a score to its label: above 0.2 is positive, below
// -0.2 is negative.
func SentimentLabel(score float64) model.Sentiment {
	switch {
	case score > sentimentThreshold:
		return model.SentimentPositive
	case score < -sentimentThreshold:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
