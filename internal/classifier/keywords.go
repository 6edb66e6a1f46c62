package classifier

import (
	"math"
	"sort"

	"github.com/masahif/campuscrawl/internal/model"
)

// MaxKeywords is the length of a classification's keyword list.
const MaxKeywords = 10

// Keywords weights each distinct token by tf*idf where the corpus is the
// single document itself, so idf = 1 + ln(1/2) for every term. The top
// MaxKeywords terms are returned, heaviest first; equal weights keep
// first-occurrence order.
func Keywords(tokens []string) []model.Keyword {
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]int, len(tokens))
	var order []string
	for _, t := range tokens {
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	idf := 1 + math.Log(1.0/(1.0+1.0))
	keywords := make([]model.Keyword, 0, len(order))
	for _, t := range order {
		keywords = append(keywords, model.Keyword{Term: t, Weight: float64(counts[t]) * idf})
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].Weight > keywords[j].Weight
	})

	if len(keywords) > MaxKeywords {
		keywords = keywords[:MaxKeywords]
	}
	return keywords
}
