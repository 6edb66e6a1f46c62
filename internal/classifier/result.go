package classifier

import "github.com/masahif/campuscrawl/internal/model"

// Kind tags which pass produced a Result.
type Kind int

const (
	KindNone Kind = iota
	KindRule
	KindStatistical
)

func (k Kind) String() string {
	switch k {
	case KindRule:
		return "rule"
	case KindStatistical:
		return "statistical"
	default:
		return "none"
	}
}

// Result is the outcome of one classification pass. The zero value is
// the None variant.
type Result struct {
	Kind       Kind
	Category   model.Category
	Confidence float64
	Method     model.Method
}

// None reports whether the pass produced nothing.
func (r Result) None() bool { return r.Kind == KindNone }

const (
	ruleOverrideConfidence      = 0.8
	statisticalAcceptConfidence = 0.6
	defaultConfidence           = 0.5
)

// Arbitrate combines the rule and statistical results. A rule result at
// 0.8 or above wins outright; otherwise a statistical result at 0.6 or
// above wins; otherwise whichever exists, rule first. With neither, the
// catch-all category is returned at 0.5.
func Arbitrate(rule, stat Result) Result {
	switch {
	case rule.Kind == KindRule && rule.Confidence >= ruleOverrideConfidence:
		return rule
	case stat.Kind == KindStatistical && stat.Confidence >= statisticalAcceptConfidence:
		return stat
	case rule.Kind == KindRule:
		return rule
	case stat.Kind == KindStatistical:
		return stat
	}
	return Result{
		Category:   model.CategoryOther,
		Confidence: defaultConfidence,
		Method:     model.MethodDefault,
	}
}
