package search

import (
	"fmt"
	"strings"

	"github.com/masahif/campuscrawl/internal/textutil"
)

// DefaultBaseQuery is the institution name queries are built from.
const DefaultBaseQuery = "Gebze Teknik Üniversitesi"

// DefaultShortNames are the abbreviations used for the short query forms.
var DefaultShortNames = []string{"GTU", "GTÜ"}

var wideSuffixes = []string{
	"haberler", "duyurular", "etkinlikler",
	"araştırma", "projeler", "yayınlar", "akademik", "fakülteler", "bölümler",
	"öğrenci", "öğrenci kulüpleri", "burs", "staj",
	"konferans", "seminer", "workshop", "güncel", "son dakika",
	"mühendislik", "teknoloji", "bilim", "inovasyon",
}

// The first short name gets all of these, the others only the first two.
var shortSuffixes = []string{"haberler", "duyurular", "etkinlikler"}

// Queries returns the wide query list: the base query alone, the base
// query with every topic suffix, then the short forms.
func Queries(base string, shortNames ...string) []string {
	if base == "" {
		base = DefaultBaseQuery
	}
	if len(shortNames) == 0 {
		shortNames = DefaultShortNames
	}

	queries := []string{base}
	for _, s := range wideSuffixes {
		queries = append(queries, base+" "+s)
	}
	for i, name := range shortNames {
		suffixes := shortSuffixes
		if i > 0 {
			suffixes = shortSuffixes[:2]
		}
		for _, s := range suffixes {
			queries = append(queries, name+" "+s)
		}
	}
	return queries
}

type categoryTemplate struct {
	aliases []string
	// Each entry is a query template; %[1]s is the base query and %[2]s,
	// %[3]s are the first and second short names.
	templates []string
}

var categoryTemplates = []categoryTemplate{
	{
		aliases:   []string{"news", "haberler"},
		templates: []string{"%[1]s haberler", "%[2]s haberler", "%[3]s haberler", "%[1]s güncel", "%[2]s son dakika"},
	},
	{
		aliases:   []string{"announcements", "duyurular"},
		templates: []string{"%[1]s duyurular", "%[2]s duyurular", "%[3]s duyurular", "%[1]s açıklamalar"},
	},
	{
		aliases:   []string{"events", "etkinlikler"},
		templates: []string{"%[1]s etkinlikler", "%[2]s etkinlikler", "%[3]s etkinlikler", "%[1]s konferans", "%[2]s seminer", "%[2]s workshop"},
	},
	{
		aliases:   []string{"academic", "akademik"},
		templates: []string{"%[1]s araştırma", "%[2]s projeler", "%[3]s yayınlar", "%[1]s akademik", "%[2]s fakülteler"},
	},
	{
		aliases:   []string{"student", "öğrenci"},
		templates: []string{"%[1]s öğrenci", "%[2]s öğrenci kulüpleri", "%[3]s burs", "%[1]s staj"},
	},
}

// Categories lists the category names CategoryQueries accepts.
func Categories() []string {
	out := make([]string, 0, len(categoryTemplates))
	for _, c := range categoryTemplates {
		out = append(out, c.aliases[0])
	}
	return out
}

// CategoryQueries returns the focused query list for one category.
// English and Turkish category names are accepted.
func CategoryQueries(base, category string, shortNames ...string) ([]string, error) {
	if base == "" {
		base = DefaultBaseQuery
	}
	short := append([]string{}, shortNames...)
	short = append(short, DefaultShortNames...)

	key := textutil.Fold(strings.TrimSpace(category))
	for _, c := range categoryTemplates {
		for _, alias := range c.aliases {
			if alias != key {
				continue
			}
			queries := make([]string, 0, len(c.templates))
			for _, tmpl := range c.templates {
				queries = append(queries, fmt.Sprintf(tmpl, base, short[0], short[1]))
			}
			return queries, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownCategory, category, strings.Join(Categories(), ", "))
}
