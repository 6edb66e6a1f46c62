package search

import (
	"errors"
	"testing"
)

func TestQueries(t *testing.T) {
	queries := Queries("")

	want := 1 + len(wideSuffixes) + len(shortSuffixes) + 2
	if len(queries) != want {
		t.Fatalf("Expected %d queries, got %d", want, len(queries))
	}
	if queries[0] != DefaultBaseQuery {
		t.Errorf("Expected base query first, got %q", queries[0])
	}
	if queries[1] != DefaultBaseQuery+" haberler" {
		t.Errorf("Unexpected second query %q", queries[1])
	}
	if last := queries[len(queries)-1]; last != "GTÜ duyurular" {
		t.Errorf("Unexpected last query %q", last)
	}

	custom := Queries("ODTÜ", "METU")
	if custom[0] != "ODTÜ" || custom[len(custom)-1] != "METU etkinlikler" {
		t.Errorf("Custom names not used: %v", custom)
	}
}

func TestCategoryQueries(t *testing.T) {
	tests := []struct {
		category string
		first    string
		count    int
	}{
		{"news", "Gebze Teknik Üniversitesi haberler", 5},
		{"Duyurular", "Gebze Teknik Üniversitesi duyurular", 4},
		{" events ", "Gebze Teknik Üniversitesi etkinlikler", 6},
		{"ÖĞRENCİ", "Gebze Teknik Üniversitesi öğrenci", 4},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			queries, err := CategoryQueries("", tt.category)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(queries) != tt.count || queries[0] != tt.first {
				t.Errorf("Got %v", queries)
			}
		})
	}

	queries, err := CategoryQueries("", "academic")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if queries[1] != "GTU projeler" || queries[2] != "GTÜ yayınlar" {
		t.Errorf("Short names not substituted: %v", queries)
	}

	if _, err := CategoryQueries("", "sports"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("Expected ErrUnknownCategory, got %v", err)
	}
}
