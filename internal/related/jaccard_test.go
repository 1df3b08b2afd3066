package related

import (
	"math"
	"testing"

	"newsfeed/internal/domain"
)

func TestTitleSimilarity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{
			name: "identical",
			a:    "Senate votes on new law",
			b:    "Senate votes on new law",
			want: 1,
		},
		{
			name: "overlap three of five",
			a:    "Senate votes on new law",
			b:    "Senate votes on new bill",
			want: 0.6,
		},
		{
			name: "case insensitive",
			a:    "SENATE VOTES",
			b:    "senate votes",
			want: 1,
		},
		{
			name: "disjoint",
			a:    "football season opens",
			b:    "quarterly earnings report",
			want: 0,
		},
		{
			name: "both empty",
			a:    "",
			b:    "   ",
			want: 0,
		},
		{
			name: "duplicate words collapse",
			a:    "news news news",
			b:    "news",
			want: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := TitleSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("similarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}

			reversed := TitleSimilarity(tc.b, tc.a)
			if got != reversed {
				t.Fatalf("similarity not symmetric: %v vs %v", got, reversed)
			}
		})
	}
}

func TestFindSkipsSubject(t *testing.T) {
	t.Parallel()

	subject := domain.TitleRef{ID: 1, Title: "Senate votes on new law"}
	corpus := []domain.TitleRef{
		{ID: 1, Title: "Senate votes on new law"},
		{ID: 2, Title: "Senate votes on new bill"},
	}

	got := NewFinder().Find(subject, corpus)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected only article 2, got %v", got)
	}
}

func TestFindTakesCorpusOrderNotScoreOrder(t *testing.T) {
	t.Parallel()

	subject := domain.TitleRef{ID: 10, Title: "Senate votes on new law"}
	corpus := []domain.TitleRef{
		{ID: 1, Title: "Senate votes on old measures"},    // weaker match, earlier
		{ID: 2, Title: "Senate votes on new law tonight"}, // stronger match, later
	}

	got := NewFinder().Find(subject, corpus)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("expected corpus order [1 2], got [%d %d]", got[0].ID, got[1].ID)
	}
}

func TestFindStopsAtLimit(t *testing.T) {
	t.Parallel()

	subject := domain.TitleRef{ID: 100, Title: "Senate votes on new law"}
	var corpus []domain.TitleRef
	for id := int64(1); id <= 6; id++ {
		corpus = append(corpus, domain.TitleRef{ID: id, Title: "Senate votes on new law"})
	}

	got := NewFinder().Find(subject, corpus)
	if len(got) != DefaultLimit {
		t.Fatalf("expected %d matches, got %d", DefaultLimit, len(got))
	}
	for i, ref := range got {
		if ref.ID != int64(i+1) {
			t.Fatalf("expected first %d corpus entries, got %v", DefaultLimit, got)
		}
	}
}

func TestFindBelowThreshold(t *testing.T) {
	t.Parallel()

	subject := domain.TitleRef{ID: 1, Title: "alpha beta gamma delta epsilon zeta eta theta iota kappa"}
	corpus := []domain.TitleRef{
		{ID: 2, Title: "alpha noise1 noise2 noise3 noise4 noise5 noise6 noise7 noise8 noise9"},
	}

	if got := NewFinder().Find(subject, corpus); len(got) != 0 {
		t.Fatalf("expected no matches below threshold, got %v", got)
	}
}
