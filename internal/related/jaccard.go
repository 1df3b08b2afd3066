package related

import (
	"strings"

	"newsfeed/internal/domain"
	"newsfeed/internal/ports"
)

const (
	// DefaultThreshold is the minimum title similarity for two articles to
	// count as related.
	DefaultThreshold = 0.3
	// DefaultLimit bounds how many related articles one article may hold.
	DefaultLimit = 3
)

// Finder links articles by lexical similarity of their titles.
type Finder struct {
	Threshold float64
	Limit     int
}

var _ ports.RelatedFinder = (*Finder)(nil)

// NewFinder returns a Finder with the default threshold and limit.
func NewFinder() *Finder {
	return &Finder{Threshold: DefaultThreshold, Limit: DefaultLimit}
}

// Find scans the corpus in its given (persisted) order and returns the first
// Limit articles whose title similarity reaches the threshold. Matches are
// taken in corpus order, not ranked by score.
func (f *Finder) Find(subject domain.TitleRef, corpus []domain.TitleRef) []domain.TitleRef {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var matches []domain.TitleRef
	for _, candidate := range corpus {
		if candidate.ID == subject.ID {
			continue
		}
		if TitleSimilarity(subject.Title, candidate.Title) < f.Threshold {
			continue
		}
		matches = append(matches, candidate)
		if len(matches) == limit {
			break
		}
	}

	return matches
}

// TitleSimilarity computes Jaccard similarity over lower-cased,
// whitespace-tokenized title words. An empty union scores 0.
func TitleSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	var intersection int
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func tokenSet(title string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(title))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
