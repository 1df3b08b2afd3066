package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"newsfeed/internal/ports"
)

// maxModelCategories caps the primary path only; the keyword fallback is
// deliberately uncapped for behavioral parity with the original system.
const maxModelCategories = 3

// Strategy is one classification attempt. Strategies run in order; the first
// one that succeeds wins, even when it returns no categories. An error moves
// on to the next strategy.
type Strategy interface {
	Name() string
	Categories(ctx context.Context, text string) ([]string, error)
}

// Classifier runs the ordered strategy chain: generative model first, then
// deterministic keyword matching. The keyword strategy cannot fail, so
// Classify itself never fails.
type Classifier struct {
	strategies []Strategy
	logger     *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// New builds the standard two-tier chain. A nil generator skips the model tier.
func New(gen ports.TextGenerator, logger *slog.Logger) *Classifier {
	var strategies []Strategy
	if gen != nil {
		strategies = append(strategies, &modelStrategy{gen: gen})
	}
	strategies = append(strategies, keywordStrategy{})
	return &Classifier{strategies: strategies, logger: logger}
}

// Classify returns taxonomy categories for the given article text.
func (c *Classifier) Classify(ctx context.Context, text string) []string {
	for _, strategy := range c.strategies {
		categories, err := strategy.Categories(ctx, text)
		if err != nil {
			// A degraded fallback, not an error condition.
			c.debug("classification strategy fell back", "strategy", strategy.Name(), "error", err)
			continue
		}
		return categories
	}
	return nil
}

func (c *Classifier) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// modelStrategy asks a generative model for a constrained JSON array.
type modelStrategy struct {
	gen ports.TextGenerator
}

func (s *modelStrategy) Name() string { return "model" }

func (s *modelStrategy) Categories(ctx context.Context, text string) ([]string, error) {
	response, err := s.gen.Generate(ctx, buildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	raw, err := extractArray(response)
	if err != nil {
		return nil, err
	}

	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse category array: %w", err)
	}

	var categories []string
	for _, name := range parsed {
		canonical, ok := canonicalNames[lower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		categories = append(categories, canonical)
		if len(categories) == maxModelCategories {
			break
		}
	}

	return categories, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf(
		"You are a news categorization assistant. Assign at most %d categories to the article below, "+
			"strictly from this list: %s. "+
			"Respond with only a JSON array of category names, for example [\"Politics\", \"World\"]. "+
			"Respond with [] if no category clearly applies.\n\nArticle:\n%s",
		maxModelCategories, strings.Join(Taxonomy, ", "), text)
}

// extractArray pulls the first bracket-delimited substring out of the model
// response; models routinely wrap the array in prose.
func extractArray(response string) (string, error) {
	start := strings.Index(response, "[")
	if start < 0 {
		return "", fmt.Errorf("no array in model response")
	}
	end := strings.Index(response[start:], "]")
	if end < 0 {
		return "", fmt.Errorf("unterminated array in model response")
	}
	return response[start : start+end+1], nil
}

// keywordStrategy substring-matches the text against the fixed keyword table.
// It never fails and applies no category cap.
type keywordStrategy struct{}

func (keywordStrategy) Name() string { return "keywords" }

func (keywordStrategy) Categories(_ context.Context, text string) ([]string, error) {
	haystack := lower(text)

	var categories []string
	for _, category := range Taxonomy {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(haystack, keyword) {
				categories = append(categories, category)
				break
			}
		}
	}

	return categories, nil
}

func lower(s string) string {
	return strings.ToLower(s)
}
