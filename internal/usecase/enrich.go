package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsfeed/internal/ports"
)

const (
	defaultSweepLimit = 100
	defaultItemPause  = time.Second
)

// EnrichSweep walks persisted articles that are missing a description or
// thumbnail and re-fetches their source pages to fill the gaps.
type EnrichSweep struct {
	repository ports.ArticleRepository
	enricher   ports.PageEnricher
	logger     *slog.Logger
	limit      int
	itemPause  time.Duration
}

// NewEnrichSweep builds the sweep over at most limit articles per run.
func NewEnrichSweep(repository ports.ArticleRepository, enricher ports.PageEnricher, limit int, logger *slog.Logger) *EnrichSweep {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return &EnrichSweep{
		repository: repository,
		enricher:   enricher,
		logger:     logger,
		limit:      limit,
		itemPause:  defaultItemPause,
	}
}

// Run performs one enrichment pass. Per-item failures are logged and skipped;
// they never abort the sweep for the remaining articles.
func (s *EnrichSweep) Run(ctx context.Context) error {
	articles, err := s.repository.ArticlesNeedingEnrichment(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("load enrichment candidates: %w", err)
	}
	if len(articles) == 0 {
		return nil
	}

	s.logger.Info("enrichment sweep starting", "candidates", len(articles))

	enriched, failed := 0, 0
	for i := range articles {
		article := &articles[i]

		changed, err := s.enricher.EnrichArticle(ctx, article)
		if err != nil {
			failed++
			s.logger.Warn("enrichment failed, skipping article", "link", article.Link, "error", err)
		} else if changed {
			err := s.repository.InTx(ctx, func(tx ports.ArticleTx) error {
				return tx.UpdateEnrichment(ctx, *article)
			})
			if err != nil {
				failed++
				s.logger.Warn("persist enrichment failed", "link", article.Link, "error", err)
			} else {
				enriched++
			}
		}

		if i < len(articles)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.itemPause):
			}
		}
	}

	s.logger.Info("enrichment sweep finished", "enriched", enriched, "failed", failed)
	return nil
}
