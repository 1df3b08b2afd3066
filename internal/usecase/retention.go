package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsfeed/internal/ports"
)

// Retention deletes articles older than the configured horizon, along with
// their stored thumbnail assets.
type Retention struct {
	repository  ports.ArticleRepository
	thumbnails  ports.ThumbnailStore
	logger      *slog.Logger
	horizonDays int
	now         func() time.Time
}

// NewRetention builds the sweep with the horizon in days (default 7).
func NewRetention(repository ports.ArticleRepository, thumbnails ports.ThumbnailStore, horizonDays int, logger *slog.Logger) *Retention {
	if horizonDays <= 0 {
		horizonDays = 7
	}
	return &Retention{
		repository:  repository,
		thumbnails:  thumbnails,
		logger:      logger,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// Run deletes everything published before now minus the horizon.
func (s *Retention) Run(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -s.horizonDays)

	ids, err := s.repository.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired articles: %w", err)
	}

	for _, id := range ids {
		if err := s.thumbnails.Remove(id); err != nil {
			s.logger.Warn("thumbnail cleanup failed", "article_id", id, "error", err)
		}
	}

	if len(ids) > 0 {
		s.logger.Info("retention sweep finished", "deleted", len(ids), "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
