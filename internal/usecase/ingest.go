package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsfeed/internal/domain"
	"newsfeed/internal/ports"
	"newsfeed/internal/thumbnail"
)

const (
	defaultBatchSize  = 10
	defaultBatchPause = time.Second
)

// IngestDeps wires all driven adapters into the ingestion orchestrator.
type IngestDeps struct {
	Source     ports.FeedSource
	Repository ports.ArticleRepository
	Classifier ports.Classifier
	Related    ports.RelatedFinder
	Thumbnails ports.ThumbnailStore
	Logger     *slog.Logger
	WindowDays int
	BatchSize  int
	BatchPause time.Duration
	Now        func() time.Time
}

// Ingest implements the fetch → diff → persist+enrich workflow of one run.
type Ingest struct {
	source     ports.FeedSource
	repository ports.ArticleRepository
	classifier ports.Classifier
	related    ports.RelatedFinder
	thumbnails ports.ThumbnailStore
	logger     *slog.Logger
	windowDays int
	batchSize  int
	batchPause time.Duration
	now        func() time.Time
}

// NewIngest constructs the orchestration component.
func NewIngest(deps IngestDeps) *Ingest {
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.BatchPause <= 0 {
		deps.BatchPause = defaultBatchPause
	}
	if deps.WindowDays <= 0 {
		deps.WindowDays = 3
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Ingest{
		source:     deps.Source,
		repository: deps.Repository,
		classifier: deps.Classifier,
		related:    deps.Related,
		thumbnails: deps.Thumbnails,
		logger:     deps.Logger,
		windowDays: deps.WindowDays,
		batchSize:  deps.BatchSize,
		batchPause: deps.BatchPause,
		now:        deps.Now,
	}
}

// Run executes one ingestion pass. Item-level failures are logged and the pass
// continues; only run-level faults (auth, empty-handed fetch failure, a dead
// store on the bulk diff) propagate to the job runner.
func (j *Ingest) Run(ctx context.Context) error {
	since := j.now().AddDate(0, 0, -j.windowDays)

	items, err := j.source.FetchSince(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch feed window: %w", err)
	}

	items = dedupeByLink(items)
	if len(items) == 0 {
		j.info("nothing fetched from upstream", "since", since.Format(time.RFC3339))
		return nil
	}

	links := make([]string, len(items))
	for i, item := range items {
		links[i] = item.Link
	}

	existing, err := j.repository.ProcessedByLinks(ctx, links)
	if err != nil {
		return fmt.Errorf("diff against store: %w", err)
	}

	var pending []domain.FeedItem
	for _, item := range items {
		if processed, ok := existing[item.Link]; ok && processed {
			continue
		}
		pending = append(pending, item)
	}

	j.info("ingestion run starting", "fetched", len(items), "pending", len(pending))

	corpus, err := j.repository.TitleCorpus(ctx)
	if err != nil {
		return fmt.Errorf("load title corpus: %w", err)
	}
	known := make(map[int64]struct{}, len(corpus))
	for _, ref := range corpus {
		known[ref.ID] = struct{}{}
	}

	processed, failed := 0, 0
	for start := 0; start < len(pending); start += j.batchSize {
		end := min(start+j.batchSize, len(pending))

		for _, item := range pending[start:end] {
			ref, err := j.processItem(ctx, item, corpus)
			if err != nil {
				failed++
				j.warn("article failed, continuing", "link", item.Link, "error", err)
				continue
			}
			processed++
			if _, ok := known[ref.ID]; !ok {
				known[ref.ID] = struct{}{}
				corpus = append(corpus, ref)
			}
		}

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(j.batchPause):
			}
		}
	}

	j.info("ingestion run finished", "processed", processed, "failed", failed)
	return nil
}

// processItem upserts and enriches one article inside its own transaction, so
// a failure here never rolls back its batch siblings.
func (j *Ingest) processItem(ctx context.Context, item domain.FeedItem, corpus []domain.TitleRef) (domain.TitleRef, error) {
	var ref domain.TitleRef

	err := j.repository.InTx(ctx, func(tx ports.ArticleTx) error {
		id, thumbnailURL, err := tx.UpsertArticle(ctx, item)
		if err != nil {
			return err
		}
		ref = domain.TitleRef{ID: id, Title: item.Title, Link: item.Link}

		if err := j.classifyOnce(ctx, tx, id, item); err != nil {
			return err
		}
		if err := j.linkOnce(ctx, tx, ref, corpus); err != nil {
			return err
		}
		j.thumbnailOnce(ctx, tx, id, thumbnailURL, item)

		return tx.MarkProcessed(ctx, id, j.now())
	})
	if err != nil {
		return domain.TitleRef{}, err
	}

	return ref, nil
}

// classifyOnce assigns categories only when the article has none yet.
func (j *Ingest) classifyOnce(ctx context.Context, tx ports.ArticleTx, id int64, item domain.FeedItem) error {
	existing, err := tx.CategoryNames(ctx, id)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	text := strings.TrimSpace(item.Title + "\n\n" + item.Description)
	for _, name := range j.classifier.Classify(ctx, text) {
		categoryID, err := tx.EnsureCategory(ctx, name)
		if err != nil {
			return err
		}
		if err := tx.LinkCategory(ctx, id, categoryID); err != nil {
			return err
		}
	}
	return nil
}

// linkOnce computes related articles only when none are linked yet.
func (j *Ingest) linkOnce(ctx context.Context, tx ports.ArticleTx, subject domain.TitleRef, corpus []domain.TitleRef) error {
	existing, err := tx.RelatedIDs(ctx, subject.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, match := range j.related.Find(subject, corpus) {
		if err := tx.LinkRelated(ctx, subject.ID, match.ID); err != nil {
			return err
		}
	}
	return nil
}

// thumbnailOnce processes the enclosure candidate only when the article has no
// thumbnail yet. A failure leaves the field untouched for a later retry and
// never fails the article.
func (j *Ingest) thumbnailOnce(ctx context.Context, tx ports.ArticleTx, id int64, currentThumbnail string, item domain.FeedItem) {
	if currentThumbnail != "" || item.ImageURL == "" {
		return
	}
	if thumbnail.RejectedURL(item.ImageURL) {
		return
	}

	ref, err := j.thumbnails.Process(ctx, item.ImageURL, id)
	if err != nil {
		j.debug("thumbnail skipped", "link", item.Link, "error", err)
		return
	}
	if err := tx.SetThumbnail(ctx, id, ref); err != nil {
		j.warn("store thumbnail reference failed", "link", item.Link, "error", err)
	}
}

// dedupeByLink keeps one item per link; later fetches win on content.
func dedupeByLink(items []domain.FeedItem) []domain.FeedItem {
	index := make(map[string]int, len(items))
	var out []domain.FeedItem
	for _, item := range items {
		if i, ok := index[item.Link]; ok {
			out[i] = item
			continue
		}
		index[item.Link] = len(out)
		out = append(out, item)
	}
	return out
}

func (j *Ingest) info(msg string, args ...any) {
	if j.logger != nil {
		j.logger.Info(msg, args...)
	}
}

func (j *Ingest) warn(msg string, args ...any) {
	if j.logger != nil {
		j.logger.Warn(msg, args...)
	}
}

func (j *Ingest) debug(msg string, args ...any) {
	if j.logger != nil {
		j.logger.Debug(msg, args...)
	}
}
