package ports

import (
	"context"
	"time"

	"newsfeed/internal/domain"
)

// FeedSource pulls normalized items from the upstream aggregator.
type FeedSource interface {
	FetchSince(ctx context.Context, since time.Time) ([]domain.FeedItem, error)
}

// TextGenerator produces a completion for a prompt (e.g. an Ollama model).
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier assigns taxonomy categories to article text. It never fails:
// service errors degrade to the deterministic keyword fallback.
type Classifier interface {
	Classify(ctx context.Context, text string) []string
}

// RelatedFinder selects related articles for a subject out of a title corpus.
type RelatedFinder interface {
	Find(subject domain.TitleRef, corpus []domain.TitleRef) []domain.TitleRef
}

// ThumbnailStore downloads, transcodes, and persists thumbnail assets.
type ThumbnailStore interface {
	Process(ctx context.Context, imageURL string, articleID int64) (string, error)
	Remove(articleID int64) error
}

// PageEnricher fills missing description/content/thumbnail from the source page.
// It mutates the article in place and reports whether anything changed.
type PageEnricher interface {
	EnrichArticle(ctx context.Context, article *domain.Article) (bool, error)
}

// ArticleTx is the unit-of-work surface available inside one article commit.
type ArticleTx interface {
	UpsertArticle(ctx context.Context, item domain.FeedItem) (id int64, thumbnailURL string, err error)
	CategoryNames(ctx context.Context, articleID int64) ([]string, error)
	EnsureCategory(ctx context.Context, name string) (int64, error)
	LinkCategory(ctx context.Context, articleID, categoryID int64) error
	RelatedIDs(ctx context.Context, articleID int64) ([]int64, error)
	LinkRelated(ctx context.Context, articleID, relatedID int64) error
	SetThumbnail(ctx context.Context, articleID int64, thumbnailURL string) error
	UpdateEnrichment(ctx context.Context, article domain.Article) error
	MarkProcessed(ctx context.Context, articleID int64, at time.Time) error
}

// ArticleRepository persists the article corpus.
type ArticleRepository interface {
	// ProcessedByLinks reports, for each link that already exists, whether it
	// has been processed. Absent links are absent from the map.
	ProcessedByLinks(ctx context.Context, links []string) (map[string]bool, error)
	InTx(ctx context.Context, fn func(tx ArticleTx) error) error
	TitleCorpus(ctx context.Context) ([]domain.TitleRef, error)
	ArticlesNeedingEnrichment(ctx context.Context, limit int) ([]domain.Article, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error)
}

// ReadStore serves the downstream read API.
type ReadStore interface {
	ListArticles(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, int, error)
	ArticleByID(ctx context.Context, id int64) (*domain.Article, error)
	AllCategories(ctx context.Context) ([]string, error)
	CategoriesFor(ctx context.Context, ids []int64) (map[int64][]string, error)
	RelatedFor(ctx context.Context, ids []int64) (map[int64][]domain.RelatedArticle, error)
}

// Notifier reports operational events (e.g. a job exhausting its retries).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
