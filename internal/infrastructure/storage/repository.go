package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"newsfeed/internal/domain"
	"newsfeed/internal/ports"
)

// Flavor selects the SQL dialect the repository speaks.
type Flavor string

const (
	Postgres Flavor = "postgres"
	SQLite   Flavor = "sqlite"
)

var articleColumns = []string{
	"id", "title", "link", "description", "content", "summary",
	"thumbnail_url", "image_url", "source_name", "source_url",
	"published_at", "processed_at", "is_processed",
}

// Repository persists the article corpus through database/sql.
type Repository struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	flavor Flavor
}

var _ ports.ArticleRepository = (*Repository)(nil)
var _ ports.ReadStore = (*Repository)(nil)

// New wires a sql.DB with the placeholder format of its dialect.
func New(db *sql.DB, flavor Flavor) *Repository {
	return &Repository{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholderFormat(flavor)).RunWith(db),
		flavor: flavor,
	}
}

func placeholderFormat(flavor Flavor) sq.PlaceholderFormat {
	if flavor == SQLite {
		return sq.Question
	}
	return sq.Dollar
}

// ProcessedByLinks returns, for every link that already has a row, whether it
// has been processed. Links without a row are absent from the map.
func (r *Repository) ProcessedByLinks(ctx context.Context, links []string) (map[string]bool, error) {
	result := make(map[string]bool, len(links))
	if len(links) == 0 {
		return result, nil
	}

	rows, err := r.sb.Select("link", "is_processed").
		From("articles").
		Where(sq.Eq{"link": links}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			link      string
			processed bool
		)
		if err := rows.Scan(&link, &processed); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		result[link] = processed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// TitleCorpus returns id/title/link for every article in persisted (id) order.
func (r *Repository) TitleCorpus(ctx context.Context) ([]domain.TitleRef, error) {
	rows, err := r.sb.Select("id", "title", "link").
		From("articles").
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query title corpus: %w", err)
	}
	defer rows.Close()

	var corpus []domain.TitleRef
	for rows.Next() {
		var ref domain.TitleRef
		if err := rows.Scan(&ref.ID, &ref.Title, &ref.Link); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		corpus = append(corpus, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return corpus, nil
}

// ArticlesNeedingEnrichment lists articles with an empty description or no
// thumbnail reference, oldest rows first.
func (r *Repository) ArticlesNeedingEnrichment(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Or{sq.Eq{"description": ""}, sq.Eq{"thumbnail_url": ""}}).
		OrderBy("id").
		Limit(uint64(limit)).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query enrichment candidates: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// DeleteOlderThan removes articles published before the cutoff, including
// their association rows, and returns the deleted ids so the caller can clean
// up thumbnail assets.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin retention tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := r.sb.Select("id").
		From("articles").
		Where(sq.Lt{"published_at": cutoff.Unix()}).
		RunWith(tx).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query expired articles: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expired id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	if _, err := r.sb.Delete("article_category").Where(sq.Eq{"article_id": ids}).RunWith(tx).ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("delete category links: %w", err)
	}
	if _, err := r.sb.Delete("article_related").
		Where(sq.Or{sq.Eq{"article_id": ids}, sq.Eq{"related_article_id": ids}}).
		RunWith(tx).ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("delete related links: %w", err)
	}
	if _, err := r.sb.Delete("articles").Where(sq.Eq{"id": ids}).RunWith(tx).ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("delete articles: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit retention tx: %w", err)
	}

	return ids, nil
}

// InTx runs fn inside one transaction; this is the per-article commit boundary.
func (r *Repository) InTx(ctx context.Context, fn func(tx ports.ArticleTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&articleTx{tx: tx, sb: r.sb}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// articleTx is the unit-of-work surface bound to one sql.Tx.
type articleTx struct {
	tx *sql.Tx
	sb sq.StatementBuilderType
}

var _ ports.ArticleTx = (*articleTx)(nil)

// UpsertArticle inserts or refreshes the row for the item's link. Content
// columns are unconditionally refreshed; processing state and thumbnail are
// left alone on update.
func (t *articleTx) UpsertArticle(ctx context.Context, item domain.FeedItem) (int64, string, error) {
	_, err := t.sb.Insert("articles").
		Columns("title", "link", "description", "content", "image_url",
			"source_name", "source_url", "published_at").
		Values(item.Title, item.Link, item.Description, item.Content, item.ImageURL,
			item.SourceName, item.SourceURL, item.PublishedAt.Unix()).
		Suffix(`ON CONFLICT (link) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			image_url = EXCLUDED.image_url,
			source_name = EXCLUDED.source_name,
			source_url = EXCLUDED.source_url,
			published_at = EXCLUDED.published_at`).
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("upsert article: %w", err)
	}

	var (
		id           int64
		thumbnailURL string
	)
	err = t.sb.Select("id", "thumbnail_url").
		From("articles").
		Where(sq.Eq{"link": item.Link}).
		RunWith(t.tx).
		QueryRowContext(ctx).
		Scan(&id, &thumbnailURL)
	if err != nil {
		return 0, "", fmt.Errorf("load upserted article: %w", err)
	}

	return id, thumbnailURL, nil
}

// CategoryNames returns the category names already linked to an article.
func (t *articleTx) CategoryNames(ctx context.Context, articleID int64) ([]string, error) {
	rows, err := t.sb.Select("c.name").
		From("categories c").
		Join("article_category ac ON ac.category_id = c.id").
		Where(sq.Eq{"ac.article_id": articleID}).
		OrderBy("c.id").
		RunWith(t.tx).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query article categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return names, nil
}

// EnsureCategory creates the category on first use; a duplicate-name conflict
// means it already exists and is not an error.
func (t *articleTx) EnsureCategory(ctx context.Context, name string) (int64, error) {
	_, err := t.sb.Insert("categories").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING").
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}

	var id int64
	err = t.sb.Select("id").
		From("categories").
		Where(sq.Eq{"name": name}).
		RunWith(t.tx).
		QueryRowContext(ctx).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("load category: %w", err)
	}

	return id, nil
}

// LinkCategory attaches a category to an article, ignoring duplicates.
func (t *articleTx) LinkCategory(ctx context.Context, articleID, categoryID int64) error {
	_, err := t.sb.Insert("article_category").
		Columns("article_id", "category_id").
		Values(articleID, categoryID).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("link category: %w", err)
	}
	return nil
}

// RelatedIDs returns the ids already linked as related to an article.
func (t *articleTx) RelatedIDs(ctx context.Context, articleID int64) ([]int64, error) {
	rows, err := t.sb.Select("related_article_id").
		From("article_related").
		Where(sq.Eq{"article_id": articleID}).
		RunWith(t.tx).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query related ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan related id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return ids, nil
}

// LinkRelated records a related-article link, ignoring duplicates.
func (t *articleTx) LinkRelated(ctx context.Context, articleID, relatedID int64) error {
	_, err := t.sb.Insert("article_related").
		Columns("article_id", "related_article_id").
		Values(articleID, relatedID).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("link related: %w", err)
	}
	return nil
}

// SetThumbnail stores the processed thumbnail reference.
func (t *articleTx) SetThumbnail(ctx context.Context, articleID int64, thumbnailURL string) error {
	_, err := t.sb.Update("articles").
		Set("thumbnail_url", thumbnailURL).
		Where(sq.Eq{"id": articleID}).
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("set thumbnail: %w", err)
	}
	return nil
}

// UpdateEnrichment persists fields filled in by the content enricher.
func (t *articleTx) UpdateEnrichment(ctx context.Context, article domain.Article) error {
	_, err := t.sb.Update("articles").
		Set("description", article.Description).
		Set("content", article.Content).
		Set("image_url", article.ImageURL).
		Set("thumbnail_url", article.ThumbnailURL).
		Where(sq.Eq{"id": article.ID}).
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	return nil
}

// MarkProcessed flips the processing flag and records the touch time.
func (t *articleTx) MarkProcessed(ctx context.Context, articleID int64, at time.Time) error {
	_, err := t.sb.Update("articles").
		Set("is_processed", true).
		Set("processed_at", at.Unix()).
		Where(sq.Eq{"id": articleID}).
		RunWith(t.tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func scanArticles(rows *sql.Rows) ([]domain.Article, error) {
	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

func scanArticle(rows *sql.Rows) (domain.Article, error) {
	var (
		article     domain.Article
		publishedAt int64
		processedAt int64
	)
	err := rows.Scan(
		&article.ID, &article.Title, &article.Link, &article.Description,
		&article.Content, &article.Summary, &article.ThumbnailURL,
		&article.ImageURL, &article.SourceName, &article.SourceURL,
		&publishedAt, &processedAt, &article.IsProcessed,
	)
	if err != nil {
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}

	article.PublishedAt = time.Unix(publishedAt, 0).UTC()
	if processedAt > 0 {
		article.ProcessedAt = time.Unix(processedAt, 0).UTC()
	}
	return article, nil
}

func likePattern(value string) string {
	return "%" + strings.ToLower(value) + "%"
}
