package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"newsfeed/internal/domain"
)

// ListArticles returns processed articles matching the query, newest first,
// together with the unpaginated total.
func (r *Repository) ListArticles(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, int, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	conds := r.listConditions(q)

	countQuery := r.sb.Select("COUNT(*)").From("articles a")
	for _, cond := range conds {
		countQuery = countQuery.Where(cond)
	}
	var total int
	if err := countQuery.QueryRowContext(ctx).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	listQuery := r.sb.Select(prefixed("a", articleColumns)...).From("articles a")
	for _, cond := range conds {
		listQuery = listQuery.Where(cond)
	}
	rows, err := listQuery.
		OrderBy("a.published_at DESC", "a.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(q.Skip, 0))).
		QueryContext(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := r.attachRelations(ctx, articles); err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

func (r *Repository) listConditions(q domain.ArticleQuery) []sq.Sqlizer {
	conds := []sq.Sqlizer{sq.Eq{"a.is_processed": true}}

	if q.Category != "" {
		conds = append(conds, sq.Expr(
			`EXISTS (SELECT 1 FROM article_category ac
			         JOIN categories c ON c.id = ac.category_id
			         WHERE ac.article_id = a.id AND LOWER(c.name) LIKE ?)`,
			likePattern(q.Category)))
	}
	if q.Source != "" {
		conds = append(conds, sq.Expr("LOWER(a.source_name) LIKE ?", likePattern(q.Source)))
	}
	if q.Search != "" {
		pattern := likePattern(q.Search)
		conds = append(conds, sq.Expr(
			"(LOWER(a.title) LIKE ? OR LOWER(a.description) LIKE ?)", pattern, pattern))
	}

	return conds
}

// ArticleByID loads one article with its categories and related references;
// nil when absent.
func (r *Repository) ArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	rows, err := r.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"id": id}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query article: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, nil
	}

	if err := r.attachRelations(ctx, articles); err != nil {
		return nil, err
	}
	return &articles[0], nil
}

// AllCategories lists every category name ordered alphabetically.
func (r *Repository) AllCategories(ctx context.Context) ([]string, error) {
	rows, err := r.sb.Select("name").
		From("categories").
		OrderBy("name").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return names, nil
}

// CategoriesFor maps each requested article id to its category names.
func (r *Repository) CategoriesFor(ctx context.Context, ids []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.sb.Select("ac.article_id", "c.name").
		From("article_category ac").
		Join("categories c ON c.id = ac.category_id").
		Where(sq.Eq{"ac.article_id": ids}).
		OrderBy("c.id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query categories for articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			articleID int64
			name      string
		)
		if err := rows.Scan(&articleID, &name); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		result[articleID] = append(result[articleID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// RelatedFor maps each requested article id to its related-article references.
func (r *Repository) RelatedFor(ctx context.Context, ids []int64) (map[int64][]domain.RelatedArticle, error) {
	result := make(map[int64][]domain.RelatedArticle, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.sb.Select("ar.article_id", "b.id", "b.title", "b.link").
		From("article_related ar").
		Join("articles b ON b.id = ar.related_article_id").
		Where(sq.Eq{"ar.article_id": ids}).
		OrderBy("b.id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query related for articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			articleID int64
			ref       domain.RelatedArticle
		)
		if err := rows.Scan(&articleID, &ref.ID, &ref.Title, &ref.Link); err != nil {
			return nil, fmt.Errorf("scan related row: %w", err)
		}
		result[articleID] = append(result[articleID], ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

func (r *Repository) attachRelations(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	ids := make([]int64, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}

	categories, err := r.CategoriesFor(ctx, ids)
	if err != nil {
		return err
	}
	related, err := r.RelatedFor(ctx, ids)
	if err != nil {
		return err
	}

	for i := range articles {
		articles[i].Categories = categories[articles[i].ID]
		articles[i].Related = related[articles[i].ID]
	}
	return nil
}

func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = alias + "." + col
	}
	return out
}
