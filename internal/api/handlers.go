package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"newsfeed/internal/domain"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxBatchSize     = 20
)

type articleJSON struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Summary      string        `json:"summary"`
	Published    int64         `json:"published"`
	Origin       string        `json:"origin"`
	URL          string        `json:"url"`
	Categories   []string      `json:"categories"`
	Related      []relatedJSON `json:"related"`
	ThumbnailURL string        `json:"thumbnail_url"`
}

type relatedJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type batchRequest struct {
	ArticleIDs []int64 `json:"article_ids"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	query := domain.ArticleQuery{
		Skip:     intParam(r, "skip", 0),
		Limit:    intParam(r, "limit", defaultPageLimit),
		Category: r.URL.Query().Get("category"),
		Source:   r.URL.Query().Get("source"),
		Search:   r.URL.Query().Get("search"),
	}
	if query.Limit > maxPageLimit {
		query.Limit = maxPageLimit
	}
	if query.Skip < 0 {
		query.Skip = 0
	}

	articles, total, err := s.store.ListArticles(r.Context(), query)
	if err != nil {
		s.serverError(w, "list articles", err)
		return
	}

	out := make([]articleJSON, 0, len(articles))
	for _, article := range articles {
		out = append(out, formatArticle(article))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"articles": out,
		"total":    total,
		"skip":     query.Skip,
		"limit":    query.Limit,
	})
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	article, err := s.store.ArticleByID(r.Context(), id)
	if err != nil {
		s.serverError(w, "load article", err)
		return
	}
	if article == nil {
		s.writeError(w, http.StatusNotFound, "article not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"article": formatArticle(*article)})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.AllCategories(r.Context())
	if err != nil {
		s.serverError(w, "list categories", err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleCategoriesBatch(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}

	categories, err := s.store.CategoriesFor(r.Context(), ids)
	if err != nil {
		s.serverError(w, "batch categories", err)
		return
	}

	results := make(map[string]map[string][]string, len(ids))
	for _, id := range ids {
		names := categories[id]
		if names == nil {
			names = []string{}
		}
		results[strconv.FormatInt(id, 10)] = map[string][]string{"categories": names}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleRelatedBatch(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.decodeBatch(w, r)
	if !ok {
		return
	}

	related, err := s.store.RelatedFor(r.Context(), ids)
	if err != nil {
		s.serverError(w, "batch related", err)
		return
	}

	results := make(map[string][]string, len(ids))
	for _, id := range ids {
		refs := make([]string, 0, len(related[id]))
		for _, ref := range related[id] {
			refs = append(refs, strconv.FormatInt(ref.ID, 10))
		}
		results[strconv.FormatInt(id, 10)] = refs
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"related": results})
}

func (s *Server) decodeBatch(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(req.ArticleIDs) > maxBatchSize {
		s.writeError(w, http.StatusBadRequest, "batch size too large")
		return nil, false
	}
	return req.ArticleIDs, true
}

// formatArticle mirrors the persisted record into the API shape, applying the
// thumbnail fallback chain: processed thumbnail, raw enrichment candidate,
// then a favicon for the source domain.
func formatArticle(article domain.Article) articleJSON {
	categories := article.Categories
	if categories == nil {
		categories = []string{}
	}

	related := make([]relatedJSON, 0, len(article.Related))
	for _, ref := range article.Related {
		related = append(related, relatedJSON{
			ID:    strconv.FormatInt(ref.ID, 10),
			Title: ref.Title,
			URL:   ref.Link,
		})
	}

	thumbnail := article.ThumbnailURL
	if thumbnail == "" {
		thumbnail = article.ImageURL
	}
	if thumbnail == "" {
		thumbnail = faviconURL(article.SourceURL)
	}

	var published int64
	if !article.PublishedAt.IsZero() {
		published = article.PublishedAt.Unix()
	}

	return articleJSON{
		ID:           strconv.FormatInt(article.ID, 10),
		Title:        article.Title,
		Summary:      article.Description,
		Published:    published,
		Origin:       article.SourceName,
		URL:          article.Link,
		Categories:   categories,
		Related:      related,
		ThumbnailURL: thumbnail,
	}
}

func faviconURL(sourceURL string) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/s2/favicons?sz=256&domain=%s", parsed.Host)
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("read api failure", "op", op, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
