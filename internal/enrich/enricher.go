package enrich

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"newsfeed/internal/domain"
	"newsfeed/internal/ports"
	"newsfeed/internal/thumbnail"
)

const (
	maxPageSize    = 5 << 20
	maxDescription = 500
)

// Enricher re-fetches source pages for articles missing a description or
// thumbnail and fills the gaps via readability extraction and an <img> scan.
// Existing non-empty fields are never overwritten.
type Enricher struct {
	client *http.Client
	thumbs ports.ThumbnailStore
	prober SizeProber
	logger *slog.Logger
}

// SizeProber reads image dimensions without a full download.
type SizeProber interface {
	ProbeSize(ctx context.Context, imageURL string) (width, height int, err error)
}

var _ ports.PageEnricher = (*Enricher)(nil)

// NewEnricher wires the page fetcher with the thumbnail pipeline.
func NewEnricher(client *http.Client, thumbs ports.ThumbnailStore, prober SizeProber, logger *slog.Logger) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Enricher{client: client, thumbs: thumbs, prober: prober, logger: logger}
}

// EnrichArticle fetches the article's source page and fills any missing
// description, content, or thumbnail. It reports whether anything changed.
func (e *Enricher) EnrichArticle(ctx context.Context, article *domain.Article) (bool, error) {
	pageURL, err := url.Parse(article.Link)
	if err != nil {
		return false, fmt.Errorf("parse article url: %w", err)
	}

	body, err := e.fetchPage(ctx, article.Link)
	if err != nil {
		return false, err
	}

	changed := false

	extracted, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		e.debug("readability extraction failed", "url", article.Link, "error", err)
	} else {
		if article.Description == "" {
			if desc := pickDescription(extracted); desc != "" {
				article.Description = desc
				changed = true
			}
		}
		if article.Content == "" && extracted.TextContent != "" {
			article.Content = strings.TrimSpace(extracted.TextContent)
			changed = true
		}
	}

	if article.ThumbnailURL == "" {
		candidate := e.findImage(ctx, body, pageURL)
		if candidate != "" {
			ref, err := e.thumbs.Process(ctx, candidate, article.ID)
			if err != nil {
				e.debug("thumbnail processing failed", "url", candidate, "error", err)
			} else {
				article.ThumbnailURL = ref
				if article.ImageURL == "" {
					article.ImageURL = candidate
				}
				changed = true
			}
		}
	}

	return changed, nil
}

func (e *Enricher) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", "newsfeed/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	return body, nil
}

// findImage scans the raw HTML for the first <img> that survives the URL
// blocklist and the minimum-dimension probe.
func (e *Enricher) findImage(ctx context.Context, body []byte, pageURL *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		e.debug("parse page html failed", "url", pageURL.String(), "error", err)
		return ""
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return true
		}

		resolved, err := pageURL.Parse(src)
		if err != nil {
			return true
		}
		candidate := resolved.String()

		if thumbnail.RejectedURL(candidate) {
			return true
		}

		width, height, err := e.prober.ProbeSize(ctx, candidate)
		if err != nil {
			e.debug("image probe failed", "url", candidate, "error", err)
			return true
		}
		if width < thumbnail.MinWidth || height < thumbnail.MinHeight {
			return true
		}

		found = candidate
		return false
	})

	return found
}

func pickDescription(extracted readability.Article) string {
	desc := strings.TrimSpace(extracted.Excerpt)
	if desc == "" {
		desc = strings.TrimSpace(extracted.TextContent)
	}
	if len(desc) > maxDescription {
		desc = desc[:maxDescription]
	}
	return desc
}

func (e *Enricher) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
