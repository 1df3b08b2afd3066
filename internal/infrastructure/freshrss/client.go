package freshrss

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsfeed/internal/domain"
	"newsfeed/internal/ports"
)

const (
	loginPath  = "/accounts/ClientLogin"
	streamPath = "/reader/api/0/stream/contents/reading-list"
)

// ErrAuthFailed marks a ClientLogin failure; the whole run aborts on it.
var ErrAuthFailed = errors.New("freshrss: authentication failed")

// Client speaks the Google-Reader-style API exposed by FreshRSS.
type Client struct {
	baseURL  string
	username string
	password string
	pageSize int
	// pause between page requests, to keep load on the upstream polite
	pageDelay time.Duration
	client    *http.Client
	logger    *slog.Logger
}

var _ ports.FeedSource = (*Client)(nil)

// NewClient wires an upstream aggregator endpoint; pageSize defaults to 100.
func NewClient(baseURL, username, password string, pageSize int, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		username:  username,
		password:  password,
		pageSize:  pageSize,
		pageDelay: time.Second,
		client:    httpClient,
		logger:    logger,
	}
}

// Login posts credentials to the ClientLogin endpoint and extracts the token
// from the Auth=<token> line of the response body.
func (c *Client) Login(ctx context.Context) (string, error) {
	if c.username == "" || c.password == "" {
		return "", fmt.Errorf("%w: missing credentials", ErrAuthFailed)
	}

	form := url.Values{}
	form.Set("Email", c.username)
	form.Set("Passwd", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: upstream returned %s", ErrAuthFailed, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return "", fmt.Errorf("%w: read login body: %v", ErrAuthFailed, err)
	}

	for _, line := range strings.Split(string(body), "\n") {
		if token, ok := strings.CutPrefix(strings.TrimSpace(line), "Auth="); ok && token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("%w: no Auth line in response", ErrAuthFailed)
}

// FetchSince authenticates and pages through the reading-list stream,
// following the continuation cursor until the server omits it.
//
// A page-level failure aborts with an error only while nothing has been
// gathered; afterwards it degrades to returning the partial result.
func (c *Client) FetchSince(ctx context.Context, since time.Time) ([]domain.FeedItem, error) {
	token, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}

	var (
		items        []domain.FeedItem
		continuation string
	)

	for {
		page, err := c.fetchPage(ctx, token, since, continuation)
		if err != nil {
			if len(items) == 0 {
				return nil, fmt.Errorf("fetch reading list: %w", err)
			}
			c.warn("reading-list page failed, returning partial results", "collected", len(items), "error", err)
			return items, nil
		}

		for _, raw := range page.Items {
			item, ok := c.normalize(raw)
			if !ok {
				continue
			}
			items = append(items, item)
		}

		if page.Continuation == "" {
			return items, nil
		}
		continuation = page.Continuation

		select {
		case <-ctx.Done():
			return items, nil
		case <-time.After(c.pageDelay):
		}
	}
}

type streamResponse struct {
	Items        []streamItem `json:"items"`
	Continuation string       `json:"continuation"`
}

type streamItem struct {
	Title     string          `json:"title"`
	Published int64           `json:"published"`
	Alternate []itemLink      `json:"alternate"`
	Canonical []itemLink      `json:"canonical"`
	Enclosure []itemEnclosure `json:"enclosure"`
	Summary   itemContent     `json:"summary"`
	Content   itemContent     `json:"content"`
	Origin    itemOrigin      `json:"origin"`
}

type itemLink struct {
	Href string `json:"href"`
}

type itemEnclosure struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

type itemContent struct {
	Content string `json:"content"`
}

type itemOrigin struct {
	Title   string `json:"title"`
	HTMLURL string `json:"htmlUrl"`
}

func (c *Client) fetchPage(ctx context.Context, token string, since time.Time, continuation string) (*streamResponse, error) {
	endpoint, err := url.Parse(c.baseURL + streamPath)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}

	query := endpoint.Query()
	query.Set("output", "json")
	query.Set("n", strconv.Itoa(c.pageSize))
	query.Set("ot", strconv.FormatInt(since.Unix(), 10))
	if continuation != "" {
		query.Set("c", continuation)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Authorization", "GoogleLogin auth="+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request stream page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %s", resp.Status)
	}

	var page streamResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode stream page: %w", err)
	}

	return &page, nil
}

// normalize maps a raw stream item to a FeedItem. Items lacking a resolvable
// canonical URL are dropped.
func (c *Client) normalize(raw streamItem) (domain.FeedItem, bool) {
	link := firstHref(raw.Alternate)
	if link == "" {
		link = firstHref(raw.Canonical)
	}
	if link == "" {
		c.warn("dropping item without resolvable url", "title", raw.Title)
		return domain.FeedItem{}, false
	}

	content := raw.Content.Content
	if content == "" {
		content = raw.Summary.Content
	}

	var imageURL string
	for _, enc := range raw.Enclosure {
		if strings.HasPrefix(enc.Type, "image/") {
			imageURL = enc.Href
			break
		}
	}

	return domain.FeedItem{
		Link:        link,
		Title:       raw.Title,
		Description: raw.Summary.Content,
		Content:     content,
		ImageURL:    imageURL,
		SourceName:  raw.Origin.Title,
		SourceURL:   raw.Origin.HTMLURL,
		PublishedAt: time.Unix(raw.Published, 0).UTC(),
	}, true
}

func firstHref(links []itemLink) string {
	for _, l := range links {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
