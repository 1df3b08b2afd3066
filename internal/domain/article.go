package domain

import "time"

// Article is the canonical record of one ingested item. Link is the natural
// dedup key: at most one Article per distinct upstream URL.
type Article struct {
	ID           int64
	Title        string
	Link         string
	Description  string
	Content      string
	Summary      string
	ThumbnailURL string
	ImageURL     string
	SourceName   string
	SourceURL    string
	PublishedAt  time.Time
	ProcessedAt  time.Time
	IsProcessed  bool
	Categories   []string
	Related      []RelatedArticle
}

// RelatedArticle is the short reference stored on the "related" association.
type RelatedArticle struct {
	ID    int64
	Title string
	Link  string
}

// Category is a named label, globally unique by name, created lazily on first use.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// FeedItem is a normalized upstream item before persistence.
type FeedItem struct {
	Link        string
	Title       string
	Description string
	Content     string
	ImageURL    string
	SourceName  string
	SourceURL   string
	PublishedAt time.Time
}

// TitleRef is one row of the similarity corpus.
type TitleRef struct {
	ID    int64
	Title string
	Link  string
}

// ArticleQuery carries read-API listing filters.
type ArticleQuery struct {
	Skip     int
	Limit    int
	Category string
	Source   string
	Search   string
}
