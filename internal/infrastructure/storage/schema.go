package storage

import (
	"context"
	"fmt"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
    id            BIGSERIAL PRIMARY KEY,
    title         TEXT NOT NULL DEFAULT '',
    link          TEXT NOT NULL UNIQUE,
    description   TEXT NOT NULL DEFAULT '',
    content       TEXT NOT NULL DEFAULT '',
    summary       TEXT NOT NULL DEFAULT '',
    thumbnail_url TEXT NOT NULL DEFAULT '',
    image_url     TEXT NOT NULL DEFAULT '',
    source_name   TEXT NOT NULL DEFAULT '',
    source_url    TEXT NOT NULL DEFAULT '',
    published_at  BIGINT NOT NULL DEFAULT 0,
    processed_at  BIGINT NOT NULL DEFAULT 0,
    is_processed  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS categories (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS article_category (
    article_id  BIGINT NOT NULL REFERENCES articles (id),
    category_id BIGINT NOT NULL REFERENCES categories (id),
    UNIQUE (article_id, category_id)
);

CREATE TABLE IF NOT EXISTS article_related (
    article_id         BIGINT NOT NULL REFERENCES articles (id),
    related_article_id BIGINT NOT NULL REFERENCES articles (id),
    UNIQUE (article_id, related_article_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    title         TEXT NOT NULL DEFAULT '',
    link          TEXT NOT NULL UNIQUE,
    description   TEXT NOT NULL DEFAULT '',
    content       TEXT NOT NULL DEFAULT '',
    summary       TEXT NOT NULL DEFAULT '',
    thumbnail_url TEXT NOT NULL DEFAULT '',
    image_url     TEXT NOT NULL DEFAULT '',
    source_name   TEXT NOT NULL DEFAULT '',
    source_url    TEXT NOT NULL DEFAULT '',
    published_at  INTEGER NOT NULL DEFAULT 0,
    processed_at  INTEGER NOT NULL DEFAULT 0,
    is_processed  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS article_category (
    article_id  INTEGER NOT NULL REFERENCES articles (id),
    category_id INTEGER NOT NULL REFERENCES categories (id),
    UNIQUE (article_id, category_id)
);

CREATE TABLE IF NOT EXISTS article_related (
    article_id         INTEGER NOT NULL REFERENCES articles (id),
    related_article_id INTEGER NOT NULL REFERENCES articles (id),
    UNIQUE (article_id, related_article_id)
);

CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at);
`

// EnsureSchema creates the article tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := postgresSchema
	if r.flavor == SQLite {
		schema = sqliteSchema
	}

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
