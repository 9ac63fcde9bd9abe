package postgres

import (
	"context"
	"fmt"
)

// Schema creates the item and category tables. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id           BIGINT PRIMARY KEY,
	root_id      BIGINT NOT NULL DEFAULT 0,
	slug         TEXT NOT NULL,
	multilingual BOOLEAN NOT NULL DEFAULT TRUE,
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	grants       JSONB
);

CREATE TABLE IF NOT EXISTS items (
	id          BIGSERIAL PRIMARY KEY,
	source_id   BIGINT NOT NULL DEFAULT 0,
	language    TEXT NOT NULL,
	type        TEXT NOT NULL CHECK (type IN ('page', 'item', 'revision', 'second_category')),
	category_id BIGINT NOT NULL,
	root_id     BIGINT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	slug        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL CHECK (status IN ('pending', 'active', 'rejected', 'deleted')),
	priority    INTEGER NOT NULL DEFAULT 0,
	publish_at  TIMESTAMPTZ,
	expire_at   TIMESTAMPTZ,
	user_id     BIGINT,
	fields      JSONB,
	locked      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS items_canonical_source_language
	ON items (source_id, language) WHERE type IN ('page', 'item') AND source_id > 0;
CREATE INDEX IF NOT EXISTS items_slug_language ON items (slug, language) WHERE type IN ('page', 'item');
CREATE INDEX IF NOT EXISTS items_source_type ON items (source_id, type, language);
CREATE INDEX IF NOT EXISTS items_category ON items (category_id, root_id);
`

// Migrate applies Schema and, when schema is not empty, creates and selects
// that schema first.
func Migrate(ctx context.Context, db DBTX, schema string) error {
	if schema != "" {
		if _, err := db.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", schema)); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
		if _, err := db.Exec(ctx, fmt.Sprintf("SET search_path TO %q", schema)); err != nil {
			return fmt.Errorf("set search_path %s: %w", schema, err)
		}
	}
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
