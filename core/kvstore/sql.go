package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const defaultPageSize = 256

// SQLStore implements Store on top of a relational kv table. It works for
// both the Postgres and the SQLite backends; queries are rebound to the
// driver's placeholder style by sqlx.
type SQLStore struct {
	db       *sqlx.DB
	pageSize int
}

// NewSQL wraps an open database handle in a Store.
func NewSQL(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, pageSize: defaultPageSize}
}

// Get returns the stored value or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	query := s.db.Rebind(`SELECT value FROM kv WHERE key = ?`)
	if err := s.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put writes value and metadata in a single statement, keeping the
// denormalized columns in lockstep with the value.
func (s *SQLStore) Put(ctx context.Context, key string, value []byte, meta *Metadata) error {
	var fileID, tokens sql.NullString
	if meta != nil {
		fileID = sql.NullString{String: meta.FileID, Valid: true}
		tokens = sql.NullString{String: strings.Join(meta.Tokens, " "), Valid: true}
	}
	query := s.db.Rebind(`
		INSERT INTO kv (key, value, meta_file_id, meta_tokens)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			meta_file_id = excluded.meta_file_id,
			meta_tokens = excluded.meta_tokens`)
	if _, err := s.db.ExecContext(ctx, query, key, string(value), fileID, tokens); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

// Delete removes the key; deleting an absent key is a no-op.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := s.db.Rebind(`DELETE FROM kv WHERE key = ?`)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// Scan lists keys under prefix in ascending key order. The cursor is the
// last key of the previous page; an empty cursor starts from the beginning.
func (s *SQLStore) Scan(ctx context.Context, prefix, cursor string) (Page, error) {
	type row struct {
		Key    string         `db:"key"`
		FileID sql.NullString `db:"meta_file_id"`
		Tokens sql.NullString `db:"meta_tokens"`
	}
	query := s.db.Rebind(`
		SELECT key, meta_file_id, meta_tokens FROM kv
		WHERE key LIKE ? ESCAPE '\' AND key > ?
		ORDER BY key
		LIMIT ?`)
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, likePattern(prefix), cursor, s.pageSize); err != nil {
		return Page{}, fmt.Errorf("kv scan %s: %w", prefix, err)
	}

	page := Page{Entries: make([]Entry, 0, len(rows))}
	for _, r := range rows {
		entry := Entry{Key: r.Key}
		if r.FileID.Valid {
			entry.Meta = &Metadata{
				FileID: r.FileID.String,
				Tokens: splitTokens(r.Tokens.String),
			}
		}
		page.Entries = append(page.Entries, entry)
	}
	if len(rows) == s.pageSize {
		page.Cursor = rows[len(rows)-1].Key
	} else {
		page.Complete = true
	}
	return page, nil
}

// likePattern escapes LIKE wildcards in the prefix. Keys built by the core
// never contain them, but the adapter should not rely on that.
func likePattern(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}

func splitTokens(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Fields(joined)
}
