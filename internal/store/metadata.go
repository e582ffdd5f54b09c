package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/errors"
)

// MetadataDB holds chunk text and provenance in SQLite. Both
// collections share one database; the collection is a column.
type MetadataDB struct {
	db *sql.DB
}

const chunksSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	collection  TEXT NOT NULL,
	source_file TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	page_number INTEGER NOT NULL,
	section     TEXT NOT NULL DEFAULT '',
	token_count INTEGER NOT NULL DEFAULT 0,
	text        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_file);
CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
`

// OpenMetadataDB opens (creating if needed) the chunk database.
func OpenMetadataDB(path string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.StoreError(fmt.Sprintf("open chunk database %s", path), err)
	}

	// Single writer. modernc.org/sqlite serializes writes anyway and a
	// single connection avoids SQLITE_BUSY under concurrent indexing.
	db.SetMaxOpenConns(1)

	// WAL must be set via PRAGMA; DSN params are not reliable with
	// modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.StoreError(fmt.Sprintf("apply %s", pragma), err)
		}
	}

	if _, err := db.Exec(chunksSchema); err != nil {
		_ = db.Close()
		return nil, errors.StoreError("create chunks schema", err)
	}

	return &MetadataDB{db: db}, nil
}

// UpsertChunks writes chunk rows for one collection in a transaction.
// Chunk IDs must already be assigned.
func (m *MetadataDB) UpsertChunks(ctx context.Context, collection string, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StoreError("begin chunk transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, collection, source_file, chunk_index, page_number, section, token_count, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection = excluded.collection,
			source_file = excluded.source_file,
			chunk_index = excluded.chunk_index,
			page_number = excluded.page_number,
			section = excluded.section,
			token_count = excluded.token_count,
			text = excluded.text`)
	if err != nil {
		return errors.StoreError("prepare chunk upsert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, collection, c.SourceFile,
			c.Index, c.Page, c.Section, c.TokenCount, c.Text); err != nil {
			return errors.StoreError(fmt.Sprintf("upsert chunk %s", c.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StoreError("commit chunk upsert", err)
	}
	return nil
}

// DeleteBySource removes every chunk of a source file across all
// collections and returns the deleted IDs grouped by collection so the
// vector indexes can be pruned to match.
func (m *MetadataDB) DeleteBySource(ctx context.Context, sourceFile string) (map[string][]string, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT id, collection FROM chunks WHERE source_file = ?", sourceFile)
	if err != nil {
		return nil, errors.StoreError("query chunks by source", err)
	}

	deleted := make(map[string][]string)
	for rows.Next() {
		var id, collection string
		if err := rows.Scan(&id, &collection); err != nil {
			_ = rows.Close()
			return nil, errors.StoreError("scan chunk row", err)
		}
		deleted[collection] = append(deleted[collection], id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, errors.StoreError("iterate chunk rows", err)
	}
	_ = rows.Close()

	if len(deleted) == 0 {
		return deleted, nil
	}

	if _, err := m.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE source_file = ?", sourceFile); err != nil {
		return nil, errors.StoreError("delete chunks by source", err)
	}
	return deleted, nil
}

// GetChunks fetches rows for the given IDs. Missing IDs are skipped.
func (m *MetadataDB) GetChunks(ctx context.Context, ids []string) (map[string]SearchResult, error) {
	results := make(map[string]SearchResult, len(ids))
	for _, id := range ids {
		var r SearchResult
		err := m.db.QueryRowContext(ctx, `
			SELECT id, collection, source_file, chunk_index, page_number, section, text
			FROM chunks WHERE id = ?`, id).
			Scan(&r.ID, &r.Collection, &r.SourceFile, &r.ChunkIndex, &r.Page, &r.Section, &r.Text)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, errors.StoreError(fmt.Sprintf("load chunk %s", id), err)
		}
		results[id] = r
	}
	return results, nil
}

// ChunksBySource returns all chunks of a source file ordered by chunk
// index, regardless of collection.
func (m *MetadataDB) ChunksBySource(ctx context.Context, sourceFile string) ([]SearchResult, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, collection, source_file, chunk_index, page_number, section, text
		FROM chunks WHERE source_file = ? ORDER BY chunk_index`, sourceFile)
	if err != nil {
		return nil, errors.StoreError("query chunks by source", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Collection, &r.SourceFile,
			&r.ChunkIndex, &r.Page, &r.Section, &r.Text); err != nil {
			return nil, errors.StoreError("scan chunk row", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountByCollection returns the chunk count per collection.
func (m *MetadataDB) CountByCollection(ctx context.Context) (map[string]int, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT collection, COUNT(*) FROM chunks GROUP BY collection")
	if err != nil {
		return nil, errors.StoreError("count chunks", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var collection string
		var count int
		if err := rows.Scan(&collection, &count); err != nil {
			return nil, errors.StoreError("scan count row", err)
		}
		counts[collection] = count
	}
	return counts, rows.Err()
}

// SourceFiles returns the distinct source paths present in the database.
func (m *MetadataDB) SourceFiles(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT DISTINCT source_file FROM chunks")
	if err != nil {
		return nil, errors.StoreError("query source files", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.StoreError("scan source file", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Close closes the database.
func (m *MetadataDB) Close() error {
	return m.db.Close()
}
