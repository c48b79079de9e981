// Package docstore is the storage backend of the remote ledger service: a
// per-user, append-only document collection over SQLite. Documents receive
// a ULID and a server-assigned creation timestamp on append; nothing is
// ever updated in place.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/remote"
	"github.com/teamvault/budgetvault/internal/types"
)

// Compile-time interface check: the docstore satisfies the same contract
// the HTTP client exposes, so tests can run the engine against it directly.
var _ remote.Store = (*Store)(nil)

// Store is the SQLite-backed document collection.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the document database at dbPath.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	PRAGMA journal_mode=WAL;
	PRAGMA busy_timeout=5000;

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		occurred_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		start_time TEXT,
		end_time TEXT,
		photo_uri TEXT,
		local_id INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_owner_kind_created ON documents(owner_id, kind, created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_content ON documents(owner_id, kind, amount, occurred_date, category);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Append stores a new document, assigning its id and creation timestamp.
func (s *Store) Append(ctx context.Context, doc remote.Document) (remote.Document, error) {
	doc.ID = ulid.Make().String()
	doc.CreatedAt = s.now().UnixMilli()
	doc.Amount = dedup.CanonicalAmount(doc.Amount)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, kind, occurred_date, amount, category, description, start_time, end_time, photo_uri, local_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.OwnerID,
		string(doc.Kind),
		doc.OccurredDate,
		doc.Amount,
		doc.Category,
		nullable(doc.Description),
		nullable(doc.StartTime),
		nullable(doc.EndTime),
		nullable(doc.PhotoURI),
		doc.LocalID,
		doc.CreatedAt,
	)
	if err != nil {
		return remote.Document{}, fmt.Errorf("append %s document: %w", doc.Kind, err)
	}

	return doc, nil
}

// FindByContentKey returns documents matching the content key, at most two.
// The cap exists because callers only need to distinguish "none", "one" and
// "more than one" (the anomaly case).
func (s *Store) FindByContentKey(ctx context.Context, key dedup.ContentKey) ([]remote.Document, error) {
	query := `
		SELECT id, owner_id, kind, occurred_date, amount, category, description, start_time, end_time, photo_uri, local_id, created_at
		FROM documents
		WHERE owner_id = ? AND kind = ? AND amount = ? AND occurred_date = ? AND category = ?
	`
	args := []any{key.OwnerID, string(key.Kind), key.Amount, key.OccurredDate, key.Category}

	if key.HasDescription {
		query += " AND description = ?"
		args = append(args, key.Description)
	} else {
		query += " AND description IS NULL"
	}
	query += " ORDER BY created_at LIMIT 2"

	return s.queryDocuments(ctx, query, args...)
}

// QueryCreatedAfter returns the owner's documents of one kind created
// strictly after sinceMillis, newest first.
func (s *Store) QueryCreatedAfter(ctx context.Context, ownerID string, kind types.RecordKind, sinceMillis int64) ([]remote.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT id, owner_id, kind, occurred_date, amount, category, description, start_time, end_time, photo_uri, local_id, created_at
		FROM documents
		WHERE owner_id = ? AND kind = ? AND created_at > ?
		ORDER BY created_at DESC, id DESC
	`, ownerID, string(kind), sinceMillis)
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]remote.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []remote.Document
	for rows.Next() {
		var doc remote.Document
		var kind string
		var description, startTime, endTime, photoURI sql.NullString

		err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&kind,
			&doc.OccurredDate,
			&doc.Amount,
			&doc.Category,
			&description,
			&startTime,
			&endTime,
			&photoURI,
			&doc.LocalID,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}

		doc.Kind = types.RecordKind(kind)
		if description.Valid {
			doc.Description = &description.String
		}
		if startTime.Valid {
			doc.StartTime = &startTime.String
		}
		if endTime.Valid {
			doc.EndTime = &endTime.String
		}
		if photoURI.Valid {
			doc.PhotoURI = &photoURI.String
		}

		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
