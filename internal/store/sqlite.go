package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/teamvault/budgetvault/internal/dedup"
	"github.com/teamvault/budgetvault/internal/types"
)

// Compile-time interface check
var _ LocalStore = (*SQLiteStore)(nil)

// SQLiteStore is the SQLite-backed ledger database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for performance and safety. WAL mode
// serializes concurrent writers at the storage engine, which is what lets
// concurrent Add calls share one store without partial rows.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert stores a record and returns the assigned local id.
func (s *SQLiteStore) Insert(ctx context.Context, record types.Record) (int64, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (kind, owner_id, occurred_date, amount, category, description, start_time, end_time, photo_uri, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(record.Kind),
		record.OwnerID,
		record.OccurredDate,
		record.Amount.StringFixed(2),
		record.Category,
		nullable(record.Description),
		nullable(record.StartTime),
		nullable(record.EndTime),
		nullable(record.PhotoURI),
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", record.Kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: last insert id: %w", record.Kind, err)
	}
	return id, nil
}

// InsertIfAbsent inserts the record unless an entry with the same content
// key already exists. It reports the id and whether an insert happened.
func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, record types.Record) (int64, bool, error) {
	exists, err := s.ExistsByContent(ctx, dedup.KeyOf(record))
	if err != nil {
		return 0, false, err
	}
	if exists {
		return 0, false, nil
	}

	id, err := s.Insert(ctx, record)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ExistsByContent reports whether a record with the given content key is
// present. NULL and empty descriptions are matched separately.
func (s *SQLiteStore) ExistsByContent(ctx context.Context, key dedup.ContentKey) (bool, error) {
	query := `
		SELECT COUNT(*) FROM records
		WHERE owner_id = ? AND kind = ? AND amount = ? AND occurred_date = ? AND category = ?
	`
	args := []any{key.OwnerID, string(key.Kind), key.Amount, key.OccurredDate, key.Category}

	if key.HasDescription {
		query += " AND description = ?"
		args = append(args, key.Description)
	} else {
		query += " AND description IS NULL"
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("%s content check: %w", key.Kind, err)
	}
	return count > 0, nil
}

// Query returns the owner's records of one kind, newest insert first,
// narrowed by the filter. Date bounds are converted from ISO at this
// boundary; stored dates stay in display format throughout.
func (s *SQLiteStore) Query(ctx context.Context, ownerID string, kind types.RecordKind, filter Filter) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, owner_id, occurred_date, amount, category, description, start_time, end_time, photo_uri, created_at
		FROM records
		WHERE owner_id = ? AND kind = ?
		ORDER BY id DESC
	`, ownerID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	var start, end time.Time
	if filter.StartDate != "" {
		if start, err = types.ParseISODate(filter.StartDate); err != nil {
			return nil, fmt.Errorf("query %s: %w", kind, err)
		}
	}
	if filter.EndDate != "" {
		if end, err = types.ParseISODate(filter.EndDate); err != nil {
			return nil, fmt.Errorf("query %s: %w", kind, err)
		}
	}

	var records []types.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", kind, err)
		}
		if !matchesFilter(*record, filter, start, end) {
			continue
		}
		records = append(records, *record)
		if filter.Limit > 0 && len(records) == filter.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}

	return records, nil
}

// matchesFilter applies date-range, category and search narrowing.
// Occurred dates are parsed from display format; records whose date cannot
// be parsed are excluded from ranged queries rather than silently compared
// in mixed formats.
func matchesFilter(r types.Record, filter Filter, start, end time.Time) bool {
	if !start.IsZero() || !end.IsZero() {
		occurred, err := types.ParseDisplayDate(r.OccurredDate)
		if err != nil {
			return false
		}
		if !start.IsZero() && occurred.Before(start) {
			return false
		}
		if !end.IsZero() && occurred.After(end) {
			return false
		}
	}

	if filter.Category != "" && r.DisplayCategory() != strings.ToLower(strings.TrimSpace(filter.Category)) {
		return false
	}

	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystack := strings.ToLower(r.Category)
		if r.Description != nil {
			haystack += " " + strings.ToLower(*r.Description)
		}
		if !strings.Contains(haystack, needle) {
			return false
		}
	}

	return true
}

// Delete removes a record scoped to (owner, local id).
func (s *SQLiteStore) Delete(ctx context.Context, ownerID string, localID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE owner_id = ? AND id = ?`, ownerID, localID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TotalAmount sums amounts over the filtered records. Summation happens in
// exact decimal arithmetic, not in SQL, because amounts are stored as text.
func (s *SQLiteStore) TotalAmount(ctx context.Context, ownerID string, kind types.RecordKind, filter Filter) (decimal.Decimal, error) {
	records, err := s.Query(ctx, ownerID, kind, filter)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total, nil
}

// SumByCategory groups filtered records by case-folded category.
func (s *SQLiteStore) SumByCategory(ctx context.Context, ownerID string, kind types.RecordKind, filter Filter) (map[string]decimal.Decimal, error) {
	records, err := s.Query(ctx, ownerID, kind, filter)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		category := r.DisplayCategory()
		sums[category] = sums[category].Add(r.Amount)
	}
	return sums, nil
}

// scanRecord scans a row into a Record, handling nullable columns and the
// stored amount/timestamp encodings.
func scanRecord(scanner interface{ Scan(...any) error }) (*types.Record, error) {
	var record types.Record
	var kind, amount, createdAt string
	var description, startTime, endTime, photoURI sql.NullString

	err := scanner.Scan(
		&record.LocalID,
		&kind,
		&record.OwnerID,
		&record.OccurredDate,
		&amount,
		&record.Category,
		&description,
		&startTime,
		&endTime,
		&photoURI,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.Kind = types.RecordKind(kind)

	record.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}

	if description.Valid {
		record.Description = &description.String
	}
	if startTime.Valid {
		record.StartTime = &startTime.String
	}
	if endTime.Valid {
		record.EndTime = &endTime.String
	}
	if photoURI.Valid {
		record.PhotoURI = &photoURI.String
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		record.CreatedAt = t
	}

	return &record, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
