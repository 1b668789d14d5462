package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/support-desk/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: SQLite has a single writer, and every connection to
	// ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// IsEmpty reports whether the tickets table has no rows.
func (s *SQLiteStore) IsEmpty(ctx context.Context) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, "SELECT 1 FROM tickets LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking for tickets: %w", err)
	}
	return false, nil
}

// MaxID returns the largest ticket id, sentinel included.
func (s *SQLiteStore) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	err := s.db.GetContext(ctx, &maxID, "SELECT COALESCE(MAX(id), 0) FROM tickets")
	if err != nil {
		return 0, fmt.Errorf("reading max ticket id: %w", err)
	}
	return maxID, nil
}

// InsertTicket inserts a new ticket. An existing id is an error.
func (s *SQLiteStore) InsertTicket(ctx context.Context, t model.Ticket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (
			id, ticket_id, sender, subject, message, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TicketID, t.Sender, t.Subject, t.Message, t.Status,
		utcOrNil(t.CreatedAt), utcOrNil(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting ticket %d: %w", t.ID, err)
	}
	return nil
}

// GetTicket retrieves a single ticket by id.
func (s *SQLiteStore) GetTicket(ctx context.Context, id int64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.GetContext(ctx, &t, "SELECT * FROM tickets WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting ticket %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket %d: %w", id, err)
	}
	return &t, nil
}

// ListTickets retrieves tickets matching the filter, ordered by id.
func (s *SQLiteStore) ListTickets(
	ctx context.Context,
	filter TicketFilter,
) ([]model.Ticket, error) {
	where, args := buildTicketConditions(filter)

	query := "SELECT * FROM tickets" + where

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += " ORDER BY id " + direction

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var tickets []model.Ticket
	if err := s.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	return tickets, nil
}

// CountTickets counts tickets matching the filter, ignoring pagination.
func (s *SQLiteStore) CountTickets(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := buildTicketConditions(filter)

	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tickets"+where, args...); err != nil {
		return 0, fmt.Errorf("counting tickets: %w", err)
	}
	return n, nil
}

// buildTicketConditions renders filter as a WHERE clause and its arguments.
func buildTicketConditions(filter TicketFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if !filter.IncludeSentinel {
		conditions = append(conditions, "id <> ?")
		args = append(args, model.SentinelID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Sender != nil {
		conditions = append(conditions, "sender = ?")
		args = append(args, *filter.Sender)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
