package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/portfolio/internal/domain"
)

//go:embed schema.sql
var schema string

// SQLStore keeps everything in a SQL database (Postgres or SQLite)
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQL connects to rawURL, pings it and applies the schema. dbName, when
// set, replaces the database named in a Postgres URL.
func OpenSQL(ctx context.Context, rawURL, dbName string) (*SQLStore, error) {
	driver, dsn, err := driverFor(rawURL, dbName)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite3" {
		// single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}

	return &SQLStore{db: db, driver: driver}, nil
}

func driverFor(rawURL, dbName string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		if dbName == "" {
			return "pgx", rawURL, nil
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", "", fmt.Errorf("parse database url: %w", err)
		}
		u.Path = "/" + dbName
		return "pgx", u.String(), nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(rawURL, "sqlite://"), nil
	case strings.Contains(rawURL, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme: %s", rawURL[:strings.Index(rawURL, "://")])
	default:
		return "sqlite3", rawURL, nil
	}
}

// Mode reports ModeDatabase
func (s *SQLStore) Mode() Mode { return ModeDatabase }

// Driver returns the database/sql driver name in use
func (s *SQLStore) Driver() string { return s.driver }

// Ping checks that the database still answers
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for Postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Increment atomically bumps a counter, creating it on first use
func (s *SQLStore) Increment(ctx context.Context, counterID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO counters (id, count) VALUES (?, 1)
		ON CONFLICT (id) DO UPDATE SET count = counters.count + 1
		RETURNING count
	`), counterID).Scan(&count)
	if err != nil {
		return 0, &Error{Op: "increment counter", Err: err}
	}
	return count, nil
}

// AddContact inserts a contact submission
func (s *SQLStore) AddContact(ctx context.Context, c *domain.Contact) error {
	stamp(&c.ID, &c.CreatedAt)
	_, err := s.db.ExecContext(ctx, s.rebind(
		"INSERT INTO contacts (id, name, email, phone, message, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		c.ID, c.Name, c.Email, c.Phone, c.Message, c.CreatedAt,
	)
	if err != nil {
		return &Error{Op: "insert contact", Err: err}
	}
	return nil
}

// AddNote inserts a note
func (s *SQLStore) AddNote(ctx context.Context, n *domain.Note) error {
	stamp(&n.ID, &n.CreatedAt)
	_, err := s.db.ExecContext(ctx, s.rebind(
		"INSERT INTO notes (id, subject, title, link, size_mb, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		n.ID, n.Subject, n.Title, n.Link, n.SizeMB, n.CreatedAt,
	)
	if err != nil {
		return &Error{Op: "insert note", Err: err}
	}
	return nil
}

// ListNotes returns every note, newest first
func (s *SQLStore) ListNotes(ctx context.Context) ([]domain.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, subject, title, link, size_mb, created_at FROM notes ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, &Error{Op: "list notes", Err: err}
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Subject, &n.Title, &n.Link, &n.SizeMB, &n.CreatedAt); err != nil {
			return nil, &Error{Op: "scan note", Err: err}
		}
		n.CreatedAt = n.CreatedAt.UTC()
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "list notes", Err: err}
	}

	return notes, nil
}

// stamp fills in a missing id and creation time
func stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC().Truncate(time.Microsecond)
	}
}
