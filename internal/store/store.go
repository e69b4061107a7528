package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pbaille/portfolio/internal/domain"
	"go.uber.org/zap"
)

// Mode identifies the active persistence backend
type Mode int

const (
	ModeFlatFile Mode = iota
	ModeDatabase
)

func (m Mode) String() string {
	if m == ModeDatabase {
		return "database"
	}
	return "flatfile"
}

// Store persists counters, contact submissions and notes
type Store interface {
	Mode() Mode
	Increment(ctx context.Context, counterID string) (int64, error)
	AddContact(ctx context.Context, c *domain.Contact) error
	AddNote(ctx context.Context, n *domain.Note) error
	ListNotes(ctx context.Context) ([]domain.Note, error)
	Close() error
}

// Error wraps a backend failure with the operation that caused it
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Options selects and configures the backend
type Options struct {
	DatabaseURL    string
	DatabaseName   string
	ConnectTimeout time.Duration
	DataDir        string
}

// Open picks the backend once. A configured database that answers a ping
// within ConnectTimeout wins; anything else falls back to flat files in DataDir.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	if opts.DatabaseURL != "" {
		timeout := opts.ConnectTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		pctx, cancel := context.WithTimeout(ctx, timeout)
		s, err := OpenSQL(pctx, opts.DatabaseURL, opts.DatabaseName)
		cancel()
		if err == nil {
			logger.Info("database connected", zap.String("driver", s.driver))
			return s, nil
		}
		logger.Warn("database connection failed, falling back to JSON storage", zap.Error(err))
	}

	fs, err := OpenFiles(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open flat files: %w", err)
	}
	logger.Info("using flat file storage", zap.String("dir", opts.DataDir))
	return fs, nil
}
