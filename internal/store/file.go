package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pbaille/portfolio/internal/domain"
)

const (
	counterFile  = "visitors.json"
	notesFile    = "notes.json"
	contactsFile = "contacts.json"
)

type counterDoc struct {
	Count int64 `json:"count"`
}

// FileStore keeps everything in JSON files under a data directory.
// Each file has its own mutex, held across the whole read-modify-write.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OpenFiles prepares dir and seeds any missing data files
func OpenFiles(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &FileStore{dir: dir, locks: make(map[string]*sync.Mutex)}

	seeds := map[string]any{
		counterFile:  counterDoc{},
		notesFile:    []domain.Note{},
		contactsFile: []domain.Contact{},
	}
	for name, v := range seeds {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		if err := writeJSON(path, v); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Mode reports ModeFlatFile
func (s *FileStore) Mode() Mode { return ModeFlatFile }

// Close is a no-op
func (s *FileStore) Close() error { return nil }

// Dir returns the data directory
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) lock(path string) func() {
	s.mu.Lock()
	m, ok := s.locks[path]
	if !ok {
		m = &sync.Mutex{}
		s.locks[path] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *FileStore) counterPath(counterID string) string {
	if counterID == domain.GlobalCounter {
		return filepath.Join(s.dir, counterFile)
	}
	return filepath.Join(s.dir, "visitors-"+counterID+".json")
}

// Increment reads the counter file, adds one and writes it back.
// A missing or unreadable counter counts as zero.
func (s *FileStore) Increment(ctx context.Context, counterID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &Error{Op: "increment counter", Err: err}
	}

	path := s.counterPath(counterID)
	unlock := s.lock(path)
	defer unlock()

	var doc counterDoc
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if json.Unmarshal(data, &doc) != nil {
			doc = counterDoc{}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return 0, &Error{Op: "read counter", Err: err}
	}

	doc.Count++
	if err := writeJSON(path, doc); err != nil {
		return 0, &Error{Op: "write counter", Err: err}
	}
	return doc.Count, nil
}

// AddContact appends a contact submission to contacts.json
func (s *FileStore) AddContact(ctx context.Context, c *domain.Contact) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "append contact", Err: err}
	}
	stamp(&c.ID, &c.CreatedAt)
	if err := appendRecord(s, filepath.Join(s.dir, contactsFile), *c); err != nil {
		return &Error{Op: "append contact", Err: err}
	}
	return nil
}

// AddNote appends a note to notes.json
func (s *FileStore) AddNote(ctx context.Context, n *domain.Note) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "append note", Err: err}
	}
	stamp(&n.ID, &n.CreatedAt)
	if err := appendRecord(s, filepath.Join(s.dir, notesFile), *n); err != nil {
		return &Error{Op: "append note", Err: err}
	}
	return nil
}

// ListNotes returns every note in notes.json, newest first
func (s *FileStore) ListNotes(ctx context.Context) ([]domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "list notes", Err: err}
	}

	path := filepath.Join(s.dir, notesFile)
	unlock := s.lock(path)
	notes, err := readArray[domain.Note](path)
	unlock()
	if err != nil {
		return nil, &Error{Op: "list notes", Err: err}
	}

	slices.SortStableFunc(notes, func(a, b domain.Note) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return notes, nil
}

func appendRecord[T any](s *FileStore, path string, rec T) error {
	unlock := s.lock(path)
	defer unlock()

	recs, err := readArray[T](path)
	if err != nil {
		return err
	}
	return writeJSON(path, append(recs, rec))
}

func readArray[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	recs := []T{}
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data, 0o644)
}
