package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pbaille/portfolio/internal/domain"
	"github.com/pbaille/portfolio/internal/notify"
	"github.com/pbaille/portfolio/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu         sync.Mutex
	count      int64
	contacts   []domain.Contact
	notes      []domain.Note
	counterErr error
	contactErr error
	notesErr   error
}

func (f *fakeStore) Mode() store.Mode { return store.ModeFlatFile }
func (f *fakeStore) Close() error     { return nil }

func (f *fakeStore) Increment(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counterErr != nil {
		return 0, f.counterErr
	}
	f.count++
	return f.count, nil
}

func (f *fakeStore) AddContact(_ context.Context, c *domain.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contactErr != nil {
		return f.contactErr
	}
	c.ID = fmt.Sprintf("c%d", len(f.contacts)+1)
	f.contacts = append(f.contacts, *c)
	return nil
}

func (f *fakeStore) AddNote(_ context.Context, n *domain.Note) error {
	f.notes = append(f.notes, *n)
	return nil
}

func (f *fakeStore) ListNotes(context.Context) ([]domain.Note, error) {
	return f.notes, f.notesErr
}

type fakeNotifier struct {
	result notify.Result
	calls  int
	got    domain.Contact
}

func (f *fakeNotifier) Notify(_ context.Context, c domain.Contact) notify.Result {
	f.calls++
	f.got = c
	return f.result
}

func newTestServer(t *testing.T, st *fakeStore, n Notifier) http.Handler {
	t.Helper()
	return New(st, n, Options{PublicDir: t.TempDir()}, zap.NewNop()).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

const validContact = `{"name":"A","email":"a@x.com","phone":"9999999999","message":"hi"}`

func TestContactNothingConfigured(t *testing.T) {
	st := &fakeStore{}
	n := &fakeNotifier{}
	h := newTestServer(t, st, n)

	rec, body := do(t, h, http.MethodPost, "/api/contact", validContact)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"ok": true, "note": "Saved. Email/WhatsApp not configured."}, body)
	require.Len(t, st.contacts, 1)
	assert.Equal(t, "a@x.com", st.contacts[0].Email)
	assert.Equal(t, 1, n.calls)
}

func TestContactDeliveredResponses(t *testing.T) {
	for _, res := range []notify.Result{
		{ChatSent: true},
		{EmailSent: true},
		{EmailSent: true, ChatSent: true},
	} {
		h := newTestServer(t, &fakeStore{}, &fakeNotifier{result: res})

		rec, body := do(t, h, http.MethodPost, "/api/contact", validContact)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"ok": true}, body, "%+v", res)
	}
}

func TestContactMissingFields(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"email":"a@x.com","phone":"1","message":"hi"}`,
		`{"name":"A","phone":"1","message":"hi"}`,
		`{"name":"A","email":"a@x.com","message":"hi"}`,
		`{"name":"A","email":"a@x.com","phone":"1"}`,
		`{"name":"","email":"a@x.com","phone":"1","message":"hi"}`,
		``,
	}

	for _, b := range bodies {
		st := &fakeStore{}
		n := &fakeNotifier{}
		h := newTestServer(t, st, n)

		rec, body := do(t, h, http.MethodPost, "/api/contact", b)
		assert.Equal(t, http.StatusBadRequest, rec.Code, b)
		assert.Equal(t, map[string]any{"ok": false, "error": "Missing fields"}, body, b)
		assert.Empty(t, st.contacts, b)
		assert.Zero(t, n.calls, b)
	}
}

func TestContactWhitespaceFieldsAccepted(t *testing.T) {
	st := &fakeStore{}
	n := &fakeNotifier{}
	h := newTestServer(t, st, n)

	rec, body := do(t, h, http.MethodPost, "/api/contact", `{"name":" ","email":"a@x.com","phone":"1","message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	require.Len(t, st.contacts, 1)
	assert.Equal(t, " ", st.contacts[0].Name)
	assert.Equal(t, 1, n.calls)
}

func TestContactMalformedBody(t *testing.T) {
	st := &fakeStore{}
	n := &fakeNotifier{}
	h := newTestServer(t, st, n)

	rec, body := do(t, h, http.MethodPost, "/api/contact", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"ok": false, "error": "invalid request body"}, body)
	assert.Empty(t, st.contacts)
	assert.Zero(t, n.calls)
}

func TestContactBodyTooLarge(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, &fakeNotifier{})

	big := `{"name":"A","email":"a@x.com","phone":"1","message":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec, _ := do(t, h, http.MethodPost, "/api/contact", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestContactStoreFailureIsSwallowed(t *testing.T) {
	st := &fakeStore{contactErr: &store.Error{Op: "append contact", Err: errors.New("disk full")}}
	n := &fakeNotifier{result: notify.Result{EmailSent: true}}
	h := newTestServer(t, st, n)

	rec, body := do(t, h, http.MethodPost, "/api/contact", validContact)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"ok": true}, body)
	assert.Equal(t, 1, n.calls)
	assert.Equal(t, "A", n.got.Name)
}

func TestVisitorsCountsUp(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, &fakeNotifier{})

	for want := 1.0; want <= 5; want++ {
		rec, body := do(t, h, http.MethodGet, "/api/visitors", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, body["count"])
	}
}

func TestVisitorsStoreFailure(t *testing.T) {
	h := newTestServer(t, &fakeStore{counterErr: errors.New("locked")}, &fakeNotifier{})

	rec, body := do(t, h, http.MethodGet, "/api/visitors", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Failed to update counter"}, body)
}

func TestVisitorsWithFileStore(t *testing.T) {
	fs, err := store.OpenFiles(t.TempDir())
	require.NoError(t, err)
	h := New(fs, &fakeNotifier{}, Options{PublicDir: t.TempDir()}, zap.NewNop()).Handler()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/visitors", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	_, body := do(t, h, http.MethodGet, "/api/visitors", "")
	assert.Equal(t, 11.0, body["count"])
}

func TestNotes(t *testing.T) {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	st := &fakeStore{notes: []domain.Note{
		{ID: "n1", Subject: "Physics", Title: "Optics", Link: "https://x/o.pdf", SizeMB: 1.5, CreatedAt: created},
	}}
	h := newTestServer(t, st, &fakeNotifier{})

	rec, body := do(t, h, http.MethodGet, "/api/notes", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	notes := body["notes"].([]any)
	require.Len(t, notes, 1)
	note := notes[0].(map[string]any)
	assert.Equal(t, "Physics", note["subject"])
	assert.Equal(t, "Optics", note["title"])
	assert.Equal(t, "https://x/o.pdf", note["link"])
	assert.Equal(t, 1.5, note["sizeMB"])
}

func TestNotesEmptyIsArray(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, &fakeNotifier{})

	rec, _ := do(t, h, http.MethodGet, "/api/notes", "")
	assert.JSONEq(t, `{"notes": []}`, rec.Body.String())
}

func TestNotesStoreFailure(t *testing.T) {
	h := newTestServer(t, &fakeStore{notesErr: errors.New("corrupt")}, &fakeNotifier{})

	rec, body := do(t, h, http.MethodGet, "/api/notes", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Failed to fetch notes"}, body)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, &fakeNotifier{})

	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "storage": "flatfile"}, body)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &fakeStore{}, &fakeNotifier{})

	rec, _ := do(t, h, http.MethodOptions, "/api/contact", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSPAFallback(t *testing.T) {
	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(public, "index.html"), []byte("<html>home</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(public, "script.js"), []byte("console.log(1)"), 0o644))
	h := New(&fakeStore{}, &fakeNotifier{}, Options{PublicDir: public}, zap.NewNop()).Handler()

	rec, _ := do(t, h, http.MethodGet, "/script.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	for _, p := range []string{"/", "/about", "/notes/physics"} {
		rec, _ := do(t, h, http.MethodGet, p, "")
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Contains(t, rec.Body.String(), "home", p)
	}

	rec, body := do(t, h, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestListenSkipsBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	s := New(&fakeStore{}, &fakeNotifier{}, Options{Port: port, PortAttempts: 20}, zap.NewNop())
	ln, err := s.listen()
	require.NoError(t, err)
	defer ln.Close()

	assert.Greater(t, ln.Addr().(*net.TCPAddr).Port, port)
}

func TestListenGivesUp(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	s := New(&fakeStore{}, &fakeNotifier{}, Options{Port: port, PortAttempts: 1}, zap.NewNop())
	_, err = s.listen()
	assert.ErrorIs(t, err, ErrNoPort)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(&fakeStore{}, &fakeNotifier{}, Options{Port: 0, PublicDir: t.TempDir()}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
