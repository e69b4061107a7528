package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pbaille/portfolio/internal/domain"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20

	notConfiguredNote = "Saved. Email/WhatsApp not configured."
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.store.Mode().String(),
	})
}

// VisitorsResponse is the response for the visitor counter
type VisitorsResponse struct {
	Count int64 `json:"count"`
}

func (s *Server) visitors(w http.ResponseWriter, r *http.Request) {
	count, err := s.counter.Bump(r.Context())
	if err != nil {
		s.logger.Error("update visitor counter", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update counter")
		return
	}
	writeJSON(w, http.StatusOK, VisitorsResponse{Count: count})
}

// NotesResponse is the response for the notes listing
type NotesResponse struct {
	Notes []domain.Note `json:"notes"`
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context())
	if err != nil {
		s.logger.Error("list notes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch notes")
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: notes})
}

// ContactRequest is the request body for the contact form
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// ContactResponse is the response for the contact form
type ContactResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Note  string `json:"note,omitempty"`
}

func (s *Server) contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	// an empty body is an empty form
	if err != nil && !errors.Is(err, io.EOF) {
		if isMaxBytes(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ContactResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ContactResponse{Error: "invalid request body"})
		return
	}

	c := domain.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone, Message: req.Message}
	if err := c.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ContactResponse{Error: err.Error()})
		return
	}

	// Persistence is best effort here, unlike the counter
	if err := s.store.AddContact(r.Context(), &c); err != nil {
		s.logger.Warn("failed to save contact, continuing", zap.Error(err))
	}

	res := s.notifier.Notify(r.Context(), c)
	s.logger.Info("contact received",
		zap.String("id", c.ID),
		zap.Bool("email_sent", res.EmailSent),
		zap.Bool("whatsapp_sent", res.ChatSent),
	)

	if !res.Any() {
		writeJSON(w, http.StatusOK, ContactResponse{OK: true, Note: notConfiguredNote})
		return
	}
	writeJSON(w, http.StatusOK, ContactResponse{OK: true})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// isMaxBytes reports whether err came from an oversized request body
func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
