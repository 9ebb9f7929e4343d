package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web/persistence"
)

// APIListResponse is the JSON response for /api/v1/students
type APIListResponse struct {
	Students  []roster.Student `json:"students"`
	Total     int              `json:"total"` // students in the store before filtering
	Timestamp time.Time        `json:"timestamp"`
}

// APIValidationResponse is the JSON response for rejected student data
type APIValidationResponse struct {
	Error  string                  `json:"error"`
	Fields roster.ValidationErrors `json:"fields"`
}

// handleAPIList returns students filtered by the optional search parameter, in store order
func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.List(r.Context())
	if err != nil {
		log.Printf("[ERROR] failed to list students: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load students")
		return
	}

	resp := APIListResponse{
		Students:  roster.Filter(all, strings.TrimSpace(r.URL.Query().Get("search"))),
		Total:     len(all),
		Timestamp: s.now().UTC(),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPIGet returns a single student
func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.apiStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handleAPICreate adds a student from JSON draft
func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	d, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	st, err := s.store.Add(r.Context(), d)
	if err != nil {
		log.Printf("[ERROR] failed to add student: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to save student")
		return
	}
	log.Printf("[INFO] student %s registered via api", st)
	s.writeJSON(w, http.StatusCreated, st)
}

// handleAPIUpdate replaces editable fields of a student
func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	d, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	st, err := s.store.Update(r.Context(), r.PathValue("id"), d)
	if err != nil {
		s.apiStoreError(w, err)
		return
	}
	log.Printf("[INFO] student %s updated via api", st)
	s.writeJSON(w, http.StatusOK, st)
}

// handleAPIDelete removes a student, unknown ids are ignored
func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		log.Printf("[ERROR] failed to delete student %s: %v", id, err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAPISchema returns JSON schema of the student record
func (s *Server) handleAPISchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, roster.Schema())
}

// decodeDraft reads and validates a JSON draft, writes an error response if invalid
func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (roster.Draft, bool) {
	var d roster.Draft
	err := json.NewDecoder(r.Body).Decode(&d)
	if err == nil {
		err = d.Validate(s.now())
	}
	if err != nil {
		var verr roster.ValidationErrors
		if errors.As(err, &verr) {
			s.writeJSON(w, http.StatusBadRequest, APIValidationResponse{Error: "invalid student", Fields: verr})
			return roster.Draft{}, false
		}
		s.writeJSONError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return roster.Draft{}, false
	}
	return d, true
}

// apiStoreError maps store errors to JSON error responses
func (s *Server) apiStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "student not found")
		return
	}
	log.Printf("[ERROR] store failure: %v", err)
	s.writeJSONError(w, http.StatusInternalServerError, "store failure")
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
