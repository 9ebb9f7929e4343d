package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	log "github.com/go-pkgz/lgr"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web/enums"
	"github.com/tepuyroraima/roster/app/web/persistence"
)

// notice is sent to the browser in HX-Trigger and shown as a toast
type notice struct {
	Kind    enums.NoticeKind `json:"kind"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}

// handleDashboard renders the main page. The roster itself is requested by the
// page after the load delay, the initial render shows a placeholder.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := s.newTemplateData(r)
	data.Theme = s.getTheme(r)
	data.CurrentYear = s.now().Year()
	data.Version = shortVersion(s.version)
	data.FullVersion = s.version
	data.LoadDelayMs = s.loadDelay.Milliseconds()
	s.render(w, "base.html", "base", data)
}

// handleStudentsPartial returns the roster table with OOB stats for HTMX requests
func (s *Server) handleStudentsPartial(w http.ResponseWriter, r *http.Request) {
	s.renderRoster(w, r, s.getSortMode(r))
}

// handleSortToggle cycles sort mode and returns the re-sorted roster table
func (s *Server) handleSortToggle(w http.ResponseWriter, r *http.Request) {
	mode := s.cycleSortMode(s.getSortMode(r))
	s.setPrefCookie(w, "sort-mode", mode.String())
	s.renderRoster(w, r, mode)
}

// handleThemeToggle toggles the theme and asks the page to reload
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	next := enums.ThemeDark
	if s.getTheme(r) == enums.ThemeDark {
		next = enums.ThemeLight
	}
	s.setPrefCookie(w, "theme", next.String())
	w.Header().Set("HX-Refresh", "true")
	w.WriteHeader(http.StatusOK)
}

// handleNewForm renders an empty form modal
func (s *Server) handleNewForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "partials", "student-form", s.newFormData("", roster.Draft{}))
}

// handleEditForm renders the form modal filled with the student's data
func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, err, "Student not found", "Failed to load student")
		return
	}
	s.render(w, "partials", "student-form", s.newFormData(st.ID, st.Draft()))
}

// handleCreate validates the submitted form and adds a new student
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	d, ok := s.parseForm(w, r, "")
	if !ok {
		return
	}

	st, err := s.store.Add(r.Context(), d)
	if err != nil {
		log.Printf("[ERROR] failed to add student: %v", err)
		s.triggerNotice(w, notice{Kind: enums.NoticeKindError, Title: "Error", Message: "Hubo un problema al guardar el registro."})
		http.Error(w, "Failed to save student", http.StatusInternalServerError)
		return
	}

	log.Printf("[INFO] student %s registered", st)
	s.triggerNotice(w, notice{Kind: enums.NoticeKindSuccess, Title: "Éxito", Message: "Nuevo alumno registrado correctamente."},
		"refresh-students")
	w.WriteHeader(http.StatusOK) // empty body closes the modal
}

// handleUpdate validates the submitted form and replaces the student's data
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, ok := s.parseForm(w, r, id)
	if !ok {
		return
	}

	st, err := s.store.Update(r.Context(), id, d)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			s.triggerNotice(w, notice{Kind: enums.NoticeKindError, Title: "Error", Message: "Hubo un problema al guardar el registro."})
		}
		s.storeError(w, err, "Student not found", "Failed to save student")
		return
	}

	log.Printf("[INFO] student %s updated", st)
	s.triggerNotice(w, notice{Kind: enums.NoticeKindSuccess, Title: "Éxito", Message: "Registro de alumno actualizado correctamente."},
		"refresh-students")
	w.WriteHeader(http.StatusOK)
}

// handleDeleteConfirm renders the delete confirmation modal
func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err, "Student not found", "Failed to load student")
		return
	}
	s.render(w, "partials", "delete-modal", struct {
		Student roster.Student
		BaseURL string
	}{Student: st, BaseURL: s.baseURL})
}

// handleDelete removes the student, unknown ids are ignored
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		log.Printf("[ERROR] failed to delete student %s: %v", id, err)
		s.triggerNotice(w, notice{Kind: enums.NoticeKindError, Title: "Error", Message: "No se pudo eliminar el registro."})
		http.Error(w, "Failed to delete student", http.StatusInternalServerError)
		return
	}

	log.Printf("[INFO] student %s deleted", id)
	s.triggerNotice(w, notice{Kind: enums.NoticeKindDestructive, Title: "Eliminado",
		Message: "El registro del alumno ha sido eliminado."}, "refresh-students")
	w.WriteHeader(http.StatusOK)
}

// renderRoster renders the roster table and the OOB stats with the given sort mode
func (s *Server) renderRoster(w http.ResponseWriter, r *http.Request, mode enums.SortMode) {
	search := r.FormValue("search")
	view := s.loadRoster(r.Context(), search, mode)

	data := s.newTemplateData(r)
	data.Students = view.students
	data.TotalCount = view.totalCount
	data.Search = search
	data.SortMode = mode
	data.LoadFailed = view.failed
	data.IsOOB = true

	if view.failed {
		s.triggerNotice(w, notice{Kind: enums.NoticeKindError, Title: "Error",
			Message: "No se pudieron cargar los registros. Intente de nuevo más tarde."})
	}
	s.render(w, "partials", "students-partial", data)
}

// parseForm decodes and validates the student form. On invalid input the form
// is re-rendered with inline errors and 422, ok is false.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request, id string) (roster.Draft, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return roster.Draft{}, false
	}

	d, parseErr := roster.ParseDraft(r.PostForm)
	verr := roster.ValidationErrors{}
	for _, err := range []error{d.Validate(s.now()), parseErr} {
		var ve roster.ValidationErrors
		if errors.As(err, &ve) {
			for k, v := range ve {
				verr[k] = v
			}
		}
	}
	if len(verr) == 0 {
		return d, true
	}

	data := s.newFormData(id, d)
	data.Errors = verr
	if data.FechaNac == "" {
		data.FechaNac = r.PostForm.Get("fechaNacimiento")
	}
	s.renderStatus(w, http.StatusUnprocessableEntity, "partials", "student-form", data)
	return roster.Draft{}, false
}

// storeError maps store errors to http responses
func (s *Server) storeError(w http.ResponseWriter, err error, notFoundMsg, failMsg string) {
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, notFoundMsg, http.StatusNotFound)
		return
	}
	log.Printf("[ERROR] %s: %v", failMsg, err)
	http.Error(w, failMsg, http.StatusInternalServerError)
}

// triggerNotice sets HX-Trigger with the notice and optional extra events
func (s *Server) triggerNotice(w http.ResponseWriter, n notice, events ...string) {
	trigger := map[string]any{"notice": n}
	for _, e := range events {
		trigger[e] = true
	}
	data, err := json.Marshal(trigger)
	if err != nil {
		log.Printf("[WARN] failed to encode HX-Trigger: %v", err)
		return
	}
	w.Header().Set("HX-Trigger", asciiJSON(data))
}

// asciiJSON escapes non-ASCII runes of encoded json, headers are read by browsers as latin-1
func asciiJSON(data []byte) string {
	var sb strings.Builder
	for _, r := range string(data) {
		switch {
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String()
}

// newTemplateData creates a TemplateData with common fields populated from request
func (s *Server) newTemplateData(r *http.Request) TemplateData {
	return TemplateData{
		BaseURL:  s.baseURL,
		SortMode: s.getSortMode(r),
		Now:      s.now(),
	}
}

// newFormData makes form data from the draft, id is empty for a new student
func (s *Server) newFormData(id string, d roster.Draft) FormData {
	res := FormData{
		ID:          id,
		Nombre:      d.Nombre,
		Apellido:    d.Apellido,
		Cedula:      d.Cedula,
		Telefono:    d.Telefono,
		Direccion:   d.Direccion,
		Instrumento: d.Instrumento,
		BaseURL:     s.baseURL,
		MaxDate:     s.now().Format(roster.BirthDateLayout),
	}
	if res.Telefono == roster.NoPhone {
		res.Telefono = ""
	}
	if !d.FechaNacimiento.IsZero() {
		res.FechaNac = d.FechaNacimiento.UTC().Format(roster.BirthDateLayout)
	}
	return res
}
