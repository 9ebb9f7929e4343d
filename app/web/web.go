// Package web implements the web server of the band roster: HTMX dashboard, spreadsheet export and JSON API
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web/enums"
)

//go:embed templates/*.html templates/partials/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server represents the web server
type Server struct {
	store          Persistence
	templates      map[string]*template.Template
	baseURL        string        // base URL path for reverse proxy (e.g., /banda), empty for root
	version        string        // application version
	loadDelay      time.Duration // delay before the dashboard requests the roster
	csrfProtection *http.CrossOriginProtection
	exportLimiter  *limiter.Limiter
	now            func() time.Time
}

//go:generate moq -out mocks/persistence.go -pkg mocks -skip-ensure -fmt goimports . Persistence

// Persistence defines storage operations for the student roster
type Persistence interface {
	List(ctx context.Context) ([]roster.Student, error)
	Get(ctx context.Context, id string) (roster.Student, error)
	Add(ctx context.Context, d roster.Draft) (roster.Student, error)
	Update(ctx context.Context, id string, d roster.Draft) (roster.Student, error)
	Delete(ctx context.Context, id string) error
}

// Config holds server configuration
type Config struct {
	Store        Persistence   // roster storage, required
	BaseURL      string        // base URL path for reverse proxy (e.g., /banda), empty for root
	Version      string        // application version
	LoadDelay    time.Duration // delay before the dashboard requests the roster, 0 to load immediately
	ExportPerMin float64       // max export requests per minute per client, defaults to 10
}

// TemplateData holds data for templates
type TemplateData struct {
	Students    []roster.Student
	Search      string
	TotalCount  int // students in the store before filtering
	Theme       enums.Theme
	SortMode    enums.SortMode
	BaseURL     string
	Version     string // application version (short form)
	FullVersion string
	CurrentYear int
	LoadDelayMs int64
	LoadFailed  bool // roster could not be loaded, rendered as a notice
	IsOOB       bool
	Now         time.Time
}

// FormData holds data for the create/edit form modal
type FormData struct {
	ID          string // empty for a new student
	Nombre      string
	Apellido    string
	Cedula      string
	Telefono    string
	FechaNac    string // YYYY-MM-DD as expected by the date input
	Direccion   string
	Instrumento string
	Errors      roster.ValidationErrors
	Message     string // form-level error, e.g. store failure
	BaseURL     string
	MaxDate     string
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("web server initialization failed: store is required")
	}

	exportPerMin := cfg.ExportPerMin
	if exportPerMin <= 0 {
		exportPerMin = 10
	}
	lmt := tollbooth.NewLimiter(exportPerMin/60, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetBurst(int(exportPerMin))
	lmt.SetMessage("too many export requests, try again later")

	s := &Server{
		store:          cfg.Store,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		version:        cfg.Version,
		loadDelay:      cfg.LoadDelay,
		csrfProtection: http.NewCrossOriginProtection(),
		exportLimiter:  lmt,
		now:            time.Now,
	}

	templates, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = templates
	return s, nil
}

// Run starts the web server and blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// handler returns the http.Handler with base URL wrapping applied
func (s *Server) handler() http.Handler {
	routes := s.routes()
	if s.baseURL == "" {
		return routes
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.baseURL, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.baseURL+"/", http.StatusMovedPermanently)
	})
	mux.Handle(s.baseURL+"/", http.StripPrefix(s.baseURL, routes))
	return mux
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("roster", "tepuyroraima", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.HandleFunc("GET /", s.handleDashboard)
	router.With(tollbooth.HTTPMiddleware(s.exportLimiter)).HandleFunc("GET /export", s.handleExport)

	// HTMX endpoints
	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.Use(s.csrfProtection.Handler)

		api.HandleFunc("GET /students", s.handleStudentsPartial)
		api.HandleFunc("GET /students/new", s.handleNewForm)
		api.HandleFunc("POST /students", s.handleCreate)
		api.HandleFunc("GET /students/{id}/edit", s.handleEditForm)
		api.HandleFunc("POST /students/{id}", s.handleUpdate)
		api.HandleFunc("GET /students/{id}/delete", s.handleDeleteConfirm)
		api.HandleFunc("DELETE /students/{id}", s.handleDelete)
		api.HandleFunc("POST /theme", s.handleThemeToggle)
		api.HandleFunc("POST /sort-toggle", s.handleSortToggle)
	})

	// JSON API for programmatic access
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.Use(s.csrfProtection.Handler)

		api.HandleFunc("GET /students", s.handleAPIList)
		api.HandleFunc("POST /students", s.handleAPICreate)
		api.HandleFunc("GET /students/{id}", s.handleAPIGet)
		api.HandleFunc("PUT /students/{id}", s.handleAPIUpdate)
		api.HandleFunc("DELETE /students/{id}", s.handleAPIDelete)
		api.HandleFunc("GET /schema", s.handleAPISchema)
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// render renders a template with 200 status
func (s *Server) render(w http.ResponseWriter, page, tmplName string, data any) {
	s.renderStatus(w, http.StatusOK, page, tmplName, data)
}

// renderStatus renders a template into a buffer first, so a failed template never leaks partial output
func (s *Server) renderStatus(w http.ResponseWriter, status int, page, tmplName string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[WARN] failed to execute template %s: %v", tmplName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// parseTemplates parses all templates
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	funcMap := template.FuncMap{
		"shortDate": shortDate,
		"longDate":  longDate,
		"age":       func(st roster.Student, now time.Time) int { return st.Age(now) },
		"url":       s.url,
		"fieldErr":  fieldErr,
		"initial":   initial,
		"dict":      dict,
	}

	// base template with all partials
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/base.html", "templates/dashboard.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}
	templates["base.html"] = base

	// partials separately for HTMX requests
	partials, err := template.New("students.html").Funcs(funcMap).ParseFS(templatesFS, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse partials: %w", err)
	}
	templates["partials"] = partials

	return templates, nil
}

func (s *Server) getTheme(r *http.Request) enums.Theme {
	cookie, err := r.Cookie("theme")
	if err != nil {
		return enums.ThemeLight
	}
	theme, err := enums.ParseTheme(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid theme %q: %v", cookie.Value, err)
		return enums.ThemeLight
	}
	return theme
}

// getSortMode gets the sort mode from cookie or defaults to "default"
func (s *Server) getSortMode(r *http.Request) enums.SortMode {
	cookie, err := r.Cookie("sort-mode")
	if err != nil || cookie.Value == "" {
		return enums.SortModeDefault
	}
	mode, err := enums.ParseSortMode(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid sort mode cookie %q: %v", cookie.Value, err)
		return enums.SortModeDefault
	}
	return mode
}

// cycleSortMode cycles through sort modes: default -> name -> enrolled -> default
func (s *Server) cycleSortMode(current enums.SortMode) enums.SortMode {
	switch current {
	case enums.SortModeDefault:
		return enums.SortModeName
	case enums.SortModeName:
		return enums.SortModeEnrolled
	default:
		return enums.SortModeDefault
	}
}

// setPrefCookie sets a long-living preference cookie
func (s *Server) setPrefCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// url prepends the base URL to a path for reverse proxy support
func (s *Server) url(path string) string {
	return s.baseURL + path
}

// cookiePath returns the cookie path with base URL support
func (s *Server) cookiePath() string {
	if s.baseURL == "" {
		return "/"
	}
	return s.baseURL + "/"
}

// template helper functions

var monthsES = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// shortDate formats t as dd/MM/yyyy, empty for zero time
func shortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02/01/2006")
}

// longDate formats t as "20 ene 2023"
func longDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.UTC()
	return fmt.Sprintf("%02d %s %d", t.Day(), monthsES[t.Month()-1], t.Year())
}

func fieldErr(errs roster.ValidationErrors, field string) string {
	return errs[field]
}

// initial returns the upper-cased first letter of the name for the avatar
func initial(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// dict makes a map from key/value pairs, used to pass several values to a sub-template
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict requires even number of arguments")
	}
	res := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		res[key] = pairs[i+1]
	}
	return res, nil
}

// shortVersion extracts a short version string from full version,
// for "v1.2.0-abc1234-20250101" returns "v1.2.0"
func shortVersion(fullVer string) string {
	if fullVer == "" || fullVer == "unknown" {
		return fullVer
	}
	if idx := strings.Index(fullVer, "-"); idx > 0 {
		return fullVer[:idx]
	}
	return fullVer
}
