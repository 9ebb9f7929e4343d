package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web/mocks"
)

const mariaJSON = `{"nombre":"Maria","apellido":"Lopez","cedula":"V-1.111.111","fechaNacimiento":"2007-01-01",
"direccion":"Calle X, Santa Elena","instrumento":"Flauta"}`

func TestServer_handleAPIList(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.routes()

	t.Run("all", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp APIListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Total)
		require.Len(t, resp.Students, 3)
		assert.Equal(t, "1", resp.Students[0].ID)
		assert.Equal(t, "2005-03-15", resp.Students[0].FechaNacimiento.Format("2006-01-02"))
		assert.True(t, testNow.Equal(resp.Timestamp))
	})

	t.Run("search by cedula", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students?search=V-24", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)
		var resp APIListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Students, 1)
		assert.Equal(t, "3", resp.Students[0].ID)
		assert.Equal(t, 3, resp.Total)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &mocks.PersistenceMock{ListFunc: func(context.Context) ([]roster.Student, error) {
			return nil, errors.New("down")
		}}
		fsrv, _ := newTestServer(t, Config{Store: store})
		w := httptest.NewRecorder()
		fsrv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students", http.NoBody))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "failed to load students")
	})
}

func TestServer_handleAPICRUD(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.routes()

	// create
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(mariaJSON))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created roster.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Maria Lopez", created.FullName())
	assert.Equal(t, roster.NoPhone, created.Telefono)
	assert.False(t, created.FechaInscripcion.IsZero())

	// get
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students/"+created.ID, http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var got roster.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)

	// update
	updJSON := strings.Replace(mariaJSON, `"Flauta"`, `"Saxofón"`, 1)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/students/"+created.ID, strings.NewReader(updJSON)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated roster.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Saxofón", updated.Instrumento)
	assert.True(t, created.FechaInscripcion.Equal(updated.FechaInscripcion))

	// delete, twice
	for range 2 {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/students/"+created.ID, http.NoBody))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students/"+created.ID, http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "student not found")
}

func TestServer_handleAPICreateDateOnly(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.routes()

	body := `{"nombre":"Maria","apellido":"Lopez","cedula":"V-1.111.111","fechaNacimiento":"2007-01-01",` +
		`"direccion":"Calle X","instrumento":"Flauta"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	var verr APIValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verr))
	assert.Equal(t, roster.ValidationErrors{"direccion": "La dirección debe tener al menos 10 caracteres."}, verr.Fields,
		"plain birth date accepted, only the short address rejected")

	body = strings.Replace(body, `"Calle X"`, `"Calle X, Santa Elena"`, 1)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created roster.Student
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "2007-01-01T00:00:00Z", created.FechaNacimiento.Format(time.RFC3339))

	body = strings.Replace(body, `"2007-01-01"`, `"01/01/2007"`, 1)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verr))
	assert.Equal(t, "Fecha de nacimiento inválida.", verr.Fields["fechaNacimiento"])
}

func TestServer_handleAPIListTrimsSearch(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students?search=%20V-24%20", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var resp APIListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Students, 1)
	assert.Equal(t, "3", resp.Students[0].ID)
}

func TestServer_handleAPIErrors(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	router := srv.routes()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"invalid json", http.MethodPost, "/api/v1/students", "{bad", http.StatusBadRequest, "invalid json"},
		{"validation", http.MethodPost, "/api/v1/students", `{"nombre":"M"}`, http.StatusBadRequest, `"nombre":"El nombre`},
		{"update missing", http.MethodPut, "/api/v1/students/missing", mariaJSON, http.StatusNotFound, "student not found"},
		{"update invalid", http.MethodPut, "/api/v1/students/1", `{"nombre":"Carlos"}`, http.StatusBadRequest, "invalid student"},
		{"get missing", http.MethodGet, "/api/v1/students/missing", "", http.StatusNotFound, "student not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}

	t.Run("store failure on get", func(t *testing.T) {
		store := &mocks.PersistenceMock{GetFunc: func(context.Context, string) (roster.Student, error) {
			return roster.Student{}, errors.New("down")
		}}
		fsrv, _ := newTestServer(t, Config{Store: store})
		w := httptest.NewRecorder()
		fsrv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/students/1", http.NoBody))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestServer_handleAPISchema(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/schema", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "Student", schema["title"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "fechaInscripcion")
}
