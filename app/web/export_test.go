package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web/mocks"
)

func TestExportRows(t *testing.T) {
	students := roster.DefaultSeed()
	rows := exportRows(students, testNow)
	require.Len(t, rows, 3)

	assert.Equal(t, []any{"Carlos", "Pérez", "V-25.123.456", "0414-1234567", "15/03/2005", 20,
		"Av. Principal, Casa #10, Santa Elena", "Trompeta", "20/01/2023"}, rows[0])
	assert.Equal(t, "Ana", rows[1][0])
	assert.Equal(t, 18, rows[1][5])
	assert.Equal(t, "Luis", rows[2][0])

	assert.Empty(t, exportRows(nil, testNow))
}

func TestBuildWorkbook(t *testing.T) {
	students := roster.Filter(roster.DefaultSeed(), "a") // Carlos, Ana, Luis all match "a"
	data, err := buildWorkbook(students, testNow)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Nombre", "Apellido", "Cédula", "Teléfono", "Fecha de Nacimiento", "Edad",
		"Dirección", "Instrumento", "Fecha de Inscripción"}, rows[0])
	assert.Equal(t, []string{"Carlos", "Pérez", "V-25.123.456", "0414-1234567", "15/03/2005", "20",
		"Av. Principal, Casa #10, Santa Elena", "Trompeta", "20/01/2023"}, rows[1])
	assert.Equal(t, "Luis", rows[3][0])

	t.Run("empty roster has only header", func(t *testing.T) {
		data, err := buildWorkbook(nil, testNow)
		require.NoError(t, err)
		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(exportSheet)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestServer_handleExport(t *testing.T) {
	t.Run("filtered export", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{})
		w := httptest.NewRecorder()
		srv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?search=26.987", http.NoBody))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="registros_banda_tepuy_roraima.xlsx"`, w.Header().Get("Content-Disposition"))

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(exportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Ana", rows[1][0])
		assert.Equal(t, "22/07/2006", rows[1][4])
	})

	t.Run("sort mode respected", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{})
		req := httptest.NewRequest(http.MethodGet, "/export", http.NoBody)
		req.AddCookie(&http.Cookie{Name: "sort-mode", Value: "enrolled"})
		w := httptest.NewRecorder()
		srv.routes().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(exportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"Ana", "Carlos", "Luis"}, []string{rows[1][0], rows[2][0], rows[3][0]})
	})

	t.Run("store failure", func(t *testing.T) {
		store := &mocks.PersistenceMock{ListFunc: func(context.Context) ([]roster.Student, error) {
			return nil, errors.New("down")
		}}
		srv, _ := newTestServer(t, Config{Store: store})
		w := httptest.NewRecorder()
		srv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{ExportPerMin: 1})
		router := srv.routes()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export", http.NoBody))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "too many export requests")

		// other endpoints are not limited
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/students", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
