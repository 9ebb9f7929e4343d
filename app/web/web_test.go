package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web/enums"
	"github.com/tepuyroraima/roster/app/web/persistence"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// newTestServer makes a server backed by a seeded sqlite store in a temp dir
func newTestServer(t *testing.T, cfg Config) (*Server, *persistence.SQLiteStore) {
	t.Helper()
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if cfg.Store == nil {
		cfg.Store = store
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	srv.now = func() time.Time { return testNow }
	return srv, store
}

func TestNew(t *testing.T) {
	t.Run("store required", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store is required")
	})

	t.Run("templates parsed", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{BaseURL: "/banda/", Version: "v1.0.0-abc-20250101"})
		assert.Contains(t, srv.templates, "base.html")
		assert.Contains(t, srv.templates, "partials")
		assert.Equal(t, "/banda", srv.baseURL, "trailing slash trimmed")
		assert.NotNil(t, srv.exportLimiter)
	})
}

func TestServer_Run(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_handlerBaseURL(t *testing.T) {
	srv, _ := newTestServer(t, Config{BaseURL: "/banda"})
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := client.Get(ts.URL + "/banda")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/banda/", resp.Header.Get("Location"))

	resp, err = client.Get(ts.URL + "/banda/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `href="/banda/static/style.css"`)
	assert.Contains(t, string(body), `hx-get="/banda/api/students"`)

	resp, err = client.Get(ts.URL + "/banda/static/app.js")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/api/students")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "routes outside of base url are not served")
}

func TestServer_routesMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, Config{Version: "v1.2.3"})
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	t.Run("ping", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/ping")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "pong", string(body))
	})

	t.Run("app info headers", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "roster", resp.Header.Get("App-Name"))
		assert.Equal(t, "v1.2.3", resp.Header.Get("App-Version"))
	})

	t.Run("cross-origin post rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/students", strings.NewReader("nombre=x"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("api responses not cached", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/students")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Contains(t, resp.Header.Get("Cache-Control"), "no-cache")
	})
}

func TestServer_preferenceCookies(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	t.Run("theme", func(t *testing.T) {
		tests := []struct {
			cookie string
			want   enums.Theme
		}{
			{"", enums.ThemeLight},
			{"dark", enums.ThemeDark},
			{"light", enums.ThemeLight},
			{"bogus", enums.ThemeLight},
		}
		for _, tt := range tests {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "theme", Value: tt.cookie})
			}
			assert.Equal(t, tt.want, srv.getTheme(req), "cookie %q", tt.cookie)
		}
	})

	t.Run("sort mode", func(t *testing.T) {
		tests := []struct {
			cookie string
			want   enums.SortMode
		}{
			{"", enums.SortModeDefault},
			{"name", enums.SortModeName},
			{"enrolled", enums.SortModeEnrolled},
			{"bogus", enums.SortModeDefault},
		}
		for _, tt := range tests {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sort-mode", Value: tt.cookie})
			}
			assert.Equal(t, tt.want, srv.getSortMode(req), "cookie %q", tt.cookie)
		}
	})

	t.Run("cycle sort mode", func(t *testing.T) {
		assert.Equal(t, enums.SortModeName, srv.cycleSortMode(enums.SortModeDefault))
		assert.Equal(t, enums.SortModeEnrolled, srv.cycleSortMode(enums.SortModeName))
		assert.Equal(t, enums.SortModeDefault, srv.cycleSortMode(enums.SortModeEnrolled))
	})

	t.Run("cookie path", func(t *testing.T) {
		assert.Equal(t, "/", srv.cookiePath())
		withBase, _ := newTestServer(t, Config{BaseURL: "/banda"})
		assert.Equal(t, "/banda/", withBase.cookiePath())
		assert.Equal(t, "/banda/export", withBase.url("/export"))
	})
}

func TestTemplateHelpers(t *testing.T) {
	t.Run("short date", func(t *testing.T) {
		assert.Equal(t, "15/03/2005", shortDate(time.Date(2005, 3, 15, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, "01/12/2024", shortDate(time.Date(2024, 12, 1, 2, 0, 0, 0, time.FixedZone("X", 3*3600))),
			"formatted in UTC")
		assert.Empty(t, shortDate(time.Time{}))
	})

	t.Run("long date", func(t *testing.T) {
		assert.Equal(t, "20 ene 2023", longDate(time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, "02 dic 2024", longDate(time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)))
		assert.Equal(t, "-", longDate(time.Time{}))
	})

	t.Run("initial", func(t *testing.T) {
		assert.Equal(t, "Á", initial("álvaro"))
		assert.Equal(t, "C", initial(" Carlos"))
		assert.Equal(t, "?", initial(""))
	})

	t.Run("dict", func(t *testing.T) {
		d, err := dict("a", 1, "b", "x")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1, "b": "x"}, d)

		_, err = dict("a")
		require.Error(t, err)
		_, err = dict(1, 2)
		require.Error(t, err)
	})

	t.Run("field error", func(t *testing.T) {
		assert.Equal(t, "bad", fieldErr(roster.ValidationErrors{"nombre": "bad"}, "nombre"))
		assert.Empty(t, fieldErr(nil, "nombre"))
	})
}

func TestShortVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"v1.2.0-abc1234-20250101", "v1.2.0"},
		{"v1.2.0", "v1.2.0"},
		{"unknown", "unknown"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shortVersion(tt.in))
	}
}
