package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zombar/biasradar/internal/analyzer"
	"github.com/zombar/biasradar/internal/config"
	"github.com/zombar/biasradar/internal/web"
	"github.com/zombar/biasradar/pkg/metrics"
)

func setupTestApp(t *testing.T) *app {
	t.Helper()

	reg := newRegistry()
	a, err := newApp(config.DefaultConfig(), appDeps{
		logger:    slog.New(slog.DiscardHandler),
		simulator: analyzer.New(analyzer.WithDelay(0)),
		registry:  reg,
		recorder:  metrics.NewBusinessMetrics(serviceName, reg),
	})
	require.NoError(t, err)
	t.Cleanup(a.store.Wait)
	return a
}

func TestMetricsEndpoint(t *testing.T) {
	a := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	body := w.Body.String()
	for _, metric := range []string{"go_goroutines", "go_threads", "go_info"} {
		assert.Contains(t, body, metric)
	}
}

func TestHealthEndpoint(t *testing.T) {
	a := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestPageAndAPIShareOneMux(t *testing.T) {
	a := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Analyze Bias")

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == web.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "page should set the session cookie")

	form := url.Values{"article1": {"First article text."}, "article2": {"Second article text."}}
	req = httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	a.store.Wait()

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Article 1 Analysis")

	req = httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
