package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/models"
	"github.com/zombar/biasradar/internal/notify"
	"github.com/zombar/biasradar/internal/session"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedSimulator blocks every analysis until release is closed
type gatedSimulator struct {
	release chan struct{}
	score   float64
}

func (g *gatedSimulator) Analyze(_ context.Context, text string) (models.AnalysisResult, error) {
	if g.release != nil {
		<-g.release
	}
	return models.AnalysisResult{
		Tone:              "Alarmist",
		Sentiment:         "Negative",
		BiasScore:         g.score,
		EmotionalLanguage: []string{"crisis"},
		KeyThemes:         []string{"Environmental concerns"},
		FramingEmphasis:   []string{"Economic impact and statistics"},
		BiasExplanation:   "explained",
		Summary:           text,
	}, nil
}

func setupHandler(t *testing.T, sim compare.Simulator) (*Handler, *session.Store, *http.ServeMux) {
	t.Helper()

	store := session.NewStore(func(n notify.Notifier) *compare.Session {
		return compare.NewSession(sim, compare.WithNotifier(n))
	})
	h, err := NewHandler(store, time.Minute, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, store, mux
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func get(mux *http.ServeMux, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func postAnalyze(mux *http.ServeMux, article1, article2 string, cookie *http.Cookie) *httptest.ResponseRecorder {
	form := url.Values{"article1": {article1}, "article2": {article2}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIndexEmptyState(t *testing.T) {
	_, _, mux := setupHandler(t, &gatedSimulator{})

	rec := get(mux, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Bias Radar")
	assert.Contains(t, body, "Analyze Bias")
	assert.Contains(t, body, `name="article1"`)
	assert.Contains(t, body, `name="article2"`)
	assert.NotContains(t, body, "Detailed Analysis", "tabs only appear once results exist")
	assert.NotContains(t, body, "http-equiv=\"refresh\"")

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 60, c.MaxAge)
}

func TestAnalyzeFlow(t *testing.T) {
	sim := &gatedSimulator{release: make(chan struct{}), score: 6.5}
	_, store, mux := setupHandler(t, sim)

	first := get(mux, "/", nil)
	cookie := sessionCookie(t, first)

	rec := postAnalyze(mux, "The crisis is urgent.", "All calm here.", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	busy := get(mux, "/", cookie).Body.String()
	assert.Contains(t, busy, "Analyzing...")
	assert.Contains(t, busy, "disabled")
	assert.Contains(t, busy, `http-equiv="refresh"`)
	assert.Contains(t, busy, "The crisis is urgent.")

	close(sim.release)
	store.Wait()

	done := get(mux, "/", cookie).Body.String()
	assert.Contains(t, done, "Analyze Bias")
	assert.Contains(t, done, "Analysis Complete")
	assert.Contains(t, done, "Both articles have been analyzed successfully.")
	assert.Contains(t, done, "Comparison")
	assert.Contains(t, done, "Detailed Analysis")
	assert.Contains(t, done, "Neutral Summary")
	assert.Contains(t, done, "Insights")
	assert.Contains(t, done, `class="badge red">6.5/10`)
	assert.Contains(t, done, "width: 65%")
	assert.Contains(t, done, "Alarmist")

	again := get(mux, "/", cookie).Body.String()
	assert.NotContains(t, again, "Analysis Complete", "toasts are shown once")
}

func TestAnalyzeValidation(t *testing.T) {
	_, store, mux := setupHandler(t, &gatedSimulator{})

	rec := postAnalyze(mux, "only one", "   ", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookie(t, rec)

	body := get(mux, "/", cookie).Body.String()
	assert.Contains(t, body, "Missing Articles")
	assert.Contains(t, body, "Please provide both articles to analyze.")
	assert.Contains(t, body, "toast destructive")
	assert.Contains(t, body, "only one", "inputs stay bound")
	assert.Contains(t, body, "Analyze Bias")
	assert.Equal(t, 1, store.Len())
}

func TestTabs(t *testing.T) {
	_, store, mux := setupHandler(t, &gatedSimulator{score: 1})

	rec := postAnalyze(mux, "first", "second", nil)
	cookie := sessionCookie(t, rec)
	store.Wait()

	tests := []struct {
		tab      string
		contains string
	}{
		{"", "Article 1 Analysis"},
		{"comparison", "Bias Score"},
		{"details", "Emotional Language"},
		{"summary", compare.NeutralSummary},
		{"insights", "Key Contradictions:"},
		{"bogus", "Article 2 Analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			body := get(mux, "/?tab="+tt.tab, cookie).Body.String()
			assert.Contains(t, body, tt.contains)
		})
	}
}

func TestBuildView(t *testing.T) {
	state := compare.State{Article1: "a", Article2: "b"}
	v := buildView(state, nil, "details")
	assert.False(t, v.HasResults)
	assert.Empty(t, v.Tabs)
	assert.Equal(t, "Analyze Bias", v.ButtonLabel)

	state.Busy = true
	state.Comparison = &models.Comparison{
		Result1: models.AnalysisResult{BiasScore: 2.9},
		Result2: models.AnalysisResult{BiasScore: 5},
	}
	v = buildView(state, nil, "details")
	assert.True(t, v.HasResults)
	assert.Equal(t, "Analyzing...", v.ButtonLabel)
	assert.Equal(t, 1, v.RefreshSecs)
	assert.Equal(t, TabDetails, v.ActiveTab)
	require.Len(t, v.Articles, 2)
	assert.Equal(t, "green", v.Articles[0].Color)
	assert.Equal(t, 29, v.Articles[0].Progress)
	assert.Equal(t, "yellow", v.Articles[1].Color)
	assert.Equal(t, "5/10", v.Articles[1].Score)
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{0, "green"},
		{2.9, "green"},
		{3, "yellow"},
		{5.9, "yellow"},
		{6, "red"},
		{10, "red"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SeverityColor(tt.score), "score %v", tt.score)
	}
}
