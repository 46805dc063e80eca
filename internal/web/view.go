package web

import (
	"math"
	"strconv"

	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/models"
	"github.com/zombar/biasradar/internal/notify"
)

// Tab identifiers, also used as the ?tab= query value
const (
	TabComparison = "comparison"
	TabDetails    = "details"
	TabSummary    = "summary"
	TabInsights   = "insights"
)

var tabs = []struct{ ID, Label string }{
	{TabComparison, "Comparison"},
	{TabDetails, "Detailed Analysis"},
	{TabSummary, "Neutral Summary"},
	{TabInsights, "Insights"},
}

// tabView is one entry of the tab strip
type tabView struct {
	ID     string
	Label  string
	Active bool
}

// articleView is one analyzed article as shown on the page
type articleView struct {
	Label    string
	Result   models.AnalysisResult
	Score    string // e.g. "5.5/10"
	Severity models.Severity
	Color    string // CSS class: green, yellow or red
	Progress int    // bar width in percent
}

// pageView is the data passed to the page template
type pageView struct {
	Article1    string
	Article2    string
	Busy        bool
	ButtonLabel string
	Toasts      []notify.Notification
	HasResults  bool
	Tabs        []tabView
	ActiveTab   string
	Articles    []articleView
	Comparison  *models.Comparison
	RefreshSecs int
}

var severityColors = map[models.Severity]string{
	models.SeverityLow:    "green",
	models.SeverityMedium: "yellow",
	models.SeverityHigh:   "red",
}

// SeverityColor maps a bias score to the badge colour class
func SeverityColor(score float64) string {
	return severityColors[models.SeverityFor(score)]
}

// FormatScore renders a score the way the badge shows it
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + "/10"
}

func newArticleView(label string, r models.AnalysisResult) articleView {
	return articleView{
		Label:    label,
		Result:   r,
		Score:    FormatScore(r.BiasScore),
		Severity: models.SeverityFor(r.BiasScore),
		Color:    SeverityColor(r.BiasScore),
		Progress: int(math.Round(r.BiasScore * 10)),
	}
}

// buildView turns session state and pending toasts into template data
func buildView(state compare.State, toasts []notify.Notification, activeTab string) pageView {
	v := pageView{
		Article1:    state.Article1,
		Article2:    state.Article2,
		Busy:        state.Busy,
		ButtonLabel: "Analyze Bias",
		Toasts:      toasts,
		HasResults:  state.HasResults(),
	}
	if v.Busy {
		v.ButtonLabel = "Analyzing..."
		v.RefreshSecs = 1
	}

	if !v.HasResults {
		return v
	}

	v.ActiveTab = TabComparison
	for _, t := range tabs {
		if t.ID == activeTab {
			v.ActiveTab = activeTab
		}
	}
	for _, t := range tabs {
		v.Tabs = append(v.Tabs, tabView{ID: t.ID, Label: t.Label, Active: t.ID == v.ActiveTab})
	}

	v.Comparison = state.Comparison
	v.Articles = []articleView{
		newArticleView("Article 1", state.Comparison.Result1),
		newArticleView("Article 2", state.Comparison.Result2),
	}
	return v
}
