// Package termui renders a comparison for the terminal.
package termui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/zombar/biasradar/internal/models"
)

var (
	colorPrimary = lipgloss.Color("#2563eb")
	colorMuted   = lipgloss.Color("#6b7280")
	colorLow     = lipgloss.Color("#22c55e")
	colorMedium  = lipgloss.Color("#eab308")
	colorHigh    = lipgloss.Color("#ef4444")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(12)
	sectionStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	termStyle    = lipgloss.NewStyle().Foreground(colorHigh)
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1).
			Width(48)
)

const barWidth = 20

// SeverityColor maps a bias score to its terminal colour
func SeverityColor(score float64) lipgloss.Color {
	switch models.SeverityFor(score) {
	case models.SeverityLow:
		return colorLow
	case models.SeverityMedium:
		return colorMedium
	default:
		return colorHigh
	}
}

// Bar draws a score as a fixed-width progress bar
func Bar(score float64) string {
	filled := int(score / 10 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return lipgloss.NewStyle().Foreground(SeverityColor(score)).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}

func score(s float64) string {
	return lipgloss.NewStyle().Bold(true).Foreground(SeverityColor(s)).Render(fmt.Sprintf("%g/10", s))
}

func bullets(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("• " + item + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

// RenderResult renders one article's analysis card
func RenderResult(title string, r models.AnalysisResult) string {
	terms := make([]string, len(r.EmotionalLanguage))
	for i, t := range r.EmotionalLanguage {
		terms[i] = termStyle.Render(t)
	}
	emotional := mutedStyle.Render("none")
	if len(terms) > 0 {
		emotional = strings.Join(terms, ", ")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.UnsetMarginTop().Render(title),
		row("Bias Score", score(r.BiasScore)),
		Bar(r.BiasScore),
		mutedStyle.Render(r.BiasExplanation),
		row("Tone", r.Tone),
		row("Sentiment", r.Sentiment),
		"",
		sectionStyle.Render("Emotional Language"),
		emotional,
		sectionStyle.Render("Key Themes"),
		bullets(r.KeyThemes),
		sectionStyle.Render("Framing Emphasis"),
		bullets(r.FramingEmphasis),
		sectionStyle.Render("Framing Omissions"),
		bullets(r.FramingOmissions),
	)
	return cardStyle.Render(body)
}

// Render renders a full comparison: both analyses side by side followed by
// the neutral summary and insights
func Render(c *models.Comparison) string {
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		RenderResult("Article 1 Analysis", c.Result1),
		" ",
		RenderResult("Article 2 Analysis", c.Result2),
	)

	wrap := lipgloss.NewStyle().Width(98)

	return lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render("Comparison"),
		cards,
		headingStyle.Render("Neutral Summary"),
		wrap.Render(c.NeutralSummary),
		headingStyle.Render("Insights"),
		wrap.Render(c.ComparativeInsight),
		"",
		sectionStyle.Render("How Articles Complement Each Other:"),
		bullets(c.Complements),
		sectionStyle.Render("Key Contradictions:"),
		bullets(c.Contradictions),
	) + "\n"
}
