package models

import "time"

// AnalysisResult is the simulated bias/tone/sentiment analysis of one article
type AnalysisResult struct {
	Tone              string   `json:"tone" jsonschema:"required"`
	Sentiment         string   `json:"sentiment" jsonschema:"required"`
	BiasScore         float64  `json:"bias_score" jsonschema:"required,minimum=0,maximum=10"` // 0-10, one decimal
	EmotionalLanguage []string `json:"emotional_language" jsonschema:"required,maxItems=4"`
	FramingEmphasis   []string `json:"framing_emphasis" jsonschema:"required,minItems=3,maxItems=4"`
	FramingOmissions  []string `json:"framing_omissions" jsonschema:"required,minItems=2,maxItems=3"`
	KeyThemes         []string `json:"key_themes" jsonschema:"required,minItems=3,maxItems=4"`
	BiasExplanation   string   `json:"bias_explanation" jsonschema:"required"`
	Summary           string   `json:"summary" jsonschema:"required"` // first 120 characters + "..."
}

// Comparison is the outcome of analyzing two articles side by side
type Comparison struct {
	ID                 string         `json:"id" jsonschema:"required"`
	Article1           string         `json:"article1" jsonschema:"required"`
	Article2           string         `json:"article2" jsonschema:"required"`
	Result1            AnalysisResult `json:"result1" jsonschema:"required"`
	Result2            AnalysisResult `json:"result2" jsonschema:"required"`
	NeutralSummary     string         `json:"neutral_summary" jsonschema:"required"`
	ComparativeInsight string         `json:"comparative_insight" jsonschema:"required"`
	Complements        []string       `json:"complements" jsonschema:"required"`    // How the articles complement each other
	Contradictions     []string       `json:"contradictions" jsonschema:"required"` // Key contradictions between them
	CreatedAt          time.Time      `json:"created_at" jsonschema:"required"`
}

// Severity buckets a bias score for display
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityFor maps a bias score to its display severity
func SeverityFor(score float64) Severity {
	switch {
	case score < 3:
		return SeverityLow
	case score < 6:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}
