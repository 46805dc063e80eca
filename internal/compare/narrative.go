package compare

// Narrative text attached to every successful comparison. It does not
// depend on the articles.
const (
	NeutralSummary = "Based on analysis of both articles, this topic presents multiple perspectives with varying approaches to framing and emphasis. A comprehensive understanding requires considering the different methodologies, evidence types, and stakeholder viewpoints presented across both sources."

	ComparativeInsight = "The articles differ significantly in their approach and emphasis. While one focuses more on immediate concerns and emotional impact, the other takes a more analytical stance. Readers should consider both the quantitative data and qualitative experiences presented to form a balanced understanding of the issue."
)

// Complements lists how the articles complement each other
func Complements() []string {
	return []string{
		"Different evidence types provide fuller picture",
		"Various stakeholder perspectives represented",
		"Complementary analytical approaches",
	}
}

// Contradictions lists the key contradictions between the articles
func Contradictions() []string {
	return []string{
		"Different urgency levels emphasized",
		"Conflicting priority assessments",
		"Varying solution effectiveness claims",
	}
}

// Notice texts
const (
	titleMissing   = "Missing Articles"
	messageMissing = "Please provide both articles to analyze."
	titleComplete  = "Analysis Complete"
	messageDone    = "Both articles have been analyzed successfully."
	titleFailed    = "Analysis Failed"
	messageFailed  = "There was an error analyzing the articles."
)

// Outcome labels reported to a Recorder
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeAnalysisError   = "analysis_error"
	OutcomeBusy            = "busy"
)
