package analyzer

// emotionalWords are charged terms counted toward the bias score and
// reported back as emotional language. Order matters: reported matches
// follow this order.
var emotionalWords = []string{
	"amazing", "terrible", "shocking", "incredible", "devastating",
	"wonderful", "awful", "fantastic", "horrible", "brilliant",
	"crisis", "urgent", "critical", "alarming", "breakthrough",
}

// biasWords are definitive-statement markers. Tokens are single words, so
// the multi-word phrases here never match a token on their own.
var biasWords = []string{
	"clearly", "obviously", "everyone knows", "it's certain", "without doubt",
	"definitely", "absolutely", "undeniably", "experts agree", "studies show",
}

// Tones are the labels a simulated analysis may report as tone
var Tones = []string{
	"Neutral and factual",
	"Emotionally charged",
	"Urgently persuasive",
	"Analytically detached",
	"Alarmist",
	"Optimistic",
	"Skeptical",
}

// Sentiments are the labels a simulated analysis may report as sentiment
var Sentiments = []string{"Positive", "Negative", "Neutral", "Mixed"}

var framingEmphasis = []string{
	"Economic impact and statistics",
	"Personal stories and anecdotes",
	"Expert opinions and research",
	"Government policy implications",
	"Long-term consequences",
}

var framingOmissions = []string{
	"Alternative viewpoints",
	"Potential counterarguments",
	"Historical context",
	"Economic costs of proposed solutions",
}

var keyThemes = []string{
	"Environmental concerns",
	"Economic implications",
	"Public health considerations",
	"Policy recommendations",
	"Industry response",
}

// Bias explanations, selected by score thresholds
const (
	ExplanationHigh     = "High use of emotional language and definitive statements without sufficient evidence or counterpoints."
	ExplanationModerate = "Moderate bias through selective emphasis and some emotionally charged language."
	ExplanationNeutral  = "Relatively neutral presentation with balanced language and multiple perspectives."
)

// EmotionalWords returns a copy of the emotional word list
func EmotionalWords() []string {
	return append([]string(nil), emotionalWords...)
}

// BiasWords returns a copy of the bias word list
func BiasWords() []string {
	return append([]string(nil), biasWords...)
}
