package analyzer

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/zombar/biasradar/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultDelay is the artificial processing time of one analysis
	DefaultDelay = 2000 * time.Millisecond

	summaryLength     = 120
	summaryEllipsis   = "..."
	maxEmotionalTerms = 4
)

// Analyzer simulates a bias analysis of a text.
// It is safe for concurrent use.
type Analyzer struct {
	delay  time.Duration
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithDelay overrides the artificial delay
func WithDelay(d time.Duration) Option {
	return func(a *Analyzer) {
		if d >= 0 {
			a.delay = d
		}
	}
}

// WithRand sets the source of randomness (useful for reproducible tests)
func WithRand(r *rand.Rand) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.rng = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates a new Analyzer
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		delay:  DefaultDelay,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Delay returns the configured artificial delay
func (a *Analyzer) Delay() time.Duration {
	return a.delay
}

// Analyze waits for the artificial delay and returns a simulated analysis
// of text. The only error is ctx.Err() when ctx ends before the delay does.
func (a *Analyzer) Analyze(ctx context.Context, text string) (models.AnalysisResult, error) {
	ctx, span := otel.Tracer("biasradar").Start(ctx, "analyzer.simulate")
	defer span.End()
	span.SetAttributes(attribute.Int("text.length", len(text)))

	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			span.RecordError(ctx.Err())
			return models.AnalysisResult{}, ctx.Err()
		}
	}

	result := a.simulate(text)
	span.SetAttributes(attribute.Float64("bias.score", result.BiasScore))

	a.logger.DebugContext(ctx, "simulated analysis completed",
		"text_length", len(text),
		"bias_score", result.BiasScore,
		"tone", result.Tone,
		"sentiment", result.Sentiment,
	)

	return result, nil
}

// simulate builds the analysis record without any delay
func (a *Analyzer) simulate(text string) models.AnalysisResult {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)

	emotionalCount := countMatchingTokens(words, emotionalWords)
	biasCount := countMatchingTokens(words, biasWords)

	a.mu.Lock()
	noise := a.rng.Float64() * 2
	tone := Tones[a.rng.IntN(len(Tones))]
	sentiment := Sentiments[a.rng.IntN(len(Sentiments))]
	emphasisLen := 3 + a.rng.IntN(2)
	omissionsLen := 2 + a.rng.IntN(2)
	themesLen := 3 + a.rng.IntN(2)
	a.mu.Unlock()

	score := calculateBiasScore(biasCount, emotionalCount, noise)

	return models.AnalysisResult{
		Tone:              tone,
		Sentiment:         sentiment,
		BiasScore:         score,
		EmotionalLanguage: findEmotionalLanguage(lower),
		FramingEmphasis:   prefix(framingEmphasis, emphasisLen),
		FramingOmissions:  prefix(framingOmissions, omissionsLen),
		KeyThemes:         prefix(keyThemes, themesLen),
		BiasExplanation:   ExplainBias(score),
		Summary:           summarize(text),
	}
}

// countMatchingTokens counts tokens containing any of terms as a substring
func countMatchingTokens(words []string, terms []string) int {
	count := 0
	for _, word := range words {
		for _, term := range terms {
			if strings.Contains(word, term) {
				count++
				break
			}
		}
	}
	return count
}

// calculateBiasScore clamps the weighted hit counts plus noise to [0,10]
// and rounds to one decimal
func calculateBiasScore(biasCount, emotionalCount int, noise float64) float64 {
	raw := float64(biasCount)*2 + float64(emotionalCount)*1.5 + noise
	raw = math.Min(10, math.Max(0, raw))
	return math.Round(raw*10) / 10
}

// findEmotionalLanguage returns the emotional words present in lowered text,
// in list order, at most maxEmotionalTerms of them
func findEmotionalLanguage(lower string) []string {
	found := []string{}
	for _, word := range emotionalWords {
		if strings.Contains(lower, word) {
			found = append(found, word)
			if len(found) == maxEmotionalTerms {
				break
			}
		}
	}
	return found
}

// ExplainBias selects the canned explanation for a bias score
func ExplainBias(score float64) string {
	switch {
	case score > 7:
		return ExplanationHigh
	case score > 4:
		return ExplanationModerate
	default:
		return ExplanationNeutral
	}
}

// prefix returns a copy of the first n items of list
func prefix(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	return append([]string(nil), list[:n]...)
}

// summarize returns the first summaryLength characters of text followed by
// an ellipsis, regardless of word boundaries
func summarize(text string) string {
	runes := []rune(text)
	if len(runes) > summaryLength {
		runes = runes[:summaryLength]
	}
	return string(runes) + summaryEllipsis
}
