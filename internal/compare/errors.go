package compare

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBusy is returned when a run is triggered while another is in progress
var ErrBusy = errors.New("analysis already in progress")

// ValidationError reports missing article text. No analysis was started.
type ValidationError struct {
	Fields []string // names of the empty inputs: "article1", "article2"
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing articles: %s", strings.Join(e.Fields, ", "))
}

// AnalysisError reports a failure inside the simulated analysis step
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Validate checks that both articles carry non-whitespace text
func Validate(article1, article2 string) error {
	var missing []string
	if strings.TrimSpace(article1) == "" {
		missing = append(missing, "article1")
	}
	if strings.TrimSpace(article2) == "" {
		missing = append(missing, "article2")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
