package ai

import (
	"context"
)

// Suggestion is the structured result of an AI completion over a
// conversation: a proposed reply plus derived lead scoring.
type Suggestion struct {
	Reply                 string  `json:"reply"`
	Sentiment             float64 `json:"sentiment"` // [-1, 1]
	LeadScore             int     `json:"lead_score"`
	ConversionProbability float64 `json:"conversion_probability"`
}

// Completer produces a suggestion for a conversation. Implementations wrap
// a concrete model provider; callers never depend on which one.
type Completer interface {
	Complete(ctx context.Context, prompt string, history []string) (*Suggestion, error)
}

// StaticCompleter returns a fixed suggestion. Used in local development and
// tests where no model provider is configured.
type StaticCompleter struct {
	Suggestion Suggestion
}

// NewStaticCompleter creates a completer that always returns the given
// suggestion.
func NewStaticCompleter(suggestion Suggestion) *StaticCompleter {
	return &StaticCompleter{Suggestion: suggestion}
}

var _ Completer = (*StaticCompleter)(nil)

// Complete returns the configured suggestion.
func (c *StaticCompleter) Complete(ctx context.Context, prompt string, history []string) (*Suggestion, error) {
	suggestion := c.Suggestion
	return &suggestion, nil
}
