package game

import (
	"fmt"

	"ullas/internal/lang"
)

// Kind tags how a question is answered
type Kind string

const (
	// DiscreteChoice questions take one option
	DiscreteChoice Kind = "discrete"
	// SequenceBuild questions take tiles in solution order
	SequenceBuild Kind = "sequence"
)

// Question is the shared envelope for every game type
type Question struct {
	ID     string
	Kind   Kind
	Prompt string
	// Speech is the narrated prompt; Prompt is used when empty
	Speech string
	// Image is an image reference or emoji sequence
	Image string

	// DiscreteChoice
	Options []string
	Answer  string

	// SequenceBuild
	Tiles    []string
	Solution []string
	// Target is the word being built
	Target string
}

// SpokenPrompt is what gets narrated when the question is presented
func (q *Question) SpokenPrompt() string {
	if q.Speech != "" {
		return q.Speech
	}
	return q.Prompt
}

// Expected is the answer revealed in feedback
func (q *Question) Expected() string {
	if q.Kind == SequenceBuild {
		if q.Target != "" {
			return q.Target
		}
		out := ""
		for _, s := range q.Solution {
			out += s
		}
		return out
	}
	return q.Answer
}

// HasOption reports whether value is one of the options after normalization
func (q *Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if lang.Equal(o, value) {
			return true
		}
	}
	return false
}

// Validate checks the kind-specific invariant
func (q *Question) Validate() error {
	switch q.Kind {
	case DiscreteChoice:
		return validateDiscrete(q)
	case SequenceBuild:
		return validateSequence(q)
	default:
		return fmt.Errorf("%w: question %q has unknown kind %q", ErrMalformedQuestion, q.ID, q.Kind)
	}
}

func validateDiscrete(q *Question) error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %q needs at least two options", ErrMalformedQuestion, q.ID)
	}
	matches := 0
	for _, o := range q.Options {
		if lang.Equal(o, q.Answer) {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("%w: question %q has %d options matching %q", ErrMalformedQuestion, q.ID, matches, q.Answer)
	}
	return nil
}

func validateSequence(q *Question) error {
	if len(q.Solution) == 0 {
		return fmt.Errorf("%w: question %q has an empty solution", ErrMalformedQuestion, q.ID)
	}
	available := make(map[string]int, len(q.Tiles))
	for _, t := range q.Tiles {
		available[lang.Normalize(t)]++
	}
	for _, s := range q.Solution {
		k := lang.Normalize(s)
		if available[k] == 0 {
			return fmt.Errorf("%w: question %q solution token %q has no tile", ErrMalformedQuestion, q.ID, s)
		}
		available[k]--
	}
	return nil
}

// ValidateSet checks every question and returns the first violation
func ValidateSet(questions []Question) error {
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
