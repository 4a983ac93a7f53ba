package game

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{
			name: "discrete with one match",
			q:    Question{ID: "a", Kind: DiscreteChoice, Options: []string{"2", "3", "4"}, Answer: "3"},
		},
		{
			name: "discrete matches across numeral systems",
			q:    Question{ID: "b", Kind: DiscreteChoice, Options: []string{"२", "३", "४"}, Answer: "3"},
		},
		{
			name:    "discrete with no match",
			q:       Question{ID: "c", Kind: DiscreteChoice, Options: []string{"2", "4"}, Answer: "3"},
			wantErr: true,
		},
		{
			name:    "discrete with two matches",
			q:       Question{ID: "d", Kind: DiscreteChoice, Options: []string{"3", "३", "4"}, Answer: "3"},
			wantErr: true,
		},
		{
			name:    "discrete with a single option",
			q:       Question{ID: "e", Kind: DiscreteChoice, Options: []string{"3"}, Answer: "3"},
			wantErr: true,
		},
		{
			name: "sequence solution drawn from tiles",
			q:    Question{ID: "f", Kind: SequenceBuild, Tiles: []string{"पु", "नी", "पा", "म"}, Solution: []string{"पा", "नी"}},
		},
		{
			name: "sequence with repeated token and enough tiles",
			q:    Question{ID: "g", Kind: SequenceBuild, Tiles: []string{"च", "च", "ब"}, Solution: []string{"च", "च"}},
		},
		{
			name:    "sequence with repeated token and one tile",
			q:       Question{ID: "h", Kind: SequenceBuild, Tiles: []string{"च", "ब"}, Solution: []string{"च", "च"}},
			wantErr: true,
		},
		{
			name:    "sequence with orphan token",
			q:       Question{ID: "i", Kind: SequenceBuild, Tiles: []string{"क", "ल"}, Solution: []string{"क", "म"}},
			wantErr: true,
		},
		{
			name:    "sequence with empty solution",
			q:       Question{ID: "j", Kind: SequenceBuild, Tiles: []string{"क"}},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			q:       Question{ID: "k", Kind: "essay"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedQuestion) {
				t.Errorf("Validate() error = %v, want ErrMalformedQuestion", err)
			}
		})
	}
}

func TestQuestionExpected(t *testing.T) {
	q := Question{Kind: SequenceBuild, Solution: []string{"घ", "र"}}
	if got := q.Expected(); got != "घर" {
		t.Errorf("Expected() = %q, want घर", got)
	}
	q.Target = "घर!"
	if got := q.Expected(); got != "घर!" {
		t.Errorf("Expected() = %q, want target", got)
	}

	d := Question{Kind: DiscreteChoice, Answer: "Dog", Prompt: "🐕"}
	if d.Expected() != "Dog" || d.SpokenPrompt() != "🐕" {
		t.Errorf("unexpected discrete expected/prompt: %q %q", d.Expected(), d.SpokenPrompt())
	}
}

func TestCatalog(t *testing.T) {
	info, ok := Lookup(WordPuzzle)
	if !ok || info.Kind != SequenceBuild {
		t.Fatalf("word puzzle lookup = %+v, %v", info, ok)
	}
	if _, ok := Lookup("chess"); ok {
		t.Error("unknown game should not be found")
	}
	playable := PlayableTypes()
	if len(playable) != 5 {
		t.Errorf("expected 5 playable games, got %v", playable)
	}
	for _, p := range playable {
		if p == string(Reading) || p == string(Writing) {
			t.Errorf("%s should be coming soon", p)
		}
	}
}
