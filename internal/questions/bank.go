// Package questions provides the question sources used by game sessions:
// an embedded bilingual bank, the remote quiz API and a Redis cache.
package questions

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ullas/internal/game"
	"ullas/internal/lang"
)

//go:embed bank/*.yaml
var embedded embed.FS

type bankFile struct {
	Game string    `yaml:"game"`
	Sets []bankSet `yaml:"sets"`
}

type bankSet struct {
	QuizID       string         `yaml:"quizId"`
	QuizSet      string         `yaml:"quizSet"`
	Language     string         `yaml:"language"`
	Level        int            `yaml:"level"`
	Instructions string         `yaml:"instructions"`
	Questions    []bankQuestion `yaml:"questions"`
}

type bankQuestion struct {
	ID       string   `yaml:"id"`
	Prompt   string   `yaml:"prompt"`
	Speech   string   `yaml:"speech"`
	Image    string   `yaml:"image"`
	Options  []string `yaml:"options"`
	Answer   string   `yaml:"answer"`
	Target   string   `yaml:"target"`
	Tiles    []string `yaml:"tiles"`
	Solution []string `yaml:"solution"`
}

type entry struct {
	level    int
	language lang.Language
	set      game.QuestionSet
}

// Bank is an in-memory index of question sets by game type
type Bank struct {
	sets map[game.GameType][]entry
}

// EmbeddedBank loads the bank compiled into the binary
func EmbeddedBank() (*Bank, error) {
	sub, err := fs.Sub(embedded, "bank")
	if err != nil {
		return nil, err
	}
	return LoadBank(sub)
}

// LoadBank reads every *.yaml file at the root of fsys. Each set is
// validated; a bank with a malformed question fails to load.
func LoadBank(fsys fs.FS) (*Bank, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no question files found")
	}

	b := &Bank{sets: make(map[game.GameType][]entry)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var f bankFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := b.add(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
	}

	for gt := range b.sets {
		sort.SliceStable(b.sets[gt], func(i, j int) bool { return b.sets[gt][i].level < b.sets[gt][j].level })
	}
	return b, nil
}

func (b *Bank) add(f bankFile) error {
	info, ok := game.Lookup(game.GameType(f.Game))
	if !ok {
		return fmt.Errorf("unknown game %q", f.Game)
	}
	if info.ComingSoon {
		return fmt.Errorf("game %q has no playable content", f.Game)
	}

	for _, s := range f.Sets {
		l := lang.Language(strings.ToLower(s.Language))
		if !l.Valid() {
			return fmt.Errorf("set %s: unsupported language %q", s.QuizID, s.Language)
		}
		set := game.QuestionSet{
			QuizID:       s.QuizID,
			QuizSet:      s.QuizSet,
			Instructions: s.Instructions,
			Questions:    make([]game.Question, len(s.Questions)),
		}
		for i, q := range s.Questions {
			set.Questions[i] = game.Question{
				ID:       q.ID,
				Kind:     info.Kind,
				Prompt:   q.Prompt,
				Speech:   q.Speech,
				Image:    q.Image,
				Options:  q.Options,
				Answer:   q.Answer,
				Tiles:    q.Tiles,
				Solution: q.Solution,
				Target:   q.Target,
			}
		}
		if err := game.ValidateSet(set.Questions); err != nil {
			return fmt.Errorf("set %s: %w", s.QuizID, err)
		}
		level := s.Level
		if level < 1 {
			level = 1
		}
		b.sets[info.Type] = append(b.sets[info.Type], entry{level: level, language: l, set: set})
	}
	return nil
}

// Lookup picks a set for gameType. A quiz id must match exactly; otherwise
// the set with the highest level not above sel.Level wins, falling back to
// the lowest level available in the language.
func (b *Bank) Lookup(gameType game.GameType, sel game.Selector) (game.QuestionSet, error) {
	l := sel.Language
	if !l.Valid() {
		l = lang.English
	}

	var candidates []entry
	for _, e := range b.sets[gameType] {
		if e.language == l {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return game.QuestionSet{}, fmt.Errorf("%w: %s/%s", ErrNotFound, gameType, l)
	}

	if sel.QuizID != "" {
		for _, e := range candidates {
			if e.set.QuizID == sel.QuizID {
				return cloneSet(e.set), nil
			}
		}
		return game.QuestionSet{}, fmt.Errorf("%w: quiz %s", ErrNotFound, sel.QuizID)
	}

	best := candidates[0]
	for _, e := range candidates[1:] {
		if e.level <= sel.Level {
			best = e
		}
	}
	return cloneSet(best.set), nil
}

// GameTypes lists the game types the bank has content for
func (b *Bank) GameTypes() []game.GameType {
	out := make([]game.GameType, 0, len(b.sets))
	for gt := range b.sets {
		out = append(out, gt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func cloneSet(s game.QuestionSet) game.QuestionSet {
	out := s
	out.Questions = make([]game.Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		q.Tiles = append([]string(nil), q.Tiles...)
		q.Solution = append([]string(nil), q.Solution...)
		out.Questions[i] = q
	}
	return out
}
