package game

import (
	"sort"

	"ullas/internal/lang"
)

// View is the client-facing snapshot of a session. Answers are only
// revealed once the question is locked.
type View struct {
	ID        string        `json:"id"`
	GameType  GameType      `json:"gameType"`
	Language  lang.Language `json:"language"`
	Phase     string        `json:"phase"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Score     int           `json:"score"`
	QuizID    string        `json:"quizId,omitempty"`
	Question  *QuestionView `json:"question,omitempty"`
	Selection Selection     `json:"selection"`
	Result    *Result       `json:"result,omitempty"`
	Summary   *Summary      `json:"summary,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// QuestionView is a question without its answer
type QuestionView struct {
	ID      string   `json:"id"`
	Kind    Kind     `json:"kind"`
	Prompt  string   `json:"prompt"`
	Image   string   `json:"image,omitempty"`
	Options []string `json:"options,omitempty"`
	Tiles   []string `json:"tiles,omitempty"`
	Target  string   `json:"target,omitempty"`
}

// Selection is the learner's input on the current question
type Selection struct {
	Chosen    string   `json:"chosen,omitempty"`
	Accepted  []string `json:"accepted,omitempty"`
	Consumed  []int    `json:"consumed,omitempty"`
	WrongTile *int     `json:"wrongTile,omitempty"`
}

// Result is the outcome of a locked question
type Result struct {
	Correct  bool   `json:"correct"`
	Expected string `json:"expected"`
}

func (s *Session) viewLocked() View {
	v := View{
		ID:       s.id,
		GameType: s.info.Type,
		Language: s.sel.Language,
		Phase:    s.phase.String(),
		Index:    s.index,
		Total:    len(s.set.Questions),
		Score:    s.score,
		QuizID:   s.set.QuizID,
	}
	if s.disposed {
		v.Phase = "disposed"
	}
	if s.loadErr != nil {
		v.Error = s.loadErr.Error()
	}
	if s.summary != nil {
		sum := *s.summary
		v.Summary = &sum
	}

	if (s.phase == PhasePresenting || s.phase == PhaseLocked) && s.index < len(s.set.Questions) {
		q := s.set.Questions[s.index]
		v.Question = &QuestionView{
			ID:      q.ID,
			Kind:    q.Kind,
			Prompt:  q.Prompt,
			Image:   q.Image,
			Options: append([]string(nil), q.Options...),
			Tiles:   append([]string(nil), q.Tiles...),
			Target:  q.Target,
		}

		v.Selection.Chosen = s.chosen
		v.Selection.Accepted = append([]string(nil), s.accepted...)
		for idx := range s.consumed {
			v.Selection.Consumed = append(v.Selection.Consumed, idx)
		}
		sort.Ints(v.Selection.Consumed)
		if s.wrongTile >= 0 {
			wt := s.wrongTile
			v.Selection.WrongTile = &wt
		}

		if s.phase == PhaseLocked && s.lastCorrect != nil {
			v.Result = &Result{Correct: *s.lastCorrect, Expected: q.Expected()}
		}
	}
	return v
}
