package questions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"ullas/internal/game"
	"ullas/internal/lang"
	"ullas/internal/remote"
)

// remoteQuiz is the data payload of GET /quizzes/{gameType}
type remoteQuiz struct {
	QuizID       string           `json:"quizId"`
	QuizSet      string           `json:"quizSet"`
	Instructions string           `json:"instructions"`
	Questions    []remoteQuestion `json:"questions"`
}

// remoteQuestion carries labeled options and the label of the correct one.
// Word puzzles send tiles and a solution instead.
type remoteQuestion struct {
	ID            string            `json:"id"`
	Question      string            `json:"question"`
	Speech        string            `json:"speech"`
	Image         string            `json:"image"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	Target        string            `json:"target"`
	Tiles         []string          `json:"tiles"`
	Solution      []string          `json:"solution"`
}

// Getter is the part of the remote client the source needs
type Getter interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Remote fetches question sets from the quiz API
type Remote struct {
	client Getter
}

// NewRemote creates a remote source
func NewRemote(client Getter) *Remote {
	return &Remote{client: client}
}

func (r *Remote) Fetch(ctx context.Context, gameType game.GameType, sel game.Selector) (game.QuestionSet, error) {
	info, ok := game.Lookup(gameType)
	if !ok {
		return game.QuestionSet{}, fmt.Errorf("%w: unknown game %s", ErrNotFound, gameType)
	}

	q := url.Values{}
	q.Set("language", string(sel.Language))
	if sel.Level > 0 {
		q.Set("level", strconv.Itoa(sel.Level))
	}
	if sel.QuizID != "" {
		q.Set("quizId", sel.QuizID)
	}

	var quiz remoteQuiz
	if err := r.client.GetJSON(ctx, "quizzes/"+string(gameType), q, &quiz); err != nil {
		if remote.IsNotFound(err) {
			return game.QuestionSet{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return game.QuestionSet{}, err
		}
		return game.QuestionSet{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if len(quiz.Questions) == 0 {
		return game.QuestionSet{}, fmt.Errorf("%w: quiz %q has no questions", ErrNotFound, quiz.QuizID)
	}

	set := game.QuestionSet{
		QuizID:       quiz.QuizID,
		QuizSet:      quiz.QuizSet,
		Instructions: quiz.Instructions,
		Questions:    make([]game.Question, len(quiz.Questions)),
	}
	for i, rq := range quiz.Questions {
		set.Questions[i] = convertQuestion(info.Kind, rq)
	}
	return set, nil
}

func convertQuestion(kind game.Kind, rq remoteQuestion) game.Question {
	q := game.Question{
		ID:     rq.ID,
		Kind:   kind,
		Prompt: rq.Question,
		Speech: rq.Speech,
		Image:  rq.Image,
	}
	if kind == game.SequenceBuild {
		q.Tiles = rq.Tiles
		q.Solution = rq.Solution
		q.Target = rq.Target
		return q
	}

	labels := make([]string, 0, len(rq.Options))
	for label := range rq.Options {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		q.Options = append(q.Options, rq.Options[label])
	}

	// the key is normally a label; some quizzes send the value itself
	answer, ok := rq.Options[rq.CorrectAnswer]
	if !ok {
		answer = rq.CorrectAnswer
	}
	q.Answer = lang.ToArabicDigits(lang.Normalize(answer))
	return q
}
