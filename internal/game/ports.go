package game

import (
	"context"

	"ullas/internal/lang"
	"ullas/internal/progress"
)

// Selector narrows what a question source returns
type Selector struct {
	Level    int           `json:"level"`
	Language lang.Language `json:"language"`
	// QuizID pins a specific remote quiz; empty means "pick by level"
	QuizID string `json:"quizId,omitempty"`
}

// QuestionSet is an ordered, immutable list of questions for one session
type QuestionSet struct {
	QuizID  string
	QuizSet string
	// Instructions is the spoken introduction for the game
	Instructions string
	Questions    []Question
}

// QuestionSource supplies question sets
type QuestionSource interface {
	Fetch(ctx context.Context, gameType GameType, sel Selector) (QuestionSet, error)
}

// Narrator speaks text without blocking
type Narrator interface {
	Speak(text string, force bool)
}

// NarratorFunc resolves the narrator for a learner and language
type NarratorFunc func(userID int64, l lang.Language) Narrator

// ProgressStore reads and updates per-game progress
type ProgressStore interface {
	Read(ctx context.Context, userID int64, gameType string) (progress.Record, error)
	Update(ctx context.Context, userID int64, gameType string, patch progress.Patch) (progress.Snapshot, error)
}

// Reporter pushes attempt records somewhere without blocking
type Reporter interface {
	Report(a Attempt)
}

// AnswerRecord is one answered question inside an Attempt
type AnswerRecord struct {
	QuestionID     string  `json:"questionId"`
	SelectedOption string  `json:"selectedOption"`
	IsCorrect      bool    `json:"isCorrect"`
	TimeTakenSec   float64 `json:"timeTakenSec"`
}

// Attempt is the cumulative record sent after every answer
type Attempt struct {
	SessionID string        `json:"-"`
	UserID    int64         `json:"-"`
	GameType  GameType      `json:"-"`
	Language  lang.Language `json:"-"`

	QuizID         string         `json:"quizId"`
	QuizSet        string         `json:"quizSet"`
	Answers        []AnswerRecord `json:"answers"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	SkippedCount   int            `json:"skippedCount"`
	CorrectCount   int            `json:"correctCount"`
	IncorrectCount int            `json:"incorrectCount"`
	TimeTakenSec   float64        `json:"timeTakenSec"`
	IsCompleted    bool           `json:"isCompleted"`
}
