package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ullas/internal/clock"
	"ullas/internal/lang"
	"ullas/internal/metrics"
	"ullas/internal/narration"
	"ullas/internal/progress"
)

// Phase is the state of a session
type Phase int

const (
	PhaseLoading Phase = iota
	PhasePresenting
	PhaseLocked
	PhaseFinalized
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhasePresenting:
		return "presenting"
	case PhaseLocked:
		return "locked"
	case PhaseFinalized:
		return "finalized"
	case PhaseErrored:
		return "errored"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config holds the tunables shared by every session
type Config struct {
	Dwell            time.Duration
	PointsPerCorrect int
	MaxLevel         int
	PersistTimeout   time.Duration
}

// DefaultConfig returns the standard dwell, scoring and level cap
func DefaultConfig() Config {
	return Config{
		Dwell:            3 * time.Second,
		PointsPerCorrect: 10,
		MaxLevel:         progress.DefaultMaxLevel,
		PersistTimeout:   5 * time.Second,
	}
}

// Deps are the collaborators a session talks to. Narrators and Reporter
// are optional.
type Deps struct {
	Source    QuestionSource
	Progress  ProgressStore
	Narrators NarratorFunc
	Reporter  Reporter
	Clock     clock.Clock
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.System()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Summary is produced once, when the session finalizes
type Summary struct {
	Score          int  `json:"score"`
	TotalQuestions int  `json:"totalQuestions"`
	CorrectCount   int  `json:"correctCount"`
	Level          int  `json:"level"`
	Completed      bool `json:"completed"`
	BestScore      int  `json:"bestScore"`
	// Persisted is false when the progress store could not be updated
	Persisted bool `json:"persisted"`
}

type silentNarrator struct{}

func (silentNarrator) Speak(string, bool) {}

// Session is one play-through of a question set. All mutation happens
// under mu; the question fetch runs outside it and is discarded if the
// generation moved on in the meantime.
type Session struct {
	id       string
	userID   int64
	info     Info
	sel      Selector
	cfg      Config
	deps     Deps
	narrator Narrator
	phrases  *narration.Phrasebook
	logger   *slog.Logger

	mu          sync.Mutex
	gen         uint64
	phase       Phase
	disposed    bool
	set         QuestionSet
	index       int
	score       int
	correct     int
	chosen      string
	accepted    []string
	consumed    map[int]bool
	wrongTile   int
	lastCorrect *bool
	answers     []AnswerRecord
	startedAt   time.Time
	questionAt  time.Time
	lastActive  time.Time
	timer       clock.Timer
	loadErr     error
	summary     *Summary
}

func newSession(id string, userID int64, info Info, sel Selector, cfg Config, deps Deps) *Session {
	deps = deps.withDefaults()
	if !sel.Language.Valid() {
		sel.Language = lang.English
	}

	var narrator Narrator = silentNarrator{}
	if deps.Narrators != nil {
		if n := deps.Narrators(userID, sel.Language); n != nil {
			narrator = n
		}
	}

	return &Session{
		id:         id,
		userID:     userID,
		info:       info,
		sel:        sel,
		cfg:        cfg,
		deps:       deps,
		narrator:   narrator,
		phrases:    narration.NewPhrasebook(sel.Language),
		logger:     deps.Logger.With("component", "game", "session_id", id, "game", info.Type, "user_id", userID),
		phase:      PhaseLoading,
		wrongTile:  -1,
		consumed:   make(map[int]bool),
		lastActive: deps.Clock.Now(),
	}
}

func (s *Session) ID() string         { return s.id }
func (s *Session) UserID() int64      { return s.userID }
func (s *Session) GameType() GameType { return s.info.Type }

// Phase returns the current phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Score returns the running score
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Summary returns the final summary, or nil before finalization
func (s *Session) Summary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return nil
	}
	out := *s.summary
	return &out
}

// LastActive is the time of the last learner interaction
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// View returns a client-facing snapshot
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Start loads the question set and presents the first question. On a
// source failure the session moves to Errored and the error wraps
// ErrDataUnavailable.
func (s *Session) Start(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return View{}, ErrDisposed
	}
	s.phase = PhaseLoading
	gen := s.gen
	s.mu.Unlock()

	return s.load(ctx, gen)
}

func (s *Session) load(ctx context.Context, gen uint64) (View, error) {
	set, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return View{}, ErrDisposed
	}
	if s.gen != gen {
		// restarted while loading; the newer load owns the session
		return s.viewLocked(), nil
	}
	if err != nil {
		s.phase = PhaseErrored
		s.loadErr = err
		s.deps.Metrics.SessionErrored(string(s.info.Type))
		s.logger.Warn("session errored", "error", err)
		return s.viewLocked(), err
	}

	s.set = set
	s.startedAt = s.deps.Clock.Now()
	s.lastActive = s.startedAt
	s.enterPresentingLocked(0, true)
	return s.viewLocked(), nil
}

func (s *Session) fetch(ctx context.Context) (QuestionSet, error) {
	set, err := s.deps.Source.Fetch(ctx, s.info.Type, s.sel)
	if err != nil {
		return QuestionSet{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if len(set.Questions) == 0 {
		return QuestionSet{}, fmt.Errorf("%w: empty question set", ErrDataUnavailable)
	}
	if err := ValidateSet(set.Questions); err != nil {
		s.logger.Error("rejecting question set", "quiz_id", set.QuizID, "error", err)
		return QuestionSet{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return set, nil
}

// SubmitAnswer answers a DiscreteChoice question
func (s *Session) SubmitAnswer(value string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acceptingLocked(); err != nil {
		return s.viewLocked(), err
	}
	q := &s.set.Questions[s.index]
	if q.Kind != DiscreteChoice {
		return s.viewLocked(), ErrWrongKind
	}
	if !q.HasOption(value) {
		return s.viewLocked(), ErrInvalidOption
	}

	s.chosen = value
	s.lockLocked(q, lang.Equal(value, q.Answer), value)
	return s.viewLocked(), nil
}

// SubmitTile taps the tile at tileIndex of a SequenceBuild question. A
// token that is not the next solution token fails the question at once.
func (s *Session) SubmitTile(token string, tileIndex int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acceptingLocked(); err != nil {
		return s.viewLocked(), err
	}
	q := &s.set.Questions[s.index]
	if q.Kind != SequenceBuild {
		return s.viewLocked(), ErrWrongKind
	}
	if tileIndex < 0 || tileIndex >= len(q.Tiles) || !lang.Equal(q.Tiles[tileIndex], token) {
		return s.viewLocked(), ErrInvalidTile
	}
	if s.consumed[tileIndex] {
		return s.viewLocked(), ErrTileConsumed
	}
	s.consumed[tileIndex] = true

	expected := q.Solution[len(s.accepted)]
	if !lang.Equal(token, expected) {
		s.wrongTile = tileIndex
		s.lockLocked(q, false, strings.Join(s.accepted, "")+token)
		return s.viewLocked(), nil
	}

	s.accepted = append(s.accepted, q.Tiles[tileIndex])
	if len(s.accepted) == len(q.Solution) {
		s.lockLocked(q, true, strings.Join(s.accepted, ""))
	}
	return s.viewLocked(), nil
}

// Restart returns the session to the first question with zeroed counters.
// Loaded questions are reused; a session that never loaded fetches again.
func (s *Session) Restart(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return View{}, ErrDisposed
	}
	s.gen++
	s.stopTimerLocked()
	s.score = 0
	s.correct = 0
	s.answers = nil
	s.summary = nil
	s.loadErr = nil
	s.index = 0
	s.resetSelectionLocked()
	s.lastActive = s.deps.Clock.Now()

	if len(s.set.Questions) > 0 {
		s.startedAt = s.lastActive
		s.enterPresentingLocked(0, false)
		v := s.viewLocked()
		s.mu.Unlock()
		return v, nil
	}

	s.phase = PhaseLoading
	gen := s.gen
	s.mu.Unlock()
	return s.load(ctx, gen)
}

// Dispose invalidates the session. Pending dwell callbacks become no-ops.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.gen++
	s.stopTimerLocked()
}

// Disposed reports whether Dispose was called
func (s *Session) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func (s *Session) acceptingLocked() error {
	if s.disposed {
		return ErrDisposed
	}
	if s.phase != PhasePresenting {
		return ErrNotPresenting
	}
	s.lastActive = s.deps.Clock.Now()
	return nil
}

func (s *Session) resetSelectionLocked() {
	s.chosen = ""
	s.accepted = nil
	s.consumed = make(map[int]bool)
	s.wrongTile = -1
	s.lastCorrect = nil
}

func (s *Session) enterPresentingLocked(i int, intro bool) {
	s.phase = PhasePresenting
	s.index = i
	s.resetSelectionLocked()
	s.questionAt = s.deps.Clock.Now()

	text := s.set.Questions[i].SpokenPrompt()
	if intro {
		text = s.phrases.Instructions(s.info.TitleIn(s.sel.Language), s.set.Instructions) + ". " + text
	}
	s.narrator.Speak(text, false)
}

// lockLocked moves to Locked, narrates feedback, reports the attempt and
// arms the dwell timer for the current generation.
func (s *Session) lockLocked(q *Question, correct bool, selected string) {
	now := s.deps.Clock.Now()
	s.phase = PhaseLocked
	s.lastCorrect = &correct
	if correct {
		s.score += s.cfg.PointsPerCorrect
		s.correct++
	}
	s.answers = append(s.answers, AnswerRecord{
		QuestionID:     q.ID,
		SelectedOption: selected,
		IsCorrect:      correct,
		TimeTakenSec:   now.Sub(s.questionAt).Seconds(),
	})
	s.deps.Metrics.Answer(string(s.info.Type), correct)

	if correct {
		s.narrator.Speak(s.phrases.Correct(q.Expected()), true)
	} else {
		s.narrator.Speak(s.phrases.Incorrect(q.Expected()), true)
	}

	if s.deps.Reporter != nil {
		s.deps.Reporter.Report(s.attemptLocked(now))
	}

	gen := s.gen
	s.timer = s.deps.Clock.AfterFunc(s.cfg.Dwell, func() { s.advance(gen) })
}

func (s *Session) advance(gen uint64) {
	s.mu.Lock()
	if s.disposed || s.gen != gen || s.phase != PhaseLocked {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.index+1 < len(s.set.Questions) {
		s.enterPresentingLocked(s.index+1, false)
		s.mu.Unlock()
		return
	}

	s.phase = PhaseFinalized
	s.index = len(s.set.Questions)
	s.resetSelectionLocked()
	summary := Summary{
		Score:          s.score,
		TotalQuestions: len(s.set.Questions),
		CorrectCount:   s.correct,
	}
	s.mu.Unlock()

	// input is already rejected in Finalized, so the store is not touched
	// under the session lock
	s.persist(&summary)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.gen != gen {
		// restarted or disposed while persisting
		return
	}
	s.summary = &summary
	s.narrator.Speak(s.phrases.Summary(summary.Score), true)
}

// persist folds the finished run into the stored progress and fills in
// the level and best score of summary.
func (s *Session) persist(summary *Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()

	gameType := string(s.info.Type)
	existing, err := s.deps.Progress.Read(ctx, s.userID, gameType)
	if err != nil {
		s.logger.Warn("failed to read progress", "error", err)
		existing = progress.DefaultRecord()
	}

	newLevel := min(existing.Level+1, s.cfg.MaxLevel)
	completed := newLevel >= s.cfg.MaxLevel
	best := max(existing.Score, summary.Score)

	summary.Level = newLevel
	summary.Completed = completed
	summary.BestScore = best

	snap, err := s.deps.Progress.Update(ctx, s.userID, gameType, progress.Patch{
		Level:     &newLevel,
		Score:     &best,
		Completed: &completed,
	})
	if err != nil {
		s.logger.Error("failed to persist progress", "score", summary.Score, "level", newLevel, "error", err)
		s.deps.Metrics.ProgressFailed()
	} else {
		summary.Persisted = true
		summary.Level = snap.Record.Level
		summary.Completed = snap.Record.Completed
		summary.BestScore = snap.Record.Score
	}

	s.deps.Metrics.SessionFinished(gameType)
	s.logger.Info("session finalized", "score", summary.Score, "correct", summary.CorrectCount, "level", summary.Level)
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) attemptLocked(now time.Time) Attempt {
	total := len(s.set.Questions)
	answered := len(s.answers)
	answers := make([]AnswerRecord, answered)
	copy(answers, s.answers)

	return Attempt{
		SessionID:      s.id,
		UserID:         s.userID,
		GameType:       s.info.Type,
		Language:       s.sel.Language,
		QuizID:         s.set.QuizID,
		QuizSet:        s.set.QuizSet,
		Answers:        answers,
		Score:          s.score,
		TotalQuestions: total,
		SkippedCount:   total - answered,
		CorrectCount:   s.correct,
		IncorrectCount: answered - s.correct,
		TimeTakenSec:   now.Sub(s.startedAt).Seconds(),
		IsCompleted:    answered == total,
	}
}
