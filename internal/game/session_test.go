package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ullas/internal/lang"
	"ullas/internal/progress"
)

func answerAll(t *testing.T, h *harness, s *Session, answers ...string) {
	t.Helper()
	for _, a := range answers {
		_, err := s.SubmitAnswer(a)
		require.NoError(t, err)
		h.dwell()
	}
}

func TestSessionAllCorrectLevelsUp(t *testing.T) {
	h := newHarness(t, discreteSet(5))
	s := h.start(t, Counting)
	require.Equal(t, PhasePresenting, s.Phase())

	answerAll(t, h, s, "2", "2", "2", "2", "2")

	assert.Equal(t, PhaseFinalized, s.Phase())
	assert.Equal(t, 50, s.Score())

	sum := s.Summary()
	require.NotNil(t, sum)
	assert.Equal(t, 50, sum.Score)
	assert.Equal(t, 5, sum.CorrectCount)
	assert.Equal(t, 2, sum.Level)
	assert.False(t, sum.Completed)
	assert.True(t, sum.Persisted)

	rec, err := h.progress.Read(context.Background(), 1, string(Counting))
	require.NoError(t, err)
	assert.Equal(t, progress.Record{Level: 2, Score: 50, Completed: false}, rec)
	assert.Equal(t, 1, h.progress.updateCount())

	forced := h.narrator.forced()
	require.Len(t, forced, 6)
	assert.Equal(t, "Well Done! Score: 50", forced[5])
}

func TestSessionOneWrongAnswer(t *testing.T) {
	h := newHarness(t, discreteSet(5))
	s := h.start(t, Counting)

	_, err := s.SubmitAnswer("2")
	require.NoError(t, err)
	h.dwell()
	_, err = s.SubmitAnswer("2")
	require.NoError(t, err)
	h.dwell()

	v, err := s.SubmitAnswer("1")
	require.NoError(t, err)
	assert.Equal(t, "locked", v.Phase)
	require.NotNil(t, v.Result)
	assert.False(t, v.Result.Correct)
	assert.Equal(t, "2", v.Result.Expected)
	assert.Equal(t, "1", v.Selection.Chosen)
	h.dwell()

	answerAll(t, h, s, "2", "2")

	assert.Equal(t, 40, s.Score())
	sum := s.Summary()
	require.NotNil(t, sum)
	assert.Equal(t, 4, sum.CorrectCount)

	forced := h.narrator.forced()
	assert.Equal(t, []string{
		"Correct! 2",
		"Correct! 2",
		"Wrong! The correct answer is 2",
		"Correct! 2",
		"Correct! 2",
		"Well Done! Score: 40",
	}, forced)

	attempts := h.reporter.all()
	require.Len(t, attempts, 5)
	for i, a := range attempts {
		assert.Len(t, a.Answers, i+1)
		assert.Equal(t, 5, a.TotalQuestions)
		assert.Equal(t, 5-(i+1), a.SkippedCount)
		assert.Equal(t, "quiz-1", a.QuizID)
	}
	assert.Equal(t, 1, attempts[2].IncorrectCount)
	assert.False(t, attempts[2].Answers[2].IsCorrect)
	assert.Equal(t, "1", attempts[2].Answers[2].SelectedOption)
	assert.True(t, attempts[4].IsCompleted)
	assert.Equal(t, 40, attempts[4].Score)
}

func TestSessionPromptsAreNarratedOncePerQuestion(t *testing.T) {
	h := newHarness(t, discreteSet(3))
	s := h.start(t, Counting)
	answerAll(t, h, s, "2", "3", "2")

	h.narrator.mu.Lock()
	defer h.narrator.mu.Unlock()
	var prompts []string
	for _, c := range h.narrator.calls {
		if !c.force {
			prompts = append(prompts, c.text)
		}
	}
	require.Len(t, prompts, 3)
	assert.Contains(t, prompts[0], "Counting")
	assert.Contains(t, prompts[0], "question 1")
	assert.Equal(t, "question 2", prompts[1])
	assert.Equal(t, "question 3", prompts[2])
}

func TestSessionWordPuzzle(t *testing.T) {
	t.Run("correct order", func(t *testing.T) {
		h := newHarness(t, puzzleSet())
		s := h.start(t, WordPuzzle)

		v, err := s.SubmitTile("पा", 2)
		require.NoError(t, err)
		assert.Equal(t, "presenting", v.Phase)
		assert.Equal(t, []string{"पा"}, v.Selection.Accepted)
		assert.Equal(t, []int{2}, v.Selection.Consumed)

		v, err = s.SubmitTile("नी", 1)
		require.NoError(t, err)
		assert.Equal(t, "locked", v.Phase)
		require.NotNil(t, v.Result)
		assert.True(t, v.Result.Correct)
		assert.Equal(t, 10, v.Score)
		assert.Equal(t, []string{"Correct! पानी"}, h.narrator.forced())
	})

	t.Run("wrong first tile fails immediately", func(t *testing.T) {
		h := newHarness(t, puzzleSet())
		s := h.start(t, WordPuzzle)

		v, err := s.SubmitTile("पु", 0)
		require.NoError(t, err)
		assert.Equal(t, "locked", v.Phase)
		require.NotNil(t, v.Selection.WrongTile)
		assert.Equal(t, 0, *v.Selection.WrongTile)
		assert.Equal(t, 0, v.Score)

		_, err = s.SubmitTile("पा", 2)
		assert.ErrorIs(t, err, ErrNotPresenting)
	})

	t.Run("valid tile out of order fails immediately", func(t *testing.T) {
		h := newHarness(t, puzzleSet())
		s := h.start(t, WordPuzzle)

		v, err := s.SubmitTile("नी", 1)
		require.NoError(t, err)
		assert.Equal(t, "locked", v.Phase)
		assert.Equal(t, 0, v.Score)
		assert.Empty(t, v.Selection.Accepted)
		require.NotNil(t, v.Selection.WrongTile)
		assert.Equal(t, 1, *v.Selection.WrongTile)
		require.NotNil(t, v.Result)
		assert.False(t, v.Result.Correct)
		assert.Equal(t, []string{"Wrong! The correct answer is पानी"}, h.narrator.forced())
	})

	t.Run("consumed tile", func(t *testing.T) {
		h := newHarness(t, QuestionSet{Questions: []Question{{
			ID: "bachcha", Kind: SequenceBuild,
			Tiles: []string{"ब", "च्", "चा"}, Solution: []string{"ब", "च्", "चा"},
		}}})
		s := h.start(t, WordPuzzle)

		_, err := s.SubmitTile("ब", 0)
		require.NoError(t, err)
		_, err = s.SubmitTile("ब", 0)
		assert.ErrorIs(t, err, ErrTileConsumed)
		assert.Equal(t, "presenting", s.View().Phase)
	})

	t.Run("token must match tile", func(t *testing.T) {
		h := newHarness(t, puzzleSet())
		s := h.start(t, WordPuzzle)

		_, err := s.SubmitTile("पा", 0)
		assert.ErrorIs(t, err, ErrInvalidTile)
		_, err = s.SubmitTile("पा", 9)
		assert.ErrorIs(t, err, ErrInvalidTile)
	})
}

func TestSessionDisposeDuringDwell(t *testing.T) {
	h := newHarness(t, discreteSet(1))
	s := h.start(t, Counting)

	_, err := s.SubmitAnswer("2")
	require.NoError(t, err)
	calls := h.narrator.count()

	require.NoError(t, h.manager.Dispose(s.ID(), 1))
	h.clock.Advance(time.Minute)

	assert.True(t, s.Disposed())
	assert.Equal(t, PhaseLocked, s.Phase())
	assert.Nil(t, s.Summary())
	assert.Equal(t, 0, h.progress.updateCount())
	assert.Equal(t, calls, h.narrator.count())
	assert.Len(t, h.reporter.all(), 1)

	rec, err := h.progress.Read(context.Background(), 1, string(Counting))
	require.NoError(t, err)
	assert.Equal(t, progress.DefaultRecord(), rec)

	_, err = s.SubmitAnswer("2")
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = s.Restart(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestSessionRejectsInputOutsidePresenting(t *testing.T) {
	h := newHarness(t, discreteSet(2))
	s := h.start(t, Counting)

	_, err := s.SubmitAnswer("2")
	require.NoError(t, err)

	v, err := s.SubmitAnswer("3")
	assert.ErrorIs(t, err, ErrNotPresenting)
	assert.Equal(t, 10, v.Score)
	assert.Len(t, h.reporter.all(), 1)
}

func TestSessionInputValidation(t *testing.T) {
	h := newHarness(t, discreteSet(2))
	s := h.start(t, Counting)

	_, err := s.SubmitAnswer("7")
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = s.SubmitTile("2", 1)
	assert.ErrorIs(t, err, ErrWrongKind)
	assert.Equal(t, PhasePresenting, s.Phase())
	assert.Empty(t, h.reporter.all())
}

func TestSessionAcceptsDevanagariDigits(t *testing.T) {
	h := newHarness(t, discreteSet(1))
	s := h.start(t, Counting)

	v, err := s.SubmitAnswer("२")
	require.NoError(t, err)
	require.NotNil(t, v.Result)
	assert.True(t, v.Result.Correct)
}

func TestSessionScoreNeverDecreases(t *testing.T) {
	h := newHarness(t, discreteSet(6))
	s := h.start(t, Counting)

	last := 0
	for _, a := range []string{"1", "2", "3", "2", "4", "2"} {
		v, err := s.SubmitAnswer(a)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v.Score, last)
		assert.Equal(t, 0, v.Score%h.cfg.PointsPerCorrect)
		last = v.Score
		h.dwell()
	}
	assert.Equal(t, 30, s.Score())
}

func TestSessionKeepsBestScore(t *testing.T) {
	h := newHarness(t, discreteSet(3))
	ctx := context.Background()
	level, score := 3, 30
	_, err := h.progress.Update(ctx, 1, string(Counting), progress.Patch{Level: &level, Score: &score})
	require.NoError(t, err)

	s := h.start(t, Counting)
	answerAll(t, h, s, "1", "2", "1")

	sum := s.Summary()
	require.NotNil(t, sum)
	assert.Equal(t, 10, sum.Score)
	assert.Equal(t, 30, sum.BestScore)
	assert.Equal(t, 4, sum.Level)

	rec, err := h.progress.Read(ctx, 1, string(Counting))
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Score)
	assert.Equal(t, 4, rec.Level)
}

func TestSessionCompletesAtMaxLevel(t *testing.T) {
	h := newHarness(t, discreteSet(1))
	ctx := context.Background()
	level := 4
	_, err := h.progress.Update(ctx, 1, string(Counting), progress.Patch{Level: &level})
	require.NoError(t, err)

	s := h.start(t, Counting)
	answerAll(t, h, s, "2")

	sum := s.Summary()
	require.NotNil(t, sum)
	assert.Equal(t, 5, sum.Level)
	assert.True(t, sum.Completed)

	// another run stays capped
	_, err = s.Restart(ctx)
	require.NoError(t, err)
	answerAll(t, h, s, "2")
	assert.Equal(t, 5, s.Summary().Level)
}

func TestSessionPersistFailureStillSummarizes(t *testing.T) {
	h := newHarness(t, discreteSet(2))
	h.progress.updateErr = errBoom
	s := h.start(t, Counting)

	answerAll(t, h, s, "2", "2")

	assert.Equal(t, PhaseFinalized, s.Phase())
	sum := s.Summary()
	require.NotNil(t, sum)
	assert.False(t, sum.Persisted)
	assert.Equal(t, 20, sum.Score)
	assert.Equal(t, 2, sum.Level)
	assert.Contains(t, h.narrator.forced(), "Well Done! Score: 20")
}

func TestSessionFetchFailures(t *testing.T) {
	tests := []struct {
		name string
		set  QuestionSet
		err  error
	}{
		{name: "source error", err: errBoom},
		{name: "empty set", set: QuestionSet{QuizID: "empty"}},
		{name: "malformed question", set: QuestionSet{Questions: []Question{{
			ID: "bad", Kind: DiscreteChoice, Options: []string{"1", "3"}, Answer: "2",
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.set)
			h.source.setErr(tt.err)

			s, v, err := h.manager.Start(context.Background(), 1, Counting, Selector{Language: lang.English})
			require.ErrorIs(t, err, ErrDataUnavailable)
			require.NotNil(t, s)
			assert.Equal(t, "errored", v.Phase)
			assert.NotEmpty(t, v.Error)
			assert.Equal(t, 1, h.manager.Len())

			_, err = s.SubmitAnswer("2")
			assert.ErrorIs(t, err, ErrNotPresenting)
		})
	}
}

func TestSessionRestart(t *testing.T) {
	ctx := context.Background()

	t.Run("from finalized", func(t *testing.T) {
		h := newHarness(t, discreteSet(2))
		s := h.start(t, Counting)
		answerAll(t, h, s, "2", "2")

		first, err := s.Restart(ctx)
		require.NoError(t, err)
		second, err := s.Restart(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, "presenting", second.Phase)
		assert.Equal(t, 0, second.Index)
		assert.Equal(t, 0, second.Score)
		assert.Nil(t, second.Summary)
		assert.Equal(t, 1, h.source.calls)
	})

	t.Run("from locked ignores the old dwell", func(t *testing.T) {
		h := newHarness(t, discreteSet(2))
		s := h.start(t, Counting)

		_, err := s.SubmitAnswer("2")
		require.NoError(t, err)
		_, err = s.Restart(ctx)
		require.NoError(t, err)

		h.dwell()
		v := s.View()
		assert.Equal(t, "presenting", v.Phase)
		assert.Equal(t, 0, v.Index)
		assert.Equal(t, 0, v.Score)
		assert.Equal(t, 0, h.clock.Pending())
	})

	t.Run("from errored fetches again", func(t *testing.T) {
		h := newHarness(t, discreteSet(2))
		h.source.setErr(errBoom)
		s, _, err := h.manager.Start(ctx, 1, Counting, Selector{})
		require.ErrorIs(t, err, ErrDataUnavailable)

		h.source.setErr(nil)
		v, err := s.Restart(ctx)
		require.NoError(t, err)
		assert.Equal(t, "presenting", v.Phase)
		assert.Empty(t, v.Error)
		assert.Equal(t, 2, h.source.calls)
	})
}

type blockingSource struct {
	entered chan struct{}
	release chan struct{}
	set     QuestionSet
}

func (b *blockingSource) Fetch(ctx context.Context, _ GameType, _ Selector) (QuestionSet, error) {
	close(b.entered)
	<-b.release
	return b.set, nil
}

func TestSessionDisposeWhileLoading(t *testing.T) {
	h := newHarness(t, QuestionSet{})
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{}), set: discreteSet(1)}
	s := newSession("slow", 1, Catalog()[0], Selector{Language: lang.Hindi}, h.cfg, Deps{
		Source:    src,
		Progress:  h.progress,
		Narrators: func(int64, lang.Language) Narrator { return h.narrator },
		Clock:     h.clock,
	})

	var wg sync.WaitGroup
	var startErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, startErr = s.Start(context.Background())
	}()

	<-src.entered
	s.Dispose()
	close(src.release)
	wg.Wait()

	assert.ErrorIs(t, startErr, ErrDisposed)
	assert.Equal(t, PhaseLoading, s.Phase())
	assert.Equal(t, 0, h.narrator.count())
}

func TestViewHidesAnswerUntilLocked(t *testing.T) {
	h := newHarness(t, discreteSet(1))
	s := h.start(t, Counting)

	v := s.View()
	require.NotNil(t, v.Question)
	assert.Nil(t, v.Result)
	assert.Equal(t, []string{"1", "2", "3", "4"}, v.Question.Options)

	v, err := s.SubmitAnswer("2")
	require.NoError(t, err)
	require.NotNil(t, v.Result)
	assert.Equal(t, "2", v.Result.Expected)
}

func TestSessionSlowPersistDoesNotBlockReads(t *testing.T) {
	h := newHarness(t, discreteSet(1))
	h.progress.entered = make(chan struct{})
	h.progress.release = make(chan struct{})
	s := h.start(t, Counting)

	_, err := s.SubmitAnswer("2")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		h.dwell()
		close(done)
	}()
	<-h.progress.entered

	viewed := make(chan View, 1)
	go func() { viewed <- s.View() }()
	select {
	case v := <-viewed:
		assert.Equal(t, "finalized", v.Phase)
		assert.Nil(t, v.Summary)
	case <-time.After(time.Second):
		t.Fatal("View blocked while progress was being saved")
	}
	_, err = s.SubmitAnswer("2")
	assert.ErrorIs(t, err, ErrNotPresenting)

	close(h.progress.release)
	<-done

	sum := s.Summary()
	require.NotNil(t, sum)
	assert.True(t, sum.Persisted)
	assert.Equal(t, 10, sum.Score)
	assert.Equal(t, []string{"Correct! 2", "Well Done! Score: 10"}, h.narrator.forced())
}

func TestSessionRestartWhilePersistingDropsStaleSummary(t *testing.T) {
	h := newHarness(t, discreteSet(1))
	h.progress.entered = make(chan struct{})
	h.progress.release = make(chan struct{})
	s := h.start(t, Counting)

	_, err := s.SubmitAnswer("2")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		h.dwell()
		close(done)
	}()
	<-h.progress.entered

	v, err := s.Restart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "presenting", v.Phase)

	close(h.progress.release)
	<-done

	assert.Nil(t, s.Summary())
	assert.Equal(t, PhasePresenting, s.Phase())
	assert.Equal(t, 1, h.progress.updateCount())
	assert.NotContains(t, h.narrator.forced(), "Well Done! Score: 10")
}
