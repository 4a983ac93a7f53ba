package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ullas/internal/clock"
	"ullas/internal/kvstore"
	"ullas/internal/lang"
	"ullas/internal/progress"
)

type spoken struct {
	text  string
	force bool
}

type recordingNarrator struct {
	mu    sync.Mutex
	calls []spoken
}

func (n *recordingNarrator) Speak(text string, force bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, spoken{text: text, force: force})
}

func (n *recordingNarrator) forced() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, c := range n.calls {
		if c.force {
			out = append(out, c.text)
		}
	}
	return out
}

func (n *recordingNarrator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type recordingReporter struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (r *recordingReporter) Report(a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *recordingReporter) all() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Attempt(nil), r.attempts...)
}

// countingProgress wraps a real store and can fail or stall updates on
// demand. A stalled update closes entered and waits for release.
type countingProgress struct {
	*progress.Store
	mu        sync.Mutex
	updates   int
	updateErr error
	entered   chan struct{}
	release   chan struct{}
}

func (c *countingProgress) Update(ctx context.Context, userID int64, gameType string, patch progress.Patch) (progress.Snapshot, error) {
	c.mu.Lock()
	c.updates++
	err := c.updateErr
	entered, release := c.entered, c.release
	c.mu.Unlock()
	if release != nil {
		close(entered)
		<-release
	}
	if err != nil {
		return progress.Snapshot{}, err
	}
	return c.Store.Update(ctx, userID, gameType, patch)
}

func (c *countingProgress) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

type staticSource struct {
	mu    sync.Mutex
	set   QuestionSet
	err   error
	calls int
}

func (s *staticSource) Fetch(context.Context, GameType, Selector) (QuestionSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return QuestionSet{}, s.err
	}
	return s.set, nil
}

func (s *staticSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// discreteSet builds n questions whose answer is always "2"
func discreteSet(n int) QuestionSet {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Kind:    DiscreteChoice,
			Prompt:  fmt.Sprintf("question %d", i+1),
			Options: []string{"1", "2", "3", "4"},
			Answer:  "2",
		}
	}
	return QuestionSet{QuizID: "quiz-1", QuizSet: "set-a", Questions: qs}
}

func puzzleSet() QuestionSet {
	return QuestionSet{
		QuizID: "puzzle",
		Questions: []Question{{
			ID:       "paani",
			Kind:     SequenceBuild,
			Prompt:   "शब्द बनाएँ: पानी",
			Target:   "पानी",
			Tiles:    []string{"पु", "नी", "पा", "म"},
			Solution: []string{"पा", "नी"},
		}},
	}
}

type harness struct {
	clock    *clock.Fake
	source   *staticSource
	narrator *recordingNarrator
	reporter *recordingReporter
	progress *countingProgress
	manager  *Manager
	cfg      Config
}

func newHarness(t *testing.T, set QuestionSet) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewFake(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)),
		source:   &staticSource{set: set},
		narrator: &recordingNarrator{},
		reporter: &recordingReporter{},
		progress: &countingProgress{Store: progress.NewStore(kvstore.NewMemory())},
		cfg:      DefaultConfig(),
	}
	next := 0
	h.manager = NewManager(h.cfg, Deps{
		Source:    h.source,
		Progress:  h.progress,
		Narrators: func(int64, lang.Language) Narrator { return h.narrator },
		Reporter:  h.reporter,
		Clock:     h.clock,
	}, WithIDGenerator(func() string {
		next++
		return fmt.Sprintf("s%d", next)
	}))
	return h
}

func (h *harness) start(t *testing.T, gameType GameType) *Session {
	t.Helper()
	s, _, err := h.manager.Start(context.Background(), 1, gameType, Selector{Language: lang.English})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s
}

// dwell lets the locked question advance
func (h *harness) dwell() {
	h.clock.Advance(h.cfg.Dwell)
}

var errBoom = errors.New("boom")
