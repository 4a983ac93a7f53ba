// Package narration speaks prompts and feedback to a learner. Each learner
// has one Engine; at most one utterance plays on it at a time.
package narration

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"ullas/internal/clock"
	"ullas/internal/lang"
	"ullas/internal/metrics"
)

// SpeechRate matches the slowed-down delivery used for adult learners
const SpeechRate = 0.8

// Utterance is one piece of speech
type Utterance struct {
	UserID int64         `json:"userId"`
	Text   string        `json:"text"`
	Lang   lang.Language `json:"lang"`
	Rate   float64       `json:"rate"`
	At     time.Time     `json:"at"`
}

// Player renders an utterance and reports how long it will take to speak.
// The engine calls Play from its own goroutine; ctx is cancelled when the
// utterance is interrupted.
type Player interface {
	Play(ctx context.Context, u Utterance) (time.Duration, error)
}

// PlayerFunc adapts a function to Player
type PlayerFunc func(ctx context.Context, u Utterance) (time.Duration, error)

func (f PlayerFunc) Play(ctx context.Context, u Utterance) (time.Duration, error) {
	return f(ctx, u)
}

// EstimateDuration approximates speaking time for text at rate
func EstimateDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	n := utf8.RuneCountInString(text)
	d := time.Duration(float64(n) * float64(70*time.Millisecond) / rate)
	return max(d, 600*time.Millisecond)
}

// SilentPlayer plays nothing but holds the engine for the estimated duration
type SilentPlayer struct{}

func (SilentPlayer) Play(_ context.Context, u Utterance) (time.Duration, error) {
	return EstimateDuration(u.Text, u.Rate), nil
}

// Status is the externally visible engine state
type Status struct {
	Enabled  bool       `json:"enabled"`
	Speaking bool       `json:"speaking"`
	Last     *Utterance `json:"last,omitempty"`
}

// Engine enforces the drop/interrupt policy for one learner
type Engine struct {
	userID      int64
	defaultLang lang.Language
	player      Player
	clock       clock.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	enabled  bool
	speaking bool
	seq      uint64
	cancel   context.CancelFunc
	hold     clock.Timer
	last     *Utterance
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

func WithClock(c clock.Clock) EngineOption { return func(e *Engine) { e.clock = c } }
func WithLogger(l *slog.Logger) EngineOption { return func(e *Engine) { e.logger = l } }
func WithMetrics(m *metrics.Metrics) EngineOption { return func(e *Engine) { e.metrics = m } }
func WithDefaultLanguage(l lang.Language) EngineOption { return func(e *Engine) { e.defaultLang = l } }

// NewEngine creates an enabled engine for userID
func NewEngine(userID int64, player Player, opts ...EngineOption) *Engine {
	e := &Engine{
		userID:      userID,
		defaultLang: lang.English,
		player:      player,
		clock:       clock.System(),
		logger:      slog.Default(),
		enabled:     true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "narration", "user_id", userID)
	return e
}

// Speak narrates text in the engine's default language
func (e *Engine) Speak(text string, force bool) {
	e.speak(text, e.defaultLang, force)
}

// Voice binds the engine to a language
func (e *Engine) Voice(l lang.Language) Voice {
	return Voice{engine: e, lang: l}
}

// Voice speaks through an engine in a fixed language
type Voice struct {
	engine *Engine
	lang   lang.Language
}

// Speak never blocks. A non-forced call is dropped when the engine is
// disabled or already speaking; a forced call interrupts the current one.
func (v Voice) Speak(text string, force bool) {
	v.engine.speak(text, v.lang, force)
}

func (e *Engine) speak(text string, l lang.Language, force bool) {
	if text == "" {
		return
	}

	e.mu.Lock()
	if !force && (!e.enabled || e.speaking) {
		e.mu.Unlock()
		e.metrics.Utterance("dropped")
		return
	}
	if e.speaking {
		e.stopLocked()
		e.metrics.Utterance("interrupted")
	}

	e.seq++
	id := e.seq
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.speaking = true
	u := Utterance{UserID: e.userID, Text: text, Lang: l, Rate: SpeechRate, At: e.clock.Now()}
	e.last = &u
	e.mu.Unlock()

	go e.play(ctx, id, u)
}

func (e *Engine) play(ctx context.Context, id uint64, u Utterance) {
	d, err := e.player.Play(ctx, u)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("narration failed", "error", err)
			e.metrics.Utterance("failed")
		}
		e.finish(id)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seq != id {
		return
	}
	e.metrics.Utterance("played")
	e.hold = e.clock.AfterFunc(d, func() { e.finish(id) })
}

func (e *Engine) finish(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seq != id {
		return
	}
	e.speaking = false
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.hold = nil
}

// stopLocked cancels the in-flight utterance. Callers hold e.mu.
func (e *Engine) stopLocked() {
	e.seq++
	e.speaking = false
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.hold != nil {
		e.hold.Stop()
		e.hold = nil
	}
}

// Stop silences the engine
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// SetEnabled toggles voice guidance. Disabling also stops current speech.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = enabled
	if !enabled {
		e.stopLocked()
	}
}

// Enabled reports whether non-forced speech is allowed
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Speaking reports whether an utterance is in flight
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// Status returns a snapshot of the engine
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{Enabled: e.enabled, Speaking: e.speaking}
	if e.last != nil {
		last := *e.last
		s.Last = &last
	}
	return s
}
