package narration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ullas/internal/clock"
	"ullas/internal/kvstore"
	"ullas/internal/lang"
)

// recordingPlayer returns a fixed duration and records every utterance
type recordingPlayer struct {
	mu       sync.Mutex
	played   []Utterance
	duration time.Duration
	err      error
}

func (p *recordingPlayer) Play(_ context.Context, u Utterance) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, u)
	return p.duration, p.err
}

func (p *recordingPlayer) texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.played))
	for i, u := range p.played {
		out[i] = u.Text
	}
	return out
}

func newTestEngine(player Player) (*Engine, *clock.Fake) {
	fc := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewEngine(1, player, WithClock(fc)), fc
}

// waitHeld blocks until the in-flight utterance has been handed to the clock
func waitHeld(t *testing.T, fc *clock.Fake) {
	t.Helper()
	require.Eventually(t, func() bool { return fc.Pending() > 0 }, time.Second, time.Millisecond)
}

func TestSpeakDropsWhileSpeaking(t *testing.T) {
	p := &recordingPlayer{duration: 2 * time.Second}
	e, fc := newTestEngine(p)

	e.Speak("first", false)
	waitHeld(t, fc)
	assert.True(t, e.Speaking())

	e.Speak("second", false)
	assert.Equal(t, []string{"first"}, p.texts())

	fc.Advance(2 * time.Second)
	assert.False(t, e.Speaking())

	e.Speak("third", false)
	waitHeld(t, fc)
	assert.Equal(t, []string{"first", "third"}, p.texts())
}

func TestForceInterrupts(t *testing.T) {
	p := &recordingPlayer{duration: 5 * time.Second}
	e, fc := newTestEngine(p)

	e.Speak("prompt", false)
	waitHeld(t, fc)

	e.Speak("feedback", true)
	require.Eventually(t, func() bool { return len(p.texts()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "feedback", e.Status().Last.Text)

	// the interrupted prompt's hold no longer ends the new utterance
	waitHeld(t, fc)
	assert.True(t, e.Speaking())
	fc.Advance(5 * time.Second)
	assert.False(t, e.Speaking())
}

func TestDisabledEngineOnlyPlaysForced(t *testing.T) {
	p := &recordingPlayer{duration: time.Second}
	e, fc := newTestEngine(p)
	e.SetEnabled(false)

	e.Speak("ignored", false)
	assert.False(t, e.Speaking())
	assert.Empty(t, p.texts())

	e.Speak("summary", true)
	waitHeld(t, fc)
	assert.Equal(t, []string{"summary"}, p.texts())
}

func TestPlayerFailureReleasesEngine(t *testing.T) {
	p := &recordingPlayer{err: errors.New("synth down")}
	e, _ := newTestEngine(p)

	e.Speak("hello", false)
	require.Eventually(t, func() bool { return !e.Speaking() && len(p.texts()) == 1 }, time.Second, time.Millisecond)
}

func TestVoiceUsesLanguage(t *testing.T) {
	p := &recordingPlayer{duration: time.Second}
	e, fc := newTestEngine(p)

	e.Voice(lang.Hindi).Speak("नमस्ते", false)
	waitHeld(t, fc)

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.played, 1)
	assert.Equal(t, lang.Hindi, p.played[0].Lang)
	assert.Equal(t, SpeechRate, p.played[0].Rate)
}

func TestEmptyTextIsIgnored(t *testing.T) {
	p := &recordingPlayer{duration: time.Second}
	e, _ := newTestEngine(p)
	e.Speak("", true)
	assert.False(t, e.Speaking())
}

func TestEstimateDuration(t *testing.T) {
	assert.Equal(t, 600*time.Millisecond, EstimateDuration("hi", SpeechRate))
	long := EstimateDuration("Select the first letter of Elephant", SpeechRate)
	assert.Greater(t, long, time.Second)
}

func TestRegistryPersistsPreference(t *testing.T) {
	kv := kvstore.NewMemory()
	ctx := context.Background()

	r := NewRegistry(SilentPlayer{}, kv, nil)
	e := r.For(42)
	assert.Same(t, e, r.For(42))
	assert.True(t, e.Enabled())

	require.NoError(t, r.SetEnabled(ctx, 42, false))
	assert.False(t, e.Enabled())

	// a fresh registry picks up the stored preference
	r2 := NewRegistry(SilentPlayer{}, kv, nil)
	assert.False(t, r2.For(42).Enabled())
	assert.True(t, r2.For(7).Enabled())

	r2.Forget(42)
	assert.NotSame(t, e, r2.For(42))
}

// stalledPrefs blocks reads of one key until release is closed
type stalledPrefs struct {
	*kvstore.Memory
	key     string
	entered chan struct{}
	release chan struct{}
}

func (p *stalledPrefs) Get(ctx context.Context, key string) ([]byte, error) {
	if key == p.key {
		close(p.entered)
		<-p.release
	}
	return p.Memory.Get(ctx, key)
}

func TestRegistrySlowPreferenceDoesNotBlockOthers(t *testing.T) {
	prefs := &stalledPrefs{
		Memory:  kvstore.NewMemory(),
		key:     voiceKey(1),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := NewRegistry(SilentPlayer{}, prefs, nil)

	slow := make(chan *Engine, 1)
	go func() { slow <- r.For(1) }()
	<-prefs.entered

	other := make(chan *Engine, 1)
	go func() { other <- r.For(2) }()
	select {
	case e := <-other:
		assert.True(t, e.Enabled())
	case <-time.After(time.Second):
		t.Fatal("lookup for another learner waited on a slow preference read")
	}

	close(prefs.release)
	e := <-slow
	assert.Same(t, e, r.For(1))
}
