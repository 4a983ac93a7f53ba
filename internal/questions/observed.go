package questions

import (
	"context"
	"errors"
	"time"

	"ullas/internal/game"
	"ullas/internal/metrics"
)

// Observed records fetch latency and outcome for a source
type Observed struct {
	next    game.QuestionSource
	name    string
	metrics *metrics.Metrics
}

// Observe wraps next so every fetch is timed under name
func Observe(next game.QuestionSource, name string, m *metrics.Metrics) *Observed {
	return &Observed{next: next, name: name, metrics: m}
}

func (o *Observed) Fetch(ctx context.Context, gameType game.GameType, sel game.Selector) (game.QuestionSet, error) {
	start := time.Now()
	set, err := o.next.Fetch(ctx, gameType, sel)
	o.metrics.ObserveFetch(o.name, fetchResult(err), time.Since(start).Seconds())
	return set, err
}

func fetchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "error"
	}
}
