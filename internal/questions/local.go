package questions

import (
	"context"
	"fmt"
	"os"

	"ullas/internal/game"
)

// Local serves question sets from a Bank
type Local struct {
	bank *Bank
}

// NewLocal loads the bank from dir, or the embedded bank when dir is empty
func NewLocal(dir string) (*Local, error) {
	var (
		bank *Bank
		err  error
	)
	if dir == "" {
		bank, err = EmbeddedBank()
	} else {
		bank, err = LoadBank(os.DirFS(dir))
	}
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return &Local{bank: bank}, nil
}

// NewLocalFromBank wraps an already loaded bank
func NewLocalFromBank(b *Bank) *Local {
	return &Local{bank: b}
}

func (l *Local) Fetch(ctx context.Context, gameType game.GameType, sel game.Selector) (game.QuestionSet, error) {
	if err := ctx.Err(); err != nil {
		return game.QuestionSet{}, err
	}
	return l.bank.Lookup(gameType, sel)
}
