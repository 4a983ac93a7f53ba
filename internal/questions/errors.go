package questions

import "errors"

var (
	// ErrNotFound means no question set exists for the game, language or quiz id
	ErrNotFound = errors.New("question set not found")
	// ErrNetwork means the remote API could not be reached or answered badly
	ErrNetwork = errors.New("question source unreachable")
)
