package game

import "errors"

var (
	// ErrDataUnavailable means the question source failed or returned nothing
	ErrDataUnavailable = errors.New("questions unavailable")
	// ErrMalformedQuestion means a question violates its kind's invariant
	ErrMalformedQuestion = errors.New("malformed question")
	// ErrNotPresenting means input arrived outside the Presenting phase
	ErrNotPresenting = errors.New("session is not accepting answers")
	// ErrWrongKind means the input does not match the question kind
	ErrWrongKind = errors.New("input does not match question kind")
	// ErrInvalidOption means the submitted value is not one of the options
	ErrInvalidOption = errors.New("value is not one of the options")
	// ErrInvalidTile means the tile index is out of range or holds another token
	ErrInvalidTile = errors.New("invalid tile")
	// ErrTileConsumed means the tile was already used for this question
	ErrTileConsumed = errors.New("tile already used")
	// ErrDisposed means the session was discarded
	ErrDisposed = errors.New("session disposed")
	// ErrSessionNotFound means no live session has the given id
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownGame means the game type is not in the catalog
	ErrUnknownGame = errors.New("unknown game type")
	// ErrComingSoon means the game type has no content yet
	ErrComingSoon = errors.New("game coming soon")
)
