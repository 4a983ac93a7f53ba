package handlers

const (
	ErrInvalidRequest      = "Invalid request"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests, please try again later"
	ErrSessionGone         = "Game session not found"
	ErrQuestionsDown       = "Questions are unavailable right now, please try again"

	// RetryAfterSeconds is sent with 503 responses
	RetryAfterSeconds = "5"
)
