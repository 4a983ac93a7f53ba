package reporting

import (
	"context"

	"ullas/internal/game"
	"ullas/internal/lang"
	"ullas/internal/messaging"
)

// Poster is the part of the remote client the HTTP sink needs
type Poster interface {
	PostJSON(ctx context.Context, path string, body, out any) error
}

// HTTPSink posts attempts to the quiz API
type HTTPSink struct {
	client Poster
}

// NewHTTPSink creates a sink posting to /attempts
func NewHTTPSink(client Poster) *HTTPSink {
	return &HTTPSink{client: client}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Send(ctx context.Context, a game.Attempt) error {
	return s.client.PostJSON(ctx, "attempts", a, nil)
}

// Event is the NATS form of an attempt; it carries the identifiers the API
// payload leaves out
type Event struct {
	SessionID string        `json:"sessionId"`
	UserID    int64         `json:"userId"`
	GameType  game.GameType `json:"gameType"`
	Language  lang.Language `json:"language"`
	game.Attempt
}

// NATSSink publishes attempts on ullas.attempts.<gameType>
type NATSSink struct {
	pub messaging.Publisher
}

// NewNATSSink creates a NATS sink
func NewNATSSink(pub messaging.Publisher) *NATSSink {
	return &NATSSink{pub: pub}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Send(ctx context.Context, a game.Attempt) error {
	return s.pub.PublishJSON(ctx, Subject(a.GameType), Event{
		SessionID: a.SessionID,
		UserID:    a.UserID,
		GameType:  a.GameType,
		Language:  a.Language,
		Attempt:   a,
	})
}

// Subject is the NATS subject for a game type
func Subject(gameType game.GameType) string {
	return "ullas.attempts." + string(gameType)
}
