// Package messaging publishes JSON events to NATS
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the JSON publishing surface used by sinks and the audio cue
// stream
type Publisher interface {
	PublishJSON(ctx context.Context, subject string, v any) error
}

// NATS publishes on a single connection
type NATS struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// Connect dials url and keeps reconnecting in the background
func Connect(url string, logger *slog.Logger) (*NATS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nats")

	nc, err := nats.Connect(url,
		nats.Name("ullas"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{nc: nc, logger: logger}, nil
}

// Publish sends raw data. NATS publish does not take a context, so ctx is
// only checked up front.
func (n *NATS) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	return n.nc.Publish(subject, data)
}

// PublishJSON marshals v and publishes it on subject
func (n *NATS) PublishJSON(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return n.Publish(ctx, subject, data)
}

// Conn exposes the underlying connection
func (n *NATS) Conn() *nats.Conn {
	return n.nc
}

// Close drains pending messages and closes the connection
func (n *NATS) Close() {
	if err := n.nc.Drain(); err != nil {
		n.logger.Warn("drain failed", "error", err)
		n.nc.Close()
	}
}
