// Package messaging contains the api.MessagingGateway implementations used to
// deliver customer notifications: an HTTP bridge to a messaging provider, a
// Kafka producer for an outbound topic consumed by a separate sender, and a
// log-only gateway for development.
package messaging

import (
	"context"
	"log/slog"
)

// LogGateway writes every message to a logger instead of delivering it.
type LogGateway struct {
	Logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{Logger: logger}
}

func (g *LogGateway) SendText(ctx context.Context, storeRef, phone, text string) error {
	g.Logger.InfoContext(ctx, "message",
		slog.String("store_ref", storeRef),
		slog.String("phone", phone),
		slog.String("text", text),
	)
	return nil
}
