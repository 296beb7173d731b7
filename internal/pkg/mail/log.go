package mail

import (
	"context"
	"log/slog"
)

// Log is a development Mail driver. It logs the envelope and the bodies
// instead of delivering anything.
type Log struct {
	logger      *slog.Logger
	defaultFrom string
}

// NewLog returns a Log driver. A nil logger means slog.Default().
func NewLog(logger *slog.Logger, defaultFrom string) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger, defaultFrom: defaultFrom}
}

// Send logs msg at info level.
func (l *Log) Send(ctx context.Context, msg Message) error {
	if len(msg.Recipients()) == 0 {
		return ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = l.defaultFrom
	}

	l.logger.InfoContext(ctx, "mail captured by log driver",
		"from", from,
		"to", msg.To,
		"subject", msg.Subject,
		"text_body", msg.TextBody,
	)
	return nil
}

// Close implements io.Closer for interface compatibility.
func (l *Log) Close() error {
	return nil
}
