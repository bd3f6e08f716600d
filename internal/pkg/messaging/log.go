package messaging

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"go.uber.org/atomic"
)

// Log writes messages to the default slog logger instead of a broker.
type Log struct {
	seq    *atomic.Int64
	closed *atomic.Bool
}

func NewLog() *Log {
	return &Log{seq: atomic.NewInt64(0), closed: atomic.NewBool(false)}
}

func (l *Log) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *Log) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := validate(ctx, destination); err != nil {
		return PublishResult{}, err
	}
	if l.closed.Load() {
		return PublishResult{}, ErrClosed
	}

	id := strconv.FormatInt(l.seq.Inc(), 10)
	slog.InfoContext(ctx, "message published",
		"driver", DriverLog,
		"destination", destination,
		"message_id", id,
		"headers", msg.Headers,
		"body", string(msg.Body),
		"delay", msg.Delay,
	)

	return PublishResult{MessageID: id, Topic: destination, Timestamp: time.Now()}, nil
}
