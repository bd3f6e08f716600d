package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported is returned when a broker cannot honor a message option,
	// for example a delay on a broker without deferred delivery.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned when Publish gets an empty destination.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("messaging: publisher is closed")
)

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage is a broker-agnostic message.
type OutgoingMessage struct {
	Body []byte
	// Key is the Kafka partition key and the Pub/Sub ordering key.
	Key []byte
	// Headers become NATS/Kafka headers and Pub/Sub attributes. NSQ has no
	// headers and drops them.
	Headers map[string]string
	// Delay requests deferred delivery; only NSQ supports it.
	Delay time.Duration
}

// PublishResult carries what the broker reports back, if anything.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

func validate(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	return nil
}
