package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	nsq "github.com/nsqio/go-nsq"
	"go.uber.org/atomic"
)

// ErrNSQProducerAddrRequired is returned when the nsqd address is missing.
var ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")

type NSQConfig struct {
	// ProducerAddr is the nsqd TCP address.
	ProducerAddr string
	// ProducerConfig overrides nsq.NewConfig().
	ProducerConfig *nsq.Config
}

// NSQ publishes to NSQ topics. It is the only driver with deferred delivery.
type NSQ struct {
	producer *nsq.Producer
	closed   *atomic.Bool
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	pcfg := cfg.ProducerConfig
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p, closed: atomic.NewBool(false)}, nil
}

func (n *NSQ) Close() error {
	if !n.closed.Swap(true) {
		n.producer.Stop()
	}
	return nil
}

// Publish ignores headers; NSQ messages carry only a body.
func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := validate(ctx, destination); err != nil {
		return PublishResult{}, err
	}
	if n.closed.Load() {
		return PublishResult{}, ErrClosed
	}

	var err error
	if msg.Delay > 0 {
		err = n.producer.DeferredPublish(destination, msg.Delay, msg.Body)
	} else {
		err = n.producer.Publish(destination, msg.Body)
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}
