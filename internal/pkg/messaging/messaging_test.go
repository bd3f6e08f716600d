package messaging

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestNewFromDriver(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		opts    FactoryOptions
		wantErr error
		want    any
	}{
		{name: "EmptyIsLog", driver: "", want: &Log{}},
		{name: "Log", driver: " log ", want: &Log{}},
		{name: "Unknown", driver: "rabbitmq", wantErr: ErrUnknownDriver},
		{name: "NSQWithoutAddr", driver: DriverNSQ, wantErr: ErrNSQProducerAddrRequired},
		{name: "NATSWithoutURL", driver: DriverNATS, wantErr: ErrNATSURLRequired},
		{name: "KafkaWithoutBrokers", driver: DriverKafka, wantErr: ErrKafkaBrokersRequired},
		{name: "PubSubWithoutProject", driver: DriverGooglePubSub, wantErr: ErrPubSubProjectIDRequired},
		{
			name:   "Kafka",
			driver: DriverKafka,
			opts:   FactoryOptions{Kafka: KafkaConfig{Brokers: []string{"127.0.0.1:9092"}}},
			want:   &Kafka{},
		},
		{
			name:   "NSQ",
			driver: DriverNSQ,
			opts:   FactoryOptions{NSQ: NSQConfig{ProducerAddr: "127.0.0.1:4150"}},
			want:   &NSQ{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := NewFromDriver(context.Background(), tt.driver, tt.opts)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pub)
				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.want, pub)
			assert.NoError(t, pub.Close())
		})
	}
}

func TestLog_Publish(t *testing.T) {
	ctx := context.Background()
	l := NewLog()

	res, err := l.Publish(ctx, "passcode.issued", OutgoingMessage{Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "1", res.MessageID)
	assert.Equal(t, "passcode.issued", res.Topic)

	res, err = l.Publish(ctx, "passcode.issued", OutgoingMessage{Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "2", res.MessageID)

	_, err = l.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrDestinationRequired)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = l.Publish(canceled, "passcode.issued", OutgoingMessage{})
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, l.Close())
	_, err = l.Publish(ctx, "passcode.issued", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestKafka_Publish(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)

	_, err = k.Publish(context.Background(), "passcode.issued", OutgoingMessage{Delay: time.Second})
	assert.ErrorIs(t, err, ErrUnsupported)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = k.Publish(ctx, "passcode.issued", OutgoingMessage{Body: []byte("x")})
	assert.Error(t, err)

	require.NoError(t, k.Close())
	require.NoError(t, k.Close())

	_, err = k.Publish(context.Background(), "passcode.issued", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNATS_Unreachable(t *testing.T) {
	_, err := NewNATS(NATSConfig{
		URL:     "nats://127.0.0.1:1",
		Options: []nats.Option{nats.Timeout(100 * time.Millisecond)},
	})

	assert.Error(t, err)
}

func TestNSQ_Publish(t *testing.T) {
	n, err := NewNSQ(NSQConfig{ProducerAddr: "127.0.0.1:1"})
	require.NoError(t, err)

	_, err = n.Publish(context.Background(), "passcode.issued", OutgoingMessage{Body: []byte("x")})
	assert.Error(t, err)

	require.NoError(t, n.Close())
	_, err = n.Publish(context.Background(), "passcode.issued", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPubSub_Publish(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(ctx, "preschool", option.WithGRPCConn(conn))
	require.NoError(t, err)

	_, err = client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: "projects/preschool/topics/passcode.issued"})
	require.NoError(t, err)

	p, err := NewPubSub(ctx, PubSubConfig{Client: client})
	require.NoError(t, err)

	res, err := p.Publish(ctx, "passcode.issued", OutgoingMessage{
		Body:    []byte(`{"phone":"+15551234567"}`),
		Key:     []byte("+15551234567"),
		Headers: map[string]string{"X-Correlation-ID": "cid-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"phone":"+15551234567"}`, string(msgs[0].Data))
	assert.Equal(t, "cid-1", msgs[0].Attributes["X-Correlation-ID"])

	_, err = p.Publish(ctx, "passcode.issued", OutgoingMessage{Delay: time.Second})
	assert.ErrorIs(t, err, ErrUnsupported)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
