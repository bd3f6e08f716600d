package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/preschool/internal/passcode/usecase"
	"github.com/shandysiswandi/preschool/internal/pkg/instrument"
	"github.com/shandysiswandi/preschool/internal/pkg/messaging"
	"github.com/shandysiswandi/preschool/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishPasscodeIssued(ctx context.Context, msg usecase.PasscodeIssuedEvent) error {
	ctx, span := m.ins.Tracer("passcode.outbound.mq").Start(ctx, "PublishPasscodeIssued")
	defer span.End()

	body, err := json.Marshal(event.PasscodeIssuedMessage{
		RequestID: msg.RequestID,
		Phone:     msg.Phone,
		Code:      msg.Code,
		ExpiresAt: msg.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, event.PasscodeIssuedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.Phone),
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
