package services

import (
	"context"

	"github.com/issuedesk/apiserver/internal/mq"
	"go.uber.org/zap"
)

// EventPublisher announces domain changes. Implementations must not fail the
// caller's operation.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, subject string, payload any)
}

// MQPublisher publishes events to a single broker channel. A nil broker
// turns Publish into a no-op.
type MQPublisher struct {
	broker  *mq.MQ
	channel string
	logger  *zap.Logger
}

func NewMQPublisher(broker *mq.MQ, channel string, logger *zap.Logger) *MQPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQPublisher{broker: broker, channel: channel, logger: logger}
}

func (p *MQPublisher) Publish(ctx context.Context, eventType, subject string, payload any) {
	if p == nil || p.broker == nil {
		return
	}
	event, err := mq.NewEvent(eventType, subject, payload)
	if err != nil {
		p.logger.Warn("build event", zap.String("type", eventType), zap.Error(err))
		return
	}
	id, err := p.broker.PublishEvent(ctx, p.channel, event)
	if err != nil {
		p.logger.Warn("publish event",
			zap.String("type", eventType),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event published",
		zap.String("type", eventType),
		zap.String("subject", subject),
		zap.String("message_id", id),
	)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, any) {}
