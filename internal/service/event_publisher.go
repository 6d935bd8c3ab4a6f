package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/events"
)

// MessagePublisher sends a payload to a named channel.
type MessagePublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// EventPublisher forwards task events to an external channel as JSON.
type EventPublisher struct {
	publisher MessagePublisher
	channel   string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEventPublisher creates the forwarder. A nil publisher disables it.
func NewEventPublisher(publisher MessagePublisher, channel string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		channel:   channel,
		timeout:   2 * time.Second,
		logger:    logger,
	}
}

// RegisterHandlers subscribes to every task event.
func (p *EventPublisher) RegisterHandlers(dispatcher events.Dispatcher) {
	if p == nil || p.publisher == nil || dispatcher == nil {
		return
	}
	for _, eventType := range events.TaskEventTypes {
		dispatcher.Subscribe(eventType, p.forward)
	}
	p.logger.Info("forwarding task events", zap.String("channel", p.channel))
}

// forward runs detached from the request's cancellation so a client
// hanging up does not drop the event.
func (p *EventPublisher) forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.publisher.Publish(pubCtx, p.channel, payload); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, p.channel, err)
	}
	return nil
}
