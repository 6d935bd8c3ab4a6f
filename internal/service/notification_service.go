package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/events"
)

// NotificationService turns task events into structured log lines.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskCreated, n.handleTaskCreated)
	n.dispatcher.Subscribe(events.EventTaskUpdated, n.handleTaskUpdated)
	n.dispatcher.Subscribe(events.EventTaskDeleted, n.handleTaskDeleted)
}

func (n *NotificationService) handleTaskCreated(_ context.Context, event events.Event) error {
	fields := eventFields(event)
	if payload, ok := event.Payload.(events.TaskCreatedPayload); ok {
		fields = append(fields, zap.String("status", payload.Status))
		if payload.AssigneeID != nil {
			fields = append(fields, zap.Int64("assignee_id", *payload.AssigneeID))
		}
	}
	n.logger.Info("TaskCreated", fields...)
	return nil
}

func (n *NotificationService) handleTaskUpdated(_ context.Context, event events.Event) error {
	fields := eventFields(event)
	if payload, ok := event.Payload.(events.TaskUpdatedPayload); ok {
		fields = append(fields, zap.Int64("version", payload.Version))
		if payload.OldStatus != payload.NewStatus {
			fields = append(fields, zap.String("old_status", payload.OldStatus), zap.String("new_status", payload.NewStatus))
		}
		if payload.AssigneeChanged && payload.AssigneeID != nil {
			n.logger.Info("TaskAssigned", append(eventFields(event), zap.Int64("assignee_id", *payload.AssigneeID))...)
		}
	}
	n.logger.Info("TaskUpdated", fields...)
	return nil
}

func (n *NotificationService) handleTaskDeleted(_ context.Context, event events.Event) error {
	n.logger.Info("TaskDeleted", eventFields(event)...)
	return nil
}

func eventFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.Int64("task_id", event.TaskID),
		zap.Int64("actor_id", event.Actor.UserID),
	}
}
