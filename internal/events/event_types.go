package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/task-manager/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated EventType = "task.created"
	EventTaskUpdated EventType = "task.updated"
	EventTaskDeleted EventType = "task.deleted"
)

// TaskEventTypes lists every task event.
var TaskEventTypes = []EventType{EventTaskCreated, EventTaskUpdated, EventTaskDeleted}

// Actor identifies who caused an event.
type Actor struct {
	UserID int64       `json:"userId"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TaskID    int64       `json:"taskId"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, taskID int64, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TaskID:    taskID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	Title      string `json:"title"`
	Status     string `json:"status"`
	AssigneeID *int64 `json:"assigneeId,omitempty"`
}

// TaskUpdatedPayload payload.
type TaskUpdatedPayload struct {
	Version         int64  `json:"version"`
	OldStatus       string `json:"oldStatus,omitempty"`
	NewStatus       string `json:"newStatus,omitempty"`
	AssigneeChanged bool   `json:"assigneeChanged"`
	AssigneeID      *int64 `json:"assigneeId,omitempty"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	Title string `json:"title"`
}
