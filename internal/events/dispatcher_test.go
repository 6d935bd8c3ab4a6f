package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskforge/task-manager/internal/domain"
)

func TestInMemoryDispatcher_FailingHandlerDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventTaskCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTaskCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTaskDeleted, func(context.Context, Event) error {
		calls = append(calls, "other type")
		return nil
	})

	event := NewEvent(EventTaskCreated, 1, Actor{UserID: 1, Role: domain.RoleUser}, time.Now(), TaskCreatedPayload{Title: "t"})
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestNewEvent_AssignsIDs(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := NewEvent(EventTaskUpdated, 4, Actor{UserID: 2}, at, nil)
	b := NewEvent(EventTaskUpdated, 4, Actor{UserID: 2}, at, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids %q and %q should be distinct and non-empty", a.ID, b.ID)
	}
	if !a.Timestamp.Equal(at) || a.TaskID != 4 {
		t.Fatalf("event = %+v", a)
	}
}
