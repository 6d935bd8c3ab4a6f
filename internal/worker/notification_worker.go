package worker

import (
	"github.com/taskforge/task-manager/internal/events"
	"github.com/taskforge/task-manager/internal/service"
)

// Start registers the event subscribers on dispatcher. Either subscriber
// may be nil.
func Start(dispatcher events.Dispatcher, notifications *service.NotificationService, publisher *service.EventPublisher) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if publisher != nil {
		publisher.RegisterHandlers(dispatcher)
	}
}
