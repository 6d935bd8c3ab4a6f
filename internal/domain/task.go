package domain

import "time"

// Task is the aggregate users create, assign and move between statuses.
type Task struct {
	ID          int64
	Index       int64
	Title       string
	Description string
	StatusID    int64
	StatusSlug  string
	AssigneeID  *int64
	CreatorID   int64
	LabelIDs    []int64
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
