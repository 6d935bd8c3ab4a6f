package domain

import "time"

// TaskStatus is a workflow state referenced by tasks through its slug.
type TaskStatus struct {
	ID        int64
	Name      string
	Slug      string
	CreatedAt time.Time
}
