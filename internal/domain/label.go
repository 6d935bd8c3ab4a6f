package domain

import "time"

// Label tags tasks; a task may carry many labels.
type Label struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
