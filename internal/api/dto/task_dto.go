package dto

import (
	"time"

	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/repository"
	"github.com/taskforge/task-manager/internal/service"
)

// TaskCreateRequest is the POST /tasks payload. assignee_id is accepted as
// an alias of assigneeId.
type TaskCreateRequest struct {
	Index           *int64  `json:"index"`
	Title           string  `json:"title" validate:"required,max=255"`
	Content         string  `json:"content"`
	Status          string  `json:"status" validate:"required,max=255"`
	AssigneeID      *int64  `json:"assigneeId"`
	AssigneeIDAlias *int64  `json:"assignee_id"`
	TaskLabelIDs    []int64 `json:"taskLabelIds"`
}

// ToInput converts the request for the service.
func (r TaskCreateRequest) ToInput() service.TaskCreateInput {
	assignee := r.AssigneeID
	if assignee == nil {
		assignee = r.AssigneeIDAlias
	}
	return service.TaskCreateInput{
		Index:       r.Index,
		Title:       r.Title,
		Description: r.Content,
		Status:      r.Status,
		AssigneeID:  assignee,
		LabelIDs:    r.TaskLabelIDs,
	}
}

// TaskUpdateRequest is the PUT /tasks/{id} payload. Omitted keys are left
// unchanged; "assigneeId": null clears the assignee.
type TaskUpdateRequest struct {
	Index           *int64        `json:"index"`
	Title           *string       `json:"title" validate:"omitempty,max=255"`
	Content         *string       `json:"content"`
	Status          *string       `json:"status" validate:"omitempty,max=255"`
	AssigneeID      OptionalInt64 `json:"assigneeId"`
	AssigneeIDAlias OptionalInt64 `json:"assignee_id"`
	TaskLabelIDs    *[]int64      `json:"taskLabelIds"`
	Version         *int64        `json:"version"`
}

// ToInput converts the request for the service.
func (r TaskUpdateRequest) ToInput() service.TaskUpdateInput {
	assignee := r.AssigneeID
	if !assignee.Set {
		assignee = r.AssigneeIDAlias
	}
	return service.TaskUpdateInput{
		Index:       r.Index,
		Title:       r.Title,
		Description: r.Content,
		Status:      r.Status,
		AssigneeSet: assignee.Set,
		AssigneeID:  assignee.Value,
		LabelIDs:    r.TaskLabelIDs,
		Version:     r.Version,
	}
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID           int64     `json:"id"`
	Index        int64     `json:"index"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Status       string    `json:"status"`
	AssigneeID   *int64    `json:"assigneeId"`
	CreatorID    int64     `json:"creatorId"`
	TaskLabelIDs []int64   `json:"taskLabelIds"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Items      []TaskResponse `json:"items"`
	TotalCount int64          `json:"totalCount"`
}

// FromTask maps a domain task.
func FromTask(task *domain.Task) TaskResponse {
	labels := task.LabelIDs
	if labels == nil {
		labels = []int64{}
	}
	return TaskResponse{
		ID:           task.ID,
		Index:        task.Index,
		Title:        task.Title,
		Content:      task.Description,
		Status:       task.StatusSlug,
		AssigneeID:   task.AssigneeID,
		CreatorID:    task.CreatorID,
		TaskLabelIDs: labels,
		Version:      task.Version,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// FromTaskPage maps a page of tasks.
func FromTaskPage(page repository.TaskPage) TaskListResponse {
	items := make([]TaskResponse, len(page.Items))
	for i := range page.Items {
		items[i] = FromTask(&page.Items[i])
	}
	return TaskListResponse{Items: items, TotalCount: page.TotalCount}
}
