package dto

import (
	"time"

	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/service"
)

// StatusCreateRequest payload for a new task status.
type StatusCreateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"required,max=255"`
}

// ToInput converts the request for the service.
func (r StatusCreateRequest) ToInput() service.StatusInput {
	return service.StatusInput{Name: &r.Name, Slug: &r.Slug}
}

// StatusUpdateRequest is a partial update.
type StatusUpdateRequest struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
	Slug *string `json:"slug" validate:"omitempty,max=255"`
}

// ToInput converts the request for the service.
func (r StatusUpdateRequest) ToInput() service.StatusInput {
	return service.StatusInput{Name: r.Name, Slug: r.Slug}
}

// StatusResponse is the wire form of a task status.
type StatusResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromStatus maps a domain status.
func FromStatus(status *domain.TaskStatus) StatusResponse {
	return StatusResponse{ID: status.ID, Name: status.Name, Slug: status.Slug, CreatedAt: status.CreatedAt}
}

// FromStatuses maps a list of statuses.
func FromStatuses(statuses []domain.TaskStatus) []StatusResponse {
	out := make([]StatusResponse, len(statuses))
	for i := range statuses {
		out[i] = FromStatus(&statuses[i])
	}
	return out
}

// LabelRequest payload for creating or renaming a label.
type LabelRequest struct {
	Name string `json:"name" validate:"required,min=3,max=1000"`
}

// LabelResponse is the wire form of a label.
type LabelResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromLabel maps a domain label.
func FromLabel(label *domain.Label) LabelResponse {
	return LabelResponse{ID: label.ID, Name: label.Name, CreatedAt: label.CreatedAt}
}

// FromLabels maps a list of labels.
func FromLabels(labels []domain.Label) []LabelResponse {
	out := make([]LabelResponse, len(labels))
	for i := range labels {
		out[i] = FromLabel(&labels[i])
	}
	return out
}
