package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/events"
	"github.com/taskforge/task-manager/internal/filter"
	"github.com/taskforge/task-manager/internal/repository"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// TaskService coordinates task workflows.
type TaskService struct {
	tasks      repository.TaskRepository
	statuses   repository.StatusRepository
	users      repository.UserRepository
	labels     repository.LabelRepository
	dispatcher events.Dispatcher
	index      *apperrors.IndexGenerator
	clock      clock.Clock
	logger     *zap.Logger
}

// TaskDependencies bundles repositories for task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	StatusRepo repository.StatusRepository
	UserRepo   repository.UserRepository
	LabelRepo  repository.LabelRepository
	Dispatcher events.Dispatcher
	Index      *apperrors.IndexGenerator
	Clock      clock.Clock
	Logger     *zap.Logger
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Index       *int64
	Title       string
	Description string
	Status      string
	AssigneeID  *int64
	LabelIDs    []int64
}

// TaskUpdateInput describes a partial update. Nil fields are left alone.
// AssigneeSet distinguishes clearing the assignee (AssigneeID nil) from
// not touching it.
type TaskUpdateInput struct {
	Index       *int64
	Title       *string
	Description *string
	Status      *string
	AssigneeSet bool
	AssigneeID  *int64
	LabelIDs    *[]int64
	Version     *int64
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Index == nil {
		deps.Index = apperrors.NewIndexGenerator(1)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		statuses:   deps.StatusRepo,
		users:      deps.UserRepo,
		labels:     deps.LabelRepo,
		dispatcher: deps.Dispatcher,
		index:      deps.Index,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// List returns one page of tasks matching query.
func (s *TaskService) List(ctx context.Context, principal auth.Principal, query filter.Query) (repository.TaskPage, error) {
	if err := auth.Authorize(principal, auth.ActionTaskRead, nil); err != nil {
		return repository.TaskPage{}, err
	}
	page, err := s.tasks.List(ctx, query.Spec, query.Page, query.Sort)
	if err != nil {
		return repository.TaskPage{}, storeError(err, "task")
	}
	return page, nil
}

// Get fetches one task.
func (s *TaskService) Get(ctx context.Context, principal auth.Principal, id int64) (*domain.Task, error) {
	if err := auth.Authorize(principal, auth.ActionTaskRead, nil); err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "task")
	}
	return task, nil
}

// Create validates references and stores a new task owned by principal.
func (s *TaskService) Create(ctx context.Context, principal auth.Principal, input TaskCreateInput) (*domain.Task, error) {
	if err := auth.Authorize(principal, auth.ActionTaskCreate, nil); err != nil {
		return nil, err
	}

	var issues []apperrors.FieldIssue
	title := strings.TrimSpace(input.Title)
	if title == "" {
		issues = append(issues, apperrors.FieldIssue{Field: "title", Message: "must not be blank"})
	}

	statusID, issue, err := s.resolveStatus(ctx, input.Status)
	if err != nil {
		return nil, err
	}
	issues = appendIssue(issues, issue)

	issue, err = s.checkAssignee(ctx, input.AssigneeID)
	if err != nil {
		return nil, err
	}
	issues = appendIssue(issues, issue)

	labelIDs := uniqueSorted(input.LabelIDs)
	issue, err = s.checkLabels(ctx, labelIDs)
	if err != nil {
		return nil, err
	}
	issues = appendIssue(issues, issue)

	if len(issues) > 0 {
		return nil, apperrors.NewFieldValidationError(issues)
	}

	now := s.now()
	task := &domain.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		StatusID:    statusID,
		AssigneeID:  input.AssigneeID,
		CreatorID:   principal.SubjectID,
		LabelIDs:    labelIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Index != nil {
		task.Index = *input.Index
	} else {
		task.Index = s.index.Next()
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, storeError(err, "task")
	}
	created, err := s.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return nil, storeError(err, "task")
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTaskCreated, created.ID, actorOf(principal), now, events.TaskCreatedPayload{
		Title:      created.Title,
		Status:     created.StatusSlug,
		AssigneeID: created.AssigneeID,
	}))
	return created, nil
}

// Update applies input to the task if principal may modify it. The write
// is rejected with a conflict when the stored version has moved past the
// one the caller read.
func (s *TaskService) Update(ctx context.Context, principal auth.Principal, id int64, input TaskUpdateInput) (*domain.Task, error) {
	if err := auth.Authorize(principal, auth.ActionTaskUpdate, nil); err != nil {
		return nil, err
	}
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "task")
	}
	if err := auth.Authorize(principal, auth.ActionTaskUpdate, &auth.Resource{OwnerID: current.CreatorID}); err != nil {
		return nil, err
	}

	updated := *current
	var issues []apperrors.FieldIssue

	if input.Index != nil {
		updated.Index = *input.Index
	}
	if input.Title != nil {
		updated.Title = strings.TrimSpace(*input.Title)
		if updated.Title == "" {
			issues = append(issues, apperrors.FieldIssue{Field: "title", Message: "must not be blank"})
		}
	}
	if input.Description != nil {
		updated.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		statusID, issue, err := s.resolveStatus(ctx, *input.Status)
		if err != nil {
			return nil, err
		}
		issues = appendIssue(issues, issue)
		updated.StatusID = statusID
	}
	if input.AssigneeSet {
		issue, err := s.checkAssignee(ctx, input.AssigneeID)
		if err != nil {
			return nil, err
		}
		issues = appendIssue(issues, issue)
		updated.AssigneeID = input.AssigneeID
	}
	if input.LabelIDs != nil {
		labelIDs := uniqueSorted(*input.LabelIDs)
		issue, err := s.checkLabels(ctx, labelIDs)
		if err != nil {
			return nil, err
		}
		issues = appendIssue(issues, issue)
		updated.LabelIDs = labelIDs
	}
	if len(issues) > 0 {
		return nil, apperrors.NewFieldValidationError(issues)
	}

	expected := current.Version
	if input.Version != nil {
		expected = *input.Version
	}
	updated.UpdatedAt = s.now()

	if err := s.tasks.Update(ctx, &updated, expected); err != nil {
		return nil, storeError(err, "task")
	}
	result, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "task")
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTaskUpdated, id, actorOf(principal), updated.UpdatedAt, events.TaskUpdatedPayload{
		Version:         result.Version,
		OldStatus:       current.StatusSlug,
		NewStatus:       result.StatusSlug,
		AssigneeChanged: !sameAssignee(current.AssigneeID, result.AssigneeID),
		AssigneeID:      result.AssigneeID,
	}))
	return result, nil
}

// Delete removes the task if principal may modify it.
func (s *TaskService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	if err := auth.Authorize(principal, auth.ActionTaskDelete, nil); err != nil {
		return err
	}
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "task")
	}
	if err := auth.Authorize(principal, auth.ActionTaskDelete, &auth.Resource{OwnerID: current.CreatorID}); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return storeError(err, "task")
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTaskDeleted, id, actorOf(principal), s.now(), events.TaskDeletedPayload{
		Title: current.Title,
	}))
	return nil
}

func (s *TaskService) resolveStatus(ctx context.Context, slug string) (int64, *apperrors.FieldIssue, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, &apperrors.FieldIssue{Field: "status", Message: "must not be blank"}, nil
	}
	status, err := s.statuses.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, &apperrors.FieldIssue{Field: "status", Message: fmt.Sprintf("unknown status %q", slug)}, nil
		}
		return 0, nil, storeError(err, "task status")
	}
	return status.ID, nil, nil
}

func (s *TaskService) checkAssignee(ctx context.Context, assigneeID *int64) (*apperrors.FieldIssue, error) {
	if assigneeID == nil {
		return nil, nil
	}
	if _, err := s.users.GetByID(ctx, *assigneeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &apperrors.FieldIssue{Field: "assigneeId", Message: fmt.Sprintf("user %d does not exist", *assigneeID)}, nil
		}
		return nil, storeError(err, "user")
	}
	return nil, nil
}

func (s *TaskService) checkLabels(ctx context.Context, labelIDs []int64) (*apperrors.FieldIssue, error) {
	if len(labelIDs) == 0 {
		return nil, nil
	}
	found, err := s.labels.ExistingIDs(ctx, labelIDs)
	if err != nil {
		return nil, storeError(err, "label")
	}
	var missing []string
	for _, id := range labelIDs {
		if !found[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		return &apperrors.FieldIssue{Field: "taskLabelIds", Message: "unknown labels: " + strings.Join(missing, ", ")}, nil
	}
	return nil, nil
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (s *TaskService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func actorOf(principal auth.Principal) events.Actor {
	return events.Actor{UserID: principal.SubjectID, Role: principal.Role}
}

func appendIssue(issues []apperrors.FieldIssue, issue *apperrors.FieldIssue) []apperrors.FieldIssue {
	if issue == nil {
		return issues
	}
	return append(issues, *issue)
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sameAssignee(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
