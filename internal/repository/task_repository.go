package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/filter"
)

// TaskPage is one page of a filtered task listing.
type TaskPage struct {
	Items      []domain.Task
	TotalCount int64
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	List(ctx context.Context, spec filter.Specification, page filter.Page, sort filter.Sort) (TaskPage, error)
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
	// Update writes task if the stored version still equals expectedVersion.
	Update(ctx context.Context, task *domain.Task, expectedVersion int64) error
	Delete(ctx context.Context, id int64) error
}

type taskRepository struct {
	store
}

// NewTaskRepository returns a repository bounded by queryTimeout per call.
func NewTaskRepository(db DB, queryTimeout time.Duration) TaskRepository {
	return &taskRepository{store: newStore(db, queryTimeout)}
}

func (r *taskRepository) List(ctx context.Context, spec filter.Specification, page filter.Page, sort filter.Sort) (TaskPage, error) {
	where, args, err := compileTaskFilter(spec)
	if err != nil {
		return TaskPage{}, err
	}
	order, err := compileTaskOrder(sort)
	if err != nil {
		return TaskPage{}, err
	}
	if page.Size <= 0 {
		page.Size = filter.DefaultPageSize
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRow(ctx, taskCount+where, args...).Scan(&total); err != nil {
		return TaskPage{}, err
	}

	listArgs := make([]any, 0, len(args)+2)
	listArgs = append(listArgs, args...)
	listArgs = append(listArgs, page.Size, page.Offset())

	rows, err := r.db.Query(ctx, taskSelect+where+order+" LIMIT ? OFFSET ?", listArgs...)
	if err != nil {
		return TaskPage{}, err
	}
	items, err := scanTasks(rows)
	if err != nil {
		return TaskPage{}, err
	}
	if err := loadLabels(ctx, r.db, items); err != nil {
		return TaskPage{}, err
	}
	return TaskPage{Items: items, TotalCount: total}, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var task domain.Task
	if err := scanTask(r.db.QueryRow(ctx, taskSelect+" WHERE t.id = ?", id), &task); err != nil {
		return nil, err
	}
	tasks := []domain.Task{task}
	if err := loadLabels(ctx, r.db, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (task_index, title, description, status_id, assignee_id, creator_id, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
        RETURNING id`

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	return r.db.WithTx(ctx, func(tx DB) error {
		if err := tx.QueryRow(ctx, query,
			task.Index,
			task.Title,
			task.Description,
			task.StatusID,
			task.AssigneeID,
			task.CreatorID,
			task.CreatedAt,
			task.UpdatedAt,
		).Scan(&task.ID); err != nil {
			return err
		}
		task.Version = 1
		return replaceLabels(ctx, tx, task.ID, task.LabelIDs)
	})
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task, expectedVersion int64) error {
	const query = `
        UPDATE tasks SET task_index = ?, title = ?, description = ?, status_id = ?, assignee_id = ?,
            version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?`

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	return r.db.WithTx(ctx, func(tx DB) error {
		n, err := tx.Exec(ctx, query,
			task.Index,
			task.Title,
			task.Description,
			task.StatusID,
			task.AssigneeID,
			task.UpdatedAt,
			task.ID,
			expectedVersion,
		)
		if err != nil {
			return err
		}
		if n == 0 {
			return missingOrStale(ctx, tx, "SELECT 1 FROM tasks WHERE id = ?", task.ID)
		}
		task.Version = expectedVersion + 1
		return replaceLabels(ctx, tx, task.ID, task.LabelIDs)
	})
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return affectOne(r.db.Exec(ctx, "DELETE FROM tasks WHERE id = ?", id))
}

// missingOrStale explains a guarded update that touched no rows.
func missingOrStale(ctx context.Context, db DB, existsQuery string, id int64) error {
	var one int
	if err := db.QueryRow(ctx, existsQuery, id).Scan(&one); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return ErrVersionConflict
}

func replaceLabels(ctx context.Context, db DB, taskID int64, labelIDs []int64) error {
	if _, err := db.Exec(ctx, "DELETE FROM task_labels WHERE task_id = ?", taskID); err != nil {
		return err
	}
	for _, labelID := range labelIDs {
		if _, err := db.Exec(ctx, "INSERT INTO task_labels (task_id, label_id) VALUES (?, ?)", taskID, labelID); err != nil {
			return err
		}
	}
	return nil
}

// loadLabels fills LabelIDs for every task with one query.
func loadLabels(ctx context.Context, db DB, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int64, len(tasks))
	byID := make(map[int64]int, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		byID[tasks[i].ID] = i
		tasks[i].LabelIDs = []int64{}
	}

	query, args, err := sqlx.In("SELECT task_id, label_id FROM task_labels WHERE task_id IN (?) ORDER BY task_id, label_id", ids)
	if err != nil {
		return err
	}
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, labelID int64
		if err := rows.Scan(&taskID, &labelID); err != nil {
			return err
		}
		if i, ok := byID[taskID]; ok {
			tasks[i].LabelIDs = append(tasks[i].LabelIDs, labelID)
		}
	}
	return rows.Err()
}

func scanTask(row Row, task *domain.Task) error {
	return row.Scan(
		&task.ID,
		&task.Index,
		&task.Title,
		&task.Description,
		&task.StatusID,
		&task.StatusSlug,
		&task.AssigneeID,
		&task.CreatorID,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
}

func scanTasks(rows Rows) ([]domain.Task, error) {
	defer rows.Close()
	result := []domain.Task{}
	for rows.Next() {
		var task domain.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}
