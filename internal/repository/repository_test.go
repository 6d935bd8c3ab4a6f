package repository_test

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/filter"
	"github.com/taskforge/task-manager/internal/persistence"
	"github.com/taskforge/task-manager/internal/repository"
)

var stamp = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	tasks    repository.TaskRepository
	users    repository.UserRepository
	statuses repository.StatusRepository
	labels   repository.LabelRepository

	alice, bob       *domain.User
	draft, published *domain.TaskStatus
	bug, feature     *domain.Label
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: ":memory:"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx, zap.NewNop()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	db := store.DB()
	f := &fixture{
		tasks:    repository.NewTaskRepository(db, time.Second),
		users:    repository.NewUserRepository(db, time.Second),
		statuses: repository.NewStatusRepository(db, time.Second),
		labels:   repository.NewLabelRepository(db, time.Second),
	}
	f.alice = f.createUser(t, "alice@example.com")
	f.bob = f.createUser(t, "bob@example.com")
	f.draft = f.createStatus(t, "Draft", "draft")
	f.published = f.createStatus(t, "Published", "published")
	f.bug = f.createLabel(t, "bug")
	f.feature = f.createLabel(t, "feature")
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *domain.User {
	t.Helper()
	user := &domain.User{FirstName: "F", LastName: "L", Email: email, PasswordHash: "x", Role: domain.RoleUser, CreatedAt: stamp, UpdatedAt: stamp}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func (f *fixture) createStatus(t *testing.T, name, slug string) *domain.TaskStatus {
	t.Helper()
	status := &domain.TaskStatus{Name: name, Slug: slug, CreatedAt: stamp}
	if err := f.statuses.Create(context.Background(), status); err != nil {
		t.Fatalf("create status %s: %v", slug, err)
	}
	return status
}

func (f *fixture) createLabel(t *testing.T, name string) *domain.Label {
	t.Helper()
	label := &domain.Label{Name: name, CreatedAt: stamp}
	if err := f.labels.Create(context.Background(), label); err != nil {
		t.Fatalf("create label %s: %v", name, err)
	}
	return label
}

func (f *fixture) createTask(t *testing.T, title string, status *domain.TaskStatus, creator *domain.User, assignee *domain.User, created time.Time, labels ...*domain.Label) *domain.Task {
	t.Helper()
	task := &domain.Task{
		Index:     created.Unix(),
		Title:     title,
		StatusID:  status.ID,
		CreatorID: creator.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if assignee != nil {
		id := assignee.ID
		task.AssigneeID = &id
	}
	for _, label := range labels {
		task.LabelIDs = append(task.LabelIDs, label.ID)
	}
	if err := f.tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func (f *fixture) list(t *testing.T, raw string) repository.TaskPage {
	t.Helper()
	b, err := filter.NewTaskBuilder()
	if err != nil {
		t.Fatalf("NewTaskBuilder: %v", err)
	}
	params, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	query, err := b.ParseQuery(params)
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", raw, err)
	}
	page, err := f.tasks.List(context.Background(), query.Spec, query.Page, query.Sort)
	if err != nil {
		t.Fatalf("List(%q): %v", raw, err)
	}
	return page
}

func titles(page repository.TaskPage) []string {
	out := make([]string, len(page.Items))
	for i, task := range page.Items {
		out[i] = task.Title
	}
	return out
}

func TestTaskRepository_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	created := f.createTask(t, "Write docs", f.draft, f.alice, f.bob, stamp, f.feature, f.bug)

	got, err := f.tasks.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Write docs" || got.StatusSlug != "draft" || got.Version != 1 {
		t.Fatalf("unexpected task %+v", got)
	}
	if got.AssigneeID == nil || *got.AssigneeID != f.bob.ID {
		t.Fatalf("assignee = %v, want %d", got.AssigneeID, f.bob.ID)
	}
	if want := []int64{f.bug.ID, f.feature.ID}; !reflect.DeepEqual(got.LabelIDs, want) {
		t.Fatalf("labels = %v, want %v", got.LabelIDs, want)
	}
	if !got.CreatedAt.Equal(stamp) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, stamp)
	}

	if _, err := f.tasks.GetByID(context.Background(), created.ID+100); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing task: got %v, want ErrNotFound", err)
	}
}

func TestTaskRepository_ListFilters(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "Alpha report", f.draft, f.alice, f.bob, stamp, f.bug)
	f.createTask(t, "Beta", f.published, f.alice, nil, stamp.Add(time.Hour))
	f.createTask(t, "Gamma REPORT", f.draft, f.bob, f.alice, stamp.Add(2*time.Hour), f.feature)
	f.createTask(t, "Delta 100%", f.published, f.bob, f.bob, stamp.Add(3*time.Hour), f.bug, f.feature)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Alpha report", "Beta", "Gamma REPORT", "Delta 100%"}},
		{"statusEq=draft", []string{"Alpha report", "Gamma REPORT"}},
		{"status=published&assigneeIdEq=" + itoa(f.bob.ID), []string{"Delta 100%"}},
		{"assigneeIdNe=" + itoa(f.bob.ID), []string{"Beta", "Gamma REPORT"}},
		{"labelId=" + itoa(f.bug.ID), []string{"Alpha report", "Delta 100%"}},
		{"labelIdNe=" + itoa(f.bug.ID), []string{"Beta", "Gamma REPORT"}},
		{"labelIdIn=" + itoa(f.bug.ID) + "," + itoa(f.feature.ID), []string{"Alpha report", "Gamma REPORT", "Delta 100%"}},
		{"titleCont=report", []string{"Alpha report", "Gamma REPORT"}},
		{"titleCont=100%25", []string{"Delta 100%"}},
		{"titleCont=_", nil},
		{"createdAtGte=" + url.QueryEscape(stamp.Add(2*time.Hour).Format(time.RFC3339)), []string{"Gamma REPORT", "Delta 100%"}},
		{"creatorIdEq=" + itoa(f.alice.ID) + "&sort=title&order=desc", []string{"Beta", "Alpha report"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page := f.list(t, tt.query)
			got := titles(page)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("titles = %v, want %v", got, tt.want)
			}
			if page.TotalCount != int64(len(tt.want)) {
				t.Fatalf("total = %d, want %d", page.TotalCount, len(tt.want))
			}
		})
	}
}

func TestTaskRepository_ListPaging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.createTask(t, "task-"+itoa(int64(i)), f.draft, f.alice, nil, stamp.Add(time.Duration(i)*time.Minute))
	}

	page := f.list(t, "page=2&limit=2")
	if got, want := titles(page), []string{"task-2", "task-3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("page 2 = %v, want %v", got, want)
	}
	if page.TotalCount != 5 {
		t.Fatalf("total = %d, want 5", page.TotalCount)
	}

	page = f.list(t, "page=9&limit=2")
	if len(page.Items) != 0 || page.TotalCount != 5 {
		t.Fatalf("past the end: %d items, total %d", len(page.Items), page.TotalCount)
	}
}

func TestTaskRepository_OptimisticUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Original", f.draft, f.alice, nil, stamp, f.bug)

	first := *task
	first.Title = "First"
	first.LabelIDs = []int64{f.feature.ID}
	first.UpdatedAt = stamp.Add(time.Minute)
	if err := f.tasks.Update(ctx, &first, 1); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("version = %d, want 2", first.Version)
	}

	second := *task
	second.Title = "Second"
	if err := f.tasks.Update(ctx, &second, 1); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("stale update: got %v, want ErrVersionConflict", err)
	}

	stored, err := f.tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Title != "First" || !reflect.DeepEqual(stored.LabelIDs, []int64{f.feature.ID}) {
		t.Fatalf("stored = %+v", stored)
	}

	missing := *task
	missing.ID = task.ID + 100
	if err := f.tasks.Update(ctx, &missing, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing update: got %v, want ErrNotFound", err)
	}
}

func TestTaskRepository_DeleteReleasesLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, "Doomed", f.draft, f.alice, nil, stamp, f.bug)

	if err := f.labels.Delete(ctx, f.bug.ID); !errors.Is(err, repository.ErrInUse) {
		t.Fatalf("delete linked label: got %v, want ErrInUse", err)
	}
	if err := f.tasks.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.tasks.Delete(ctx, task.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
	if err := f.labels.Delete(ctx, f.bug.ID); err != nil {
		t.Fatalf("delete released label: %v", err)
	}
}

func TestReferenceRepositories_Constraints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createTask(t, "Uses draft", f.draft, f.alice, f.bob, stamp)

	if err := f.statuses.Delete(ctx, f.draft.ID); !errors.Is(err, repository.ErrInUse) {
		t.Fatalf("delete status in use: got %v, want ErrInUse", err)
	}
	if err := f.users.Delete(ctx, f.bob.ID); !errors.Is(err, repository.ErrInUse) {
		t.Fatalf("delete assignee: got %v, want ErrInUse", err)
	}
	dup := &domain.User{FirstName: "A", LastName: "B", Email: f.alice.Email, PasswordHash: "x", Role: domain.RoleUser, CreatedAt: stamp, UpdatedAt: stamp}
	if err := f.users.Create(ctx, dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate email: got %v, want ErrDuplicate", err)
	}

	found, err := f.labels.ExistingIDs(ctx, []int64{f.bug.ID, 999})
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if !found[f.bug.ID] || found[999] {
		t.Fatalf("ExistingIDs = %v", found)
	}

	status, err := f.statuses.GetBySlug(ctx, "published")
	if err != nil || status.ID != f.published.ID {
		t.Fatalf("GetBySlug = %+v, %v", status, err)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
