package service_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/events"
	"github.com/taskforge/task-manager/internal/filter"
	"github.com/taskforge/task-manager/internal/persistence"
	"github.com/taskforge/task-manager/internal/repository"
	"github.com/taskforge/task-manager/internal/service"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, event := range r.events {
		out[i] = event.Type
	}
	return out
}

type env struct {
	clock    *clock.FakeClock
	tasks    *service.TaskService
	users    *service.UserService
	statuses *service.StatusService
	labels   *service.LabelService
	auth     *service.AuthService
	recorded *recorder

	admin, alice, bob auth.Principal
	bug               *domain.Label
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx, logger); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	db := store.DB()
	userRepo := repository.NewUserRepository(db, time.Second)
	statusRepo := repository.NewStatusRepository(db, time.Second)
	labelRepo := repository.NewLabelRepository(db, time.Second)
	taskRepo := repository.NewTaskRepository(db, time.Second)

	clk := clock.Fake(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	dispatcher := events.NewInMemoryDispatcher(logger)
	rec := &recorder{}
	for _, eventType := range events.TaskEventTypes {
		dispatcher.Subscribe(eventType, rec.handle)
	}

	e := &env{
		clock:    clk,
		users:    service.NewUserService(userRepo, bcrypt.MinCost, clk, logger),
		statuses: service.NewStatusService(statusRepo, clk),
		labels:   service.NewLabelService(labelRepo, clk),
		auth:     service.NewAuthService(userRepo, auth.NewTokenService("secret", time.Hour, clk), bcrypt.MinCost, logger),
		tasks: service.NewTaskService(service.TaskDependencies{
			TaskRepo:   taskRepo,
			StatusRepo: statusRepo,
			UserRepo:   userRepo,
			LabelRepo:  labelRepo,
			Dispatcher: dispatcher,
			Index:      apperrors.NewIndexGenerator(1),
			Clock:      clk,
			Logger:     logger,
		}),
		recorded: rec,
	}

	e.admin = e.seedUser(t, "admin@example.com", domain.RoleAdmin)
	e.alice = e.seedUser(t, "alice@example.com", domain.RoleUser)
	e.bob = e.seedUser(t, "bob@example.com", domain.RoleUser)
	for _, slug := range []string{"draft", "published"} {
		if _, _, err := e.statuses.Seed(ctx, slug, slug); err != nil {
			t.Fatalf("seed status: %v", err)
		}
	}
	label, _, err := e.labels.Seed(ctx, "bug")
	if err != nil {
		t.Fatalf("seed label: %v", err)
	}
	e.bug = label
	return e
}

func (e *env) seedUser(t *testing.T, email string, role domain.Role) auth.Principal {
	t.Helper()
	user, _, err := e.users.Seed(context.Background(), service.UserCreateInput{
		FirstName: "First", LastName: "Last", Email: email, Password: "secret", Role: role,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return auth.Principal{SubjectID: user.ID, Role: role}
}

func (e *env) createTask(t *testing.T, owner auth.Principal, title string) *domain.Task {
	t.Helper()
	task, err := e.tasks.Create(context.Background(), owner, service.TaskCreateInput{Title: title, Status: "draft"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func strPtr(s string) *string { return &s }

func TestTaskService_CreateDefaults(t *testing.T) {
	e := newEnv(t)
	assignee := e.bob.SubjectID

	task, err := e.tasks.Create(context.Background(), e.alice, service.TaskCreateInput{
		Title:      "  Ship it ",
		Status:     "draft",
		AssigneeID: &assignee,
		LabelIDs:   []int64{e.bug.ID, e.bug.ID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Title != "Ship it" || task.CreatorID != e.alice.SubjectID || task.StatusSlug != "draft" {
		t.Fatalf("unexpected task %+v", task)
	}
	if task.Index == 0 {
		t.Fatal("index was not generated")
	}
	if len(task.LabelIDs) != 1 || task.LabelIDs[0] != e.bug.ID {
		t.Fatalf("labels = %v, want [%d]", task.LabelIDs, e.bug.ID)
	}
	if got := e.recorded.types(); len(got) != 1 || got[0] != events.EventTaskCreated {
		t.Fatalf("events = %v, want [task.created]", got)
	}
}

func TestTaskService_CreateAggregatesIssues(t *testing.T) {
	e := newEnv(t)
	missing := int64(999)

	_, err := e.tasks.Create(context.Background(), e.alice, service.TaskCreateInput{
		Title:      " ",
		Status:     "nope",
		AssigneeID: &missing,
		LabelIDs:   []int64{e.bug.ID, 555},
	})
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != apperrors.CodeValidation {
		t.Fatalf("got %v, want VALIDATION_FAILED", err)
	}
	issues, _ := domainErr.Details["issues"].([]apperrors.FieldIssue)
	fields := map[string]bool{}
	for _, issue := range issues {
		fields[issue.Field] = true
	}
	for _, want := range []string{"title", "status", "assigneeId", "taskLabelIds"} {
		if !fields[want] {
			t.Errorf("no issue for %s in %v", want, issues)
		}
	}
}

func TestTaskService_Ownership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.alice, "Alice's task")

	_, err := e.tasks.Update(ctx, e.bob, task.ID, service.TaskUpdateInput{Title: strPtr("hijacked")})
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("bob update: got %v, want FORBIDDEN", err)
	}
	if err := e.tasks.Delete(ctx, e.bob, task.ID); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("bob delete: got %v, want FORBIDDEN", err)
	}
	if _, err := e.tasks.Get(ctx, e.bob, task.ID); err != nil {
		t.Fatalf("bob read: %v", err)
	}

	updated, err := e.tasks.Update(ctx, e.alice, task.ID, service.TaskUpdateInput{Status: strPtr("published")})
	if err != nil {
		t.Fatalf("alice update: %v", err)
	}
	if updated.StatusSlug != "published" || updated.Version != 2 {
		t.Fatalf("updated = %+v", updated)
	}

	updated, err = e.tasks.Update(ctx, e.admin, task.ID, service.TaskUpdateInput{Title: strPtr("by admin")})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Title != "by admin" || updated.CreatorID != e.alice.SubjectID {
		t.Fatalf("updated = %+v", updated)
	}

	if err := e.tasks.Delete(ctx, e.admin, task.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := e.tasks.Get(ctx, e.alice, task.ID); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("after delete: got %v, want NOT_FOUND", err)
	}

	want := []events.EventType{events.EventTaskCreated, events.EventTaskUpdated, events.EventTaskUpdated, events.EventTaskDeleted}
	got := e.recorded.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestTaskService_UpdateAssignee(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	task := e.createTask(t, e.alice, "Assign me")
	bob := e.bob.SubjectID

	updated, err := e.tasks.Update(ctx, e.alice, task.ID, service.TaskUpdateInput{AssigneeSet: true, AssigneeID: &bob})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.AssigneeID == nil || *updated.AssigneeID != bob {
		t.Fatalf("assignee = %v, want %d", updated.AssigneeID, bob)
	}

	updated, err = e.tasks.Update(ctx, e.alice, task.ID, service.TaskUpdateInput{Title: strPtr("Still assigned")})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.AssigneeID == nil {
		t.Fatal("omitting the assignee cleared it")
	}

	updated, err = e.tasks.Update(ctx, e.alice, task.ID, service.TaskUpdateInput{AssigneeSet: true})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if updated.AssigneeID != nil {
		t.Fatalf("assignee = %v, want nil", *updated.AssigneeID)
	}
}

func TestTaskService_ConcurrentUpdatesOneConflict(t *testing.T) {
	e := newEnv(t)
	task := e.createTask(t, e.alice, "Contended")
	version := task.Version

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := "writer " + string(rune('A'+i))
			_, errs[i] = e.tasks.Update(context.Background(), e.alice, task.ID, service.TaskUpdateInput{
				Title:   &title,
				Version: &version,
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.IsCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("ok=%d conflicts=%d, want 1 and 1", ok, conflicts)
	}
}

func TestUserService_Rules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.users.Create(ctx, e.alice, service.UserCreateInput{Email: "x@example.com", Password: "pw1"}); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("user creating user: got %v, want FORBIDDEN", err)
	}
	if _, err := e.users.Create(ctx, e.admin, service.UserCreateInput{Email: "ALICE@example.com", Password: "pw1"}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("duplicate email: got %v, want VALIDATION_FAILED", err)
	}

	if _, err := e.users.Update(ctx, e.alice, e.bob.SubjectID, service.UserUpdateInput{FirstName: strPtr("Eve")}); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("editing someone else: got %v, want FORBIDDEN", err)
	}
	admin := domain.RoleAdmin
	if _, err := e.users.Update(ctx, e.alice, e.alice.SubjectID, service.UserUpdateInput{Role: &admin}); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("self promotion: got %v, want FORBIDDEN", err)
	}
	updated, err := e.users.Update(ctx, e.alice, e.alice.SubjectID, service.UserUpdateInput{FirstName: strPtr("Alicia")})
	if err != nil {
		t.Fatalf("self edit: %v", err)
	}
	if updated.FirstName != "Alicia" || updated.Version != 2 {
		t.Fatalf("updated = %+v", updated)
	}

	e.createTask(t, e.bob, "keeps bob around")
	if err := e.users.Delete(ctx, e.admin, e.bob.SubjectID); !apperrors.IsCode(err, apperrors.CodeResourceInUse) {
		t.Fatalf("deleting task creator: got %v, want RESOURCE_IN_USE", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	result, err := e.auth.Login(ctx, "  Alice@Example.com ", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	principal, err := e.auth.Tokens().Verify(result.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if principal != e.alice {
		t.Fatalf("principal = %+v, want %+v", principal, e.alice)
	}

	for _, creds := range [][2]string{{"alice@example.com", "wrong"}, {"nobody@example.com", "secret"}, {"", ""}} {
		if _, err := e.auth.Login(ctx, creds[0], creds[1]); !apperrors.IsCode(err, apperrors.CodeUnauthenticated) {
			t.Errorf("Login(%q): got %v, want UNAUTHENTICATED", creds[0], err)
		}
	}
}

func TestReferenceServices_AdminOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.labels.Create(ctx, e.alice, "feature"); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("user creating label: got %v, want FORBIDDEN", err)
	}
	if _, err := e.labels.Create(ctx, e.admin, "ab"); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("short label: got %v, want VALIDATION_FAILED", err)
	}
	if _, err := e.statuses.Create(ctx, e.admin, service.StatusInput{Name: strPtr("Bad"), Slug: strPtr("Bad Slug")}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("bad slug: got %v, want VALIDATION_FAILED", err)
	}
	labels, err := e.labels.List(ctx, e.alice)
	if err != nil || len(labels) != 1 {
		t.Fatalf("List = %v, %v", labels, err)
	}

	task, err := e.tasks.Create(ctx, e.alice, service.TaskCreateInput{Title: "t", Status: "draft", LabelIDs: []int64{e.bug.ID}})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := e.labels.Delete(ctx, e.admin, e.bug.ID); !apperrors.IsCode(err, apperrors.CodeResourceInUse) {
		t.Fatalf("delete linked label: got %v, want RESOURCE_IN_USE", err)
	}
	if err := e.tasks.Delete(ctx, e.alice, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := e.labels.Delete(ctx, e.admin, e.bug.ID); err != nil {
		t.Fatalf("delete free label: %v", err)
	}
}

func newTaskServiceOn(t *testing.T, store *persistence.SQLite, timeout time.Duration) *service.TaskService {
	t.Helper()
	db := store.DB()
	return service.NewTaskService(service.TaskDependencies{
		TaskRepo:   repository.NewTaskRepository(db, timeout),
		StatusRepo: repository.NewStatusRepository(db, timeout),
		UserRepo:   repository.NewUserRepository(db, timeout),
		LabelRepo:  repository.NewLabelRepository(db, timeout),
		Dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		Index:      apperrors.NewIndexGenerator(1),
		Logger:     zap.NewNop(),
	})
}

func TestTaskService_StoreFailuresAre503(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	store, err := persistence.NewSQLite(ctx, config.SQLiteConfig{Path: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx, logger); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	reader := auth.Principal{SubjectID: 1, Role: domain.RoleUser}

	_, err = newTaskServiceOn(t, store, time.Nanosecond).List(ctx, reader, filter.Query{Page: filter.Page{Number: 1, Size: 10}, Sort: filter.Sort{Field: filter.DefaultSort}})
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != apperrors.CodeStoreTimeout || domainErr.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("timeout: got %v (%d), want STORE_TIMEOUT 503", err, domainErr.HTTPStatus)
	}

	tasks := newTaskServiceOn(t, store, time.Second)
	store.Close()
	_, err = tasks.Get(ctx, reader, 1)
	domainErr = apperrors.ToDomainError(err)
	if domainErr.Code != apperrors.CodeStoreUnavailable || domainErr.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("closed store: got %v (%d), want STORE_UNAVAILABLE 503", err, domainErr.HTTPStatus)
	}
}
