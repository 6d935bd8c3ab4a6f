package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/persistence"
	"github.com/taskforge/task-manager/internal/repository"
	"github.com/taskforge/task-manager/internal/seed"
	"github.com/taskforge/task-manager/internal/service"
)

type harness struct {
	seeder   *seed.Seeder
	auth     *service.AuthService
	statuses *service.StatusService
	labels   *service.LabelService
	users    *service.UserService
}

func newHarness(t *testing.T) *harness {
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
	clk := clock.Real()
	h := &harness{
		users:    service.NewUserService(userRepo, bcrypt.MinCost, clk, logger),
		statuses: service.NewStatusService(repository.NewStatusRepository(db, time.Second), clk),
		labels:   service.NewLabelService(repository.NewLabelRepository(db, time.Second), clk),
		auth:     service.NewAuthService(userRepo, auth.NewTokenService("seed-secret", time.Hour, clk), bcrypt.MinCost, logger),
	}
	h.seeder = seed.NewSeeder(h.users, h.statuses, h.labels, logger)
	return h
}

var admin = auth.Principal{SubjectID: 1, Role: domain.RoleAdmin}

func TestLoad_Defaults(t *testing.T) {
	doc, err := seed.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Admin.Email != "hexlet@example.com" {
		t.Fatalf("admin email = %q", doc.Admin.Email)
	}
	var slugs []string
	for _, status := range doc.Statuses {
		slugs = append(slugs, status.Slug)
	}
	want := []string{"draft", "to_review", "to_be_fixed", "to_publish", "published"}
	if len(slugs) != len(want) {
		t.Fatalf("slugs = %v, want %v", slugs, want)
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Fatalf("slugs = %v, want %v", slugs, want)
		}
	}
	if len(doc.Labels) != 2 {
		t.Fatalf("labels = %v", doc.Labels)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := seed.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("statuses: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := seed.Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSeeder_RunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	doc, err := seed.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := h.seeder.Run(ctx, doc, ""); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	statuses, err := h.statuses.List(ctx, admin)
	if err != nil || len(statuses) != 5 {
		t.Fatalf("statuses = %d, %v", len(statuses), err)
	}
	labels, err := h.labels.List(ctx, admin)
	if err != nil || len(labels) != 2 {
		t.Fatalf("labels = %d, %v", len(labels), err)
	}
	users, err := h.users.List(ctx, admin)
	if err != nil || len(users) != 1 || users[0].Role != domain.RoleAdmin {
		t.Fatalf("users = %+v, %v", users, err)
	}
	if _, err := h.auth.Login(ctx, "hexlet@example.com", "qwerty"); err != nil {
		t.Fatalf("login with seeded password: %v", err)
	}
}

func TestSeeder_AdminPasswordOverride(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	doc := "admin:\n  email: root@example.com\n  password: from-file\nlabels:\n  - chore\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := seed.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := h.seeder.Run(ctx, loaded, "from-env"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := h.auth.Login(ctx, "root@example.com", "from-file"); err == nil {
		t.Fatal("file password should have been replaced")
	}
	if _, err := h.auth.Login(ctx, "root@example.com", "from-env"); err != nil {
		t.Fatalf("login with override: %v", err)
	}
}
