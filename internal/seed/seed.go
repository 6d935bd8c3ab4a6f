// Package seed creates the default admin account, task statuses and
// labels on startup. Running it again changes nothing.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/service"
)

//go:embed defaults.yaml
var defaultDocument []byte

// Document describes the data to seed.
type Document struct {
	Admin    AdminAccount `yaml:"admin"`
	Statuses []Status     `yaml:"statuses"`
	Labels   []string     `yaml:"labels"`
}

// AdminAccount is the bootstrap administrator.
type AdminAccount struct {
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
}

// Status is a seeded workflow state.
type Status struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// Load parses the document at path, or the embedded defaults when path is
// empty.
func Load(path string) (*Document, error) {
	raw := defaultDocument
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		raw = data
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed document: %w", err)
	}
	return &doc, nil
}

// Seeder applies a Document through the services.
type Seeder struct {
	users    *service.UserService
	statuses *service.StatusService
	labels   *service.LabelService
	logger   *zap.Logger
}

// NewSeeder builds a seeder.
func NewSeeder(users *service.UserService, statuses *service.StatusService, labels *service.LabelService, logger *zap.Logger) *Seeder {
	return &Seeder{users: users, statuses: statuses, labels: labels, logger: logger}
}

// Run creates whatever in doc is missing. adminPassword, when set,
// replaces the document's password for a newly created admin.
func (s *Seeder) Run(ctx context.Context, doc *Document, adminPassword string) error {
	if doc.Admin.Email != "" {
		password := doc.Admin.Password
		if adminPassword != "" {
			password = adminPassword
		}
		user, created, err := s.users.Seed(ctx, service.UserCreateInput{
			FirstName: doc.Admin.FirstName,
			LastName:  doc.Admin.LastName,
			Email:     doc.Admin.Email,
			Password:  password,
			Role:      domain.RoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			s.logger.Info("seeded admin user", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
		}
	}

	for _, status := range doc.Statuses {
		_, created, err := s.statuses.Seed(ctx, status.Name, status.Slug)
		if err != nil {
			return fmt.Errorf("seed status %s: %w", status.Slug, err)
		}
		if created {
			s.logger.Info("seeded task status", zap.String("slug", status.Slug))
		}
	}

	for _, name := range doc.Labels {
		_, created, err := s.labels.Seed(ctx, name)
		if err != nil {
			return fmt.Errorf("seed label %s: %w", name, err)
		}
		if created {
			s.logger.Info("seeded label", zap.String("name", name))
		}
	}
	return nil
}
