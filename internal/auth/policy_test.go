package auth

import (
	"testing"

	"github.com/taskforge/task-manager/internal/domain"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

var allActions = []Action{
	ActionTaskRead, ActionTaskCreate, ActionTaskUpdate, ActionTaskDelete,
	ActionUserRead, ActionUserCreate, ActionUserUpdate, ActionUserDelete,
	ActionStatusRead, ActionStatusManage, ActionLabelRead, ActionLabelManage,
	ActionSystemMetrics,
}

func TestCanPerform_AdminMayDoEverything(t *testing.T) {
	admin := Principal{SubjectID: 1, Role: domain.RoleAdmin}
	for _, action := range allActions {
		if got := CanPerform(admin, action, &Resource{OwnerID: 99}); !got.Allowed() {
			t.Errorf("admin %s on foreign resource: %v (%v)", action, got.Decision, got.Reason)
		}
	}
}

func TestCanPerform_UserRoleTable(t *testing.T) {
	user := Principal{SubjectID: 5, Role: domain.RoleUser}
	want := map[Action]bool{
		ActionTaskRead:      true,
		ActionTaskCreate:    true,
		ActionTaskUpdate:    true,
		ActionTaskDelete:    true,
		ActionUserRead:      true,
		ActionUserCreate:    false,
		ActionUserUpdate:    true,
		ActionUserDelete:    true,
		ActionStatusRead:    true,
		ActionStatusManage:  false,
		ActionLabelRead:     true,
		ActionLabelManage:   false,
		ActionSystemMetrics: false,
	}
	for _, action := range allActions {
		got := CanPerform(user, action, nil)
		if got.Allowed() != want[action] {
			t.Errorf("user %s: got %v want allowed=%v", action, got.Decision, want[action])
		}
		if !got.Allowed() && got.Reason != ReasonRoleNotPermitted {
			t.Errorf("user %s: reason %v, want %v", action, got.Reason, ReasonRoleNotPermitted)
		}
	}
}

func TestCanPerform_Ownership(t *testing.T) {
	user := Principal{SubjectID: 5, Role: domain.RoleUser}
	own := &Resource{OwnerID: 5}
	foreign := &Resource{OwnerID: 6}

	tests := []struct {
		name     string
		action   Action
		resource *Resource
		allowed  bool
		reason   DenyReason
	}{
		{"update own task", ActionTaskUpdate, own, true, ReasonNone},
		{"update foreign task", ActionTaskUpdate, foreign, false, ReasonNotOwner},
		{"delete foreign task", ActionTaskDelete, foreign, false, ReasonNotOwner},
		{"update foreign user", ActionUserUpdate, foreign, false, ReasonNotOwner},
		{"delete self", ActionUserDelete, own, true, ReasonNone},
		{"read foreign task", ActionTaskRead, foreign, true, ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanPerform(user, tt.action, tt.resource)
			if got.Allowed() != tt.allowed || got.Reason != tt.reason {
				t.Fatalf("got %v/%v, want allowed=%v reason=%v", got.Decision, got.Reason, tt.allowed, tt.reason)
			}
		})
	}
}

func TestCanPerform_UnknownRole(t *testing.T) {
	got := CanPerform(Principal{SubjectID: 1, Role: "guest"}, ActionTaskRead, nil)
	if got.Allowed() || got.Reason != ReasonUnknownRole {
		t.Fatalf("got %v/%v, want deny/unknown role", got.Decision, got.Reason)
	}
}

func TestAuthorize_ForbiddenNotUnauthenticated(t *testing.T) {
	err := Authorize(Principal{SubjectID: 2, Role: domain.RoleUser}, ActionLabelManage, nil)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("got %v, want FORBIDDEN", err)
	}
	if err := Authorize(Principal{SubjectID: 2, Role: domain.RoleUser}, ActionLabelRead, nil); err != nil {
		t.Fatalf("label read: %v", err)
	}
}
