package service

import (
	"testing"

	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
	"freelancehub/pkg/rbac"
)

func TestCanSubmitBid(t *testing.T) {
	task := &model.Task{ID: 1, ClientID: 10, Status: model.TaskStatusOpen}

	tests := []struct {
		name     string
		actor    Actor
		task     *model.Task
		allowed  bool
		wantKind apperror.Kind
	}{
		{
			name:    "freelancer on open task",
			actor:   Actor{ID: 20, Role: rbac.RoleFreelancer},
			task:    task,
			allowed: true,
		},
		{
			name:     "client role rejected",
			actor:    Actor{ID: 20, Role: rbac.RoleClient},
			task:     task,
			wantKind: apperror.KindForbidden,
		},
		{
			name:     "assigned task rejected",
			actor:    Actor{ID: 20, Role: rbac.RoleFreelancer},
			task:     &model.Task{ID: 1, ClientID: 10, Status: model.TaskStatusAssigned},
			wantKind: apperror.KindInvalidState,
		},
		{
			name:     "own task rejected",
			actor:    Actor{ID: 10, Role: rbac.RoleFreelancer},
			task:     task,
			wantKind: apperror.KindInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanSubmitBid(tt.actor, tt.task)
			if d.Allowed != tt.allowed {
				t.Fatalf("Allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if !tt.allowed && d.Err.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", d.Err.Kind, tt.wantKind)
			}
		})
	}
}

func TestCanAcceptBid(t *testing.T) {
	owner := Actor{ID: 10, Role: rbac.RoleClient}
	task := &model.Task{ID: 1, ClientID: 10, Status: model.TaskStatusOpen}

	if d := CanAcceptBid(owner, task); !d.Allowed {
		t.Fatalf("owner should be allowed, got %v", d.Err)
	}

	other := Actor{ID: 11, Role: rbac.RoleClient}
	if d := CanAcceptBid(other, task); d.Allowed || d.Err.Kind != apperror.KindForbidden {
		t.Errorf("non-owner should be forbidden, got %+v", d)
	}

	assigned := &model.Task{ID: 1, ClientID: 10, Status: model.TaskStatusAssigned}
	if d := CanAcceptBid(owner, assigned); d.Allowed || d.Err.Kind != apperror.KindInvalidState {
		t.Errorf("assigned task should be invalid_state, got %+v", d)
	}

	if d := CanAcceptBid(Actor{ID: 10, Role: rbac.RoleFreelancer}, task); d.Allowed || d.Err.Kind != apperror.KindForbidden {
		t.Errorf("freelancer role should be forbidden, got %+v", d)
	}
}

func TestCanCreateMilestone(t *testing.T) {
	owner := Actor{ID: 10, Role: rbac.RoleClient}

	for _, status := range []string{model.TaskStatusOpen, model.TaskStatusAssigned, model.TaskStatusInProgress} {
		task := &model.Task{ID: 1, ClientID: 10, Status: status}
		if d := CanCreateMilestone(owner, task); !d.Allowed {
			t.Errorf("status %s should allow milestone creation, got %v", status, d.Err)
		}
	}

	for _, status := range []string{model.TaskStatusCompleted, model.TaskStatusCancelled} {
		task := &model.Task{ID: 1, ClientID: 10, Status: status}
		if d := CanCreateMilestone(owner, task); d.Allowed || d.Err.Kind != apperror.KindInvalidState {
			t.Errorf("status %s should be invalid_state, got %+v", status, d)
		}
	}

	task := &model.Task{ID: 1, ClientID: 10, Status: model.TaskStatusOpen}
	if d := CanCreateMilestone(Actor{ID: 11, Role: rbac.RoleClient}, task); d.Allowed {
		t.Error("non-owner should not create milestones")
	}
}

func TestCanRequestCompletion(t *testing.T) {
	if d := CanRequestCompletion(Actor{ID: 5, Role: rbac.RoleFreelancer}, 5); !d.Allowed {
		t.Fatalf("assigned freelancer should be allowed, got %v", d.Err)
	}
	if d := CanRequestCompletion(Actor{ID: 6, Role: rbac.RoleFreelancer}, 5); d.Allowed || d.Err.Kind != apperror.KindForbidden {
		t.Errorf("other freelancer should be forbidden, got %+v", d)
	}
}

func TestCanCancelTask(t *testing.T) {
	task := &model.Task{ID: 1, ClientID: 10, Status: model.TaskStatusOpen}

	if d := CanCancelTask(Actor{ID: 10, Role: rbac.RoleClient}, task); !d.Allowed {
		t.Fatalf("owner should cancel, got %v", d.Err)
	}
	if d := CanCancelTask(Actor{ID: 11, Role: rbac.RoleClient}, task); d.Allowed {
		t.Error("non-owner should not cancel")
	}
	if d := CanCancelTask(Actor{ID: 1, Role: rbac.RoleAdmin}, &model.Task{ID: 1, ClientID: 1, Status: model.TaskStatusOpen}); !d.Allowed {
		t.Error("admin owner should cancel")
	}
}
