package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
	"freelancehub/pkg/rbac"
)

func newTaskFixture(t *testing.T) (*TaskService, *fakeTaskStore, *fakeBidStore, *fakePublisher) {
	t.Helper()
	tasks := newFakeTaskStore(&model.Task{
		ID: 1, ClientID: 10, Title: "Build landing page", Status: model.TaskStatusOpen,
	})
	bids := newFakeBidStore(tasks)
	pub := &fakePublisher{}
	return NewTaskService(tasks, bids, pub, zap.NewNop()), tasks, bids, pub
}

func TestCreateTask(t *testing.T) {
	svc, _, _, _ := newTaskFixture(t)
	deadline := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	task, err := svc.CreateTask(context.Background(), Actor{ID: 10, Role: rbac.RoleClient},
		"Logo design", "Need a logo", "design", 300, model.BudgetTypeFixed, deadline)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == 0 || task.Status != model.TaskStatusOpen {
		t.Errorf("task = %+v, want open with ID set", task)
	}

	_, err = svc.CreateTask(context.Background(), Actor{ID: 10, Role: rbac.RoleClient},
		"Logo design", "Need a logo", "design", 300, "retainer", deadline)
	if apperror.KindOf(err) != apperror.KindValidationFailed {
		t.Errorf("bad budget type: kind = %s, want validation_failed", apperror.KindOf(err))
	}
}

func TestCancelTask_PublishesBidderFanout(t *testing.T) {
	svc, tasks, _, pub := newTaskFixture(t)

	if err := svc.CancelTask(context.Background(), Actor{ID: 10, Role: rbac.RoleClient}, 1); err != nil {
		t.Fatalf("CancelTask: %v", err)
	}
	if got := tasks.tasks[1].Status; got != model.TaskStatusCancelled {
		t.Errorf("task status = %s, want cancelled", got)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(pub.events))
	}
	payload := pub.events[0].payload.(mqcontracts.TaskCancelledPayload)
	if len(payload.BidderIDs) != 2 {
		t.Errorf("BidderIDs = %v, want the pending bidders", payload.BidderIDs)
	}
}

func TestCancelTask_Preconditions(t *testing.T) {
	svc, tasks, _, pub := newTaskFixture(t)
	ctx := context.Background()

	if err := svc.CancelTask(ctx, Actor{ID: 10, Role: rbac.RoleClient}, 99); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("unknown task: kind = %s", apperror.KindOf(err))
	}
	if err := svc.CancelTask(ctx, Actor{ID: 11, Role: rbac.RoleClient}, 1); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("non-owner: kind = %s", apperror.KindOf(err))
	}

	tasks.tasks[1].Status = model.TaskStatusAssigned
	if err := svc.CancelTask(ctx, Actor{ID: 10, Role: rbac.RoleClient}, 1); apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("assigned task: kind = %s", apperror.KindOf(err))
	}
	if len(pub.events) != 0 {
		t.Error("no event should be published on failure")
	}
}

func TestIsAuthorizedForTask(t *testing.T) {
	svc, _, bids, _ := newTaskFixture(t)
	ctx := context.Background()

	bids.bids[601] = &model.Bid{ID: 601, TaskID: 1, FreelancerID: 20, Status: model.BidStatusAccepted}
	bids.bids[602] = &model.Bid{ID: 602, TaskID: 1, FreelancerID: 21, Status: model.BidStatusRejected}

	tests := []struct {
		name   string
		userID int
		taskID int
		want   bool
	}{
		{"client", 10, 1, true},
		{"accepted freelancer", 20, 1, true},
		{"rejected freelancer", 21, 1, false},
		{"stranger", 30, 1, false},
		{"unknown task", 10, 99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsAuthorizedForTask(ctx, tt.userID, tt.taskID)
			if err != nil {
				t.Fatalf("IsAuthorizedForTask: %v", err)
			}
			if got != tt.want {
				t.Errorf("authorized = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAuthorizedForTask_RevokedAfterStatusChange(t *testing.T) {
	svc, _, bids, _ := newTaskFixture(t)
	ctx := context.Background()

	bids.bids[601] = &model.Bid{ID: 601, TaskID: 1, FreelancerID: 20, Status: model.BidStatusAccepted}
	if ok, _ := svc.IsAuthorizedForTask(ctx, 20, 1); !ok {
		t.Fatal("accepted freelancer should be authorized")
	}

	bids.bids[601].Status = model.BidStatusRejected
	if ok, _ := svc.IsAuthorizedForTask(ctx, 20, 1); ok {
		t.Error("authorization must be re-derived from current bid state")
	}
}
