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

type milestoneFixture struct {
	svc        *MilestoneService
	tasks      *fakeTaskStore
	bids       *fakeBidStore
	milestones *fakeMilestoneStore
	pub        *fakePublisher
}

// newMilestoneFixture sets up task 1 (client 10) assigned to freelancer 20.
func newMilestoneFixture(t *testing.T) *milestoneFixture {
	t.Helper()
	tasks := newFakeTaskStore(&model.Task{
		ID: 1, ClientID: 10, Title: "Build landing page", Status: model.TaskStatusAssigned,
	})
	bids := newFakeBidStore(tasks, &model.Bid{
		ID: 501, TaskID: 1, FreelancerID: 20, Status: model.BidStatusAccepted,
	})
	milestones := newFakeMilestoneStore(tasks)
	pub := &fakePublisher{}
	return &milestoneFixture{
		svc:        NewMilestoneService(tasks, bids, milestones, pub, zap.NewNop()),
		tasks:      tasks,
		bids:       bids,
		milestones: milestones,
		pub:        pub,
	}
}

func (f *milestoneFixture) addMilestone(status string) *model.Milestone {
	f.milestones.nextID++
	m := &model.Milestone{
		ID: f.milestones.nextID, TaskID: 1, Title: "Design", Amount: 200, Status: status,
	}
	f.milestones.milestones[m.ID] = m
	return m
}

var due = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func TestCreateMilestone_NotifiesAssignedFreelancer(t *testing.T) {
	f := newMilestoneFixture(t)
	owner := Actor{ID: 10, Role: rbac.RoleClient}

	m, err := f.svc.CreateMilestone(context.Background(), owner, 1, "Design", "wireframes", 200, due)
	if err != nil {
		t.Fatalf("CreateMilestone: %v", err)
	}
	if m.Status != model.MilestoneStatusPending {
		t.Errorf("Status = %s, want pending", m.Status)
	}

	if len(f.pub.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(f.pub.events))
	}
	payload := f.pub.events[0].payload.(mqcontracts.MilestoneCreatedPayload)
	if payload.FreelancerID != 20 {
		t.Errorf("FreelancerID = %d, want 20", payload.FreelancerID)
	}
}

func TestCreateMilestone_OpenTaskSkipsNotification(t *testing.T) {
	f := newMilestoneFixture(t)
	f.tasks.tasks[1].Status = model.TaskStatusOpen
	f.bids.bids[501].Status = model.BidStatusPending

	m, err := f.svc.CreateMilestone(context.Background(), Actor{ID: 10, Role: rbac.RoleClient}, 1, "Design", "", 200, due)
	if err != nil {
		t.Fatalf("CreateMilestone on open task: %v", err)
	}
	if m.ID == 0 {
		t.Error("milestone should be persisted")
	}
	if len(f.pub.events) != 0 {
		t.Error("no notification without an accepted bid")
	}
}

func TestCreateMilestone_Preconditions(t *testing.T) {
	f := newMilestoneFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateMilestone(ctx, Actor{ID: 10, Role: rbac.RoleClient}, 99, "x", "", 1, due); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("unknown task: kind = %s", apperror.KindOf(err))
	}
	if _, err := f.svc.CreateMilestone(ctx, Actor{ID: 11, Role: rbac.RoleClient}, 1, "x", "", 1, due); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("non-owner: kind = %s", apperror.KindOf(err))
	}

	f.tasks.tasks[1].Status = model.TaskStatusCompleted
	if _, err := f.svc.CreateMilestone(ctx, Actor{ID: 10, Role: rbac.RoleClient}, 1, "x", "", 1, due); apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("completed task: kind = %s", apperror.KindOf(err))
	}
}

func TestRequestCompletion_Success(t *testing.T) {
	f := newMilestoneFixture(t)
	m := f.addMilestone(model.MilestoneStatusPending)

	updated, err := f.svc.RequestCompletion(context.Background(), Actor{ID: 20, Role: rbac.RoleFreelancer}, m.ID)
	if err != nil {
		t.Fatalf("RequestCompletion: %v", err)
	}
	if updated.Status != model.MilestoneStatusCompleted {
		t.Errorf("Status = %s, want completed", updated.Status)
	}

	if len(f.pub.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(f.pub.events))
	}
	payload := f.pub.events[0].payload.(mqcontracts.MilestoneCompletedPayload)
	if payload.ClientID != 10 {
		t.Errorf("ClientID = %d, want 10", payload.ClientID)
	}
}

func TestRequestCompletion_Preconditions(t *testing.T) {
	f := newMilestoneFixture(t)
	ctx := context.Background()
	m := f.addMilestone(model.MilestoneStatusPending)

	if _, err := f.svc.RequestCompletion(ctx, Actor{ID: 20, Role: rbac.RoleFreelancer}, 999); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("unknown milestone: kind = %s", apperror.KindOf(err))
	}
	if _, err := f.svc.RequestCompletion(ctx, Actor{ID: 21, Role: rbac.RoleFreelancer}, m.ID); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("other freelancer: kind = %s", apperror.KindOf(err))
	}

	done := f.addMilestone(model.MilestoneStatusCompleted)
	if _, err := f.svc.RequestCompletion(ctx, Actor{ID: 20, Role: rbac.RoleFreelancer}, done.ID); apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("already completed: kind = %s", apperror.KindOf(err))
	}
}

func TestReleasePayment_PartialKeepsTaskInProgress(t *testing.T) {
	f := newMilestoneFixture(t)
	first := f.addMilestone(model.MilestoneStatusCompleted)
	f.addMilestone(model.MilestoneStatusPending)

	m, err := f.svc.ReleasePayment(context.Background(), Actor{ID: 10, Role: rbac.RoleClient}, first.ID)
	if err != nil {
		t.Fatalf("ReleasePayment: %v", err)
	}
	if m.Status != model.MilestoneStatusPaid {
		t.Errorf("Status = %s, want paid", m.Status)
	}
	if got := f.tasks.tasks[1].Status; got != model.TaskStatusInProgress {
		t.Errorf("task status = %s, want in_progress", got)
	}

	payload := f.pub.events[0].payload.(mqcontracts.MilestonePaidPayload)
	if payload.TaskCompleted {
		t.Error("TaskCompleted should be false with unpaid milestones left")
	}
	if payload.FreelancerID != 20 {
		t.Errorf("FreelancerID = %d, want 20", payload.FreelancerID)
	}
}

func TestReleasePayment_LastMilestoneCompletesTask(t *testing.T) {
	f := newMilestoneFixture(t)
	only := f.addMilestone(model.MilestoneStatusCompleted)

	if _, err := f.svc.ReleasePayment(context.Background(), Actor{ID: 10, Role: rbac.RoleClient}, only.ID); err != nil {
		t.Fatalf("ReleasePayment: %v", err)
	}
	if got := f.tasks.tasks[1].Status; got != model.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", got)
	}

	payload := f.pub.events[0].payload.(mqcontracts.MilestonePaidPayload)
	if !payload.TaskCompleted {
		t.Error("TaskCompleted should be true when the last milestone is paid")
	}
}

func TestReleasePayment_Preconditions(t *testing.T) {
	f := newMilestoneFixture(t)
	ctx := context.Background()
	pending := f.addMilestone(model.MilestoneStatusPending)

	if _, err := f.svc.ReleasePayment(ctx, Actor{ID: 10, Role: rbac.RoleClient}, 999); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("unknown milestone: kind = %s", apperror.KindOf(err))
	}
	if _, err := f.svc.ReleasePayment(ctx, Actor{ID: 11, Role: rbac.RoleClient}, pending.ID); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("non-owner: kind = %s", apperror.KindOf(err))
	}
	if _, err := f.svc.ReleasePayment(ctx, Actor{ID: 10, Role: rbac.RoleClient}, pending.ID); apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("pending milestone: kind = %s", apperror.KindOf(err))
	}

	paid := f.addMilestone(model.MilestoneStatusPaid)
	if _, err := f.svc.ReleasePayment(ctx, Actor{ID: 10, Role: rbac.RoleClient}, paid.ID); apperror.KindOf(err) != apperror.KindInvalidState {
		t.Errorf("double payment: kind = %s", apperror.KindOf(err))
	}
}
