package service

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"freelancehub/internal/model"
	"freelancehub/pkg/apperror"
	"freelancehub/pkg/outbox"
)

// In-memory fakes mirroring the repository layer's transition rules.

type fakeTaskStore struct {
	tasks     map[int]*model.Task
	nextID    int
	cancelled []int
}

func newFakeTaskStore(tasks ...*model.Task) *fakeTaskStore {
	s := &fakeTaskStore{tasks: make(map[int]*model.Task), nextID: 100}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *fakeTaskStore) Insert(_ context.Context, t *model.Task) (int, error) {
	s.nextID++
	t.ID = s.nextID
	s.tasks[t.ID] = t
	return t.ID, nil
}

func (s *fakeTaskStore) FindByID(_ context.Context, id int) (*model.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *fakeTaskStore) ListOpen(_ context.Context) ([]model.Task, error) {
	var out []model.Task
	for _, t := range s.tasks {
		if t.Status == model.TaskStatusOpen {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeTaskStore) Cancel(_ context.Context, taskID int) ([]int, error) {
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if t.Status != model.TaskStatusOpen {
		return nil, apperror.InvalidState("task is %s, only open tasks can be cancelled", t.Status)
	}
	t.Status = model.TaskStatusCancelled
	s.cancelled = append(s.cancelled, taskID)
	return []int{201, 202}, nil
}

type fakeBidStore struct {
	bids      map[int]*model.Bid
	tasks     *fakeTaskStore
	nextID    int
	acceptErr error

	acceptedEvents []outbox.Pending
}

func newFakeBidStore(tasks *fakeTaskStore, bids ...*model.Bid) *fakeBidStore {
	s := &fakeBidStore{bids: make(map[int]*model.Bid), tasks: tasks, nextID: 500}
	for _, b := range bids {
		s.bids[b.ID] = b
	}
	return s
}

func (s *fakeBidStore) Insert(_ context.Context, b *model.Bid) (int, error) {
	for _, existing := range s.bids {
		if existing.TaskID == b.TaskID && existing.FreelancerID == b.FreelancerID {
			return 0, apperror.Conflict("you have already bid on this task")
		}
	}
	s.nextID++
	b.ID = s.nextID
	s.bids[b.ID] = b
	return b.ID, nil
}

func (s *fakeBidStore) FindByID(_ context.Context, id int) (*model.Bid, error) {
	b, ok := s.bids[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (s *fakeBidStore) FindByTaskAndFreelancer(_ context.Context, taskID, freelancerID int) (*model.Bid, error) {
	for _, b := range s.bids {
		if b.TaskID == taskID && b.FreelancerID == freelancerID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeBidStore) FindAcceptedByTask(_ context.Context, taskID int) (*model.Bid, error) {
	for _, b := range s.bids {
		if b.TaskID == taskID && b.Status == model.BidStatusAccepted {
			copied := *b
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeBidStore) ListByTask(_ context.Context, taskID int) ([]model.Bid, error) {
	var out []model.Bid
	for _, b := range s.bids {
		if b.TaskID == taskID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Accept applies the same transitions the real transaction does: target
// bid accepted, siblings rejected, task assigned.
func (s *fakeBidStore) Accept(_ context.Context, taskID, bidID int, events []outbox.Pending) error {
	if s.acceptErr != nil {
		return s.acceptErr
	}

	task, ok := s.tasks.tasks[taskID]
	if !ok {
		return apperror.NotFound("task %d not found", taskID)
	}
	if task.Status != model.TaskStatusOpen {
		return apperror.InvalidState("task is %s, bids can only be accepted while it is open", task.Status)
	}

	target, ok := s.bids[bidID]
	if !ok || target.Status != model.BidStatusPending {
		return apperror.InvalidState("bid %d is no longer pending", bidID)
	}

	target.Status = model.BidStatusAccepted
	for _, b := range s.bids {
		if b.TaskID == taskID && b.ID != bidID && b.Status == model.BidStatusPending {
			b.Status = model.BidStatusRejected
		}
	}
	task.Status = model.TaskStatusAssigned
	s.acceptedEvents = append(s.acceptedEvents, events...)
	return nil
}

type fakeMilestoneStore struct {
	milestones map[int]*model.Milestone
	tasks      *fakeTaskStore
	nextID     int
}

func newFakeMilestoneStore(tasks *fakeTaskStore, milestones ...*model.Milestone) *fakeMilestoneStore {
	s := &fakeMilestoneStore{milestones: make(map[int]*model.Milestone), tasks: tasks, nextID: 900}
	for _, m := range milestones {
		s.milestones[m.ID] = m
	}
	return s
}

func (s *fakeMilestoneStore) Insert(_ context.Context, m *model.Milestone) (int, error) {
	s.nextID++
	m.ID = s.nextID
	s.milestones[m.ID] = m
	return m.ID, nil
}

func (s *fakeMilestoneStore) FindByID(_ context.Context, id int) (*model.Milestone, error) {
	m, ok := s.milestones[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *m
	return &copied, nil
}

func (s *fakeMilestoneStore) FindByTaskID(_ context.Context, taskID int) ([]model.Milestone, error) {
	var out []model.Milestone
	for _, m := range s.milestones {
		if m.TaskID == taskID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeMilestoneStore) MarkCompleted(_ context.Context, id int) (*model.Milestone, error) {
	m, ok := s.milestones[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if m.Status != model.MilestoneStatusPending {
		return nil, apperror.InvalidState("milestone is %s, completion can only be requested while it is pending", m.Status)
	}
	m.Status = model.MilestoneStatusCompleted
	copied := *m
	return &copied, nil
}

// MarkPaid applies the payment rollup: the task completes when its last
// unpaid milestone is paid, and a first payment moves assigned to in_progress.
func (s *fakeMilestoneStore) MarkPaid(_ context.Context, id int) (*model.Milestone, string, error) {
	m, ok := s.milestones[id]
	if !ok {
		return nil, "", pgx.ErrNoRows
	}
	if m.Status != model.MilestoneStatusCompleted {
		return nil, "", apperror.InvalidState("milestone is %s, payment can only be released once it is completed", m.Status)
	}
	m.Status = model.MilestoneStatusPaid

	task := s.tasks.tasks[m.TaskID]
	unpaid := 0
	for _, sib := range s.milestones {
		if sib.TaskID == m.TaskID && sib.Status != model.MilestoneStatusPaid {
			unpaid++
		}
	}
	if unpaid == 0 {
		task.Status = model.TaskStatusCompleted
	} else if task.Status == model.TaskStatusAssigned {
		task.Status = model.TaskStatusInProgress
	}

	copied := *m
	return &copied, task.Status, nil
}

type fakeNotificationStore struct {
	notifications []*model.Notification
	insertErr     error
	nextID        int
}

func (s *fakeNotificationStore) Insert(_ context.Context, n *model.Notification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.nextID++
	n.ID = s.nextID
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *fakeNotificationStore) ListByUser(_ context.Context, userID int) ([]model.Notification, error) {
	var out []model.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, *s.notifications[i])
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id, userID int) error {
	for _, n := range s.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return apperror.NotFound("notification %d not found", id)
}

type publishedEvent struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(routingKey string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{routingKey: routingKey, payload: payload})
	return nil
}

type fakePresence struct {
	online map[int]bool
	err    error
}

func (p *fakePresence) IsOnline(_ context.Context, userID int) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	return p.online[userID], nil
}

type pushedEvent struct {
	userID  int
	event   string
	payload any
}

type fakeRealtime struct {
	pushes []pushedEvent
	err    error
}

func (r *fakeRealtime) PushToUser(userID int, event string, payload any) error {
	if r.err != nil {
		return r.err
	}
	r.pushes = append(r.pushes, pushedEvent{userID: userID, event: event, payload: payload})
	return nil
}
