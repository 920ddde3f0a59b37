package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/internal/service"
	"freelancehub/pkg/util"
)

type fakeDeduper struct {
	seen     map[string]bool
	released []string
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func dedupKey(handler string, entityID int) string {
	return fmt.Sprintf("%s:%d", handler, entityID)
}

func (d *fakeDeduper) AcquireOnce(_ context.Context, handler string, entityID int) bool {
	key := dedupKey(handler, entityID)
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func (d *fakeDeduper) Release(_ context.Context, handler string, entityID int) {
	key := dedupKey(handler, entityID)
	delete(d.seen, key)
	d.released = append(d.released, key)
}

type fakeRetryCounter struct {
	counts map[string]int64
	resets []string
}

func newFakeRetryCounter() *fakeRetryCounter {
	return &fakeRetryCounter{counts: map[string]int64{}}
}

func (c *fakeRetryCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	c.counts[key]++
	return c.counts[key], nil
}

func (c *fakeRetryCounter) Reset(_ context.Context, key string) error {
	delete(c.counts, key)
	c.resets = append(c.resets, key)
	return nil
}

type fakeDLQ struct {
	published []string
	err       error
}

func (d *fakeDLQ) PublishToDLQ(routingKey string, _ []byte, _ string) error {
	if d.err != nil {
		return d.err
	}
	d.published = append(d.published, routingKey)
	return nil
}

type recordingStore struct {
	notifications []*model.Notification
	insertErr     error
}

func (s *recordingStore) Insert(_ context.Context, n *model.Notification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	n.ID = len(s.notifications) + 1
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *recordingStore) ListByUser(_ context.Context, userID int) ([]model.Notification, error) {
	return nil, nil
}

func (s *recordingStore) MarkRead(_ context.Context, id, userID int) error {
	return nil
}

type offlinePresence struct{}

func (offlinePresence) IsOnline(context.Context, int) (bool, error) { return false, nil }

type recordingRealtime struct {
	pushes []struct {
		userID int
		event  string
	}
	err error
}

func (r *recordingRealtime) PushToUser(userID int, event string, _ any) error {
	if r.err != nil {
		return r.err
	}
	r.pushes = append(r.pushes, struct {
		userID int
		event  string
	}{userID, event})
	return nil
}

func acceptedPayload(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(mqcontracts.BidAcceptedPayload{
		BidID: 501, TaskID: 1, TaskTitle: "Build landing page",
		ClientID: 10, FreelancerID: 20, Amount: 500,
	})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

type acceptedFixture struct {
	h        *BidAcceptedHandler
	store    *recordingStore
	realtime *recordingRealtime
	deduper  *fakeDeduper
	counter  *fakeRetryCounter
	dlq      *fakeDLQ
}

func newAcceptedFixture() *acceptedFixture {
	store := &recordingStore{}
	realtime := &recordingRealtime{}
	notifications := service.NewNotificationService(store, offlinePresence{}, realtime, zap.NewNop())
	deduper := newFakeDeduper()
	counter := newFakeRetryCounter()
	dlq := &fakeDLQ{}
	policy := NewRetryPolicy(deduper, counter, dlq, zap.NewNop())
	return &acceptedFixture{
		h:        NewBidAcceptedHandler(notifications, realtime, policy, zap.NewNop()),
		store:    store,
		realtime: realtime,
		deduper:  deduper,
		counter:  counter,
		dlq:      dlq,
	}
}

func TestBidAccepted_FanoutOrder(t *testing.T) {
	f := newAcceptedFixture()

	if err := f.h.Handle(context.Background(), acceptedPayload(t)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(f.store.notifications) != 2 {
		t.Fatalf("notifications = %d, want 2", len(f.store.notifications))
	}
	if f.store.notifications[0].UserID != 20 || f.store.notifications[0].Type != "hired" {
		t.Errorf("first notification = %+v, want hired for freelancer", f.store.notifications[0])
	}
	if f.store.notifications[1].UserID != 10 || f.store.notifications[1].Type != "bid_accepted" {
		t.Errorf("second notification = %+v, want bid_accepted for client", f.store.notifications[1])
	}

	if len(f.realtime.pushes) != 2 {
		t.Fatalf("pushes = %d, want chat_activated for both parties", len(f.realtime.pushes))
	}
	for i, want := range []int{20, 10} {
		if f.realtime.pushes[i].userID != want || f.realtime.pushes[i].event != "chat_activated" {
			t.Errorf("push[%d] = %+v, want chat_activated to %d", i, f.realtime.pushes[i], want)
		}
	}
}

func TestBidAccepted_DuplicateIsSkipped(t *testing.T) {
	f := newAcceptedFixture()
	ctx := context.Background()

	if err := f.h.Handle(ctx, acceptedPayload(t)); err != nil {
		t.Fatal(err)
	}
	if err := f.h.Handle(ctx, acceptedPayload(t)); err != nil {
		t.Fatal(err)
	}
	if len(f.store.notifications) != 2 {
		t.Errorf("notifications = %d, duplicate delivery must be skipped", len(f.store.notifications))
	}
}

func TestBidAccepted_MalformedPayloadIsAcked(t *testing.T) {
	f := newAcceptedFixture()

	if err := f.h.Handle(context.Background(), json.RawMessage(`{"bid_id":`)); err != nil {
		t.Fatalf("malformed payload must be acked, got %v", err)
	}
	if len(f.store.notifications) != 0 {
		t.Error("no notifications from a malformed payload")
	}
}

func TestBidAccepted_RetryableFailureRequeues(t *testing.T) {
	f := newAcceptedFixture()
	f.store.insertErr = fmt.Errorf("dial tcp: connection refused")

	if err := f.h.Handle(context.Background(), acceptedPayload(t)); err == nil {
		t.Fatal("retryable failure must propagate so the message is requeued")
	}
	if len(f.deduper.released) != 1 {
		t.Errorf("released = %v, want the dedup lock released for redelivery", f.deduper.released)
	}
	if len(f.dlq.published) != 0 {
		t.Error("first failure must not dead-letter the message")
	}
}

func TestBidAccepted_NonRetryableFailureIsDropped(t *testing.T) {
	f := newAcceptedFixture()
	f.store.insertErr = pgx.ErrNoRows

	if err := f.h.Handle(context.Background(), acceptedPayload(t)); err != nil {
		t.Fatalf("non-retryable failure must be acked, got %v", err)
	}
	if len(f.deduper.released) != 0 {
		t.Error("dedup lock must stay held for a dropped message")
	}
}

func TestBidAccepted_RetryBudgetExhaustedDeadLetters(t *testing.T) {
	f := newAcceptedFixture()
	f.store.insertErr = fmt.Errorf("dial tcp: connection refused")
	key := util.FormatRetryKey("bid_accepted", 501)
	f.counter.counts[key] = 4 // 下一次失败就是第 5 次

	if err := f.h.Handle(context.Background(), acceptedPayload(t)); err != nil {
		t.Fatalf("exhausted message must be acked after dead-lettering, got %v", err)
	}
	if len(f.dlq.published) != 1 || f.dlq.published[0] != "bid.accepted" {
		t.Fatalf("dlq.published = %v, want the bid.accepted message parked", f.dlq.published)
	}
	if len(f.deduper.released) != 0 {
		t.Error("dedup lock must stay held for a dead-lettered message")
	}
	found := false
	for _, r := range f.counter.resets {
		if r == key {
			found = true
		}
	}
	if !found {
		t.Error("retry counter must be reset after dead-lettering")
	}
}

func TestBidAccepted_DLQFailureRequeues(t *testing.T) {
	f := newAcceptedFixture()
	f.store.insertErr = fmt.Errorf("dial tcp: connection refused")
	f.dlq.err = fmt.Errorf("channel closed")
	f.counter.counts[util.FormatRetryKey("bid_accepted", 501)] = 4

	if err := f.h.Handle(context.Background(), acceptedPayload(t)); err == nil {
		t.Fatal("message must requeue when the DLQ is unavailable")
	}
	if len(f.deduper.released) != 1 {
		t.Error("dedup lock must be released so the redelivery is processed")
	}
}

func TestBidAccepted_SuccessResetsRetryCounter(t *testing.T) {
	f := newAcceptedFixture()
	key := util.FormatRetryKey("bid_accepted", 501)
	f.counter.counts[key] = 2

	if err := f.h.Handle(context.Background(), acceptedPayload(t)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, still := f.counter.counts[key]; still {
		t.Error("retry counter must be cleared after a successful delivery")
	}
}

func TestBidAccepted_ChatPushFailureIsNotFatal(t *testing.T) {
	f := newAcceptedFixture()
	f.realtime.err = fmt.Errorf("no live session")

	if err := f.h.Handle(context.Background(), acceptedPayload(t)); err != nil {
		t.Fatalf("chat_activated push failure must not requeue, got %v", err)
	}
}
