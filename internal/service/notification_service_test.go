package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/events"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

type recordingPush struct {
	mu       sync.Mutex
	channels []string
	bodies   [][]byte
	err      error
}

func (p *recordingPush) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.bodies = append(p.bodies, payload)
	return p.err
}

type notifyFixture struct {
	*fixture
	push          *recordingPush
	notifications *NotificationService
	comments      *CommentService
}

func newNotifyFixture(t *testing.T, push *recordingPush) *notifyFixture {
	t.Helper()
	base := newFixture(t)
	dispatcher := events.NewInMemoryDispatcher(nil)
	base.lifecycle = NewTicketLifecycle(LifecycleDependencies{
		TicketStore:   base.store.Tickets(),
		EquipmentRepo: base.store.Equipment(),
		UserRepo:      base.store.Users(),
		Dispatcher:    dispatcher,
	})
	base.verification = NewVerificationService(base.lifecycle, base.store.Tickets(), base.store.Reports(), nil)

	deps := NotificationDependencies{
		Dispatcher:    dispatcher,
		Notifications: base.store.Notifications(),
		Users:         base.store.Users(),
	}
	if push != nil {
		deps.Push = push
	}
	svc := NewNotificationService(deps, nil, config.NotificationConfig{Enabled: true, ChannelPrefix: "maint"})
	svc.RegisterHandlers()

	return &notifyFixture{
		fixture:       base,
		push:          push,
		notifications: svc,
		comments:      NewCommentService(base.store.Tickets(), base.store.Comments(), dispatcher, nil),
	}
}

func (f *notifyFixture) inbox(t *testing.T, actor domain.Actor) []domain.Notification {
	t.Helper()
	items, err := f.notifications.ListForUser(context.Background(), actor, 0)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return items
}

func countType(items []domain.Notification, kind domain.NotificationType) int {
	n := 0
	for _, item := range items {
		if item.Type == kind {
			n++
		}
	}
	return n
}

func TestNotificationRouting(t *testing.T) {
	f := newNotifyFixture(t, &recordingPush{})
	ticket := f.create(t, f.equipment.ID)

	if got := countType(f.inbox(t, f.supervisor), domain.NotificationTicketCreated); got != 1 {
		t.Errorf("supervisor created notifications = %d, want 1", got)
	}
	if got := len(f.inbox(t, f.raiser)); got != 0 {
		t.Errorf("raiser notified of own ticket: %d", got)
	}

	f.mustTransition(t, ticket.ID, f.supervisor, domain.ActionAssign, TransitionPayload{AssignedTo: f.engineer.ID})
	if got := countType(f.inbox(t, f.engineer), domain.NotificationTicketAssigned); got != 1 {
		t.Errorf("engineer assigned notifications = %d, want 1", got)
	}

	f.mustTransition(t, ticket.ID, f.engineer, domain.ActionStartService, TransitionPayload{})
	if got := countType(f.inbox(t, f.raiser), domain.NotificationTicketUpdated); got != 1 {
		t.Errorf("raiser update notifications = %d, want 1", got)
	}

	f.submit(t, ticket.ID)
	if got := countType(f.inbox(t, f.supervisor), domain.NotificationTicketUpdated); got != 1 {
		t.Errorf("supervisor verification notifications = %d, want 1", got)
	}

	if _, err := f.verification.Verify(context.Background(), ticket.ID, f.supervisor, DecisionApprove, "", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := countType(f.inbox(t, f.raiser), domain.NotificationTicketClosed); got != 1 {
		t.Errorf("raiser closed notifications = %d, want 1", got)
	}

	if _, err := f.comments.AddComment(context.Background(), ticket.ID, f.raiser, "Thanks, working again", nil); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if got := countType(f.inbox(t, f.engineer), domain.NotificationCommentAdded); got != 1 {
		t.Errorf("engineer comment notifications = %d, want 1", got)
	}
	if got := countType(f.inbox(t, f.raiser), domain.NotificationCommentAdded); got != 0 {
		t.Errorf("comment author notified of own comment: %d", got)
	}
}

func TestNotificationPushPayload(t *testing.T) {
	push := &recordingPush{}
	f := newNotifyFixture(t, push)
	ticket := f.create(t, f.equipment.ID)

	push.mu.Lock()
	defer push.mu.Unlock()
	if len(push.channels) != 1 || push.channels[0] != "maint:"+f.supervisor.ID {
		t.Fatalf("channels = %v", push.channels)
	}
	var body map[string]any
	if err := json.Unmarshal(push.bodies[0], &body); err != nil {
		t.Fatalf("decode push body: %v", err)
	}
	if body["type"] != string(domain.NotificationTicketCreated) || body["link"] != "/tickets/"+ticket.ID {
		t.Errorf("push body = %v", body)
	}
}

func TestPushFailureKeepsNotification(t *testing.T) {
	f := newNotifyFixture(t, &recordingPush{err: errors.New("redis down")})
	f.create(t, f.equipment.ID)
	if got := len(f.inbox(t, f.supervisor)); got != 1 {
		t.Fatalf("stored notifications = %d, want 1", got)
	}
}

func TestMarkRead(t *testing.T) {
	f := newNotifyFixture(t, nil)
	f.create(t, f.equipment.ID)
	items := f.inbox(t, f.supervisor)
	if len(items) != 1 || items[0].Read {
		t.Fatalf("inbox = %+v", items)
	}

	if err := f.notifications.MarkRead(context.Background(), f.engineer, items[0].ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("foreign mark read: err = %v, want not found", err)
	}
	if err := f.notifications.MarkRead(context.Background(), f.supervisor, items[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !f.inbox(t, f.supervisor)[0].Read {
		t.Error("notification still unread")
	}
}

func TestDisabledNotificationsSubscribeNothing(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	var subscribed bool
	svc := NewNotificationService(NotificationDependencies{Dispatcher: subscribeSpy{dispatcher, &subscribed}}, nil, config.NotificationConfig{})
	svc.RegisterHandlers()
	if subscribed {
		t.Fatal("disabled service subscribed to events")
	}
	if got := svc.Channel("u-1"); got != "notifications:u-1" {
		t.Errorf("Channel = %q", got)
	}
}

type subscribeSpy struct {
	*recordingDispatcher
	called *bool
}

func (s subscribeSpy) Subscribe(events.EventType, events.EventHandler) { *s.called = true }
