package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/events"
	"github.com/fieldops/maintenance-service/internal/observability"
	"github.com/fieldops/maintenance-service/internal/repository"
	"github.com/fieldops/maintenance-service/internal/repository/memstore"
)

type fixture struct {
	store        *memstore.Store
	dispatcher   *recordingDispatcher
	metrics      *observability.Metrics
	lifecycle    *TicketLifecycle
	verification *VerificationService

	raiser        domain.Actor
	engineer      domain.Actor
	otherEngineer domain.Actor
	supervisor    domain.Actor
	admin         domain.Actor
	equipment     *domain.Equipment
}

type fixtureOption func(*LifecycleDependencies)

func withPolicy(p domain.Policy) fixtureOption {
	return func(d *LifecycleDependencies) { d.Policy = p }
}

func withClock(now func() time.Time) fixtureOption {
	return func(d *LifecycleDependencies) { d.Now = now }
}

func withTicketStore(wrap func(repository.TicketStore) repository.TicketStore) fixtureOption {
	return func(d *LifecycleDependencies) { d.TicketStore = wrap(d.TicketStore) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:      store,
		dispatcher: &recordingDispatcher{},
		metrics:    observability.NewMetrics(),
	}
	f.raiser = seedUser(t, store, domain.RoleUser)
	f.engineer = seedUser(t, store, domain.RoleEngineer)
	f.otherEngineer = seedUser(t, store, domain.RoleEngineer)
	f.supervisor = seedUser(t, store, domain.RoleSupervisor)
	f.admin = seedUser(t, store, domain.RoleAdmin)
	f.equipment = seedEquipment(t, store, "EQ-TEST0001")

	deps := LifecycleDependencies{
		TicketStore:   store.Tickets(),
		EquipmentRepo: store.Equipment(),
		UserRepo:      store.Users(),
		Dispatcher:    f.dispatcher,
		Metrics:       f.metrics,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.lifecycle = NewTicketLifecycle(deps)
	f.verification = NewVerificationService(f.lifecycle, deps.TicketStore, store.Reports(), nil)
	return f
}

func seedUser(t *testing.T, store *memstore.Store, role domain.Role) domain.Actor {
	t.Helper()
	user := &domain.User{
		ID:     uuid.NewString(),
		Name:   string(role),
		Email:  uuid.NewString() + "@example.com",
		Role:   role,
		Active: true,
	}
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.Actor()
}

func seedEquipment(t *testing.T, store *memstore.Store, code string) *domain.Equipment {
	t.Helper()
	equipment := &domain.Equipment{
		ID:     uuid.NewString(),
		Code:   code,
		Name:   "Infusion pump",
		Type:   "medical",
		Status: domain.EquipmentStatusActive,
	}
	if err := store.Equipment().Create(context.Background(), equipment); err != nil {
		t.Fatalf("seed equipment: %v", err)
	}
	return equipment
}

func (f *fixture) equipmentStatus(t *testing.T, id string) *domain.Equipment {
	t.Helper()
	e, err := f.store.Equipment().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load equipment: %v", err)
	}
	return e
}

func (f *fixture) create(t *testing.T, equipmentID string) *domain.Ticket {
	t.Helper()
	ticket, err := f.lifecycle.CreateTicket(context.Background(), f.raiser, CreateTicketInput{
		EquipmentID: equipmentID,
		IssueType:   "not_powering_on",
		Description: "Pump does not power on after charging",
		Priority:    domain.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (f *fixture) mustTransition(t *testing.T, ticketID string, actor domain.Actor, action domain.Action, payload TransitionPayload) *domain.Ticket {
	t.Helper()
	ticket, err := f.lifecycle.Transition(context.Background(), ticketID, actor, action, payload)
	if err != nil {
		t.Fatalf("%s: %v", action, err)
	}
	return ticket
}

func (f *fixture) submit(t *testing.T, ticketID string) *domain.Ticket {
	t.Helper()
	_, ticket, err := f.verification.SubmitReport(context.Background(), ticketID, f.engineer, SubmitReportInput{
		WorkDescription: "Replaced battery pack",
		TimeSpent:       45,
		PartsReplaced:   []domain.PartReplaced{{Name: "battery", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("submit report: %v", err)
	}
	return ticket
}

// toPending drives a fresh ticket to pending_verification.
func (f *fixture) toPending(t *testing.T, equipmentID string) *domain.Ticket {
	t.Helper()
	ticket := f.create(t, equipmentID)
	f.mustTransition(t, ticket.ID, f.supervisor, domain.ActionAssign, TransitionPayload{AssignedTo: f.engineer.ID})
	f.mustTransition(t, ticket.ID, f.engineer, domain.ActionStartService, TransitionPayload{})
	return f.submit(t, ticket.ID)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return d.err
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}
