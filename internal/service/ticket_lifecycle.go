package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/events"
	"github.com/fieldops/maintenance-service/internal/observability"
	"github.com/fieldops/maintenance-service/internal/repository"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

const defaultTransitionAttempts = 3

// TicketLifecycle is the ticket state machine. Every status change goes
// through Transition, which validates the request against the policy table
// and commits the ticket, timeline, report and equipment writes together.
type TicketLifecycle struct {
	tickets     repository.TicketStore
	equipment   repository.EquipmentRepository
	users       repository.UserRepository
	allocator   *CodeAllocator
	sync        *EquipmentStatusSync
	dispatcher  events.Dispatcher
	policy      domain.Policy
	maxAttempts int
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle.
type LifecycleDependencies struct {
	TicketStore   repository.TicketStore
	EquipmentRepo repository.EquipmentRepository
	UserRepo      repository.UserRepository
	Allocator     *CodeAllocator
	Sync          *EquipmentStatusSync
	Dispatcher    events.Dispatcher
	Policy        domain.Policy
	MaxAttempts   int
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewTicketLifecycle constructs the lifecycle.
func NewTicketLifecycle(deps LifecycleDependencies) *TicketLifecycle {
	l := &TicketLifecycle{
		tickets:     deps.TicketStore,
		equipment:   deps.EquipmentRepo,
		users:       deps.UserRepo,
		allocator:   deps.Allocator,
		sync:        deps.Sync,
		dispatcher:  deps.Dispatcher,
		policy:      deps.Policy,
		maxAttempts: deps.MaxAttempts,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.allocator == nil {
		l.allocator = NewCodeAllocator(defaultCodeAttempts)
	}
	if l.sync == nil {
		l.sync = NewEquipmentStatusSync(l.logger)
	}
	if l.policy == (domain.Policy{}) {
		l.policy = domain.DefaultPolicy()
	}
	if l.maxAttempts <= 0 {
		l.maxAttempts = defaultTransitionAttempts
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// PolicyFromConfig maps lifecycle configuration onto the domain policy.
func PolicyFromConfig(cfg config.LifecycleConfig) domain.Policy {
	policy := domain.DefaultPolicy()
	if cfg.ReopenPolicy != "" {
		policy.Reopen = domain.ReopenPolicy(cfg.ReopenPolicy)
	}
	if cfg.RejectMode != "" {
		policy.Reject = domain.RejectMode(cfg.RejectMode)
	}
	return policy
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	EquipmentID string
	IssueType   string
	Description string
	Priority    domain.TicketPriority
	Photos      []string
}

// TransitionPayload carries action-specific fields.
type TransitionPayload struct {
	AssignedTo string
	Notes      string
	Reason     string
	// Report is required for complete_service. On success it holds the
	// committed report.
	Report *domain.ServiceReport
}

// CreateTicket raises a ticket against equipment on behalf of actor.
func (l *TicketLifecycle) CreateTicket(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if guard := domain.CanCreate(actor); !guard.Allowed {
		return nil, guardError(guard, nil)
	}
	input.EquipmentID = strings.TrimSpace(input.EquipmentID)
	input.IssueType = strings.TrimSpace(input.IssueType)
	input.Description = strings.TrimSpace(input.Description)
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	equipment, err := l.equipment.GetByID(ctx, input.EquipmentID)
	if err != nil {
		return nil, storeError(err, "equipment", map[string]any{"equipment_id": input.EquipmentID})
	}
	if equipment.Status == domain.EquipmentStatusRetired {
		return nil, apperrors.NewValidationError("equipment is retired", map[string]any{"equipment_id": equipment.ID})
	}

	now := l.now().UTC()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		EquipmentID: equipment.ID,
		RaisedBy:    actor.ID,
		Priority:    input.Priority,
		IssueType:   input.IssueType,
		Description: input.Description,
		Photos:      input.Photos,
		CreatedAt:   now,
	}
	ticket.Record(domain.TimelineEntry{
		Status:    domain.TicketStatusOpen,
		Timestamp: now,
		ActorID:   actor.ID,
		Notes:     "Ticket created",
	})

	var committed *domain.Ticket
	_, err = l.allocator.TicketNumber(ctx, l.tickets.TicketNumberExists, func(ctx context.Context, number string) error {
		ticket.TicketNumber = number
		return l.tickets.Insert(ctx, ticket, func(ctx context.Context, tx repository.Tx, staged *domain.Ticket) error {
			committed = staged
			return l.sync.OnTicketStatusChanged(ctx, tx, staged.EquipmentID, staged.Status, now)
		})
	})
	if err != nil {
		l.metrics.RecordTransition(string(domain.ActionCreate), "error")
		return nil, storeError(err, "ticket", nil)
	}

	l.metrics.RecordTransition(string(domain.ActionCreate), "ok")
	l.logger.Info("ticket created",
		zap.String("ticket_id", committed.ID),
		zap.String("ticket_number", committed.TicketNumber),
		zap.String("equipment_id", committed.EquipmentID))
	l.publish(ctx, events.EventTicketCreated, committed, actor, events.TicketCreatedPayload{
		Priority:  committed.Priority,
		IssueType: committed.IssueType,
	})
	return committed.Clone(), nil
}

// Get returns a ticket visible to actor. Requesters only see their own tickets.
func (l *TicketLifecycle) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := l.tickets.LoadForUpdate(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if actor.Role == domain.RoleUser && ticket.RaisedBy != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// Transition applies action to the ticket. A lost compare-and-swap is retried
// from a fresh read; after maxAttempts the caller receives a retryable
// conflict.
func (l *TicketLifecycle) Transition(ctx context.Context, ticketID string, actor domain.Actor, action domain.Action, payload TransitionPayload) (*domain.Ticket, error) {
	if _, ok := l.policy.Rule(action); !ok {
		return nil, apperrors.NewValidationError("unknown action", map[string]any{"action": action})
	}
	details := map[string]any{"ticket_id": ticketID, "action": action}

	validated := false
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ticket, err := l.tickets.LoadForUpdate(ctx, ticketID)
		if err != nil {
			return nil, storeError(err, "ticket", details)
		}
		guard := l.policy.Evaluate(action, ticket, actor)
		if !guard.Allowed {
			l.metrics.RecordTransition(string(action), string(guard.Denial))
			return nil, guardError(guard, details)
		}
		if !validated {
			if err := l.validatePayload(ctx, action, &payload); err != nil {
				return nil, err
			}
			validated = true
		}

		from := ticket.Status
		updated, err := l.tickets.CompareAndSwap(ctx, ticketID, from, l.mutation(action, guard.To, actor, payload))
		if errors.Is(err, repository.ErrConflict) {
			l.logger.Debug("transition lost race; retrying",
				zap.String("ticket_id", ticketID),
				zap.String("action", string(action)),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			l.metrics.RecordTransition(string(action), "error")
			mapped := storeError(err, "ticket", details)
			if apperrors.HasCode(mapped, apperrors.CodeInternal) {
				l.logger.Error("transition failed",
					zap.String("ticket_id", ticketID),
					zap.String("action", string(action)),
					zap.Error(err))
			}
			return nil, mapped
		}

		l.metrics.RecordTransition(string(action), "ok")
		l.logger.Info("ticket transitioned",
			zap.String("ticket_id", updated.ID),
			zap.String("action", string(action)),
			zap.String("from", string(from)),
			zap.String("to", string(updated.Status)),
			zap.String("actor_id", actor.ID))
		l.publishTransition(ctx, action, from, updated, actor)
		return updated, nil
	}

	l.metrics.RecordTransition(string(action), "conflict")
	return nil, apperrors.NewConflict("ticket was modified concurrently; retry the request", details)
}

func (l *TicketLifecycle) validatePayload(ctx context.Context, action domain.Action, payload *TransitionPayload) error {
	payload.Notes = strings.TrimSpace(payload.Notes)
	payload.Reason = strings.TrimSpace(payload.Reason)
	switch action {
	case domain.ActionAssign:
		payload.AssignedTo = strings.TrimSpace(payload.AssignedTo)
		if payload.AssignedTo == "" {
			return apperrors.NewValidationError("assigned_to required", nil)
		}
		engineer, err := l.users.GetByID(ctx, payload.AssignedTo)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewValidationError("assigned_to must reference an engineer", map[string]any{"assigned_to": payload.AssignedTo})
			}
			return storeError(err, "user", nil)
		}
		if engineer.Role != domain.RoleEngineer || !engineer.Active {
			return apperrors.NewValidationError("assigned_to must reference an active engineer", map[string]any{"assigned_to": payload.AssignedTo})
		}
	case domain.ActionCompleteService:
		if payload.Report == nil {
			return apperrors.NewValidationError("service report required", nil)
		}
		return validateReport(payload.Report)
	case domain.ActionReject:
		if payload.Reason == "" {
			return apperrors.NewValidationError("rejection reason required", nil)
		}
		if len(payload.Reason) > domain.MaxRejectionLength {
			return apperrors.NewValidationError("rejection reason too long", map[string]any{"max": domain.MaxRejectionLength})
		}
	}
	return nil
}

// mutation builds the staged change for one attempt.
func (l *TicketLifecycle) mutation(action domain.Action, to domain.TicketStatus, actor domain.Actor, payload TransitionPayload) repository.Mutation {
	now := l.now().UTC()
	return repository.Mutation{
		Apply: func(ticket *domain.Ticket) error {
			switch action {
			case domain.ActionAssign:
				assignee := payload.AssignedTo
				ticket.AssignedTo = &assignee
			case domain.ActionReopen:
				ticket.ReopenCount++
			}
			ticket.Record(domain.TimelineEntry{
				Status:    to,
				Timestamp: now,
				ActorID:   actor.ID,
				Notes:     timelineNotes(action, to, payload),
			})
			return nil
		},
		Effects: func(ctx context.Context, tx repository.Tx, ticket *domain.Ticket) error {
			switch action {
			case domain.ActionCompleteService:
				report := payload.Report
				if report.ID == "" {
					report.ID = uuid.NewString()
				}
				report.TicketID = ticket.ID
				report.EngineerID = actor.ID
				report.VerificationStatus = domain.VerificationPending
				report.VerifiedBy = nil
				report.VerifiedAt = nil
				report.RejectionReason = ""
				report.SubmittedAt = now
				if err := tx.InsertServiceReport(ctx, report); err != nil {
					return err
				}
			case domain.ActionApprove, domain.ActionReject:
				if err := verifyPendingReport(ctx, tx, ticket.ID, action, actor, payload.Reason, now); err != nil {
					return err
				}
			}
			return l.sync.OnTicketStatusChanged(ctx, tx, ticket.EquipmentID, ticket.Status, now)
		},
	}
}

func verifyPendingReport(ctx context.Context, tx repository.Tx, ticketID string, action domain.Action, actor domain.Actor, reason string, at time.Time) error {
	report, err := tx.PendingServiceReport(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewInvalidTransition("ticket has no service report awaiting verification", map[string]any{"ticket_id": ticketID})
		}
		return err
	}
	verifier := actor.ID
	report.VerifiedBy = &verifier
	report.VerifiedAt = &at
	if action == domain.ActionApprove {
		report.VerificationStatus = domain.VerificationApproved
	} else {
		report.VerificationStatus = domain.VerificationRejected
		report.RejectionReason = reason
	}
	return tx.UpdateServiceReport(ctx, report)
}

func timelineNotes(action domain.Action, to domain.TicketStatus, payload TransitionPayload) string {
	if action == domain.ActionReject {
		if payload.Notes != "" {
			return fmt.Sprintf("Verification rejected: %s (%s)", payload.Reason, payload.Notes)
		}
		return "Verification rejected: " + payload.Reason
	}
	if payload.Notes != "" {
		return payload.Notes
	}
	switch action {
	case domain.ActionAssign:
		return "Ticket assigned to engineer"
	case domain.ActionCompleteService:
		return "Service report submitted"
	case domain.ActionApprove:
		return "Service verified and ticket closed"
	case domain.ActionReopen:
		return "Ticket reopened"
	}
	return fmt.Sprintf("Status updated to %s", to)
}

func validateCreateInput(input CreateTicketInput) error {
	missing := []string{}
	if input.EquipmentID == "" {
		missing = append(missing, "equipment_id")
	}
	if input.IssueType == "" {
		missing = append(missing, "issue_type")
	}
	if input.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if len(input.Description) > domain.MaxDescriptionLength {
		return apperrors.NewValidationError("description too long", map[string]any{"max": domain.MaxDescriptionLength})
	}
	if !input.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	return nil
}

func (l *TicketLifecycle) publishTransition(ctx context.Context, action domain.Action, from domain.TicketStatus, ticket *domain.Ticket, actor domain.Actor) {
	payload := events.TicketStatusChangedPayload{
		Action:    action,
		OldStatus: from,
		NewStatus: ticket.Status,
	}
	if last, ok := ticket.Timeline.Last(); ok {
		payload.Notes = last.Notes
	}
	l.publish(ctx, events.EventTicketStatusChanged, ticket, actor, payload)
	switch action {
	case domain.ActionAssign:
		l.publish(ctx, events.EventTicketAssigned, ticket, actor, payload)
	case domain.ActionApprove:
		l.publish(ctx, events.EventTicketClosed, ticket, actor, payload)
	case domain.ActionReopen:
		l.publish(ctx, events.EventTicketReopened, ticket, actor, payload)
	}
}

// publish runs after commit. Dispatch failures are logged and never undo the
// transition.
func (l *TicketLifecycle) publish(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, actor domain.Actor, payload any) {
	if l.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Ticket:    events.RefOf(ticket),
		Actor:     actor,
		Timestamp: l.now().UTC(),
		Payload:   payload,
	}
	if err := l.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		l.logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
