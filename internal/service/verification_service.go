package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/repository"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

// Decision is a supervisor's verdict on a pending service report.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a wire decision.
func ParseDecision(raw string) (Decision, bool) {
	d := Decision(strings.ToLower(strings.TrimSpace(raw)))
	switch d {
	case DecisionApprove, DecisionReject:
		return d, true
	}
	return "", false
}

// SubmitReportInput is what an engineer records on completion.
type SubmitReportInput struct {
	WorkDescription string
	TimeSpent       int
	PartsReplaced   []domain.PartReplaced
	BeforePhotos    []string
	AfterPhotos     []string
	Notes           string
}

// VerificationService wraps the report submission and supervisor review
// steps around the lifecycle.
type VerificationService struct {
	lifecycle *TicketLifecycle
	tickets   repository.TicketStore
	reports   repository.ServiceReportRepository
	logger    *zap.Logger
}

// NewVerificationService constructs the service.
func NewVerificationService(lifecycle *TicketLifecycle, tickets repository.TicketStore, reports repository.ServiceReportRepository, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{lifecycle: lifecycle, tickets: tickets, reports: reports, logger: logger}
}

// SubmitReport records a service report for an in-progress ticket and moves
// it to pending_verification in one commit.
func (s *VerificationService) SubmitReport(ctx context.Context, ticketID string, engineer domain.Actor, input SubmitReportInput) (*domain.ServiceReport, *domain.Ticket, error) {
	ticket, err := s.tickets.LoadForUpdate(ctx, ticketID)
	if err != nil {
		return nil, nil, storeError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !ticket.IsAssignedTo(engineer.ID) {
		return nil, nil, apperrors.NewForbidden("only the assigned engineer may submit a service report")
	}
	if ticket.Status != domain.TicketStatusInProgress {
		return nil, nil, apperrors.NewForbidden("service report requires an in-progress ticket")
	}

	report := &domain.ServiceReport{
		WorkDescription: strings.TrimSpace(input.WorkDescription),
		TimeSpent:       input.TimeSpent,
		PartsReplaced:   input.PartsReplaced,
		BeforePhotos:    input.BeforePhotos,
		AfterPhotos:     input.AfterPhotos,
	}
	if err := validateReport(report); err != nil {
		return nil, nil, err
	}
	updated, err := s.lifecycle.Transition(ctx, ticketID, engineer, domain.ActionCompleteService, TransitionPayload{
		Notes:  input.Notes,
		Report: report,
	})
	if err != nil {
		return nil, nil, err
	}
	return report, updated, nil
}

// Verify approves or rejects the latest pending report. The status check is
// left to the lifecycle so that a losing concurrent approve reports
// INVALID_TRANSITION.
func (s *VerificationService) Verify(ctx context.Context, ticketID string, actor domain.Actor, decision Decision, reason, notes string) (*domain.Ticket, error) {
	if !actor.HasRole(domain.RoleSupervisor, domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only supervisors or admins may verify service")
	}
	action := domain.ActionApprove
	switch decision {
	case DecisionApprove:
	case DecisionReject:
		action = domain.ActionReject
	default:
		return nil, apperrors.NewValidationError("decision must be approve or reject", map[string]any{"decision": decision})
	}
	return s.lifecycle.Transition(ctx, ticketID, actor, action, TransitionPayload{Reason: reason, Notes: notes})
}

// ListReports returns every report filed against the ticket, oldest first.
func (s *VerificationService) ListReports(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.ServiceReport, error) {
	if _, err := s.lifecycle.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	reports, err := s.reports.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "service report", nil)
	}
	return reports, nil
}

func validateReport(report *domain.ServiceReport) error {
	report.WorkDescription = strings.TrimSpace(report.WorkDescription)
	if report.WorkDescription == "" {
		return apperrors.NewValidationError("work description required", nil)
	}
	if len(report.WorkDescription) > domain.MaxDescriptionLength {
		return apperrors.NewValidationError("work description too long", map[string]any{"max": domain.MaxDescriptionLength})
	}
	if report.TimeSpent < 1 {
		return apperrors.NewValidationError("time spent must be at least one minute", map[string]any{"time_spent": report.TimeSpent})
	}
	for i, part := range report.PartsReplaced {
		if strings.TrimSpace(part.Name) == "" {
			return apperrors.NewValidationError("part name required", map[string]any{"index": i})
		}
		if part.Quantity < 1 {
			return apperrors.NewValidationError("part quantity must be positive", map[string]any{"index": i})
		}
		if part.Cost != nil && *part.Cost < 0 {
			return apperrors.NewValidationError("part cost must not be negative", map[string]any{"index": i})
		}
	}
	return nil
}
