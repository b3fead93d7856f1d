package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/events"
	"github.com/fieldops/maintenance-service/internal/repository"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

const commentPreviewLength = 120

// CommentService manages ticket discussion. Comments never change status.
type CommentService struct {
	tickets    repository.TicketStore
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewCommentService constructs the service.
func NewCommentService(tickets repository.TicketStore, comments repository.CommentRepository, dispatcher events.Dispatcher, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{tickets: tickets, comments: comments, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// AddComment appends a comment from one of the ticket participants.
func (s *CommentService) AddComment(ctx context.Context, ticketID string, actor domain.Actor, message string, attachments []string) (*domain.Comment, error) {
	ticket, err := s.tickets.LoadForUpdate(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canComment(ticket, actor) {
		return nil, apperrors.NewForbidden("only ticket participants may comment")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}
	if len(message) > domain.MaxCommentLength {
		return nil, apperrors.NewValidationError("message too long", map[string]any{"max": domain.MaxCommentLength})
	}

	comment := &domain.Comment{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		AuthorID:    actor.ID,
		Message:     message,
		Attachments: attachments,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, storeError(err, "comment", nil)
	}

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventCommentAdded,
			Ticket:    events.RefOf(ticket),
			Actor:     actor,
			Timestamp: comment.CreatedAt,
			Payload: events.CommentAddedPayload{
				CommentID:   comment.ID,
				AuthorID:    actor.ID,
				BodyPreview: preview(message),
			},
		}
		if err := s.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
			s.logger.Warn("publish comment event failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return comment, nil
}

// List returns the ticket's comments, oldest first.
func (s *CommentService) List(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.Comment, error) {
	ticket, err := s.tickets.LoadForUpdate(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !canComment(ticket, actor) {
		return nil, apperrors.NewForbidden("access denied")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "comment", nil)
	}
	return comments, nil
}

func canComment(ticket *domain.Ticket, actor domain.Actor) bool {
	if actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor) {
		return true
	}
	return actor.ID != "" && (ticket.RaisedBy == actor.ID || ticket.IsAssignedTo(actor.ID))
}

func preview(message string) string {
	runes := []rune(message)
	if len(runes) <= commentPreviewLength {
		return message
	}
	return string(runes[:commentPreviewLength]) + "..."
}
