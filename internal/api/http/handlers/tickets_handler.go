package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-service/internal/api/dto"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/service"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	lifecycle    *service.TicketLifecycle
	verification *service.VerificationService
	comments     *service.CommentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.TicketLifecycle, verification *service.VerificationService, comments *service.CommentService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, verification: verification, comments: comments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.CreateTicket(c.UserContext(), actor, service.CreateTicketInput{
		EquipmentID: req.EquipmentID,
		IssueType:   req.IssueType,
		Description: req.Description,
		Priority:    req.Priority,
		Photos:      req.Photos,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Transition POST /tickets/:id/transitions.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	action, ok := domain.ParseAction(req.Action)
	if !ok {
		return apperrors.NewValidationError("unknown action", map[string]any{"action": req.Action})
	}
	ticket, err := h.lifecycle.Transition(c.UserContext(), c.Params("id"), actor, action, service.TransitionPayload{
		AssignedTo: req.AssignedTo,
		Notes:      req.Notes,
		Reason:     req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// SubmitReport POST /tickets/:id/service-reports.
func (h *TicketsHandler) SubmitReport(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	report, ticket, err := h.verification.SubmitReport(c.UserContext(), c.Params("id"), actor, service.SubmitReportInput{
		WorkDescription: req.WorkDescription,
		TimeSpent:       req.TimeSpent,
		PartsReplaced:   req.PartsReplaced,
		BeforePhotos:    req.BeforePhotos,
		AfterPhotos:     req.AfterPhotos,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"report": reportResponse(report),
		"ticket": ticketResponse(ticket),
	}})
}

// ListReports GET /tickets/:id/service-reports.
func (h *TicketsHandler) ListReports(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	reports, err := h.verification.ListReports(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.ServiceReportResponse, 0, len(reports))
	for i := range reports {
		resp = append(resp, reportResponse(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Verify POST /tickets/:id/verification.
func (h *TicketsHandler) Verify(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.VerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	decision, ok := service.ParseDecision(req.Decision)
	if !ok {
		return apperrors.NewValidationError("decision must be approve or reject", map[string]any{"decision": req.Decision})
	}
	ticket, err := h.verification.Verify(c.UserContext(), c.Params("id"), actor, decision, req.Reason, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.comments.AddComment(c.UserContext(), c.Params("id"), actor, req.Message, req.Attachments)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.List(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	resp := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		resp = append(resp, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	timeline := make([]dto.TimelineEntryResponse, 0, len(ticket.Timeline))
	for _, entry := range ticket.Timeline {
		timeline = append(timeline, dto.TimelineEntryResponse{
			Status:    entry.Status,
			Timestamp: entry.Timestamp,
			ActorID:   entry.ActorID,
			Notes:     entry.Notes,
		})
	}
	return dto.TicketResponse{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		EquipmentID:  ticket.EquipmentID,
		RaisedBy:     ticket.RaisedBy,
		AssignedTo:   ticket.AssignedTo,
		Priority:     ticket.Priority,
		Status:       ticket.Status,
		IssueType:    ticket.IssueType,
		Description:  ticket.Description,
		Photos:       ticket.Photos,
		Timeline:     timeline,
		ReopenCount:  ticket.ReopenCount,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
		ClosedAt:     ticket.ClosedAt,
	}
}

func reportResponse(report *domain.ServiceReport) dto.ServiceReportResponse {
	return dto.ServiceReportResponse{
		ID:                 report.ID,
		TicketID:           report.TicketID,
		EngineerID:         report.EngineerID,
		WorkDescription:    report.WorkDescription,
		TimeSpent:          report.TimeSpent,
		PartsReplaced:      report.PartsReplaced,
		BeforePhotos:       report.BeforePhotos,
		AfterPhotos:        report.AfterPhotos,
		VerificationStatus: report.VerificationStatus,
		VerifiedBy:         report.VerifiedBy,
		RejectionReason:    report.RejectionReason,
		SubmittedAt:        report.SubmittedAt,
		VerifiedAt:         report.VerifiedAt,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:          comment.ID,
		AuthorID:    comment.AuthorID,
		Message:     comment.Message,
		Attachments: comment.Attachments,
		CreatedAt:   comment.CreatedAt,
	}
}
