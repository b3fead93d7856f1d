package events

import (
	"time"

	"github.com/fieldops/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketReopened      EventType = "ticket_reopened"
	EventCommentAdded        EventType = "comment_added"
)

// TicketRef carries the ticket fields notification routing needs.
type TicketRef struct {
	ID           string  `json:"id"`
	TicketNumber string  `json:"ticket_number"`
	EquipmentID  string  `json:"equipment_id"`
	RaisedBy     string  `json:"raised_by"`
	AssignedTo   *string `json:"assigned_to,omitempty"`
}

// RefOf builds a TicketRef from a ticket.
func RefOf(ticket *domain.Ticket) TicketRef {
	ref := TicketRef{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		EquipmentID:  ticket.EquipmentID,
		RaisedBy:     ticket.RaisedBy,
	}
	if ticket.AssignedTo != nil {
		assignee := *ticket.AssignedTo
		ref.AssignedTo = &assignee
	}
	return ref
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Ticket    TicketRef    `json:"ticket"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority  domain.TicketPriority `json:"priority"`
	IssueType string                `json:"issue_type"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Action    domain.Action       `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Notes     string              `json:"notes,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}
