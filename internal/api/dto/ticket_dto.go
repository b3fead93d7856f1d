package dto

import (
	"time"

	"github.com/fieldops/maintenance-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	EquipmentID string                `json:"equipment_id"`
	IssueType   string                `json:"issue_type"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Photos      []string              `json:"photos"`
}

// TransitionRequest asks the lifecycle to apply an action.
type TransitionRequest struct {
	Action     string `json:"action"`
	AssignedTo string `json:"assigned_to"`
	Notes      string `json:"notes"`
	Reason     string `json:"reason"`
}

// TimelineEntryResponse is one audit record.
type TimelineEntryResponse struct {
	Status    domain.TicketStatus `json:"status"`
	Timestamp time.Time           `json:"timestamp"`
	ActorID   string              `json:"actor_id"`
	Notes     string              `json:"notes,omitempty"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID           string                  `json:"id"`
	TicketNumber string                  `json:"ticket_number"`
	EquipmentID  string                  `json:"equipment_id"`
	RaisedBy     string                  `json:"raised_by"`
	AssignedTo   *string                 `json:"assigned_to"`
	Priority     domain.TicketPriority   `json:"priority"`
	Status       domain.TicketStatus     `json:"status"`
	IssueType    string                  `json:"issue_type"`
	Description  string                  `json:"description"`
	Photos       []string                `json:"photos"`
	Timeline     []TimelineEntryResponse `json:"timeline"`
	ReopenCount  int                     `json:"reopen_count"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	ClosedAt     *time.Time              `json:"closed_at"`
}

// SubmitReportRequest payload for a completion attempt.
type SubmitReportRequest struct {
	WorkDescription string                `json:"work_description"`
	TimeSpent       int                   `json:"time_spent"`
	PartsReplaced   []domain.PartReplaced `json:"parts_replaced"`
	BeforePhotos    []string              `json:"before_photos"`
	AfterPhotos     []string              `json:"after_photos"`
	Notes           string                `json:"notes"`
}

// VerificationRequest carries a supervisor decision.
type VerificationRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
	Notes    string `json:"notes"`
}

// ServiceReportResponse represents a submitted report.
type ServiceReportResponse struct {
	ID                 string                    `json:"id"`
	TicketID           string                    `json:"ticket_id"`
	EngineerID         string                    `json:"engineer_id"`
	WorkDescription    string                    `json:"work_description"`
	TimeSpent          int                       `json:"time_spent"`
	PartsReplaced      []domain.PartReplaced     `json:"parts_replaced"`
	BeforePhotos       []string                  `json:"before_photos"`
	AfterPhotos        []string                  `json:"after_photos"`
	VerificationStatus domain.VerificationStatus `json:"verification_status"`
	VerifiedBy         *string                   `json:"verified_by"`
	RejectionReason    string                    `json:"rejection_reason,omitempty"`
	SubmittedAt        time.Time                 `json:"submitted_at"`
	VerifiedAt         *time.Time                `json:"verified_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Message     string   `json:"message"`
	Attachments []string `json:"attachments"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Message     string    `json:"message"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
}
