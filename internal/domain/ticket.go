package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen                TicketStatus = "open"
	TicketStatusAssigned            TicketStatus = "assigned"
	TicketStatusInProgress          TicketStatus = "in_progress"
	TicketStatusPendingVerification TicketStatus = "pending_verification"
	TicketStatusClosed              TicketStatus = "closed"
	TicketStatusRejected            TicketStatus = "rejected"
	TicketStatusReopened            TicketStatus = "reopened"
)

// HoldsEquipment reports whether a ticket in this status keeps its equipment
// under service.
func (s TicketStatus) HoldsEquipment() bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusPendingVerification, TicketStatusReopened:
		return true
	}
	return false
}

// EquipmentHoldingStatuses lists every status for which HoldsEquipment is true.
func EquipmentHoldingStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusOpen,
		TicketStatusAssigned,
		TicketStatusInProgress,
		TicketStatusPendingVerification,
		TicketStatusReopened,
	}
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

const (
	MaxDescriptionLength = 2000
	MaxCommentLength     = 2000
	MaxRejectionLength   = 500
)

// Ticket is the aggregate for maintenance requests.
type Ticket struct {
	ID           string
	TicketNumber string
	EquipmentID  string
	RaisedBy     string
	AssignedTo   *string
	Priority     TicketPriority
	Status       TicketStatus
	IssueType    string
	Description  string
	Photos       []string
	Timeline     Timeline
	ReopenCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
}

// IsAssignedTo reports whether actorID is the current assignee.
func (t *Ticket) IsAssignedTo(actorID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == actorID
}

// Clone returns a deep copy so store implementations can stage mutations.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		out.AssignedTo = &v
	}
	if t.ClosedAt != nil {
		v := *t.ClosedAt
		out.ClosedAt = &v
	}
	out.Photos = append([]string(nil), t.Photos...)
	out.Timeline = append(Timeline(nil), t.Timeline...)
	return &out
}

// Record appends a timeline entry and moves the ticket into its status.
// closedAt tracks the closed state.
func (t *Ticket) Record(entry TimelineEntry) {
	t.Timeline = t.Timeline.Append(entry)
	t.Status = entry.Status
	t.UpdatedAt = entry.Timestamp
	if entry.Status == TicketStatusClosed {
		at := entry.Timestamp
		t.ClosedAt = &at
	} else {
		t.ClosedAt = nil
	}
}
