package domain

import "time"

// VerificationStatus tracks the supervisor decision on a report.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// PartReplaced lists a consumed spare part.
type PartReplaced struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Cost     *float64 `json:"cost,omitempty"`
}

// ServiceReport is an engineer's record of one completion attempt.
type ServiceReport struct {
	ID                 string
	TicketID           string
	EngineerID         string
	WorkDescription    string
	TimeSpent          int
	PartsReplaced      []PartReplaced
	BeforePhotos       []string
	AfterPhotos        []string
	VerificationStatus VerificationStatus
	VerifiedBy         *string
	RejectionReason    string
	SubmittedAt        time.Time
	VerifiedAt         *time.Time
}
