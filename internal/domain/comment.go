package domain

import "time"

// Comment is a free-form note on a ticket. It never affects status.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    string
	Message     string
	Attachments []string
	CreatedAt   time.Time
}
