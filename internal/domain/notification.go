package domain

import "time"

// NotificationType classifies user notifications.
type NotificationType string

const (
	NotificationTicketCreated  NotificationType = "ticket_created"
	NotificationTicketAssigned NotificationType = "ticket_assigned"
	NotificationTicketUpdated  NotificationType = "ticket_updated"
	NotificationTicketClosed   NotificationType = "ticket_closed"
	NotificationCommentAdded   NotificationType = "comment_added"
)

// Notification is an inbox item for one user.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Link      string
	Read      bool
	CreatedAt time.Time
}
