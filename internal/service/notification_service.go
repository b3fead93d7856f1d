package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/events"
	"github.com/fieldops/maintenance-service/internal/repository"
)

const defaultNotificationLimit = 50

// PushPublisher delivers a serialized notification to live subscribers.
type PushPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationService turns domain events into per-user notifications.
// Delivery is best effort and never affects the originating transition.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	users         repository.UserRepository
	push          PushPublisher
	logger        *zap.Logger
	cfg           config.NotificationConfig
	now           func() time.Time
}

// NotificationDependencies bundles collaborators for the service.
type NotificationDependencies struct {
	Dispatcher    events.Dispatcher
	Notifications repository.NotificationRepository
	Users         repository.UserRepository
	Push          PushPublisher
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "notifications"
	}
	return &NotificationService{
		dispatcher:    deps.Dispatcher,
		notifications: deps.Notifications,
		users:         deps.Users,
		push:          deps.Push,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || !n.cfg.Enabled {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleTicketReopened)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

// ListForUser returns the newest notifications for the user.
func (n *NotificationService) ListForUser(ctx context.Context, actor domain.Actor, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	items, err := n.notifications.ListByUser(ctx, actor.ID, limit)
	if err != nil {
		return nil, storeError(err, "notification", nil)
	}
	return items, nil
}

// MarkRead flags one of the actor's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, id string) error {
	if err := n.notifications.MarkRead(ctx, id, actor.ID); err != nil {
		return storeError(err, "notification", map[string]any{"notification_id": id})
	}
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	supervisors, err := n.users.ListByRole(ctx, domain.RoleSupervisor)
	if err != nil {
		return fmt.Errorf("list supervisors: %w", err)
	}
	recipients := make([]string, 0, len(supervisors))
	for _, s := range supervisors {
		recipients = append(recipients, s.ID)
	}
	return n.notify(ctx, event, recipients, domain.NotificationTicketCreated,
		"New maintenance ticket",
		fmt.Sprintf("Ticket %s was raised and needs an engineer", event.Ticket.TicketNumber))
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	switch payload.Action {
	case domain.ActionStartService:
		return n.notify(ctx, event, []string{event.Ticket.RaisedBy}, domain.NotificationTicketUpdated,
			"Service started",
			fmt.Sprintf("Work on ticket %s has started", event.Ticket.TicketNumber))
	case domain.ActionCompleteService:
		supervisors, err := n.users.ListByRole(ctx, domain.RoleSupervisor)
		if err != nil {
			return fmt.Errorf("list supervisors: %w", err)
		}
		recipients := make([]string, 0, len(supervisors))
		for _, s := range supervisors {
			recipients = append(recipients, s.ID)
		}
		return n.notify(ctx, event, recipients, domain.NotificationTicketUpdated,
			"Service awaiting verification",
			fmt.Sprintf("Ticket %s has a service report to verify", event.Ticket.TicketNumber))
	case domain.ActionReject:
		return n.notify(ctx, event, assignee(event), domain.NotificationTicketUpdated,
			"Service rejected",
			fmt.Sprintf("Ticket %s: %s", event.Ticket.TicketNumber, payload.Notes))
	}
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	return n.notify(ctx, event, assignee(event), domain.NotificationTicketAssigned,
		"Ticket assigned",
		fmt.Sprintf("Ticket %s has been assigned to you", event.Ticket.TicketNumber))
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	return n.notify(ctx, event, []string{event.Ticket.RaisedBy}, domain.NotificationTicketClosed,
		"Ticket closed",
		fmt.Sprintf("Ticket %s has been serviced and closed", event.Ticket.TicketNumber))
}

func (n *NotificationService) handleTicketReopened(ctx context.Context, event events.Event) error {
	return n.notify(ctx, event, assignee(event), domain.NotificationTicketUpdated,
		"Ticket reopened",
		fmt.Sprintf("Ticket %s was reopened", event.Ticket.TicketNumber))
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	recipients := []string{event.Ticket.RaisedBy}
	recipients = append(recipients, assignee(event)...)
	return n.notify(ctx, event, recipients, domain.NotificationCommentAdded,
		"New comment",
		fmt.Sprintf("New comment on ticket %s", event.Ticket.TicketNumber))
}

// notify persists one notification per distinct recipient, skipping the
// actor, then pushes it. Failures are collected so one bad recipient does
// not starve the rest.
func (n *NotificationService) notify(ctx context.Context, event events.Event, recipients []string, kind domain.NotificationType, title, message string) error {
	seen := map[string]struct{}{event.Actor.ID: {}}
	var errs []error
	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		item := &domain.Notification{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      kind,
			Title:     title,
			Message:   message,
			Link:      "/tickets/" + event.Ticket.ID,
			CreatedAt: n.now().UTC(),
		}
		if err := n.notifications.Create(ctx, item); err != nil {
			errs = append(errs, fmt.Errorf("store notification for %s: %w", userID, err))
			continue
		}
		if err := n.publish(ctx, item); err != nil {
			n.logger.Warn("push notification failed",
				zap.String("user_id", userID),
				zap.String("ticket_id", event.Ticket.ID),
				zap.Error(err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	n.logger.Debug("notifications dispatched",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.Ticket.ID),
		zap.Int("recipients", len(seen)-1))
	return nil
}

type pushMessage struct {
	ID        string                  `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Link      string                  `json:"link"`
	CreatedAt time.Time               `json:"created_at"`
}

func (n *NotificationService) publish(ctx context.Context, item *domain.Notification) error {
	if n.push == nil {
		return nil
	}
	body, err := json.Marshal(pushMessage{
		ID:        item.ID,
		Type:      item.Type,
		Title:     item.Title,
		Message:   item.Message,
		Link:      item.Link,
		CreatedAt: item.CreatedAt,
	})
	if err != nil {
		return err
	}
	return n.push.Publish(ctx, n.Channel(item.UserID), body)
}

// Channel returns the push channel name for a user.
func (n *NotificationService) Channel(userID string) string {
	return n.cfg.ChannelPrefix + ":" + userID
}

func assignee(event events.Event) []string {
	if event.Ticket.AssignedTo == nil {
		return nil
	}
	return []string{*event.Ticket.AssignedTo}
}
