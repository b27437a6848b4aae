package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// NotificationService turns domain events into in-app notifications.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifications repository.NotificationRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:    dispatcher,
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
}

// ListForUser returns the caller's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, session domain.SessionContext, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if session.UserID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	list, err := n.notifications.ListByUser(ctx, session.UserID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// MarkRead flags one of the caller's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, session domain.SessionContext, id string) error {
	if session.UserID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := n.notifications.MarkRead(ctx, session.UserID, id); err != nil {
		return notFoundOr(err, "notification", id)
	}
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.String("assignee_id", payload.AssigneeID))

	err := n.notify(ctx, payload.AssigneeID, event, domain.NotificationTicketAssigned,
		fmt.Sprintf("Ticket %s assigned to you", payload.Key),
		payload.Title,
	)
	n.sendEmailNotificationStub(ctx, event, []string{payload.AssigneeID})
	n.sendWebhookNotificationStub(ctx, event)
	return err
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketEscalatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	recipients := append([]string{}, payload.NotifyUserIDs...)
	if payload.Action.ReassignTo != nil && !containsString(recipients, *payload.Action.ReassignTo) {
		recipients = append(recipients, *payload.Action.ReassignTo)
	}
	n.logger.Info("TicketEscalated",
		zap.String("ticket_id", event.TicketID),
		zap.String("rule_id", payload.RuleID),
		zap.Strings("recipients", recipients),
	)

	title := fmt.Sprintf("Ticket %s escalated", payload.Key)
	body := fmt.Sprintf("%s (rule: %s)", payload.Title, payload.RuleName)
	var firstErr error
	for _, userID := range recipients {
		if err := n.notify(ctx, userID, event, domain.NotificationTicketEscalated, title, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	n.sendEmailNotificationStub(ctx, event, recipients)
	n.sendWebhookNotificationStub(ctx, event)
	return firstErr
}

func (n *NotificationService) notify(ctx context.Context, userID string, event events.Event, kind domain.NotificationKind, title, body string) error {
	if n.notifications == nil || userID == "" {
		return nil
	}
	ticketID := event.TicketID
	return n.notifications.Create(ctx, &domain.Notification{
		UserID:   userID,
		TicketID: &ticketID,
		Kind:     kind,
		Title:    title,
		Body:     body,
	})
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, recipients []string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Strings("recipients", recipients),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
