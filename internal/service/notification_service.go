package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invoicing-backend/internal/event"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
)

// Broadcaster pushes a message to all connected live clients.
type Broadcaster interface {
	BroadcastMessage(message []byte)
}

type NotificationResponse struct {
	ID        string  `json:"id"`
	InvoiceID string  `json:"invoice_id"`
	Kind      string  `json:"kind"`
	Message   string  `json:"message"`
	ReadAt    *string `json:"read_at"`
	CreatedAt string  `json:"created_at"`
}

// NotificationService reacts to invoice lifecycle events: it stores an
// in-app notification for the acting user and pushes the event to live
// websocket clients. The actor travels on the event payload; when no actor
// is present (background jobs, unauthenticated callers) the stored
// notification is skipped and only the broadcast happens.
type NotificationService struct {
	notifications repository.NotificationRepository
	hub           Broadcaster
}

func NewNotificationService(notifications repository.NotificationRepository, hub Broadcaster) *NotificationService {
	return &NotificationService{notifications: notifications, hub: hub}
}

func (s *NotificationService) Name() string { return "notifications" }

func (s *NotificationService) Handle(ctx context.Context, evt event.InvoiceEvent) error {
	if payload, err := json.Marshal(evt); err == nil && s.hub != nil {
		s.hub.BroadcastMessage(payload)
	}

	if evt.ActorID == nil {
		return nil
	}

	n := &model.Notification{
		UserID:    *evt.ActorID,
		InvoiceID: evt.InvoiceID,
		Kind:      evt.Name,
		Message:   messageFor(evt),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification for %s: %w", evt.InvoiceNumber, err)
	}
	return nil
}

func messageFor(evt event.InvoiceEvent) string {
	switch evt.Name {
	case event.InvoiceCreated:
		return fmt.Sprintf("Invoice %s created", evt.InvoiceNumber)
	case event.InvoiceFinalized:
		return fmt.Sprintf("Invoice %s finalized and sent", evt.InvoiceNumber)
	case event.InvoicePaid:
		return fmt.Sprintf("Invoice %s marked as paid", evt.InvoiceNumber)
	}
	return fmt.Sprintf("Invoice %s: %s", evt.InvoiceNumber, evt.Name)
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, page, limit int) ([]NotificationResponse, int64, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid user id: %w", err)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	notifications, total, err := s.notifications.ListByUser(ctx, id, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp := NotificationResponse{
			ID:        n.ID.String(),
			InvoiceID: n.InvoiceID.String(),
			Kind:      n.Kind,
			Message:   n.Message,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
		if n.ReadAt != nil {
			v := n.ReadAt.Format(time.RFC3339)
			resp.ReadAt = &v
		}
		result = append(result, resp)
	}
	return result, total, nil
}

// MarkRead flags a notification as read for its owner.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	notificationID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	return s.notifications.MarkRead(ctx, notificationID, ownerID)
}
