package service

import (
	"context"
	"encoding/json"
	"fmt"

	"invoicing-backend/internal/event"
	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"gorm.io/datatypes"
)

// EventRecorder persists every dispatched lifecycle event as an audit trail
// row with the full snapshot payload.
type EventRecorder struct {
	log repository.EventLogRepository
}

func NewEventRecorder(log repository.EventLogRepository) *EventRecorder {
	return &EventRecorder{log: log}
}

func (r *EventRecorder) Name() string { return "event-log" }

func (r *EventRecorder) Handle(ctx context.Context, evt event.InvoiceEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", evt.Name, err)
	}
	entry := &model.EventLog{
		EventName: evt.Name,
		InvoiceID: evt.InvoiceID,
		Payload:   datatypes.JSON(payload),
	}
	if err := r.log.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record event %s for %s: %w", evt.Name, evt.InvoiceNumber, err)
	}
	return nil
}
