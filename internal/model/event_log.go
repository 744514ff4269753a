package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventLog is the persisted audit trail of dispatched invoice lifecycle
// events. Payload holds the full event snapshot as delivered to subscribers.
type EventLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventName string         `gorm:"type:varchar(50);not null;index" json:"event_name"`
	InvoiceID uuid.UUID      `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
