package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message created for the user who triggered an
// invoice lifecycle transition.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID" json:"-"`
	InvoiceID uuid.UUID  `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Kind      string     `gorm:"type:varchar(50);not null" json:"kind"` // event name
	Message   string     `gorm:"type:text;not null" json:"message"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}
