package models

import (
	"encoding/json"
	"time"
)

// PaymentLog is an append-only audit event tied to a transaction. Rows
// are never updated or deleted, so there is no UpdatedAt/DeletedAt.
// Writes are best-effort: a failed log insert never fails the owning
// operation.
type PaymentLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TransactionID string          `gorm:"type:varchar(100);index" json:"transaction_id"`
	EventType     string          `gorm:"type:varchar(100)" json:"event_type"`
	Message       string          `gorm:"type:text" json:"message"`
	Details       json.RawMessage `gorm:"type:jsonb" json:"details,omitempty"`
}
