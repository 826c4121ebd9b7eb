package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentRefund records a refund issued against a completed transaction.
// A replayed payment.refunded webhook inserts a duplicate row; the
// transaction status transition itself only applies once.
type PaymentRefund struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TransactionID string          `gorm:"type:varchar(100);index" json:"transaction_id"`
	OrderID       string          `gorm:"type:varchar(100);index" json:"order_id"`
	Amount        float64         `gorm:"type:decimal(15,2)" json:"amount"`
	Currency      string          `gorm:"type:varchar(10)" json:"currency"`
	Reason        string          `gorm:"type:text" json:"reason"`
	GatewayRef    string          `gorm:"type:varchar(100)" json:"gateway_ref"`
	RawPayload    json.RawMessage `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	RefundDate    time.Time       `json:"refund_date"`
}
