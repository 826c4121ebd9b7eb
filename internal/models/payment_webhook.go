package models

import (
	"encoding/json"
	"time"
)

type WebhookProcessingStatus string

const (
	WebhookProcessingReceived  WebhookProcessingStatus = "received"
	WebhookProcessingProcessed WebhookProcessingStatus = "processed"
	WebhookProcessingIgnored   WebhookProcessingStatus = "ignored"
	WebhookProcessingFailed    WebhookProcessingStatus = "failed"
)

// PaymentWebhook records each inbound webhook delivery. Gateway-side
// retries produce one row per delivery; no idempotency key is enforced.
// TransactionID is a logical link only, no foreign key.
type PaymentWebhook struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Source            string                  `gorm:"type:varchar(50)" json:"source"`
	EventType         string                  `gorm:"type:varchar(100);index" json:"event_type"`
	TransactionID     string                  `gorm:"type:varchar(100);index" json:"transaction_id"`
	Payload           json.RawMessage         `gorm:"type:jsonb" json:"payload"`
	Signature         string                  `gorm:"type:varchar(128)" json:"signature"`
	SignatureVerified bool                    `json:"signature_verified"`
	ProcessingStatus  WebhookProcessingStatus `gorm:"type:varchar(50);default:received" json:"processing_status"`
}
