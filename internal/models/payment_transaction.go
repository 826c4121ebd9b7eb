package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

// PaymentTransaction is one attempt to collect payment for an order.
// Retries create a new transaction per attempt; rows are retained
// indefinitely for audit.
type PaymentTransaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OrderID references Order.OrderNumber (the external order key used
	// in gateway payloads), not the numeric primary key.
	OrderID       string `gorm:"type:varchar(100);index" json:"order_id"`
	TransactionID string `gorm:"type:varchar(100);uniqueIndex" json:"transaction_id"`

	Amount   float64           `gorm:"type:decimal(15,2)" json:"amount"`
	Currency string            `gorm:"type:varchar(10)" json:"currency"`
	Status   TransactionStatus `gorm:"type:varchar(50);default:pending" json:"status"`

	// EncryptedData holds sensitive customer fields, encrypted at rest.
	// Signature is an HMAC over orderId:amount:transactionId for tamper
	// detection on later reads.
	EncryptedData   string          `gorm:"type:text" json:"-"`
	Signature       string          `gorm:"type:varchar(128)" json:"-"`
	GatewayResponse json.RawMessage `gorm:"type:jsonb" json:"gateway_response,omitempty"`

	InitiatedAt time.Time  `json:"initiated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`

	// Relationships
	Order Order        `gorm:"foreignKey:OrderID;references:OrderNumber" json:"order,omitempty"`
	Logs  []PaymentLog `gorm:"foreignKey:TransactionID;references:TransactionID" json:"logs,omitempty"`
}

// CanTransitionTo reports whether moving from the current status to next
// is a legal lifecycle edge. Terminal states admit no further transition
// except completed -> refunded.
func (t *PaymentTransaction) CanTransitionTo(next TransactionStatus) bool {
	switch t.Status {
	case TransactionStatusPending:
		return next == TransactionStatusProcessing ||
			next == TransactionStatusCompleted ||
			next == TransactionStatusFailed ||
			next == TransactionStatusCancelled
	case TransactionStatusProcessing:
		return next == TransactionStatusCompleted ||
			next == TransactionStatusFailed ||
			next == TransactionStatusCancelled
	case TransactionStatusCompleted:
		return next == TransactionStatusRefunded
	default:
		// failed, cancelled, refunded are terminal
		return false
	}
}

// IsTerminal reports whether the transaction has reached a final state.
func (t *PaymentTransaction) IsTerminal() bool {
	switch t.Status {
	case TransactionStatusCompleted, TransactionStatusFailed,
		TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}

// BeforeCreate stamps InitiatedAt for rows created without one.
func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.InitiatedAt.IsZero() {
		t.InitiatedAt = time.Now()
	}
	return nil
}
