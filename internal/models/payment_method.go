package models

import (
	"time"

	"gorm.io/gorm"
)

type PaymentMethodCode string

const (
	PaymentMethodKashier      PaymentMethodCode = "kashier"
	PaymentMethodCOD          PaymentMethodCode = "cod"
	PaymentMethodBankTransfer PaymentMethodCode = "bank_transfer"
)

// PaymentMethod is a configurable payment option shown at checkout.
type PaymentMethod struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Code        PaymentMethodCode `gorm:"type:varchar(50);uniqueIndex" json:"code"`
	DisplayName string            `gorm:"type:varchar(100)" json:"display_name"`
	Description string            `gorm:"type:text" json:"description"`
	IsActive    bool              `gorm:"default:true" json:"is_active"`
	SortOrder   int               `gorm:"default:0" json:"sort_order"`
}

// ValidPaymentMethod reports whether code is a supported method.
func ValidPaymentMethod(code PaymentMethodCode) bool {
	switch code {
	case PaymentMethodKashier, PaymentMethodCOD, PaymentMethodBankTransfer:
		return true
	}
	return false
}
