package models

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

type OrderPaymentStatus string

const (
	OrderPaymentPending OrderPaymentStatus = "pending"
	OrderPaymentPaid    OrderPaymentStatus = "paid"
	OrderPaymentFailed  OrderPaymentStatus = "failed"
)

// Order represents a customer purchase intent. Orders are never hard
// deleted; they move through OrderStatus only.
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderNumber   string `gorm:"type:varchar(100);uniqueIndex" json:"order_number"`
	CustomerName  string `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail string `gorm:"type:varchar(255);index" json:"customer_email"`
	CustomerPhone string `gorm:"type:varchar(50)" json:"customer_phone"`

	ShippingAddress string `gorm:"type:text" json:"shipping_address"`
	ShippingCity    string `gorm:"type:varchar(100)" json:"shipping_city"`

	Subtotal     float64 `gorm:"type:decimal(15,2)" json:"subtotal"`
	ShippingCost float64 `gorm:"type:decimal(15,2)" json:"shipping_cost"`
	Total        float64 `gorm:"type:decimal(15,2)" json:"total"`

	PaymentMethod string             `gorm:"type:varchar(50)" json:"payment_method"` // e.g. "kashier", "cod", "bank_transfer"
	Status        OrderStatus        `gorm:"type:varchar(50);default:pending" json:"status"`
	PaymentStatus OrderPaymentStatus `gorm:"type:varchar(50);default:pending" json:"payment_status"`

	// Relationships
	Items        []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Transactions []PaymentTransaction `gorm:"foreignKey:OrderID;references:OrderNumber" json:"transactions,omitempty"`
}

// OrderItem is a single product line on an order. Unit price is captured
// at checkout time so later catalog edits don't rewrite history.
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID     uint    `gorm:"index" json:"order_id"`
	ProductID   string  `gorm:"type:varchar(100)" json:"product_id"`
	VariantID   string  `gorm:"type:varchar(100)" json:"variant_id"`
	ProductName string  `gorm:"type:varchar(255)" json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `gorm:"type:decimal(15,2)" json:"unit_price"`
}

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}
