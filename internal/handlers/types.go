package handlers

import (
	"github.com/go-playground/validator/v10"

	"storefront_payments_echo/internal/models"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// CreateOrderRequest is the checkout payload for POST /api/orders.
type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required"`
	CustomerEmail   string             `json:"customer_email" validate:"required,email"`
	CustomerPhone   string             `json:"customer_phone"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	ShippingCity    string             `json:"shipping_city"`
	ShippingCost    float64            `json:"shipping_cost" validate:"gte=0"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type OrderItemRequest struct {
	ProductID   string  `json:"product_id" validate:"required"`
	VariantID   string  `json:"variant_id"`
	ProductName string  `json:"product_name" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

// CreatePaymentRequest is the payload for POST /api/payments. Amount and
// method are re-validated in the service; tags here just give callers an
// early 400 with a field name.
type CreatePaymentRequest struct {
	OrderID       string  `json:"order_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string  `json:"customer_phone"`
	RedirectURL   string  `json:"redirect_url" validate:"omitempty,url"`
}

// UpdatePaymentStatusRequest is the admin payload for manual transitions.
type UpdatePaymentStatusRequest struct {
	Status  string                 `json:"status" validate:"required"`
	Details map[string]interface{} `json:"details"`
}

// UpdateOrderStatusRequest is the admin payload for order status edits.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderResponse trims the order for API consumers.
type OrderResponse struct {
	OrderNumber   string                    `json:"order_number"`
	Status        models.OrderStatus        `json:"status"`
	PaymentStatus models.OrderPaymentStatus `json:"payment_status"`
	PaymentMethod string                    `json:"payment_method"`
	Subtotal      float64                   `json:"subtotal"`
	ShippingCost  float64                   `json:"shipping_cost"`
	Total         float64                   `json:"total"`
	Items         []models.OrderItem        `json:"items,omitempty"`
}

func NewOrderResponse(order *models.Order) OrderResponse {
	return OrderResponse{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Subtotal:      order.Subtotal,
		ShippingCost:  order.ShippingCost,
		Total:         order.Total,
		Items:         order.Items,
	}
}
