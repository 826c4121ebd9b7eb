package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront_payments_echo/internal/models"
)

// OrderService owns order creation from checkout data and administrative
// status updates. Payment-driven order mutations live in PaymentService.
type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

type OrderItemInput struct {
	ProductID   string
	VariantID   string
	ProductName string
	Quantity    int
	UnitPrice   float64
}

type CreateOrderParams struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	ShippingCity    string
	ShippingCost    float64
	PaymentMethod   models.PaymentMethodCode
	Items           []OrderItemInput
}

// CreateOrder persists a new pending order. Totals are computed
// server-side from the submitted line items, never trusted from the
// client.
func (s *OrderService) CreateOrder(ctx context.Context, params CreateOrderParams) (*models.Order, error) {
	if len(params.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}
	if !models.ValidPaymentMethod(params.PaymentMethod) {
		return nil, fmt.Errorf("%w: unsupported payment method %s", ErrValidation, params.PaymentMethod)
	}

	var subtotal float64
	items := make([]models.OrderItem, 0, len(params.Items))
	for _, in := range params.Items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrValidation)
		}
		if in.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: item price cannot be negative", ErrValidation)
		}
		subtotal += float64(in.Quantity) * in.UnitPrice
		items = append(items, models.OrderItem{
			ProductID:   in.ProductID,
			VariantID:   in.VariantID,
			ProductName: in.ProductName,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		})
	}

	order := models.Order{
		OrderNumber:     newOrderNumber(),
		CustomerName:    params.CustomerName,
		CustomerEmail:   params.CustomerEmail,
		CustomerPhone:   params.CustomerPhone,
		ShippingAddress: params.ShippingAddress,
		ShippingCity:    params.ShippingCity,
		Subtotal:        subtotal,
		ShippingCost:    params.ShippingCost,
		Total:           subtotal + params.ShippingCost,
		PaymentMethod:   string(params.PaymentMethod),
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.OrderPaymentPending,
		Items:           items,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return &order, nil
}

// GetOrder loads an order by its external order number.
func (s *OrderService) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderNumber)
		}
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus applies an administrative status change.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderNumber string, status models.OrderStatus) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%w: unknown order status %s", ErrValidation, status)
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", orderNumber).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", orderNumber, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, orderNumber)
	}
	return nil
}

// newOrderNumber generates an external order reference like
// ORD-9F2C1A7B. UUID-derived so concurrent checkouts can't collide.
func newOrderNumber() string {
	id := uuid.New().String()
	return "ORD-" + strings.ToUpper(id[:8])
}
