package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront_payments_echo/internal/models"
	"storefront_payments_echo/internal/services"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder creates a pending order from checkout data.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items := make([]services.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.OrderItemInput{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), services.CreateOrderParams{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingCost:    req.ShippingCost,
		PaymentMethod:   models.PaymentMethodCode(req.PaymentMethod),
		Items:           items,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create order")
	}
	return c.JSON(http.StatusCreated, NewOrderResponse(order))
}

// GetOrder looks up an order by its order number.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.orders.GetOrder(c.Request().Context(), c.Param("orderNumber"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch order")
	}
	return c.JSON(http.StatusOK, NewOrderResponse(order))
}

// UpdateOrderStatus applies an administrative status change (admin only).
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	orderNumber := c.Param("orderNumber")
	err := h.orders.UpdateOrderStatus(c.Request().Context(), orderNumber, models.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Order not found")
		case errors.Is(err, services.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update order status")
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "order_number": orderNumber, "status": req.Status})
}
