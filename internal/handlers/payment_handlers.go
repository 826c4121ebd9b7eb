package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront_payments_echo/internal/models"
	"storefront_payments_echo/internal/services"
)

// Webhook signature headers sent by the gateway.
const (
	HeaderKashierSignature = "X-Kashier-Signature"
	HeaderKashierTimestamp = "X-Kashier-Timestamp"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreatePayment starts a payment attempt for an order. The service never
// errors; the HTTP status is derived from result.Success so the checkout
// UI renders a uniform failure message.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, services.PaymentResult{Success: false, Error: err.Error()})
	}

	result := h.payments.CreatePayment(c.Request().Context(), services.CreatePaymentParams{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: models.PaymentMethodCode(req.PaymentMethod),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		RedirectURL:   req.RedirectURL,
	})
	if !result.Success {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}

// GetTransaction is an advisory lookup; a missing or errored read is a
// plain 404.
func (h *PaymentHandler) GetTransaction(c echo.Context) error {
	transactionID := c.Param("transactionId")
	txn := h.payments.GetTransaction(c.Request().Context(), transactionID)
	if txn == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Transaction not found")
	}
	return c.JSON(http.StatusOK, txn)
}

// ListPaymentMethods returns the active checkout options.
func (h *PaymentHandler) ListPaymentMethods(c echo.Context) error {
	methods, err := h.payments.ListPaymentMethods(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch payment methods")
	}
	return c.JSON(http.StatusOK, methods)
}

// KashierWebhook receives gateway notifications. The body must reach the
// service raw and unparsed: parsing first would invalidate the signature
// check.
func (h *PaymentHandler) KashierWebhook(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get(HeaderKashierSignature)
	timestamp := c.Request().Header.Get(HeaderKashierTimestamp)

	result := h.payments.HandleWebhook(c.Request().Context(), rawBody, signature, timestamp)
	return c.JSON(result.StatusCode, result)
}

// UpdatePaymentStatus applies a manual transition (admin only).
func (h *PaymentHandler) UpdatePaymentStatus(c echo.Context) error {
	transactionID := c.Param("transactionId")

	var req UpdatePaymentStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.payments.UpdatePaymentStatus(c.Request().Context(), transactionID, models.TransactionStatus(req.Status), req.Details)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Transaction not found")
		case errors.Is(err, services.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update payment status")
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "transaction_id": transactionID, "status": req.Status})
}

// ListPaymentLogs returns the audit trail for a transaction (admin only).
func (h *PaymentHandler) ListPaymentLogs(c echo.Context) error {
	transactionID := c.Param("transactionId")
	logs, err := h.payments.ListLogs(c.Request().Context(), transactionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch payment logs")
	}
	return c.JSON(http.StatusOK, logs)
}
