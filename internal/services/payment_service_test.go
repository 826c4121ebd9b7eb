package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront_payments_echo/internal/config"
	"storefront_payments_echo/internal/models"
)

// newTestPaymentService builds a service without a database. Validation
// and gateway behavior run before any persistence, and persistence
// itself is best-effort, so these paths are exercisable in isolation.
func newTestPaymentService(t *testing.T) *PaymentService {
	t.Helper()
	crypto, err := NewPaymentCrypto("test-payment-secret", testEncryptionKey)
	if err != nil {
		t.Fatalf("NewPaymentCrypto failed: %v", err)
	}
	return NewPaymentService(nil, nil, newTestGateway(), crypto, nil)
}

// newDBTestPaymentService backs the service with an in-memory sqlite
// database so webhook and status-update flows can be exercised end to
// end. A single connection keeps the :memory: database alive for the
// whole test.
func newDBTestPaymentService(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	crypto, err := NewPaymentCrypto("test-payment-secret", testEncryptionKey)
	if err != nil {
		t.Fatalf("NewPaymentCrypto failed: %v", err)
	}
	return NewPaymentService(db, nil, newTestGateway(), crypto, nil), db
}

func seedOrder(t *testing.T, db *gorm.DB, orderNumber string) *models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:   orderNumber,
		CustomerName:  "Test",
		CustomerEmail: "a@b.com",
		Subtotal:      500,
		Total:         500,
		PaymentMethod: "kashier",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.OrderPaymentPending,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return &order
}

func seedTransaction(t *testing.T, svc *PaymentService, db *gorm.DB, orderNumber, transactionID string, status models.TransactionStatus) *models.PaymentTransaction {
	t.Helper()
	txn := models.PaymentTransaction{
		OrderID:       orderNumber,
		TransactionID: transactionID,
		Amount:        500,
		Currency:      "EGP",
		Status:        status,
		Signature:     svc.crypto.GenerateSignature(orderNumber, 500, transactionID),
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("failed to seed transaction: %v", err)
	}
	return &txn
}

func deliverWebhook(t *testing.T, svc *PaymentService, body string) *WebhookResult {
	t.Helper()
	ts := "1725100000"
	sig := signWebhook("test-webhook-secret", ts, []byte(body))
	return svc.HandleWebhook(context.Background(), []byte(body), sig, ts)
}

func TestCreatePayment_Validation(t *testing.T) {
	svc := newTestPaymentService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params CreatePaymentParams
	}{
		{
			name:   "missing order id",
			params: CreatePaymentParams{Amount: 100, PaymentMethod: models.PaymentMethodCOD},
		},
		{
			name:   "zero amount",
			params: CreatePaymentParams{OrderID: "ORD-1", Amount: 0, PaymentMethod: models.PaymentMethodCOD},
		},
		{
			name:   "negative amount",
			params: CreatePaymentParams{OrderID: "ORD-1", Amount: -10, PaymentMethod: models.PaymentMethodKashier},
		},
		{
			name:   "unsupported method",
			params: CreatePaymentParams{OrderID: "ORD-1", Amount: 100, PaymentMethod: "paypal"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.CreatePayment(ctx, tt.params)
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Error)
			assert.Empty(t, result.TransactionID)
			assert.Empty(t, result.PaymentURL)
		})
	}
}

func TestCreatePayment_CODGeneratesLocalTransactionID(t *testing.T) {
	svc := newTestPaymentService(t)

	result := svc.CreatePayment(context.Background(), CreatePaymentParams{
		OrderID:       "ORD-1",
		Amount:        500,
		Currency:      "EGP",
		PaymentMethod: models.PaymentMethodCOD,
		CustomerName:  "Test",
		CustomerEmail: "a@b.com",
	})

	assert.True(t, result.Success)
	assert.Empty(t, result.PaymentURL, "cod payments have no redirect")
	assert.True(t, strings.HasPrefix(result.TransactionID, "cod_"))
	assert.Len(t, strings.TrimPrefix(result.TransactionID, "cod_"), 16)
}

func TestCreatePayment_BankTransferPrefix(t *testing.T) {
	svc := newTestPaymentService(t)

	result := svc.CreatePayment(context.Background(), CreatePaymentParams{
		OrderID:       "ORD-1",
		Amount:        250,
		PaymentMethod: models.PaymentMethodBankTransfer,
	})

	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.TransactionID, "bank_"))
}

func TestCreatePayment_KashierReturnsRedirectURL(t *testing.T) {
	svc := newTestPaymentService(t)

	result := svc.CreatePayment(context.Background(), CreatePaymentParams{
		OrderID:       "ORD-1",
		Amount:        499.5,
		Currency:      "EGP",
		PaymentMethod: models.PaymentMethodKashier,
		CustomerEmail: "a@b.com",
	})

	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.TransactionID, "kashier_"))
	assert.NotEmpty(t, result.PaymentURL)
	assert.Contains(t, result.PaymentURL, "ORD-1")
}

func TestCreatePayment_CODPersistsPendingTransaction(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-10")

	result := svc.CreatePayment(context.Background(), CreatePaymentParams{
		OrderID:       "ORD-10",
		Amount:        500,
		Currency:      "EGP",
		PaymentMethod: models.PaymentMethodCOD,
		CustomerName:  "Test",
		CustomerEmail: "a@b.com",
	})
	assert.True(t, result.Success)

	var txn models.PaymentTransaction
	err := db.Where("transaction_id = ?", result.TransactionID).First(&txn).Error
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
	assert.Equal(t, "ORD-10", txn.OrderID)
	assert.NotEmpty(t, txn.EncryptedData)
	assert.NotContains(t, txn.EncryptedData, "a@b.com")

	var logs []models.PaymentLog
	assert.NoError(t, db.Where("transaction_id = ?", result.TransactionID).Find(&logs).Error)
	assert.Len(t, logs, 1)
	assert.Equal(t, "payment.initiated", logs[0].EventType)
}

func TestHandleWebhook_InvalidSignatureRejectedBeforeAnyWrite(t *testing.T) {
	svc := newTestPaymentService(t)
	body := []byte(`{"event_type":"payment.completed","transaction_id":"kashier_abc"}`)

	// The service has no database; reaching any persistence step would
	// panic, so a clean 401 also proves nothing was written.
	result := svc.HandleWebhook(context.Background(), body, "deadbeef", "1725100000")

	assert.False(t, result.OK)
	assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
}

func TestHandleWebhook_MalformedPayloadRecordsAuditRow(t *testing.T) {
	svc, db := newDBTestPaymentService(t)

	result := deliverWebhook(t, svc, `{not-json`)

	assert.False(t, result.OK)
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)

	// Signature passed, so the raw event is still on record.
	var hooks []models.PaymentWebhook
	assert.NoError(t, db.Find(&hooks).Error)
	if assert.Len(t, hooks, 1) {
		assert.True(t, hooks[0].SignatureVerified)
		assert.Equal(t, models.WebhookProcessingFailed, hooks[0].ProcessingStatus)
	}
}

func TestHandleWebhook_CompletedMarksTransactionAndOrder(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-20")
	seedTransaction(t, svc, db, "ORD-20", "kashier_aaa", models.TransactionStatusPending)

	result := deliverWebhook(t, svc, `{"event_type":"payment.completed","transaction_id":"kashier_aaa","order_id":"ORD-20"}`)
	assert.True(t, result.OK)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	var txn models.PaymentTransaction
	assert.NoError(t, db.Where("transaction_id = ?", "kashier_aaa").First(&txn).Error)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.NotNil(t, txn.CompletedAt)

	var order models.Order
	assert.NoError(t, db.Where("order_number = ?", "ORD-20").First(&order).Error)
	assert.Equal(t, models.OrderPaymentPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	var hook models.PaymentWebhook
	assert.NoError(t, db.Where("transaction_id = ?", "kashier_aaa").First(&hook).Error)
	assert.Equal(t, models.WebhookProcessingProcessed, hook.ProcessingStatus)
}

func TestHandleWebhook_FailedStampsFailedAtAndOrder(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-21")
	seedTransaction(t, svc, db, "ORD-21", "kashier_bbb", models.TransactionStatusPending)

	result := deliverWebhook(t, svc, `{"event_type":"payment.failed","transaction_id":"kashier_bbb","order_id":"ORD-21","reason":"card declined"}`)
	assert.True(t, result.OK)

	var txn models.PaymentTransaction
	assert.NoError(t, db.Where("transaction_id = ?", "kashier_bbb").First(&txn).Error)
	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.NotNil(t, txn.FailedAt)

	var order models.Order
	assert.NoError(t, db.Where("order_number = ?", "ORD-21").First(&order).Error)
	assert.Equal(t, models.OrderPaymentFailed, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.Status, "failed payments leave the order status alone")
}

func TestHandleWebhook_DuplicateCompletedConverges(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-22")
	seedTransaction(t, svc, db, "ORD-22", "kashier_ccc", models.TransactionStatusPending)

	body := `{"event_type":"payment.completed","transaction_id":"kashier_ccc","order_id":"ORD-22"}`
	assert.True(t, deliverWebhook(t, svc, body).OK)
	assert.True(t, deliverWebhook(t, svc, body).OK)

	var txn models.PaymentTransaction
	assert.NoError(t, db.Where("transaction_id = ?", "kashier_ccc").First(&txn).Error)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)

	// Every delivery leaves an audit row; the state converges anyway.
	var hookCount int64
	assert.NoError(t, db.Model(&models.PaymentWebhook{}).Where("transaction_id = ?", "kashier_ccc").Count(&hookCount).Error)
	assert.Equal(t, int64(2), hookCount)

	var dupes int64
	assert.NoError(t, db.Model(&models.PaymentLog{}).Where("transaction_id = ? AND event_type = ?", "kashier_ccc", "webhook.duplicate").Count(&dupes).Error)
	assert.Equal(t, int64(1), dupes)
}

func TestHandleWebhook_RefundReplayDuplicatesRefundRowsOnly(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-23")
	seedTransaction(t, svc, db, "ORD-23", "kashier_ddd", models.TransactionStatusCompleted)

	body := `{"event_type":"payment.refunded","transaction_id":"kashier_ddd","order_id":"ORD-23","amount":500,"currency":"EGP","reason":"customer request"}`
	assert.True(t, deliverWebhook(t, svc, body).OK)
	assert.True(t, deliverWebhook(t, svc, body).OK)

	// No idempotency key: the replay inserts a second refund row, but
	// the status transition only applies once.
	var refunds int64
	assert.NoError(t, db.Model(&models.PaymentRefund{}).Where("transaction_id = ?", "kashier_ddd").Count(&refunds).Error)
	assert.Equal(t, int64(2), refunds)

	var txn models.PaymentTransaction
	assert.NoError(t, db.Where("transaction_id = ?", "kashier_ddd").First(&txn).Error)
	assert.Equal(t, models.TransactionStatusRefunded, txn.Status)
}

func TestHandleWebhook_CompletedWithoutTransactionStillMarksOrderPaid(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-24")

	// The pending insert at CreatePayment time is best-effort and can be
	// swallowed; the order update must not depend on the row existing.
	result := deliverWebhook(t, svc, `{"event_type":"payment.completed","transaction_id":"kashier_lost","order_id":"ORD-24"}`)
	assert.True(t, result.OK)

	var order models.Order
	assert.NoError(t, db.Where("order_number = ?", "ORD-24").First(&order).Error)
	assert.Equal(t, models.OrderPaymentPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
}

func TestHandleWebhook_UnknownEventTypeIgnored(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-25")
	seedTransaction(t, svc, db, "ORD-25", "kashier_eee", models.TransactionStatusPending)

	result := deliverWebhook(t, svc, `{"event_type":"payment.chargeback","transaction_id":"kashier_eee","order_id":"ORD-25"}`)
	assert.True(t, result.OK)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	var txn models.PaymentTransaction
	assert.NoError(t, db.Where("transaction_id = ?", "kashier_eee").First(&txn).Error)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)

	var hook models.PaymentWebhook
	assert.NoError(t, db.Where("transaction_id = ?", "kashier_eee").First(&hook).Error)
	assert.Equal(t, models.WebhookProcessingIgnored, hook.ProcessingStatus)
}

func TestUpdatePaymentStatus_ManualTransition(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-30")
	seedTransaction(t, svc, db, "ORD-30", "bank_fff", models.TransactionStatusPending)
	ctx := context.Background()

	err := svc.UpdatePaymentStatus(ctx, "bank_fff", models.TransactionStatusCompleted, map[string]interface{}{"confirmed_by": "staff"})
	assert.NoError(t, err)

	var txn models.PaymentTransaction
	assert.NoError(t, db.Where("transaction_id = ?", "bank_fff").First(&txn).Error)
	assert.Equal(t, models.TransactionStatusCompleted, txn.Status)
	assert.NotNil(t, txn.CompletedAt)
	assert.WithinDuration(t, time.Now(), *txn.CompletedAt, time.Minute)

	var logs int64
	assert.NoError(t, db.Model(&models.PaymentLog{}).Where("transaction_id = ? AND event_type = ?", "bank_fff", "status.updated").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)

	// Terminal states only admit the refund edge.
	err = svc.UpdatePaymentStatus(ctx, "bank_fff", models.TransactionStatusPending, nil)
	assert.ErrorIs(t, err, ErrValidation)
	err = svc.UpdatePaymentStatus(ctx, "bank_fff", models.TransactionStatusRefunded, nil)
	assert.NoError(t, err)

	err = svc.UpdatePaymentStatus(ctx, "no_such_txn", models.TransactionStatusCompleted, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetTransaction_TamperCheck(t *testing.T) {
	svc, db := newDBTestPaymentService(t)
	seedOrder(t, db, "ORD-40")
	seedTransaction(t, svc, db, "ORD-40", "kashier_ggg", models.TransactionStatusPending)

	txn := svc.GetTransaction(context.Background(), "kashier_ggg")
	if assert.NotNil(t, txn) {
		assert.Equal(t, "ORD-40", txn.OrderID)
	}

	// A row whose stored amount no longer matches its signature is
	// refused rather than served.
	assert.NoError(t, db.Model(&models.PaymentTransaction{}).Where("transaction_id = ?", "kashier_ggg").Update("amount", 9999).Error)
	assert.Nil(t, svc.GetTransaction(context.Background(), "kashier_ggg"))
}

func TestNewKashierServiceUsesExplicitConfig(t *testing.T) {
	gw := NewKashierService(config.KashierConfig{
		MerchantID:    "MID-A",
		APIKey:        "key-a",
		WebhookSecret: "secret-a",
		CheckoutURL:   "https://checkout.kashier.io",
		Mode:          "live",
	})
	body := []byte(`{}`)
	sig := signWebhook("secret-a", "1", body)
	assert.True(t, gw.VerifyWebhookSignature(body, sig, "1"))

	other := newTestGateway()
	assert.False(t, other.VerifyWebhookSignature(body, sig, "1"), "secrets must not be shared across instances")
}
