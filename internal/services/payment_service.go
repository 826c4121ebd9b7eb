package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"storefront_payments_echo/internal/models"
)

// PaymentService orchestrates the payment transaction lifecycle: method
// dispatch on creation, gateway URL building, persistence, webhook-driven
// status updates, and audit logging.
type PaymentService struct {
	db      *gorm.DB
	cache   *RedisCache
	gateway *KashierService
	crypto  *PaymentCrypto
	mailer  *EmailService
}

func NewPaymentService(db *gorm.DB, cache *RedisCache, gateway *KashierService, crypto *PaymentCrypto, mailer *EmailService) *PaymentService {
	return &PaymentService{
		db:      db,
		cache:   cache,
		gateway: gateway,
		crypto:  crypto,
		mailer:  mailer,
	}
}

// CreatePaymentParams is the input to CreatePayment. OrderID is the
// external order number, not the numeric primary key.
type CreatePaymentParams struct {
	OrderID       string
	Amount        float64
	Currency      string
	PaymentMethod models.PaymentMethodCode
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	RedirectURL   string
	WebhookURL    string
}

// PaymentResult is the uniform outcome of CreatePayment. Success is
// always set; on success at least one of TransactionID/PaymentURL is
// populated, on failure Error carries a user-displayable message.
type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WebhookResult maps directly onto the HTTP response for a webhook call.
type WebhookResult struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

// LogOutcome is the result of a best-effort write. The owning operation
// never fails because of it, but tests and callers can distinguish
// "logged" from "swallowed failure".
type LogOutcome struct {
	Logged bool
	Err    error
}

// CreatePayment starts a payment attempt for an order, dispatching on
// payment method. It contractually never returns an error and never
// panics outward; every failure becomes a PaymentResult with
// Success=false so the checkout caller only branches on the flag.
func (s *PaymentService) CreatePayment(ctx context.Context, params CreatePaymentParams) (result *PaymentResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in CreatePayment: %v", r)
			result = &PaymentResult{Success: false, Error: "payment could not be processed"}
		}
	}()

	if params.OrderID == "" {
		return &PaymentResult{Success: false, Error: "orderId is required"}
	}
	if params.Amount <= 0 {
		return &PaymentResult{Success: false, Error: "amount must be positive"}
	}
	if !models.ValidPaymentMethod(params.PaymentMethod) {
		return &PaymentResult{Success: false, Error: fmt.Sprintf("unsupported payment method: %s", params.PaymentMethod)}
	}

	switch params.PaymentMethod {
	case models.PaymentMethodKashier:
		return s.createKashierPayment(ctx, params)
	case models.PaymentMethodCOD:
		return s.createOfflinePayment(ctx, params, "cod")
	default:
		return s.createOfflinePayment(ctx, params, "bank")
	}
}

// createKashierPayment builds the gateway redirect URL, then persists a
// pending transaction best-effort: the redirect URL is the critical
// deliverable, so a DB failure after a successful gateway interaction is
// logged and swallowed.
func (s *PaymentService) createKashierPayment(ctx context.Context, params CreatePaymentParams) *PaymentResult {
	urlResult, err := s.gateway.BuildPaymentURL(PaymentURLParams{
		OrderID:       params.OrderID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		RedirectURL:   params.RedirectURL,
		WebhookURL:    params.WebhookURL,
	})
	if err != nil {
		return &PaymentResult{Success: false, Error: err.Error()}
	}

	if outcome := s.persistTransaction(ctx, params, urlResult.TransactionID); !outcome.Logged {
		log.Printf("best-effort persist failed for transaction %s: %v", urlResult.TransactionID, outcome.Err)
	}

	return &PaymentResult{
		Success:       true,
		TransactionID: urlResult.TransactionID,
		PaymentURL:    urlResult.PaymentURL,
	}
}

// createOfflinePayment handles cod and bank_transfer: a local opaque
// transaction id, no external redirect, pending until manual
// confirmation.
func (s *PaymentService) createOfflinePayment(ctx context.Context, params CreatePaymentParams, prefix string) *PaymentResult {
	token, err := GenerateSecureToken(8)
	if err != nil {
		return &PaymentResult{Success: false, Error: "failed to generate transaction id"}
	}
	transactionID := prefix + "_" + token

	if outcome := s.persistTransaction(ctx, params, transactionID); !outcome.Logged {
		log.Printf("best-effort persist failed for transaction %s: %v", transactionID, outcome.Err)
	}

	return &PaymentResult{Success: true, TransactionID: transactionID}
}

// persistTransaction writes the pending transaction row plus its
// initiation log entry. Sensitive customer fields are encrypted before
// persistence; an encryption failure aborts the write entirely rather
// than storing plaintext.
func (s *PaymentService) persistTransaction(ctx context.Context, params CreatePaymentParams, transactionID string) (outcome LogOutcome) {
	// Persistence is best-effort here; even a panicking storage layer
	// must not take down the caller's redirect.
	defer func() {
		if r := recover(); r != nil {
			outcome = LogOutcome{Err: fmt.Errorf("panic during persist: %v", r)}
		}
	}()

	sensitive, err := json.Marshal(map[string]string{
		"customer_name":  params.CustomerName,
		"customer_email": params.CustomerEmail,
		"customer_phone": params.CustomerPhone,
	})
	if err != nil {
		return LogOutcome{Err: err}
	}
	encrypted, err := s.crypto.EncryptPaymentData(string(sensitive))
	if err != nil {
		return LogOutcome{Err: fmt.Errorf("failed to encrypt payment data: %w", err)}
	}

	txn := models.PaymentTransaction{
		OrderID:       params.OrderID,
		TransactionID: transactionID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		Status:        models.TransactionStatusPending,
		EncryptedData: encrypted,
		Signature:     s.crypto.GenerateSignature(params.OrderID, params.Amount, transactionID),
		InitiatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return LogOutcome{Err: err}
	}

	s.appendLog(ctx, transactionID, "payment.initiated", fmt.Sprintf("payment initiated via %s", params.PaymentMethod), map[string]interface{}{
		"order_id": params.OrderID,
		"amount":   params.Amount,
	})
	return LogOutcome{Logged: true}
}

// webhookPayload is the parsed shape of a Kashier webhook body. Fields
// outside this set survive only in the raw payload snapshot.
type webhookPayload struct {
	EventType     string  `json:"event_type"`
	TransactionID string  `json:"transaction_id"`
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	GatewayRef    string  `json:"gateway_ref"`
	Reason        string  `json:"reason"`
}

// HandleWebhook processes an inbound gateway notification. Signature
// verification happens first against the raw, unparsed body; a failure
// rejects the request with no state mutated. After that each DB step is
// independent: a failed order update does not roll back an
// already-applied transaction update.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature, timestamp string) *WebhookResult {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature, timestamp) {
		return &WebhookResult{OK: false, StatusCode: http.StatusUnauthorized, Message: "invalid webhook signature"}
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		// The signature passed, so the raw event is still recorded for
		// audit before the delivery is rejected.
		broken := models.PaymentWebhook{
			Source:            "kashier",
			Payload:           json.RawMessage(rawBody),
			Signature:         signature,
			SignatureVerified: true,
			ProcessingStatus:  models.WebhookProcessingFailed,
		}
		if err := s.db.WithContext(ctx).Create(&broken).Error; err != nil {
			log.Printf("failed to record malformed webhook event: %v", err)
		}
		return &WebhookResult{OK: false, StatusCode: http.StatusBadRequest, Message: "malformed webhook payload"}
	}

	// Audit row first, one per delivery. Gateway retries produce
	// duplicate rows by design.
	webhookRow := models.PaymentWebhook{
		Source:            "kashier",
		EventType:         payload.EventType,
		TransactionID:     payload.TransactionID,
		Payload:           json.RawMessage(rawBody),
		Signature:         signature,
		SignatureVerified: true,
		ProcessingStatus:  models.WebhookProcessingReceived,
	}
	if err := s.db.WithContext(ctx).Create(&webhookRow).Error; err != nil {
		log.Printf("failed to record webhook event: %v", err)
	}

	status := models.WebhookProcessingProcessed
	switch payload.EventType {
	case "payment.completed", "payment.success":
		s.applyCompleted(ctx, &payload, rawBody)
	case "payment.failed":
		s.applyFailed(ctx, &payload, rawBody)
	case "payment.refunded":
		s.applyRefunded(ctx, &payload, rawBody)
	default:
		log.Printf("ignoring unknown webhook event type %q", payload.EventType)
		s.appendLog(ctx, payload.TransactionID, "webhook.ignored", fmt.Sprintf("unknown event type %s", payload.EventType), nil)
		status = models.WebhookProcessingIgnored
	}

	if webhookRow.ID != 0 {
		webhookRow.ProcessingStatus = status
		if err := s.db.WithContext(ctx).Save(&webhookRow).Error; err != nil {
			log.Printf("failed to update webhook row %d: %v", webhookRow.ID, err)
		}
	}

	return &WebhookResult{OK: true, StatusCode: http.StatusOK, Message: "webhook processed"}
}

func (s *PaymentService) applyCompleted(ctx context.Context, payload *webhookPayload, rawBody []byte) {
	// A missing transaction row does not stop the order update below:
	// the pending insert at CreatePayment time is best-effort and may
	// have been swallowed, but the customer still paid.
	txn, err := s.loadTransaction(ctx, payload.TransactionID)
	if err != nil {
		log.Printf("webhook completed: transaction %s not found: %v", payload.TransactionID, err)
	}

	// Redelivered completions converge without a second write.
	if txn == nil {
		// Order update only.
	} else if txn.Status == models.TransactionStatusCompleted {
		s.appendLog(ctx, txn.TransactionID, "webhook.duplicate", "completion already applied", nil)
	} else if !txn.CanTransitionTo(models.TransactionStatusCompleted) {
		s.appendLog(ctx, txn.TransactionID, "webhook.rejected", fmt.Sprintf("illegal transition %s -> completed", txn.Status), nil)
		return
	} else {
		now := time.Now()
		txn.Status = models.TransactionStatusCompleted
		txn.CompletedAt = &now
		txn.GatewayResponse = json.RawMessage(rawBody)
		if err := s.db.WithContext(ctx).Save(txn).Error; err != nil {
			log.Printf("failed to mark transaction %s completed: %v", txn.TransactionID, err)
			// The order update below still runs; steps are independent.
		} else {
			s.invalidateTransactionCache(ctx, txn.TransactionID)
			s.appendLog(ctx, txn.TransactionID, "payment.completed", "payment completed via webhook", nil)
			s.sendConfirmationEmail(txn)
		}
	}

	if payload.OrderID != "" {
		updates := map[string]interface{}{
			"payment_status": models.OrderPaymentPaid,
			"status":         models.OrderStatusProcessing,
		}
		if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", payload.OrderID).Updates(updates).Error; err != nil {
			log.Printf("failed to mark order %s paid: %v", payload.OrderID, err)
		}
	}
}

func (s *PaymentService) applyFailed(ctx context.Context, payload *webhookPayload, rawBody []byte) {
	// As in applyCompleted, a missing transaction row still lets the
	// order's payment status be corrected.
	txn, err := s.loadTransaction(ctx, payload.TransactionID)
	if err != nil {
		log.Printf("webhook failed: transaction %s not found: %v", payload.TransactionID, err)
	}

	if txn == nil {
		// Order update only.
	} else if txn.Status == models.TransactionStatusFailed {
		s.appendLog(ctx, txn.TransactionID, "webhook.duplicate", "failure already applied", nil)
	} else if !txn.CanTransitionTo(models.TransactionStatusFailed) {
		s.appendLog(ctx, txn.TransactionID, "webhook.rejected", fmt.Sprintf("illegal transition %s -> failed", txn.Status), nil)
		return
	} else {
		now := time.Now()
		txn.Status = models.TransactionStatusFailed
		txn.FailedAt = &now
		txn.GatewayResponse = json.RawMessage(rawBody)
		if err := s.db.WithContext(ctx).Save(txn).Error; err != nil {
			log.Printf("failed to mark transaction %s failed: %v", txn.TransactionID, err)
		} else {
			s.invalidateTransactionCache(ctx, txn.TransactionID)
			s.appendLog(ctx, txn.TransactionID, "payment.failed", payload.Reason, nil)
		}
	}

	if payload.OrderID == "" {
		return
	}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", payload.OrderID).
		Update("payment_status", models.OrderPaymentFailed).Error; err != nil {
		log.Printf("failed to mark order %s payment failed: %v", payload.OrderID, err)
	}
}

func (s *PaymentService) applyRefunded(ctx context.Context, payload *webhookPayload, rawBody []byte) {
	refund := models.PaymentRefund{
		TransactionID: payload.TransactionID,
		OrderID:       payload.OrderID,
		Amount:        payload.Amount,
		Currency:      payload.Currency,
		Reason:        payload.Reason,
		GatewayRef:    payload.GatewayRef,
		RawPayload:    json.RawMessage(rawBody),
		RefundDate:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&refund).Error; err != nil {
		log.Printf("failed to record refund for transaction %s: %v", payload.TransactionID, err)
	}

	txn, err := s.loadTransaction(ctx, payload.TransactionID)
	if err != nil {
		log.Printf("webhook refunded: transaction %s not found: %v", payload.TransactionID, err)
		return
	}
	if !txn.CanTransitionTo(models.TransactionStatusRefunded) {
		s.appendLog(ctx, txn.TransactionID, "webhook.rejected", fmt.Sprintf("illegal transition %s -> refunded", txn.Status), nil)
		return
	}
	txn.Status = models.TransactionStatusRefunded
	if err := s.db.WithContext(ctx).Save(txn).Error; err != nil {
		log.Printf("failed to mark transaction %s refunded: %v", txn.TransactionID, err)
		return
	}
	s.invalidateTransactionCache(ctx, txn.TransactionID)
	s.appendLog(ctx, txn.TransactionID, "payment.refunded", "refund recorded via webhook", nil)
}

// UpdatePaymentStatus applies a manual/administrative status transition.
// Unlike webhook processing it returns errors to the caller, but the
// audit log append stays best-effort.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, transactionID string, status models.TransactionStatus, details map[string]interface{}) error {
	txn, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if !txn.CanTransitionTo(status) {
		if txn.IsTerminal() {
			return fmt.Errorf("%w: transaction %s is already terminal in state %s", ErrValidation, transactionID, txn.Status)
		}
		return fmt.Errorf("%w: cannot transition %s from %s to %s", ErrValidation, transactionID, txn.Status, status)
	}

	now := time.Now()
	txn.Status = status
	switch status {
	case models.TransactionStatusCompleted:
		txn.CompletedAt = &now
	case models.TransactionStatusFailed:
		txn.FailedAt = &now
	}
	if err := s.db.WithContext(ctx).Save(txn).Error; err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
	}
	s.invalidateTransactionCache(ctx, transactionID)

	if outcome := s.appendLog(ctx, transactionID, "status.updated", fmt.Sprintf("status set to %s", status), details); !outcome.Logged {
		log.Printf("best-effort log append failed for %s: %v", transactionID, outcome.Err)
	}
	return nil
}

// GetTransaction is an advisory read: it returns nil on any error rather
// than failing the caller. Hot lookups go through the cache; the stored
// record signature is tamper-checked on every DB fetch before the row is
// served or cached.
func (s *PaymentService) GetTransaction(ctx context.Context, transactionID string) *models.PaymentTransaction {
	fetch := func() (models.PaymentTransaction, error) {
		var t models.PaymentTransaction
		if err := s.db.WithContext(ctx).Preload("Order").Where("transaction_id = ?", transactionID).First(&t).Error; err != nil {
			return t, err
		}
		if !s.crypto.VerifySignature(t.OrderID, t.Amount, t.TransactionID, t.Signature) {
			log.Printf("record signature mismatch for transaction %s", transactionID)
			return t, fmt.Errorf("transaction %s failed tamper check", transactionID)
		}
		return t, nil
	}

	if s.cache != nil {
		txn, err := GetOrSet(s.cache, ctx, transactionCacheKey(transactionID), 5*time.Minute, fetch)
		if err != nil {
			return nil
		}
		return &txn
	}

	txn, err := fetch()
	if err != nil {
		return nil
	}
	return &txn
}

// ListLogs returns the audit trail for a transaction, oldest first.
func (s *PaymentService) ListLogs(ctx context.Context, transactionID string) ([]models.PaymentLog, error) {
	var logs []models.PaymentLog
	err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Order("created_at asc").Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// ListPaymentMethods returns active methods for checkout, cached.
func (s *PaymentService) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	fetch := func() ([]models.PaymentMethod, error) {
		var methods []models.PaymentMethod
		err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order asc").Find(&methods).Error
		return methods, err
	}
	if s.cache == nil {
		return fetch()
	}
	return GetOrSet(s.cache, ctx, "payment:methods", 10*time.Minute, fetch)
}

func (s *PaymentService) loadTransaction(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&txn).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, transactionID)
		}
		return nil, err
	}
	return &txn, nil
}

// appendLog writes an audit event. Best-effort: the caller decides
// whether a swallowed failure is worth a log line.
func (s *PaymentService) appendLog(ctx context.Context, transactionID, eventType, message string, details map[string]interface{}) LogOutcome {
	var detailsJSON json.RawMessage
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return LogOutcome{Err: err}
		}
		detailsJSON = data
	}
	entry := models.PaymentLog{
		TransactionID: transactionID,
		EventType:     eventType,
		Message:       message,
		Details:       detailsJSON,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return LogOutcome{Err: err}
	}
	return LogOutcome{Logged: true}
}

func (s *PaymentService) invalidateTransactionCache(ctx context.Context, transactionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, transactionCacheKey(transactionID)); err != nil {
		log.Printf("failed to invalidate cache for %s: %v", transactionID, err)
	}
}

func transactionCacheKey(transactionID string) string {
	return "payment:txn:" + transactionID
}

// sendConfirmationEmail notifies the customer after a completed payment.
// Best-effort; the customer fields live encrypted on the transaction row.
func (s *PaymentService) sendConfirmationEmail(txn *models.PaymentTransaction) {
	if s.mailer == nil || txn == nil {
		return
	}
	decrypted, err := s.crypto.DecryptPaymentData(txn.EncryptedData)
	if err != nil {
		log.Printf("failed to decrypt customer data for %s: %v", txn.TransactionID, err)
		return
	}
	var customer struct {
		Name  string `json:"customer_name"`
		Email string `json:"customer_email"`
	}
	if err := json.Unmarshal([]byte(decrypted), &customer); err != nil || customer.Email == "" {
		return
	}

	subject := fmt.Sprintf("Payment received for order %s", txn.OrderID)
	body := fmt.Sprintf("Hi %s,\n\nWe received your payment of %.2f %s for order %s.\nTransaction reference: %s\n\nThank you for shopping with us.",
		customer.Name, txn.Amount, txn.Currency, txn.OrderID, txn.TransactionID)
	if err := s.mailer.SendEmail([]string{customer.Email}, subject, body); err != nil {
		log.Printf("failed to send confirmation email for %s: %v", txn.TransactionID, err)
	}
}
