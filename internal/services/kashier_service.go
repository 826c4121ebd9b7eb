package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"storefront_payments_echo/internal/config"
)

// KashierService builds hosted-checkout redirect URLs for the Kashier
// gateway and verifies inbound webhook signatures. It holds no network
// state; every call is a pure transformation over its inputs plus the
// merchant credentials supplied at construction time.
type KashierService struct {
	merchantID    string
	apiKey        string
	webhookSecret string
	checkoutURL   string
	webhookURL    string
	mode          string
}

func NewKashierService(cfg config.KashierConfig) *KashierService {
	return &KashierService{
		merchantID:    cfg.MerchantID,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		checkoutURL:   cfg.CheckoutURL,
		webhookURL:    cfg.WebhookURL,
		mode:          cfg.Mode,
	}
}

// PaymentURLParams is the input to BuildPaymentURL.
type PaymentURLParams struct {
	OrderID       string
	Amount        float64
	Currency      string
	CustomerName  string
	CustomerEmail string
	RedirectURL   string
	WebhookURL    string
}

// PaymentURLResult carries the locally generated transaction id and the
// fully-formed redirect URL for the hosted checkout page.
type PaymentURLResult struct {
	TransactionID string
	PaymentURL    string
}

// BuildPaymentURL constructs the signed checkout-initiation URL. The
// request hash is an HMAC-SHA256 over the Kashier payment path
// "/?payment=merchantId.orderId.amount.currency" using the merchant API
// key.
func (s *KashierService) BuildPaymentURL(params PaymentURLParams) (*PaymentURLResult, error) {
	if strings.TrimSpace(params.OrderID) == "" {
		return nil, fmt.Errorf("%w: orderId is required", ErrValidation)
	}
	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	token, err := GenerateSecureToken(8)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	transactionID := "kashier_" + token

	amount := strconv.FormatFloat(params.Amount, 'f', 2, 64)
	path := fmt.Sprintf("/?payment=%s.%s.%s.%s", s.merchantID, params.OrderID, amount, params.Currency)
	mac := hmac.New(sha256.New, []byte(s.apiKey))
	mac.Write([]byte(path))
	hash := hex.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	q.Set("merchantId", s.merchantID)
	q.Set("orderId", params.OrderID)
	q.Set("amount", amount)
	q.Set("currency", params.Currency)
	q.Set("hash", hash)
	q.Set("mode", s.mode)
	q.Set("merchantRedirect", params.RedirectURL)
	webhook := params.WebhookURL
	if webhook == "" {
		webhook = s.webhookURL
	}
	q.Set("serverWebhook", webhook)
	q.Set("metaData", fmt.Sprintf(`{"transactionId":"%s"}`, transactionID))
	if params.CustomerEmail != "" {
		q.Set("customerEmail", params.CustomerEmail)
	}
	if params.CustomerName != "" {
		q.Set("customerName", params.CustomerName)
	}
	q.Set("display", "en")

	return &PaymentURLResult{
		TransactionID: transactionID,
		PaymentURL:    s.checkoutURL + "/?" + q.Encode(),
	}, nil
}

// VerifyWebhookSignature recomputes the HMAC-SHA256 over
// timestamp + "." + rawBody and compares in constant time. Any internal
// error (empty inputs, malformed hex) counts as verification failure;
// this function is fail-closed and never returns an error.
func (s *KashierService) VerifyWebhookSignature(rawBody []byte, signature, timestamp string) bool {
	sig := strings.TrimSpace(signature)
	if sig == "" || s.webhookSecret == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), decoded)
}
