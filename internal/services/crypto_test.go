package services

import (
	"encoding/hex"
	"strings"
	"testing"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func newTestCrypto(t *testing.T) *PaymentCrypto {
	t.Helper()
	c, err := NewPaymentCrypto("test-payment-secret", testEncryptionKey)
	if err != nil {
		t.Fatalf("NewPaymentCrypto failed: %v", err)
	}
	return c
}

func TestNewPaymentCrypto_RejectsBadConfig(t *testing.T) {
	if _, err := NewPaymentCrypto("", testEncryptionKey); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewPaymentCrypto("secret", "short-key"); err == nil {
		t.Fatal("expected error for non-32-byte encryption key")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(8)
	if err != nil {
		t.Fatalf("GenerateSecureToken failed: %v", err)
	}
	if len(token) != 16 {
		t.Errorf("expected 16 hex chars for 8 bytes, got %d", len(token))
	}
	if _, err := hex.DecodeString(token); err != nil {
		t.Errorf("token %q is not valid hex", token)
	}

	other, err := GenerateSecureToken(8)
	if err != nil {
		t.Fatalf("GenerateSecureToken failed: %v", err)
	}
	if token == other {
		t.Error("two generated tokens should not collide")
	}
}

func TestGenerateSignature_TamperDetection(t *testing.T) {
	c := newTestCrypto(t)

	sig := c.GenerateSignature("ORD-1", 500, "cod_abc123")
	if !c.VerifySignature("ORD-1", 500, "cod_abc123", sig) {
		t.Fatal("signature should verify against original inputs")
	}

	tests := []struct {
		name    string
		orderID string
		amount  float64
		txnID   string
	}{
		{name: "changed order", orderID: "ORD-2", amount: 500, txnID: "cod_abc123"},
		{name: "changed amount", orderID: "ORD-1", amount: 501, txnID: "cod_abc123"},
		{name: "changed transaction", orderID: "ORD-1", amount: 500, txnID: "cod_abc124"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c.VerifySignature(tt.orderID, tt.amount, tt.txnID, sig) {
				t.Error("tampered inputs should not verify")
			}
		})
	}

	otherSecret, err := NewPaymentCrypto("different-secret", testEncryptionKey)
	if err != nil {
		t.Fatalf("NewPaymentCrypto failed: %v", err)
	}
	if otherSecret.VerifySignature("ORD-1", 500, "cod_abc123", sig) {
		t.Error("signature from a different secret should not verify")
	}
}

func TestEncryptPaymentData_RoundTrip(t *testing.T) {
	c := newTestCrypto(t)

	plaintext := `{"customer_email":"a@b.com","customer_phone":"+201234567890"}`
	encrypted, err := c.EncryptPaymentData(plaintext)
	if err != nil {
		t.Fatalf("EncryptPaymentData failed: %v", err)
	}
	if strings.Contains(encrypted, "a@b.com") {
		t.Error("ciphertext must not contain plaintext fields")
	}

	decrypted, err := c.DecryptPaymentData(encrypted)
	if err != nil {
		t.Fatalf("DecryptPaymentData failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("round trip mismatch: got %q", decrypted)
	}

	// Random nonce: same plaintext must not produce the same ciphertext.
	encrypted2, err := c.EncryptPaymentData(plaintext)
	if err != nil {
		t.Fatalf("EncryptPaymentData failed: %v", err)
	}
	if encrypted == encrypted2 {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestDecryptPaymentData_Failures(t *testing.T) {
	c := newTestCrypto(t)

	if _, err := c.DecryptPaymentData("not-base64!!!"); err == nil {
		t.Error("expected error for invalid encoding")
	}
	if _, err := c.DecryptPaymentData("c2hvcnQ="); err == nil {
		t.Error("expected error for truncated ciphertext")
	}

	encrypted, err := c.EncryptPaymentData("secret data")
	if err != nil {
		t.Fatalf("EncryptPaymentData failed: %v", err)
	}
	otherKey, err := NewPaymentCrypto("test-payment-secret", "ffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("NewPaymentCrypto failed: %v", err)
	}
	if _, err := otherKey.DecryptPaymentData(encrypted); err == nil {
		t.Error("decryption with a different key should fail")
	}
}
