package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// PaymentCrypto provides the stateless signing and encryption helpers
// used by the payment service: opaque transaction tokens, HMAC record
// signatures, and at-rest encryption of sensitive customer fields.
type PaymentCrypto struct {
	secret []byte
	encKey []byte
}

// NewPaymentCrypto builds the helper from the server-side signing secret
// and a 32-byte AES-256 key.
func NewPaymentCrypto(secret, encryptionKey string) (*PaymentCrypto, error) {
	if secret == "" {
		return nil, errors.New("payment secret is required")
	}
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("payment encryption key must be 32 bytes, got %d", len(encryptionKey))
	}
	return &PaymentCrypto{
		secret: []byte(secret),
		encKey: []byte(encryptionKey),
	}, nil
}

// GenerateSecureToken returns byteLength random bytes hex-encoded, so the
// resulting string is 2*byteLength characters.
func GenerateSecureToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateSignature computes an HMAC-SHA256 over orderId:amount:transactionId.
// The signature is stored alongside the transaction for tamper detection.
func (c *PaymentCrypto) GenerateSignature(orderID string, amount float64, transactionID string) string {
	payload := orderID + ":" + strconv.FormatFloat(amount, 'f', 2, 64) + ":" + transactionID
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the record signature and compares in
// constant time.
func (c *PaymentCrypto) VerifySignature(orderID string, amount float64, transactionID, signature string) bool {
	expected := c.GenerateSignature(orderID, amount, transactionID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// EncryptPaymentData encrypts a JSON blob of sensitive customer fields
// with AES-256-GCM. The random nonce is prepended to the ciphertext and
// the result is base64-encoded. A failure here must abort the caller's
// persistence path.
func (c *PaymentCrypto) EncryptPaymentData(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to init gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptPaymentData reverses EncryptPaymentData.
func (c *PaymentCrypto) DecryptPaymentData(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.New("invalid ciphertext encoding")
	}
	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to init gcm: %w", err)
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("decryption failed")
	}
	return string(plaintext), nil
}
