// Package webhook verifies and decrypts inbound marketplace webhooks.
// Payloads arrive AES-256-GCM encrypted and HMAC-SHA256 signed over
// the webhook id, type and ciphertext.
package webhook

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

type Verifier struct {
	aead   cipher.AEAD
	macKey []byte
}

// NewVerifier builds a verifier from a 32-byte AES key and the HMAC
// signing key.
func NewVerifier(encKey, macKey []byte) (*Verifier, error) {
	if len(encKey) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(encKey))
	}
	if len(macKey) == 0 {
		return nil, fmt.Errorf("signature key must not be empty")
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Verifier{aead: aead, macKey: macKey}, nil
}

// TryDecryptAndVerify checks the signature over id|type|ciphertext and,
// only if it matches, decrypts the payload. The ciphertext is base64
// with the GCM nonce prepended; the signature is lowercase hex. A
// false result carries no detail about which check failed.
func (v *Verifier) TryDecryptAndVerify(id, typ, ciphertext, signature string) (string, bool) {
	mac := hmac.New(sha256.New, v.macKey)
	mac.Write([]byte(id))
	mac.Write([]byte("|"))
	mac.Write([]byte(typ))
	mac.Write([]byte("|"))
	mac.Write([]byte(ciphertext))

	want, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(mac.Sum(nil), want) {
		return "", false
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < v.aead.NonceSize() {
		return "", false
	}

	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}
