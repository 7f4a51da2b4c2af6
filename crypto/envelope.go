package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// symmetricKeySize is the one-time AES key size in bytes (AES-256).
const symmetricKeySize = 32

// Tombstone is the visible placeholder rendered in place of a message
// that could not be decrypted. A single bad message must never block
// rendering the rest of a conversation.
const Tombstone = "[unable to decrypt this message]"

// Recipient identifies an intended envelope recipient and their
// advertised public key.
type Recipient struct {
	ID        string
	PublicKey *rsa.PublicKey
}

// Envelope is the wire form of an encrypted message payload.
//
// The payload is encrypted exactly once; EncryptedKeys holds one wrapped
// copy of the one-time symmetric key per intended recipient, including
// the sender for own-device read-back. All fields are base64 text.
type Envelope struct {
	CipherText    string            `json:"cipherText"`
	IV            string            `json:"iv"`
	EncryptedKeys map[string]string `json:"encryptedKeys"`
}

// EncryptForRecipients envelope-encrypts plainText for every recipient.
//
// A fresh random AES-256 key encrypts the payload once under a random
// GCM nonce, then the key is wrapped separately with RSA-OAEP/SHA-256
// per recipient. Ciphertext size is independent of the recipient count;
// cost scales only in key wraps.
func EncryptForRecipients(plainText string, recipients []Recipient) (*Envelope, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	key := make([]byte, symmetricKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate message key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	cipherText := aead.Seal(nil, nonce, []byte(plainText), nil)

	wrapped := make(map[string]string, len(recipients))
	for _, r := range recipients {
		if r.PublicKey == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPublicKey, r.ID)
		}
		wk, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, r.PublicKey, key, nil)
		if err != nil {
			return nil, fmt.Errorf("wrap key for %s: %w", r.ID, err)
		}
		wrapped[r.ID] = base64.StdEncoding.EncodeToString(wk)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "EncryptForRecipients",
		"recipients": len(wrapped),
		"payload":    len(cipherText),
	}).Debug("Envelope encrypted")

	return &Envelope{
		CipherText:    base64.StdEncoding.EncodeToString(cipherText),
		IV:            base64.StdEncoding.EncodeToString(nonce),
		EncryptedKeys: wrapped,
	}, nil
}

// Decrypt unwraps the recipient's copy of the one-time key and decrypts
// the envelope payload.
//
// The LooksEncrypted guard runs first so plaintext or truncated fields
// never reach a cryptographic primitive.
func Decrypt(cipherText, wrappedKey, iv string, priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: no private key", ErrDecryptFailed)
	}
	if !LooksEncrypted(cipherText, wrappedKey, iv) {
		return "", ErrMalformedEnvelope
	}

	ct, err := decodeField(cipherText)
	if err != nil {
		return "", err
	}
	wk, err := decodeField(wrappedKey)
	if err != nil {
		return "", err
	}
	nonce, err := decodeField(iv)
	if err != nil {
		return "", err
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wk, nil)
	if err != nil {
		return "", fmt.Errorf("%w: unwrap key: %v", ErrDecryptFailed, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: open payload: %v", ErrDecryptFailed, err)
	}
	return string(plain), nil
}

// DecryptOrTombstone decrypts an envelope, resolving any failure to the
// visible Tombstone string instead of an error.
func DecryptOrTombstone(cipherText, wrappedKey, iv string, priv *rsa.PrivateKey) string {
	plain, err := Decrypt(cipherText, wrappedKey, iv, priv)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DecryptOrTombstone",
			"error":    err,
		}).Warn("Message decryption failed, rendering tombstone")
		return Tombstone
	}
	return plain
}
