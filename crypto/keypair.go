package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
)

// KeySize is the RSA modulus size in bits for identity keypairs.
const KeySize = 2048

// WrappedKeySize is the size in bytes of an RSA-OAEP wrapped symmetric key.
const WrappedKeySize = KeySize / 8

// KeyPair represents an identity's asymmetric keypair.
//
// The private key never leaves the local device; only the public key is
// shared with other participants for envelope key wrapping.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// GenerateKeyPair creates a new random RSA-2048 identity keypair.
//
// Generation happens once at registration; failure is non-fatal to the
// application but disables encryption for the session.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "GenerateKeyPair",
			"error":    err,
		}).Error("Identity keypair generation failed")
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "GenerateKeyPair",
		"bits":     KeySize,
	}).Info("Identity keypair generated")

	return &KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}

// ExportPublicKey encodes a public key as base64 PKIX DER for sharing.
func ExportPublicKey(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", ErrNotRSAKey
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ImportPublicKey decodes a base64 PKIX DER public key received from a peer.
func ImportPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return pub, nil
}

// ExportPrivateKey encodes a private key as base64 PKCS#8 DER.
//
// The result is for local persistence only and must never be transmitted.
func ExportPrivateKey(priv *rsa.PrivateKey) (string, error) {
	der, err := MarshalPrivateKey(priv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ImportPrivateKey decodes a base64 PKCS#8 DER private key.
func ImportPrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	return ParsePrivateKey(der)
}

// MarshalPrivateKey encodes a private key as PKCS#8 DER bytes.
func MarshalPrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, ErrNotRSAKey
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return der, nil
}

// ParsePrivateKey decodes PKCS#8 DER bytes into an RSA private key.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return priv, nil
}

// Fingerprint returns a short hex fingerprint of a public key for
// out-of-band identity verification.
//
// It hashes the PKIX DER encoding with SHA-256 and truncates to 10 bytes
// (20 hex characters).
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", ErrNotRSAKey
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:10]), nil
}
