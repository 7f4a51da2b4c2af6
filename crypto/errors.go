package crypto

import "errors"

// Sentinel errors for crypto package operations.
// These errors enable reliable error classification using errors.Is().

// Envelope encryption errors.
var (
	// ErrNoRecipients indicates an encrypt call with an empty recipient set.
	ErrNoRecipients = errors.New("no recipients")

	// ErrMissingPublicKey indicates a recipient without an advertised public key.
	ErrMissingPublicKey = errors.New("recipient has no public key")

	// ErrMalformedEnvelope indicates an envelope field failed the format guard.
	ErrMalformedEnvelope = errors.New("malformed envelope field")

	// ErrDecryptFailed indicates key unwrap or payload decryption failed.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Key import/export errors.
var (
	// ErrInvalidKeyEncoding indicates a key that is not valid base64 DER.
	ErrInvalidKeyEncoding = errors.New("invalid key encoding")

	// ErrNotRSAKey indicates imported key material of an unexpected type.
	ErrNotRSAKey = errors.New("key is not an RSA key")
)

// Key store errors.
var (
	// ErrStoreAuth indicates the stored data could not be authenticated,
	// typically because the passphrase is wrong or the file is corrupted.
	ErrStoreAuth = errors.New("key store authentication failed")

	// ErrStoreVersion indicates an unsupported key store file version.
	ErrStoreVersion = errors.New("unsupported key store version")
)
