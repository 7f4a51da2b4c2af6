package crypto

import "encoding/base64"

// NonceSize is the AES-GCM nonce size in bytes used for envelope payloads.
const NonceSize = 12

// gcmTagSize is the AES-GCM authentication tag size in bytes.
const gcmTagSize = 16

// IsBase64 reports whether s is non-empty, padded standard base64.
//
// The check walks the string without decoding so malformed input is
// rejected before any allocation or cryptographic work.
func IsBase64(s string) bool {
	if s == "" || len(s)%4 != 0 {
		return false
	}
	padding := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
			if padding > 0 {
				return false
			}
		case c == '=':
			padding++
			if padding > 2 || i < len(s)-2 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// decodedLen returns the exact decoded byte length of padded base64 text.
// The input must already satisfy IsBase64.
func decodedLen(s string) int {
	n := len(s) / 4 * 3
	if len(s) >= 2 {
		if s[len(s)-1] == '=' {
			n--
		}
		if s[len(s)-2] == '=' {
			n--
		}
	}
	return n
}

// LooksEncrypted is the cheap format guard that runs before any
// cryptographic operation on an incoming message.
//
// It reports whether all three envelope fields are syntactically plausible
// encoded binary: valid base64, a wrapped key of exactly the RSA modulus
// size, a nonce of the GCM nonce size, and a ciphertext at least as long
// as the authentication tag. Legacy plaintext messages lacking an
// envelope fail this guard and are never routed into decryption.
func LooksEncrypted(cipherText, wrappedKey, iv string) bool {
	if !IsBase64(cipherText) || !IsBase64(wrappedKey) || !IsBase64(iv) {
		return false
	}
	if decodedLen(wrappedKey) != WrappedKeySize {
		return false
	}
	if decodedLen(iv) != NonceSize {
		return false
	}
	return decodedLen(cipherText) >= gcmTagSize
}

// decodeField decodes a guard-checked base64 envelope field.
func decodeField(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}
	return b, nil
}
