package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBase64(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", false},
		{"plain text", "hello world", false},
		{"valid no padding", "aGVsbG8h", true},
		{"valid one pad", "aGVsbG8=", true},
		{"valid two pads", "aGVsbG8hIQ==", true},
		{"bad length", "aGVsb", false},
		{"pad in middle", "aGVs=bG8=", false},
		{"triple pad", "aGVsbG8h=x==", false},
		{"url alphabet", "aGVs-_8h", false},
		{"whitespace", "aGVs bG8=", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBase64(tt.input))
		})
	}
}

func TestDecodedLen(t *testing.T) {
	for _, raw := range []string{"", "a", "ab", "abc", "abcd", "abcde"} {
		encoded := base64.StdEncoding.EncodeToString([]byte(raw))
		if encoded == "" {
			continue
		}
		assert.Equal(t, len(raw), decodedLen(encoded), "input %q", raw)
	}
}

func TestLooksEncrypted(t *testing.T) {
	wrapped := base64.StdEncoding.EncodeToString(make([]byte, WrappedKeySize))
	iv := base64.StdEncoding.EncodeToString(make([]byte, NonceSize))
	ct := base64.StdEncoding.EncodeToString(make([]byte, 48))

	assert.True(t, LooksEncrypted(ct, wrapped, iv))

	// Legacy plaintext message: no envelope fields at all.
	assert.False(t, LooksEncrypted("hi there", "", ""))

	// Wrapped key of the wrong modulus size.
	shortKey := base64.StdEncoding.EncodeToString(make([]byte, WrappedKeySize-1))
	assert.False(t, LooksEncrypted(ct, shortKey, iv))

	// Nonce of the wrong size.
	longIV := base64.StdEncoding.EncodeToString(make([]byte, NonceSize+4))
	assert.False(t, LooksEncrypted(ct, wrapped, longIV))

	// Ciphertext shorter than the GCM tag.
	tiny := base64.StdEncoding.EncodeToString(make([]byte, gcmTagSize-1))
	assert.False(t, LooksEncrypted(tiny, wrapped, iv))

	// Base64 with a corrupted character.
	assert.False(t, LooksEncrypted(strings.Replace(ct, "A", "!", 1), wrapped, iv))
}
