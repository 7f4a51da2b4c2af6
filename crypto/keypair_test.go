package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NotNil(t, kp.Public)
	require.NotNil(t, kp.Private)
	assert.Equal(t, KeySize, kp.Public.N.BitLen())
}

func TestPublicKeyExportImport(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	encoded, err := ExportPublicKey(kp.Public)
	require.NoError(t, err)
	assert.True(t, IsBase64(encoded), "exported key must be base64 text")

	pub, err := ImportPublicKey(encoded)
	require.NoError(t, err)
	assert.True(t, pub.Equal(kp.Public))
}

func TestPrivateKeyExportImport(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	encoded, err := ExportPrivateKey(kp.Private)
	require.NoError(t, err)

	priv, err := ImportPrivateKey(encoded)
	require.NoError(t, err)
	assert.True(t, priv.Equal(kp.Private))
}

func TestImportPublicKeyRejectsGarbage(t *testing.T) {
	_, err := ImportPublicKey("not base64 at all")
	assert.ErrorIs(t, err, ErrInvalidKeyEncoding)

	_, err = ImportPublicKey("aGVsbG8=") // valid base64, not DER
	assert.ErrorIs(t, err, ErrInvalidKeyEncoding)
}

func TestFingerprint(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	fp1, err := Fingerprint(kp.Public)
	require.NoError(t, err)
	fp2, err := Fingerprint(kp.Public)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2, "fingerprint must be deterministic")
	assert.Len(t, fp1, 20)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	fp3, err := Fingerprint(other.Public)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)

	_, err = Fingerprint(nil)
	assert.Error(t, err)
}
