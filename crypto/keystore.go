package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// storeIterations is the PBKDF2 iteration count for the at-rest key.
	storeIterations = 100000
	// storeVersion is the current key store file format version.
	storeVersion = 1
	// storeSaltSize is the PBKDF2 salt size in bytes.
	storeSaltSize = 32

	saltFileName     = ".salt"
	identityFileName = "identity.key"
)

// KeyStore persists sensitive key material encrypted at rest.
//
// Files are sealed with AES-256-GCM under a key derived from a
// passphrase via PBKDF2, so a compromised filesystem does not expose the
// identity's private key. File format:
//
//	[version:2][nonce:12][ciphertext+tag:N]
type KeyStore struct {
	dir string
	key [32]byte
}

// OpenKeyStore opens (creating if needed) the key store rooted at dir.
//
// The salt is generated on first use and persisted next to the stored
// files; the same passphrase and salt always derive the same at-rest key.
func OpenKeyStore(dir string, passphrase []byte) (*KeyStore, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("passphrase cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key store directory: %w", err)
	}

	ks := &KeyStore{dir: dir}
	salt, err := ks.loadOrGenerateSalt()
	if err != nil {
		return nil, err
	}
	derived := pbkdf2.Key(passphrase, salt, storeIterations, 32, sha256.New)
	copy(ks.key[:], derived)
	zero(derived)

	return ks, nil
}

func (ks *KeyStore) loadOrGenerateSalt() ([]byte, error) {
	path := filepath.Join(ks.dir, saltFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != storeSaltSize {
			return nil, fmt.Errorf("invalid salt file size: got %d, want %d", len(data), storeSaltSize)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read salt file: %w", err)
	}

	salt := make([]byte, storeSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("save salt: %w", err)
	}
	return salt, nil
}

// Write seals plaintext and writes it under name, atomically via a
// temporary file and rename.
func (ks *KeyStore) Write(name string, plaintext []byte) error {
	aead, err := ks.aead()
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 2+len(nonce)+len(sealed))
	binary.BigEndian.PutUint16(out[0:2], storeVersion)
	copy(out[2:], nonce)
	copy(out[2+len(nonce):], sealed)

	tmp := filepath.Join(ks.dir, name+".tmp")
	final := filepath.Join(ks.dir, name)
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename key store file: %w", err)
	}
	return nil
}

// Read loads and opens the sealed file stored under name.
func (ks *KeyStore) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(ks.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read key store file: %w", err)
	}
	if len(data) < 2+NonceSize+gcmTagSize {
		return nil, fmt.Errorf("%w: file too short", ErrStoreAuth)
	}
	if v := binary.BigEndian.Uint16(data[0:2]); v != storeVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrStoreVersion, v, storeVersion)
	}

	aead, err := ks.aead()
	if err != nil {
		return nil, err
	}
	nonce := data[2 : 2+aead.NonceSize()]
	sealed := data[2+aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreAuth, err)
	}
	return plain, nil
}

// RotatePassphrase re-derives the at-rest key from a new passphrase and
// re-encrypts every stored file. The identity keypair itself is unchanged.
func (ks *KeyStore) RotatePassphrase(passphrase []byte) error {
	if len(passphrase) == 0 {
		return errors.New("passphrase cannot be empty")
	}

	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return fmt.Errorf("list key store: %w", err)
	}
	contents := make(map[string][]byte)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == saltFileName || filepath.Ext(name) == ".tmp" {
			continue
		}
		plain, err := ks.Read(name)
		if err != nil {
			return fmt.Errorf("rotate %s: %w", name, err)
		}
		contents[name] = plain
	}

	salt := make([]byte, storeSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	old := ks.key
	derived := pbkdf2.Key(passphrase, salt, storeIterations, 32, sha256.New)
	copy(ks.key[:], derived)
	zero(derived)

	for name, plain := range contents {
		if err := ks.Write(name, plain); err != nil {
			ks.key = old
			return fmt.Errorf("re-encrypt %s: %w", name, err)
		}
		zero(plain)
	}
	if err := os.WriteFile(filepath.Join(ks.dir, saltFileName), salt, 0o600); err != nil {
		ks.key = old
		return fmt.Errorf("save salt: %w", err)
	}
	zero(old[:])
	return nil
}

// Close wipes the derived at-rest key from memory.
func (ks *KeyStore) Close() error {
	zero(ks.key[:])
	return nil
}

func (ks *KeyStore) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(ks.key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

// LoadOrCreateIdentity returns the persisted identity keypair from the
// key store under dir, generating and persisting a new one on first use.
//
// The keypair is created once and never rotated; only the store
// passphrase can be rotated.
func LoadOrCreateIdentity(dir string, passphrase []byte) (*KeyPair, error) {
	ks, err := OpenKeyStore(dir, passphrase)
	if err != nil {
		return nil, err
	}
	defer ks.Close()

	der, err := ks.Read(identityFileName)
	if err == nil {
		priv, err := ParsePrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("stored identity: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "LoadOrCreateIdentity",
			"dir":      dir,
		}).Debug("Loaded persisted identity keypair")
		return &KeyPair{Public: &priv.PublicKey, Private: priv}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	keys, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	der, err = MarshalPrivateKey(keys.Private)
	if err != nil {
		return nil, err
	}
	if err := ks.Write(identityFileName, der); err != nil {
		return nil, fmt.Errorf("persist identity: %w", err)
	}
	return keys, nil
}

// zero overwrites b with zeros. Best-effort hygiene for key material.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
