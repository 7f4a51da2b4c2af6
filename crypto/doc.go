// Package crypto implements the cryptographic core of hushwire.
//
// It provides identity keypair generation (RSA-2048 with OAEP/SHA-256),
// envelope encryption of message payloads for multiple recipients, cheap
// format guards for incoming envelope fields, and encrypted at-rest
// storage of the identity's private key.
//
// Envelope encryption encrypts a payload exactly once with a fresh
// AES-256-GCM key and then wraps that key separately under each
// recipient's public key, so ciphertext size is independent of the
// recipient count.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	env, err := crypto.EncryptForRecipients("hello", []crypto.Recipient{
//	    {ID: "alice", PublicKey: keys.Public},
//	})
package crypto
