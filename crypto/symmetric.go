/*
Package crypto implements the two cryptographic primitives the DAO vote
engine is built on: deterministic per-user key derivation (keys.go) and
hybrid public-key encryption of ballots (hybrid.go), backed by the
symmetric building blocks in this file.

Both the engine (which decrypts) and any ballot-submitting client (which
encrypts) import this same package, so there is exactly one implementation
of the wire-contract byte layout to keep in sync.
*/
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SymmetricKeySize is the size of the AES-256 key derived for each ballot.
const SymmetricKeySize = 32

// GCMNonceSize is the AES-GCM nonce size.
const GCMNonceSize = 12

// GCMTagSize is the AES-GCM authentication tag size.
const GCMTagSize = 16

// deriveKey runs HKDF-SHA256 over ikm with the given salt and info string,
// returning keyLen bytes.
func deriveKey(ikm, salt, info []byte, keyLen int) ([]byte, error) {
	kdf := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, keyLen)
	if _, err := io.ReadFull(kdf, out); err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	return out, nil
}

// sealAESGCM encrypts plaintext under key with a freshly generated nonce and
// returns nonce || ciphertext (ciphertext includes the 16-byte tag).
func sealAESGCM(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// openAESGCM splits nonceAndCiphertext into its nonce and sealed portion and
// opens it under key. It never distinguishes between the many reasons
// decryption can fail; every failure returns the same error.
func openAESGCM(key, nonceAndCiphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	if len(nonceAndCiphertext) < gcm.NonceSize() {
		return nil, ErrAuthenticationFailed
	}
	nonce := nonceAndCiphertext[:gcm.NonceSize()]
	sealed := nonceAndCiphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
