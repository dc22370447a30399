package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrAuthenticationFailed is the single sentinel value returned for every
// decryption failure: a bad tag, a truncated ciphertext, a malformed
// ephemeral point, or a ciphertext meant for a different recipient. It is
// the only error Decrypt ever returns, so callers cannot tell these causes
// apart by return value. The time Decrypt takes is not uniform across
// causes: a ciphertext that is too short, for instance, is rejected before
// any key agreement is done.
var ErrAuthenticationFailed = errors.New("crypto: authentication failed")

const (
	hybridInfo = "dao-ballot-hybrid-v1"
	// compressedPointSize is the length of a P-256 compressed point.
	compressedPointSize = 33
)

// Encrypt implements the client side of the hybrid scheme: given a
// recipient's compressed P-256 public point and a plaintext, it generates a
// fresh ephemeral keypair and nonce, derives a shared AES-256 key via ECDH +
// HKDF-SHA256, and seals the plaintext with AES-256-GCM.
//
// Output layout: ephemeral_pubkey_compressed(33) || nonce(12) || sealed(...).
// Each call is non-deterministic.
func Encrypt(pkCompressed []byte, plaintext []byte) ([]byte, error) {
	recipient, err := decompressPoint(pkCompressed)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: %w", err)
	}

	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: generate ephemeral key: %w", err)
	}

	shared, err := ephemeral.ECDH(recipient)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: ECDH: %w", err)
	}

	aesKey, err := deriveKey(shared, nil, []byte(hybridInfo), SymmetricKeySize)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: %w", err)
	}

	sealed, err := sealAESGCM(aesKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: %w", err)
	}

	ephCompressed, err := compressPoint(ephemeral.PublicKey().Bytes())
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: %w", err)
	}

	out := make([]byte, 0, len(ephCompressed)+len(sealed))
	out = append(out, ephCompressed...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt implements the engine side of the hybrid scheme. Any failure -
// malformed input, wrong recipient, tampered ciphertext - returns
// ErrAuthenticationFailed and nothing else; it never panics.
func Decrypt(sk []byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < compressedPointSize+GCMNonceSize+GCMTagSize {
		return nil, ErrAuthenticationFailed
	}

	priv, err := curve.NewPrivateKey(sk)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	ephPoint, err := decompressPoint(ciphertext[:compressedPointSize])
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	shared, err := priv.ECDH(ephPoint)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	aesKey, err := deriveKey(shared, nil, []byte(hybridInfo), SymmetricKeySize)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := openAESGCM(aesKey, ciphertext[compressedPointSize:])
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
