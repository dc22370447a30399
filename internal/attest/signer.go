/*
Package attest implements the optional, additive attestation-signing upgrade
path named in the spec: the placeholder "attestation:<hex>" string keeps its
shape forever, but an operator may additionally configure a signing key so
that the attestation digest carries a real signature.

This mirrors the teacher repo's transparency.Signer (which signs a tree head
with an Ed25519 or P-256 key loaded from a PEM-encoded environment variable)
and its hybrid-PQXDH pattern (pairing a classical key with a CRYSTALS-
Dilithium3 signature for forward quantum resistance), adapted from signing
tree heads to signing attestation digests.
*/
package attest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// ClassicalKeyEnvVar holds a PEM-encoded Ed25519 or P-256 private key. When
// unset, attestations are emitted without any signature, exactly as the
// base spec describes.
const ClassicalKeyEnvVar = "DAO_ATTESTATION_SIGNING_KEY"

// PQCKeyEnvVar holds a hex-encoded CRYSTALS-Dilithium3 private key. It only
// takes effect if ClassicalKeyEnvVar is also set, since the hybrid scheme
// always signs with the classical key first.
const PQCKeyEnvVar = "DAO_ATTESTATION_PQC_KEY"

// Signature is the additive result attached to a tally_votes response when
// signing is configured.
type Signature struct {
	ClassicalAlgorithm string
	ClassicalSignature []byte
	PQCSignature       []byte // nil unless a Dilithium3 key is also configured
}

// Signer signs attestation digests with a classical key and, optionally, an
// additional Dilithium3 signature over the same digest.
type Signer struct {
	classicalKey crypto.PrivateKey
	algorithm    string
	pqcKey       *mode3.PrivateKey
}

// LoadFromEnv builds a Signer from the environment, or returns (nil, nil) if
// no classical signing key is configured - the common, default case.
func LoadFromEnv() (*Signer, error) {
	pemData := os.Getenv(ClassicalKeyEnvVar)
	if pemData == "" {
		return nil, nil
	}

	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("attest: %s is not valid PEM", ClassicalKeyEnvVar)
	}

	var (
		key crypto.PrivateKey
		alg string
	)
	switch block.Type {
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("attest: parse PKCS#8 key: %w", err)
		}
		switch k := parsed.(type) {
		case ed25519.PrivateKey:
			key, alg = k, "ed25519"
		case *ecdsa.PrivateKey:
			if k.Curve != elliptic.P256() {
				return nil, errors.New("attest: only P-256 ECDSA keys are supported")
			}
			key, alg = k, "p256"
		default:
			return nil, fmt.Errorf("attest: unsupported key type %T", parsed)
		}
	case "EC PRIVATE KEY":
		parsed, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("attest: parse EC key: %w", err)
		}
		if parsed.Curve != elliptic.P256() {
			return nil, errors.New("attest: only P-256 ECDSA keys are supported")
		}
		key, alg = parsed, "p256"
	default:
		return nil, fmt.Errorf("attest: unsupported PEM block type %q", block.Type)
	}

	signer := &Signer{classicalKey: key, algorithm: alg}

	if pqcHex := os.Getenv(PQCKeyEnvVar); pqcHex != "" {
		raw, err := hex.DecodeString(pqcHex)
		if err != nil {
			return nil, fmt.Errorf("attest: %s is not valid hex: %w", PQCKeyEnvVar, err)
		}
		if len(raw) != mode3.PrivateKeySize {
			return nil, fmt.Errorf("attest: %s must be %d bytes, got %d", PQCKeyEnvVar, mode3.PrivateKeySize, len(raw))
		}
		var priv mode3.PrivateKey
		var arr [mode3.PrivateKeySize]byte
		copy(arr[:], raw)
		priv.Unpack(&arr)
		signer.pqcKey = &priv
	}

	return signer, nil
}

// SignAttestation signs the SHA-256 digest of the attestation string with
// the configured classical key, and - if a Dilithium3 key is also
// configured - with that key too, over the same digest.
func (s *Signer) SignAttestation(attestation string) (*Signature, error) {
	digest := sha256.Sum256([]byte(attestation))

	var (
		sig []byte
		err error
	)
	switch k := s.classicalKey.(type) {
	case ed25519.PrivateKey:
		sig = ed25519.Sign(k, digest[:])
	case *ecdsa.PrivateKey:
		sig, err = ecdsa.SignASN1(rand.Reader, k, digest[:])
		if err != nil {
			return nil, fmt.Errorf("attest: sign: %w", err)
		}
	default:
		return nil, fmt.Errorf("attest: unsupported key type %T", s.classicalKey)
	}

	result := &Signature{
		ClassicalAlgorithm: s.algorithm,
		ClassicalSignature: sig,
	}

	if s.pqcKey != nil {
		pqcSig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(s.pqcKey, digest[:], pqcSig)
		result.PQCSignature = pqcSig
	}

	return result, nil
}
