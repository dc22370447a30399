package attest

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/stretchr/testify/require"
)

func ed25519PEM(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block))
}

func TestLoadFromEnvReturnsNilWhenUnset(t *testing.T) {
	t.Setenv(ClassicalKeyEnvVar, "")
	signer, err := LoadFromEnv()
	require.NoError(t, err)
	require.Nil(t, signer)
}

func TestLoadFromEnvRejectsGarbagePEM(t *testing.T) {
	t.Setenv(ClassicalKeyEnvVar, "not pem data")
	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestSignAttestationWithEd25519Key(t *testing.T) {
	t.Setenv(ClassicalKeyEnvVar, ed25519PEM(t))
	signer, err := LoadFromEnv()
	require.NoError(t, err)
	require.NotNil(t, signer)

	sig, err := signer.SignAttestation("attestation:deadbeef")
	require.NoError(t, err)
	require.Equal(t, "ed25519", sig.ClassicalAlgorithm)
	require.NotEmpty(t, sig.ClassicalSignature)
	require.Nil(t, sig.PQCSignature)
}

func TestSignAttestationAddsDilithiumWhenConfigured(t *testing.T) {
	pub, priv, err := mode3.GenerateKey(nil)
	require.NoError(t, err)
	_ = pub

	var packed [mode3.PrivateKeySize]byte
	priv.Pack(&packed)

	t.Setenv(ClassicalKeyEnvVar, ed25519PEM(t))
	t.Setenv(PQCKeyEnvVar, hex.EncodeToString(packed[:]))

	signer, err := LoadFromEnv()
	require.NoError(t, err)
	require.NotNil(t, signer)

	sig, err := signer.SignAttestation("attestation:deadbeef")
	require.NoError(t, err)
	require.NotEmpty(t, sig.PQCSignature)
	require.Len(t, sig.PQCSignature, mode3.SignatureSize)
}

func TestSignAttestationIsDeterministicForEd25519(t *testing.T) {
	t.Setenv(ClassicalKeyEnvVar, ed25519PEM(t))
	signer, err := LoadFromEnv()
	require.NoError(t, err)

	sig1, err := signer.SignAttestation("attestation:aaaa")
	require.NoError(t, err)
	sig2, err := signer.SignAttestation("attestation:aaaa")
	require.NoError(t, err)
	require.Equal(t, sig1.ClassicalSignature, sig2.ClassicalSignature)
}
