package crypto

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func randomMasterSecret(t *testing.T) []byte {
	t.Helper()
	ms := make([]byte, 32)
	_, err := rand.Read(ms)
	require.NoError(t, err)
	return ms
}

func TestDeriveUserKeysIsDeterministic(t *testing.T) {
	ms := randomMasterSecret(t)

	sk1, pk1, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)
	sk2, pk2, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)

	require.True(t, bytes.Equal(sk1, sk2))
	require.True(t, bytes.Equal(pk1, pk2))
	require.Len(t, pk1, 33)
}

func TestDeriveUserKeysIsolatesUsers(t *testing.T) {
	ms := randomMasterSecret(t)

	_, pkAlice, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)
	_, pkBob, err := DeriveUserKeys(ms, "dao-1", "bob")
	require.NoError(t, err)

	require.False(t, bytes.Equal(pkAlice, pkBob))
}

func TestDeriveUserKeysIsolatesDAOs(t *testing.T) {
	ms := randomMasterSecret(t)

	_, pk1, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)
	_, pk2, err := DeriveUserKeys(ms, "dao-2", "alice")
	require.NoError(t, err)

	require.False(t, bytes.Equal(pk1, pk2))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ms := randomMasterSecret(t)
	sk, pk, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)

	plaintext := []byte("yes")
	ciphertext, err := Encrypt(pk, plaintext)
	require.NoError(t, err)

	recovered, err := Decrypt(sk, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

func TestEncryptionIsNonDeterministic(t *testing.T) {
	ms := randomMasterSecret(t)
	_, pk, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)

	c1, err := Encrypt(pk, []byte("yes"))
	require.NoError(t, err)
	c2, err := Encrypt(pk, []byte("yes"))
	require.NoError(t, err)

	require.NotEqual(t, c1, c2)
}

func TestDecryptRejectsWrongRecipient(t *testing.T) {
	ms := randomMasterSecret(t)
	skAlice, _, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)
	_, pkBob, err := DeriveUserKeys(ms, "dao-1", "bob")
	require.NoError(t, err)

	ciphertext, err := Encrypt(pkBob, []byte("yes"))
	require.NoError(t, err)

	_, err = Decrypt(skAlice, ciphertext)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	ms := randomMasterSecret(t)
	sk, pk, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)

	ciphertext, err := Encrypt(pk, []byte("yes"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = Decrypt(sk, ciphertext)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecryptRejectsTruncatedCiphertext(t *testing.T) {
	ms := randomMasterSecret(t)
	sk, _, err := DeriveUserKeys(ms, "dao-1", "alice")
	require.NoError(t, err)

	_, err = Decrypt(sk, []byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

// TestDeriveUserKeysIsolatesManyRandomUsers is a property-style check over a
// batch of freshly generated dao/user identifiers: every pairing must land
// on a distinct public point. uuid.NewString gives each fixture a collision-
// free identifier without hand-picking names like "alice"/"bob".
func TestDeriveUserKeysIsolatesManyRandomUsers(t *testing.T) {
	ms := randomMasterSecret(t)
	daoID := uuid.NewString()

	seen := make(map[string]string)
	for i := 0; i < 50; i++ {
		userID := uuid.NewString()
		_, pk, err := DeriveUserKeys(ms, daoID, userID)
		require.NoError(t, err)

		pkHex := string(pk)
		if otherUser, ok := seen[pkHex]; ok {
			t.Fatalf("users %q and %q derived the same public point", otherUser, userID)
		}
		seen[pkHex] = userID
	}
}
